// Command run-function is a thin example program exercising the harness
// end-to-end: load a guest module and input document, optionally compute
// a scale factor from a schema+query pair, run it, and print the result.
// Mirrors the teacher's stress-test-bot-go in shape (flag-based, a
// single linear pipeline) — argument parsing beyond these flags, file
// opening edge cases, and ANSI-colored output are out of scope per
// spec.md §1.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/wasmharness/function-runner/codec"
	"github.com/wasmharness/function-runner/outputvalidation"
	"github.com/wasmharness/function-runner/runner"
	"github.com/wasmharness/function-runner/scalelimits"
)

func main() {
	name := flag.String("name", "function", "name recorded in the run result")
	wasmPath := flag.String("module", "", "path to the compiled guest WebAssembly module")
	inputPath := flag.String("input", "", "path to the input document (JSON)")
	schemaPath := flag.String("schema", "", "path to the GraphQL schema (optional, enables scale-limits analysis)")
	queryPath := flag.String("query", "", "path to the GraphQL query (optional, required alongside -schema)")
	wireCodec := flag.String("codec", "json", "wire codec for input/output: json, messagepack, or raw")
	jsonOut := flag.Bool("json", false, "print the RunResult as JSON instead of the humanized rendering")
	flag.Parse()

	if *wasmPath == "" || *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: run-function -module <path> -input <path> [-schema <path> -query <path>] [-codec json|messagepack|raw] [-json]")
		os.Exit(2)
	}

	c, err := parseCodec(*wireCodec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	guestWasm, err := os.ReadFile(*wasmPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading module: %v\n", err)
		os.Exit(1)
	}
	inputJSON, err := os.ReadFile(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading input: %v\n", err)
		os.Exit(1)
	}

	scaleFactor := 1.0
	if *schemaPath != "" {
		if *queryPath == "" {
			fmt.Fprintln(os.Stderr, "-schema requires -query")
			os.Exit(2)
		}
		scaleFactor, err = computeScaleFactor(*schemaPath, *queryPath, inputJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scale-limits analysis: %v\n", err)
			os.Exit(1)
		}
	}

	// Raw input is passed to the guest byte for byte; the other codecs
	// start from JSON text.
	inputRaw := inputJSON
	if c != codec.Raw {
		inputRaw, _, err = codec.TranscodeJSONToWire(c, inputJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid input: %v\n", err)
			os.Exit(1)
		}
	}

	logger := logrus.NewEntry(logrus.StandardLogger())

	ctx := context.Background()
	engine, err := runner.New(ctx, runner.Config{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close(ctx)

	res, err := engine.Run(ctx, runner.Call{
		Name:        *name,
		GuestWasm:   guestWasm,
		Codec:       c,
		InputRaw:    inputRaw,
		ScaleFactor: scaleFactor,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		out, err := res.MarshalJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshaling result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
	} else {
		fmt.Println(res.Render(res.OverageBytes))
	}

	if res.Success && *schemaPath != "" && res.Output.Valid() {
		schemaSDL, err := os.ReadFile(*schemaPath)
		if err == nil {
			if errs, err := outputvalidation.Validate(string(schemaSDL), res.Output.JSONValue); err != nil {
				fmt.Fprintf(os.Stderr, "output validation: %v\n", err)
			} else if len(errs) > 0 {
				fmt.Fprintln(os.Stderr, "Output validation errors:")
				for _, e := range errs {
					fmt.Fprintf(os.Stderr, "  %s\n", e.String())
				}
			}
		}
	}

	if !res.Success {
		os.Exit(1)
	}
}

func parseCodec(s string) (codec.Codec, error) {
	switch s {
	case "json":
		return codec.JSON, nil
	case "messagepack":
		return codec.MessagePack, nil
	case "raw":
		return codec.Raw, nil
	default:
		return 0, fmt.Errorf("unknown codec %q (want json, messagepack, or raw)", s)
	}
}

func computeScaleFactor(schemaPath, queryPath string, inputJSON []byte) (float64, error) {
	schemaSDL, err := os.ReadFile(schemaPath)
	if err != nil {
		return 0, fmt.Errorf("reading schema: %w", err)
	}
	querySrc, err := os.ReadFile(queryPath)
	if err != nil {
		return 0, fmt.Errorf("reading query: %w", err)
	}
	input, err := codec.DecodeJSON(inputJSON)
	if err != nil {
		return 0, fmt.Errorf("decoding input: %w", err)
	}
	return scalelimits.Analyze(string(schemaSDL), string(querySrc), input)
}
