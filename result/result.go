// Package result implements RunResult, the structured, serializable
// report of a single function run (spec.md §4.I), and its humanized
// text rendering. Grounded on
// original_source/src/function_run_result.rs's FunctionRunResult and its
// Display impl; see DESIGN.md.
package result

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wasmharness/function-runner/codec"
	"github.com/wasmharness/function-runner/container"
)

// Default per-component resource budgets, scaled by ScaleFactor, per
// spec.md §4.I.
const (
	DefaultInputSizeLimit     = 128_000
	DefaultOutputSizeLimit    = 20_000
	DefaultInstructionsLimit  = 11_000_000
	logRenderWarningThreshold = 1000
)

// RunResult is a single run's report: size, memory, instructions, logs,
// the input/output containers, and success.
type RunResult struct {
	Name         string
	Size         float64 // kB, module size
	MemoryUsage  float64 // kB, linear-memory high-water mark
	Instructions uint64  // fuel consumed
	Logs         string
	Input        *container.BytesContainer
	Output       *container.BytesContainer

	// OverageBytes is how many guest log bytes the IOHandler dropped past
	// the 1000-byte soft cap (spec.md §4.F), as reported by the
	// handler's LogOverage(). Zero when the log never crossed the cap.
	// Not serialized; Render uses it to print the "logs would be
	// truncated" warning line (spec.md §8 property 4).
	OverageBytes int

	// Profile is an opaque payload populated only by an external
	// profiling collaborator (out of scope here, always nil) — carried
	// as a field because downstream consumers of the original project's
	// FunctionRunResult read it; see SPEC_FULL.md supplemented feature 3.
	Profile []byte

	// ScaleFactor is the scalelimits-derived multiplier this run's
	// budgets were scaled by. Not serialized (spec.md §4.I: "omitting
	// the profile payload and the scale factor").
	ScaleFactor float64

	Success bool
}

// outputWire is the shape spec.md §6 specifies for a failed decode:
// "either the JSON tree or a {error, stdout} record".
type outputWire struct {
	Error  string `json:"error"`
	Stdout string `json:"stdout"`
}

// MarshalJSON implements spec.md §6's RunResult JSON shape: name, size,
// memory_usage, instructions, logs, input (humanized), output (JSON
// tree or {error, stdout}), success. Profile and ScaleFactor are never
// serialized.
func (r *RunResult) MarshalJSON() ([]byte, error) {
	wire := struct {
		Name         string  `json:"name"`
		Size         float64 `json:"size"`
		MemoryUsage  float64 `json:"memory_usage"`
		Instructions uint64  `json:"instructions"`
		Logs         string  `json:"logs"`
		Input        string  `json:"input"`
		Output       any     `json:"output"`
		Success      bool    `json:"success"`
	}{
		Name:         r.Name,
		Size:         r.Size,
		MemoryUsage:  r.MemoryUsage,
		Instructions: r.Instructions,
		Logs:         r.Logs,
		Success:      r.Success,
	}
	if r.Input != nil {
		wire.Input = r.Input.Humanized
	}
	if r.Output != nil {
		if r.Output.Valid() {
			wire.Output = r.Output.JSONValue
		} else {
			wire.Output = outputWire{
				Error:  r.Output.EncodingError,
				Stdout: codec.LossyUTF8(r.Output.Raw),
			}
		}
	}
	return json.Marshal(wire)
}

// Limits holds the resource budgets this run was held to, already
// scaled by ScaleFactor — for Render's "Resource Limits" block.
type Limits struct {
	InputSize    float64
	OutputSize   float64
	Instructions float64
}

// LimitsFor returns the scaled default budgets for scaleFactor, per
// spec.md §4.I: "input_size_limit = 128_000 × scale" etc.
func LimitsFor(scaleFactor float64) Limits {
	return Limits{
		InputSize:    DefaultInputSizeLimit * scaleFactor,
		OutputSize:   DefaultOutputSizeLimit * scaleFactor,
		Instructions: DefaultInstructionsLimit * scaleFactor,
	}
}

// Render produces the human-readable rendering spec.md §4.I describes:
// input (pretty), logs (with a truncation-overage warning line when
// applicable), output (pretty JSON or an "Invalid Output" block), a
// Resource Limits block, and benchmark stats. logOverage is the number
// of guest log bytes dropped past the soft cap (0 if none); pass it
// through from the iohandler that produced this run's logs.
func (r *RunResult) Render(logOverage int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Input:\n%s\n\n", r.Input.Humanized)

	fmt.Fprintf(&b, "Logs:\n%s\n", r.Logs)
	if logOverage > 0 {
		fmt.Fprintf(&b, "(logs would be truncated: %d bytes over the %d-byte cap)\n", logOverage, logRenderWarningThreshold)
	}
	b.WriteString("\n")

	if r.Output.Valid() {
		fmt.Fprintf(&b, "Output:\n%s\n\n", r.Output.Humanized)
	} else {
		fmt.Fprintf(&b, "Invalid Output (%s):\n%s\n\n", r.Output.EncodingError, r.Output.Humanized)
	}

	limits := LimitsFor(r.ScaleFactor)
	b.WriteString("Resource Limits:\n")
	fmt.Fprintf(&b, "  input_size_limit:     %s\n", HumanizeBytes(limits.InputSize))
	fmt.Fprintf(&b, "  output_size_limit:    %s\n", HumanizeBytes(limits.OutputSize))
	fmt.Fprintf(&b, "  instructions_limit:   %s\n\n", HumanizeInstructions(uint64(limits.Instructions)))

	b.WriteString("Benchmark Results:\n")
	fmt.Fprintf(&b, "  name:         %s\n", r.Name)
	fmt.Fprintf(&b, "  memory_usage: %s\n", HumanizeBytes(r.MemoryUsage*1024))
	fmt.Fprintf(&b, "  instructions: %s\n", humanizeInstructionsHighlighted(r.Instructions, uint64(limits.Instructions)))
	fmt.Fprintf(&b, "  input_size:   %s\n", humanizeHighlighted(float64(len(r.Input.Raw)), limits.InputSize))
	fmt.Fprintf(&b, "  output_size:  %s\n", humanizeHighlighted(float64(len(r.Output.Raw)), limits.OutputSize))
	fmt.Fprintf(&b, "  module_size:  %s\n", HumanizeBytes(r.Size*1024))

	return b.String()
}

func humanizeHighlighted(value, limit float64) string {
	s := HumanizeBytes(value)
	if value > limit {
		return s + fmt.Sprintf(" (exceeded %s)", HumanizeBytes(limit))
	}
	return s
}

func humanizeInstructionsHighlighted(value, limit uint64) string {
	s := HumanizeInstructions(value)
	if value > limit {
		return s + fmt.Sprintf(" (exceeded %s)", HumanizeInstructions(limit))
	}
	return s
}
