// Package runner composes module, iohandler, and limiter into the
// engine/runner described in spec.md §4.H — the harness's composition
// root, ~30% of its implementation budget. Grounded on the teacher
// binding's jsl.go (New/callJsl: compile once, instantiate per call,
// look up exports, read/write guest memory) composed with
// original_source/src/{io,engine}.rs's run shape; see DESIGN.md.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"github.com/tetratelabs/wazero/sys"

	"github.com/wasmharness/function-runner/codec"
	"github.com/wasmharness/function-runner/container"
	"github.com/wasmharness/function-runner/iohandler"
	"github.com/wasmharness/function-runner/limiter"
	"github.com/wasmharness/function-runner/module"
	"github.com/wasmharness/function-runner/result"
)

// DefaultExportName is the function invoked when Call.ExportName is
// empty — the system-interface "start" symbol's conventional name.
const DefaultExportName = "_start"

// Config holds per-engine tunables, resolved with zero-value defaults at
// construction time (SPEC_FULL.md's Configuration section), the same
// defaults-with-fallback shape zkoranges-go-claw's wasm-host.go uses for
// its own Config/NewHost.
type Config struct {
	// Logger receives structured diagnostic log lines about the harness's
	// own operation (module validated with its I/O strategy, provider
	// linked, a guest run that did not succeed, including fuel
	// exhaustion). Distinct from the guest's
	// captured log bytes, which never pass through this logger. Defaults
	// to a discarding entry when nil.
	Logger *logrus.Entry

	// DefaultExportName overrides DefaultExportName above.
	DefaultExportName string
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		c.Logger = logrus.NewEntry(discard)
	}
	if c.DefaultExportName == "" {
		c.DefaultExportName = DefaultExportName
	}
	return c
}

// Engine owns the long-lived wazero Runtime and its compilation cache
// (spec.md §4.H's fixed engine configuration); ValidatedModule, Store,
// Linker, and IOHandler are all constructed fresh per call.
type Engine struct {
	cfg     Config
	runtime wazero.Runtime
}

// New constructs an Engine with spec.md §4.H's fixed configuration:
// multi-memory enabled (wazero instantiates every imported/exported
// memory without a separate opt-in the way some engines require),
// threads disabled (simply never requested), fuel accounting enabled
// (via fuelMeter, see fuel.go), epoch interruption "enabled" in the
// sense that the context passed to every call is cancellable — spec.md
// §1 is explicit that no ticker drives it in this core — and
// compilation caching enabled.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	cache := wazero.NewCompilationCache()
	rtCfg := wazero.NewRuntimeConfig().
		WithCompilationCache(cache).
		WithCloseOnContextDone(true)

	rt := wazero.NewRuntimeWithConfig(ctx, rtCfg)
	return &Engine{cfg: cfg, runtime: rt}, nil
}

// Close releases the engine's wazero runtime and compilation cache.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Call describes one function invocation.
type Call struct {
	// Name identifies this run in RunResult (e.g. the function's name in
	// its manifest); purely descriptive.
	Name string

	// GuestWasm is the guest's compiled WebAssembly module bytes.
	GuestWasm []byte

	// Codec is the declared wire encoding for both input and output.
	Codec codec.Codec

	// InputRaw is the input document's bytes, already encoded in Codec —
	// the caller builds this via container.MakeInput before calling Run,
	// since a codec/decoding failure there is fatal and must never reach
	// the engine (spec.md §7 kind 1).
	InputRaw []byte

	// ScaleFactor multiplies the default resource budgets for this call,
	// as computed by the scalelimits analyzer (spec.md §4.C). Callers
	// that have no schema+query pair for this guest pass 1.0.
	ScaleFactor float64

	// ExportName overrides the engine's DefaultExportName.
	ExportName string
}

// Run executes one guest invocation end-to-end: validate → select I/O
// strategy → link → instantiate → invoke → extract metrics → build
// RunResult. Steps 1–5 (construction, linking, store/limiter wiring) can
// fail fatally and return a plain error with no RunResult, matching
// spec.md §7's propagation policy for error kinds 1–5. From step 6
// onward (the guest invocation itself), failures are recovered into a
// RunResult with Success=false, per kind 6.
func (e *Engine) Run(ctx context.Context, call Call) (*result.RunResult, error) {
	log := e.cfg.Logger.WithField("function", call.Name)

	meter := newFuelMeter(nil)
	// The fuel meter's listener factory must be on the context used to
	// compile the guest module — wazero resolves
	// experimental.FunctionListenerFactory per function at compile time,
	// not at instantiation time.
	fuelCtx := experimental.WithFunctionListenerFactory(ctx, meter)

	compiled, err := e.runtime.CompileModule(fuelCtx, call.GuestWasm)
	if err != nil {
		return nil, fmt.Errorf("runner: compile guest module: %w", err)
	}
	defer compiled.Close(ctx)

	validated, err := module.New(compiled)
	if err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	log.WithField("uses_mem_io", validated.UsesMemIO()).Debug("module validated")

	var handler *iohandler.Handler
	if validated.UsesMemIO() {
		handler = iohandler.NewMemory()
	} else {
		handler = iohandler.NewStdio(call.InputRaw)
	}

	memLimiter := limiter.New()
	if err := memLimiter.Reserve("guest"); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	var wasiCloser api.Closer
	if validated.UsesWASI() {
		wasiCloser, err = iohandler.InstantiateDeterministicWASI(ctx, e.runtime)
		if err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
		defer wasiCloser.Close(ctx)
	}

	var providerInstance api.Module
	if p := validated.Provider(); p != nil {
		if err := memLimiter.Reserve("provider"); err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
		providerCompiled, err := e.runtime.CompileModule(ctx, p.Bytes)
		if err != nil {
			return nil, fmt.Errorf("runner: compile provider %q: %w", p.Name, err)
		}
		defer providerCompiled.Close(ctx)

		providerCfg := wazero.NewModuleConfig().WithName(p.Name)
		providerInstance, err = e.runtime.InstantiateModule(ctx, providerCompiled, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("runner: link provider %q: %w", p.Name, err)
		}
		defer providerInstance.Close(ctx)
		log.WithField("provider", p.Name).Debug("provider linked")
	}

	meter.mem = memLimiter

	guestCfg := wazero.NewModuleConfig().WithName(call.Name)
	guestCfg = handler.ModuleConfig(guestCfg)

	// Raise fuel to the max during instantiation and any memory-I/O
	// initialize() call, so placing the input can never spuriously trip
	// the meter (spec.md §4.H step 5). No epoch deadline is armed; see New.
	meter.Reset(StartingFuel)

	guest, err := e.runtime.InstantiateModule(fuelCtx, compiled, guestCfg)
	if err != nil {
		return nil, fmt.Errorf("runner: instantiate guest: %w", err)
	}
	defer guest.Close(ctx)
	if mem := guest.Memory(); mem != nil {
		memLimiter.Observe(uint64(mem.Size()))
	}

	if handler.IsMemory() {
		if err := handler.Initialize(fuelCtx, guest, call.InputRaw); err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
	}

	exportName := call.ExportName
	if exportName == "" {
		exportName = e.cfg.DefaultExportName
	}
	startFn := guest.ExportedFunction(exportName)
	if startFn == nil {
		return nil, fmt.Errorf("runner: guest does not export function %q", exportName)
	}

	// Step 6: the real instruction budget for the main invocation.
	meter.Reset(StartingFuel)

	runErr := invoke(fuelCtx, startFn)

	instructions := meter.Consumed()
	memoryKB := memLimiter.MaxKB()

	var outputRaw, logsRaw []byte
	if runErr == nil && handler.IsMemory() {
		// Raise fuel to max again so finalize() itself can't run out of
		// fuel (spec.md §4.F step 2).
		meter.Reset(StartingFuel)
		outputRaw, logsRaw, err = handler.Finalize(fuelCtx)
		if err != nil {
			runErr = err
		}
	} else if handler.IsMemory() {
		// spec.md §9(c): finalize is not called when the main invocation
		// failed; whatever the shared memory already holds is not
		// retrievable without finalize, so output/logs are simply empty.
		outputRaw, logsRaw = nil, nil
	} else {
		outputRaw = handler.Output()
		logsRaw = handler.Logs()
	}

	logs := string(logsRaw)
	success := runErr == nil
	if runErr != nil {
		if logs != "" {
			logs += "\n"
		}
		logs += runErr.Error()
		log.WithError(runErr).Debug("guest run did not succeed")
	}

	outputContainer := container.MakeOutput(call.Codec, outputRaw)
	var inputContainer *container.BytesContainer
	if call.Codec == codec.MessagePack {
		// InputRaw is already MessagePack here, while MakeInput parses JSON text.
		v, err := codec.DecodeMessagePack(call.InputRaw)
		if err != nil {
			return nil, fmt.Errorf("runner: invalid MessagePack input: %w", err)
		}
		pretty, err := codec.EncodeJSONPretty(v)
		if err != nil {
			return nil, fmt.Errorf("runner: %w", err)
		}
		inputContainer = &container.BytesContainer{Raw: call.InputRaw, Codec: call.Codec, JSONValue: v, HasJSONValue: true, Humanized: string(pretty)}
	} else if inputContainer, err = container.MakeInput(call.Codec, call.InputRaw); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	return &result.RunResult{
		Name:         call.Name,
		Size:         float64(len(call.GuestWasm)) / 1024.0,
		MemoryUsage:  memoryKB,
		Instructions: instructions,
		Logs:         logs,
		OverageBytes: handler.LogOverage(),
		Input:        inputContainer,
		Output:       outputContainer,
		ScaleFactor:  call.ScaleFactor,
		Success:      success,
	}, nil
}

// invoke calls fn, unwrapping the fuel-exhaustion panic and translating
// a clean WASI exit into spec.md §4.H step 7's exit-code mapping: a trap
// carrying exit code 0 is success; any other exit code becomes a
// "module exited with code: N" error; every other error (a genuine trap,
// or fuel exhaustion) propagates as-is. The guest signals clean exit by
// trapping with a special payload (spec.md §9's "exit-via-trap" note);
// *sys.ExitError is wazero's unwrapped form of that payload.
func invoke(ctx context.Context, fn api.Function) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(fuelExhausted); ok {
				err = errors.New("all fuel consumed by WebAssembly")
				return
			}
			panic(r)
		}
	}()

	_, callErr := fn.Call(ctx)
	if callErr == nil {
		return nil
	}

	var exitErr *sys.ExitError
	if errors.As(callErr, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return nil
		}
		return fmt.Errorf("module exited with code: %d", exitErr.ExitCode())
	}
	return callErr
}
