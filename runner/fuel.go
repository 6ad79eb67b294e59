package runner

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"

	"github.com/wasmharness/function-runner/limiter"
)

// StartingFuel is the instruction budget every invocation starts with,
// spec.md §4.H step 6's "STARTING_FUEL = uint64 max" — named here per
// SPEC_FULL.md's supplemented feature 2 so callers/tests can reason
// about instruction-budget saturation (spec.md §8 property 5) without a
// magic number.
const StartingFuel uint64 = math.MaxUint64

// fuelExhausted is panicked from a fuelMeter.Before call once the
// remaining budget reaches zero. It is recovered by the runner's
// invocation wrapper and turned into an ordinary trap-shaped error, so
// it folds into the same exit-translation path as any other guest trap
// (spec.md §7 kind 6).
type fuelExhausted struct{}

// fuelMeter approximates wasmtime-style per-instruction fuel accounting
// using wazero's experimental.FunctionListener hook: every function-call
// boundary decrements the remaining budget and traps once it's gone.
// This is the closest equivalent wazero's public API offers — see
// DESIGN.md's runner entry for why a true per-instruction counter isn't
// available. The same listener's After hook samples the module's memory
// size on every call boundary, feeding the limiter's high-water mark
// without a wasmtime-style ResourceLimiter.grow callback.
type fuelMeter struct {
	remaining uint64
	max       uint64
	mem       *limiter.Memory
}

func newFuelMeter(mem *limiter.Memory) *fuelMeter {
	return &fuelMeter{mem: mem}
}

// Reset raises the remaining budget to max, per spec.md §4.F/§4.H's
// "raise fuel to maximum" steps during IOHandler initialization and
// memory-I/O finalization.
func (f *fuelMeter) Reset(max uint64) {
	f.remaining = max
	f.max = max
}

// Consumed returns how much of the current budget has been spent,
// saturating at zero rather than underflowing (spec.md §8 property 5:
// "instructions ≥ 0").
func (f *fuelMeter) Consumed() uint64 {
	if f.remaining > f.max {
		return 0
	}
	return f.max - f.remaining
}

// NewFunctionListener implements experimental.FunctionListenerFactory:
// every exported and imported function call shares this one meter.
func (f *fuelMeter) NewFunctionListener(_ api.FunctionDefinition) experimental.FunctionListener {
	return f
}

// Before implements experimental.FunctionListener.
func (f *fuelMeter) Before(_ context.Context, mod api.Module, _ api.FunctionDefinition, _ []uint64, _ experimental.StackIterator) {
	if f.remaining == 0 {
		panic(fuelExhausted{})
	}
	f.remaining--
	if mem := mod.Memory(); mem != nil && f.mem != nil {
		f.mem.Observe(uint64(mem.Size()))
	}
}

// Abort implements experimental.FunctionListener. A call that ends in a
// trap needs no bookkeeping beyond what Before already did.
func (f *fuelMeter) Abort(_ context.Context, _ api.Module, _ api.FunctionDefinition, _ error) {}

// After implements experimental.FunctionListener. Memory is sampled here
// too, since a call can grow memory between its own Before and the next
// function's Before.
func (f *fuelMeter) After(_ context.Context, mod api.Module, _ api.FunctionDefinition, _ []uint64) {
	if mem := mod.Memory(); mem != nil && f.mem != nil {
		f.mem.Observe(uint64(mem.Size()))
	}
}
