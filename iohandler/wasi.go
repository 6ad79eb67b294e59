package iohandler

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// wasiErrno values used by the two stubs below; success and EFAULT are
// the only codes this harness ever needs to return from them.
const (
	wasiErrnoSuccess = 0
	wasiErrnoFault   = 21
)

// deterministicRandomByte is the fixed byte random_get fills its buffer
// with. Per spec.md §5's determinism contract the guest sees "fixed
// seeds for random" — a constant fill is the simplest fixed seed that
// keeps every byte of a run's random_get output reproducible.
const deterministicRandomByte byte = 0

// InstantiateDeterministicWASI links the WASI preview1 system interface
// with clock_time_get and random_get replaced by deterministic stubs, per
// spec.md §5: "zeroed clocks and timers, fixed seeds for random". It
// builds the full WASI function set once via the package's function
// exporter, then overwrites the two nondeterministic exports before the
// single Instantiate call — DESIGN.md's "deterministic_wasi_ctx
// equivalent" note.
func InstantiateDeterministicWASI(ctx context.Context, rt wazero.Runtime) (api.Closer, error) {
	builder := rt.NewHostModuleBuilder(wasi_snapshot_preview1.ModuleName)
	wasi_snapshot_preview1.NewFunctionExporter().ExportFunctions(builder)

	builder.NewFunctionBuilder().
		WithFunc(deterministicClockTimeGet).
		Export("clock_time_get")
	builder.NewFunctionBuilder().
		WithFunc(deterministicRandomGet).
		Export("random_get")

	closer, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, fmt.Errorf("iohandler: instantiate deterministic wasi: %w", err)
	}
	return closer, nil
}

// deterministicClockTimeGet always reports time zero, regardless of
// clockID or precision — no wall clock is exposed to the guest.
func deterministicClockTimeGet(_ context.Context, mod api.Module, _ uint32, _ uint64, resultTimestamp uint32) uint32 {
	if !mod.Memory().WriteUint64Le(resultTimestamp, 0) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

// deterministicRandomGet fills the guest's buffer with a fixed byte
// instead of sourcing entropy, so two runs of the same guest against the
// same input produce byte-identical output.
func deterministicRandomGet(_ context.Context, mod api.Module, bufPtr, bufLen uint32) uint32 {
	buf := make([]byte, bufLen)
	for i := range buf {
		buf[i] = deterministicRandomByte
	}
	if !mod.Memory().Write(bufPtr, buf) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}
