// Package iohandler implements the two interchangeable guest↔host I/O
// strategies described in spec.md §4.F: streamed-stdio (the guest's
// stdin/stdout/stderr, under a deterministic WASI context) and
// memory-I/O (a guest-exported initialize/finalize ABI over shared
// linear memory). Grounded on original_source/src/io.rs's
// IOHandler/IOStrategy enum; see DESIGN.md.
package iohandler

import (
	"bytes"

	"github.com/tetratelabs/wazero"
)

// strategy tags which of the two I/O disciplines a Handler runs.
type strategy int

const (
	strategyStdio strategy = iota
	strategyMemory
)

// Handler is a tagged variant, not an interface hierarchy (spec.md §9's
// "dynamic dispatch" note): it carries exactly the state its active
// strategy needs and nothing from the other one.
type Handler struct {
	kind strategy

	// strategyStdio fields.
	stdin  *bytes.Reader
	stdout *bytes.Buffer
	stderr *boundedLog

	// strategyMemory fields.
	mem *memoryState
}

// NewStdio constructs a streamed-stdio Handler, seeding stdin from the
// input container's raw bytes.
func NewStdio(inputRaw []byte) *Handler {
	return &Handler{
		kind:   strategyStdio,
		stdin:  bytes.NewReader(inputRaw),
		stdout: &bytes.Buffer{},
		stderr: newBoundedLog(),
	}
}

// NewMemory constructs a memory-I/O Handler. The input bytes are written
// into guest memory later, during Initialize, once the guest instance
// (and therefore its memory) exists.
func NewMemory() *Handler {
	return &Handler{kind: strategyMemory, mem: &memoryState{log: newBoundedLog()}}
}

// IsMemory reports whether this Handler uses the memory-I/O strategy.
func (h *Handler) IsMemory() bool { return h.kind == strategyMemory }

// ModuleConfig returns base augmented with this Handler's stdio streams.
// It is a no-op for the memory-I/O strategy, which exchanges no data
// over stdin/stdout/stderr at all.
func (h *Handler) ModuleConfig(base wazero.ModuleConfig) wazero.ModuleConfig {
	if h.kind != strategyStdio {
		return base
	}
	return base.
		WithStdin(h.stdin).
		WithStdout(h.stdout).
		WithStderr(h.stderr)
}

// Output returns the accumulated output bytes for the streamed-stdio
// strategy. Only valid after the guest's main export has returned.
func (h *Handler) Output() []byte {
	if h.kind != strategyStdio {
		return nil
	}
	return h.stdout.Bytes()
}

// Logs returns the accumulated (possibly truncated) log bytes for the
// streamed-stdio strategy.
func (h *Handler) Logs() []byte {
	if h.kind != strategyStdio {
		return nil
	}
	return h.stderr.Bytes()
}

// LogOverage reports how many log bytes the active strategy (stderr for
// streamed-stdio, finalize's log segments for memory-I/O) dropped past
// the soft cap, for the render-time truncation warning.
func (h *Handler) LogOverage() int {
	if h.kind != strategyStdio {
		return h.mem.log.Overage()
	}
	return h.stderr.Overage()
}
