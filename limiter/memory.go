// Package limiter enforces the run-wide linear-memory count cap and
// tracks the high-water mark reported in RunResult, per spec.md §4.G.
// Grounded on original_source/src/memory_limiter.rs's MemoryLimiter; see
// DESIGN.md for the mechanism this Go port substitutes for wasmtime's
// ResourceLimiter growth-refusal hook, which wazero does not expose.
package limiter

import "fmt"

// MaxMemories is the hard cap on linear memories instantiated for a
// single run: one for the guest, one optionally for a provider.
const MaxMemories = 2

// Memory is a per-run instance: reserve a slot for each memory the
// engine is about to instantiate, and observe every memory's size after
// instantiation and after each call that might have grown it.
type Memory struct {
	reserved int
	maxBytes uint64
}

// New returns a fresh, per-run Memory limiter.
func New() *Memory {
	return &Memory{}
}

// Reserve claims one of the run's memory slots, identified by owner for
// error messages ("guest", "provider"). It is the one place this cap is
// actually enforced — a third reservation fails outright (spec.md §8
// property 8), unlike Observe below, which never refuses a grow.
func (m *Memory) Reserve(owner string) error {
	if m.reserved >= MaxMemories {
		return fmt.Errorf("limiter: refusing to instantiate a %s memory, already at the cap of %d linear memories for this run", owner, MaxMemories)
	}
	m.reserved++
	return nil
}

// Observe records sizeBytes as a candidate high-water mark. It never
// refuses growth — per spec.md §4.G, memory growth is unlimited but
// observed; only the memory *count* (Reserve, above) is capped.
func (m *Memory) Observe(sizeBytes uint64) {
	if sizeBytes > m.maxBytes {
		m.maxBytes = sizeBytes
	}
}

// MaxBytes returns the maximum linear-memory size observed this run.
func (m *Memory) MaxBytes() uint64 {
	return m.maxBytes
}

// MaxKB returns the high-water mark in kB (float division, matching the
// original's size-in-kB rounding — see SPEC_FULL.md supplemented
// feature 4), for direct use in RunResult.MemoryUsage.
func (m *Memory) MaxKB() float64 {
	return float64(m.maxBytes) / 1024.0
}
