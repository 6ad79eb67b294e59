package result

import "fmt"

// HumanizeBytes renders a byte count with a 2-decimal mantissa and the
// appropriate unit (bytes/KB/MB/GB), per spec.md §4.I's humanization
// rules. bytes below 1024 are rendered as a whole number with a "B"
// suffix, matching the original's "B" suffix threshold.
func HumanizeBytes(bytes float64) string {
	const unit = 1024.0
	switch {
	case bytes < unit:
		return fmt.Sprintf("%.0f B", bytes)
	case bytes < unit*unit:
		return fmt.Sprintf("%.2f KB", bytes/unit)
	case bytes < unit*unit*unit:
		return fmt.Sprintf("%.2f MB", bytes/(unit*unit))
	default:
		return fmt.Sprintf("%.2f GB", bytes/(unit*unit*unit))
	}
}

// HumanizeInstructions renders an instruction (fuel) count with a
// single-decimal mantissa and the appropriate unit (raw/K/M/B), per
// spec.md §4.I.
func HumanizeInstructions(n uint64) string {
	const (
		k = 1_000
		m = 1_000_000
		b = 1_000_000_000
	)
	switch {
	case n < k:
		return fmt.Sprintf("%d", n)
	case n < m:
		return fmt.Sprintf("%.1fK", float64(n)/k)
	case n < b:
		return fmt.Sprintf("%.1fM", float64(n)/m)
	default:
		return fmt.Sprintf("%.1fB", float64(n)/b)
	}
}
