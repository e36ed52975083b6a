package burnstone

import (
	"fmt"
)

// Result validation. Every kernel folds its accumulator state through
// one of these checks at each validation interval, which doubles as the
// anchor keeping the compute alive: the compiler cannot eliminate work
// whose result is inspected here.
//
// Float kernels use the self-equality test: IEEE comparison orders every
// real value against itself, and only NaN fails x == x. The kernel
// constants are chosen so a healthy ALU can never produce NaN, so any
// failure is corruption. Integer kernels compare against the exact
// expected lane value; a single mismatched bit is conclusive.

// checkLanesFinite verifies that every accumulator sum equals itself.
// The returned error names the first bad lane and its bit pattern.
func checkLanesFinite(op string, sums []float32) error {
	for i, s := range sums {
		if s != s {
			return NewValidationError(op,
				fmt.Sprintf("lane %d: accumulator is NaN (corrupted computation)", i))
		}
	}
	return nil
}

// checkLanesExact32 verifies that every 32-bit integer lane holds the
// expected value after a fixed-iteration block.
func checkLanesExact32(op string, got []int32, want int32) error {
	for i, g := range got {
		if g != want {
			return NewValidationError(op,
				fmt.Sprintf("lane %d: expected %d, got %d", i, want, g))
		}
	}
	return nil
}

// checkLanesExact64 is checkLanesExact32 for 64-bit lanes
func checkLanesExact64(op string, got []int64, want int64) error {
	for i, g := range got {
		if g != want {
			return NewValidationError(op,
				fmt.Sprintf("lane %d: expected %d, got %d", i, want, g))
		}
	}
	return nil
}
