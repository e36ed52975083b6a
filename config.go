package burnstone

import (
	"strings"
)

// Algorithm selects a workload kernel and, via its suffix, the
// threading mode: a bare key runs one core at a time (sequential), a
// key ending in ".all" runs every logical processor simultaneously.
// Keys with ".wide" select the 16-lane variant, which needs AVX-512
// class hardware.
type Algorithm string

// Registered algorithm keys. The sequential/simultaneous pairing is a
// naming convention, not separate kernels.
const (
	AlgoFMA     Algorithm = "fma"
	AlgoFMAAll  Algorithm = "fma.all"
	AlgoFMAWide Algorithm = "fma.wide"
	AlgoFMAWAll Algorithm = "fma.wide.all"

	AlgoStream     Algorithm = "stream"
	AlgoStreamAll  Algorithm = "stream.all"
	AlgoStreamWide Algorithm = "stream.wide"
	AlgoStreamWAll Algorithm = "stream.wide.all"

	AlgoMixed     Algorithm = "mixed"
	AlgoMixedAll  Algorithm = "mixed.all"
	AlgoMixedWide Algorithm = "mixed.wide"
	AlgoMixedWAll Algorithm = "mixed.wide.all"

	AlgoShuffle     Algorithm = "shuffle"
	AlgoShuffleAll  Algorithm = "shuffle.all"
	AlgoShuffleWide Algorithm = "shuffle.wide"
	AlgoShuffleWAll Algorithm = "shuffle.wide.all"

	// Mask/predicate work only exists at the wide width.
	AlgoMaskWide Algorithm = "mask.wide"
	AlgoMaskWAll Algorithm = "mask.wide.all"

	AlgoPoly     Algorithm = "poly"
	AlgoPolyAll  Algorithm = "poly.all"
	AlgoPolyWide Algorithm = "poly.wide"
	AlgoPolyWAll Algorithm = "poly.wide.all"

	AlgoIntAdd     Algorithm = "intadd"
	AlgoIntAddAll  Algorithm = "intadd.all"
	AlgoIntAddWide Algorithm = "intadd.wide"
	AlgoIntAddWAll Algorithm = "intadd.wide.all"

	AlgoChase    Algorithm = "chase"
	AlgoChaseAll Algorithm = "chase.all"
)

// DefaultAlgorithm is the baseline compute-hot kernel. Unrecognized
// keys fall back to it rather than failing the run.
const DefaultAlgorithm = AlgoFMA

// Simultaneous reports whether the key names an all-cores-at-once run
func (a Algorithm) Simultaneous() bool {
	return strings.HasSuffix(string(a), ".all")
}

// family strips the threading-mode suffix, leaving the kernel key
func (a Algorithm) family() string {
	return strings.TrimSuffix(string(a), ".all")
}

// RunConfig is everything a run needs from the caller. Persistence of
// these values belongs to the settings layer; the engine only ever sees
// the plain value.
type RunConfig struct {
	Algorithm    Algorithm
	CycleSeconds int // seconds each core (or the whole set) is stressed
}

// Validate rejects configurations no run could execute
func (c RunConfig) Validate() error {
	if c.CycleSeconds <= 0 {
		return ErrInvalidRuntime
	}
	return nil
}
