package burnstone

import (
	"context"
	"math/rand"
	"sort"
	"sync/atomic"
	"time"
)

// A kernel is a pure compute loop: it takes its scratch state and a
// cancellation context, runs until cancelled, and does no I/O. Numeric
// corruption is handed to scratch.report; the loop keeps going so a
// faulting core keeps producing signal.
//
// Kernels poll the context at a bounded interval (validateInterval
// iterations, or once per pointer-chase burst), never only per outer
// loop, so Cancel is observed in well under a second.
type kernelFunc func(ctx context.Context, s *scratch)

// kernelSpec describes one registered kernel family.
type kernelSpec struct {
	key   string // family key, without the ".all" threading suffix
	title string
	width int // lane width; LaneWidth16 requires wide-vector hardware
	fn    kernelFunc
}

// scratch is the per-worker state a kernel operates on. The buffer is
// exclusively owned by the worker thread; nothing here is shared.
type scratch struct {
	buf    *AlignedBuffer
	rng    *rand.Rand
	report func(error)
}

// kernelTable maps family keys to kernels. The ".all" variants reuse
// the same entry; the suffix only selects the threading mode.
var kernelTable = map[string]kernelSpec{
	"fma":          {key: "fma", title: "compute-hot FMA, 8 lanes", width: LaneWidth8, fn: fmaKernel8},
	"fma.wide":     {key: "fma.wide", title: "compute-hot FMA, 16 lanes", width: LaneWidth16, fn: fmaKernel16},
	"stream":       {key: "stream", title: "memory+compute streaming, 8 lanes", width: LaneWidth8, fn: streamKernel8},
	"stream.wide":  {key: "stream.wide", title: "memory+compute streaming, 16 lanes", width: LaneWidth16, fn: streamKernel16},
	"mixed":        {key: "mixed", title: "mixed integer/float, 8 lanes", width: LaneWidth8, fn: mixedKernel8},
	"mixed.wide":   {key: "mixed.wide", title: "mixed integer/float, 16 lanes", width: LaneWidth16, fn: mixedKernel16},
	"shuffle":      {key: "shuffle", title: "shuffle/permute, 8 lanes", width: LaneWidth8, fn: shuffleKernel8},
	"shuffle.wide": {key: "shuffle.wide", title: "shuffle/permute, 16 lanes", width: LaneWidth16, fn: shuffleKernel16},
	"mask.wide":    {key: "mask.wide", title: "mask/predicate blend, 16 lanes", width: LaneWidth16, fn: maskKernel16},
	"poly":         {key: "poly", title: "polynomial transcendental, 8 lanes", width: LaneWidth8, fn: polyKernel8},
	"poly.wide":    {key: "poly.wide", title: "polynomial transcendental, 16 lanes", width: LaneWidth16, fn: polyKernel16},
	"intadd":       {key: "intadd", title: "fixed-iteration integer add, 8 lanes", width: LaneWidth8, fn: intAddKernel8},
	"intadd.wide":  {key: "intadd.wide", title: "fixed-iteration integer add, 64-bit lanes", width: LaneWidth16, fn: intAddKernel16},
	"chase":        {key: "chase", title: "memory-latency pointer chase", width: LaneWidth8, fn: chaseKernel},
}

// lookupKernel resolves an algorithm key to its kernel.
func lookupKernel(a Algorithm) (kernelSpec, bool) {
	spec, ok := kernelTable[a.family()]
	return spec, ok
}

// Algorithms returns every registered algorithm key, sequential and
// simultaneous variants included, in sorted order.
func Algorithms() []Algorithm {
	keys := make([]Algorithm, 0, 2*len(kernelTable))
	for k := range kernelTable {
		keys = append(keys, Algorithm(k), Algorithm(k+".all"))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// cancelled is the kernels' non-blocking cancellation poll
func cancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sleepCtx sleeps for d or until the context is cancelled
func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// sink anchors accumulator values that have no numeric invariant of
// their own. A store the compiler must assume is observed keeps the
// work from being eliminated.
var sink uint64

func consume(v uint64) {
	atomic.StoreUint64(&sink, v)
}

// xorshift64 is the cheap bit mixer applied to chased values
func xorshift64(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}

// buildChase fills idx with a randomized cyclic permutation: idx[i]
// holds the next index to visit. A uniform shuffle fixes the visit
// order, then the links close it into a single cycle, so a walk of
// len(idx) steps touches every slot exactly once. The randomized order
// defeats both stride and stream prefetchers.
func buildChase(idx []uint32, rng *rand.Rand) {
	n := len(idx)
	if n == 0 {
		return
	}
	order := make([]uint32, n)
	for i := range order {
		order[i] = uint32(i)
	}
	rng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	for i := 0; i < n-1; i++ {
		idx[order[i]] = order[i+1]
	}
	idx[order[n-1]] = order[0]
}

// chaseRest caps the duty cycle between bursts. This mode probes
// stability under latency pressure, not sustained power draw.
const chaseRest = 25 * time.Millisecond

// chaseKernel stresses memory latency: every load's address comes from
// the previous load's value, so the core sits in back-to-back cache
// misses with no prefetch help. The visited values feed a xorshift
// accumulator that is published after each burst to keep the walk live.
func chaseKernel(ctx context.Context, s *scratch) {
	idx := s.buf.Uint32()
	if len(idx) == 0 {
		return
	}
	buildChase(idx, s.rng)

	pos := uint32(0)
	acc := uint64(0x9E3779B97F4A7C15)
	for {
		for i := 0; i < chaseBurst; i++ {
			pos = idx[pos]
			acc = xorshift64(acc ^ uint64(pos))
		}
		consume(acc)
		if cancelled(ctx) {
			return
		}
		sleepCtx(ctx, chaseRest)
	}
}
