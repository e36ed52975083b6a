package burnstone

import (
	"context"
	"math/rand"
	"runtime"
	"sync"
	"time"
)

var preheatOnce sync.Once

// Warm-up parameters: a small scratch block and a short spin per
// kernel, enough to fault in code paths and touch the allocator before
// the first timed cycle.
const (
	warmupBytes = 1 << 20
	warmupSpin  = 20 * time.Millisecond
)

// Preheat runs every registered kernel once in a background goroutine,
// off the critical path, so first-use costs don't land inside the first
// measured stress cycle. Fire and forget: correctness never depends on
// it finishing, and repeated calls do nothing.
func Preheat() {
	preheatOnce.Do(func() {
		go preheatAll()
	})
}

func preheatAll() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	_ = lowerThreadPriority() // stay out of the way of real work

	buf, err := NewAlignedBuffer(warmupBytes)
	if err != nil {
		return
	}
	defer buf.Release()

	s := &scratch{
		buf:    buf,
		rng:    rand.New(rand.NewSource(1)),
		report: func(error) {},
	}
	for _, spec := range kernelTable {
		if spec.width == LaneWidth16 && !WideVectorsSupported() {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), warmupSpin)
		spec.fn(ctx, s)
		cancel()
	}
}
