package burnstone

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

// testScratchBytes keeps kernel tests fast; kernels size their loops
// from the views they are given.
const testScratchBytes = 1 << 20

func TestBuildChaseFullCycle(t *testing.T) {
	for _, n := range []int{2, 16, 1000, 4096} {
		idx := make([]uint32, n)
		buildChase(idx, rand.New(rand.NewSource(7)))

		// Following the chain n steps from any start must visit every
		// slot exactly once and land back at the start.
		for _, start := range []uint32{0, uint32(n / 2), uint32(n - 1)} {
			visited := make(map[uint32]bool, n)
			pos := start
			for i := 0; i < n; i++ {
				if visited[pos] {
					t.Fatalf("n=%d start=%d: revisited %d after %d steps", n, start, pos, i)
				}
				visited[pos] = true
				pos = idx[pos]
			}
			if pos != start {
				t.Errorf("n=%d start=%d: chain is not a single cycle (ended at %d)", n, start, pos)
			}
			if len(visited) != n {
				t.Errorf("n=%d start=%d: visited %d of %d slots", n, start, len(visited), n)
			}
		}
	}
}

func TestIntAddBlockExact(t *testing.T) {
	var lanes [LaneWidth8]int32
	runIntAddBlock8(&lanes)
	if err := checkLanesExact32("intadd", lanes[:], intAddBlock+1); err != nil {
		t.Errorf("8-lane block: %v", err)
	}

	var wide [wideIntLanes]int64
	runIntAddBlockWide(&wide)
	if err := checkLanesExact64("intadd.wide", wide[:], intAddBlock+1); err != nil {
		t.Errorf("wide block: %v", err)
	}
}

func TestIntAddBlockFaultInjection(t *testing.T) {
	var lanes [LaneWidth8]int32
	runIntAddBlock8(&lanes)
	lanes[5]-- // simulate a dropped increment
	if err := checkLanesExact32("intadd", lanes[:], intAddBlock+1); err == nil {
		t.Error("mutated lane must be detected as a computational error")
	}
}

// TestKernelsCancelWithinBound checks cancellation responsiveness for
// every registered kernel: after the context expires, the kernel must
// return well inside the two-second bound.
func TestKernelsCancelWithinBound(t *testing.T) {
	for key, spec := range kernelTable {
		spec := spec
		t.Run(key, func(t *testing.T) {
			s, _ := newTestScratch(t, testScratchBytes)
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				spec.fn(ctx, s)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("kernel did not stop within 2s of cancellation")
			}
		})
	}
}

// TestKernelsReturnOnUndersizedScratch hands every kernel a buffer
// smaller than one processing block. Kernels that size their work from
// the buffer must return instead of spinning with nothing to poll.
func TestKernelsReturnOnUndersizedScratch(t *testing.T) {
	const tinyScratchBytes = 16
	for key, spec := range kernelTable {
		spec := spec
		t.Run(key, func(t *testing.T) {
			s, rec := newTestScratch(t, tinyScratchBytes)
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				spec.fn(ctx, s)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("kernel spun on a scratch buffer smaller than its block")
			}
			if n := rec.count(); n != 0 {
				t.Errorf("undersized scratch reported %d errors", n)
			}
		})
	}
}

// TestFloatKernelsSelfCheckClean is the regression guard for the
// self-equality validator: on working hardware, no float kernel may
// ever report an error.
func TestFloatKernelsSelfCheckClean(t *testing.T) {
	keys := []string{"fma", "fma.wide", "stream", "stream.wide", "mixed", "mixed.wide",
		"shuffle", "shuffle.wide", "mask.wide", "poly", "poly.wide"}
	for _, key := range keys {
		spec := kernelTable[key]
		t.Run(key, func(t *testing.T) {
			s, rec := newTestScratch(t, testScratchBytes)
			ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
			defer cancel()
			spec.fn(ctx, s)
			if n := rec.count(); n != 0 {
				t.Errorf("healthy run reported %d errors: %v", n, rec.errs[0])
			}
		})
	}
}

func TestIntAddKernelClean(t *testing.T) {
	for _, key := range []string{"intadd", "intadd.wide"} {
		spec := kernelTable[key]
		s, rec := newTestScratch(t, testScratchBytes)
		ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
		spec.fn(ctx, s)
		cancel()
		if n := rec.count(); n != 0 {
			t.Errorf("%s: healthy run reported %d errors", key, n)
		}
	}
}

func TestAlgorithmsCatalog(t *testing.T) {
	algos := Algorithms()
	if len(algos) != 2*len(kernelTable) {
		t.Fatalf("catalog has %d keys, want %d", len(algos), 2*len(kernelTable))
	}
	seen := make(map[Algorithm]bool)
	for _, a := range algos {
		if seen[a] {
			t.Errorf("duplicate key %q", a)
		}
		seen[a] = true
		if _, ok := lookupKernel(a); !ok {
			t.Errorf("catalog key %q does not resolve", a)
		}
	}
	if !seen[DefaultAlgorithm] {
		t.Error("baseline algorithm missing from catalog")
	}
}

func TestAlgorithmSuffixConvention(t *testing.T) {
	tests := []struct {
		algo Algorithm
		want bool
	}{
		{AlgoFMA, false},
		{AlgoFMAAll, true},
		{AlgoMaskWide, false},
		{AlgoMaskWAll, true},
		{AlgoChaseAll, true},
	}
	for _, tt := range tests {
		if got := tt.algo.Simultaneous(); got != tt.want {
			t.Errorf("%q.Simultaneous() = %v, want %v", tt.algo, got, tt.want)
		}
	}
}
