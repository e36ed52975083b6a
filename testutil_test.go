package burnstone

import (
	"math/rand"
	"sync"
	"testing"
)

// NewBufferOrFail allocates an aligned buffer and fails the test if unsuccessful
func NewBufferOrFail(t testing.TB, size int) *AlignedBuffer {
	t.Helper()
	buf, err := NewAlignedBuffer(size)
	if err != nil {
		t.Fatalf("Failed to allocate %d bytes: %v", size, err)
	}
	return buf
}

// errRecorder collects kernel-reported errors for inspection
type errRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errRecorder) report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *errRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

// newTestScratch builds kernel scratch over a small buffer with a
// deterministic rng and an error recorder
func newTestScratch(t testing.TB, size int) (*scratch, *errRecorder) {
	t.Helper()
	rec := &errRecorder{}
	buf := NewBufferOrFail(t, size)
	t.Cleanup(func() { _ = buf.Release() })
	return &scratch{
		buf:    buf,
		rng:    rand.New(rand.NewSource(42)),
		report: rec.report,
	}, rec
}
