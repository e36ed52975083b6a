package burnstone

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"
)

// newTestEngine limits the engine to n logical processors so timing
// assertions stay independent of the host's core count.
func newTestEngine(n int) *Engine {
	if max := runtime.NumCPU(); n > max {
		n = max
	}
	e := NewEngine()
	e.logical = n
	return e
}

// trackMaxAlive samples the worker-aliveness counter until stop closes
func trackMaxAlive(e *Engine, stop <-chan struct{}) <-chan int {
	out := make(chan int, 1)
	go func() {
		max := 0
		for {
			select {
			case <-stop:
				out <- max
				return
			case <-time.After(2 * time.Millisecond):
				if n := e.WorkersAlive(); n > max {
					max = n
				}
			}
		}
	}()
	return out
}

func TestSequentialOneWorkerAtATime(t *testing.T) {
	e := newTestEngine(2)
	n := e.logical

	stop := make(chan struct{})
	maxAlive := trackMaxAlive(e, stop)

	start := time.Now()
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: 1}); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	elapsed := time.Since(start)
	close(stop)

	if got := <-maxAlive; got > 1 {
		t.Errorf("sequential mode had %d workers alive at once", got)
	}
	// Wall clock is about units x cycle, give or take scheduling.
	low := time.Duration(n)*time.Second - 200*time.Millisecond
	if elapsed < low || elapsed > time.Duration(n)*time.Second+4*time.Second {
		t.Errorf("sequential run of %d units took %v", n, elapsed)
	}
	if e.Running() {
		t.Error("engine still running after Wait")
	}
	if e.ErrorCount() != 0 {
		t.Errorf("healthy run ended with %d errors", e.ErrorCount())
	}
}

func TestSimultaneousWorkersRunConcurrently(t *testing.T) {
	e := newTestEngine(2)
	n := e.logical

	stop := make(chan struct{})
	maxAlive := trackMaxAlive(e, stop)

	start := time.Now()
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMAAll, CycleSeconds: 1}); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	elapsed := time.Since(start)
	close(stop)

	if got := <-maxAlive; got != n {
		t.Errorf("simultaneous mode peaked at %d workers, want %d", got, n)
	}
	// Total time is about one cycle regardless of worker count.
	if elapsed > 4*time.Second {
		t.Errorf("simultaneous run took %v", elapsed)
	}
}

func TestCancelStopsSequentialRun(t *testing.T) {
	e := newTestEngine(runtime.NumCPU())
	events, unsub := e.Events().Subscribe()
	defer unsub()

	// Long enough that only Cancel can end it promptly.
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: 30}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	e.Cancel()
	e.Cancel() // idempotent
	e.Wait()
	if d := time.Since(start); d > 2*time.Second {
		t.Errorf("cancellation took %v", d)
	}

	var final ProgressEvent
	deadline := time.After(2 * time.Second)
collect:
	for {
		select {
		case ev := <-events:
			if !ev.Running {
				final = ev
				break collect
			}
		case <-deadline:
			t.Fatal("no final event after cancellation")
		}
	}
	if !strings.Contains(final.Status, "cancelled") {
		t.Errorf("final event status %q", final.Status)
	}

	// The completed event is the last of the run: nothing may follow.
	select {
	case ev := <-events:
		t.Errorf("event after the final event: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestCancelWhenIdleIsNoOp(t *testing.T) {
	e := newTestEngine(1)
	e.Cancel() // nothing running; must not panic or block
	if e.Running() {
		t.Error("idle engine reports running")
	}
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	e := newTestEngine(1)
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: 2}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50 && !e.Running(); i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if err := e.StartAll(RunConfig{Algorithm: AlgoChase, CycleSeconds: 1}); err != nil {
		t.Errorf("re-entrant start returned error: %v", err)
	}
	e.Cancel()
	e.Wait()
}

func TestErrorCounterResetsAtRunStart(t *testing.T) {
	e := newTestEngine(1)
	e.errorCount.Store(7) // residue from a previous run
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: 1}); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	if e.ErrorCount() != 0 {
		t.Errorf("counter not reset: %d", e.ErrorCount())
	}
}

func TestErrorCountingPropagatesToEvents(t *testing.T) {
	// A kernel that reports three validation failures and then idles
	// until cancelled, standing in for genuinely corrupting hardware.
	const key = "flaky"
	kernelTable[key] = kernelSpec{key: key, title: "always-failing check", width: LaneWidth8,
		fn: func(ctx context.Context, s *scratch) {
			for i := 0; i < 3; i++ {
				s.report(NewValidationError(key, fmt.Sprintf("lane %d: expected 1, got 0", i)))
			}
			<-ctx.Done()
		}}
	defer delete(kernelTable, key)

	e := newTestEngine(1)
	events, unsub := e.Events().Subscribe()
	defer unsub()

	if err := e.StartAll(RunConfig{Algorithm: key, CycleSeconds: 1}); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	if n := e.ErrorCount(); n != 3 {
		t.Errorf("engine counted %d errors, want 3", n)
	}

	var last int64
	reported := 0
	deadline := time.After(2 * time.Second)
collect:
	for {
		select {
		case ev := <-events:
			if ev.ErrorCount < last {
				t.Errorf("error count went backwards: %d after %d", ev.ErrorCount, last)
			}
			last = ev.ErrorCount
			if ev.Status == "computation error detected" {
				reported++
				if ev.LastError == "" {
					t.Error("error event carries no error text")
				}
			}
			if !ev.Running {
				break collect
			}
		case <-deadline:
			t.Fatal("no final event after the run")
		}
	}
	if reported != 3 {
		t.Errorf("saw %d error events, want 3", reported)
	}
	if last != 3 {
		t.Errorf("final event carried error count %d, want 3", last)
	}
}

func TestCancelAfterRunningObservedStopsTheRun(t *testing.T) {
	// Once Running reports true, Cancel must target the run that made
	// it true, even when Cancel races the tail of the start path.
	e := newTestEngine(1)
	for i := 0; i < 5; i++ {
		startErr := make(chan error, 1)
		go func() {
			startErr <- e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: 5})
		}()
		for !e.Running() {
			time.Sleep(time.Millisecond)
		}
		start := time.Now()
		e.Cancel()
		e.Wait()
		if err := <-startErr; err != nil {
			t.Fatal(err)
		}
		if d := time.Since(start); d > 2*time.Second {
			t.Fatalf("iteration %d: cancellation took %v, the run's cancel func was lost", i, d)
		}
	}
}

func TestUnknownAlgorithmFallsBackToBaseline(t *testing.T) {
	e := newTestEngine(1)
	if err := e.StartAll(RunConfig{Algorithm: "frobnicate", CycleSeconds: 1}); err != nil {
		t.Fatalf("unknown key must fall back, not fail: %v", err)
	}
	e.Wait()
	if e.ErrorCount() != 0 {
		t.Errorf("fallback run ended with %d errors", e.ErrorCount())
	}
}

func TestWideAlgorithmCapabilityGate(t *testing.T) {
	if WideVectorsSupported() {
		t.Skip("host supports wide vectors")
	}
	e := newTestEngine(1)
	err := e.StartAll(RunConfig{Algorithm: AlgoFMAWide, CycleSeconds: 1})
	if err == nil {
		t.Fatal("wide algorithm must fail on hardware without the instruction set")
	}
	if !IsCapabilityError(err) {
		t.Errorf("expected a capability error, got %v", err)
	}
	if e.Running() {
		t.Error("run must not start on capability mismatch")
	}
}

func TestInvalidRunConfigRejected(t *testing.T) {
	e := newTestEngine(1)
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: 0}); err == nil {
		t.Error("zero cycle seconds must be rejected")
	}
	if err := e.StartAll(RunConfig{Algorithm: AlgoFMA, CycleSeconds: -3}); err == nil {
		t.Error("negative cycle seconds must be rejected")
	}
}

func TestStartCoreSweepsHardwareThreads(t *testing.T) {
	threads := 2
	if runtime.NumCPU() < 2 {
		threads = 1
	}
	e := newTestEngine(runtime.NumCPU())
	events, unsub := e.Events().Subscribe()
	defer unsub()

	core := CoreDescriptor{CoreIndex: 0, FirstLogical: 0, ThreadCount: threads}
	start := time.Now()
	if err := e.StartCore(core, RunConfig{Algorithm: AlgoFMA, CycleSeconds: 1}); err != nil {
		t.Fatal(err)
	}
	e.Wait()
	elapsed := time.Since(start)

	// One cycle per hardware thread of the core.
	if low := time.Duration(threads)*time.Second - 200*time.Millisecond; elapsed < low {
		t.Errorf("core sweep of %d threads took only %v", threads, elapsed)
	}

	tested := 0
	deadline := time.After(2 * time.Second)
collect:
	for {
		select {
		case ev := <-events:
			if strings.HasPrefix(ev.Status, "testing logical processor") {
				tested++
			}
			if !ev.Running {
				break collect
			}
		case <-deadline:
			break collect
		}
	}
	if tested != threads {
		t.Errorf("saw %d per-thread progress events, want %d", tested, threads)
	}
}

func TestStartCoreRejectsBadDescriptor(t *testing.T) {
	e := newTestEngine(2)
	bad := []CoreDescriptor{
		{CoreIndex: 0, FirstLogical: 0, ThreadCount: 3},
		{CoreIndex: 0, FirstLogical: -1, ThreadCount: 1},
		{CoreIndex: 0, FirstLogical: e.logical, ThreadCount: 1},
	}
	for _, core := range bad {
		if err := e.StartCore(core, RunConfig{Algorithm: AlgoFMA, CycleSeconds: 1}); err == nil {
			t.Errorf("descriptor %+v must be rejected", core)
		}
	}
}
