package burnstone

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RunState is the orchestrator's state machine position. A run moves
// Idle -> Starting -> (Sequential | Simultaneous) and always settles
// back on Idle, whether it completed or was cancelled; the final
// ProgressEvent of the run says which.
type RunState int32

const (
	StateIdle RunState = iota
	StateStarting
	StateSequential
	StateSimultaneous
)

// String returns the state name
func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateSequential:
		return "Sequential"
	case StateSimultaneous:
		return "Simultaneous"
	default:
		return "Unknown"
	}
}

// Engine is the stress orchestrator. It owns the run state machine,
// the shared error counter and the event bus; workers are spawned per
// run and never outlive it. At most one run is active at a time;
// starting while a run is active is a no-op.
type Engine struct {
	log *logrus.Logger
	bus *EventBus

	logical int // logical processors the engine schedules over

	state      atomic.Int32
	errorCount atomic.Int64
	alive      atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an engine managing every logical processor of the
// host. Logging is off until SetLogger is called.
func NewEngine() *Engine {
	log := logrus.New()
	log.SetOutput(io.Discard)

	done := make(chan struct{})
	close(done) // no run active, Wait returns immediately

	return &Engine{
		log:     log,
		bus:     NewEventBus(),
		logical: LogicalProcessors(),
		done:    done,
	}
}

// SetLogger installs a logger for run lifecycle and error reporting
func (e *Engine) SetLogger(l *logrus.Logger) {
	if l != nil {
		e.log = l
	}
}

// Events returns the bus carrying ProgressEvents for all runs
func (e *Engine) Events() *EventBus {
	return e.bus
}

// Running reports whether a run is active
func (e *Engine) Running() bool {
	return RunState(e.state.Load()) != StateIdle
}

// State returns the current run state
func (e *Engine) State() RunState {
	return RunState(e.state.Load())
}

// ErrorCount returns the cumulative error count of the current run, or
// of the last run if none is active. It resets to zero when a new run
// starts and never decreases within a run; a non-zero count at run end
// is the fail signal.
func (e *Engine) ErrorCount() int64 {
	return e.errorCount.Load()
}

// WorkersAlive returns the number of worker threads currently running
func (e *Engine) WorkersAlive() int {
	return int(e.alive.Load())
}

// Wait blocks until the active run finishes. It returns immediately if
// no run is active.
func (e *Engine) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	<-done
}

// Cancel signals cancellation to the active run. Safe to call from any
// goroutine; a no-op when nothing is running.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// resolveKernel applies the algorithm lookup policy: unknown keys fall
// back to the baseline compute-hot kernel (logged, not an error), and a
// wide-vector kernel on hardware without the instruction set fails
// before any worker starts — silently falling back there would produce
// results that mean nothing.
func (e *Engine) resolveKernel(cfg RunConfig) (kernelSpec, error) {
	if err := cfg.Validate(); err != nil {
		return kernelSpec{}, err
	}
	spec, ok := lookupKernel(cfg.Algorithm)
	if !ok {
		e.log.WithField("algorithm", string(cfg.Algorithm)).
			Warn("unknown algorithm key, falling back to baseline compute-hot kernel")
		spec = kernelTable[string(DefaultAlgorithm)]
	}
	if spec.width == LaneWidth16 && !WideVectorsSupported() {
		return kernelSpec{}, NewCapabilityError("resolveKernel",
			fmt.Sprintf("algorithm %q requires AVX-512 class vectors the host CPU does not provide", cfg.Algorithm))
	}
	return spec, nil
}

// StartAll begins a run over every logical processor: one worker at a
// time for cfg.CycleSeconds each for sequential algorithms, or all
// workers at once for cfg.CycleSeconds total for ".all" algorithms.
// The call returns once the run is launched; observe it via Events,
// Wait or Running.
func (e *Engine) StartAll(cfg RunConfig) error {
	spec, err := e.resolveKernel(cfg)
	if err != nil {
		return err
	}
	indices := make([]int, e.logical)
	for i := range indices {
		indices[i] = i
	}
	return e.startRun(cfg, spec, indices, cfg.Algorithm.Simultaneous())
}

// StartCore begins a run restricted to the logical processors of one
// physical core, one hardware thread at a time (one iteration for a
// core without SMT, two with it).
func (e *Engine) StartCore(core CoreDescriptor, cfg RunConfig) error {
	spec, err := e.resolveKernel(cfg)
	if err != nil {
		return err
	}
	if err := core.Validate(e.logical); err != nil {
		return err
	}
	indices := make([]int, core.ThreadCount)
	for i := range indices {
		indices[i] = core.FirstLogical + i
	}
	// single-core runs always walk the core's threads sequentially
	return e.startRun(cfg, spec, indices, false)
}

func (e *Engine) startRun(cfg RunConfig, spec kernelSpec, indices []int, simultaneous bool) error {
	// The state CAS and the handle swap happen under one lock, so a
	// Cancel or Wait that observes the new state always gets this run's
	// cancel func and done channel, never the previous run's.
	e.mu.Lock()
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		e.mu.Unlock()
		return nil // a run is active; re-entrant starts are no-ops
	}
	e.errorCount.Store(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	cycle := time.Duration(cfg.CycleSeconds) * time.Second
	go e.run(ctx, cancel, done, spec, indices, simultaneous, cycle)
	return nil
}

// run is the per-run goroutine. All worker publishes happen before it
// returns, so the final event it emits is always the last of the run.
func (e *Engine) run(ctx context.Context, cancel context.CancelFunc, done chan struct{},
	spec kernelSpec, indices []int, simultaneous bool, cycle time.Duration) {

	defer cancel()
	total := len(indices)

	if simultaneous {
		e.state.Store(int32(StateSimultaneous))
		e.log.WithFields(logrus.Fields{
			"kernel":  spec.key,
			"workers": total,
			"cycle":   cycle,
		}).Info("starting simultaneous run")

		wctx, stop := context.WithTimeout(ctx, cycle)
		var g errgroup.Group
		for _, idx := range indices {
			idx := idx
			g.Go(func() error {
				e.runWorker(wctx, idx, total, spec)
				return nil
			})
		}
		_ = g.Wait()
		stop()
	} else {
		e.state.Store(int32(StateSequential))
		e.log.WithFields(logrus.Fields{
			"kernel": spec.key,
			"units":  total,
			"cycle":  cycle,
		}).Info("starting sequential run")

		for _, idx := range indices {
			if ctx.Err() != nil {
				break
			}
			e.bus.Publish(ProgressEvent{
				LogicalIndex: idx,
				TotalUnits:   total,
				Running:      true,
				Status:       fmt.Sprintf("testing logical processor %d of %d", idx, total),
				ErrorCount:   e.errorCount.Load(),
			})

			wctx, stop := context.WithTimeout(ctx, cycle)
			workerDone := make(chan struct{})
			go func(i int) {
				defer close(workerDone)
				e.runWorker(wctx, i, total, spec)
			}(idx)
			<-workerDone
			stop()
		}
	}

	status := "stress run completed"
	if ctx.Err() != nil {
		status = "stress run cancelled"
	}
	errs := e.errorCount.Load()
	e.log.WithFields(logrus.Fields{"errors": errs}).Info(status)

	e.bus.Publish(ProgressEvent{
		LogicalIndex: -1,
		TotalUnits:   total,
		Running:      false,
		Status:       status,
		ErrorCount:   errs,
	})
	e.state.Store(int32(StateIdle))
	close(done)
}
