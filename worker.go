package burnstone

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"
)

// runWorker is the body of one WorkerTask: an OS thread bound to one
// logical processor, looping a kernel until its context is cancelled.
// Every failure mode is converted to ProgressEvents here; nothing
// escapes to crash the run, since a dead run would hide exactly the
// instability being hunted.
func (e *Engine) runWorker(ctx context.Context, logical, total int, spec kernelSpec) {
	e.alive.Add(1)
	defer e.alive.Add(-1)

	// A hardware-level fault inside a kernel surfaces as a panic. It is
	// counted like a validation error, but it terminates this worker's
	// loop: retrying a faulted core proves nothing.
	defer func() {
		if r := recover(); r != nil {
			err := NewFaultError(spec.key,
				fmt.Sprintf("worker on logical processor %d faulted", logical),
				fmt.Errorf("%v", r))
			n := e.errorCount.Add(1)
			e.log.WithField("logical", logical).WithError(err).Error("worker fault")
			e.bus.Publish(ProgressEvent{
				LogicalIndex: logical,
				TotalUnits:   total,
				Running:      true,
				Status:       "hardware fault",
				ErrorCount:   n,
				LastError:    err.Error(),
			})
		}
	}()

	// The kernel must run on one OS thread for affinity to mean anything.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	prev, err := bindThread(logical)
	if err != nil {
		// Stressing an unpinned (wrong) core would invalidate the whole
		// result, so this worker is done.
		e.log.WithField("logical", logical).WithError(err).Error("affinity binding failed")
		e.bus.Publish(ProgressEvent{
			LogicalIndex: logical,
			TotalUnits:   total,
			Running:      true,
			Status:       "affinity binding failed",
			ErrorCount:   e.errorCount.Load(),
			LastError:    err.Error(),
		})
		return
	}
	defer func() {
		if rerr := restoreThread(prev); rerr != nil {
			e.log.WithField("logical", logical).WithError(rerr).Warn("could not restore affinity")
		}
	}()

	// Keep the orchestrator responsive under full saturation.
	if perr := lowerThreadPriority(); perr != nil {
		e.log.WithField("logical", logical).WithError(perr).Debug("could not lower worker priority")
	}

	buf, err := NewAlignedBuffer(scratchBytes(spec.width))
	if err != nil {
		e.log.WithField("logical", logical).WithError(err).Error("scratch allocation failed")
		e.bus.Publish(ProgressEvent{
			LogicalIndex: logical,
			TotalUnits:   total,
			Running:      true,
			Status:       "scratch allocation failed",
			ErrorCount:   e.errorCount.Load(),
			LastError:    err.Error(),
		})
		return
	}
	defer buf.Release()

	s := &scratch{
		buf: buf,
		rng: rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(logical)<<32)),
		report: func(verr error) {
			n := e.errorCount.Add(1)
			e.log.WithField("logical", logical).WithError(verr).Warn("computation error detected")
			e.bus.Publish(ProgressEvent{
				LogicalIndex: logical,
				TotalUnits:   total,
				Running:      true,
				Status:       "computation error detected",
				ErrorCount:   n,
				LastError:    verr.Error(),
			})
		},
	}

	e.bus.Publish(ProgressEvent{
		LogicalIndex: logical,
		TotalUnits:   total,
		Running:      true,
		Status:       fmt.Sprintf("%s running on logical processor %d", spec.title, logical),
		ErrorCount:   e.errorCount.Load(),
	})

	spec.fn(ctx, s)

	e.bus.Publish(ProgressEvent{
		LogicalIndex: logical,
		TotalUnits:   total,
		Running:      true,
		Status:       fmt.Sprintf("worker on logical processor %d stopped", logical),
		ErrorCount:   e.errorCount.Load(),
	})
}
