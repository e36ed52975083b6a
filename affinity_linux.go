//go:build linux

package burnstone

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// prevAffinity holds the thread's CPU set from before a bind.
type prevAffinity struct {
	set   unix.CPUSet
	valid bool
}

// bindThread pins the calling OS thread to one logical processor.
// unix.CPUSet is 1024 bits wide, so indices past 64 need no group
// arithmetic here; the group split is a Windows scheduling concept.
func bindThread(logical int) (prevAffinity, error) {
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return prevAffinity{}, NewAffinityError("bindThread",
			fmt.Sprintf("reading current affinity before pinning to logical processor %d", logical), err)
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(logical)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return prevAffinity{}, NewAffinityError("bindThread",
			fmt.Sprintf("pinning to logical processor %d", logical), err)
	}

	return prevAffinity{set: prev, valid: true}, nil
}

// restoreThread reinstates the affinity captured by bindThread
func restoreThread(prev prevAffinity) error {
	if !prev.valid {
		return nil
	}
	if err := unix.SchedSetaffinity(0, &prev.set); err != nil {
		return NewAffinityError("restoreThread", "restoring previous affinity", err)
	}
	return nil
}

// lowerThreadPriority renices the calling thread only. pid 0 with
// PRIO_PROCESS would renice the whole process, so the tid is explicit.
func lowerThreadPriority() error {
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), workerNice); err != nil {
		return NewAffinityError("lowerThreadPriority", "setting worker niceness", err)
	}
	return nil
}
