//go:build windows

package burnstone

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procSetThreadGroupAffinity = modkernel32.NewProc("SetThreadGroupAffinity")
	procSetThreadPriority      = modkernel32.NewProc("SetThreadPriority")
)

// threadPriorityBelowNormal is THREAD_PRIORITY_BELOW_NORMAL.
const threadPriorityBelowNormal = ^uintptr(0) // -1

// groupAffinity mirrors the Win32 GROUP_AFFINITY structure.
type groupAffinity struct {
	Mask     uintptr
	Group    uint16
	Reserved [3]uint16
}

// prevAffinity holds the GROUP_AFFINITY from before a bind.
type prevAffinity struct {
	ga    groupAffinity
	valid bool
}

// bindThread pins the calling OS thread to one logical processor.
// Windows addresses processors past 64 through processor groups, so the
// logical index is split into a group number and an in-group bit.
func bindThread(logical int) (prevAffinity, error) {
	group, index := GroupOf(logical)
	want := groupAffinity{
		Mask:  uintptr(1) << uint(index),
		Group: uint16(group),
	}
	var prev groupAffinity
	r, _, err := procSetThreadGroupAffinity.Call(
		uintptr(windows.CurrentThread()),
		uintptr(unsafe.Pointer(&want)),
		uintptr(unsafe.Pointer(&prev)),
	)
	if r == 0 {
		return prevAffinity{}, NewAffinityError("bindThread",
			fmt.Sprintf("pinning to group %d index %d (logical processor %d)", group, index, logical), err)
	}
	return prevAffinity{ga: prev, valid: true}, nil
}

// restoreThread reinstates the affinity captured by bindThread
func restoreThread(prev prevAffinity) error {
	if !prev.valid {
		return nil
	}
	r, _, err := procSetThreadGroupAffinity.Call(
		uintptr(windows.CurrentThread()),
		uintptr(unsafe.Pointer(&prev.ga)),
		0,
	)
	if r == 0 {
		return NewAffinityError("restoreThread", "restoring previous group affinity", err)
	}
	return nil
}

// lowerThreadPriority drops the calling thread below normal priority
func lowerThreadPriority() error {
	r, _, err := procSetThreadPriority.Call(
		uintptr(windows.CurrentThread()),
		threadPriorityBelowNormal,
	)
	if r == 0 {
		return NewAffinityError("lowerThreadPriority", "setting worker thread priority", err)
	}
	return nil
}
