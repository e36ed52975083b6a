package burnstone

import (
	"fmt"
	"runtime"
)

// CoreDescriptor identifies one physical core as reported by the
// hardware-topology collaborator: its index, the first logical
// processor it owns, and how many hardware threads it exposes (1, or 2
// with simultaneous multithreading). Descriptors are immutable for the
// duration of a run.
type CoreDescriptor struct {
	CoreIndex    int
	FirstLogical int
	ThreadCount  int
}

// Validate checks the descriptor against the host's logical processor
// count.
func (c CoreDescriptor) Validate(totalLogical int) error {
	if c.ThreadCount != 1 && c.ThreadCount != 2 {
		return NewStateError("CoreDescriptor",
			fmt.Sprintf("core %d: thread count must be 1 or 2, got %d", c.CoreIndex, c.ThreadCount))
	}
	if c.FirstLogical < 0 || c.FirstLogical+c.ThreadCount > totalLogical {
		return NewStateError("CoreDescriptor",
			fmt.Sprintf("core %d: logical processors %d..%d out of range (host has %d)",
				c.CoreIndex, c.FirstLogical, c.FirstLogical+c.ThreadCount-1, totalLogical))
	}
	return nil
}

// LogicalProcessors returns the host's logical processor count
func LogicalProcessors() int {
	return runtime.NumCPU()
}

// DefaultTopology builds a flat one-thread-per-core topology from the
// logical processor count. Real SMT layout comes from the external
// topology collaborator; this fallback lets the CLI sweep every logical
// processor without one.
func DefaultTopology() []CoreDescriptor {
	n := LogicalProcessors()
	cores := make([]CoreDescriptor, n)
	for i := 0; i < n; i++ {
		cores[i] = CoreDescriptor{CoreIndex: i, FirstLogical: i, ThreadCount: 1}
	}
	return cores
}
