//go:build !linux && !windows

package burnstone

// Fallback for platforms without per-thread affinity control. Binding
// succeeds without pinning so the engine stays usable for functional
// testing; on such hosts the scheduler decides core placement and the
// per-core attribution of results is only approximate.

type prevAffinity struct{}

func bindThread(logical int) (prevAffinity, error) {
	return prevAffinity{}, nil
}

func restoreThread(prev prevAffinity) error {
	return nil
}

func lowerThreadPriority() error {
	return nil
}
