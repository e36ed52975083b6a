package burnstone

// Thread/affinity binding.
//
// Every worker pins its OS thread to exactly one logical processor
// before entering the kernel loop: stressing the wrong core would make
// every result meaningless, so a failed bind is fatal to that worker
// rather than ignored. The previous affinity is captured on bind and
// restored when the worker exits.
//
// Platform implementations live in affinity_linux.go,
// affinity_windows.go and affinity_stub.go. Each provides:
//
//	bindThread(logical int) (prevAffinity, error)
//	restoreThread(prev prevAffinity) error
//	lowerThreadPriority() error
//
// Workers also drop their own scheduling priority so the orchestrator
// and any monitoring UI stay responsive with every core saturated.
// Priority lowering is best effort; a failure is logged, not fatal.

// workerNice is the niceness delta applied to worker threads on
// platforms with Unix-style priorities.
const workerNice = 10

// GroupOf maps a logical processor index to its processor group and
// in-group index. Operating systems that address more than
// ProcessorGroupSize logical processors split them into groups of
// exactly that size: index 130 lives in group 2 at in-group index 2.
func GroupOf(logical int) (group, index int) {
	return logical / ProcessorGroupSize, logical % ProcessorGroupSize
}
