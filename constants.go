// Package burnstone tuning and layout constants
package burnstone

// Cache sizes for different levels (in bytes)
const (
	// L1 cache size per core (typical for modern CPUs)
	L1CacheSize = 32 * 1024 // 32KB

	// L2 cache size per core (typical for modern CPUs)
	L2CacheSize = 256 * 1024 // 256KB

	// L3 cache size (shared, typical for modern CPUs)
	L3CacheSize = 8 * 1024 * 1024 // 8MB
)

// Vector lane widths, in float32 elements
const (
	// Base vector width (AVX2-class, 256-bit)
	LaneWidth8 = 8

	// Wide vector width (AVX-512-class, 512-bit)
	LaneWidth16 = 16

	// Cache-line / SIMD alignment in bytes
	BufferAlignment = 64
)

// Processor topology
const (
	// ProcessorGroupSize is the OS processor-group width. Systems with
	// more than 64 logical processors address them as group/index pairs;
	// 64 is the OS convention, not a derived value.
	ProcessorGroupSize = 64
)

// Kernel tuning parameters
const (
	// Independent accumulator chains per kernel. Chosen to exceed the
	// number of FMA pipelines so every port stays busy.
	fmaChains8  = 12
	fmaChains16 = 24

	// Iterations between cancellation polls and validator runs. A few
	// thousand keeps stop latency well under a second on any hardware
	// that can run the kernels at all.
	validateInterval = 4096

	// Increment count per block of the fixed-iteration integer kernel.
	// Lanes start at one, so the expected lane value is intAddBlock+1.
	intAddBlock = 1 << 20

	// Per-worker scratch sizes, sized past any last-level cache.
	scratchBytes8  = 32 * 1024 * 1024
	scratchBytes16 = 64 * 1024 * 1024

	// Pointer-chase burst length and rest interval. The rest caps the
	// duty cycle: this mode tests latency pressure, not power draw.
	chaseBurst = 1 << 20
)

// Validation constants
const (
	// Contraction constants for the FMA chains. The update a = a*fmaMul +
	// fmaAdd converges to fmaAdd/(1-fmaMul) = 0.5, so a healthy ALU can
	// never overflow or produce NaN no matter how long the loop runs.
	fmaMul = 0.875
	fmaAdd = 0.0625
)
