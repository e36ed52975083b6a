package burnstone

import (
	"golang.org/x/sys/cpu"
)

// Features tracks available CPU instruction set extensions
type Features struct {
	HasAVX      bool
	HasAVX2     bool
	HasAVX512F  bool // Foundation
	HasAVX512DQ bool // Double/Quad precision
	HasAVX512BW bool // Byte/Word
	HasAVX512VL bool // Vector Length
	HasFMA      bool
	HasSSE4     bool
}

// Global CPU feature detection
var cpuFeatures Features

func init() {
	detectFeatures()
}

// detectFeatures populates the global cpuFeatures struct
func detectFeatures() {
	cpuFeatures = Features{
		HasSSE4:     cpu.X86.HasSSE41 || cpu.X86.HasSSE42,
		HasAVX:      cpu.X86.HasAVX,
		HasAVX2:     cpu.X86.HasAVX2,
		HasAVX512F:  cpu.X86.HasAVX512F,
		HasAVX512DQ: cpu.X86.HasAVX512DQ,
		HasAVX512BW: cpu.X86.HasAVX512BW,
		HasAVX512VL: cpu.X86.HasAVX512VL,
		HasFMA:      cpu.X86.HasFMA,
	}
}

// WideVectorsSupported reports whether the host can run the wide
// (16-lane) kernel variants. Foundation alone is not enough: the mixed
// integer kernels need the DQ lane operations.
func WideVectorsSupported() bool {
	return cpuFeatures.HasAVX512F && cpuFeatures.HasAVX512DQ
}

// BaseVectorsSupported reports whether the host can run the 8-lane
// kernel variants with fused multiply-add.
func BaseVectorsSupported() bool {
	return cpuFeatures.HasAVX2 && cpuFeatures.HasFMA
}

// CPUInfo returns a string describing available CPU features
func CPUInfo() string {
	features := []string{}

	if cpuFeatures.HasSSE4 {
		features = append(features, "SSE4")
	}
	if cpuFeatures.HasAVX {
		features = append(features, "AVX")
	}
	if cpuFeatures.HasAVX2 {
		features = append(features, "AVX2")
	}
	if cpuFeatures.HasFMA {
		features = append(features, "FMA")
	}
	if cpuFeatures.HasAVX512F {
		features = append(features, "AVX512F")
	}
	if cpuFeatures.HasAVX512DQ {
		features = append(features, "AVX512DQ")
	}
	if cpuFeatures.HasAVX512BW {
		features = append(features, "AVX512BW")
	}
	if cpuFeatures.HasAVX512VL {
		features = append(features, "AVX512VL")
	}

	if len(features) == 0 {
		return "No SIMD extensions detected"
	}

	result := "CPU features: "
	for i, f := range features {
		if i > 0 {
			result += ", "
		}
		result += f
	}
	return result
}
