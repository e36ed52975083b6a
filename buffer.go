package burnstone

import (
	"fmt"
	"unsafe"
)

// AlignedBuffer owns a cache-line-aligned heap block used as per-worker
// kernel scratch. The same bytes can be viewed as float32, uint32 or
// uint64 lanes; all views alias the block, so a buffer must never be
// shared between workers. Each worker allocates its own and releases it
// when its loop exits.
type AlignedBuffer struct {
	raw      []byte // backing allocation, keeps the block reachable
	data     []byte // aligned window into raw
	released bool
}

// NewAlignedBuffer allocates size bytes aligned to BufferAlignment.
// Stress testing cannot proceed without scratch memory, so callers
// treat a failure here as fatal to the worker.
func NewAlignedBuffer(size int) (*AlignedBuffer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	// Over-allocate by one alignment unit, then slice forward to the
	// first aligned byte.
	raw := make([]byte, size+BufferAlignment)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := 0
	if mod := int(addr % BufferAlignment); mod != 0 {
		offset = BufferAlignment - mod
	}

	return &AlignedBuffer{
		raw:  raw,
		data: raw[offset : offset+size : offset+size],
	}, nil
}

// Size returns the usable size of the buffer in bytes
func (b *AlignedBuffer) Size() int {
	return len(b.data)
}

// Bytes returns the raw byte view of the buffer
func (b *AlignedBuffer) Bytes() []byte {
	if b.released {
		return nil
	}
	return b.data
}

// Float32 returns a float32 lane view over the buffer bytes
func (b *AlignedBuffer) Float32() []float32 {
	if b.released {
		return nil
	}
	n := len(b.data) / 4
	return unsafe.Slice((*float32)(unsafe.Pointer(&b.data[0])), n)
}

// Uint32 returns a uint32 lane view over the same bytes as Float32.
// Kernels that interleave integer and floating-point work hold both
// views at once.
func (b *AlignedBuffer) Uint32() []uint32 {
	if b.released {
		return nil
	}
	n := len(b.data) / 4
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b.data[0])), n)
}

// Uint64 returns a uint64 lane view over the buffer bytes
func (b *AlignedBuffer) Uint64() []uint64 {
	if b.released {
		return nil
	}
	n := len(b.data) / 8
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b.data[0])), n)
}

// Release drops the buffer. Views obtained earlier become invalid; a
// second Release reports ErrDoubleRelease.
func (b *AlignedBuffer) Release() error {
	if b.released {
		return ErrDoubleRelease
	}
	b.released = true
	b.raw = nil
	b.data = nil
	return nil
}

// scratchBytes returns the per-worker scratch size for a kernel width
func scratchBytes(width int) int {
	switch width {
	case LaneWidth16:
		return scratchBytes16
	case LaneWidth8:
		return scratchBytes8
	default:
		panic(fmt.Sprintf("unknown kernel width %d", width))
	}
}
