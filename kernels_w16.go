package burnstone

import (
	"context"
	"math"
)

// 16-lane (AVX-512-class) kernel variants. Selecting any of these on
// hardware without the wide instruction set is rejected by the engine
// before a worker starts; the kernels themselves assume the check
// already happened.

func seedChains16(chains []*[LaneWidth16]float32) {
	for i, c := range chains {
		for l := range c {
			c[l] = float32(i+1) * 0.015625
		}
	}
}

// fmaKernel16 is the wide compute-hot workload. Twice the chains of the
// 8-lane variant: the wider units expose more FMA pipelines to fill.
func fmaKernel16(ctx context.Context, s *scratch) {
	var a0, a1, a2, a3, a4, a5, a6, a7 [LaneWidth16]float32
	var a8, a9, a10, a11, a12, a13, a14, a15 [LaneWidth16]float32
	var a16, a17, a18, a19, a20, a21, a22, a23 [LaneWidth16]float32
	chains := [fmaChains16]*[LaneWidth16]float32{
		&a0, &a1, &a2, &a3, &a4, &a5, &a6, &a7,
		&a8, &a9, &a10, &a11, &a12, &a13, &a14, &a15,
		&a16, &a17, &a18, &a19, &a20, &a21, &a22, &a23,
	}
	seedChains16(chains[:])

	var sums [LaneWidth16]float32
	for {
		for i := 0; i < validateInterval; i++ {
			for l := 0; l < LaneWidth16; l++ {
				a0[l] = a0[l]*fmaMul + fmaAdd
				a1[l] = a1[l]*fmaMul + fmaAdd
				a2[l] = a2[l]*fmaMul + fmaAdd
				a3[l] = a3[l]*fmaMul + fmaAdd
				a4[l] = a4[l]*fmaMul + fmaAdd
				a5[l] = a5[l]*fmaMul + fmaAdd
				a6[l] = a6[l]*fmaMul + fmaAdd
				a7[l] = a7[l]*fmaMul + fmaAdd
				a8[l] = a8[l]*fmaMul + fmaAdd
				a9[l] = a9[l]*fmaMul + fmaAdd
				a10[l] = a10[l]*fmaMul + fmaAdd
				a11[l] = a11[l]*fmaMul + fmaAdd
				a12[l] = a12[l]*fmaMul + fmaAdd
				a13[l] = a13[l]*fmaMul + fmaAdd
				a14[l] = a14[l]*fmaMul + fmaAdd
				a15[l] = a15[l]*fmaMul + fmaAdd
				a16[l] = a16[l]*fmaMul + fmaAdd
				a17[l] = a17[l]*fmaMul + fmaAdd
				a18[l] = a18[l]*fmaMul + fmaAdd
				a19[l] = a19[l]*fmaMul + fmaAdd
				a20[l] = a20[l]*fmaMul + fmaAdd
				a21[l] = a21[l]*fmaMul + fmaAdd
				a22[l] = a22[l]*fmaMul + fmaAdd
				a23[l] = a23[l]*fmaMul + fmaAdd
			}
		}
		for l := 0; l < LaneWidth16; l++ {
			sums[l] = a0[l] + a1[l] + a2[l] + a3[l] + a4[l] + a5[l] +
				a6[l] + a7[l] + a8[l] + a9[l] + a10[l] + a11[l] +
				a12[l] + a13[l] + a14[l] + a15[l] + a16[l] + a17[l] +
				a18[l] + a19[l] + a20[l] + a21[l] + a22[l] + a23[l]
		}
		if err := checkLanesFinite("fma.wide", sums[:]); err != nil {
			s.report(err)
			seedChains16(chains[:])
		}
		if cancelled(ctx) {
			return
		}
	}
}

// streamKernel16 is the wide streaming workload over the 64 MB scratch
// buffer; see streamKernel8 for the block scheme.
func streamKernel16(ctx context.Context, s *scratch) {
	data := s.buf.Float32()
	for i := range data {
		data[i] = 0.25 + float32(i%LaneWidth16)*0.0078125
	}

	const vecsPerBlock = 8
	const block = vecsPerBlock * LaneWidth16
	nBlocks := len(data) / block
	if nBlocks == 0 {
		return // scratch smaller than one block leaves no work
	}

	var acc [LaneWidth16]float32
	for {
		for blk := 0; blk < nBlocks; blk++ {
			base := blk * block

			var v [vecsPerBlock][LaneWidth16]float32
			for j := 0; j < vecsPerBlock; j++ {
				copy(v[j][:], data[base+j*LaneWidth16:base+(j+1)*LaneWidth16])
			}
			for round := 0; round < 4; round++ {
				for j := 0; j < vecsPerBlock; j++ {
					nj := (j + 1) & (vecsPerBlock - 1)
					for l := 0; l < LaneWidth16; l++ {
						v[j][l] = v[j][l]*0.5 + (v[nj][l]*0.25 + 0.125)
					}
				}
			}
			for j := 0; j < vecsPerBlock; j++ {
				copy(data[base+j*LaneWidth16:base+(j+1)*LaneWidth16], v[j][:])
			}
			for l := 0; l < LaneWidth16; l++ {
				acc[l] = acc[l]*0.5 + v[0][l]*0.25
			}

			if blk&1023 == 0 {
				if err := checkLanesFinite("stream.wide", acc[:]); err != nil {
					s.report(err)
					for l := range acc {
						acc[l] = 0
					}
				}
				if cancelled(ctx) {
					return
				}
			}
		}
	}
}

// mixedKernel16 is the wide integer/float interleave; see mixedKernel8.
func mixedKernel16(ctx context.Context, s *scratch) {
	u := s.buf.Uint32()
	f := s.buf.Float32()
	for i := range u {
		u[i] = uint32(i)*2654435761 + 1
	}
	n := len(u) - len(u)%LaneWidth16
	if n == 0 {
		return
	}

	var acc [LaneWidth16]float32
	for {
		for base := 0; base < n; base += LaneWidth16 {
			for l := 0; l < LaneWidth16; l++ {
				x := u[base+l]
				x = (x & 0x7FFFFFFF) + 0x9E37
				x *= 2654435761
				x ^= x >> 15
				x = x<<3 | x>>29
				u[base+l] = x
			}
			for l := 0; l < LaneWidth16; l++ {
				x := float32(u[base+l]&0xFFFF) * (1.0 / 65536.0)
				y := float32(math.Sqrt(float64(x)))
				r := float32(1 / math.Sqrt(float64(x)+1))
				acc[l] = acc[l]*0.5 + (y*0.25 + r*0.125)
				f[base+l] = y
			}
			if base&(LaneWidth16*1024-1) == 0 {
				if err := checkLanesFinite("mixed.wide", acc[:]); err != nil {
					s.report(err)
					for l := range acc {
						acc[l] = 0
					}
				}
				if cancelled(ctx) {
					return
				}
			}
		}
	}
}

// shuffleKernel16 routes data across all 16 lanes: a full-width rotate
// crosses the 256-bit boundary that in-lane shuffles never do.
func shuffleKernel16(ctx context.Context, s *scratch) {
	var v, w [LaneWidth16]float32
	for l := 0; l < LaneWidth16; l++ {
		v[l] = 0.1 + float32(l)*0.025
		w[l] = 0.9 - float32(l)*0.025
	}
	var blend [LaneWidth16]bool
	for l := 0; l < LaneWidth16; l += 2 {
		blend[l] = true
	}

	var sums [LaneWidth16]float32
	for {
		for i := 0; i < validateInterval; i++ {
			var t [LaneWidth16]float32
			for l := 0; l < LaneWidth16; l++ {
				t[l] = v[(l+5)&(LaneWidth16-1)]
			}
			for l := 0; l < LaneWidth16; l += 2 {
				t[l], t[l+1] = t[l+1], t[l]
			}
			for l := 0; l < LaneWidth16; l++ {
				if blend[l] {
					v[l] = t[l]*0.5 + w[l]*0.25
				} else {
					v[l] = w[l]*0.5 + t[l]*0.25
				}
				w[l] = w[l]*0.75 + 0.0625
			}
		}
		for l := 0; l < LaneWidth16; l++ {
			sums[l] = v[l] + w[l]
		}
		if err := checkLanesFinite("shuffle.wide", sums[:]); err != nil {
			s.report(err)
			for l := 0; l < LaneWidth16; l++ {
				v[l] = 0.1 + float32(l)*0.025
				w[l] = 0.9 - float32(l)*0.025
			}
		}
		if cancelled(ctx) {
			return
		}
	}
}

// maskKernel16 exists only at the wide width: comparison results become
// a predicate mask, and the mask steers a blend between two candidate
// updates. This is the dedicated mask-register path of the wide
// instruction set; the narrow width has no equivalent.
func maskKernel16(ctx context.Context, s *scratch) {
	var v, acc [LaneWidth16]float32
	var mask [LaneWidth16]bool
	for l := 0; l < LaneWidth16; l++ {
		v[l] = float32(l+1) * 0.0546875
	}

	for {
		for i := 0; i < validateInterval; i++ {
			for l := 0; l < LaneWidth16; l++ {
				mask[l] = v[l] >= 0.5 // compare writes the predicate
			}
			for l := 0; l < LaneWidth16; l++ {
				if mask[l] {
					v[l] = v[l]*0.25 + 0.125
				} else {
					v[l] = v[l]*0.5 + 0.25
				}
			}
			for l := 0; l < LaneWidth16; l++ {
				acc[l] = acc[l]*0.5 + v[l]*0.25
			}
		}
		if err := checkLanesFinite("mask.wide", acc[:]); err != nil {
			s.report(err)
			for l := 0; l < LaneWidth16; l++ {
				v[l] = float32(l+1) * 0.0546875
				acc[l] = 0
			}
		}
		if cancelled(ctx) {
			return
		}
	}
}

// polyKernel16 is the wide Horner-form exponential; see polyKernel8.
func polyKernel16(ctx context.Context, s *scratch) {
	var x, acc [LaneWidth16]float32
	for l := 0; l < LaneWidth16; l++ {
		x[l] = -1.0 + float32(l)*0.125
	}

	for {
		for i := 0; i < validateInterval; i++ {
			for l := 0; l < LaneWidth16; l++ {
				xv := x[l]
				p := polyC6
				p = p*xv + polyC5
				p = p*xv + polyC4
				p = p*xv + polyC3
				p = p*xv + polyC2
				p = p*xv + polyC1
				p = p*xv + polyC0
				acc[l] = acc[l]*0.5 + p*0.25
				x[l] = p*0.25 - 0.5
			}
		}
		if err := checkLanesFinite("poly.wide", acc[:]); err != nil {
			s.report(err)
			for l := 0; l < LaneWidth16; l++ {
				x[l] = -1.0 + float32(l)*0.125
				acc[l] = 0
			}
		}
		if cancelled(ctx) {
			return
		}
	}
}

// wideIntLanes is the 64-bit lane count of a 512-bit vector.
const wideIntLanes = LaneWidth16 / 2

// runIntAddBlockWide is the 64-bit-lane fixed-iteration block.
func runIntAddBlockWide(lanes *[wideIntLanes]int64) {
	for l := range lanes {
		lanes[l] = 1
	}
	for i := 0; i < intAddBlock; i++ {
		for l := 0; l < wideIntLanes; l++ {
			lanes[l]++
		}
	}
}

// intAddKernel16 runs the fixed-iteration add over 64-bit lanes,
// covering the wide quadword path the 8-lane variant never touches.
func intAddKernel16(ctx context.Context, s *scratch) {
	var lanes [wideIntLanes]int64
	for {
		runIntAddBlockWide(&lanes)
		if err := checkLanesExact64("intadd.wide", lanes[:], intAddBlock+1); err != nil {
			s.report(err)
		}
		if cancelled(ctx) {
			return
		}
	}
}
