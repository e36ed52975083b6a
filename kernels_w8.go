package burnstone

import (
	"context"
	"math"
)

// 8-lane (AVX2-class) kernel variants. Each loop body is written as one
// statement per vector operation over a fixed-size lane array, the shape
// the compiler vectorizes and the shape that makes the intended
// instruction mix explicit. The 16-lane variants live in kernels_w16.go.

// seedChains8 gives every accumulator chain a distinct small start so
// the chains cannot collapse into one value.
func seedChains8(chains []*[LaneWidth8]float32) {
	for i, c := range chains {
		for l := range c {
			c[l] = float32(i+1) * 0.03125
		}
	}
}

// fmaKernel8 is the baseline compute-hot workload: fmaChains8
// independent accumulator chains, more than the core has FMA pipelines,
// updated back to back with no memory traffic. Maximum sustained power
// draw comes from keeping every multiply-add port busy every cycle.
//
// The contraction constants pin each chain to a fixed point of 0.5, so
// the only way a lane stops equalling itself is hardware error.
func fmaKernel8(ctx context.Context, s *scratch) {
	var a0, a1, a2, a3, a4, a5, a6, a7, a8, a9, a10, a11 [LaneWidth8]float32
	chains := [fmaChains8]*[LaneWidth8]float32{&a0, &a1, &a2, &a3, &a4, &a5, &a6, &a7, &a8, &a9, &a10, &a11}
	seedChains8(chains[:])

	var sums [LaneWidth8]float32
	for {
		for i := 0; i < validateInterval; i++ {
			for l := 0; l < LaneWidth8; l++ {
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
			}
		}
		for l := 0; l < LaneWidth8; l++ {
			sums[l] = a0[l] + a1[l] + a2[l] + a3[l] + a4[l] + a5[l] +
				a6[l] + a7[l] + a8[l] + a9[l] + a10[l] + a11[l]
		}
		if err := checkLanesFinite("fma", sums[:]); err != nil {
			s.report(err)
			seedChains8(chains[:]) // fresh chains so the next check is a new detection
		}
		if cancelled(ctx) {
			return
		}
	}
}

// streamKernel8 pushes the load/store ports and the cache hierarchy at
// the same time as the FMA units: blocks of the scratch buffer are
// loaded, run through four rounds of cross-dependent multiply-adds, and
// stored back. The buffer exceeds the last-level cache, so every pass
// touches DRAM.
func streamKernel8(ctx context.Context, s *scratch) {
	data := s.buf.Float32()
	for i := range data {
		data[i] = 0.25 + float32(i%LaneWidth8)*0.015625
	}

	const vecsPerBlock = 8
	const block = vecsPerBlock * LaneWidth8
	nBlocks := len(data) / block
	if nBlocks == 0 {
		return // scratch smaller than one block leaves no work
	}

	var acc [LaneWidth8]float32
	for {
		for blk := 0; blk < nBlocks; blk++ {
			base := blk * block

			var v [vecsPerBlock][LaneWidth8]float32
			for j := 0; j < vecsPerBlock; j++ {
				copy(v[j][:], data[base+j*LaneWidth8:base+(j+1)*LaneWidth8])
			}

			// Each vector's update pulls in its neighbor, so the rounds
			// cannot be reordered into independent streams.
			for round := 0; round < 4; round++ {
				for j := 0; j < vecsPerBlock; j++ {
					nj := (j + 1) & (vecsPerBlock - 1)
					for l := 0; l < LaneWidth8; l++ {
						v[j][l] = v[j][l]*0.5 + (v[nj][l]*0.25 + 0.125)
					}
				}
			}

			for j := 0; j < vecsPerBlock; j++ {
				copy(data[base+j*LaneWidth8:base+(j+1)*LaneWidth8], v[j][:])
			}
			for l := 0; l < LaneWidth8; l++ {
				acc[l] = acc[l]*0.5 + v[0][l]*0.25
			}

			if blk&1023 == 0 {
				if err := checkLanesFinite("stream", acc[:]); err != nil {
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

// mixedKernel8 interleaves integer mask/add/multiply/shift work with
// floating-point sqrt/rsqrt/FMA over the same memory region, viewed as
// uint32 and float32 at once. Both execution-port families plus the
// int-to-float conversion path stay busy together.
func mixedKernel8(ctx context.Context, s *scratch) {
	u := s.buf.Uint32()
	f := s.buf.Float32()
	for i := range u {
		u[i] = uint32(i)*2654435761 + 1
	}
	n := len(u) - len(u)%LaneWidth8
	if n == 0 {
		return
	}

	var acc [LaneWidth8]float32
	for {
		for base := 0; base < n; base += LaneWidth8 {
			for l := 0; l < LaneWidth8; l++ {
				x := u[base+l]
				x = (x & 0x7FFFFFFF) + 0x9E37
				x *= 2654435761
				x ^= x >> 15
				x = x<<3 | x>>29
				u[base+l] = x
			}
			for l := 0; l < LaneWidth8; l++ {
				// The mask before the convert keeps x in [0,1), so sqrt
				// and rsqrt stay defined for any bit pattern the integer
				// phase leaves behind.
				x := float32(u[base+l]&0xFFFF) * (1.0 / 65536.0)
				y := float32(math.Sqrt(float64(x)))
				r := float32(1 / math.Sqrt(float64(x)+1))
				acc[l] = acc[l]*0.5 + (y*0.25 + r*0.125)
				f[base+l] = y
			}
			if base&(LaneWidth8*1024-1) == 0 {
				if err := checkLanesFinite("mixed", acc[:]); err != nil {
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

// shuffleKernel8 exercises the data-routing network: cross-lane
// rotates, in-lane pair swaps and predicated blends, which run on a
// different execution port than the arithmetic the other kernels lean
// on. Light contraction arithmetic keeps the values bounded.
func shuffleKernel8(ctx context.Context, s *scratch) {
	var v, w [LaneWidth8]float32
	for l := 0; l < LaneWidth8; l++ {
		v[l] = 0.1 + float32(l)*0.05
		w[l] = 0.9 - float32(l)*0.05
	}
	blend := [LaneWidth8]bool{true, false, true, false, true, false, true, false}

	var sums [LaneWidth8]float32
	for {
		for i := 0; i < validateInterval; i++ {
			var t [LaneWidth8]float32
			for l := 0; l < LaneWidth8; l++ {
				t[l] = v[(l+3)&(LaneWidth8-1)] // cross-lane rotate
			}
			for l := 0; l < LaneWidth8; l += 2 {
				t[l], t[l+1] = t[l+1], t[l] // in-lane pair swap
			}
			for l := 0; l < LaneWidth8; l++ {
				if blend[l] {
					v[l] = t[l]*0.5 + w[l]*0.25
				} else {
					v[l] = w[l]*0.5 + t[l]*0.25
				}
				w[l] = w[l]*0.75 + 0.0625
			}
		}
		for l := 0; l < LaneWidth8; l++ {
			sums[l] = v[l] + w[l]
		}
		if err := checkLanesFinite("shuffle", sums[:]); err != nil {
			s.report(err)
			for l := 0; l < LaneWidth8; l++ {
				v[l] = 0.1 + float32(l)*0.05
				w[l] = 0.9 - float32(l)*0.05
			}
		}
		if cancelled(ctx) {
			return
		}
	}
}

// Degree-6 exponential coefficients, 1/k!. Horner evaluation gives a
// serial multiply-add chain per lane with no memory traffic at all:
// pure latency-bound compute density.
const (
	polyC6 = float32(1.0 / 720.0)
	polyC5 = float32(1.0 / 120.0)
	polyC4 = float32(1.0 / 24.0)
	polyC3 = float32(1.0 / 6.0)
	polyC2 = float32(0.5)
	polyC1 = float32(1.0)
	polyC0 = float32(1.0)
)

// polyKernel8 approximates exp(x) by a Horner-form polynomial and feeds
// the result back into the argument, so every step depends on the full
// chain before it. The feedback map keeps x inside [-1,1] where the
// approximation is well behaved.
func polyKernel8(ctx context.Context, s *scratch) {
	var x, acc [LaneWidth8]float32
	for l := 0; l < LaneWidth8; l++ {
		x[l] = -1.0 + float32(l)*0.25
	}

	for {
		for i := 0; i < validateInterval; i++ {
			for l := 0; l < LaneWidth8; l++ {
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
		if err := checkLanesFinite("poly", acc[:]); err != nil {
			s.report(err)
			for l := 0; l < LaneWidth8; l++ {
				x[l] = -1.0 + float32(l)*0.25
				acc[l] = 0
			}
		}
		if cancelled(ctx) {
			return
		}
	}
}

// runIntAddBlock8 seeds every lane with one and applies intAddBlock
// increments, the workload of the original stress routine. On correct
// hardware every lane must finish at exactly intAddBlock+1.
func runIntAddBlock8(lanes *[LaneWidth8]int32) {
	for l := range lanes {
		lanes[l] = 1
	}
	for i := 0; i < intAddBlock; i++ {
		for l := 0; l < LaneWidth8; l++ {
			lanes[l]++
		}
	}
}

// intAddKernel8 repeats fixed-iteration integer-add blocks. Unlike the
// float kernels there is no tolerance involved: any lane not holding
// the exact expected count is a computational error.
func intAddKernel8(ctx context.Context, s *scratch) {
	var lanes [LaneWidth8]int32
	for {
		runIntAddBlock8(&lanes)
		if err := checkLanesExact32("intadd", lanes[:], intAddBlock+1); err != nil {
			s.report(err)
		}
		if cancelled(ctx) {
			return
		}
	}
}
