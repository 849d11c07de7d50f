// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"sync/atomic"

	"cogentcore.org/core/math32"
)

// Quantized fixed-point accumulation.
//
// Concurrent splatters race on shared cells, and float atomic addition is
// unavailable both in WGSL and in sync/atomic. Contributions are instead
// quantized to fixed-point integers and added with integer atomics. The
// CPU path here uses the exact same scale as the WGSL splat pass so the
// two parallel implementations stay numerically aligned; they diverge
// from the float reference only by the quantization step, which the
// conformance tests bound.

// QuantScale converts float weights to fixed-point. 2^12 preserves ~3.6
// significant decimal digits per contribution; int32 accumulators only
// overflow past ~524k full-weight splats into a single cell, far beyond
// interactive point counts.
const QuantScale = 4096

// Quantize converts a weight-scaled value to its fixed-point
// representation, rounding to nearest.
func Quantize(v float32) int32 {
	return int32(math32.Round(v * QuantScale))
}

// Dequantize converts a fixed-point accumulator back to float.
func Dequantize(q int32) float32 {
	return float32(q) / QuantScale
}

// AtomicGrid holds the quantized raw accumulation channels. It mirrors
// the GPU pipeline's storage buffer of integer atomics; geometry (bounds,
// indexing) stays on the companion Grid.
type AtomicGrid struct {
	N      int
	Weight []int32
	ColorR []int32
	ColorG []int32
	ColorB []int32
}

// NewAtomicGrid allocates quantized accumulators for n cells per axis.
func NewAtomicGrid(n int) *AtomicGrid {
	a := &AtomicGrid{}
	a.Resize(n)
	return a
}

// Resize reallocates for n cells per axis; no-op when unchanged.
func (a *AtomicGrid) Resize(n int) {
	if a.N == n && a.Weight != nil {
		return
	}
	cells := n * n * n
	a.N = n
	a.Weight = make([]int32, cells)
	a.ColorR = make([]int32, cells)
	a.ColorG = make([]int32, cells)
	a.ColorB = make([]int32, cells)
}

// ClearRange zeroes the accumulators for cells [from, to). The parallel
// orchestrator runs this as an explicit clear pass before splatting,
// split across the pool.
func (a *AtomicGrid) ClearRange(from, to int) {
	clear(a.Weight[from:to])
	clear(a.ColorR[from:to])
	clear(a.ColorG[from:to])
	clear(a.ColorB[from:to])
}

// SplatAtomic accumulates points [from, to) into the quantized
// accumulators using integer atomics. Multiple goroutines may run
// disjoint point ranges concurrently against the same AtomicGrid.
// The companion grid g supplies bounds and indexing only.
func SplatAtomic(a *AtomicGrid, g *Grid, positions, colors []math32.Vector3, radius float32, from, to int) {
	if radius <= 0 {
		return
	}
	reach := int(math32.Ceil(radius))
	sigma := radius * sigmaFactor
	inv2s2 := 1 / (2 * sigma * sigma)

	for i := from; i < to; i++ {
		gp := g.WorldToGrid(positions[i])
		color := NeutralGray
		if colors != nil {
			color = colors[i]
		}

		cx := int(math32.Floor(gp.X))
		cy := int(math32.Floor(gp.Y))
		cz := int(math32.Floor(gp.Z))

		for dz := -reach; dz <= reach; dz++ {
			z := cz + dz
			if z < 0 || z >= g.N {
				continue
			}
			for dy := -reach; dy <= reach; dy++ {
				y := cy + dy
				if y < 0 || y >= g.N {
					continue
				}
				for dx := -reach; dx <= reach; dx++ {
					x := cx + dx
					if x < 0 || x >= g.N {
						continue
					}
					d2 := gp.Sub(g.CellCenter(x, y, z)).LengthSquared()
					if d2 > radius*radius {
						continue
					}
					w := math32.Exp(-d2 * inv2s2)
					qw := Quantize(w)
					if qw == 0 {
						continue
					}
					idx := g.Index(x, y, z)
					atomic.AddInt32(&a.Weight[idx], qw)
					atomic.AddInt32(&a.ColorR[idx], Quantize(color.X*w))
					atomic.AddInt32(&a.ColorG[idx], Quantize(color.Y*w))
					atomic.AddInt32(&a.ColorB[idx], Quantize(color.Z*w))
				}
			}
		}
	}
}
