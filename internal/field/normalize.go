// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"cogentcore.org/core/math32"
)

// weightEpsilon guards the color average: cells whose accumulated weight
// is below it take the neutral default instead of dividing by ~zero.
const weightEpsilon = 0.001

// saturation shapes the density curve. Raw weight grows without bound as
// points pile up; 1-exp(-raw*saturation) approaches 1 asymptotically so
// the iso-value keeps meaning across wildly different point densities.
const saturation = 0.5

// normalizeCell is the shared per-cell map: raw weight and color sum in,
// bounded density and averaged color out.
func normalizeCell(w float32, sum math32.Vector3) (float32, math32.Vector3) {
	density := 1 - math32.Exp(-w*saturation)
	if w <= weightEpsilon {
		return density, NeutralGray
	}
	return density, sum.DivScalar(w)
}

// Normalize converts the grid's raw float channels into the final
// per-cell density in [0, 1) and averaged color. Pure per-cell map;
// never produces NaN.
func Normalize(g *Grid) {
	NormalizeRange(g, 0, g.Cells())
}

// NormalizeRange normalizes cells [from, to); ranges may run
// concurrently since cells are independent.
func NormalizeRange(g *Grid, from, to int) {
	for i := from; i < to; i++ {
		g.Density[i], g.Color[i] = normalizeCell(g.Weight[i], g.ColorSum[i])
	}
}

// NormalizeQuantized converts quantized accumulators into the companion
// grid's density and color channels, dequantizing first so the curve and
// epsilon guard match the float path exactly.
func NormalizeQuantized(a *AtomicGrid, g *Grid, from, to int) {
	for i := from; i < to; i++ {
		w := Dequantize(a.Weight[i])
		sum := math32.Vec3(
			Dequantize(a.ColorR[i]),
			Dequantize(a.ColorG[i]),
			Dequantize(a.ColorB[i]),
		)
		g.Density[i], g.Color[i] = normalizeCell(w, sum)
	}
}
