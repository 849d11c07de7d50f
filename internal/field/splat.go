// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"cogentcore.org/core/math32"
)

// NeutralGray is the color splatted for points without a color channel
// and the color of cells no splat reaches.
var NeutralGray = math32.Vec3(0.5, 0.5, 0.5)

// sigmaFactor relates the gaussian sigma to the splat radius. The kernel
// falls to ~13% of its peak at the radius cutoff, so the truncation edge
// stays soft.
const sigmaFactor = 0.5

// Splat accumulates every point's gaussian footprint into the grid's raw
// float channels. Grid bounds must be set and the grid cleared before
// the call. Colors may be nil; points then splat NeutralGray.
//
// A non-positive radius splats nothing, which legally yields an empty
// reconstruction (parameter validation is the caller's job).
func Splat(g *Grid, positions, colors []math32.Vector3, radius float32) {
	if radius <= 0 {
		return
	}
	reach := int(math32.Ceil(radius))
	sigma := radius * sigmaFactor
	inv2s2 := 1 / (2 * sigma * sigma)

	for i, p := range positions {
		gp := g.WorldToGrid(p)
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
					idx := g.Index(x, y, z)
					g.Weight[idx] += w
					g.ColorSum[idx] = g.ColorSum[idx].Add(color.MulScalar(w))
				}
			}
		}
	}
}
