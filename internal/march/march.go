// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package march

import (
	"cogentcore.org/core/math32"

	"github.com/gogpu/voxelmesh/internal/field"
	"github.com/gogpu/voxelmesh/mctables"
)

const (
	// snapEpsilon snaps edge interpolation to a corner when the
	// iso-value (or the opposite corner) is this close, avoiding a
	// near-zero division.
	snapEpsilon = 1e-5

	// areaEpsilon discards triangles whose unnormalized cross product
	// is shorter than this: degenerate slivers with no stable normal.
	areaEpsilon = 1e-4
)

// March walks every cell of the normalized grid and appends the
// triangulated iso-surface to out. Cells are stateless and independent;
// MarchRange exposes the z-slab form the parallel orchestrator feeds to
// its worker pool.
func March(g *field.Grid, iso float32, out *Buffer) {
	MarchRange(g, iso, out, 0, g.N-1)
}

// MarchRange processes cells with z in [z0, z1). Cells read 8 corners,
// so x and y run over [0, N-2] and callers must keep z1 <= N-1.
func MarchRange(g *field.Grid, iso float32, out *Buffer, z0, z1 int) {
	var corner [8]int
	var density [8]float32
	var verts, cols [12]math32.Vector3

	for z := z0; z < z1; z++ {
		for y := 0; y < g.N-1; y++ {
			for x := 0; x < g.N-1; x++ {
				cubeIndex := 0
				for i, o := range mctables.Corner {
					ci := g.Index(x+o[0], y+o[1], z+o[2])
					corner[i] = ci
					density[i] = g.Density[ci]
					if density[i] < iso {
						cubeIndex |= 1 << i
					}
				}

				edges := mctables.EdgeTable[cubeIndex]
				if edges == 0 {
					// Entirely inside or outside; the dominant
					// fast path.
					continue
				}

				for e := 0; e < 12; e++ {
					if edges&(1<<e) == 0 {
						continue
					}
					ec := mctables.EdgeCorners[e]
					a, b := ec[0], ec[1]
					oa, ob := mctables.Corner[a], mctables.Corner[b]
					pa := g.CellCenter(x+oa[0], y+oa[1], z+oa[2])
					pb := g.CellCenter(x+ob[0], y+ob[1], z+ob[2])
					t := interpFactor(density[a], density[b], iso)
					verts[e] = pa.Add(pb.Sub(pa).MulScalar(t))
					ca := g.Color[corner[a]]
					cb := g.Color[corner[b]]
					cols[e] = ca.Add(cb.Sub(ca).MulScalar(t))
				}

				tri := &mctables.TriTable[cubeIndex]
				for i := 0; i < 15 && tri[i] != -1; i += 3 {
					emit(g, out,
						verts[tri[i]], verts[tri[i+1]], verts[tri[i+2]],
						cols[tri[i]], cols[tri[i+1]], cols[tri[i+2]])
				}
			}
		}
	}
}

// interpFactor returns the parametric crossing point of the iso-value
// between corner densities d0 and d1, snapping to a corner when the
// crossing is degenerate.
func interpFactor(d0, d1, iso float32) float32 {
	if math32.Abs(iso-d0) < snapEpsilon {
		return 0
	}
	if math32.Abs(iso-d1) < snapEpsilon {
		return 1
	}
	if math32.Abs(d1-d0) < snapEpsilon {
		return 0
	}
	return (iso - d0) / (d1 - d0)
}

// emit converts one triangle from grid space to world space, computes
// its face normal, and writes it into a reserved slot. Zero-area
// triangles are skipped; full buffers drop the triangle after the
// cursor has recorded the demand.
func emit(g *field.Grid, out *Buffer, v0, v1, v2, c0, c1, c2 math32.Vector3) {
	w0 := g.GridToWorld(v0)
	w1 := g.GridToWorld(v1)
	w2 := g.GridToWorld(v2)

	n := w1.Sub(w0).Cross(w2.Sub(w0))
	length := n.Length()
	if length < areaEpsilon {
		return
	}
	n = n.DivScalar(length)

	slot, ok := out.Reserve()
	if !ok {
		return
	}
	base := slot * 9
	writeVec(out.Positions, base, w0, w1, w2)
	writeVec(out.Normals, base, n, n, n)
	writeVec(out.Colors, base, c0, c1, c2)
}

func writeVec(dst []float32, base int, a, b, c math32.Vector3) {
	dst[base+0], dst[base+1], dst[base+2] = a.X, a.Y, a.Z
	dst[base+3], dst[base+4], dst[base+5] = b.X, b.Y, b.Z
	dst[base+6], dst[base+7], dst[base+8] = c.X, c.Y, c.Z
}
