// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package voxelmesh

import (
	"cogentcore.org/core/math32"
)

// PointCloud is an unordered set of points with optional per-point colors.
// The cloud is immutable input to one reconstruction call and remains
// owned by the caller; reconstructors never retain or mutate it.
type PointCloud struct {
	// Positions holds one world-space position per point.
	Positions []math32.Vector3

	// Colors optionally holds one RGB color per point, components in
	// [0, 1]. When empty, points splat a neutral gray. When non-empty it
	// must be parallel to Positions.
	Colors []math32.Vector3
}

// Len returns the number of points in the cloud.
func (c *PointCloud) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Positions)
}

// HasColors reports whether the cloud carries per-point colors.
func (c *PointCloud) HasColors() bool {
	return c != nil && len(c.Colors) == len(c.Positions) && len(c.Colors) > 0
}

// Params are the caller-tunable reconstruction parameters. They are read
// once per Reconstruct call; changing them between calls is cheap and
// never reallocates unless Resolution changed.
//
// Params are not validated. Out-of-range values (zero splat radius, tiny
// resolution) are the caller's responsibility and legally yield an empty
// or degenerate result rather than an error.
type Params struct {
	// IsoValue is the density threshold defining the extracted surface.
	// Normalized densities lie in [0, 1), so useful iso-values do too.
	IsoValue float32

	// SplatRadius is the gaussian kernel radius in grid-cell units.
	// Each point contributes density to cells within this distance of
	// its grid-space position.
	SplatRadius float32

	// Resolution is the number of cells per axis; the grid is always a
	// cube. Typical interactive values are 32-256.
	Resolution int
}

// Mesh is the result of one reconstruction: a triangle soup with parallel
// per-vertex attribute arrays. Each triangle contributes 9 floats (3
// vertices x 3 components) to every attribute slice.
//
// TriangleCount == 0 is a valid, non-error outcome.
type Mesh struct {
	Positions []float32
	Normals   []float32
	Colors    []float32

	// TriangleCount is the number of triangles in the attribute slices.
	// It is already clamped to the output buffer capacity; triangles
	// beyond capacity were dropped during extraction.
	TriangleCount int
}

// Empty reports whether the mesh contains no triangles.
func (m *Mesh) Empty() bool {
	return m == nil || m.TriangleCount == 0
}

// TriangleCapacity returns the output buffer capacity (in triangles) for a
// grid with n cells per axis. The heuristic assumes surface voxels are the
// ~6*n*n boundary shell with up to 5 triangles each plus 2x headroom,
// clamped to the total voxel count so tiny grids stay tiny.
func TriangleCapacity(n int) int {
	if n <= 0 {
		return 0
	}
	c := 6 * n * n * 2 * 5
	if v := n * n * n; c > v {
		c = v
	}
	return c
}

// PaddedBounds computes the world-space grid bounds for a reconstruction:
// the cloud's axis-aligned bounding box expanded on every side by twice
// the splat radius, so splats at the extreme points never clip against
// the grid border.
//
// SplatRadius is in grid-cell units but the cell size only exists once
// the bounds do, so the padding uses a cell-size estimate taken from the
// unpadded box (largest extent / resolution, floored to keep degenerate
// single-point clouds representable).
func PaddedBounds(positions []math32.Vector3, p Params) math32.Box3 {
	b := math32.B3Empty()
	b.SetFromPoints(positions)

	ext := b.Size()
	maxExt := max(ext.X, ext.Y, ext.Z)
	cell := maxExt / float32(max(p.Resolution, 1))
	if cell < 1e-4 {
		cell = 1e-4
	}
	b.ExpandByScalar(2 * p.SplatRadius * cell)
	return b
}
