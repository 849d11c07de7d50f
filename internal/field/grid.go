// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package field builds and normalizes the voxel density field a point
// cloud is splatted into. It provides two accumulation strategies with
// conceptually identical math: plain float32 sums for the sequential
// reference path, and quantized fixed-point integer atomics matching the
// GPU pipeline for the parallel path.
package field

import (
	"cogentcore.org/core/math32"
)

// Grid is a dense cubic voxel grid with N cells per axis, indexed
// x + y*N + z*N*N. It carries the raw accumulation channels written by
// the splatter and the normalized channels read by the surface
// extractor. All storage is owned by one orchestrator and fully
// rebuilt every reconstruction; nothing persists across calls.
type Grid struct {
	// N is the number of cells per axis.
	N int

	// Bounds are the world-space extents the grid is mapped onto,
	// already padded by the orchestrator.
	Bounds math32.Box3

	// Weight is the raw accumulated gaussian weight per cell.
	Weight []float32

	// ColorSum is the raw accumulated weight-scaled RGB per cell.
	ColorSum []math32.Vector3

	// Density is the normalized scalar density per cell, in [0, 1).
	Density []float32

	// Color is the weight-averaged RGB per cell.
	Color []math32.Vector3
}

// NewGrid allocates a grid with n cells per axis.
func NewGrid(n int) *Grid {
	g := &Grid{}
	g.Resize(n)
	return g
}

// Resize reallocates the grid storage for n cells per axis. It is a
// no-op when the resolution is unchanged; the caller still must Clear
// before splatting.
func (g *Grid) Resize(n int) {
	if g.N == n && g.Weight != nil {
		return
	}
	cells := n * n * n
	g.N = n
	g.Weight = make([]float32, cells)
	g.ColorSum = make([]math32.Vector3, cells)
	g.Density = make([]float32, cells)
	g.Color = make([]math32.Vector3, cells)
}

// Clear zeroes all channels. Splatting accumulates, so every
// reconstruction starts with an explicit clear.
func (g *Grid) Clear() {
	clear(g.Weight)
	clear(g.ColorSum)
	clear(g.Density)
	clear(g.Color)
}

// Cells returns the total cell count.
func (g *Grid) Cells() int {
	return g.N * g.N * g.N
}

// Index returns the flat index of cell (x, y, z).
func (g *Grid) Index(x, y, z int) int {
	return x + y*g.N + z*g.N*g.N
}

// WorldToGrid maps a world-space position into grid space, where cell
// (i, j, k) spans [i, i+1) x [j, j+1) x [k, k+1).
func (g *Grid) WorldToGrid(p math32.Vector3) math32.Vector3 {
	size := g.Bounds.Size()
	n := float32(g.N)
	return math32.Vec3(
		(p.X-g.Bounds.Min.X)/size.X*n,
		(p.Y-g.Bounds.Min.Y)/size.Y*n,
		(p.Z-g.Bounds.Min.Z)/size.Z*n,
	)
}

// GridToWorld maps a grid-space position back into world space.
func (g *Grid) GridToWorld(p math32.Vector3) math32.Vector3 {
	size := g.Bounds.Size()
	n := float32(g.N)
	return math32.Vec3(
		g.Bounds.Min.X+p.X/n*size.X,
		g.Bounds.Min.Y+p.Y/n*size.Y,
		g.Bounds.Min.Z+p.Z/n*size.Z,
	)
}

// CellCenter returns the grid-space center of cell (x, y, z). Cell
// centers are the field's sample locations: splat distances are measured
// to them and the marcher interpolates between them.
func (g *Grid) CellCenter(x, y, z int) math32.Vector3 {
	return math32.Vec3(float32(x)+0.5, float32(y)+0.5, float32(z)+0.5)
}
