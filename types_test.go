// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package voxelmesh

import (
	"testing"

	"cogentcore.org/core/math32"
)

func TestPointCloudLen(t *testing.T) {
	var nilCloud *PointCloud
	if nilCloud.Len() != 0 {
		t.Errorf("nil cloud Len = %d", nilCloud.Len())
	}
	c := &PointCloud{Positions: make([]math32.Vector3, 3)}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
	if c.HasColors() {
		t.Error("HasColors = true without colors")
	}
	c.Colors = make([]math32.Vector3, 3)
	if !c.HasColors() {
		t.Error("HasColors = false with parallel colors")
	}
	c.Colors = c.Colors[:2]
	if c.HasColors() {
		t.Error("HasColors = true with mismatched colors")
	}
}

func TestMeshEmpty(t *testing.T) {
	var nilMesh *Mesh
	if !nilMesh.Empty() {
		t.Error("nil mesh not empty")
	}
	if !(&Mesh{}).Empty() {
		t.Error("zero mesh not empty")
	}
	if (&Mesh{TriangleCount: 1}).Empty() {
		t.Error("mesh with triangles reported empty")
	}
}

func TestTriangleCapacity(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{-1, 0},
		{2, 8},       // clamped to n^3
		{4, 64},      // clamped to n^3
		{64, 245760}, // 6*64*64*2*5, below 64^3
	}
	for _, tt := range tests {
		if got := TriangleCapacity(tt.n); got != tt.want {
			t.Errorf("TriangleCapacity(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}

	// The shell heuristic never exceeds the total voxel count.
	for _, n := range []int{2, 8, 16, 32, 100, 256} {
		if c := TriangleCapacity(n); c > n*n*n {
			t.Errorf("TriangleCapacity(%d) = %d exceeds n^3 = %d", n, c, n*n*n)
		}
	}
}

func TestPaddedBoundsContainsCloud(t *testing.T) {
	positions := []math32.Vector3{
		math32.Vec3(-1, 0, 2),
		math32.Vec3(3, 5, -4),
		math32.Vec3(0, 0, 0),
	}
	p := Params{SplatRadius: 2, Resolution: 32}
	b := PaddedBounds(positions, p)

	for i, pos := range positions {
		if !b.ContainsPoint(pos) {
			t.Errorf("point %d at %v outside padded bounds %v", i, pos, b)
		}
	}

	// Padding is strictly positive, so extreme points keep distance
	// from the border.
	raw := math32.B3Empty()
	raw.SetFromPoints(positions)
	if b.Min.X >= raw.Min.X || b.Max.X <= raw.Max.X {
		t.Errorf("bounds not padded: %v vs raw %v", b, raw)
	}
}

func TestPaddedBoundsSinglePoint(t *testing.T) {
	// A single point has a degenerate AABB; the cell-size floor keeps
	// the padded bounds non-degenerate.
	b := PaddedBounds([]math32.Vector3{math32.Vec3(1, 1, 1)}, Params{SplatRadius: 2, Resolution: 16})
	size := b.Size()
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		t.Errorf("degenerate padded bounds: size %v", size)
	}
}
