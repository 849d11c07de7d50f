// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package field

import (
	"math"
	"sync"
	"testing"

	"cogentcore.org/core/math32"
)

func unitGrid(n int) *Grid {
	g := NewGrid(n)
	g.Bounds = math32.Box3{
		Min: math32.Vec3(0, 0, 0),
		Max: math32.Vec3(float32(n), float32(n), float32(n)),
	}
	return g
}

func TestGridIndexing(t *testing.T) {
	g := NewGrid(4)
	seen := make(map[int]bool)
	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				i := g.Index(x, y, z)
				if i < 0 || i >= g.Cells() {
					t.Fatalf("Index(%d,%d,%d) = %d out of range", x, y, z, i)
				}
				if seen[i] {
					t.Fatalf("Index(%d,%d,%d) = %d collides", x, y, z, i)
				}
				seen[i] = true
			}
		}
	}
}

func TestGridRoundTrip(t *testing.T) {
	g := NewGrid(8)
	g.Bounds = math32.Box3{
		Min: math32.Vec3(-3, 1, -10),
		Max: math32.Vec3(5, 9, 14),
	}
	p := math32.Vec3(1.5, 4.25, 2)
	back := g.GridToWorld(g.WorldToGrid(p))
	if back.Sub(p).Length() > 1e-4 {
		t.Errorf("round trip %v -> %v", p, back)
	}
}

func TestGridResizeNoop(t *testing.T) {
	g := NewGrid(8)
	w := &g.Weight[0]
	g.Resize(8)
	if &g.Weight[0] != w {
		t.Error("Resize to same n reallocated")
	}
	g.Resize(4)
	if len(g.Weight) != 64 {
		t.Errorf("len(Weight) = %d, want 64", len(g.Weight))
	}
}

func TestSplatLocality(t *testing.T) {
	// A point at the center of a cell with radius 1 must only touch
	// cells within one step of it.
	g := unitGrid(8)
	Splat(g, []math32.Vector3{math32.Vec3(4.5, 4.5, 4.5)}, nil, 1)

	for z := 0; z < 8; z++ {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				w := g.Weight[g.Index(x, y, z)]
				far := abs(x-4) > 1 || abs(y-4) > 1 || abs(z-4) > 1
				if far && w != 0 {
					t.Fatalf("cell (%d,%d,%d) outside radius has weight %v", x, y, z, w)
				}
			}
		}
	}
	if c := g.Weight[g.Index(4, 4, 4)]; math32.Abs(c-1) > 1e-5 {
		t.Errorf("center cell weight = %v, want 1 (distance 0)", c)
	}
}

func TestSplatTinyRadiusCenterPoint(t *testing.T) {
	// Radius 0.5, point at the exact grid center of a 4-cell grid: only
	// the 8 cells touching the center can receive weight; every other
	// cell stays exactly zero.
	g := unitGrid(4)
	Splat(g, []math32.Vector3{math32.Vec3(2, 2, 2)}, nil, 0.5)

	for z := 0; z < 4; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				w := g.Weight[g.Index(x, y, z)]
				inner := (x == 1 || x == 2) && (y == 1 || y == 2) && (z == 1 || z == 2)
				if !inner && w != 0 {
					t.Fatalf("outer cell (%d,%d,%d) has weight %v", x, y, z, w)
				}
			}
		}
	}
}

func TestSplatZeroRadius(t *testing.T) {
	g := unitGrid(4)
	Splat(g, []math32.Vector3{math32.Vec3(2, 2, 2)}, nil, 0)
	for i, w := range g.Weight {
		if w != 0 {
			t.Fatalf("cell %d has weight %v after zero-radius splat", i, w)
		}
	}
}

func TestSplatColorAccumulation(t *testing.T) {
	g := unitGrid(8)
	red := []math32.Vector3{math32.Vec3(1, 0, 0)}
	Splat(g, []math32.Vector3{math32.Vec3(4.5, 4.5, 4.5)}, red, 2)

	i := g.Index(4, 4, 4)
	if g.Weight[i] == 0 {
		t.Fatal("center cell untouched")
	}
	// Color sum is weight-scaled red, so the average is pure red.
	avg := g.ColorSum[i].DivScalar(g.Weight[i])
	if math32.Abs(avg.X-1) > 1e-5 || avg.Y != 0 || avg.Z != 0 {
		t.Errorf("averaged color = %v, want (1,0,0)", avg)
	}
}

func TestNormalizeBounded(t *testing.T) {
	g := unitGrid(4)
	g.Weight[0] = 0
	g.Weight[1] = 1
	g.Weight[2] = 1e6
	Normalize(g)

	if g.Density[0] != 0 {
		t.Errorf("density(0) = %v, want 0", g.Density[0])
	}
	want := 1 - math32.Exp(-0.5)
	if math32.Abs(g.Density[1]-want) > 1e-6 {
		t.Errorf("density(1) = %v, want %v", g.Density[1], want)
	}
	if g.Density[2] < g.Density[1] || g.Density[2] >= 1 {
		t.Errorf("density(1e6) = %v, want in [%v, 1)", g.Density[2], g.Density[1])
	}
}

func TestNormalizeNoNaN(t *testing.T) {
	g := unitGrid(4)
	// Tiny weights below the epsilon guard must not divide.
	g.Weight[0] = 1e-8
	g.ColorSum[0] = math32.Vec3(1e-8, 0, 0)
	Normalize(g)

	for i := range g.Density {
		if math.IsNaN(float64(g.Density[i])) {
			t.Fatalf("density %d is NaN", i)
		}
		c := g.Color[i]
		if math.IsNaN(float64(c.X)) || math.IsNaN(float64(c.Y)) || math.IsNaN(float64(c.Z)) {
			t.Fatalf("color %d is NaN", i)
		}
	}
	if g.Color[0] != NeutralGray {
		t.Errorf("sub-epsilon cell color = %v, want neutral gray", g.Color[0])
	}
}

func TestQuantizeRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.001, 0.5, 1, 123.456} {
		got := Dequantize(Quantize(v))
		if math32.Abs(got-v) > 0.5/QuantScale {
			t.Errorf("round trip %v -> %v, error beyond half a step", v, got)
		}
	}
}

func TestAtomicSplatMatchesFloat(t *testing.T) {
	positions := []math32.Vector3{
		math32.Vec3(3.2, 4.7, 5.1),
		math32.Vec3(4.0, 4.0, 4.0),
		math32.Vec3(5.5, 3.3, 4.8),
	}
	colors := []math32.Vector3{
		math32.Vec3(1, 0, 0),
		math32.Vec3(0, 1, 0),
		math32.Vec3(0, 0, 1),
	}

	gf := unitGrid(8)
	Splat(gf, positions, colors, 2)
	Normalize(gf)

	ga := unitGrid(8)
	acc := NewAtomicGrid(8)
	acc.ClearRange(0, ga.Cells())
	SplatAtomic(acc, ga, positions, colors, 2, 0, len(positions))
	NormalizeQuantized(acc, ga, 0, ga.Cells())

	// Each cell sees at most len(positions) contributions, each off by
	// at most half a quantization step.
	tol := float32(len(positions)) / QuantScale
	for i := range gf.Density {
		if d := math32.Abs(gf.Density[i] - ga.Density[i]); d > tol {
			t.Fatalf("cell %d: density %v vs %v (diff %v > %v)",
				i, gf.Density[i], ga.Density[i], d, tol)
		}
	}
}

func TestAtomicSplatConcurrent(t *testing.T) {
	// Two goroutines splatting disjoint halves must produce the same
	// accumulators as one goroutine splatting everything: integer adds
	// commute exactly.
	positions := make([]math32.Vector3, 200)
	for i := range positions {
		positions[i] = math32.Vec3(
			float32(i%8)+0.3,
			float32((i/8)%8)+0.6,
			float32(i%5)+1.1,
		)
	}

	g1 := unitGrid(8)
	a1 := NewAtomicGrid(8)
	a1.ClearRange(0, g1.Cells())
	SplatAtomic(a1, g1, positions, nil, 1.5, 0, len(positions))

	g2 := unitGrid(8)
	a2 := NewAtomicGrid(8)
	a2.ClearRange(0, g2.Cells())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		SplatAtomic(a2, g2, positions, nil, 1.5, 0, len(positions)/2)
	}()
	go func() {
		defer wg.Done()
		SplatAtomic(a2, g2, positions, nil, 1.5, len(positions)/2, len(positions))
	}()
	wg.Wait()

	for i := range a1.Weight {
		if a1.Weight[i] != a2.Weight[i] {
			t.Fatalf("cell %d: weight %d (sequential) vs %d (concurrent)",
				i, a1.Weight[i], a2.Weight[i])
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
