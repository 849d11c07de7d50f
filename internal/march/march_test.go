// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package march

import (
	"sync"
	"testing"

	"cogentcore.org/core/math32"

	"github.com/gogpu/voxelmesh/internal/field"
)

// sphereGrid fills a grid with an analytic radial density: 1 at the
// center falling linearly to 0 at the boundary. The 0.5 iso-surface is
// a sphere at half the grid extent.
func sphereGrid(n int) *field.Grid {
	g := field.NewGrid(n)
	g.Bounds = math32.Box3{
		Min: math32.Vec3(0, 0, 0),
		Max: math32.Vec3(float32(n), float32(n), float32(n)),
	}
	c := float32(n) / 2
	maxR := c
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				d := g.CellCenter(x, y, z).Sub(math32.Vec3(c, c, c)).Length()
				v := 1 - d/maxR
				if v < 0 {
					v = 0
				}
				g.Density[g.Index(x, y, z)] = v
				g.Color[g.Index(x, y, z)] = math32.Vec3(1, 1, 1)
			}
		}
	}
	return g
}

func TestMarchSphere(t *testing.T) {
	g := sphereGrid(16)
	out := NewBuffer(10000)
	March(g, 0.5, out)

	if out.Count() == 0 {
		t.Fatal("no triangles on analytic sphere")
	}
	if out.Overflowed() {
		t.Fatal("unexpected overflow")
	}

	// Every iso-vertex sits at distance ~maxR/2 from the center; allow
	// one cell of discretization slack.
	center := math32.Vec3(8, 8, 8)
	wantR := float32(4)
	for i := 0; i < out.Count()*9; i += 3 {
		v := math32.Vec3(out.Positions[i], out.Positions[i+1], out.Positions[i+2])
		r := v.Sub(center).Length()
		if math32.Abs(r-wantR) > 1 {
			t.Fatalf("vertex %d at radius %v, want ~%v", i/3, r, wantR)
		}
	}
}

func TestMarchUniformField(t *testing.T) {
	// No crossings: all cells on the same side of the iso-value.
	g := field.NewGrid(8)
	g.Bounds = math32.Box3{Min: math32.Vec3(0, 0, 0), Max: math32.Vec3(8, 8, 8)}
	for i := range g.Density {
		g.Density[i] = 0.9
	}
	out := NewBuffer(100)
	March(g, 0.5, out)
	if out.Count() != 0 {
		t.Errorf("uniform field produced %d triangles", out.Count())
	}
}

func TestMarchRangeCoversMarch(t *testing.T) {
	g := sphereGrid(16)

	whole := NewBuffer(10000)
	March(g, 0.5, whole)

	split := NewBuffer(10000)
	MarchRange(g, 0.5, split, 0, 7)
	MarchRange(g, 0.5, split, 7, 15)

	if whole.Count() != split.Count() {
		t.Errorf("split ranges produced %d triangles, whole march %d",
			split.Count(), whole.Count())
	}
}

func TestMarchNormalsUnit(t *testing.T) {
	g := sphereGrid(12)
	out := NewBuffer(10000)
	March(g, 0.5, out)
	for i := 0; i < out.Count()*9; i += 3 {
		n := math32.Vec3(out.Normals[i], out.Normals[i+1], out.Normals[i+2])
		if math32.Abs(n.Length()-1) > 1e-3 {
			t.Fatalf("normal %d has length %v", i/3, n.Length())
		}
	}
}

func TestBufferReserve(t *testing.T) {
	b := NewBuffer(2)
	for i := 0; i < 2; i++ {
		slot, ok := b.Reserve()
		if !ok || slot != i {
			t.Fatalf("Reserve %d = (%d, %v)", i, slot, ok)
		}
	}
	if _, ok := b.Reserve(); ok {
		t.Error("Reserve past capacity succeeded")
	}
	if b.Count() != 2 {
		t.Errorf("Count = %d, want 2", b.Count())
	}
	if b.Demand() != 3 {
		t.Errorf("Demand = %d, want 3", b.Demand())
	}
	if !b.Overflowed() {
		t.Error("Overflowed = false after dropped reservation")
	}

	b.Reset()
	if b.Count() != 0 || b.Overflowed() {
		t.Errorf("after Reset: Count = %d, Overflowed = %v", b.Count(), b.Overflowed())
	}
}

func TestBufferConcurrentReserve(t *testing.T) {
	b := NewBuffer(1000)
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]bool)

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				slot, ok := b.Reserve()
				if !ok {
					continue
				}
				mu.Lock()
				if seen[slot] {
					t.Errorf("slot %d handed out twice", slot)
				}
				seen[slot] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if b.Count() != 1000 {
		t.Errorf("Count = %d, want 1000 (clamped)", b.Count())
	}
	if b.Demand() != 1600 {
		t.Errorf("Demand = %d, want 1600", b.Demand())
	}
	if len(seen) != 1000 {
		t.Errorf("unique slots = %d, want 1000", len(seen))
	}
}

func TestMarchOverflowDropsSilently(t *testing.T) {
	g := sphereGrid(16)
	out := NewBuffer(10)
	March(g, 0.5, out)

	if out.Count() != 10 {
		t.Errorf("Count = %d, want clamped 10", out.Count())
	}
	if !out.Overflowed() {
		t.Error("Overflowed = false on tiny buffer")
	}
}
