// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mctables

import "testing"

// TestEdgeTableDerivation verifies every edge table entry against first
// principles: an edge is crossed exactly when its two corners lie on
// opposite sides of the iso-value, i.e. their bits differ in the cube
// index.
func TestEdgeTableDerivation(t *testing.T) {
	for ci := 0; ci < 256; ci++ {
		var want uint16
		for e, corners := range EdgeCorners {
			a := (ci >> corners[0]) & 1
			b := (ci >> corners[1]) & 1
			if a != b {
				want |= 1 << e
			}
		}
		if EdgeTable[ci] != want {
			t.Errorf("EdgeTable[%d] = %#x, want %#x", ci, EdgeTable[ci], want)
		}
	}
}

// TestEdgeTableComplementSymmetry: flipping all corner classifications
// crosses the same edges.
func TestEdgeTableComplementSymmetry(t *testing.T) {
	for ci := 0; ci < 256; ci++ {
		if EdgeTable[ci] != EdgeTable[255^ci] {
			t.Errorf("EdgeTable[%d] = %#x, EdgeTable[%d] = %#x; want equal",
				ci, EdgeTable[ci], 255^ci, EdgeTable[255^ci])
		}
	}
}

// TestEdgeTableBoundary: the all-outside and all-inside configurations
// produce no triangles.
func TestEdgeTableBoundary(t *testing.T) {
	if EdgeTable[0] != 0 {
		t.Errorf("EdgeTable[0] = %#x, want 0", EdgeTable[0])
	}
	if EdgeTable[255] != 0 {
		t.Errorf("EdgeTable[255] = %#x, want 0", EdgeTable[255])
	}
}

// TestTriTableStructure checks every row is a run of whole edge-index
// triplets terminated by -1, with -1 padding through slot 15.
func TestTriTableStructure(t *testing.T) {
	for ci := 0; ci < 256; ci++ {
		row := TriTable[ci]
		n := 0
		for n < 16 && row[n] != -1 {
			n++
		}
		if n%3 != 0 {
			t.Errorf("TriTable[%d] run length %d is not a multiple of 3", ci, n)
		}
		if n > 15 {
			t.Errorf("TriTable[%d] run length %d exceeds 5 triangles", ci, n)
		}
		for i := n; i < 16; i++ {
			if row[i] != -1 {
				t.Errorf("TriTable[%d][%d] = %d after sentinel, want -1", ci, i, row[i])
			}
		}
		for i := 0; i < n; i++ {
			if row[i] < 0 || row[i] > 11 {
				t.Errorf("TriTable[%d][%d] = %d, want edge index in [0,11]", ci, i, row[i])
			}
		}
	}
}

// TestTriTableMatchesEdgeTable: the set of edges referenced by a row's
// triangles must be exactly the crossed-edge set, so every interpolated
// vertex is used and no triangle references an inactive edge.
func TestTriTableMatchesEdgeTable(t *testing.T) {
	for ci := 0; ci < 256; ci++ {
		var used uint16
		for _, e := range TriTable[ci] {
			if e == -1 {
				break
			}
			used |= 1 << uint(e)
		}
		if used != EdgeTable[ci] {
			t.Errorf("TriTable[%d] uses edges %#x, EdgeTable has %#x", ci, used, EdgeTable[ci])
		}
	}
}

func TestEdgeCornersTopology(t *testing.T) {
	// Every edge must join two corners that differ in exactly one axis.
	for e, corners := range EdgeCorners {
		a, b := Corner[corners[0]], Corner[corners[1]]
		diff := 0
		for axis := 0; axis < 3; axis++ {
			if a[axis] != b[axis] {
				diff++
			}
		}
		if diff != 1 {
			t.Errorf("edge %d joins corners %v and %v; want unit-axis neighbors", e, a, b)
		}
	}
	// Every corner participates in exactly 3 edges.
	var degree [8]int
	for _, corners := range EdgeCorners {
		degree[corners[0]]++
		degree[corners[1]]++
	}
	for c, d := range degree {
		if d != 3 {
			t.Errorf("corner %d has edge degree %d, want 3", c, d)
		}
	}
}

func TestGPUWidening(t *testing.T) {
	et := EdgeTableU32()
	if len(et) != 256 {
		t.Fatalf("EdgeTableU32 length = %d, want 256", len(et))
	}
	for i, v := range et {
		if v != uint32(EdgeTable[i]) {
			t.Errorf("EdgeTableU32[%d] = %d, want %d", i, v, EdgeTable[i])
		}
	}

	tt := TriTableI32()
	if len(tt) != 256*16 {
		t.Fatalf("TriTableI32 length = %d, want %d", len(tt), 256*16)
	}
	for ci := 0; ci < 256; ci++ {
		for j := 0; j < 16; j++ {
			if tt[ci*16+j] != int32(TriTable[ci][j]) {
				t.Errorf("TriTableI32[%d*16+%d] = %d, want %d",
					ci, j, tt[ci*16+j], TriTable[ci][j])
			}
		}
	}
}
