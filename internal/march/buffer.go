// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package march extracts the iso-surface from a normalized density grid
// using the classical Marching Cubes tables.
package march

import (
	"sync/atomic"
)

// Buffer is the capacity-bounded triangle output arena: fixed attribute
// storage, a bump cursor, and a clamp on read-back. Slot reservation is
// an atomic increment so sequential and pool-parallel marchers share one
// implementation; the cursor may overshoot capacity (reservations past
// the end are rejected and the triangle dropped), and Count clamps the
// reported value.
type Buffer struct {
	// Capacity is the maximum number of triangles the arena holds.
	Capacity int

	// Positions, Normals and Colors hold Capacity*9 floats each
	// (3 vertices x 3 components per triangle).
	Positions []float32
	Normals   []float32
	Colors    []float32

	cursor atomic.Int64
}

// NewBuffer allocates an arena for at most capacity triangles.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Capacity:  capacity,
		Positions: make([]float32, capacity*9),
		Normals:   make([]float32, capacity*9),
		Colors:    make([]float32, capacity*9),
	}
}

// Reset rewinds the cursor. The attribute storage is not zeroed; only
// the first Count()*9 floats are ever read back.
func (b *Buffer) Reset() {
	b.cursor.Store(0)
}

// Reserve claims the next triangle slot. It returns ok == false when the
// arena is full; the cursor still advances so Demand reflects how many
// triangles an unbounded run would have produced.
func (b *Buffer) Reserve() (slot int, ok bool) {
	s := b.cursor.Add(1) - 1
	if s >= int64(b.Capacity) {
		return 0, false
	}
	return int(s), true
}

// Count returns the number of triangles actually stored, clamped to
// capacity.
func (b *Buffer) Count() int {
	n := b.cursor.Load()
	if n > int64(b.Capacity) {
		return b.Capacity
	}
	return int(n)
}

// Demand returns the unclamped reservation count. Demand > Capacity
// means triangles were dropped.
func (b *Buffer) Demand() int {
	return int(b.cursor.Load())
}

// Overflowed reports whether any triangle was dropped for lack of
// capacity.
func (b *Buffer) Overflowed() bool {
	return b.cursor.Load() > int64(b.Capacity)
}
