// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native provides the CPU reconstruction backends: a
// single-threaded reference implementation and a pool-parallel variant
// running the same quantized integer accumulation as the GPU pipeline.
//
// Import for side effects to register both:
//
//	import _ "github.com/gogpu/voxelmesh/backend/native"
package native

import (
	"github.com/gogpu/voxelmesh"
	"github.com/gogpu/voxelmesh/internal/field"
	"github.com/gogpu/voxelmesh/internal/march"
)

func init() {
	voxelmesh.Register(voxelmesh.BackendNative, func() voxelmesh.Reconstructor {
		return New()
	})
	voxelmesh.Register(voxelmesh.BackendNativeParallel, func() voxelmesh.Reconstructor {
		return NewParallel(0)
	})
}

// Reconstructor is the sequential reference implementation: plain
// float32 accumulation, one goroutine, deterministic output. It is the
// conformance baseline the parallel and GPU backends are tested against.
type Reconstructor struct {
	initialized bool

	grid *field.Grid
	out  *march.Buffer
}

// New creates an uninitialized sequential reconstructor.
func New() *Reconstructor {
	return &Reconstructor{}
}

// Name returns the backend name.
func (r *Reconstructor) Name() string { return voxelmesh.BackendNative }

// Init marks the reconstructor usable. The CPU path has no capability
// requirements, so Init never fails; buffers are allocated lazily at the
// first Reconstruct once the resolution is known.
func (r *Reconstructor) Init() error {
	r.initialized = true
	return nil
}

// Close releases the grid and output buffers.
func (r *Reconstructor) Close() {
	r.initialized = false
	r.grid = nil
	r.out = nil
}

// Initialized reports whether Init has succeeded.
func (r *Reconstructor) Initialized() bool { return r.initialized }

// Reconstruct runs the splat / normalize / march pipeline sequentially.
func (r *Reconstructor) Reconstruct(cloud *voxelmesh.PointCloud, params voxelmesh.Params) (*voxelmesh.Mesh, error) {
	if !r.initialized {
		return nil, voxelmesh.ErrNotInitialized
	}
	if cloud.Len() == 0 || params.Resolution < 2 {
		return &voxelmesh.Mesh{}, nil
	}

	r.ensureBuffers(params.Resolution)
	r.grid.Bounds = voxelmesh.PaddedBounds(cloud.Positions, params)
	r.grid.Clear()
	r.out.Reset()

	var colors = cloud.Colors
	if !cloud.HasColors() {
		colors = nil
	}
	field.Splat(r.grid, cloud.Positions, colors, params.SplatRadius)
	field.Normalize(r.grid)
	march.March(r.grid, params.IsoValue, r.out)

	return packMesh(r.out, r.Name()), nil
}

func (r *Reconstructor) ensureBuffers(n int) {
	if r.grid == nil {
		r.grid = field.NewGrid(n)
	} else {
		r.grid.Resize(n)
	}
	capacity := voxelmesh.TriangleCapacity(n)
	if r.out == nil || r.out.Capacity != capacity {
		r.out = march.NewBuffer(capacity)
	}
}

// packMesh copies the arena's live prefix into a caller-owned mesh,
// logging when capacity forced triangles to be dropped.
func packMesh(out *march.Buffer, backend string) *voxelmesh.Mesh {
	count := out.Count()
	if out.Overflowed() {
		voxelmesh.Logger().Warn("voxelmesh: triangle buffer overflow, output truncated",
			"backend", backend,
			"capacity", out.Capacity,
			"demand", out.Demand())
	}

	m := &voxelmesh.Mesh{
		Positions:     make([]float32, count*9),
		Normals:       make([]float32, count*9),
		Colors:        make([]float32, count*9),
		TriangleCount: count,
	}
	copy(m.Positions, out.Positions[:count*9])
	copy(m.Normals, out.Normals[:count*9])
	copy(m.Colors, out.Colors[:count*9])
	return m
}
