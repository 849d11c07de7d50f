// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package native

import (
	"cogentcore.org/core/math32"

	"github.com/gogpu/voxelmesh"
	"github.com/gogpu/voxelmesh/internal/field"
	"github.com/gogpu/voxelmesh/internal/march"
	"github.com/gogpu/voxelmesh/internal/parallel"
)

// pointBatch is the number of points per splat work item. Small enough
// to keep the pool busy on mid-size clouds, large enough that the
// per-item overhead stays negligible.
const pointBatch = 1024

// ParallelReconstructor runs the pipeline across a worker pool using the
// same quantized fixed-point accumulation as the GPU compute pipeline:
// clear, splat and normalize are split into cell/point ranges, the march
// into z-slabs, with the pool's ExecuteAll as the barrier between
// stages. Results match the sequential reference up to quantization.
type ParallelReconstructor struct {
	initialized bool
	workers     int

	pool  *parallel.WorkerPool
	grid  *field.Grid
	accum *field.AtomicGrid
	out   *march.Buffer
}

// NewParallel creates an uninitialized pool-parallel reconstructor with
// the given worker count; zero or negative means GOMAXPROCS.
func NewParallel(workers int) *ParallelReconstructor {
	return &ParallelReconstructor{workers: workers}
}

// Name returns the backend name.
func (r *ParallelReconstructor) Name() string { return voxelmesh.BackendNativeParallel }

// Init starts the worker pool.
func (r *ParallelReconstructor) Init() error {
	if r.initialized {
		return nil
	}
	r.pool = parallel.NewWorkerPool(r.workers)
	r.initialized = true
	voxelmesh.Logger().Debug("voxelmesh: parallel backend initialized",
		"workers", r.pool.Workers())
	return nil
}

// Close stops the worker pool and releases all buffers.
func (r *ParallelReconstructor) Close() {
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.initialized = false
	r.grid = nil
	r.accum = nil
	r.out = nil
}

// Initialized reports whether Init has succeeded.
func (r *ParallelReconstructor) Initialized() bool { return r.initialized }

// Reconstruct runs the quantized pipeline across the pool. Stages are
// internally parallel; stage order is enforced by waiting for each
// ExecuteAll to drain before dispatching the next stage.
func (r *ParallelReconstructor) Reconstruct(cloud *voxelmesh.PointCloud, params voxelmesh.Params) (*voxelmesh.Mesh, error) {
	if !r.initialized {
		return nil, voxelmesh.ErrNotInitialized
	}
	if cloud.Len() == 0 || params.Resolution < 2 {
		return &voxelmesh.Mesh{}, nil
	}

	r.ensureBuffers(params.Resolution)
	r.grid.Bounds = voxelmesh.PaddedBounds(cloud.Positions, params)
	r.out.Reset()

	var colors []math32.Vector3
	if cloud.HasColors() {
		colors = cloud.Colors
	}

	r.pool.ExecuteAll(r.clearWork())
	r.pool.ExecuteAll(r.splatWork(cloud.Positions, colors, params.SplatRadius))
	r.pool.ExecuteAll(r.normalizeWork())
	r.pool.ExecuteAll(r.marchWork(params.IsoValue))

	return packMesh(r.out, r.Name()), nil
}

func (r *ParallelReconstructor) ensureBuffers(n int) {
	if r.grid == nil {
		r.grid = field.NewGrid(n)
		r.accum = field.NewAtomicGrid(n)
	} else {
		r.grid.Resize(n)
		r.accum.Resize(n)
	}
	capacity := voxelmesh.TriangleCapacity(n)
	if r.out == nil || r.out.Capacity != capacity {
		r.out = march.NewBuffer(capacity)
	}
}

// cellRanges splits [0, cells) into one contiguous range per work item,
// a few items per worker so stealing can still balance.
func (r *ParallelReconstructor) cellRanges() [][2]int {
	cells := r.grid.Cells()
	items := r.pool.Workers() * 4
	if items > cells {
		items = cells
	}
	ranges := make([][2]int, 0, items)
	chunk := (cells + items - 1) / items
	for from := 0; from < cells; from += chunk {
		to := from + chunk
		if to > cells {
			to = cells
		}
		ranges = append(ranges, [2]int{from, to})
	}
	return ranges
}

func (r *ParallelReconstructor) clearWork() []func() {
	ranges := r.cellRanges()
	work := make([]func(), len(ranges))
	for i, rg := range ranges {
		from, to := rg[0], rg[1]
		work[i] = func() { r.accum.ClearRange(from, to) }
	}
	return work
}

func (r *ParallelReconstructor) splatWork(positions, colors []math32.Vector3, radius float32) []func() {
	n := len(positions)
	work := make([]func(), 0, (n+pointBatch-1)/pointBatch)
	for from := 0; from < n; from += pointBatch {
		to := from + pointBatch
		if to > n {
			to = n
		}
		f, t := from, to
		work = append(work, func() {
			field.SplatAtomic(r.accum, r.grid, positions, colors, radius, f, t)
		})
	}
	return work
}

func (r *ParallelReconstructor) normalizeWork() []func() {
	ranges := r.cellRanges()
	work := make([]func(), len(ranges))
	for i, rg := range ranges {
		from, to := rg[0], rg[1]
		work[i] = func() { field.NormalizeQuantized(r.accum, r.grid, from, to) }
	}
	return work
}

// marchWork splits the cube into z-slabs. Cells only read the grid and
// reserve arena slots atomically, so slabs are fully independent.
func (r *ParallelReconstructor) marchWork(iso float32) []func() {
	zmax := r.grid.N - 1
	slabs := r.pool.Workers() * 4
	if slabs > zmax {
		slabs = zmax
	}
	work := make([]func(), 0, slabs)
	chunk := (zmax + slabs - 1) / slabs
	for z0 := 0; z0 < zmax; z0 += chunk {
		z1 := z0 + chunk
		if z1 > zmax {
			z1 = zmax
		}
		a, b := z0, z1
		work = append(work, func() {
			march.MarchRange(r.grid, iso, r.out, a, b)
		})
	}
	return work
}
