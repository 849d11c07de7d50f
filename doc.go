// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package voxelmesh reconstructs triangle meshes from unordered point
// clouds using a voxelized Marching Cubes pipeline.
//
// Given a point cloud (positions plus optional per-point colors) and a set
// of reconstruction parameters, the engine splats every point into a
// uniform density grid with a gaussian kernel, normalizes the accumulated
// field, and extracts the iso-surface with the classical 256-entry
// Marching Cubes tables. The result is a triangle soup with per-vertex
// positions, face normals, and colors.
//
// The pipeline is implemented twice with numerically consistent math:
//
//   - backend/wgpu runs four compute passes (clear, splat, normalize,
//     march) on a WebGPU device, using quantized fixed-point integer
//     atomics for shared-cell accumulation.
//   - backend/native is the single-threaded reference implementation,
//     accompanied by a pool-parallel variant that runs the same quantized
//     integer math on the CPU.
//
// Backends register themselves on import and are selected through
// [InitDefault]:
//
//	import (
//	    "github.com/gogpu/voxelmesh"
//
//	    _ "github.com/gogpu/voxelmesh/backend/native"
//	    _ "github.com/gogpu/voxelmesh/backend/wgpu" // optional GPU path
//	)
//
//	rec, err := voxelmesh.InitDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rec.Close()
//
//	mesh, err := rec.Reconstruct(cloud, voxelmesh.Params{
//	    IsoValue:    0.5,
//	    SplatRadius: 2,
//	    Resolution:  64,
//	})
//
// A mesh with zero triangles is a valid outcome, not an error: sparse
// clouds or iso-values outside the density range legitimately produce an
// empty surface.
//
// voxelmesh produces no log output by default. Call [SetLogger] to enable
// structured logging of buffer sizes, pass dispatch, and fallback events.
package voxelmesh
