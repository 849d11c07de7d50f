// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu provides the GPU reconstruction backend using wgpu/hal
// compute shaders. The pipeline mirrors the CPU reference: a clear pass,
// a per-point gaussian splat pass accumulating into quantized integer
// atomics, a per-cell normalize pass, and a marching-cubes pass emitting
// triangles into a bounded vertex buffer with an atomic counter.
//
// Import for side effects to register the backend:
//
//	import _ "github.com/gogpu/voxelmesh/backend/wgpu"
//
// Init fails with a descriptive error when no usable GPU adapter exists;
// voxelmesh.InitDefault then falls through to the CPU backends. Build
// with -tags nogpu to exclude this package entirely.
package wgpu
