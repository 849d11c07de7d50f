// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"cogentcore.org/core/math32"

	"github.com/gogpu/voxelmesh"
)

// gpuParams mirrors the WGSL Params uniform. Field order and padding
// must match the shader's std140-compatible layout exactly.
type gpuParams struct {
	BoundsMin  [4]float32
	BoundsSize [4]float32
	N          uint32
	PointCount uint32
	Capacity   uint32
	Pad0       uint32
	Iso        float32
	Radius     float32
	Pad1       float32
	Pad2       float32
}

// gpuPoint mirrors the WGSL Point struct: position and color, each
// padded to vec4.
type gpuPoint struct {
	Pos   [4]float32
	Color [4]float32
}

// gpuVertexSize is the byte size of the WGSL Vertex struct (three
// vec4<f32>: position, normal, color).
const gpuVertexSize = 48

func structToBytes(ptr unsafe.Pointer, size uintptr) []byte {
	return unsafe.Slice((*byte)(ptr), size) //nolint:gosec // safe struct serialization
}

// packParams serializes the uniform for upload.
func packParams(bounds math32.Box3, n, pointCount, capacity int, iso, radius float32) []byte {
	size := bounds.Size()
	p := gpuParams{
		BoundsMin:  [4]float32{bounds.Min.X, bounds.Min.Y, bounds.Min.Z, 0},
		BoundsSize: [4]float32{size.X, size.Y, size.Z, 0},
		N:          uint32(n),
		PointCount: uint32(pointCount),
		Capacity:   uint32(capacity),
		Iso:        iso,
		Radius:     radius,
	}
	out := make([]byte, unsafe.Sizeof(p))
	copy(out, structToBytes(unsafe.Pointer(&p), unsafe.Sizeof(p))) //nolint:gosec // safe struct access
	return out
}

// packPoints serializes the cloud for upload. A nil colors slice packs
// the neutral gray the CPU splatters use.
func packPoints(positions, colors []math32.Vector3) []byte {
	out := make([]byte, len(positions)*int(unsafe.Sizeof(gpuPoint{})))
	for i, pos := range positions {
		p := gpuPoint{
			Pos:   [4]float32{pos.X, pos.Y, pos.Z, 1},
			Color: [4]float32{0.5, 0.5, 0.5, 1},
		}
		if colors != nil {
			p.Color = [4]float32{colors[i].X, colors[i].Y, colors[i].Z, 1}
		}
		src := structToBytes(unsafe.Pointer(&p), unsafe.Sizeof(p)) //nolint:gosec // safe struct access
		copy(out[i*len(src):], src)
	}
	return out
}

// unpackMesh converts the raw vertex readback (count triangles of three
// Vertex structs) into a caller-owned mesh.
func unpackMesh(raw []byte, count int) *voxelmesh.Mesh {
	m := &voxelmesh.Mesh{
		Positions:     make([]float32, count*9),
		Normals:       make([]float32, count*9),
		Colors:        make([]float32, count*9),
		TriangleCount: count,
	}
	for v := 0; v < count*3; v++ {
		base := v * gpuVertexSize
		dst := v * 3
		for c := 0; c < 3; c++ {
			m.Positions[dst+c] = readFloat(raw, base+c*4)
			m.Normals[dst+c] = readFloat(raw, base+16+c*4)
			m.Colors[dst+c] = readFloat(raw, base+32+c*4)
		}
	}
	return m
}

func readFloat(raw []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
}
