// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package wgpu

import (
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/voxelmesh"
	"github.com/gogpu/voxelmesh/mctables"
)

func init() {
	voxelmesh.Register(voxelmesh.BackendWGPU, func() voxelmesh.Reconstructor {
		return New()
	})
}

// fenceTimeout bounds how long a Reconstruct waits on the GPU.
const fenceTimeout = 5 * time.Second

// Reconstructor runs the reconstruction pipeline on the GPU as four
// compute passes in one command encoder: clear, splat, normalize,
// march. Passes in one encoder have implicit storage buffer barriers
// between them, which is exactly the stage ordering the pipeline needs.
//
// Reading the result takes two round trips: the triangle counter first,
// then a copy of just the live vertex range.
type Reconstructor struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shaders    [4]hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipelines  [4]hal.ComputePipeline

	paramsBuf hal.Buffer
	edgeBuf   hal.Buffer
	triBuf    hal.Buffer

	// Per-resolution buffers, recreated when Resolution changes.
	resolution int
	accumBuf   hal.Buffer
	fieldBuf   hal.Buffer
	vertexBuf  hal.Buffer
	counterBuf hal.Buffer
	counterStg hal.Buffer
	vertexStg  hal.Buffer

	// Per-cloud points buffer, recreated when the cloud outgrows it.
	pointsBuf hal.Buffer
	pointsCap int

	bindGroup hal.BindGroup

	initialized bool
}

// New creates an uninitialized GPU reconstructor.
func New() *Reconstructor {
	return &Reconstructor{}
}

// Name returns the backend name.
func (r *Reconstructor) Name() string { return voxelmesh.BackendWGPU }

// Init acquires a GPU device and builds the four compute pipelines and
// the static table buffers. It returns an error when no usable adapter
// exists, leaving the reconstructor uninitialized.
func (r *Reconstructor) Init() error {
	if r.initialized {
		return nil
	}
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("voxelmesh: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("voxelmesh: create instance: %w", err)
	}
	r.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		r.Close()
		return fmt.Errorf("voxelmesh: no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		r.Close()
		return fmt.Errorf("voxelmesh: open device: %w", err)
	}
	r.device = openDev.Device
	r.queue = openDev.Queue

	if err := r.createPipelines(); err != nil {
		r.Close()
		return err
	}
	if err := r.createTableBuffers(); err != nil {
		r.Close()
		return err
	}

	r.initialized = true
	voxelmesh.Logger().Info("voxelmesh: GPU backend initialized",
		"adapter", selected.Info.Name)
	return nil
}

// Close releases every GPU resource. The reconstructor may be
// re-initialized afterwards.
func (r *Reconstructor) Close() {
	r.destroyGridBuffers()
	if r.device != nil {
		if r.pointsBuf != nil {
			r.device.DestroyBuffer(r.pointsBuf)
			r.pointsBuf = nil
			r.pointsCap = 0
		}
		if r.paramsBuf != nil {
			r.device.DestroyBuffer(r.paramsBuf)
			r.paramsBuf = nil
		}
		if r.edgeBuf != nil {
			r.device.DestroyBuffer(r.edgeBuf)
			r.edgeBuf = nil
		}
		if r.triBuf != nil {
			r.device.DestroyBuffer(r.triBuf)
			r.triBuf = nil
		}
		for i, p := range r.pipelines {
			if p != nil {
				r.device.DestroyComputePipeline(p)
				r.pipelines[i] = nil
			}
		}
		if r.pipeLayout != nil {
			r.device.DestroyPipelineLayout(r.pipeLayout)
			r.pipeLayout = nil
		}
		if r.bindLayout != nil {
			r.device.DestroyBindGroupLayout(r.bindLayout)
			r.bindLayout = nil
		}
		for i, s := range r.shaders {
			if s != nil {
				r.device.DestroyShaderModule(s)
				r.shaders[i] = nil
			}
		}
		r.device.Destroy()
		r.device = nil
	}
	if r.instance != nil {
		r.instance.Destroy()
		r.instance = nil
	}
	r.queue = nil
	r.resolution = 0
	r.initialized = false
}

// Initialized reports whether Init has succeeded.
func (r *Reconstructor) Initialized() bool { return r.initialized }

// Reconstruct encodes the four-pass pipeline, submits it with the
// triangle counter copied out, then reads back just the live vertex
// range in a second submission.
func (r *Reconstructor) Reconstruct(cloud *voxelmesh.PointCloud, params voxelmesh.Params) (*voxelmesh.Mesh, error) {
	if !r.initialized {
		return nil, voxelmesh.ErrNotInitialized
	}
	if cloud.Len() == 0 || params.Resolution < 2 {
		return &voxelmesh.Mesh{}, nil
	}

	if err := r.ensureGridBuffers(params.Resolution); err != nil {
		return nil, err
	}
	if err := r.uploadCloud(cloud); err != nil {
		return nil, err
	}

	n := params.Resolution
	capacity := voxelmesh.TriangleCapacity(n)
	bounds := voxelmesh.PaddedBounds(cloud.Positions, params)
	r.queue.WriteBuffer(r.paramsBuf, 0,
		packParams(bounds, n, cloud.Len(), capacity, params.IsoValue, params.SplatRadius))
	r.queue.WriteBuffer(r.counterBuf, 0, []byte{0, 0, 0, 0})

	if err := r.encodePipeline(n, cloud.Len()); err != nil {
		return nil, err
	}

	var counterRaw [4]byte
	if err := r.queue.ReadBuffer(r.counterStg, 0, counterRaw[:]); err != nil {
		return nil, fmt.Errorf("voxelmesh: read triangle counter: %w", err)
	}
	demand := int(binary.LittleEndian.Uint32(counterRaw[:]))
	count := demand
	if count > capacity {
		voxelmesh.Logger().Warn("voxelmesh: triangle buffer overflow, output truncated",
			"backend", r.Name(), "capacity", capacity, "demand", demand)
		count = capacity
	}
	if count == 0 {
		return &voxelmesh.Mesh{}, nil
	}

	raw, err := r.readVertices(count)
	if err != nil {
		return nil, err
	}
	return unpackMesh(raw, count), nil
}

// encodePipeline records the four passes plus the counter copy in one
// encoder, submits, and waits. Compute passes in a single encoder get
// implicit barriers on the storage buffers they share.
func (r *Reconstructor) encodePipeline(n, pointCount int) error {
	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "voxelmesh_encoder"})
	if err != nil {
		return fmt.Errorf("voxelmesh: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("voxelmesh_reconstruct"); err != nil {
		return fmt.Errorf("voxelmesh: begin encoding: %w", err)
	}

	cells := n * n * n
	dispatch := func(pipeline hal.ComputePipeline, label string, x, y, z uint32) {
		pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, r.bindGroup, nil)
		pass.Dispatch(x, y, z)
		pass.End()
	}

	dispatch(r.pipelines[passClear], "clear", groups(cells*4, 256), 1, 1)
	dispatch(r.pipelines[passSplat], "splat", groups(pointCount, 64), 1, 1)
	dispatch(r.pipelines[passNormalize], "normalize", groups(cells, 256), 1, 1)
	marchGroups := groups(n-1, 4)
	dispatch(r.pipelines[passMarch], "march", marchGroups, marchGroups, marchGroups)

	encoder.CopyBufferToBuffer(r.counterBuf, r.counterStg, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 4},
	})

	return r.submit(encoder)
}

// readVertices copies the live vertex range to the staging buffer in a
// second submission and reads it back.
func (r *Reconstructor) readVertices(count int) ([]byte, error) {
	size := uint64(count) * 3 * gpuVertexSize

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "voxelmesh_readback"})
	if err != nil {
		return nil, fmt.Errorf("voxelmesh: create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("voxelmesh_readback"); err != nil {
		return nil, fmt.Errorf("voxelmesh: begin readback encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(r.vertexBuf, r.vertexStg, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: size},
	})
	if err := r.submit(encoder); err != nil {
		return nil, err
	}

	raw := make([]byte, size)
	if err := r.queue.ReadBuffer(r.vertexStg, 0, raw); err != nil {
		return nil, fmt.Errorf("voxelmesh: read vertices: %w", err)
	}
	return raw, nil
}

func (r *Reconstructor) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("voxelmesh: end encoding: %w", err)
	}
	defer r.device.FreeCommandBuffer(cmdBuf)

	fence, err := r.device.CreateFence()
	if err != nil {
		return fmt.Errorf("voxelmesh: create fence: %w", err)
	}
	defer r.device.DestroyFence(fence)

	if err := r.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("voxelmesh: submit: %w", err)
	}
	ok, err := r.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("voxelmesh: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

func groups(work, size int) uint32 {
	return uint32((work + size - 1) / size) //nolint:gosec // dispatch counts fit uint32
}

// Pipeline indices, in pass order.
const (
	passClear = iota
	passSplat
	passNormalize
	passMarch
)

func (r *Reconstructor) createPipelines() error {
	sources := [4]struct {
		label string
		wgsl  string
	}{
		{"voxelmesh_clear", clearShaderSource},
		{"voxelmesh_splat", splatShaderSource},
		{"voxelmesh_normalize", normalizeShaderSource},
		{"voxelmesh_march", marchShaderSource},
	}

	for i, src := range sources {
		module, err := r.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
			Label:  src.label,
			Source: hal.ShaderSource{WGSL: src.wgsl},
		})
		if err != nil {
			return fmt.Errorf("voxelmesh: compile %s shader: %w", src.label, err)
		}
		r.shaders[i] = module
	}

	storage := func(binding uint32, readOnly bool) gputypes.BindGroupLayoutEntry {
		t := gputypes.BufferBindingTypeStorage
		if readOnly {
			t = gputypes.BufferBindingTypeReadOnlyStorage
		}
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: t},
		}
	}
	bindLayout, err := r.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "voxelmesh_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute,
				Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			storage(1, true),  // points
			storage(2, false), // accum
			storage(3, false), // field
			storage(4, true),  // edge table
			storage(5, true),  // tri table
			storage(6, false), // vertices
			storage(7, false), // counter
		},
	})
	if err != nil {
		return fmt.Errorf("voxelmesh: create bind group layout: %w", err)
	}
	r.bindLayout = bindLayout

	pipeLayout, err := r.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "voxelmesh_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{r.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("voxelmesh: create pipeline layout: %w", err)
	}
	r.pipeLayout = pipeLayout

	for i, src := range sources {
		pipeline, err := r.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
			Label: src.label, Layout: r.pipeLayout,
			Compute: hal.ComputeState{Module: r.shaders[i], EntryPoint: "main"},
		})
		if err != nil {
			return fmt.Errorf("voxelmesh: create %s pipeline: %w", src.label, err)
		}
		r.pipelines[i] = pipeline
	}
	return nil
}

// createTableBuffers uploads the marching-cubes tables once; they are
// immutable for the life of the device.
func (r *Reconstructor) createTableBuffers() error {
	edge := mctables.EdgeTableU32()
	edgeBytes := make([]byte, len(edge)*4)
	for i, v := range edge {
		binary.LittleEndian.PutUint32(edgeBytes[i*4:], v)
	}
	tri := mctables.TriTableI32()
	triBytes := make([]byte, len(tri)*4)
	for i, v := range tri {
		binary.LittleEndian.PutUint32(triBytes[i*4:], uint32(v)) //nolint:gosec // two's complement round-trip
	}

	var err error
	r.paramsBuf, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "voxelmesh_params", Size: uint64(unsafe.Sizeof(gpuParams{})),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("voxelmesh: create params buffer: %w", err)
	}
	r.edgeBuf, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "voxelmesh_edge_table", Size: uint64(len(edgeBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("voxelmesh: create edge table buffer: %w", err)
	}
	r.triBuf, err = r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "voxelmesh_tri_table", Size: uint64(len(triBytes)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("voxelmesh: create tri table buffer: %w", err)
	}
	r.queue.WriteBuffer(r.edgeBuf, 0, edgeBytes)
	r.queue.WriteBuffer(r.triBuf, 0, triBytes)
	return nil
}

// ensureGridBuffers (re)creates the resolution-dependent buffers and the
// bind group. No-op when the resolution is unchanged.
func (r *Reconstructor) ensureGridBuffers(n int) error {
	if r.resolution == n && r.accumBuf != nil {
		return nil
	}
	r.destroyGridBuffers()

	cells := uint64(n) * uint64(n) * uint64(n)
	vertexSize := uint64(voxelmesh.TriangleCapacity(n)) * 3 * gpuVertexSize

	create := func(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
		buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{Label: label, Size: size, Usage: usage})
		if err != nil {
			return nil, fmt.Errorf("voxelmesh: create %s buffer: %w", label, err)
		}
		return buf, nil
	}

	var err error
	if r.accumBuf, err = create("voxelmesh_accum", cells*4*4,
		gputypes.BufferUsageStorage); err != nil {
		return err
	}
	if r.fieldBuf, err = create("voxelmesh_field", cells*16,
		gputypes.BufferUsageStorage); err != nil {
		return err
	}
	if r.vertexBuf, err = create("voxelmesh_vertices", vertexSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc); err != nil {
		return err
	}
	if r.counterBuf, err = create("voxelmesh_counter", 4,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	if r.counterStg, err = create("voxelmesh_counter_staging", 4,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}
	if r.vertexStg, err = create("voxelmesh_vertex_staging", vertexSize,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst); err != nil {
		return err
	}

	r.resolution = n
	return r.recreateBindGroup()
}

// uploadCloud writes the packed points, growing the points buffer when
// the cloud outgrows it (which also forces a new bind group).
func (r *Reconstructor) uploadCloud(cloud *voxelmesh.PointCloud) error {
	var colors = cloud.Colors
	if !cloud.HasColors() {
		colors = nil
	}
	data := packPoints(cloud.Positions, colors)

	if cloud.Len() > r.pointsCap {
		if r.pointsBuf != nil {
			r.device.DestroyBuffer(r.pointsBuf)
			r.pointsBuf = nil
		}
		buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "voxelmesh_points", Size: uint64(len(data)),
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("voxelmesh: create points buffer: %w", err)
		}
		r.pointsBuf = buf
		r.pointsCap = cloud.Len()
		if err := r.recreateBindGroup(); err != nil {
			return err
		}
	}
	r.queue.WriteBuffer(r.pointsBuf, 0, data)
	return nil
}

func (r *Reconstructor) recreateBindGroup() error {
	if r.pointsBuf == nil || r.accumBuf == nil {
		// Bind group needs every buffer; built once both exist.
		return nil
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}

	cells := uint64(r.resolution) * uint64(r.resolution) * uint64(r.resolution)
	vertexSize := uint64(voxelmesh.TriangleCapacity(r.resolution)) * 3 * gpuVertexSize
	entry := func(binding uint32, buf hal.Buffer, size uint64) gputypes.BindGroupEntry {
		return gputypes.BindGroupEntry{
			Binding:  binding,
			Resource: gputypes.BufferBinding{Buffer: buf.NativeHandle(), Offset: 0, Size: size},
		}
	}

	bg, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "voxelmesh_bind", Layout: r.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			entry(0, r.paramsBuf, uint64(unsafe.Sizeof(gpuParams{}))),
			entry(1, r.pointsBuf, uint64(r.pointsCap)*uint64(unsafe.Sizeof(gpuPoint{}))),
			entry(2, r.accumBuf, cells*4*4),
			entry(3, r.fieldBuf, cells*16),
			entry(4, r.edgeBuf, 256*4),
			entry(5, r.triBuf, 256*16*4),
			entry(6, r.vertexBuf, vertexSize),
			entry(7, r.counterBuf, 4),
		},
	})
	if err != nil {
		return fmt.Errorf("voxelmesh: create bind group: %w", err)
	}
	r.bindGroup = bg
	return nil
}

func (r *Reconstructor) destroyGridBuffers() {
	if r.device == nil {
		return
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
		r.bindGroup = nil
	}
	for _, buf := range []*hal.Buffer{&r.accumBuf, &r.fieldBuf, &r.vertexBuf, &r.counterBuf, &r.counterStg, &r.vertexStg} {
		if *buf != nil {
			r.device.DestroyBuffer(*buf)
			*buf = nil
		}
	}
}
