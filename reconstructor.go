// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package voxelmesh

import (
	"errors"
	"sync"
)

// Reconstruction errors.
var (
	// ErrNotInitialized is returned by Reconstruct when the backend's
	// compute capability is absent or Init has not succeeded. The state
	// is permanent until the reconstructor is re-initialized.
	ErrNotInitialized = errors.New("voxelmesh: reconstructor not initialized")

	// ErrBackendNotAvailable is returned by InitDefault when no
	// registered backend can be initialized.
	ErrBackendNotAvailable = errors.New("voxelmesh: no reconstruction backend available")

	// ErrNilReconstructor is returned when a nil factory or
	// reconstructor is registered.
	ErrNilReconstructor = errors.New("voxelmesh: reconstructor must not be nil")
)

// Registered backend names.
const (
	// BackendWGPU is the parallel compute-shader pipeline
	// (import github.com/gogpu/voxelmesh/backend/wgpu).
	BackendWGPU = "wgpu"

	// BackendNativeParallel is the pool-parallel CPU pipeline running
	// the same quantized integer math as the GPU variant.
	BackendNativeParallel = "native-parallel"

	// BackendNative is the single-threaded reference implementation.
	BackendNative = "native"
)

// Reconstructor turns a point cloud into a triangle mesh. Implementations
// own their grid and output buffers exclusively; no two reconstructions
// may run concurrently against the same instance.
type Reconstructor interface {
	// Name returns the backend name (e.g. "wgpu", "native").
	Name() string

	// Init acquires compute resources. It reports capability absence
	// (no usable GPU adapter) as an error; the reconstructor then stays
	// unusable until Init succeeds.
	Init() error

	// Close releases all resources. The reconstructor may be
	// re-initialized afterwards.
	Close()

	// Initialized reports whether Init has succeeded. Callers must
	// check this (or handle ErrNotInitialized) before reconstructing.
	Initialized() bool

	// Reconstruct builds a mesh from the cloud under the given
	// parameters. An empty cloud or a surface-free field returns an
	// empty mesh, never an error. The returned mesh is owned by the
	// caller and detached from the reconstructor's internal buffers.
	Reconstruct(cloud *PointCloud, params Params) (*Mesh, error)
}

// Factory creates a new, uninitialized reconstructor instance.
type Factory func() Reconstructor

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)

	// Priority order for default selection (first available wins).
	// GPU > parallel CPU > sequential reference.
	priority = []string{BackendWGPU, BackendNativeParallel, BackendNative}
)

// Register registers a reconstructor factory under the given name.
// Backend packages call this from init(); users enable a backend with a
// blank import. Registering the same name again replaces the factory.
func Register(name string, factory Factory) {
	if factory == nil {
		panic(ErrNilReconstructor)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes a backend from the registry. Useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the names of all registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// Get returns a new, uninitialized reconstructor by backend name, or nil
// if no such backend is registered.
func Get(name string) Reconstructor {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if factory, ok := factories[name]; ok {
		return factory()
	}
	return nil
}

// InitDefault returns an initialized reconstructor from the highest-
// priority backend that initializes successfully. Backends whose Init
// fails (typically: no GPU adapter) are closed and skipped, falling
// through to the CPU implementations.
func InitDefault() (Reconstructor, error) {
	registryMu.RLock()
	ordered := make([]Factory, 0, len(factories))
	for _, name := range priority {
		if factory, ok := factories[name]; ok {
			ordered = append(ordered, factory)
		}
	}
	for name, factory := range factories {
		if !isPriority(name) {
			ordered = append(ordered, factory)
		}
	}
	registryMu.RUnlock()

	for _, factory := range ordered {
		r := factory()
		if r == nil {
			continue
		}
		if err := r.Init(); err != nil {
			Logger().Warn("voxelmesh: backend unavailable",
				"backend", r.Name(), "err", err)
			r.Close()
			continue
		}
		return r, nil
	}
	return nil, ErrBackendNotAvailable
}

func isPriority(name string) bool {
	for _, p := range priority {
		if p == name {
			return true
		}
	}
	return false
}
