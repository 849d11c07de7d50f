// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package voxelmesh

import (
	"errors"
	"slices"
	"testing"
)

// fakeReconstructor is a minimal backend for registry tests.
type fakeReconstructor struct {
	name    string
	initErr error
	inited  bool
	closed  bool
}

func (f *fakeReconstructor) Name() string { return f.name }
func (f *fakeReconstructor) Init() error {
	if f.initErr != nil {
		return f.initErr
	}
	f.inited = true
	return nil
}
func (f *fakeReconstructor) Close()            { f.closed = true; f.inited = false }
func (f *fakeReconstructor) Initialized() bool { return f.inited }
func (f *fakeReconstructor) Reconstruct(*PointCloud, Params) (*Mesh, error) {
	if !f.inited {
		return nil, ErrNotInitialized
	}
	return &Mesh{}, nil
}

func TestRegisterAndGet(t *testing.T) {
	Register("test-fake", func() Reconstructor { return &fakeReconstructor{name: "test-fake"} })
	defer Unregister("test-fake")

	r := Get("test-fake")
	if r == nil {
		t.Fatal("Get returned nil for registered backend")
	}
	if r.Name() != "test-fake" {
		t.Errorf("Name = %q, want test-fake", r.Name())
	}
	if r.Initialized() {
		t.Error("factory returned an initialized reconstructor")
	}

	if !slices.Contains(Available(), "test-fake") {
		t.Errorf("Available() = %v, missing test-fake", Available())
	}
}

func TestGetUnknown(t *testing.T) {
	if r := Get("no-such-backend"); r != nil {
		t.Errorf("Get(unknown) = %v, want nil", r)
	}
}

func TestRegisterNilPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Register(nil) did not panic")
		}
	}()
	Register("bad", nil)
}

func TestInitDefaultPriority(t *testing.T) {
	// Temporarily hide any real backends registered by imports.
	saved := snapshotRegistry()
	defer restoreRegistry(saved)

	var wgpuTried bool
	Register(BackendWGPU, func() Reconstructor {
		wgpuTried = true
		return &fakeReconstructor{name: BackendWGPU, initErr: errors.New("no adapter")}
	})
	Register(BackendNative, func() Reconstructor {
		return &fakeReconstructor{name: BackendNative}
	})

	r, err := InitDefault()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if !wgpuTried {
		t.Error("highest-priority backend was never tried")
	}
	if r.Name() != BackendNative {
		t.Errorf("selected %q, want fallback %q", r.Name(), BackendNative)
	}
	if !r.Initialized() {
		t.Error("InitDefault returned an uninitialized reconstructor")
	}
}

func TestInitDefaultNoBackends(t *testing.T) {
	saved := snapshotRegistry()
	defer restoreRegistry(saved)

	if _, err := InitDefault(); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("err = %v, want ErrBackendNotAvailable", err)
	}
}

func snapshotRegistry() map[string]Factory {
	registryMu.Lock()
	defer registryMu.Unlock()
	saved := factories
	factories = make(map[string]Factory)
	return saved
}

func restoreRegistry(saved map[string]Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories = saved
}
