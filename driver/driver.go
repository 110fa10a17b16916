// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines the boundary between the FrameGraph core and a
// concrete GPU backend (Metal, Vulkan, D3D12, ...). It declares the
// resource descriptors, handles, and backend/reflection interfaces the
// core consumes; it implements none of them. A backend registers itself
// from its own init function and is later selected by name.
package driver

import (
	"errors"
	"log"
	"sync"
)

// Backend is the interface that provides methods for loading and
// unloading a concrete RenderBackend implementation.
// It mirrors the load/unload split of a GPU driver: Open is expected to
// be expensive (device enumeration, context creation) and Close releases
// whatever Open acquired.
type Backend interface {
	// Open initializes the backend and returns the RenderBackend that the
	// FrameGraph core will drive for the remainder of the process (or
	// until Close). Callers should assume Open is not safe for parallel
	// execution.
	Open() (RenderBackend, error)

	// Name returns the name of the backend. It must not cause the
	// backend to be opened.
	Name() string

	// Close deinitializes the backend. Closing a backend that is not
	// open has no effect.
	Close()
}

// Errors returned by Backend.Open implementations.
var (
	ErrNotInstalled  = errors.New("driver: missing required library")
	ErrNoDevice      = errors.New("driver: no suitable device found")
	ErrNoHostMemory  = errors.New("driver: out of host memory")
	ErrNoDeviceMemory = errors.New("driver: out of device memory")
	ErrFatal         = errors.New("driver: fatal error")
)

// Backends returns the registered Backends.
func Backends() []Backend {
	mu.Lock()
	defer mu.Unlock()
	b := make([]Backend, len(backends))
	copy(b, backends)
	return b
}

// Register registers a Backend.
// Backend implementations are expected to call Register exactly once,
// from an init function. If a backend with the same name has already
// been registered, it will be replaced by b.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	for i := range backends {
		if backends[i].Name() == b.Name() {
			backends[i] = b
			log.Printf("[!] backend '%s' replaced", b.Name())
			return
		}
	}
	backends = append(backends, b)
	log.Printf("backend '%s' registered", b.Name())
}

var (
	mu       sync.Mutex
	backends []Backend = make([]Backend, 0, 1)
)
