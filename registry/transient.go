// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"sync/atomic"

	"github.com/cflux/fgraph/driver"
)

// transientCapacity is the fixed, power-of-two slot count of a
// Transient registry (spec.md §4.C). Exceeding it within one frame is
// a usage error: transient resources are meant to be cheap, per-pass
// scratch allocations, not a substitute for the Persistent registry.
const transientCapacity = 1 << 14

// Transient is a bump-allocated registry for resources that live for
// at most one frame (spec.md §4.C). Allocate is lock-free (a single
// atomic add); Clear is not safe to call concurrently with Allocate or
// Get and must only run at frame boundaries, after the backend has
// consumed the frame's command stream.
//
// A Transient handle's generation field holds the low 8 bits of the
// frame index it was allocated in, so a handle accidentally retained
// past its frame's Clear is caught by the normal generation check
// rather than aliasing whatever now occupies its slot.
type Transient[D any] struct {
	typ   driver.ResourceType
	slots [transientCapacity]Slot[D]
	next  atomic.Int64
	frame atomic.Uint32
}

// NewTransient returns an empty Transient registry for resources of
// type typ.
func NewTransient[D any](typ driver.ResourceType) *Transient[D] {
	return &Transient[D]{typ: typ}
}

// Allocate reserves the next free slot for desc and returns its
// Handle. It panics if the registry's fixed capacity is exceeded
// within a single frame, per spec.md §4.C ("a fixed power-of-two
// capacity").
func (r *Transient[D]) Allocate(desc D, label string) driver.Handle {
	idx := r.next.Add(1) - 1
	if idx >= transientCapacity {
		panic("registry: transient registry capacity exceeded for this frame")
	}
	gen := uint8(r.frame.Load())
	s := &r.slots[idx]
	*s = Slot[D]{Descriptor: desc, Label: label, state: slotAllocated, generation: gen}
	return driver.NewHandle(int(idx), gen, r.typ, 0)
}

// Get returns the slot h refers to, or ok=false if h names a slot from
// a stale frame or the wrong resource type.
func (r *Transient[D]) Get(h driver.Handle) (*Slot[D], bool) {
	if h.Type() != r.typ {
		return nil, false
	}
	idx := h.Index()
	if idx < 0 || int64(idx) >= r.next.Load() || idx >= transientCapacity {
		return nil, false
	}
	s := &r.slots[idx]
	if s.state != slotAllocated || s.generation != h.Generation() {
		return nil, false
	}
	return s, true
}

// Len reports how many slots are currently live this frame.
func (r *Transient[D]) Len() int {
	n := r.next.Load()
	if n > transientCapacity {
		n = transientCapacity
	}
	return int(n)
}

// Clear resets the registry for a new frame, invalidating every handle
// allocated in the frame just ended. It must be called exactly once
// per frame, after the backend has finished consuming that frame's
// recorded work, and never concurrently with Allocate/Get.
func (r *Transient[D]) Clear() {
	n := r.Len()
	var zero Slot[D]
	for i := 0; i < n; i++ {
		r.slots[i] = zero
	}
	r.next.Store(0)
	r.frame.Add(1)
}
