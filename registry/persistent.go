// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"fmt"
	"sync"

	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/internal/bitvec"
)

// Persistent is a chunked, generation-versioned registry for resources
// that survive across frames (spec.md §4.C). Index allocation never
// moves an existing slot: growth only appends a new chunk, so a *Slot
// obtained from Get stays valid (modulo generation) for as long as the
// registry itself lives.
//
// Live indices are tracked in a bitvec.V rather than a free-list slice:
// Allocate searches it for an unset (free) bit, Dispose clears the bit
// it occupied, and its generation is bumped so a Handle captured before
// disposal fails its generation check rather than silently referring to
// whatever resource now occupies the slot.
type Persistent[D any] struct {
	mu         sync.RWMutex
	typ        driver.ResourceType
	chunks     [][]Slot[D]
	generation []uint8
	alloc      bitvec.V[uint64]
	len        int
}

// NewPersistent returns an empty Persistent registry for resources of
// type typ (the tag stamped into every Handle it allocates).
func NewPersistent[D any](typ driver.ResourceType) *Persistent[D] {
	return &Persistent[D]{typ: typ}
}

// Allocate reserves a slot for desc, labeled label, and returns the
// Handle naming it. flags is OR'd with driver.FlagPersistent (every
// handle from this registry is persistent by construction).
func (r *Persistent[D]) Allocate(desc D, label string, flags driver.HandleFlags) driver.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	free, ok := r.alloc.Search()
	if !ok {
		free = r.alloc.Grow(1)
	}
	idx := int32(free)
	r.alloc.Set(free)
	if int(idx) >= r.len {
		r.len = int(idx) + 1
	}
	if int(idx)/chunkItems == len(r.chunks) {
		r.chunks = append(r.chunks, make([]Slot[D], chunkItems))
		r.generation = append(r.generation, make([]uint8, chunkItems)...)
	}

	s := r.slotAt(idx)
	*s = Slot[D]{Descriptor: desc, Label: label, state: slotAllocated}
	gen := r.genAt(idx)
	s.generation = *gen

	return driver.NewHandle(int(idx), *gen, r.typ, flags|driver.FlagPersistent)
}

// Get returns the slot h refers to. ok is false if h's generation does
// not match the slot's current generation (the slot was disposed and
// possibly reallocated since h was captured) or h's type tag does not
// match this registry.
func (r *Persistent[D]) Get(h driver.Handle) (*Slot[D], bool) {
	if h.Type() != r.typ {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := h.Index()
	if idx < 0 || idx >= r.len {
		return nil, false
	}
	s := r.slotAt(int32(idx))
	if s.state != slotAllocated || s.generation != h.Generation() {
		return nil, false
	}
	return s, true
}

// Dispose frees h's slot immediately, bumping its generation so any
// other copy of h fails future Get calls. Disposing an already-stale
// or already-free handle is a no-op.
func (r *Persistent[D]) Dispose(h driver.Handle) {
	if h.Type() != r.typ {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := h.Index()
	if idx < 0 || idx >= r.len {
		return
	}
	s := r.slotAt(int32(idx))
	if s.state != slotAllocated || s.generation != h.Generation() {
		return
	}
	*s = Slot[D]{}
	gen := r.genAt(int32(idx))
	*gen++
	r.alloc.Unset(idx)
}

// Len returns the number of slots ever allocated (including currently
// free ones), i.e. the high-water mark of index space in use.
func (r *Persistent[D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.len
}

func (r *Persistent[D]) slotAt(idx int32) *Slot[D] {
	return &r.chunks[idx/chunkItems][idx%chunkItems]
}

func (r *Persistent[D]) genAt(idx int32) *uint8 {
	return &r.generation[idx]
}

// String aids debugging; it is not used by the core itself.
func (r *Persistent[D]) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("registry.Persistent[%s]{len:%d, free:%d}", r.typ, r.len, r.alloc.Rem())
}
