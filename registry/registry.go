// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package registry implements the two resource registries described in
// spec.md §4.C: a chunked, generation-versioned Persistent registry for
// resources that outlive a single frame, and a bump-allocated Transient
// registry that is cleared wholesale at the end of each frame. Both
// hand out driver.Handle values; a stale handle (wrong generation) is
// detected rather than silently aliasing a reused slot.
package registry

import (
	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/usage"
)

// chunkItems is the number of slots per chunk. Chunks are allocated
// lazily as Allocate needs more room, so an idle registry costs nothing
// beyond the Persistent struct itself — the same lazy-growth idiom as
// internal/bitvec's Grow.
const chunkItems = 256

// QueueCommandIndices is an 8-wide vector of per-queue command indices,
// one per possible gqueue.Queue slot (spec.md §4.C/§4.E cap queues at
// 8). A registry slot keeps one of these for the last command that
// read it and one for the last command that wrote it, so a later pass
// on a different queue knows how far to wait.
type QueueCommandIndices [8]uint64

// slotState is the lifecycle state of a persistent registry slot.
type slotState uint8

const (
	slotFree slotState = iota
	slotAllocated
	slotDisposing // enqueued for disposal, not yet reclaimed.
)

// Slot is the per-resource bookkeeping a registry keeps alongside the
// backend descriptor: its usage history for the current frame, the
// heap it was suballocated from (if any), a debug label, and the
// queue-wait vectors used to synchronise across queues.
type Slot[D any] struct {
	Descriptor D
	Label      string
	OwningHeap driver.Handle
	Usages     usage.List

	// Resource is the backend-opaque handle (a driver.Buffer or
	// driver.Texture) materialized for this slot, or nil before the
	// first materialisation. It lets a FrameGraph map a command's
	// resource operand back to this slot for usage-record splicing,
	// since the recorder only ever deals in the backend-opaque value.
	Resource any

	LastRead  QueueCommandIndices
	LastWrite QueueCommandIndices

	state      slotState
	generation uint8
}

// IsAllocated reports whether the slot currently backs a live handle.
func (s *Slot[D]) IsAllocated() bool { return s.state == slotAllocated }
