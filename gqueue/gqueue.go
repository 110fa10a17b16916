// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package gqueue implements the fixed-cardinality GPU queue and
// cross-frame completion tracking described in spec.md §4.E: each
// Queue hands out monotonically increasing command indices and
// answers "has command N retired" without taking a lock, and a single
// process-wide-per-FrameGraph FrameCompletion ratchets the completed
// frame counter forward as queues retire the work belonging to it.
package gqueue

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MaxQueues is the largest number of Queues a Manager can hand out
// (spec.md §4.E caps queue cardinality at 8 so that a resource's
// per-queue wait vectors, registry.QueueCommandIndices, fit inline).
const MaxQueues = 8

// Queue is a single GPU submission queue: a monotonic counter of the
// last command index submitted to it, and one of the last command
// index the backend has reported complete. Both counters only ever
// increase, so a reader can sample lastCompleted with a relaxed atomic
// load and compare against a previously-recorded index without any
// lock.
//
// CacheLinePad keeps adjacent Queue slots in a Manager's array from
// false-sharing the same cache line during the high-frequency
// Submit/MarkCompleted traffic of separate queues.
type Queue struct {
	_ cpu.CacheLinePad
	lastSubmitted atomic.Uint64
	lastCompleted atomic.Uint64
	_             cpu.CacheLinePad
}

// Submit reserves and returns the next command index on q.
func (q *Queue) Submit() uint64 {
	return q.lastSubmitted.Add(1)
}

// LastSubmitted returns the last command index reserved by Submit.
func (q *Queue) LastSubmitted() uint64 { return q.lastSubmitted.Load() }

// LastCompleted returns the last command index the backend has
// reported as retired.
func (q *Queue) LastCompleted() uint64 { return q.lastCompleted.Load() }

// MarkCompleted records that every command up to and including index
// has retired on q. It monotonically advances lastCompleted: a
// late-arriving, smaller index is ignored rather than regressing the
// counter (backends may report completions out of submission order
// across separate callback threads).
func (q *Queue) MarkCompleted(index uint64) {
	for {
		cur := q.lastCompleted.Load()
		if index <= cur {
			return
		}
		if q.lastCompleted.CompareAndSwap(cur, index) {
			return
		}
	}
}

// IsComplete reports whether command index has retired on q.
func (q *Queue) IsComplete(index uint64) bool { return q.lastCompleted.Load() >= index }

// Manager owns a fixed array of Queues and hands them out by index,
// tracking which slots are in use with a bitmask (spec.md §4.E "O(1)
// bitmask-based queue allocation").
type Manager struct {
	queues [MaxQueues]Queue
	inUse  atomic.Uint32 // bit i set iff queues[i] is allocated.
}

// Acquire claims the lowest-numbered free Queue slot and returns a
// pointer to it along with its index. ok is false if every slot is in
// use.
func (m *Manager) Acquire() (q *Queue, index int, ok bool) {
	for {
		cur := m.inUse.Load()
		if cur == 1<<MaxQueues-1 {
			return nil, 0, false
		}
		free := ^cur & (1<<MaxQueues - 1)
		i := trailingZeros32(free)
		if m.inUse.CompareAndSwap(cur, cur|1<<uint(i)) {
			return &m.queues[i], i, true
		}
	}
}

// Release returns the Queue at index to the free pool. The queue's
// counters are left untouched: a Queue slot is reused only once its
// prior occupant's work is known complete, so a reader that raced the
// release still observes monotonically increasing counters.
func (m *Manager) Release(index int) {
	for {
		cur := m.inUse.Load()
		if m.inUse.CompareAndSwap(cur, cur&^(1<<uint(index))) {
			return
		}
	}
}

// At returns the Queue at index without acquiring it, for callers that
// already hold a valid index (e.g. from a Pass record).
func (m *Manager) At(index int) *Queue { return &m.queues[index] }

func trailingZeros32(x uint32) int {
	if x == 0 {
		return 32
	}
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}
