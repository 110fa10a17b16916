// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"sync"

	"github.com/cflux/fgraph/driver"
)

// Disposer is implemented by a Persistent[D] registry (the only kind a
// DisposalQueue targets: Transient slots are already reclaimed in bulk
// by Clear and never need individual disposal).
type Disposer interface {
	Dispose(h driver.Handle)
}

// DisposalQueue defers releasing a persistent resource until it is
// safe to do so — either the end of the current frame (the common
// case, so a resource still referenced by in-flight GPU work is not
// reclaimed out from under it) or immediately, for callers that have
// already confirmed no outstanding command stream touches the handle
// (spec.md §4.C "disposal queue").
type DisposalQueue struct {
	mu       sync.Mutex
	deferred []pendingDisposal
}

type pendingDisposal struct {
	target Disposer
	handle driver.Handle
}

// Enqueue defers h's disposal on target until Drain is next called.
func (q *DisposalQueue) Enqueue(target Disposer, h driver.Handle) {
	q.mu.Lock()
	q.deferred = append(q.deferred, pendingDisposal{target, h})
	q.mu.Unlock()
}

// DisposeNow disposes h on target immediately, bypassing the deferred
// queue. The caller is responsible for knowing no in-flight command
// stream still references h (atEndOfFrame=false in spec.md's terms).
func (q *DisposalQueue) DisposeNow(target Disposer, h driver.Handle) {
	target.Dispose(h)
}

// Drain disposes every handle enqueued since the last Drain, in FIFO
// order, and clears the queue. It is meant to be called once per
// frame, after the FrameGraph has confirmed the frame's GPU work is
// either complete or has itself been retired by the queue that used
// the resource (spec.md §4.E frame completion gates this).
func (q *DisposalQueue) Drain() {
	q.mu.Lock()
	pending := q.deferred
	q.deferred = nil
	q.mu.Unlock()

	for _, p := range pending {
		p.target.Dispose(p.handle)
	}
}

// Len reports how many disposals are currently pending.
func (q *DisposalQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deferred)
}
