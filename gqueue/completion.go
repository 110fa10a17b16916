// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package gqueue

import "sync/atomic"

// FrameCompletion is the single canonical tracker of how far GPU
// execution has progressed through submitted frames (spec.md §4.E /
// §9 "a single canonical FrameCompletion"; earlier designs that let
// each Queue track frame completion independently could disagree about
// which frame had retired, which is why this type exists as one
// instance owned by the FrameGraph rather than duplicated per queue).
type FrameCompletion struct {
	lastCompletedFrame atomic.Uint64
}

// LastCompletedFrame returns the highest frame index known to have
// fully retired.
func (f *FrameCompletion) LastCompletedFrame() uint64 { return f.lastCompletedFrame.Load() }

// MarkFrameComplete advances the completed-frame counter to frame,
// monotonically: a smaller or equal value is a no-op. Multiple queues
// may race to report the same frame complete (the last of several
// queues used within it to finish); the CAS loop makes the highest
// reported value win regardless of arrival order.
func (f *FrameCompletion) MarkFrameComplete(frame uint64) {
	for {
		cur := f.lastCompletedFrame.Load()
		if frame <= cur {
			return
		}
		if f.lastCompletedFrame.CompareAndSwap(cur, frame) {
			return
		}
	}
}

// WaitForFrame blocks the calling goroutine until frame has retired,
// spin-yielding between checks.
func (f *FrameCompletion) WaitForFrame(frame uint64) {
	for f.LastCompletedFrame() < frame {
		procYield()
	}
}
