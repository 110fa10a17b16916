// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package fgraph

import "github.com/cflux/fgraph/record"

// PassType distinguishes the kind of work a Pass records, which in
// turn determines which record.Recorder methods are meaningful and
// which queue class the work is eligible to run on.
type PassType int

// Pass types.
const (
	RenderPass PassType = iota
	ComputePass
	BlitPass
	// ExternalPass wraps a single record.EncodeExternalCommand; the
	// FrameGraph does not attempt to interpret its usage at all: the
	// command emits no usage.Record, and a Pass carries no separate
	// resource-dependency declarations.
	ExternalPass
	// CPUPass runs Func for its side effects and records no GPU
	// commands; it exists so a frame's dependency graph can include
	// CPU-side bookkeeping (e.g. readback completion callbacks)
	// without inventing a second scheduling mechanism.
	CPUPass
)

// String implements fmt.Stringer.
func (t PassType) String() string {
	switch t {
	case RenderPass:
		return "render"
	case ComputePass:
		return "compute"
	case BlitPass:
		return "blit"
	case ExternalPass:
		return "external"
	case CPUPass:
		return "cpu"
	default:
		return "PassType(?)"
	}
}

// Pass is one node of a frame's dependency graph: a named unit of
// recorded work, the queue it is destined for, and the Func that
// records it against a fresh record.Recorder during Compile.
type Pass struct {
	Name       string
	Type       PassType
	QueueIndex int
	Func       func(*record.Recorder)

	recorder      record.Recorder
	queueCommand  uint64
	recordedIndex int
}

// Recorder returns the Pass's recorder, valid only after Compile has
// run this pass's Func.
func (p *Pass) Recorder() *record.Recorder { return &p.recorder }

// QueueCommand returns the command index this pass was submitted at on
// its queue, valid only after Execute.
func (p *Pass) QueueCommand() uint64 { return p.queueCommand }
