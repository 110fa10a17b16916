// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package record implements the per-pass command recorder: a scratch
// arena of tagged-union commands (spec.md §4.D), and the binding state
// machine that resolves pending binds against a PipelineReflection,
// deduplicates redundant rebinds, and tracks the UAV read-write set and
// render-target attachment usage needed to synthesize barriers.
package record

import (
	"github.com/cflux/fgraph/driver"
)

// CommandType tags a Command's payload (spec.md §4.D's command stream).
type CommandType int

// Command types.
const (
	SetBytes CommandType = iota
	SetBuffer
	SetBufferOffset
	SetTexture
	SetSamplerState
	SetArgumentBuffer
	SetArgumentBufferArray
	SetVertexBuffer
	SetVertexBufferOffset
	SetViewport
	SetScissorRect
	SetDepthStencilDescriptor
	SetRenderPipelineDescriptor
	SetComputePipelineDescriptor

	DrawPrimitives
	DrawIndexedPrimitives
	DispatchThreads
	DispatchThreadgroups
	DispatchThreadgroupsIndirect

	CopyBufferToBuffer
	CopyBufferToTexture
	CopyTextureToBuffer
	CopyTextureToTexture
	FillBuffer
	GenerateMipmaps

	SynchroniseBuffer
	SynchroniseTexture
	SynchroniseTextureSlice

	ClearRenderTargets
	EncodeExternalCommand

	PushDebugGroup
	PopDebugGroup
	InsertDebugSignpost
)

// String implements fmt.Stringer.
func (t CommandType) String() string {
	names := [...]string{
		"setBytes", "setBuffer", "setBufferOffset", "setTexture",
		"setSamplerState", "setArgumentBuffer", "setArgumentBufferArray",
		"setVertexBuffer", "setVertexBufferOffset", "setViewport",
		"setScissorRect", "setDepthStencilDescriptor",
		"setRenderPipelineDescriptor", "setComputePipelineDescriptor",
		"drawPrimitives", "drawIndexedPrimitives", "dispatchThreads",
		"dispatchThreadgroups", "dispatchThreadgroupsIndirect",
		"copyBufferToBuffer", "copyBufferToTexture", "copyTextureToBuffer",
		"copyTextureToTexture", "fillBuffer", "generateMipmaps",
		"synchroniseBuffer", "synchroniseTexture", "synchroniseTextureSlice",
		"clearRenderTargets", "encodeExternalCommand",
		"pushDebugGroup", "popDebugGroup", "insertDebugSignpost",
	}
	if int(t) < 0 || int(t) >= len(names) {
		return "CommandType(?)"
	}
	return names[t]
}

// Command is one entry of a pass's recorded command stream. Rather
// than a pointer-heavy interface per command type, every command is
// this one fixed-size struct with a Type tag: the arena that owns them
// is a flat []Command, so a Recorder deals in indices into that slice
// (spec.md §9 "command stream as indices into a typed command pool,
// not raw pointer mutation") instead of individually heap-allocated
// nodes.
type Command struct {
	Type CommandType

	// Path names the bound resource slot for Set* commands, resolved
	// against the active PipelineReflection (zero if not yet resolved;
	// see binding.go).
	Path driver.ResourceBindingPath

	// Resource is the backend-opaque handle for Set*/Copy*/Synchronise*
	// commands (a driver.Buffer, driver.Texture, driver.Sampler or
	// driver.ArgumentBufferHandle depending on Type).
	Resource any
	// Resource2 is the second resource operand for two-resource copies.
	Resource2 any

	Offset, Offset2 int64
	Length          int64
	Index           int // array slot within an argument-buffer-array bind.
	Stages          driver.Stage

	Bytes []byte // SetBytes payload.

	// Draw/dispatch parameters. Only the fields relevant to Type are
	// meaningful; the rest are zero.
	VertexStart, VertexCount     int
	IndexCount, InstanceCount    int
	BaseVertex, BaseInstance     int
	ThreadsX, ThreadsY, ThreadsZ int
	GroupsX, GroupsY, GroupsZ    int

	// Label carries a debug-group/signpost string, or an external
	// command's description.
	Label string

	// External carries the opaque payload of an EncodeExternalCommand
	// (a closure or backend-specific token the core never inspects).
	External any
}

// Arena is the per-pass scratch buffer of recorded Commands. A Pass
// owns exactly one Arena; it is cleared (not deallocated) by
// Recorder.Reset before the pass records again, so steady-state
// recording after the first few frames causes no further allocation.
type Arena struct {
	commands []Command
}

// Append appends cmd and returns its index within the arena.
func (a *Arena) Append(cmd Command) int {
	a.commands = append(a.commands, cmd)
	return len(a.commands) - 1
}

// At returns a pointer to the command at index, for in-place edits.
func (a *Arena) At(index int) *Command { return &a.commands[index] }

// Len returns the number of recorded commands.
func (a *Arena) Len() int { return len(a.commands) }

// Commands returns the arena's contents in recording order. The
// returned slice aliases the Arena's backing array.
func (a *Arena) Commands() []Command { return a.commands }

// Reset discards all recorded commands but keeps the backing array,
// so the next pass's recording reuses the same capacity.
func (a *Arena) Reset() { a.commands = a.commands[:0] }
