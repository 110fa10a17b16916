// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package fgraph is the top-level orchestration of a transient render
// graph: it owns the registries, queues and frame-completion tracking
// a frame needs, and drives the declare → record → compile → execute →
// retire lifecycle described across spec.md's components (§9 Design
// Notes calls for this state to live on an explicit context object
// rather than in process-wide singletons, so that more than one
// FrameGraph — e.g. for offscreen work — can coexist in a process).
package fgraph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/gqueue"
	"github.com/cflux/fgraph/record"
	"github.com/cflux/fgraph/registry"
	"github.com/cflux/fgraph/usage"
)

// DebugChecks gates the FrameGraph's extra validation (duplicate pass
// names and passes that record zero commands). It is a package variable rather than a
// per-FrameGraph field because it is meant to be flipped once, at
// process start, the same way the teacher's debug builds compile in
// extra assertions: leave it false in release builds.
var DebugChecks = false

// Errors returned by FrameGraph methods.
var (
	ErrNoBackend     = errors.New("fgraph: FrameGraph has no backend")
	ErrDuplicatePass = errors.New("fgraph: duplicate pass name (DebugChecks)")
	ErrEmptyPass     = errors.New("fgraph: pass recorded no commands (DebugChecks)")
	ErrInvalidHandle = errors.New("fgraph: invalid resource handle")
)

// FrameGraph owns one frame's worth (and the persistent resources
// spanning many frames') of registries, queues and completion
// tracking, plus the RenderBackend that ultimately consumes recorded
// passes.
type FrameGraph struct {
	Backend driver.RenderBackend
	Jobs    JobManager

	Buffers  *registry.Persistent[driver.BufferDescriptor]
	Textures *registry.Persistent[driver.TextureDescriptor]
	Heaps    *registry.Persistent[driver.HeapDescriptor]

	TransientBuffers  *registry.Transient[driver.BufferDescriptor]
	TransientTextures *registry.Transient[driver.TextureDescriptor]

	Queues     gqueue.Manager
	Completion gqueue.FrameCompletion
	Disposal   registry.DisposalQueue

	// mu guards resourceHandles, touched and touchedSeen below, and
	// every usage.List mutation reached through them. Passes may record
	// concurrently via a WorkerJobManager, and every recorded command
	// that touches a resource ends up calling AppendUsage, so this state
	// needs to be safe for concurrent use even though the rest of a
	// FrameGraph's bookkeeping (Compile's own sequencing, EndFrame) is
	// only ever called from one goroutine at a time.
	mu sync.Mutex

	// resourceHandles maps a backend-opaque resource (the driver.Buffer
	// or driver.Texture value a record.Recorder actually deals in) back
	// to the driver.Handle naming its registry slot, so AppendUsage can
	// find the right Slot.Usages to splice a usage.Record into.
	resourceHandles map[any]driver.Handle

	// touched is the set of handles any pass appended a usage.Record to
	// this frame, in first-touched order; touchedSeen dedups it. Compile
	// clears exactly these resources' usage lists at the start of the
	// next frame, rather than every slot in every registry, and later
	// remaps exactly these lists' CommandRanges to global offsets.
	touched     []driver.Handle
	touchedSeen map[driver.Handle]bool

	passes     []*Pass
	frameIndex uint64
}

// New returns a FrameGraph driving backend. jobs may be nil, in which
// case a SerialJobManager is used.
func New(backend driver.RenderBackend, jobs JobManager) *FrameGraph {
	if jobs == nil {
		jobs = SerialJobManager{}
	}
	return &FrameGraph{
		Backend:           backend,
		Jobs:              jobs,
		Buffers:           registry.NewPersistent[driver.BufferDescriptor](driver.TBuffer),
		Textures:          registry.NewPersistent[driver.TextureDescriptor](driver.TTexture),
		Heaps:             registry.NewPersistent[driver.HeapDescriptor](driver.THeap),
		TransientBuffers:  registry.NewTransient[driver.BufferDescriptor](driver.TBuffer),
		TransientTextures: registry.NewTransient[driver.TextureDescriptor](driver.TTexture),
		resourceHandles:   make(map[any]driver.Handle),
		touchedSeen:       make(map[driver.Handle]bool),
	}
}

// AddPass declares a new Pass, to be recorded the next time Compile
// runs. It returns the Pass so the caller can inspect it after
// Compile/Execute (e.g. to read QueueCommand for a manual wait).
func (g *FrameGraph) AddPass(name string, typ PassType, queueIndex int, fn func(*record.Recorder)) *Pass {
	p := &Pass{Name: name, Type: typ, QueueIndex: queueIndex, Func: fn}
	g.passes = append(g.passes, p)
	return p
}

func (g *FrameGraph) bufferSlot(h driver.Handle) (*registry.Slot[driver.BufferDescriptor], bool) {
	if h.IsPersistent() {
		return g.Buffers.Get(h)
	}
	return g.TransientBuffers.Get(h)
}

func (g *FrameGraph) textureSlot(h driver.Handle) (*registry.Slot[driver.TextureDescriptor], bool) {
	if h.IsPersistent() {
		return g.Textures.Get(h)
	}
	return g.TransientTextures.Get(h)
}

// MaterialiseBuffer returns the backend-native driver.Buffer for h,
// asking g.Backend to allocate it the first time h's slot is touched
// and caching the result on the slot thereafter. The cached resource
// is also recorded in g.resourceHandles, so a later usage.Record the
// recorder emits for this same driver.Buffer value can be routed back
// to h's Slot.Usages.
func (g *FrameGraph) MaterialiseBuffer(h driver.Handle) (driver.Buffer, error) {
	if g.Backend == nil {
		return nil, ErrNoBackend
	}
	slot, ok := g.bufferSlot(h)
	if !ok {
		return nil, fmt.Errorf("%w: buffer", ErrInvalidHandle)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if slot.Resource != nil {
		return slot.Resource.(driver.Buffer), nil
	}
	res, err := g.Backend.MaterialisePersistentBuffer(&slot.Descriptor)
	if err != nil {
		return nil, err
	}
	slot.Resource = res
	g.resourceHandles[res] = h
	return res, nil
}

// MaterialiseTexture is MaterialiseBuffer's texture counterpart.
func (g *FrameGraph) MaterialiseTexture(h driver.Handle) (driver.Texture, error) {
	if g.Backend == nil {
		return nil, ErrNoBackend
	}
	slot, ok := g.textureSlot(h)
	if !ok {
		return nil, fmt.Errorf("%w: texture", ErrInvalidHandle)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if slot.Resource != nil {
		return slot.Resource.(driver.Texture), nil
	}
	res, err := g.Backend.MaterialisePersistentTexture(&slot.Descriptor)
	if err != nil {
		return nil, err
	}
	slot.Resource = res
	g.resourceHandles[res] = h
	return res, nil
}

// usageListForLocked returns the usage.List backing h's slot, and the
// subresource count List.Append needs to size range unions over it (0
// for buffers). Callers must hold g.mu.
func (g *FrameGraph) usageListForLocked(h driver.Handle) (*usage.List, int, bool) {
	switch h.Type() {
	case driver.TBuffer:
		slot, ok := g.bufferSlot(h)
		if !ok {
			return nil, 0, false
		}
		return &slot.Usages, 0, true
	case driver.TTexture:
		slot, ok := g.textureSlot(h)
		if !ok {
			return nil, 0, false
		}
		return &slot.Usages, slot.Descriptor.SubresourceCount(), true
	default:
		return nil, 0, false
	}
}

// AppendUsage implements record.UsageSink: it translates resource (a
// value the recorder obtained from MaterialiseBuffer/Texture, among
// others) back to its registry Slot via resourceHandles, and splices
// rec into that slot's usage list. A resource the FrameGraph has never
// materialized (e.g. a sampler or argument buffer, which this core
// does not usage-track per-slot) is silently skipped rather than
// erroring, since not every Set* call names a tracked registry
// resource.
func (g *FrameGraph) AppendUsage(resource any, rec usage.Record) {
	if resource == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	h, ok := g.resourceHandles[resource]
	if !ok {
		return
	}
	list, subresourceCount, ok := g.usageListForLocked(h)
	if !ok {
		return
	}
	list.Append(rec, subresourceCount)
	if !g.touchedSeen[h] {
		g.touchedSeen[h] = true
		g.touched = append(g.touched, h)
	}
}

// Compile records every declared Pass's commands (spec.md's "record"
// phase), running them through g.Jobs so that independent passes may
// be recorded concurrently, then reconciles each Pass's render-target
// attachments and read-write binding set, remaps every resource usage
// touched this frame from pass-local to global command-stream offsets.
// The declared-pass list is left in place; EndFrame clears it.
//
// Before recording starts, Compile clears the usage lists of every
// resource the previous frame's recording touched: usage.List is a
// per-frame log, and leaving a prior frame's records in place would
// let them collide with this frame's local OwningPassRef indices
// before the remap below runs.
//
// With DebugChecks enabled, Compile also rejects duplicate pass names
// and flags passes that recorded zero commands, both of which usually
// indicate a caller bug (a pass whose Func forgot to call any Recorder
// method, or a copy-pasted AddPass call with a stale name).
func (g *FrameGraph) Compile() ([]*CompiledPass, error) {
	if g.Backend == nil {
		return nil, ErrNoBackend
	}
	if DebugChecks {
		seen := make(map[string]bool, len(g.passes))
		for _, p := range g.passes {
			if seen[p.Name] {
				return nil, fmt.Errorf("%w: %q", ErrDuplicatePass, p.Name)
			}
			seen[p.Name] = true
		}
	}

	g.mu.Lock()
	for _, h := range g.touched {
		if list, _, ok := g.usageListForLocked(h); ok {
			list.Reset()
		}
	}
	g.touched = g.touched[:0]
	for h := range g.touchedSeen {
		delete(g.touchedSeen, h)
	}
	g.mu.Unlock()

	jobs := make([]Job, len(g.passes))
	for i, p := range g.passes {
		i, p := i, p
		jobs[i] = func() {
			p.recorder.Reset(i, g)
			p.Func(&p.recorder)
			p.recorder.EndEncoding()
		}
	}
	g.Jobs.Run(jobs)

	compiled := make([]*CompiledPass, len(g.passes))
	bases := make([]int, len(g.passes))
	offset := 0
	for i, p := range g.passes {
		if DebugChecks && p.recorder.Len() == 0 && p.Type != CPUPass {
			return nil, fmt.Errorf("%w: %q", ErrEmptyPass, p.Name)
		}
		cc := p.recorder.Len()
		compiled[i] = &CompiledPass{
			Pass:         p,
			Attachments:  p.recorder.ReconcileAttachments(),
			ReadWrite:    p.recorder.ReadWritePaths(),
			CommandCount: cc,
		}
		bases[i] = offset
		offset += cc
	}

	g.mu.Lock()
	for _, h := range g.touched {
		if list, _, ok := g.usageListForLocked(h); ok {
			list.RemapCommandRanges(bases)
		}
	}
	g.mu.Unlock()

	return compiled, nil
}

// CompiledPass is the result of recording one Pass: its reconciled
// render-target attachment set, its read-write binding set (for
// barrier synthesis), and how many commands it recorded.
type CompiledPass struct {
	Pass         *Pass
	Attachments  []record.AttachmentResolution
	ReadWrite    []driver.ResourceBindingPath
	CommandCount int
}

// CommandConsumer is implemented by a RenderBackend able to accept a
// pass's recorded command stream directly. Not every driver.RenderBackend
// need implement it: Execute degrades to submission bookkeeping only
// (no command translation) when the backend doesn't, rather than
// erroring, since a CPU-only or stub backend has nothing to translate
// commands into.
type CommandConsumer interface {
	ConsumeCommands(pass *Pass, commands []record.Command, queueCommand uint64)
}

// Execute submits every compiled pass's recorded command stream to its
// declared queue, in declaration order, and stores each pass's queue
// command index on the Pass (see Pass.QueueCommand), which the caller
// can later wait on via Queues.At(i). If
// g.Backend implements CommandConsumer, each pass's recorded Commands
// are handed to it for translation into native command-buffer calls;
// otherwise the stream is only accounted for at the queue level.
func (g *FrameGraph) Execute(passes []*CompiledPass) error {
	if g.Backend == nil {
		return ErrNoBackend
	}
	consumer, _ := g.Backend.(CommandConsumer)
	for _, cp := range passes {
		q := g.Queues.At(cp.Pass.QueueIndex)
		cp.Pass.queueCommand = q.Submit()
		if consumer != nil {
			consumer.ConsumeCommands(cp.Pass, cp.Pass.Recorder().Arena().Commands(), cp.Pass.queueCommand)
		}
	}
	return nil
}

// EndFrame retires the frame: it clears every transient registry
// (invalidating any handle allocated into it this frame), drains the
// deferred disposal queue, marks the current frame complete on
// g.Completion, advances the frame index, and clears the declared-pass
// list.
func (g *FrameGraph) EndFrame() {
	g.TransientBuffers.Clear()
	g.TransientTextures.Clear()
	g.Disposal.Drain()
	g.Completion.MarkFrameComplete(g.frameIndex)
	g.frameIndex++
	g.passes = g.passes[:0]
}

// FrameIndex returns the index of the frame currently being built
// (i.e. the one EndFrame has not yet retired).
func (g *FrameGraph) FrameIndex() uint64 { return g.frameIndex }
