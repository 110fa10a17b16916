// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package record

import (
	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/subres"
	"github.com/cflux/fgraph/usage"
)

// UsageSink receives one usage.Record for resource as the Recorder
// discovers it, for splicing into that resource's registry usage list
// (spec.md §4.B/§4.D). A FrameGraph implements this by translating
// resource (the backend-opaque value the recorder deals in) back to
// its owning driver.Handle's Slot.
type UsageSink interface {
	AppendUsage(resource any, rec usage.Record)
}

// Recorder accumulates one pass's command stream into an Arena while
// running every Set* call through the BindingState machine, so
// redundant rebinds are dropped and binds that arrive before their
// pipeline is active are replayed once it is (spec.md §4.D). As it
// records, it also emits a usage.Record to its UsageSink for every
// resource a bind, draw, dispatch, copy, fill, mip-generation or
// synchronisation command touches.
type Recorder struct {
	arena     Arena
	binding   *BindingState
	graphRefl driver.PipelineReflection
	compRefl  driver.PipelineReflection

	passRef int
	sink    UsageSink
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{binding: NewBindingState()}
}

// Reset discards all recorded state, readying the Recorder for the
// next pass that reuses it (arenas are pooled per spec.md §4.D's
// per-pass scratch-arena design, not reallocated every frame). passRef
// is the pass's index for the usage.Records this pass will emit; sink
// receives them. sink may be nil, in which case no usage.Records are
// emitted (only the command stream itself is recorded).
func (r *Recorder) Reset(passRef int, sink UsageSink) {
	r.arena.Reset()
	r.binding = NewBindingState()
	r.graphRefl, r.compRefl = nil, nil
	r.passRef = passRef
	r.sink = sink
}

// Arena exposes the recorded command stream.
func (r *Recorder) Arena() *Arena { return &r.arena }

// Len returns the number of commands recorded so far.
func (r *Recorder) Len() int { return r.arena.Len() }

// SetRenderPipelineDescriptor binds a graphics pipeline and activates
// refl for subsequent SetBuffer/SetTexture/... resolution, replaying
// any binds that were left pending against a previous (or no)
// pipeline. Per spec.md §4.D.4's deferred path, replayed binds do not
// themselves emit a usage.Record: the next draw recorded against refl
// picks them up via emitDrawTimeUsages, so the resulting Record's
// CommandRange starts at that draw rather than at this replay.
func (r *Recorder) SetRenderPipelineDescriptor(pipeline any, refl driver.PipelineReflection) {
	r.arena.Append(Command{Type: SetRenderPipelineDescriptor, Resource: pipeline})
	r.graphRefl, r.compRefl = refl, nil
	r.replay(refl)
}

// SetComputePipelineDescriptor binds a compute pipeline, symmetric
// with SetRenderPipelineDescriptor.
func (r *Recorder) SetComputePipelineDescriptor(pipeline any, refl driver.PipelineReflection) {
	r.arena.Append(Command{Type: SetComputePipelineDescriptor, Resource: pipeline})
	r.compRefl = refl
	r.replay(refl)
}

func (r *Recorder) replay(refl driver.PipelineReflection) {
	for _, b := range r.binding.ReplayPending(refl) {
		r.arena.Append(Command{Type: SetBuffer, Path: b.Path, Resource: b.Resource, Offset: b.Offset})
	}
}

// activeReflection picks the reflection a non-pipeline-select command
// should resolve bindings against: whichever of graphics/compute was
// set most recently. Real encoders are scoped to one or the other by
// construction (a render-pass encoder vs. a compute encoder); this
// Recorder multiplexes both only because it is a single struct
// covering every command kind for simplicity of the arena.
func (r *Recorder) activeReflection() driver.PipelineReflection {
	if r.compRefl != nil {
		return r.compRefl
	}
	return r.graphRefl
}

// emitBindUsage emits the usage.Record for the binding now resolved at
// path (the "fast path": the bind resolved immediately against an
// already-active pipeline, so its usage starts at the bind command
// itself rather than at a later draw).
func (r *Recorder) emitBindUsage(path driver.ResourceBindingPath, cmdIndex int) {
	if r.sink == nil {
		return
	}
	bind, ok := r.binding.Lookup(path)
	if !ok {
		return
	}
	rec := usage.NewRecord(bind.Type, bind.Stages, r.passRef, cmdIndex, bind.Range)
	rec.InArgumentBuffer = bind.InArgumentBuffer
	r.sink.AppendUsage(bind.Resource, rec)
}

// emitDrawTimeUsages re-emits a usage.Record for every currently active
// binding and render-target attachment at cmdIndex (spec.md §4.D.6's
// UAV usage-node refresh, generalised to every binding: List.Append's
// merge rules collapse these repeated per-draw records for an
// unchanged binding back into one spanning Record).
func (r *Recorder) emitDrawTimeUsages(cmdIndex int) {
	if r.sink == nil {
		return
	}
	for _, b := range r.binding.ActiveBinds() {
		rec := usage.NewRecord(b.Type, b.Stages, r.passRef, cmdIndex, b.Range)
		rec.InArgumentBuffer = b.InArgumentBuffer
		r.sink.AppendUsage(b.Resource, rec)
	}
	for _, a := range r.binding.snapshotAttachments() {
		r.sink.AppendUsage(a.Resource, usage.NewRecord(a.Type, driver.StageAll, r.passRef, cmdIndex, subres.NewFull()))
		if a.ResolveResource != nil {
			r.sink.AppendUsage(a.Resource, usage.NewRecord(usage.BlitSource, driver.StageAll, r.passRef, cmdIndex, subres.NewFull()))
			r.sink.AppendUsage(a.ResolveResource, usage.NewRecord(usage.BlitDestination, driver.StageAll, r.passRef, cmdIndex, subres.NewFull()))
		}
	}
}

// emitUsage records a single one-off usage.Record, for commands (copies,
// fills, mip generation, synchronisation) whose resources are never
// tracked by the binding state machine.
func (r *Recorder) emitUsage(resource any, typ usage.Type, stages driver.Stage, rng subres.Range, cmdIndex int) {
	if r.sink == nil || resource == nil {
		return
	}
	r.sink.AppendUsage(resource, usage.NewRecord(typ, stages, r.passRef, cmdIndex, rng))
}

// SetBytes records inline ("push constant") data at the backend's
// push-constant path. It is never deduplicated: the bytes are
// arbitrary payload, not a resource identity.
func (r *Recorder) SetBytes(data []byte, stages driver.Stage, path driver.ResourceBindingPath) {
	cp := make([]byte, len(data))
	copy(cp, data)
	r.arena.Append(Command{Type: SetBytes, Path: path, Bytes: cp, Stages: stages})
}

// SetBuffer binds buf at key for stages, resolving key against the
// active reflection. isReadWrite marks it as participating in the UAV
// read-write set used for barrier synthesis.
func (r *Recorder) SetBuffer(key driver.BindingKey, buf driver.Buffer, offset int64, stages driver.Stage, isReadWrite bool) {
	path, ok, changed := r.binding.Resolve(key, buf, offset, isReadWrite, r.activeReflection())
	if !ok || !changed {
		return
	}
	idx := r.arena.Append(Command{Type: SetBuffer, Path: path, Resource: buf, Offset: offset, Stages: stages})
	r.emitBindUsage(path, idx)
}

// SetBufferOffset updates only the offset of an already-bound buffer,
// the cheaper command a caller should prefer when only the offset
// changed and the buffer identity did not.
func (r *Recorder) SetBufferOffset(key driver.BindingKey, buf driver.Buffer, offset int64, stages driver.Stage, isReadWrite bool) {
	path, ok, changed := r.binding.Resolve(key, buf, offset, isReadWrite, r.activeReflection())
	if !ok || !changed {
		return
	}
	idx := r.arena.Append(Command{Type: SetBufferOffset, Path: path, Resource: buf, Offset: offset, Stages: stages})
	r.emitBindUsage(path, idx)
}

// SetTexture binds tex at key for stages.
func (r *Recorder) SetTexture(key driver.BindingKey, tex driver.Texture, stages driver.Stage, isReadWrite bool) {
	path, ok, changed := r.binding.Resolve(key, tex, 0, isReadWrite, r.activeReflection())
	if !ok || !changed {
		return
	}
	idx := r.arena.Append(Command{Type: SetTexture, Path: path, Resource: tex, Stages: stages})
	r.emitBindUsage(path, idx)
}

// SetSamplerState binds samp at key.
func (r *Recorder) SetSamplerState(key driver.BindingKey, samp driver.Sampler, stages driver.Stage) {
	path, ok, changed := r.binding.Resolve(key, samp, 0, false, r.activeReflection())
	if !ok || !changed {
		return
	}
	idx := r.arena.Append(Command{Type: SetSamplerState, Path: path, Resource: samp, Stages: stages})
	r.emitBindUsage(path, idx)
}

// SetArgumentBuffer binds an already-populated argument buffer at key.
func (r *Recorder) SetArgumentBuffer(key driver.BindingKey, ab driver.ArgumentBufferHandle, stages driver.Stage) {
	path, ok, changed := r.binding.Resolve(key, ab, 0, false, r.activeReflection())
	if !ok || !changed {
		return
	}
	idx := r.arena.Append(Command{Type: SetArgumentBuffer, Path: path, Resource: ab, Stages: stages})
	r.emitBindUsage(path, idx)
}

// SetArgumentBufferArray binds slot index of an argument buffer array.
// Unlike a single argument buffer, it is keyed by (key, index) for
// dedup purposes, so binding one element does not replace another.
func (r *Recorder) SetArgumentBufferArray(key driver.BindingKey, index int, ab driver.ArgumentBufferHandle, stages driver.Stage) {
	arrayKey := key
	arrayKey.Index = index
	path, ok, changed := r.binding.Resolve(arrayKey, ab, 0, false, r.activeReflection())
	if !ok || !changed {
		return
	}
	idx := r.arena.Append(Command{Type: SetArgumentBufferArray, Path: path, Resource: ab, Index: index, Stages: stages})
	r.emitBindUsage(path, idx)
}

// SetVertexBuffer binds buf to vertex input slot index.
func (r *Recorder) SetVertexBuffer(index int, buf driver.Buffer, offset int64) {
	idx := r.arena.Append(Command{Type: SetVertexBuffer, Index: index, Resource: buf, Offset: offset})
	r.emitUsage(buf, usage.VertexBuffer, driver.StageVertex, subres.NewFull(), idx)
}

// SetVertexBufferOffset updates only the offset of vertex input slot index.
func (r *Recorder) SetVertexBufferOffset(index int, offset int64) {
	r.arena.Append(Command{Type: SetVertexBufferOffset, Index: index, Offset: offset})
}

// SetViewport records a viewport change (x, y, width, height packed
// into IntArgs-equivalent fields at the call site's discretion; the
// recorder stores whatever the caller already resolved into a single
// opaque descriptor to avoid tying this package to a specific viewport
// struct shape).
func (r *Recorder) SetViewport(viewport any) {
	r.arena.Append(Command{Type: SetViewport, External: viewport})
}

// SetScissorRect records a scissor-rect change.
func (r *Recorder) SetScissorRect(rect any) {
	r.arena.Append(Command{Type: SetScissorRect, External: rect})
}

// SetDepthStencilDescriptor records a depth/stencil-state change.
func (r *Recorder) SetDepthStencilDescriptor(desc any) {
	r.arena.Append(Command{Type: SetDepthStencilDescriptor, External: desc})
}

// DrawPrimitives records a non-indexed draw.
func (r *Recorder) DrawPrimitives(vertexStart, vertexCount, instanceCount, baseInstance int) {
	idx := r.arena.Append(Command{
		Type: DrawPrimitives, VertexStart: vertexStart, VertexCount: vertexCount,
		InstanceCount: instanceCount, BaseInstance: baseInstance,
	})
	r.emitDrawTimeUsages(idx)
}

// DrawIndexedPrimitives records an indexed draw.
func (r *Recorder) DrawIndexedPrimitives(indexCount, instanceCount, baseVertex, baseInstance int) {
	idx := r.arena.Append(Command{
		Type: DrawIndexedPrimitives, IndexCount: indexCount, InstanceCount: instanceCount,
		BaseVertex: baseVertex, BaseInstance: baseInstance,
	})
	r.emitDrawTimeUsages(idx)
}

// DispatchThreads records a compute dispatch sized in threads.
func (r *Recorder) DispatchThreads(x, y, z int) {
	idx := r.arena.Append(Command{Type: DispatchThreads, ThreadsX: x, ThreadsY: y, ThreadsZ: z})
	r.emitDrawTimeUsages(idx)
}

// DispatchThreadgroups records a compute dispatch sized in threadgroups.
func (r *Recorder) DispatchThreadgroups(x, y, z int) {
	idx := r.arena.Append(Command{Type: DispatchThreadgroups, GroupsX: x, GroupsY: y, GroupsZ: z})
	r.emitDrawTimeUsages(idx)
}

// DispatchThreadgroupsIndirect records a compute dispatch whose group
// counts are read from argBuf at offset.
func (r *Recorder) DispatchThreadgroupsIndirect(argBuf driver.Buffer, offset int64) {
	idx := r.arena.Append(Command{Type: DispatchThreadgroupsIndirect, Resource: argBuf, Offset: offset})
	r.emitUsage(argBuf, usage.IndirectBuffer, driver.StageCompute, subres.NewFull(), idx)
	r.emitDrawTimeUsages(idx)
}

// CopyBufferToBuffer records a buffer-to-buffer copy.
func (r *Recorder) CopyBufferToBuffer(src driver.Buffer, srcOffset int64, dst driver.Buffer, dstOffset, length int64) {
	idx := r.arena.Append(Command{
		Type: CopyBufferToBuffer, Resource: src, Offset: srcOffset,
		Resource2: dst, Offset2: dstOffset, Length: length,
	})
	r.emitUsage(src, usage.BlitSource, driver.StageAll, subres.NewBufferRange(srcOffset, srcOffset+length), idx)
	r.emitUsage(dst, usage.BlitDestination, driver.StageAll, subres.NewBufferRange(dstOffset, dstOffset+length), idx)
}

// CopyBufferToTexture records a buffer-to-texture copy.
func (r *Recorder) CopyBufferToTexture(src driver.Buffer, srcOffset int64, dst driver.Texture) {
	idx := r.arena.Append(Command{Type: CopyBufferToTexture, Resource: src, Offset: srcOffset, Resource2: dst})
	r.emitUsage(src, usage.BlitSource, driver.StageAll, subres.NewFull(), idx)
	r.emitUsage(dst, usage.BlitDestination, driver.StageAll, subres.NewFull(), idx)
}

// CopyTextureToBuffer records a texture-to-buffer copy.
func (r *Recorder) CopyTextureToBuffer(src driver.Texture, dst driver.Buffer, dstOffset int64) {
	idx := r.arena.Append(Command{Type: CopyTextureToBuffer, Resource: src, Resource2: dst, Offset2: dstOffset})
	r.emitUsage(src, usage.BlitSource, driver.StageAll, subres.NewFull(), idx)
	r.emitUsage(dst, usage.BlitDestination, driver.StageAll, subres.NewFull(), idx)
}

// CopyTextureToTexture records a texture-to-texture copy.
func (r *Recorder) CopyTextureToTexture(src, dst driver.Texture) {
	idx := r.arena.Append(Command{Type: CopyTextureToTexture, Resource: src, Resource2: dst})
	r.emitUsage(src, usage.BlitSource, driver.StageAll, subres.NewFull(), idx)
	r.emitUsage(dst, usage.BlitDestination, driver.StageAll, subres.NewFull(), idx)
}

// FillBuffer records a buffer fill over [offset, offset+length).
func (r *Recorder) FillBuffer(buf driver.Buffer, offset, length int64, value byte) {
	idx := r.arena.Append(Command{Type: FillBuffer, Resource: buf, Offset: offset, Length: length, Index: int(value)})
	r.emitUsage(buf, usage.BlitDestination, driver.StageAll, subres.NewBufferRange(offset, offset+length), idx)
}

// GenerateMipmaps records a mip-chain regeneration for tex.
func (r *Recorder) GenerateMipmaps(tex driver.Texture) {
	idx := r.arena.Append(Command{Type: GenerateMipmaps, Resource: tex})
	r.emitUsage(tex, usage.MipGeneration, driver.StageAll, subres.NewFull(), idx)
}

// SynchroniseBuffer records a managed-storage buffer readback sync.
func (r *Recorder) SynchroniseBuffer(buf driver.Buffer) {
	idx := r.arena.Append(Command{Type: SynchroniseBuffer, Resource: buf})
	r.emitUsage(buf, usage.BlitSynchronisation, driver.StageAll, subres.NewFull(), idx)
}

// SynchroniseTexture records a managed-storage texture readback sync.
func (r *Recorder) SynchroniseTexture(tex driver.Texture) {
	idx := r.arena.Append(Command{Type: SynchroniseTexture, Resource: tex})
	r.emitUsage(tex, usage.BlitSynchronisation, driver.StageAll, subres.NewFull(), idx)
}

// SynchroniseTextureSlice records a sync of a single (level, slice). The
// recorder has no access to the texture's descriptor to build a precise
// sub-resource mask, so the resulting usage.Record is scoped to the
// whole resource.
func (r *Recorder) SynchroniseTextureSlice(tex driver.Texture, level, slice int) {
	idx := r.arena.Append(Command{Type: SynchroniseTextureSlice, Resource: tex, Offset: int64(level), Offset2: int64(slice)})
	r.emitUsage(tex, usage.BlitSynchronisation, driver.StageAll, subres.NewFull(), idx)
}

// ClearRenderTargets records an explicit render-target clear outside
// of a render pass's load action.
func (r *Recorder) ClearRenderTargets(targets []driver.Texture) {
	r.arena.Append(Command{Type: ClearRenderTargets, External: targets})
}

// EncodeExternalCommand records an opaque backend-specific command the
// core does not itself interpret (spec.md §6's escape hatch for
// functionality the core's command set does not cover).
func (r *Recorder) EncodeExternalCommand(label string, payload any) {
	r.arena.Append(Command{Type: EncodeExternalCommand, Label: label, External: payload})
}

// PushDebugGroup/PopDebugGroup/InsertDebugSignpost record non-semantic
// debug annotations; a RenderBackend may no-op them entirely.
func (r *Recorder) PushDebugGroup(label string)    { r.arena.Append(Command{Type: PushDebugGroup, Label: label}) }
func (r *Recorder) PopDebugGroup()                 { r.arena.Append(Command{Type: PopDebugGroup}) }
func (r *Recorder) InsertDebugSignpost(label string) {
	r.arena.Append(Command{Type: InsertDebugSignpost, Label: label})
}

// SetColorAttachment and SetDepthStencilAttachment feed the binding
// state's render-target reconciliation; call ReconcileAttachments at
// end-of-pass to retrieve the resulting AttachmentResolutions.
func (r *Recorder) SetColorAttachment(index int, resource, resolveResource any) {
	r.binding.SetAttachment(index, resource, resolveResource)
}

func (r *Recorder) SetDepthStencilAttachment(resource, resolveResource any) {
	r.binding.SetAttachment(DepthStencilAttachment, resource, resolveResource)
}

// ReconcileAttachments delegates to the BindingState, see its doc.
func (r *Recorder) ReconcileAttachments() []AttachmentResolution {
	return r.binding.ReconcileAttachments()
}

// ReadWritePaths delegates to the BindingState, see its doc.
func (r *Recorder) ReadWritePaths() []driver.ResourceBindingPath {
	return r.binding.ReadWritePaths()
}

// EndEncoding clamps any state left open at the end of the pass
// (spec.md §4.D "end-of-encoding open-usage clamping"): every binding
// and attachment still active gets one final usage.Record extended up
// to the pass's last recorded command, so nothing is left implicitly
// open past the pass boundary.
func (r *Recorder) EndEncoding() {
	last := r.arena.Len() - 1
	if last < 0 {
		last = 0
	}
	r.binding.ClampOpenUsages(last, r.passRef, r.sink)
}
