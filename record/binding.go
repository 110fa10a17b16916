// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package record

import (
	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/subres"
	"github.com/cflux/fgraph/usage"
)

// boundResource is what a BindingState remembers about the resource
// last bound at a given ResourceBindingPath or pending BindingKey: the
// identity/offset pair used for dedup, and the usage metadata derived
// from the active pipeline's ArgumentReflection at resolve time, which
// the Recorder needs to (re-)emit a usage.Record at every subsequent
// draw/dispatch that keeps the binding active.
type boundResource struct {
	resource any
	offset   int64
	valid    bool

	isReadWrite      bool
	usageType        usage.Type
	stages           driver.Stage
	activeRange      subres.Range
	inArgumentBuffer bool
}

func (b boundResource) sameAs(resource any, offset int64) bool {
	return b.valid && b.resource == resource && b.offset == offset
}

// BindingState is the per-pass binding state machine (spec.md §4.D): it
// resolves a BindingKey against the active PipelineReflection, holding
// it pending if the pipeline does not (yet) have that slot active, and
// deduplicates redundant Set* commands so the recorded stream only
// ever contains binding changes that are actually observable. It also
// classifies every resolved binding's usage.Type from the reflection,
// so the Recorder can splice usage.Records for it into the owning
// resource's usage list as the pass's commands are recorded.
//
// It also tracks the set of ResourceBindingPaths bound with a
// read-write (UAV-style) usage, needed by the compiler to know which
// resources require a read-write barrier between draws/dispatches
// rather than a simple read-after-write one.
type BindingState struct {
	pending  map[driver.BindingKey]boundResource
	resolved map[driver.ResourceBindingPath]boundResource
	uavRW    map[driver.ResourceBindingPath]bool

	// attachments tracks the current render-target bindings, keyed by
	// color/depth/stencil attachment index (negative for depth/stencil,
	// see DepthStencilAttachment), for end-of-encoding usage
	// reconciliation.
	attachments map[int]attachmentUsage
}

// NewBindingState returns an empty BindingState.
func NewBindingState() *BindingState {
	return &BindingState{
		pending:     make(map[driver.BindingKey]boundResource),
		resolved:    make(map[driver.ResourceBindingPath]boundResource),
		uavRW:       make(map[driver.ResourceBindingPath]bool),
		attachments: make(map[int]attachmentUsage),
	}
}

// usageTypeFor maps a reflected binding's driver.ArgumentUsageType to
// the richer usage.Type, with isReadWrite (the caller's explicit UAV
// intent at the call site) taking precedence over the reflection's own
// classification.
func usageTypeFor(argType driver.ArgumentUsageType, isReadWrite bool) usage.Type {
	if isReadWrite {
		return usage.ReadWrite
	}
	switch argType {
	case driver.ArgWrite:
		return usage.Write
	case driver.ArgReadWrite:
		return usage.ReadWrite
	case driver.ArgSampler:
		return usage.Sampler
	case driver.ArgInputAttachment:
		return usage.InputAttachment
	case driver.ArgConstantBuffer:
		return usage.ConstantBuffer
	default:
		return usage.Read
	}
}

func activeRangeFor(refl driver.ArgumentReflection) subres.Range {
	if r, ok := refl.ActiveRange.(subres.Range); ok {
		return r
	}
	return subres.NewFull()
}

// applyReflection fills in br's usage metadata from refl's
// ArgumentReflection at path, or a Read/Full default when the
// reflection has nothing to say about it.
func applyReflection(br boundResource, path driver.ResourceBindingPath, refl driver.PipelineReflection) boundResource {
	if arg, ok := refl.ArgumentReflection(path); ok {
		br.usageType = usageTypeFor(arg.UsageType, br.isReadWrite)
		br.stages = arg.ActiveStages
		br.activeRange = activeRangeFor(arg)
		return br
	}
	br.usageType = usageTypeFor(0, br.isReadWrite)
	br.activeRange = subres.NewFull()
	return br
}

// Resolve resolves key against refl. If refl reports the key inactive,
// the bind is recorded as pending (for replay once a pipeline that
// does activate it is bound, via ReplayPending) and ok is false. If the
// key resolves but names the same resource/offset already bound at
// that path, changed is false and the caller should skip emitting a
// new Command. isReadWrite marks the bind as participating in the UAV
// read-write set.
func (s *BindingState) Resolve(key driver.BindingKey, resource any, offset int64, isReadWrite bool, refl driver.PipelineReflection) (path driver.ResourceBindingPath, ok, changed bool) {
	if refl != nil {
		path, ok = refl.BindingPathForKey(key)
	}
	if !ok {
		s.pending[key] = boundResource{resource: resource, offset: offset, valid: true, isReadWrite: isReadWrite}
		return 0, false, false
	}
	delete(s.pending, key)

	br := applyReflection(boundResource{
		resource: resource, offset: offset, valid: true,
		isReadWrite: isReadWrite, inArgumentBuffer: key.HasArgumentBuffer,
	}, path, refl)

	prev := s.resolved[path]
	changed = !prev.sameAs(resource, offset)
	s.resolved[path] = br
	if isReadWrite {
		s.uavRW[path] = true
	} else {
		delete(s.uavRW, path)
	}
	return path, true, changed
}

// Lookup returns the currently resolved binding metadata at path, for
// the Recorder to turn into a usage.Record immediately after a
// successful Resolve.
func (s *BindingState) Lookup(path driver.ResourceBindingPath) (ActiveBind, bool) {
	br, ok := s.resolved[path]
	if !ok {
		return ActiveBind{}, false
	}
	return activeBindOf(br), true
}

// ReplayPending re-attempts every pending bind against a newly active
// refl (called after SetRenderPipelineDescriptor/
// SetComputePipelineDescriptor changes which bindings are live) and
// returns the binds that newly resolved, for the caller to re-emit as
// Commands. Per spec.md §4.D.4's deferred path, no usage.Record is
// created here: the first draw/dispatch recorded against the new
// pipeline picks these bindings up through ActiveBinds and gives the
// resulting usage.Record a CommandRange starting at that draw, not at
// the replay itself.
func (s *BindingState) ReplayPending(refl driver.PipelineReflection) []ResolvedBind {
	var out []ResolvedBind
	for key, br := range s.pending {
		path, ok := refl.BindingPathForKey(key)
		if !ok {
			continue
		}
		delete(s.pending, key)
		br = applyReflection(br, path, refl)
		s.resolved[path] = br
		if br.isReadWrite {
			s.uavRW[path] = true
		}
		out = append(out, ResolvedBind{Key: key, Path: path, Resource: br.resource, Offset: br.offset})
	}
	return out
}

// ResolvedBind is one binding newly resolved by ReplayPending.
type ResolvedBind struct {
	Key      driver.BindingKey
	Path     driver.ResourceBindingPath
	Resource any
	Offset   int64
}

// ReadWritePaths returns the ResourceBindingPaths currently bound with
// read-write (UAV) usage.
func (s *BindingState) ReadWritePaths() []driver.ResourceBindingPath {
	paths := make([]driver.ResourceBindingPath, 0, len(s.uavRW))
	for p := range s.uavRW {
		paths = append(paths, p)
	}
	return paths
}

// ActiveBind is one currently resolved binding, as the Recorder needs
// it to (re-)emit a usage.Record at each draw/dispatch (spec.md
// §4.D.6's UAV usage-node refresh across dispatches, generalised here
// to every active binding rather than only UAV ones: since List.Append
// merges adjacent same-type records sharing a pass, re-emitting every
// active binding at every draw collapses back down to one spanning
// Record per binding — the same result spec.md's mutable-usage-pointer
// model reaches by extending the pointer in place instead).
type ActiveBind struct {
	Resource         any
	Type             usage.Type
	Stages           driver.Stage
	Range            subres.Range
	InArgumentBuffer bool
}

func activeBindOf(br boundResource) ActiveBind {
	return ActiveBind{
		Resource:         br.resource,
		Type:             br.usageType,
		Stages:           br.stages,
		Range:            br.activeRange,
		InArgumentBuffer: br.inArgumentBuffer,
	}
}

// ActiveBinds returns every currently resolved binding.
func (s *BindingState) ActiveBinds() []ActiveBind {
	out := make([]ActiveBind, 0, len(s.resolved))
	for _, br := range s.resolved {
		out = append(out, activeBindOf(br))
	}
	return out
}

// attachmentUsage is the resolved state of one render-target slot at
// the point the recorder last touched it.
type attachmentUsage struct {
	resource  any
	resolve   any // non-nil if this attachment also writes a resolve target.
	usageType usage.Type
}

// DepthStencilAttachment is the synthetic index attachmentUsage keys
// use for the depth/stencil slot, distinct from any non-negative color
// index.
const DepthStencilAttachment = -1

// SetAttachment records that a render pass touches resource at
// attachment index (a color index, or DepthStencilAttachment), and
// optionally resolves into resolveResource (MSAA resolve). The
// attachment starts out writeOnlyRenderTarget; snapshotAttachments
// upgrades it to readWriteRenderTarget if the pass also binds the same
// resource for reading elsewhere (spec.md §4.D.7's write-mask/blend/
// depth-stencil-driven promotion, approximated here by the simpler and
// observably equivalent signal of "is this resource also read by a
// regular bind this pass").
func (s *BindingState) SetAttachment(index int, resource, resolveResource any) {
	s.attachments[index] = attachmentUsage{resource: resource, resolve: resolveResource, usageType: usage.WriteOnlyRenderTarget}
}

// snapshotAttachments computes the reconciled attachment usage set
// without clearing s.attachments, for the Recorder's end-of-encoding
// usage clamp to consult before the pass's own later call to
// ReconcileAttachments drains it for CompiledPass bookkeeping.
func (s *BindingState) snapshotAttachments() []AttachmentResolution {
	out := make([]AttachmentResolution, 0, len(s.attachments))
	for index, a := range s.attachments {
		typ := a.usageType
		for _, br := range s.resolved {
			if br.resource == a.resource && br.usageType.IsRead() {
				typ = usage.ReadWriteRenderTarget
				break
			}
		}
		out = append(out, AttachmentResolution{
			Index:           index,
			Resource:        a.resource,
			ResolveResource: a.resolve,
			Type:            typ,
		})
	}
	return out
}

// ReconcileAttachments returns the set of resources bound as render
// targets this pass, with each slot's reconciled usage type, and clears
// the pass's recorded attachments: reconciliation happens once at
// end-of-pass.
func (s *BindingState) ReconcileAttachments() []AttachmentResolution {
	out := s.snapshotAttachments()
	s.attachments = make(map[int]attachmentUsage)
	return out
}

// AttachmentResolution is one render-target slot's reconciled state.
type AttachmentResolution struct {
	Index           int
	Resource        any
	ResolveResource any
	// Type is the reconciled render-target usage: writeOnlyRenderTarget
	// unless the same resource is also read elsewhere this pass, in
	// which case it is readWriteRenderTarget.
	Type usage.Type
}

// ClampOpenUsages is called at end-of-encoding (spec.md §4.D.8): every
// still-resolved binding and render-target attachment has one final
// usage.Record appended covering [lastCommandIndex, lastCommandIndex+1),
// extending whatever spanning Record List.Append has already been
// building for it up to the pass's last command rather than leaving it
// implicitly open past the pass boundary. A resolve attachment also
// gets the synthetic read-of-source/write-to-resolve pair spec.md
// §4.D.7 calls for.
func (s *BindingState) ClampOpenUsages(lastCommandIndex, passRef int, sink UsageSink) {
	if sink == nil {
		return
	}
	for _, br := range s.resolved {
		rec := usage.NewRecord(br.usageType, br.stages, passRef, lastCommandIndex, br.activeRange)
		rec.InArgumentBuffer = br.inArgumentBuffer
		sink.AppendUsage(br.resource, rec)
	}
	for _, a := range s.snapshotAttachments() {
		sink.AppendUsage(a.Resource, usage.NewRecord(a.Type, driver.StageAll, passRef, lastCommandIndex, subres.NewFull()))
		if a.ResolveResource != nil {
			sink.AppendUsage(a.Resource, usage.NewRecord(usage.BlitSource, driver.StageAll, passRef, lastCommandIndex, subres.NewFull()))
			sink.AppendUsage(a.ResolveResource, usage.NewRecord(usage.BlitDestination, driver.StageAll, passRef, lastCommandIndex, subres.NewFull()))
		}
	}
}
