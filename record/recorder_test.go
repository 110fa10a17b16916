// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package record

import (
	"testing"

	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/usage"
)

// fakeSink collects every usage.Record emitted for a resource, in
// emission order, keyed by the resource value itself.
type fakeSink struct {
	records map[any][]usage.Record
}

func newFakeSink() *fakeSink { return &fakeSink{records: make(map[any][]usage.Record)} }

func (s *fakeSink) AppendUsage(resource any, rec usage.Record) {
	s.records[resource] = append(s.records[resource], rec)
}

// fakeReflection resolves exactly the keys in active, to a
// ResourceBindingPath derived from the slice index.
type fakeReflection struct {
	active map[driver.BindingKey]driver.ResourceBindingPath
}

func newFakeReflection(keys ...driver.BindingKey) *fakeReflection {
	f := &fakeReflection{active: make(map[driver.BindingKey]driver.ResourceBindingPath)}
	for i, k := range keys {
		f.active[k] = driver.ResourceBindingPath(i + 1)
	}
	return f
}

func (f *fakeReflection) BindingPathForKey(key driver.BindingKey) (driver.ResourceBindingPath, bool) {
	p, ok := f.active[key]
	return p, ok
}
func (f *fakeReflection) BindingPathForArgumentBuffer(p, _ driver.ResourceBindingPath) driver.ResourceBindingPath {
	return p
}
func (f *fakeReflection) ArgumentReflection(p driver.ResourceBindingPath) (driver.ArgumentReflection, bool) {
	return driver.ArgumentReflection{}, false
}
func (f *fakeReflection) BindingIsActive(p driver.ResourceBindingPath) bool { return true }
func (f *fakeReflection) ArgumentBufferEncoder(p driver.ResourceBindingPath) any { return nil }

func TestRecorderSetBufferDeduplicates(t *testing.T) {
	key := driver.BindingKey{Name: "u_color"}
	refl := newFakeReflection(key)
	r := NewRecorder()
	r.SetRenderPipelineDescriptor("pipeline", refl)

	buf := "buffer-handle"
	r.SetBuffer(key, buf, 0, driver.StageFragment, false)
	r.SetBuffer(key, buf, 0, driver.StageFragment, false) // redundant.
	r.SetBuffer(key, buf, 16, driver.StageFragment, false) // offset changed.

	n := r.Len()
	if n != 3 { // pipeline set + first SetBuffer + changed-offset SetBuffer
		t.Fatalf("Recorder.SetBuffer dedup: command count:\nhave %d\nwant 3", n)
	}
}

func TestRecorderPendingBindReplaysOnPipelineChange(t *testing.T) {
	key := driver.BindingKey{Name: "u_tex"}
	inactiveRefl := newFakeReflection() // key not active yet.
	r := NewRecorder()
	r.SetRenderPipelineDescriptor("p1", inactiveRefl)

	buf := "buffer-handle"
	r.SetBuffer(key, buf, 0, driver.StageFragment, false)
	before := r.Len()

	activeRefl := newFakeReflection(key)
	r.SetRenderPipelineDescriptor("p2", activeRefl)
	after := r.Len()

	if after <= before {
		t.Fatalf("Recorder: pending bind was not replayed on pipeline change: before=%d after=%d", before, after)
	}
}

func TestRecorderReadWritePaths(t *testing.T) {
	key := driver.BindingKey{Name: "u_storage"}
	refl := newFakeReflection(key)
	r := NewRecorder()
	r.SetComputePipelineDescriptor("compute", refl)
	r.SetBuffer(key, "buf", 0, driver.StageCompute, true)

	paths := r.ReadWritePaths()
	if len(paths) != 1 {
		t.Fatalf("Recorder.ReadWritePaths: count:\nhave %d\nwant 1", len(paths))
	}
}

func TestRecorderAttachmentReconciliation(t *testing.T) {
	r := NewRecorder()
	r.SetColorAttachment(0, "color-tex", nil)
	r.SetColorAttachment(1, "color-tex-msaa", "resolve-tex")
	r.SetDepthStencilAttachment("depth-tex", nil)

	resolutions := r.ReconcileAttachments()
	if len(resolutions) != 3 {
		t.Fatalf("ReconcileAttachments: count:\nhave %d\nwant 3", len(resolutions))
	}
	// ReconcileAttachments clears state.
	if more := r.ReconcileAttachments(); len(more) != 0 {
		t.Fatalf("ReconcileAttachments called twice: second count:\nhave %d\nwant 0", len(more))
	}
}

func TestRecorderDrawAndDispatchAppend(t *testing.T) {
	r := NewRecorder()
	r.DrawPrimitives(0, 3, 1, 0)
	r.DrawIndexedPrimitives(6, 1, 0, 0)
	r.DispatchThreads(8, 8, 1)
	r.DispatchThreadgroups(1, 1, 1)
	if r.Len() != 4 {
		t.Fatalf("draw/dispatch commands: count:\nhave %d\nwant 4", r.Len())
	}
	if got := r.Arena().At(0).Type; got != DrawPrimitives {
		t.Fatalf("first command Type:\nhave %v\nwant %v", got, DrawPrimitives)
	}
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder()
	r.DrawPrimitives(0, 3, 1, 0)
	r.Reset(0, nil)
	if r.Len() != 0 {
		t.Fatalf("Recorder.Reset: Len:\nhave %d\nwant 0", r.Len())
	}
}

func TestRecorderEmitsBindTimeUsage(t *testing.T) {
	key := driver.BindingKey{Name: "u_color"}
	refl := newFakeReflection(key)
	sink := newFakeSink()
	r := NewRecorder()
	r.Reset(2, sink)
	r.SetRenderPipelineDescriptor("pipeline", refl)

	buf := "buffer-handle"
	r.SetBuffer(key, buf, 0, driver.StageFragment, false)

	recs := sink.records[buf]
	if len(recs) != 1 {
		t.Fatalf("bind-time usage: record count:\nhave %d\nwant 1", len(recs))
	}
	if recs[0].OwningPassRef != 2 {
		t.Fatalf("bind-time usage: OwningPassRef:\nhave %d\nwant 2", recs[0].OwningPassRef)
	}
	if recs[0].Type != usage.Read {
		t.Fatalf("bind-time usage: Type:\nhave %v\nwant %v", recs[0].Type, usage.Read)
	}
}

func TestRecorderReadWriteBindEmitsReadWriteUsage(t *testing.T) {
	key := driver.BindingKey{Name: "u_storage"}
	refl := newFakeReflection(key)
	sink := newFakeSink()
	r := NewRecorder()
	r.Reset(0, sink)
	r.SetComputePipelineDescriptor("compute", refl)

	buf := "storage-buffer"
	r.SetBuffer(key, buf, 0, driver.StageCompute, true)

	recs := sink.records[buf]
	if len(recs) != 1 || recs[0].Type != usage.ReadWrite {
		t.Fatalf("read-write bind usage: have %+v\nwant a single readWrite record", recs)
	}
}

func TestRecorderDrawTimeUsageRefreshesActiveBindings(t *testing.T) {
	key := driver.BindingKey{Name: "u_storage"}
	refl := newFakeReflection(key)
	sink := newFakeSink()
	r := NewRecorder()
	r.Reset(0, sink)
	r.SetComputePipelineDescriptor("compute", refl)

	buf := "storage-buffer"
	r.SetBuffer(key, buf, 0, driver.StageCompute, true)
	r.DispatchThreads(8, 8, 1)
	r.DispatchThreads(8, 8, 1)

	// fakeSink keeps every emitted record; fold them through a
	// usage.List, as FrameGraph.AppendUsage does, to see the merge.
	var merged usage.List
	for _, rec := range sink.records[buf] {
		merged.Append(rec, 0)
	}
	recs := merged.Records()
	if len(recs) != 1 {
		t.Fatalf("draw-time usage refresh: record count:\nhave %d\nwant 1 (merged)", len(recs))
	}
	if recs[0].CommandRange[1] <= recs[0].CommandRange[0] {
		t.Fatalf("draw-time usage refresh: CommandRange did not extend: %v", recs[0].CommandRange)
	}
}

func TestRecorderEndEncodingClampsAttachmentUsage(t *testing.T) {
	sink := newFakeSink()
	r := NewRecorder()
	r.Reset(1, sink)

	r.SetColorAttachment(0, "color-tex", nil)
	r.DrawPrimitives(0, 3, 1, 0)
	r.EndEncoding()

	recs := sink.records["color-tex"]
	if len(recs) == 0 {
		t.Fatalf("EndEncoding: expected at least one usage.Record for the attachment")
	}
	for _, rec := range recs {
		if !rec.Type.IsRenderTarget() {
			t.Fatalf("EndEncoding: attachment usage Type not a render target: %v", rec.Type)
		}
	}
}

func TestRecorderCopyEmitsBlitUsages(t *testing.T) {
	sink := newFakeSink()
	r := NewRecorder()
	r.Reset(0, sink)

	r.CopyBufferToBuffer("src-buf", 0, "dst-buf", 0, 16)

	if recs := sink.records["src-buf"]; len(recs) != 1 || recs[0].Type != usage.BlitSource {
		t.Fatalf("CopyBufferToBuffer: src usage: have %+v\nwant one blitSource record", recs)
	}
	if recs := sink.records["dst-buf"]; len(recs) != 1 || recs[0].Type != usage.BlitDestination {
		t.Fatalf("CopyBufferToBuffer: dst usage: have %+v\nwant one blitDestination record", recs)
	}
}
