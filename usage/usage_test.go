// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package usage

import (
	"testing"

	"github.com/cflux/fgraph/driver"
	"github.com/cflux/fgraph/subres"
)

func TestTypePredicates(t *testing.T) {
	for _, x := range [...]struct {
		typ            Type
		read, write    bool
		renderTarget   bool
	}{
		{Read, true, false, false},
		{Write, false, true, false},
		{ReadWrite, true, true, false},
		{UnusedRenderTarget, false, false, true},
		{WriteOnlyRenderTarget, false, true, true},
		{ReadWriteRenderTarget, true, true, true},
		{Sampler, true, false, false},
		{BlitDestination, false, true, false},
		{VertexBuffer, true, false, false},
	} {
		if got := x.typ.IsRead(); got != x.read {
			t.Fatalf("%v.IsRead:\nhave %t\nwant %t", x.typ, got, x.read)
		}
		if got := x.typ.IsWrite(); got != x.write {
			t.Fatalf("%v.IsWrite:\nhave %t\nwant %t", x.typ, got, x.write)
		}
		if got := x.typ.IsRenderTarget(); got != x.renderTarget {
			t.Fatalf("%v.IsRenderTarget:\nhave %t\nwant %t", x.typ, got, x.renderTarget)
		}
	}
}

func TestListAppendMergesIdenticalAdjacent(t *testing.T) {
	var l List
	active := subres.NewBufferRange(0, 16)
	l.Append(NewRecord(Read, driver.StageFragment, 0, 0, active), 0)
	l.Append(NewRecord(Read, driver.StageFragment, 0, 1, active), 0)
	if l.Len() != 1 {
		t.Fatalf("List.Append identical adjacent reads: Len:\nhave %d\nwant 1", l.Len())
	}
	if cr := l.Records()[0].CommandRange; cr != [2]int{0, 2} {
		t.Fatalf("merged CommandRange:\nhave %v\nwant [0 2]", cr)
	}
}

func TestListAppendDoesNotMergeAcrossPasses(t *testing.T) {
	var l List
	active := subres.NewBufferRange(0, 16)
	l.Append(NewRecord(Read, driver.StageFragment, 0, 0, active), 0)
	l.Append(NewRecord(Read, driver.StageFragment, 1, 0, active), 0)
	if l.Len() != 2 {
		t.Fatalf("List.Append across passes: Len:\nhave %d\nwant 2", l.Len())
	}
}

func TestListAppendReadWriteLattice(t *testing.T) {
	var l List
	active := subres.NewBufferRange(0, 16)
	l.Append(NewRecord(Read, driver.StageCompute, 0, 0, active), 0)
	l.Append(NewRecord(Write, driver.StageCompute, 0, 1, active), 0)
	if l.Len() != 1 {
		t.Fatalf("List.Append read+write: Len:\nhave %d\nwant 1", l.Len())
	}
	if got := l.Records()[0].Type; got != ReadWrite {
		t.Fatalf("List.Append read+write: Type:\nhave %v\nwant %v", got, ReadWrite)
	}
}

func TestListAppendRenderTargetPromotion(t *testing.T) {
	var l List
	active := subres.NewFull()
	l.Append(NewRecord(WriteOnlyRenderTarget, driver.StageFragment, 0, 0, active), 1)
	l.Append(NewRecord(ReadWriteRenderTarget, driver.StageFragment, 0, 1, active), 1)
	if got := l.Records()[0].Type; got != ReadWriteRenderTarget {
		t.Fatalf("render target promotion: Type:\nhave %v\nwant %v", got, ReadWriteRenderTarget)
	}
}

func TestListAppendDoesNotMergeRenderTargetWithNonRenderTarget(t *testing.T) {
	var l List
	active := subres.NewFull()
	l.Append(NewRecord(WriteOnlyRenderTarget, driver.StageFragment, 0, 0, active), 1)
	l.Append(NewRecord(Sampler, driver.StageFragment, 0, 1, active), 1)
	if l.Len() != 2 {
		t.Fatalf("render target + sampler: Len:\nhave %d\nwant 2", l.Len())
	}
}

func TestListAppendRenderTargetReadPromotesToInputAttachment(t *testing.T) {
	var l List
	active := subres.NewFull()
	l.Append(NewRecord(WriteOnlyRenderTarget, driver.StageFragment, 0, 0, active), 1)
	l.Append(NewRecord(Read, driver.StageFragment, 0, 1, active), 1)
	if l.Len() != 1 {
		t.Fatalf("render-target + same-range read: Len:\nhave %d\nwant 1", l.Len())
	}
	if got := l.Records()[0].Type; got != InputAttachmentRenderTarget {
		t.Fatalf("render-target + same-range read: Type:\nhave %v\nwant %v", got, InputAttachmentRenderTarget)
	}
	if cr := l.Records()[0].CommandRange; cr != [2]int{0, 2} {
		t.Fatalf("render-target + same-range read: CommandRange:\nhave %v\nwant [0 2]", cr)
	}
}

func TestListAppendRenderTargetDisjointReadDoesNotMerge(t *testing.T) {
	var l List
	rt := subres.NewBufferRange(0, 16) // unrealistic for a render target, but exercises the range check.
	read := subres.NewBufferRange(32, 48)
	l.Append(NewRecord(WriteOnlyRenderTarget, driver.StageFragment, 0, 0, rt), 0)
	l.Append(NewRecord(Read, driver.StageFragment, 0, 1, read), 0)
	if l.Len() != 2 {
		t.Fatalf("render-target + disjoint read: Len:\nhave %d\nwant 2", l.Len())
	}
	if got := l.Records()[0].CommandRange; got[1] != 1 {
		t.Fatalf("render-target + disjoint read: truncated CommandRange:\nhave %v\nwant upper bound 1", got)
	}
	if got := l.Records()[1].Type; got != InputAttachmentRenderTarget {
		t.Fatalf("render-target + disjoint read: new record Type:\nhave %v\nwant %v", got, InputAttachmentRenderTarget)
	}
}

func TestFirstActiveUsageAndAffectsGPUBarriers(t *testing.T) {
	r := NewRecord(UnusedRenderTarget, driver.StageFragment, 0, 0, subres.NewInactive())
	if !r.firstActiveUsage() {
		t.Fatalf("unusedRenderTarget.firstActiveUsage:\nhave false\nwant true")
	}
	if r.AffectsGPUBarriers() {
		t.Fatalf("unusedRenderTarget.AffectsGPUBarriers:\nhave true\nwant false")
	}

	r2 := NewRecord(ReadWrite, driver.StageCompute, 0, 0, subres.NewFull())
	if !r2.AffectsGPUBarriers() {
		t.Fatalf("readWrite.AffectsGPUBarriers:\nhave false\nwant true")
	}
}
