// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package usage

import "github.com/cflux/fgraph/subres"

// List is the append-only usage log for a single resource within a
// frame, ordered by recording order (spec.md §3 "Usage record" /
// §4.B). Append is the only mutator; it applies the merge rules so
// that adjacent compatible usages collapse into one Record instead of
// growing the list unboundedly.
type List struct {
	records []Record
}

// Records returns the list's current contents. The returned slice
// aliases the List's backing array and must not be mutated.
func (l *List) Records() []Record { return l.records }

// Len returns the number of merged records currently stored.
func (l *List) Len() int { return len(l.records) }

// Reset discards every recorded usage, for reuse at the start of the
// next frame a resource's slot is touched in (spec.md §4.B usage lists
// are a per-frame log, not a cross-frame history).
func (l *List) Reset() { l.records = l.records[:0] }

// RemapCommandRanges rewrites every record's CommandRange from a
// pass-local command index to a global one, by adding bases[pass] to
// both bounds (bases is indexed by Record.OwningPassRef). The compiler
// calls this once per frame, after every pass has finished recording
// and the per-pass command counts are known, so that a later global
// command-stream walk can compare CommandRanges across passes directly
// (spec.md §4.B "commandRange remapping").
func (l *List) RemapCommandRanges(bases []int) {
	for i := range l.records {
		pass := l.records[i].OwningPassRef
		if pass < 0 || pass >= len(bases) {
			continue
		}
		b := bases[pass]
		l.records[i].CommandRange[0] += b
		l.records[i].CommandRange[1] += b
	}
}

// Append records a new usage, merging it into the trailing record when
// the merge rules (spec.md §4.B, rules 1-4) allow it:
//
//  1. Different passes never merge, since collapsing across a pass
//     boundary would lose which pass owns the resulting
//     synchronisation point.
//  2. A render-target tail followed by a same-range read or
//     inputAttachment usage promotes the tail to
//     inputAttachmentRenderTarget instead of appending a new record
//     (stages/activeRange/inArgumentBuffer union, range extended).
//     When the two ranges are disjoint instead, the tail is truncated
//     to end where the new usage starts and the new usage is itself
//     relabelled inputAttachmentRenderTarget before being appended as
//     its own record, without merging the two.
//  3. Two render-target usages merge by taking the higher-ranked type
//     in the unused < writeOnly < inputAttachment < readWrite lattice
//     (renderTargetRank); a non-render-target read merging with a
//     non-render-target write (and vice versa) produces readWrite.
//  4. Otherwise mergeable iff InArgumentBuffer matches and the types
//     are equal or related by rule 3's lattice; the result unions
//     stages and active range and extends the command range.
//
// subresourceCount is the resource's subresource count, needed to size
// the ActiveRange union; pass 0 for buffer resources.
func (l *List) Append(r Record, subresourceCount int) {
	n := len(l.records)
	if n == 0 {
		l.records = append(l.records, r)
		return
	}
	last := &l.records[n-1]

	if last.OwningPassRef == r.OwningPassRef && last.Type.IsRenderTarget() &&
		!r.Type.IsRenderTarget() && (r.Type == Read || r.Type == InputAttachment) {
		if subres.Intersects(last.ActiveRange, r.ActiveRange, subresourceCount) {
			last.Type = InputAttachmentRenderTarget
			last.Stages |= r.Stages
			last.InArgumentBuffer = last.InArgumentBuffer || r.InArgumentBuffer
			last.ActiveRange = subres.Union(last.ActiveRange, r.ActiveRange, subresourceCount)
			last.CommandRange = unionRange(last.CommandRange, r.CommandRange)
			return
		}
		last.CommandRange[1] = r.CommandRange[0]
		r.Type = InputAttachmentRenderTarget
		l.records = append(l.records, r)
		return
	}

	if merged, ok := tryMerge(*last, r, subresourceCount); ok {
		*last = merged
		return
	}
	l.records = append(l.records, r)
}

// tryMerge implements merge rules 1, 3 and 4 and, on success, returns
// the merged Record. Rule 2's render-target/read promotion is handled
// directly by Append, since its "otherwise" branch mutates the tail
// even when the two records don't end up merged.
func tryMerge(a, b Record, subresourceCount int) (Record, bool) {
	if a.OwningPassRef != b.OwningPassRef {
		return Record{}, false
	}
	if a.InArgumentBuffer != b.InArgumentBuffer {
		return Record{}, false
	}

	mergedType, ok := mergeType(a.Type, b.Type)
	if !ok {
		return Record{}, false
	}

	m := a
	m.Type = mergedType
	m.Stages |= b.Stages
	m.CommandRange = unionRange(a.CommandRange, b.CommandRange)
	m.ActiveRange = subres.Union(a.ActiveRange, b.ActiveRange, subresourceCount)
	return m, true
}

func unionRange(a, b [2]int) [2]int {
	lo, hi := a[0], a[1]
	if b[0] < lo {
		lo = b[0]
	}
	if b[1] > hi {
		hi = b[1]
	}
	return [2]int{lo, hi}
}

// mergeType picks the merged Type for tryMerge: identical-type
// extension, promotion between two render-target usages, and the
// read/write lattice. Rule 2 is handled in Append, not here.
func mergeType(a, b Type) (Type, bool) {
	if a == b {
		return a, true
	}
	if a.IsRenderTarget() && b.IsRenderTarget() {
		if renderTargetRank(b) > renderTargetRank(a) {
			return b, true
		}
		return a, true
	}
	if !a.IsRenderTarget() && !b.IsRenderTarget() {
		aRW, bRW := rwClass(a), rwClass(b)
		if aRW == rwNone || bRW == rwNone {
			return 0, false
		}
		switch {
		case aRW == bRW:
			return a, true
		case aRW == rwReadWrite || bRW == rwReadWrite:
			return ReadWrite, true
		default:
			// one Read, one Write (in either order).
			return ReadWrite, true
		}
	}
	return 0, false
}

type rwClassT int

const (
	rwNone rwClassT = iota
	rwRead
	rwWrite
	rwReadWrite
)

// rwClass classifies a non-render-target Type for the read/write
// merge lattice. Only the plain Read/Write/ReadWrite usage types
// participate; every other non-render-target type (samplers, blits,
// vertex/index buffers, ...) is rwNone and never merges by rule 3.
func rwClass(t Type) rwClassT {
	switch t {
	case Read:
		return rwRead
	case Write:
		return rwWrite
	case ReadWrite:
		return rwReadWrite
	default:
		return rwNone
	}
}
