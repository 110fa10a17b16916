// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package bitvec

import (
	"iter"
	"testing"
	"unsafe"
)

func TestNbit(t *testing.T) {
	for _, x := range [...][2]int{
		{int(unsafe.Sizeof(uint(0))) * 8, (&V[uint]{}).nbit()},
		{int(unsafe.Sizeof(uint8(0))) * 8, (&V[uint8]{}).nbit()},
		{int(unsafe.Sizeof(uint16(0))) * 8, (&V[uint16]{}).nbit()},
		{int(unsafe.Sizeof(uint32(0))) * 8, (&V[uint32]{}).nbit()},
		{int(unsafe.Sizeof(uint64(0))) * 8, (&V[uint64]{}).nbit()},
		{int(unsafe.Sizeof(uintptr(0))) * 8, (&V[uintptr]{}).nbit()},
	} {
		if x[0] != x[1] {
			t.Fatalf("V[T].nbit:\nhave %d\nwant %d", x[1], x[0])
		}
	}
}

func TestZeroValue(t *testing.T) {
	var v V[uint16]
	if v.s != nil {
		t.Fatalf("zero V.s:\nhave %v\nwant nil", v.s)
	}
	if v.Len() != 0 || v.Rem() != 0 {
		t.Fatalf("zero V: Len/Rem:\nhave %d/%d\nwant 0/0", v.Len(), v.Rem())
	}
}

func TestGrow(t *testing.T) {
	var v V[uint32]
	prevLen := 0
	for _, nplus := range []int{1, 2, 3, 0, 16, -1} {
		start := v.Grow(nplus)
		if start != prevLen {
			t.Fatalf("Grow(%d): returned start:\nhave %d\nwant %d", nplus, start, prevLen)
		}
		wantLen := prevLen
		if nplus > 0 {
			wantLen += nplus * v.nbit()
		}
		if v.Len() != wantLen || v.Rem() != wantLen {
			t.Fatalf("Grow(%d): Len/Rem:\nhave %d/%d\nwant %d/%d", nplus, v.Len(), v.Rem(), wantLen, wantLen)
		}
		for i, w := range v.s {
			if w != 0 {
				t.Fatalf("Grow(%d): s[%d]:\nhave %#x\nwant 0", nplus, i, w)
			}
		}
		prevLen = wantLen
	}
}

// checkRem recomputes Rem from the raw word slice and compares it
// against the maintained counter, catching any Set/Unset/Shrink path
// that drifts the two out of sync.
func (v *V[T]) checkRem(t *testing.T) {
	t.Helper()
	want := v.Len()
	n := v.nbit()
	for _, w := range v.s {
		for i := range n {
			if w&(1<<i) != 0 {
				want--
			}
		}
	}
	if r := v.Rem(); r != want {
		t.Fatalf("Rem drifted from word state:\nhave %d\nwant %d", r, want)
	}
}

func TestShrink(t *testing.T) {
	var v V[uint8]
	for _, n := range []int{0, 1, -1, 2, 100} {
		v.Shrink(n)
		if v.Len() != 0 || v.Rem() != 0 {
			t.Fatalf("Shrink(%d) on empty vector: Len/Rem:\nhave %d/%d\nwant 0/0", n, v.Len(), v.Rem())
		}
	}

	v.Grow(4)
	for i := 0; i < v.Len(); i += 3 {
		v.Set(i)
	}
	v.checkRem(t)
	for v.Len() > 0 {
		oldRem := v.Rem()
		oldWordRem := 0
		if last := v.s[len(v.s)-1]; last != ^uint8(0) {
			for i := range v.nbit() {
				if last&(1<<i) == 0 {
					oldWordRem++
				}
			}
		}
		v.Shrink(1)
		if v.Rem() != oldRem-oldWordRem {
			t.Fatalf("Shrink(1): Rem:\nhave %d\nwant %d", v.Rem(), oldRem-oldWordRem)
		}
		v.checkRem(t)
	}

	v.Grow(10)
	n := len(v.s) + 1
	v.Shrink(n) // a count beyond len(v.s) truncates to everything.
	if v.Len() != 0 || v.Rem() != 0 {
		t.Fatalf("Shrink(%d): Len/Rem:\nhave %d/%d\nwant 0/0", n, v.Len(), v.Rem())
	}
}

func TestSetUnsetIsSet(t *testing.T) {
	var v V[uint8]
	v.Grow(3)

	set := []int{1, 6, 10, 21}
	for _, i := range set {
		v.Set(i)
	}
	v.checkRem(t)
	for i := range v.Len() {
		want := false
		for _, s := range set {
			if s == i {
				want = true
				break
			}
		}
		if got := v.IsSet(i); got != want {
			t.Fatalf("IsSet(%d) after Set%v:\nhave %t\nwant %t", i, set, got, want)
		}
	}

	v.Unset(6)
	v.Unset(23) // unsetting an already-unset bit is a no-op.
	if v.IsSet(6) {
		t.Fatalf("IsSet(6) after Unset(6): have true want false")
	}
	v.checkRem(t)

	// Double-set/unset must not perturb Rem.
	v.Set(21)
	v.Set(21)
	rem := v.Rem()
	v.Unset(21)
	v.Unset(21)
	if v.Rem() != rem+1 {
		t.Fatalf("double Unset: Rem:\nhave %d\nwant %d", v.Rem(), rem+1)
	}
}

// checkSearch calls v.Search and compares against want (< 0 meaning
// Search must fail).
func (v *V[_]) checkSearch(want int, t *testing.T) {
	t.Helper()
	index, ok := v.Search()
	if want < 0 {
		if ok {
			t.Fatalf("Search:\nhave %d, true\nwant _, false", index)
		}
		return
	}
	if !ok || index != want {
		t.Fatalf("Search:\nhave %d, %t\nwant %d, true", index, ok, want)
	}
}

func TestSearch(t *testing.T) {
	var v V[uint32]
	v.checkSearch(-1, t)

	v.Grow(4)
	v.checkSearch(0, t)
	v.Set(0)
	v.checkSearch(1, t)
	v.Set(1)
	v.Set(3)
	v.checkSearch(2, t)
	v.Unset(1)
	v.checkSearch(1, t)

	for i := range v.Len() {
		v.Set(i)
	}
	v.checkSearch(-1, t)
	v.Unset(70)
	v.checkSearch(70, t)
}

// checkSearchRange calls v.SearchRange(n) and compares against want
// (< 0 meaning SearchRange must fail).
func (v *V[_]) checkSearchRange(n, want int, t *testing.T) {
	t.Helper()
	index, ok := v.SearchRange(n)
	if want < 0 {
		if ok {
			t.Fatalf("SearchRange(%d):\nhave %d, true\nwant _, false", n, index)
		}
		return
	}
	if !ok || index != want {
		t.Fatalf("SearchRange(%d):\nhave %d, %t\nwant %d, true", n, index, ok, want)
	}
}

func TestSearchRange(t *testing.T) {
	var v V[uint16]
	v.checkSearchRange(3, -1, t)

	v.Grow(2)
	v.checkSearchRange(3, 0, t)
	for i := 0; i < 9; i++ {
		v.Set(i)
	}
	v.checkSearchRange(3, 9, t) // first 9 bits occupied, a 3-wide gap starts right after.

	v.Unset(1) // punches a single free bit inside the occupied prefix.
	v.checkSearchRange(1, 1, t)
	v.checkSearchRange(2, 9, t) // too narrow to use the lone gap at 1.

	v.Grow(1)
	for i := 9; i < v.Len(); i++ {
		v.Set(i)
	}
	v.checkSearchRange(1, 1, t)
	v.checkSearchRange(16, -1, t) // whole vector occupied save for bit 1.
}

func TestClear(t *testing.T) {
	var v V[uint]
	v.Grow(9)
	for i := range v.Len() {
		if i%3 == 0 {
			v.Set(i)
		}
	}
	v.Clear()
	if v.Rem() != v.Len() {
		t.Fatalf("Clear: Rem:\nhave %d\nwant %d (==Len)", v.Rem(), v.Len())
	}
	for i, w := range v.s {
		if w != 0 {
			t.Fatalf("Clear: s[%d]:\nhave %#x\nwant 0", i, w)
		}
	}
}

// collect drains an iter.Seq[int] into a slice, for comparing against
// an expected index set.
func collect(seq iter.Seq[int]) []int {
	var out []int
	for i := range seq {
		out = append(out, i)
	}
	return out
}

func sliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAllAndOnly(t *testing.T) {
	var v V[uint16]
	set := []int{1, 15, 16, 31}
	v.Grow(2)
	for _, i := range set {
		v.Set(i)
	}

	var gotSet, gotUnset []int
	for i, isSet := range v.All() {
		if isSet {
			gotSet = append(gotSet, i)
		} else {
			gotUnset = append(gotUnset, i)
		}
	}
	if !sliceEqual(gotSet, set) {
		t.Fatalf("All: set bits:\nhave %v\nwant %v", gotSet, set)
	}
	if len(gotUnset) != v.Len()-len(set) {
		t.Fatalf("All: unset bit count:\nhave %d\nwant %d", len(gotUnset), v.Len()-len(set))
	}

	if got := collect(v.Only(true)); !sliceEqual(got, set) {
		t.Fatalf("Only(true):\nhave %v\nwant %v", got, set)
	}
	if got := collect(v.Only(false)); !sliceEqual(got, gotUnset) {
		t.Fatalf("Only(false):\nhave %v\nwant %v", got, gotUnset)
	}

	// Only honors early termination, same as range-over-func generally.
	var n int
	for range v.Only(false) {
		n++
		if n == 1 {
			break
		}
	}
	if n != 1 {
		t.Fatalf("Only(false) early break: iterations:\nhave %d\nwant 1", n)
	}
}
