// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package subres

import "testing"

func TestMaskInline(t *testing.T) {
	for _, x := range [...]struct {
		count      int
		wantInline bool
	}{
		{0, true},
		{1, true},
		{63, true},
		{64, true},
		{65, false},
		{128, false},
		{1000, false},
	} {
		m := newMask(x.count)
		if got := m.inline(); got != x.wantInline {
			t.Fatalf("newMask(%d).inline:\nhave %t\nwant %t", x.count, got, x.wantInline)
		}
	}
}

func TestMaskSetIsSet(t *testing.T) {
	for _, count := range [...]int{1, 64, 65, 200} {
		m := newMask(count)
		m.set(0)
		m.set(count - 1)
		if !m.isSet(0) {
			t.Fatalf("mask(count=%d).set(0): isSet(0):\nhave false\nwant true", count)
		}
		if !m.isSet(count - 1) {
			t.Fatalf("mask(count=%d).set(%d): isSet(%[2]d):\nhave false\nwant true", count, count-1)
		}
		if count > 2 && m.isSet(1) {
			t.Fatalf("mask(count=%d).set(0,%d): isSet(1):\nhave true\nwant false", count, count-1)
		}
	}
}

func TestMaskFillAllIsAllSet(t *testing.T) {
	for _, count := range [...]int{1, 7, 64, 65, 129, 257} {
		m := newMask(count)
		m.fillAll()
		if !m.isAllSet() {
			t.Fatalf("mask(count=%d).fillAll: isAllSet:\nhave false\nwant true", count)
		}
		if m.isAllClear() {
			t.Fatalf("mask(count=%d).fillAll: isAllClear:\nhave true\nwant false", count)
		}
	}
}

func TestMaskZeroIsAllClear(t *testing.T) {
	for _, count := range [...]int{0, 1, 64, 65, 200} {
		m := newMask(count)
		if !m.isAllClear() {
			t.Fatalf("newMask(%d).isAllClear:\nhave false\nwant true", count)
		}
	}
}

func TestMaskClearTrailingBits(t *testing.T) {
	// count=65 spans two words; the second word has only 1 significant
	// bit. Over-setting both words and then calling clearTrailingBits
	// must leave bits 65..127 clear so isAllSet reports true only for
	// the 65 real bits.
	m := newMask(65)
	m.ensureBits()
	m.bits[0] = ^uint64(0)
	m.bits[1] = ^uint64(0) // over-set: bits 65..127 also 1.
	m.clearTrailingBits()
	if m.bits[1] != 1 {
		t.Fatalf("mask(count=65).clearTrailingBits: bits[1]:\nhave %#x\nwant 0x1", m.bits[1])
	}
	if !m.isAllSet() {
		t.Fatalf("mask(count=65).clearTrailingBits: isAllSet:\nhave false\nwant true")
	}
}

func TestMaskUnionIntersectSubtract(t *testing.T) {
	for _, count := range [...]int{8, 130} {
		a := newMask(count)
		b := newMask(count)
		a.set(0)
		a.set(1)
		b.set(1)
		b.set(2)

		u := unionMask(a, b)
		for _, i := range [...]int{0, 1, 2} {
			if !u.isSet(i) {
				t.Fatalf("unionMask(count=%d): isSet(%d):\nhave false\nwant true", count, i)
			}
		}

		inter := intersectMask(a, b)
		if !inter.isSet(1) {
			t.Fatalf("intersectMask(count=%d): isSet(1):\nhave false\nwant true", count)
		}
		if inter.isSet(0) || inter.isSet(2) {
			t.Fatalf("intersectMask(count=%d): expected only bit 1 set", count)
		}

		sub := subtractMask(a, b)
		if !sub.isSet(0) {
			t.Fatalf("subtractMask(count=%d): isSet(0):\nhave false\nwant true", count)
		}
		if sub.isSet(1) || sub.isSet(2) {
			t.Fatalf("subtractMask(count=%d): expected only bit 0 set", count)
		}
	}
}

func TestMaskCloneIsIndependent(t *testing.T) {
	a := newMask(200)
	a.set(5)
	b := a.clone()
	b.set(6)
	if a.isSet(6) {
		t.Fatalf("mask.clone: mutating clone affected original")
	}
	if !b.isSet(5) || !b.isSet(6) {
		t.Fatalf("mask.clone: clone missing bits from original")
	}
}

func TestMaskEqual(t *testing.T) {
	a := newMask(130)
	b := newMask(130)
	a.set(10)
	b.set(10)
	if !a.equal(b) {
		t.Fatalf("mask.equal: identical masks:\nhave false\nwant true")
	}
	b.set(11)
	if a.equal(b) {
		t.Fatalf("mask.equal: differing masks:\nhave true\nwant false")
	}
}

func TestCheckSameCountPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("unionMask with mismatched counts did not panic")
		}
	}()
	unionMask(newMask(8), newMask(9))
}
