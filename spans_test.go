package line

import "testing"

func TestAddSpanReportsChange(t *testing.T) {
	starting := map[uint32]map[uint32]Style{}
	ending := map[uint32]map[uint32]Style{}

	if changed := addSpan(starting, ending, 2, 5, Style{Bold: true}); !changed {
		t.Fatalf("expected first insertion to report a change")
	}
	if changed := addSpan(starting, ending, 2, 5, Style{Bold: true}); changed {
		t.Fatalf("expected re-adding the same span to report no change")
	}
	if changed := addSpan(starting, ending, 2, 5, Style{Italic: true}); changed {
		t.Fatalf("replacing the style of an existing span is not a new key, so should not report a change")
	}
}

func assertOnlySpan(t *testing.T, s *spans, start, end uint32) {
	t.Helper()
	inner, ok := s.anchoredSpansStarting[start]
	if !ok {
		t.Fatalf("expected a span starting at %d, got %v", start, s.anchoredSpansStarting)
	}
	if _, ok := inner[end]; !ok {
		t.Fatalf("expected a span [%d,%d), got %v", start, end, inner)
	}
	count := 0
	for _, inner := range s.anchoredSpansStarting {
		count += len(inner)
	}
	if count != 1 {
		t.Fatalf("expected exactly one anchored span, got %v", s.anchoredSpansStarting)
	}
}

func TestReadjustAnchoredStylesInsertionInsideSpanGrowsIt(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	// Insertion strictly inside [3,6) extends the span to cover the new
	// code point rather than shifting it out from under the insertion.
	s.readjustAnchoredStyles(4, modificationKindInsertion)

	assertOnlySpan(t, &s, 3, 7)
}

func TestReadjustAnchoredStylesInsertionAtOrBeforeStartShiftsWhole(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	// Insertion at the exact start of the span pushes the whole span
	// forward rather than being absorbed into it.
	s.readjustAnchoredStyles(3, modificationKindInsertion)

	assertOnlySpan(t, &s, 4, 7)
}

func TestReadjustAnchoredStylesInsertionBeforeSpanShiftsWhole(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	s.readjustAnchoredStyles(1, modificationKindInsertion)

	assertOnlySpan(t, &s, 4, 7)
}

func TestReadjustAnchoredStylesInsertionAtOrAfterEndLeavesUnchanged(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	// p >= e leaves the span unchanged.
	s.readjustAnchoredStyles(6, modificationKindInsertion)
	assertOnlySpan(t, &s, 3, 6)

	s.readjustAnchoredStyles(9, modificationKindInsertion)
	assertOnlySpan(t, &s, 3, 6)
}

func TestReadjustAnchoredStylesRemovalBeforeSpanShiftsWhole(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	s.readjustAnchoredStyles(1, modificationKindRemoval)

	assertOnlySpan(t, &s, 2, 5)
}

func TestReadjustAnchoredStylesRemovalInsideSpanShrinksIt(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	s.readjustAnchoredStyles(4, modificationKindRemoval)

	assertOnlySpan(t, &s, 3, 5)
}

func TestReadjustAnchoredStylesRemovalAtStartShiftsWhole(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	// start >= hint shifts the whole span, even when hint == start and the
	// span survives (more than one code point wide).
	s.readjustAnchoredStyles(3, modificationKindRemoval)

	assertOnlySpan(t, &s, 2, 5)
}

func TestReadjustAnchoredStylesRemovalDropsExactSingleCharSpan(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(1, 2, Style{Bold: true})

	// Removing the one code point a single-character anchored span covers
	// must drop the span outright, never leave behind start == end.
	s.readjustAnchoredStyles(1, modificationKindRemoval)

	if len(s.anchoredSpansStarting) != 0 {
		t.Fatalf("expected the single-code-point span to be dropped entirely, got %v", s.anchoredSpansStarting)
	}
}

func TestReadjustAnchoredStylesRemovalAtOrAfterEndLeavesUnchanged(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	s.readjustAnchoredStyles(6, modificationKindRemoval)
	assertOnlySpan(t, &s, 3, 6)

	s.readjustAnchoredStyles(9, modificationKindRemoval)
	assertOnlySpan(t, &s, 3, 6)
}

func TestReadjustAnchoredStylesForcedOverlapRemovalDropsOverlapping(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	// h falls inside [3,6): the span must be dropped, not relocated.
	s.readjustAnchoredStyles(4, modificationKindForcedOverlapRemoval)

	if len(s.anchoredSpansStarting) != 0 {
		t.Fatalf("expected the overlapping span to be dropped, got %v", s.anchoredSpansStarting)
	}
}

func TestReadjustAnchoredStylesForcedOverlapRemovalLeavesNonOverlapping(t *testing.T) {
	s := newSpanStore()
	s.stylizeAnchoredForTest(3, 6, Style{Bold: true})

	// h == e is not inside the half-open span, so it must survive untouched.
	s.readjustAnchoredStyles(6, modificationKindForcedOverlapRemoval)

	assertOnlySpan(t, &s, 3, 6)
}

func TestFixedSpanIsUnaffectedByReadjustment(t *testing.T) {
	s := newSpanStore()
	addSpan(s.spansStarting, s.spansEnding, 3, 6, Style{Bold: true})

	s.readjustAnchoredStyles(4, modificationKindInsertion)
	s.readjustAnchoredStyles(4, modificationKindRemoval)
	s.readjustAnchoredStyles(4, modificationKindForcedOverlapRemoval)

	if _, ok := s.spansStarting[3][6]; !ok {
		t.Fatalf("fixed spans must never move or be dropped, regardless of edits")
	}
}

func TestContainsUpToOffset(t *testing.T) {
	a := newSpanStore()
	addSpan(a.spansStarting, a.spansEnding, 0, 3, Style{Bold: true})

	b := newSpanStore()
	addSpan(b.spansStarting, b.spansEnding, 0, 3, Style{Bold: true})

	if !a.containsUpToOffset(&b, 3) {
		t.Fatalf("identical span stores should contain each other up to any offset")
	}

	c := newSpanStore()
	if a.containsUpToOffset(&c, 3) {
		t.Fatalf("an empty store cannot be said to contain a's spans")
	}
}

// stylizeAnchoredForTest is a small helper so the anchored-relocation tests
// don't need a full lineEditor to exercise spans in isolation.
func (s *spans) stylizeAnchoredForTest(start, end uint32, style Style) {
	addSpan(s.anchoredSpansStarting, s.anchoredSpansEnding, start, end, style)
}
