package line

import "testing"

func TestReverseRuneRange(t *testing.T) {
	buf := []rune("abcdef")
	reverseRuneRange(buf, 1, 5)

	if string(buf) != "aedcbf" {
		t.Fatalf("expected \"aedcbf\", got %q", string(buf))
	}
}

func TestTransposeWordsSwapsWordAroundCursor(t *testing.T) {
	e := &lineEditor{buffer: []rune("foo bar"), cursor: 3}

	transposeWords(e)

	if string(e.buffer) != "bar foo" {
		t.Fatalf("expected \"bar foo\", got %q", string(e.buffer))
	}
	if e.cursor != uint32(len(e.buffer)) {
		t.Fatalf("expected cursor to land after the transposed pair, got %d", e.cursor)
	}
}

func TestTransposeWordsPreservesMultiSpaceGap(t *testing.T) {
	e := &lineEditor{buffer: []rune("foo   bar"), cursor: 3}

	transposeWords(e)

	if string(e.buffer) != "bar   foo" {
		t.Fatalf("expected the gap between words to survive untouched, got %q", string(e.buffer))
	}
}

func TestTransposeWordsWithCursorBetweenLaterWords(t *testing.T) {
	e := &lineEditor{buffer: []rune("foo bar baz"), cursor: 7}

	transposeWords(e)

	if string(e.buffer) != "foo baz bar" {
		t.Fatalf("expected the word pair straddling the cursor to swap, got %q", string(e.buffer))
	}
}

func TestTransposeWordsNoSecondWordIsNoOp(t *testing.T) {
	e := &lineEditor{buffer: []rune("onlyword"), cursor: 0}

	transposeWords(e)

	if string(e.buffer) != "onlyword" {
		t.Fatalf("expected no change when there is no word to swap with, got %q", string(e.buffer))
	}
}

func TestCursorLeftWordSkipsWholeWordBack(t *testing.T) {
	e := &lineEditor{buffer: []rune("foo bar baz"), cursor: 11}

	cursorLeftWord(e)

	if e.cursor != 8 {
		t.Fatalf("expected cursor to land at the start of \"baz\" (8), got %d", e.cursor)
	}
}

func TestCursorLeftWordFromMiddleOfWordGoesToItsStart(t *testing.T) {
	e := &lineEditor{buffer: []rune("hello world"), cursor: 9}

	cursorLeftWord(e)

	if e.cursor != 6 {
		t.Fatalf("expected cursor to land at the start of \"world\" (6), got %d", e.cursor)
	}
}

func TestCursorLeftWordSkipsTrailingNonAlnumFirst(t *testing.T) {
	e := &lineEditor{buffer: []rune("foo   bar   "), cursor: 12}

	cursorLeftWord(e)

	if e.cursor != 6 {
		t.Fatalf("expected cursor to skip the trailing gap before landing at the start of \"bar\" (6), got %d", e.cursor)
	}
}

func TestIsAlphaNumeric(t *testing.T) {
	for _, c := range []rune{'a', 'Z', '5'} {
		if !isAlphaNumeric(c) {
			t.Errorf("expected %q to be alphanumeric", c)
		}
	}
	for _, c := range []rune{' ', '-', '_', '\t'} {
		if isAlphaNumeric(c) {
			t.Errorf("expected %q to not be alphanumeric", c)
		}
	}
}
