package line

import "sort"

// spans is the style/span store for one snapshot of the edit buffer. Fixed
// spans stay pinned to the code-point offsets they were given; anchored
// spans are relocated by readjustAnchoredStyles as the buffer around them
// grows or shrinks, so that e.g. a style applied to "the word under the
// cursor" keeps tracking that word as more text is typed before it.
type spans struct {
	spansStarting map[uint32]map[uint32]Style
	spansEnding   map[uint32]map[uint32]Style

	anchoredSpansStarting map[uint32]map[uint32]Style
	anchoredSpansEnding   map[uint32]map[uint32]Style
}

func newSpanStore() spans {
	return spans{
		spansStarting:         map[uint32]map[uint32]Style{},
		spansEnding:           map[uint32]map[uint32]Style{},
		anchoredSpansStarting: map[uint32]map[uint32]Style{},
		anchoredSpansEnding:   map[uint32]map[uint32]Style{},
	}
}

func addSpan(starting, ending map[uint32]map[uint32]Style, start, end uint32, style Style) bool {
	startingMap, ok := starting[start]
	if !ok {
		startingMap = map[uint32]Style{}
		starting[start] = startingMap
	}
	changed := false
	if _, ok = startingMap[end]; !ok {
		changed = true
	}
	startingMap[end] = style

	endingMap, ok := ending[end]
	if !ok {
		endingMap = map[uint32]Style{}
		ending[end] = endingMap
	}
	if _, ok = endingMap[start]; !ok {
		changed = true
	}
	endingMap[start] = style

	return changed
}

// modificationKind tells readjustAnchoredStyles what kind of edit hint
// refers to, since insertion, removal, and a forced drop of overlapping
// spans each relocate (or discard) an anchor differently.
type modificationKind int

const (
	modificationKindInsertion modificationKind = iota
	modificationKindRemoval
	modificationKindForcedOverlapRemoval
)

// readjustAnchoredStyles relocates every anchored span around an edit at
// hint, matching the original editor's anchor-relocation behaviour: anchored
// spans move with the text they were attached to, fixed spans never do.
//
// For Insertion and Removal, a span entirely before hint (end <= hint) is
// left untouched, a span with start >= hint shifts wholesale, and a span
// straddling hint (start < hint < end) grows or shrinks in place. A Removal
// that deletes a span's only code point (start == hint && end == hint+1)
// drops the span outright rather than leaving a span with start == end.
// ForcedOverlapRemoval drops every anchored span satisfying
// start <= hint < end without relocating anything else, used to clear the
// way before re-stylizing the region a tab completion just replaced.
func (s *spans) readjustAnchoredStyles(hint uint32, kind modificationKind) {
	type anchor struct {
		start uint32
		end   uint32
		style Style
	}

	var anchors []anchor
	for start, inner := range s.anchoredSpansStarting {
		for end, style := range inner {
			anchors = append(anchors, anchor{start, end, style})
		}
	}

	s.anchoredSpansStarting = map[uint32]map[uint32]Style{}
	s.anchoredSpansEnding = map[uint32]map[uint32]Style{}

	for _, a := range anchors {
		if kind == modificationKindForcedOverlapRemoval {
			if a.start <= hint && hint < a.end {
				continue
			}
			addSpan(s.anchoredSpansStarting, s.anchoredSpansEnding, a.start, a.end, a.style)
			continue
		}

		if hint >= a.end {
			// Entirely before the edit point; unaffected.
		} else if kind == modificationKindInsertion {
			if hint <= a.start {
				a.start++
			}
			a.end++
		} else {
			if hint <= a.start {
				if a.start == hint && a.end == hint+1 {
					continue
				}
				a.start--
				a.end--
			} else {
				a.end--
			}
		}

		addSpan(s.anchoredSpansStarting, s.anchoredSpansEnding, a.start, a.end, a.style)
	}
}

func (l *lineEditor) stylize(span Span, style Style) {
	if style.IsEmpty() && style.Mask == nil {
		return
	}

	start := span.Start
	end := span.End

	if start == end {
		return
	}

	if span.Mode == SpanModeByte {
		start, end = l.byteOffsetRangeToCodePointOffsetRange(start, end, 0, false)
	}

	l.installMask(start, end, style.Mask)
	style.Mask = nil

	if l.currentSpans.spansStarting == nil {
		l.currentSpans = newSpanStore()
	}

	var changed bool
	if style.Anchored {
		changed = addSpan(l.currentSpans.anchoredSpansStarting, l.currentSpans.anchoredSpansEnding, start, end, style)
	} else {
		changed = addSpan(l.currentSpans.spansStarting, l.currentSpans.spansEnding, start, end, style)
	}
	if changed {
		l.refreshNeeded = true
	}
}

func (l *lineEditor) installMask(start, end uint32, mask *Mask) {
	if mask == nil {
		return
	}

	i := len(l.currentMasks)
	for j := len(l.currentMasks); j > 0; j-- {
		e := l.currentMasks[j-1]
		if e.start < start {
			break
		}
		i = j - 1
	}
	var lastEncounteredEntry *Mask
	if i != len(l.currentMasks) {
		for {
			nextI := len(l.currentMasks)
			for j, e := range l.currentMasks {
				if e.start > start {
					break
				}
				nextI = j
			}
			if nextI == len(l.currentMasks) {
				break
			}
			entry := &l.currentMasks[nextI]
			if entry.mask != nil {
				lastEncounteredEntry = entry.mask
			}
			l.currentMasks = append(l.currentMasks[:nextI], l.currentMasks[nextI+1:]...)
		}
	}
	l.currentMasks = append(l.currentMasks, []maskEntry{{start, mask}, {end, nil}}...)
	if lastEncounteredEntry != nil {
		l.currentMasks = append(l.currentMasks, maskEntry{end + 1, lastEncounteredEntry})
	}

	sortable := &sortableMaskEntrySlice{l.currentMasks}
	sort.Sort(sortable)
	l.currentMasks = sortable.entries
}

func (l *lineEditor) findApplicableStyle(offset uint32) Style {
	style := StyleReset
	unify := func(starting map[uint32]map[uint32]Style) {
		for key, value := range starting {
			if key >= offset {
				continue
			}
			for endKey, applicableStyle := range value {
				if endKey <= offset {
					continue
				}
				style.UnifyWith(applicableStyle)
			}
		}
	}

	unify(l.currentSpans.spansStarting)
	unify(l.currentSpans.anchoredSpansStarting)

	return style
}

func spanMapContainsUpToOffset(left, right map[uint32]map[uint32]Style, offset uint32) bool {
	for entryKey, entryValue := range right {
		if entryKey > offset+1 {
			continue
		}

		leftMap, ok := left[entryKey]
		if !ok {
			return false
		}

		for leftEntryKey, leftEntryValue := range leftMap {
			valueMap, ok := entryValue[leftEntryKey]
			if ok {
				if valueMap != leftEntryValue {
					return false
				}
			} else {
				found := false
				for possiblyLongerSpanEntryKey, possiblyLongerSpanEntryValue := range entryValue {
					if possiblyLongerSpanEntryKey > leftEntryKey && possiblyLongerSpanEntryKey > offset && leftEntryValue == possiblyLongerSpanEntryValue {
						found = true
						break
					}
				}
				if found {
					continue
				}
				return false
			}
		}
	}
	return true
}

func (s *spans) containsUpToOffset(other *spans, offset uint32) bool {
	return spanMapContainsUpToOffset(s.spansStarting, other.spansStarting, offset) &&
		spanMapContainsUpToOffset(s.anchoredSpansStarting, other.anchoredSpansStarting, offset)
}
