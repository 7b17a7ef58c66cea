package line

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// VTState tracks the scanner's position inside a VT100 escape sequence
// while it walks a rendered line, so that escape bytes themselves never
// contribute to the visible cell count.
type VTState int

const (
	VTStateFree VTState = iota
	VTStateEscape
	VTStateBracket
	VTStateBracketArgsSemi
	VTStateTitle
)

// ActualRenderedStringMetrics computes how many terminal cells line would
// occupy once drawn, ignoring any masks (the public API never masks the
// caller's own accounting; masks only apply to the editor's own buffer).
func (l *lineEditor) ActualRenderedStringMetrics(line string) StringMetrics {
	return l.actualRenderedStringMetricsImpl(line, []maskEntry{})
}

func (l *lineEditor) actualRenderedStringMetricsImpl(line string, masks []maskEntry) StringMetrics {
	metrics := StringMetrics{}
	currentLine := LineMetrics{}
	state := VTStateFree
	runes := []rune(line)
	byteOffset := 0
	var mask *Mask
	maskIt := 0

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if maskIt < len(masks) && masks[maskIt].start <= uint32(i) {
			mask = masks[maskIt].mask
		}

		if mask != nil && mask.mode == MaskModeReplaceEntireSelection {
			maskIt++
			actualEndOffset := uint32(len(runes))
			if maskIt < len(masks) {
				actualEndOffset = masks[maskIt].start
			}
			endOffset := min(actualEndOffset, uint32(len(runes)))
			j := 0
			for it := 0; it != len(mask.replacementView); it++ {
				itCopy := it
				itCopy++
				nextC := rune(0)
				if itCopy < len(mask.replacementView) {
					nextC = mask.replacementView[itCopy]
				}
				state = l.actualRenderedStringLengthStep(&metrics, j, &currentLine, mask.replacementView[it], nextC, state, nil)
				j++
				if uint32(j) <= actualEndOffset-uint32(i) && j+i >= len(runes) {
					break
				}
			}
			currentLine.MaskedChars = append(currentLine.MaskedChars, MaskedChar{
				Position:       uint32(i),
				OriginalLength: endOffset - uint32(i),
				MaskedLength:   uint32(j),
			})
			i = int(endOffset - 1)

			if maskIt == len(masks) {
				mask = nil
			} else {
				mask = masks[maskIt].mask
			}
			continue
		}

		nextC := rune(0)
		if i+1 < len(runes) {
			nextC = runes[i+1]
		}
		state = l.actualRenderedStringLengthStep(&metrics, byteOffset, &currentLine, c, nextC, state, mask)
		byteOffset += utf8.RuneLen(c)
		if maskIt < len(masks) && masks[maskIt].start == uint32(i) {
			maskItPeek := maskIt + 1
			if maskItPeek < len(masks) && masks[maskItPeek].start > uint32(i) {
				maskIt = maskItPeek
			}
		}
	}

	metrics.LineMetrics = append(metrics.LineMetrics, currentLine)
	for _, lineMetric := range metrics.LineMetrics {
		metrics.MaxLineLength = max(lineMetric.TotalLength(-1), metrics.MaxLineLength)
	}

	return metrics
}

func (l *lineEditor) actualRenderedStringLengthStep(metrics *StringMetrics, index int, currentLine *LineMetrics, c, nextC rune, state VTState, mask *Mask) VTState {
	switch state {
	case VTStateFree:
		if c == '\x1b' {
			return VTStateEscape
		}
		if c == '\r' {
			currentLine.MaskedChars = []MaskedChar{}
			currentLine.Length = 0
			if len(metrics.LineMetrics) != 0 {
				metrics.LineMetrics[len(metrics.LineMetrics)-1] = LineMetrics{}
			}
			return state
		}
		if c == '\n' {
			metrics.LineMetrics = append(metrics.LineMetrics, *currentLine)
			currentLine.MaskedChars = []MaskedChar{}
			currentLine.Length = 0
			return state
		}
		cellWidth := uint32(max(uint32(runewidth.RuneWidth(c)), 1))
		maskedLength := uint32(0)
		isControl := false
		if c == 0x7f || c < 0x20 {
			isControl = true
			cellWidth = 1
			if mask != nil {
				currentLine.MaskedChars = append(currentLine.MaskedChars, MaskedChar{
					Position:       uint32(index),
					OriginalLength: 1,
					MaskedLength:   uint32(len(mask.replacementView)),
				})
			} else {
				maskedLength = 2
				if c > 64 {
					maskedLength = 4
				}
				currentLine.MaskedChars = append(currentLine.MaskedChars, MaskedChar{
					Position:       uint32(index),
					OriginalLength: 1,
					MaskedLength:   maskedLength,
				})
			}
		}
		if mask != nil {
			currentLine.Length += uint32(len(mask.replacementView))
			metrics.TotalLength += uint32(len(mask.replacementView))
		} else if isControl {
			currentLine.Length += maskedLength
			metrics.TotalLength += maskedLength
		} else {
			currentLine.Length += cellWidth
			metrics.TotalLength += cellWidth
		}
		return state
	case VTStateEscape:
		if c == ']' {
			if nextC == '0' {
				return VTStateTitle
			}
			return state
		}
		if c == '[' {
			return VTStateBracket
		}
		return state
	case VTStateBracket:
		if c >= '0' && c <= '9' {
			return VTStateBracketArgsSemi
		}
		return state
	case VTStateBracketArgsSemi:
		if c == ';' {
			return VTStateBracket
		}
		if c >= '0' && c <= '9' {
			return state
		}

		return VTStateFree
	case VTStateTitle:
		if c == 7 {
			return VTStateFree
		}
		return state
	default:
		return state
	}
}
