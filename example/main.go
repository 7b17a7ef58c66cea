package main

import (
	"fmt"
	vtline "github.com/arfax/vtline"
	"strings"
)

func main() {
	editor := vtline.NewEditor(vtline.Configuration{})
	editor.SetRefreshHandler(func(_ vtline.Editor) {
		l := editor.Line()
		editor.StripStyles()
		count := 0
		offset := -1
		for i, ch := range []rune(l) {
			if ch == 'x' {
				count++
				editor.Stylize(vtline.Span{
					Start: uint32(i),
					End:   uint32(i + 1),
					Mode:  vtline.SpanModeRune,
				}, vtline.Style{
					ForegroundColor: vtline.MakeXtermColor(vtline.XtermColorBlue),
					Mask:            vtline.NewMask("r", vtline.MaskModeReplaceEachCodePointInSelection),
				})
			}
			if ch == 'y' {
				offset = i
			}
		}
		if offset != -1 {
			editor.SetLine(editor.LineUpTo(uint32(offset)))
		}
		editor.SetPrompt(fmt.Sprintf("I highlight x's (%d so far): ", count))
	})
	interrupted := false
	editor.SetInterruptHandler(func() {
		interrupted = true
		editor.Finish()
	})
	editor.SetTabCompletionHandler(func(_ vtline.Editor) []vtline.Completion {
		l := editor.Line()
		parts := strings.Split(l, " ")
		if strings.HasPrefix("exit", parts[len(parts)-1]) {
			return []vtline.Completion{
				{
					Text:                      "exit",
					InvariantOffset:           uint32(len(parts[len(parts)-1])),
					AllowCommitWithoutListing: true,
				},
			}
		}
		return []vtline.Completion{
			{
				Text:         "lol no actual completions",
				StaticOffset: uint32(len(parts[len(parts)-1])),
			},
			{
				Text:         "no really, no actual completions",
				StaticOffset: uint32(len(parts[len(parts)-1])),
			},
		}
	})

	for {
		interrupted = false
		line, err := editor.GetLine("I highlight x's (0 so far): ")
		if interrupted {
			println("interrupted")
			continue
		}
		if err != nil {
			println("Error:", err.Error())
			break
		}

		if line == "exit" {
			break
		}
		editor.AddToHistory(line)
	}
}
