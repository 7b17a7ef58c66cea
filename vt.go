package line

import (
	"fmt"
	"io"
)

// vtMoveRelative moves the cursor by row lines and col columns relative to
// its current position; a zero component is omitted from the sequence
// entirely rather than emitted as a redundant no-op move.
func vtMoveRelative(row, col int64, w io.Writer) {
	xOp := 'A'
	yOp := 'D'

	if row > 0 {
		xOp = 'B'
	} else {
		row = -row
	}

	if col > 0 {
		yOp = 'C'
	} else {
		col = -col
	}

	if row > 0 {
		_, _ = w.Write([]byte(fmt.Sprintf("\x1b[%d%c", row, xOp)))
	}
	if col > 0 {
		_, _ = w.Write([]byte(fmt.Sprintf("\x1b[%d%c", col, yOp)))
	}
}

func vtMoveAbsolute(row, col uint32, w io.Writer) {
	_, _ = fmt.Fprintf(w, "\x1b[%d;%dH", row, col)
}

func vtSaveCursor(w io.Writer) {
	_, _ = w.Write([]byte("\x1b[s"))
}

func vtRestoreCursor(w io.Writer) {
	_, _ = w.Write([]byte("\x1b[u"))
}

func vtClearToEndOfLine(w io.Writer) {
	_, _ = w.Write([]byte("\x1b[K"))
}

func vtClearLines(countAbove, countBelow uint32, w io.Writer) {
	if countAbove+countBelow == 0 {
		_, _ = w.Write([]byte("\x1b[2K"))
	} else {
		// Go down countBelow lines...
		if countBelow > 0 {
			_, _ = w.Write([]byte(fmt.Sprintf("\x1b[%dB", countBelow)))
		}
		// ...and clear lines going up.
		for i := countAbove + countBelow; i > 0; i-- {
			_, _ = w.Write([]byte("\x1b[2K"))
			if i != 1 {
				_, _ = w.Write([]byte("\x1b[A"))
			}
		}
	}
}

func vtApplyStyle(style Style, w io.Writer, isStarting bool) {
	if isStarting {
		b := 22
		if style.Bold {
			b = 1
		}
		u := 24
		if style.Underline {
			u = 4
		}
		i := 23
		if style.Italic {
			i = 3
		}
		_, _ = fmt.Fprintf(w, "\x1b[%d;%d;%dm%s%s%s",
			b, u, i,
			style.ForegroundColor.toVTString(true),
			style.BackgroundColor.toVTString(false),
			style.Hyperlink.toVTString(true))
	} else {
		_, _ = w.Write([]byte(style.Hyperlink.toVTString(false)))
	}
}

func (c *Color) toVTString(foreground bool) string {
	if !c.HasValue {
		return ""
	}

	if c.IsXterm && c.Xterm8 == XtermColorUnchanged {
		return ""
	}

	x := 40
	if foreground {
		x = 30
	}
	if c.IsXterm {
		return fmt.Sprintf("\x1b[%dm", int(c.Xterm8)+x)
	}

	return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", x+8, c.R, c.G, c.B)
}

func (h *Hyperlink) toVTString(starting bool) string {
	l := ""
	if starting {
		l = string(*h)
	}
	return fmt.Sprintf("\x1b]8;;%s\x1b\\", l)
}
