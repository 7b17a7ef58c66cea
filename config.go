package line

import (
	"os"
	"strings"
)

// OperationMode controls how much of the VT feature set the editor may
// assume is available on the other end of the terminal.
type OperationMode int

const (
	// OperationModeUnset asks Initialize to auto-detect the mode from the
	// controlling terminal and the TERM environment variable.
	OperationModeUnset OperationMode = iota
	// OperationModeFull assumes a real VT100-compatible terminal: cursor
	// queries, SGR styling, and escape-sequence-driven redraws are safe.
	OperationModeFull
	// OperationModeNoEscapeSequences is chosen for a terminal whose TERM is
	// not a recognised VT100-compatible family. The editor runs the same
	// raw-mode editing loop as in OperationModeFull, including cursor
	// position queries and escape-sequence redraws; the only difference is
	// that bracketed paste is not enabled.
	OperationModeNoEscapeSequences
	// OperationModeNonInteractive assumes stdin/stdout are not a terminal at
	// all (a pipe or a file) and disables editing entirely.
	OperationModeNonInteractive
)

// RefreshBehaviour controls when the display is repainted.
type RefreshBehaviour int

const (
	// RefreshBehaviourLazy repaints only the minimum region touched by an
	// edit, per the fast-append and dirty-span logic in refreshDisplay.
	RefreshBehaviourLazy RefreshBehaviour = iota
	// RefreshBehaviourEager forces a full repaint on every event loop tick.
	RefreshBehaviourEager
)

const defaultHistoryCapacity = 100

// Configuration is an immutable record passed to NewEditor. The zero value
// is valid: OperationMode auto-detects on the first Initialize call, and
// HistoryCapacity defaults to 100.
type Configuration struct {
	OperationMode    OperationMode
	RefreshBehaviour RefreshBehaviour
	HistoryCapacity  uint32
}

func (c *Configuration) normalize() {
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = defaultHistoryCapacity
	}
}

// detectOperationMode sniffs the controlling terminal: a non-tty stdin
// means no interactive editing is possible at all, a TERM starting with
// "xterm" (or one of the other common full-featured families) is assumed
// VT100-compatible, and anything else gets the conservative
// no-escape-sequences fallback.
func detectOperationMode() OperationMode {
	if !isTerminal() {
		return OperationModeNonInteractive
	}
	return operationModeForTerm(os.Getenv("TERM"))
}

func operationModeForTerm(term string) OperationMode {
	if term == "" || term == "dumb" {
		return OperationModeNoEscapeSequences
	}
	if strings.HasPrefix(term, "xterm") || strings.HasPrefix(term, "screen") || strings.HasPrefix(term, "vt100") || strings.HasPrefix(term, "rxvt") || strings.HasPrefix(term, "tmux") {
		return OperationModeFull
	}
	return OperationModeNoEscapeSequences
}

func isTerminal() bool {
	_, err := getTermios()
	return err == nil
}
