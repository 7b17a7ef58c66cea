package line

// MaskMode controls how a Mask rewrites the characters it covers when the
// buffer is rendered — used for password-style prompts where the real
// contents of the line should never hit the terminal.
type MaskMode int

const (
	// MaskModeReplaceEntireSelection renders the whole masked span as a
	// single fixed replacement string, regardless of its length.
	MaskModeReplaceEntireSelection MaskMode = iota
	// MaskModeReplaceEachCodePointInSelection renders the replacement text
	// once per masked code point, so the on-screen length still tracks the
	// real one (e.g. one "*" per typed character).
	MaskModeReplaceEachCodePointInSelection
)

// Mask describes a masked region of the edit buffer. It is installed via a
// Style's Mask field and consumed by the editor controller when computing
// string metrics and when drawing characters to the terminal.
type Mask struct {
	mode            MaskMode
	replacementView []rune
}

// NewMask builds a Mask that replaces covered text with replacement,
// according to mode.
func NewMask(replacement string, mode MaskMode) *Mask {
	return &Mask{
		mode:            mode,
		replacementView: []rune(replacement),
	}
}
