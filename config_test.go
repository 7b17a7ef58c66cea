package line

import "testing"

func TestOperationModeForTermDumbFallsBackToNoEscapeSequences(t *testing.T) {
	cases := []string{"", "dumb"}
	for _, term := range cases {
		if got := operationModeForTerm(term); got != OperationModeNoEscapeSequences {
			t.Errorf("operationModeForTerm(%q) = %v, want OperationModeNoEscapeSequences", term, got)
		}
	}
}

func TestOperationModeForTermRecognizesKnownFamilies(t *testing.T) {
	cases := []string{"xterm", "xterm-256color", "screen", "screen.xterm", "vt100", "rxvt", "rxvt-unicode", "tmux", "tmux-256color"}
	for _, term := range cases {
		if got := operationModeForTerm(term); got != OperationModeFull {
			t.Errorf("operationModeForTerm(%q) = %v, want OperationModeFull", term, got)
		}
	}
}

func TestOperationModeForTermUnknownFamilyIsConservative(t *testing.T) {
	if got := operationModeForTerm("some-unknown-terminal"); got != OperationModeNoEscapeSequences {
		t.Errorf("operationModeForTerm(unknown) = %v, want OperationModeNoEscapeSequences", got)
	}
}

func TestConfigurationNormalizeDefaultsHistoryCapacity(t *testing.T) {
	c := Configuration{}
	c.normalize()

	if c.HistoryCapacity != defaultHistoryCapacity {
		t.Fatalf("expected HistoryCapacity to default to %d, got %d", defaultHistoryCapacity, c.HistoryCapacity)
	}
}

func TestConfigurationNormalizePreservesExplicitHistoryCapacity(t *testing.T) {
	c := Configuration{HistoryCapacity: 7}
	c.normalize()

	if c.HistoryCapacity != 7 {
		t.Fatalf("expected an explicit HistoryCapacity to survive normalize, got %d", c.HistoryCapacity)
	}
}

func TestDetectOperationModeNonInteractiveUnderTest(t *testing.T) {
	// go test's stdin is not a controlling terminal, so detection must fall
	// back to non-interactive regardless of TERM.
	if got := detectOperationMode(); got != OperationModeNonInteractive {
		t.Fatalf("expected non-interactive detection under go test, got %v", got)
	}
}
