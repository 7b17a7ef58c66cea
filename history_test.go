package line

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddToHistoryDropsOldestOnOverflow(t *testing.T) {
	e := &lineEditor{historyCapacity: 3}

	e.AddToHistory("one")
	e.AddToHistory("two")
	e.AddToHistory("three")
	e.AddToHistory("four")

	if len(e.history) != 3 {
		t.Fatalf("expected history capped at 3 entries, got %d", len(e.history))
	}
	if e.history[0].entry != "two" {
		t.Fatalf("expected the oldest entry to be dropped first, history is %+v", e.history)
	}
	if e.history[2].entry != "four" {
		t.Fatalf("expected the newest entry to be last, history is %+v", e.history)
	}
}

func TestAddToHistoryDefaultsCapacity(t *testing.T) {
	e := &lineEditor{}

	for i := 0; i < defaultHistoryCapacity+5; i++ {
		e.AddToHistory("entry")
	}

	if uint32(len(e.history)) != defaultHistoryCapacity {
		t.Fatalf("expected the default capacity of %d to apply when unset, got %d", defaultHistoryCapacity, len(e.history))
	}
}

func TestSaveAndLoadHistoryRoundTrips(t *testing.T) {
	e := &lineEditor{historyCapacity: defaultHistoryCapacity}
	e.AddToHistory("first command")
	e.AddToHistory("second command")

	path := filepath.Join(t.TempDir(), "history")
	if err := e.SaveHistory(path); err != nil {
		t.Fatalf("SaveHistory failed: %v", err)
	}

	loaded := &lineEditor{historyCapacity: defaultHistoryCapacity}
	if err := loaded.LoadHistory(path); err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}

	if len(loaded.history) != 2 {
		t.Fatalf("expected 2 entries loaded back, got %d", len(loaded.history))
	}
	if loaded.history[0].entry != "first command" || loaded.history[1].entry != "second command" {
		t.Fatalf("history did not round-trip in order: %+v", loaded.history)
	}
}

func TestLoadHistoryMissingFile(t *testing.T) {
	e := &lineEditor{}
	err := e.LoadHistory(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Fatalf("expected an error loading a nonexistent history file")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}
