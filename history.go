package line

import (
	"bufio"
	"os"
	"time"
)

// historyEntry is one committed line, insertion-ordered.
type historyEntry struct {
	entry     string
	timestamp int64
}

// AddToHistory appends line to the history, dropping the oldest entry first
// if the history is already at capacity.
func (l *lineEditor) AddToHistory(line string) {
	if l.historyCapacity == 0 {
		l.historyCapacity = defaultHistoryCapacity
	}

	if uint32(len(l.history))+1 > l.historyCapacity {
		l.history = l.history[1:]
	}

	l.history = append(l.history, historyEntry{
		entry:     line,
		timestamp: time.Now().Unix(),
	})
	l.historyDirty = true
}

// LoadHistory reads a plain newline-delimited history file, oldest entry
// first, applying the same capacity bound as AddToHistory.
func (l *lineEditor) LoadHistory(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		l.AddToHistory(scanner.Text())
	}
	l.historyDirty = false

	return scanner.Err()
}

// SaveHistory writes the current history out, oldest entry first, one line
// per entry.
func (l *lineEditor) SaveHistory(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, entry := range l.history {
		if _, err := f.WriteString(entry.entry + "\n"); err != nil {
			return err
		}
	}

	l.historyDirty = false
	return nil
}
