// Package joblog appends human-readable lines to the fixed log files the
// scheduled jobs write. Concurrent writers rely on the filesystem's append
// guarantees only.
package joblog

import (
	"fmt"
	"os"
	"path/filepath"
)

type Writer struct {
	path     string
	fallback string
}

// New returns a writer for path. fallback may be empty; when set it is tried
// after a failed append to the primary path.
func New(path, fallback string) *Writer {
	return &Writer{path: path, fallback: fallback}
}

// Append writes each line followed by a newline. An empty string produces a
// blank spacer line.
func (w *Writer) Append(lines ...string) error {
	if err := appendTo(w.path, lines); err != nil {
		if w.fallback == "" {
			return err
		}
		noted := append(lines, fmt.Sprintf("Note: Using fallback log location %s", w.fallback))
		if ferr := appendTo(w.fallback, noted); ferr != nil {
			return fmt.Errorf("append log: %w (fallback: %v)", err, ferr)
		}
	}
	return nil
}

func appendTo(path string, lines []string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return err
		}
	}
	return nil
}
