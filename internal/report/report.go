// Package report appends registration outcomes to dated report
// files, one file per prefix and run date.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer appends outcome lines to files named <prefix><YYYY-MM-DD>.
type Writer struct {
	succPrefix string
	errPrefix  string
	now        func() time.Time
}

// New creates a report writer for the configured prefixes.
func New(succPrefix, errPrefix string) *Writer {
	return &Writer{succPrefix: succPrefix, errPrefix: errPrefix, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

func (w *Writer) appendLine(prefix, line string) error {
	if prefix == "" {
		return nil
	}
	path := prefix + w.now().Format("2006-01-02")
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening report %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("appending to report %s: %w", path, err)
	}
	return nil
}

// Success records a registered product.
func (w *Writer) Success(collection, productID string) error {
	return w.appendLine(w.succPrefix, fmt.Sprintf("%s,%s", collection, productID))
}

// Failure records a failed product with an error code and message.
// Unknown codes are reported as -1.
func (w *Writer) Failure(collection, productID string, code int, msg string) error {
	msg = strings.ReplaceAll(msg, "\n", " ")
	return w.appendLine(w.errPrefix, fmt.Sprintf("%s,%s,%d:%s", collection, productID, code, msg))
}

// Skipped records a product that was already registered.
func (w *Writer) Skipped(collection, productID string) error {
	return w.appendLine(w.errPrefix, fmt.Sprintf("%s,%s,0,Skipped existing product", collection, productID))
}
