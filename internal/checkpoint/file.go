package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Format is the on-disk timestamp layout. Millisecond precision
// matches what the catalogue accepts in filters.
const Format = "2006-01-02T15:04:05.000Z07:00"

// FileStore keeps the checkpoint as a single timestamp line in a
// text file.
type FileStore struct {
	Path string
}

// NewFileStore creates a file-backed checkpoint store.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads and parses the checkpoint file. A missing, empty or
// unparseable file yields the zero time; the caller falls back to its
// lookback window in that case.
func (s *FileStore) Load() (time.Time, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("reading checkpoint: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(Format, raw)
	if err != nil {
		// Treat garbage the same as absence rather than wedging every
		// future run on one corrupt file.
		return time.Time{}, nil
	}
	return t, nil
}

// Save writes the checkpoint atomically via a temp file and rename.
func (s *FileStore) Save(t time.Time) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("creating checkpoint temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(t.UTC().Format(Format) + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing checkpoint temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing checkpoint: %w", err)
	}
	return nil
}
