// Package checkpoint persists the modification-time watermark that
// bounds incremental catalogue queries.
package checkpoint

import "time"

// Store is the interface for checkpoint persistence.
type Store interface {
	// Load reads the stored checkpoint. A zero time with a nil error
	// means no checkpoint exists yet.
	Load() (time.Time, error)

	// Save replaces the stored checkpoint.
	Save(t time.Time) error
}

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	value time.Time
}

// Load returns the held checkpoint.
func (m *Memory) Load() (time.Time, error) {
	return m.value, nil
}

// Save replaces the held checkpoint.
func (m *Memory) Save(t time.Time) error {
	m.value = t
	return nil
}
