// internal/onboarding/store.go
package onboarding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the single durable piece of client state: whether the
// user has completed the onboarding tour. Everything else the client
// shows is refetched; losing this file just replays the tour once.
type Store struct {
	path string

	mu   sync.Mutex
	seen bool
	open bool
}

type state struct {
	Completed bool `json:"completed"`
}

// DefaultPath places the state file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "jobdash", "onboarding.json"), nil
}

// Load reads the persisted flag. A missing file means the tour has not
// been seen; a corrupt file is an error rather than a silent replay.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read onboarding state: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse onboarding state: %w", err)
	}
	s.seen = st.Completed
	return s, nil
}

// HasSeen reports whether the tour was ever completed.
func (s *Store) HasSeen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

// IsOpen reports whether the tour is currently showing.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Show opens the tour.
func (s *Store) Show() {
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
}

// Dismiss closes the tour without marking it completed; it will show
// again next session.
func (s *Store) Dismiss() {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
}

// Finish closes the tour and persists completion.
func (s *Store) Finish() error {
	s.mu.Lock()
	s.open = false
	s.seen = true
	s.mu.Unlock()
	return s.persist(true)
}

// Reset clears the persisted flag so the tour replays.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.seen = false
	s.mu.Unlock()
	return s.persist(false)
}

func (s *Store) persist(completed bool) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.Marshal(state{Completed: completed})
	if err != nil {
		return fmt.Errorf("encode onboarding state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write onboarding state: %w", err)
	}
	return nil
}
