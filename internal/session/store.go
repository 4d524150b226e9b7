// internal/session/store.go
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session is the credential issued by the identity collaborator.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Refresher exchanges the current session for a fresh one.
type Refresher interface {
	Refresh(ctx context.Context, current *Session) (*Session, error)
}

// Store is the process-wide session container. It has exactly one
// writer path (Set) and fans change notifications out to subscribers,
// mirroring how availability state is shared: injected explicitly, never
// reached through a package-level global.
type Store struct {
	mu        sync.Mutex
	current   *Session
	refresher Refresher
	subs      map[int]func(*Session)
	nextSub   int
	logger    *slog.Logger
}

// NewStore creates an empty store. refresher may be nil for anonymous
// operation; Token then always answers "" and Refresh fails.
func NewStore(refresher Refresher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		refresher: refresher,
		subs:      map[int]func(*Session){},
		logger:    logger,
	}
}

// Current returns the session, or nil when signed out.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the session and notifies subscribers. Passing nil signs
// the process out.
func (s *Store) Set(sess *Session) {
	s.mu.Lock()
	s.current = sess
	subs := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(sess)
	}
}

// OnChange registers a change listener and returns its unsubscribe func.
func (s *Store) OnChange(fn func(*Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Token implements the API client's TokenSource. No session means an
// unauthenticated request, not an error.
func (s *Store) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", nil
	}
	return s.current.AccessToken, nil
}

// Refresh obtains a new session via the refresher and installs it.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	current := s.current
	refresher := s.refresher
	s.mu.Unlock()

	if refresher == nil {
		return "", ErrNoRefresher
	}
	fresh, err := refresher.Refresh(ctx, current)
	if err != nil {
		s.logger.Warn("session refresh failed", "err", err)
		return "", err
	}
	s.Set(fresh)
	return fresh.AccessToken, nil
}
