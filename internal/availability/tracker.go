// internal/availability/tracker.go
package availability

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status is the client's belief about backend reachability. It is a
// best-effort signal for gating UI behavior, never a guarantee; requests
// are always allowed to be attempted regardless of status.
type Status string

const (
	StatusStarting Status = "starting"
	StatusOnline   Status = "online"
	StatusOffline  Status = "offline"
)

const (
	defaultHealthPollInterval = 2 * time.Second
	defaultIdleCheckInterval  = time.Minute
	defaultIdleThreshold      = 15 * time.Minute
	defaultWakeAttempts       = 3
	defaultWakeRetryPause     = 2 * time.Second
)

// HealthCheck probes the backend once.
type HealthCheck func(ctx context.Context) error

// Tracker holds the availability state machine for the whole client
// session: one shared instance, created at startup, injected into every
// consumer. Writes are serialized; invariant: idle implies offline.
type Tracker struct {
	mu           sync.Mutex
	status       Status
	lastActivity time.Time
	idle         bool
	subs         map[int]func(Status)
	nextSub      int

	now    func() time.Time
	logger *slog.Logger

	HealthPollInterval time.Duration
	IdleCheckInterval  time.Duration
	IdleThreshold      time.Duration
	WakeAttempts       int
	WakeRetryPause     time.Duration
}

// New creates a Tracker in the starting state.
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		status: StatusStarting,
		subs:   map[int]func(Status){},
		now:    time.Now,
		logger: logger,

		HealthPollInterval: defaultHealthPollInterval,
		IdleCheckInterval:  defaultIdleCheckInterval,
		IdleThreshold:      defaultIdleThreshold,
		WakeAttempts:       defaultWakeAttempts,
		WakeRetryPause:     defaultWakeRetryPause,
	}
	t.lastActivity = t.now()
	return t
}

// Status returns the current believed state.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// IsIdle reports whether the idle threshold has been crossed.
func (t *Tracker) IsIdle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle
}

// LastActivity returns when the last outbound API request was recorded.
func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// RecordActivity notes an outbound request and clears idleness. It does
// not change status; only a completed call proves the server is up.
func (t *Tracker) RecordActivity() {
	t.mu.Lock()
	t.lastActivity = t.now()
	t.idle = false
	t.mu.Unlock()
}

// RecordSuccess notes a successful call, which both clears idleness and
// restores online.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	t.lastActivity = t.now()
	t.idle = false
	t.mu.Unlock()
	t.setStatus(StatusOnline)
}

// ReportUnavailable flips to offline after a 5xx. A single 5xx is not
// proof the server is asleep; the action this drives (a wake-up
// affordance) is cheap, so false positives are acceptable.
func (t *Tracker) ReportUnavailable() {
	t.setStatus(StatusOffline)
}

// Subscribe registers a status-change listener; returns unsubscribe.
func (t *Tracker) Subscribe(fn func(Status)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) setStatus(s Status) {
	t.mu.Lock()
	if t.status == s {
		t.mu.Unlock()
		return
	}
	t.status = s
	subs := make([]func(Status), 0, len(t.subs))
	for _, fn := range t.subs {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// RunStartupCheck performs the initial health probe and, on failure,
// polls at HealthPollInterval until one check succeeds or ctx ends.
// It blocks; run it in its own goroutine.
func (t *Tracker) RunStartupCheck(ctx context.Context, check HealthCheck) {
	t.setStatus(StatusStarting)
	if err := check(ctx); err == nil {
		t.setStatus(StatusOnline)
		return
	} else {
		t.logger.Warn("initial health check failed, polling", "err", err)
	}
	t.setStatus(StatusOffline)

	ticker := time.NewTicker(t.HealthPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := check(ctx); err == nil {
				t.clearIdle()
				t.setStatus(StatusOnline)
				return
			}
			t.logger.Debug("server still waking up")
		}
	}
}

// RunIdleChecker compares elapsed time since the last recorded request
// against IdleThreshold on every IdleCheckInterval tick. Crossing the
// threshold marks the tracker idle, which forces offline. It blocks;
// run it in its own goroutine.
func (t *Tracker) RunIdleChecker(ctx context.Context) {
	ticker := time.NewTicker(t.IdleCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.CheckIdle()
		}
	}
}

// CheckIdle applies the idle-threshold rule once.
func (t *Tracker) CheckIdle() {
	t.mu.Lock()
	crossed := !t.idle && t.now().Sub(t.lastActivity) > t.IdleThreshold
	if crossed {
		t.idle = true
	}
	t.mu.Unlock()

	if crossed {
		t.logger.Info("idle threshold crossed, marking server offline")
		t.setStatus(StatusOffline)
	}
}

// WakeUp is the explicit user-triggered wake path: up to WakeAttempts
// health checks with WakeRetryPause between failures. Exhausting the
// attempts leaves the tracker offline and returns the last error.
func (t *Tracker) WakeUp(ctx context.Context, check HealthCheck) error {
	t.setStatus(StatusStarting)

	var lastErr error
	for attempt := 1; attempt <= t.WakeAttempts; attempt++ {
		if err := check(ctx); err == nil {
			t.clearIdle()
			t.setStatus(StatusOnline)
			return nil
		} else {
			lastErr = err
			t.logger.Warn("wake attempt failed", "attempt", attempt, "err", err)
		}
		if attempt < t.WakeAttempts {
			select {
			case <-ctx.Done():
				t.setStatus(StatusOffline)
				return ctx.Err()
			case <-time.After(t.WakeRetryPause):
			}
		}
	}
	t.setStatus(StatusOffline)
	return lastErr
}

func (t *Tracker) clearIdle() {
	t.mu.Lock()
	t.idle = false
	t.mu.Unlock()
}
