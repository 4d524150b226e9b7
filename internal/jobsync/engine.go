// internal/jobsync/engine.go
package jobsync

import (
	"log/slog"
	"sync"

	"github.com/equibase/jobdash/internal/jobcache"
	"github.com/equibase/jobdash/pkg/schema"
)

// Engine keeps displayed job state eventually consistent with the
// backend for processing jobs. It applies a Notifier to the current job
// set and turns every change hint into a cache invalidation; the list
// controller reacts to those via the cache's subscription channel.
type Engine struct {
	notifier Notifier
	cache    *jobcache.Cache
	logger   *slog.Logger

	mu     sync.Mutex
	active map[string]func()
}

func NewEngine(notifier Notifier, cache *jobcache.Cache, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		notifier: notifier,
		cache:    cache,
		logger:   logger,
		active:   map[string]func(){},
	}
}

// SetJobs replaces the watched set. Existing subscriptions are torn down
// and rebuilt against the processing subset of jobs, so a status
// transition or a page change always restarts the cycle cleanly. When
// no job is processing, nothing remains subscribed.
func (e *Engine) SetJobs(jobs []schema.Job) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, unsub := range e.active {
		unsub()
		delete(e.active, id)
	}

	for _, job := range jobs {
		if !job.Processing() {
			continue
		}
		unsub, err := e.notifier.Subscribe(job, e.onChange)
		if err != nil {
			// Not surfaced to the user: staleness self-heals on the
			// next full list refetch.
			e.logger.Warn("job subscription failed", "job_id", job.ID, "err", err)
			continue
		}
		e.active[job.ID] = unsub
	}
}

// Stop tears down every subscription. Safe to call repeatedly.
func (e *Engine) Stop() {
	e.SetJobs(nil)
}

// Watching returns how many jobs are currently subscribed.
func (e *Engine) Watching() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

func (e *Engine) onChange(jobID string) {
	e.cache.InvalidateJob(jobID)
}
