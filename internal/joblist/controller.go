// internal/joblist/controller.go
package joblist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/equibase/jobdash/internal/availability"
	"github.com/equibase/jobdash/internal/jobcache"
	"github.com/equibase/jobdash/pkg/schema"
)

// JobLister is the slice of the API client the controller needs.
type JobLister interface {
	ListJobs(ctx context.Context, page, limit int) (*schema.JobsPage, error)
	DeleteJob(ctx context.Context, id string) error
}

// Availability is the slice of the tracker the controller needs.
type Availability interface {
	Status() availability.Status
	Subscribe(fn func(availability.Status)) func()
}

// Watcher receives the fetched job set so processing jobs stay synced.
type Watcher interface {
	SetJobs(jobs []schema.Job)
}

// State is the render state of the list view, in priority order.
type State string

const (
	StateLoading State = "loading"
	StateError   State = "error"
	StateEmpty   State = "empty"
	StateReady   State = "ready"
)

const DefaultLimit = 10

// Snapshot is a point-in-time view model of the list.
type Snapshot struct {
	State   State
	Jobs    []schema.Job
	Page    int
	Limit   int
	CanPrev bool
	CanNext bool
	Err     error
}

type Options struct {
	Limit int
	// Confirm gates deletion. Nil means every delete is confirmed.
	Confirm func(job schema.Job) bool
	Logger  *slog.Logger
}

// Controller owns pagination state and keeps the displayed page current.
// Fetches are gated on availability; while the server is not online the
// last-known rows stay visible and a fetch fires automatically once the
// status flips back to online. Rows are replaced wholesale per page,
// never merged.
type Controller struct {
	api     JobLister
	cache   *jobcache.Cache
	avail   Availability
	watcher Watcher
	confirm func(job schema.Job) bool
	logger  *slog.Logger

	mu       sync.Mutex
	page     int
	limit    int
	current  *schema.JobsPage
	loaded   bool
	fetching bool
	pending  bool
	err      error

	cleanup []func()
}

func NewController(api JobLister, cache *jobcache.Cache, avail Availability, watcher Watcher, opts Options) *Controller {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		api:     api,
		cache:   cache,
		avail:   avail,
		watcher: watcher,
		confirm: opts.Confirm,
		logger:  opts.Logger,
		page:    1,
		limit:   opts.Limit,
	}
}

// Start wires the controller to cache invalidations and availability
// changes and performs the initial fetch. Call Stop to tear down.
func (c *Controller) Start(ctx context.Context) {
	c.cleanup = append(c.cleanup,
		c.cache.Subscribe(func() {
			c.Refresh(ctx)
		}),
		c.avail.Subscribe(func(s availability.Status) {
			if s != availability.StatusOnline {
				return
			}
			// Cached pages may predate the outage; force a refetch
			// instead of trusting them.
			c.cache.InvalidateLists()
		}),
	)
	c.Refresh(ctx)
}

// Stop detaches the controller and releases all job subscriptions.
func (c *Controller) Stop() {
	for _, fn := range c.cleanup {
		fn()
	}
	c.cleanup = nil
	c.watcher.SetJobs(nil)
}

// Refresh brings the current page up to date. While the server is not
// online it is a no-op; the availability subscription retriggers it on
// recovery. Invalidations arriving mid-fetch queue exactly one more
// round, so a stale entry can never be left behind silently.
func (c *Controller) Refresh(ctx context.Context) {
	c.mu.Lock()
	if c.fetching {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.fetching = true
	c.mu.Unlock()

	for {
		c.refreshOnce(ctx)

		c.mu.Lock()
		if !c.pending {
			c.fetching = false
			c.mu.Unlock()
			return
		}
		c.pending = false
		c.mu.Unlock()
	}
}

func (c *Controller) refreshOnce(ctx context.Context) {
	if c.avail.Status() != availability.StatusOnline {
		return
	}

	c.mu.Lock()
	key := jobcache.PageKey{Page: c.page, Limit: c.limit}
	c.mu.Unlock()

	if page, stale, ok := c.cache.Page(key); ok && !stale {
		c.apply(page, nil)
		return
	}

	page, err := c.api.ListJobs(ctx, key.Page, key.Limit)
	if err != nil {
		c.logger.Warn("list fetch failed", "page", key.Page, "err", err)
		c.apply(nil, err)
		return
	}
	c.cache.StorePage(key, page)
	c.apply(page, nil)
}

func (c *Controller) apply(page *schema.JobsPage, err error) {
	c.mu.Lock()
	if err != nil {
		c.err = err
		c.mu.Unlock()
		return
	}
	c.err = nil
	c.current = page
	c.loaded = true
	c.mu.Unlock()

	c.watcher.SetJobs(page.Data)
}

// Retry is the error panel's hard-reload action: it discards cached
// pages and refetches.
func (c *Controller) Retry(ctx context.Context) {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
	c.cache.InvalidateLists()
	c.Refresh(ctx)
}

// Next advances one page when the last response reported another one.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	if c.current == nil || !c.current.HasNextPage {
		c.mu.Unlock()
		return
	}
	c.page++
	c.mu.Unlock()
	c.Refresh(ctx)
}

// Prev goes back one page; disabled on page 1.
func (c *Controller) Prev(ctx context.Context) {
	c.mu.Lock()
	if c.page <= 1 {
		c.mu.Unlock()
		return
	}
	c.page--
	c.mu.Unlock()
	c.Refresh(ctx)
}

// Delete removes a job after confirmation. The row is not removed
// optimistically: on success the list cache is invalidated and the row
// disappears on the refetch that follows.
func (c *Controller) Delete(ctx context.Context, id string) error {
	job, ok := c.cache.Job(id)
	if !ok {
		job = schema.Job{ID: id}
	}
	if c.confirm != nil && !c.confirm(job) {
		return nil
	}

	if err := c.api.DeleteJob(ctx, id); err != nil {
		c.logger.Warn("delete failed", "job_id", id, "err", err)
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	c.cache.InvalidateLists()
	return nil
}

// Snapshot returns the current view model.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Page:  c.page,
		Limit: c.limit,
		Err:   c.err,
	}
	if c.current != nil {
		snap.Jobs = c.current.Data
		snap.CanPrev = c.page > 1
		snap.CanNext = c.current.HasNextPage
	}

	switch {
	case c.err != nil:
		snap.State = StateError
	case !c.loaded:
		snap.State = StateLoading
	case len(snap.Jobs) == 0:
		snap.State = StateEmpty
	default:
		snap.State = StateReady
	}
	return snap
}
