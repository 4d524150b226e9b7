// internal/jobcache/cache.go
package jobcache

import (
	"sync"

	"github.com/equibase/jobdash/pkg/schema"
)

// PageKey addresses one cached list response.
type PageKey struct {
	Page  int
	Limit int
}

type pageEntry struct {
	data  *schema.JobsPage
	stale bool
}

type jobEntry struct {
	job   schema.Job
	stale bool
}

// Cache is the client's read-mostly view of backend job state, keyed by
// page and by job id. Entries are only ever written from refetch results;
// everything else goes through invalidation, which marks entries stale
// and signals subscribers to refetch. Redundant invalidations are
// harmless: a refetch of up-to-date data is idempotent.
type Cache struct {
	mu      sync.Mutex
	pages   map[PageKey]*pageEntry
	jobs    map[string]*jobEntry
	subs    map[int]func()
	nextSub int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		pages: map[PageKey]*pageEntry{},
		jobs:  map[string]*jobEntry{},
		subs:  map[int]func(){},
	}
}

// StorePage records a refetched list response and refreshes the per-job
// entries it contains.
func (c *Cache) StorePage(key PageKey, page *schema.JobsPage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[key] = &pageEntry{data: page}
	for _, job := range page.Data {
		c.jobs[job.ID] = &jobEntry{job: job}
	}
}

// Page returns the cached list for key, with its staleness. Stale data
// is still returned so consumers can keep showing last-known rows while
// a refetch is pending or the server is unavailable.
func (c *Cache) Page(key PageKey) (page *schema.JobsPage, stale, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pages[key]
	if !ok {
		return nil, false, false
	}
	return entry.data, entry.stale, true
}

// StoreJob records a refetched single job.
func (c *Cache) StoreJob(job schema.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs[job.ID] = &jobEntry{job: job}
}

// Job returns the cached job, if present.
func (c *Cache) Job(id string) (schema.Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.jobs[id]
	if !ok {
		return schema.Job{}, false
	}
	return entry.job, true
}

// InvalidateJob marks one job stale and, transitively, every cached page
// containing it. Subscribers are signalled whenever the id is known,
// already-stale entries included: a trigger may arrive while a refetch
// is blocked (server offline, fetch failed), and the signal is what
// retries it. Redundant refetches are idempotent.
func (c *Cache) InvalidateJob(id string) {
	c.mu.Lock()
	known := false
	if entry, ok := c.jobs[id]; ok {
		entry.stale = true
		known = true
	}
	for _, entry := range c.pages {
		if entry.data == nil {
			continue
		}
		for _, job := range entry.data.Data {
			if job.ID == id {
				entry.stale = true
				known = true
				break
			}
		}
	}
	subs := c.listeners()
	c.mu.Unlock()

	if known {
		for _, fn := range subs {
			fn()
		}
	}
}

// InvalidateLists marks every cached page stale, forcing the next list
// read to refetch. It always signals, even on an empty or already-stale
// cache: the first invalidation often arrives before anything was
// stored, and a stale entry may be waiting out an outage.
func (c *Cache) InvalidateLists() {
	c.mu.Lock()
	for _, entry := range c.pages {
		entry.stale = true
	}
	subs := c.listeners()
	c.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Subscribe registers an invalidation listener; returns unsubscribe.
// Listeners run synchronously after the cache lock is released.
func (c *Cache) Subscribe(fn func()) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// listeners must be called with the lock held.
func (c *Cache) listeners() []func() {
	subs := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}
