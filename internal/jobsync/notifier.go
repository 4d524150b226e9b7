// internal/jobsync/notifier.go
package jobsync

import "github.com/equibase/jobdash/pkg/schema"

// Notifier is the "tell me when this job may have changed" capability.
// Polling and push are interchangeable implementations selected by
// configuration; both only ever emit idempotent invalidation hints.
type Notifier interface {
	// Subscribe starts change notifications for one job and returns the
	// unsubscribe func. onChange may fire from another goroutine and
	// must be safe to call redundantly.
	Subscribe(job schema.Job, onChange func(jobID string)) (func(), error)
}
