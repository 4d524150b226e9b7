// pkg/schema/events.go
package schema

// JobUpdateEvent is the realtime push payload announcing that a job may
// have changed. Delivery is at-least-once; consumers must treat it as an
// idempotent invalidation hint, never as authoritative job state.
type JobUpdateEvent struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status,omitempty"`
	Replayed   bool      `json:"replayed,omitempty"`
	HappenedAt int64     `json:"happened_at"`
}
