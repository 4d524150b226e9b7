// internal/jobsync/poll.go
package jobsync

import (
	"sync"
	"time"

	"github.com/equibase/jobdash/pkg/schema"
)

const defaultPollInterval = 3 * time.Second

// PollNotifier emits a change hint for a subscribed job on a fixed
// interval, for backends without push support. The engine tears the
// subscriptions down as soon as a job leaves processing, which bounds
// staleness to one interval.
type PollNotifier struct {
	interval time.Duration
}

func NewPollNotifier(interval time.Duration) *PollNotifier {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &PollNotifier{interval: interval}
}

func (p *PollNotifier) Subscribe(job schema.Job, onChange func(jobID string)) (func(), error) {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				onChange(job.ID)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }, nil
}
