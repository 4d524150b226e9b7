// internal/jobsync/push.go
package jobsync

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/equibase/jobdash/internal/bus"
	"github.com/equibase/jobdash/pkg/schema"
)

// Unsubscriber is the slice of a bus subscription the notifier needs.
type Unsubscriber interface {
	Unsubscribe() error
}

// UpdateBus abstracts the message bus so tests can fake it.
type UpdateBus interface {
	SubscribeJSON(subject string, handler func(data []byte)) (Unsubscriber, error)
}

type natsBus struct{ c *bus.Client }

func (b natsBus) SubscribeJSON(subject string, handler func(data []byte)) (Unsubscriber, error) {
	return b.c.SubscribeJSON(subject, handler)
}

// PushNotifier opens one bus subscription per processing job. Events are
// at-least-once and may be replayed; the handler just invalidates, so
// duplicates cost one redundant refetch at worst. A missed event heals
// on the next full list refetch.
type PushNotifier struct {
	bus           UpdateBus
	subjectPrefix string
	logger        *slog.Logger
}

// NewPushNotifier subscribes on "<prefix>.<job id>" subjects.
func NewPushNotifier(client *bus.Client, subjectPrefix string, logger *slog.Logger) *PushNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &PushNotifier{bus: natsBus{c: client}, subjectPrefix: subjectPrefix, logger: logger}
}

func (p *PushNotifier) Subscribe(job schema.Job, onChange func(jobID string)) (func(), error) {
	subject := p.subjectPrefix + "." + job.ID
	jobLogger := p.logger.With("job_id", job.ID)

	sub, err := p.bus.SubscribeJSON(subject, func(data []byte) {
		var ev schema.JobUpdateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			jobLogger.Warn("discarding malformed job update", "subject", subject, "err", err)
			return
		}
		if ev.Replayed {
			jobLogger.Debug("replayed job update", "status", ev.Status)
		}
		onChange(job.ID)
	})
	if err != nil {
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				jobLogger.Warn("unsubscribe failed", "subject", subject, "err", err)
			}
		})
	}, nil
}
