package gear

import (
	"context"
	"errors"
	"time"
)

// Event types published on request lifecycle changes.
const (
	EventRequestCreated       = "request.created"
	EventRequestStatusChanged = "request.status_changed"
)

type RequestEvent struct {
	Type           string        `json:"type"`
	RequestID      string        `json:"requestId"`
	EquipmentID    string        `json:"equipmentId"`
	Subject        string        `json:"subject"`
	Status         RequestStatus `json:"status"`
	PreviousStatus RequestStatus `json:"previousStatus,omitempty"`
	Priority       Priority      `json:"priority"`
	ActorID        string        `json:"actorId,omitempty"`
	OccurredAt     time.Time     `json:"occurredAt"`
}

// EventPublisher delivers request events. Failures never fail the
// originating operation; callers log them.
type EventPublisher interface {
	PublishRequestEvent(ctx context.Context, evt RequestEvent) error
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []EventPublisher

func (m MultiPublisher) PublishRequestEvent(ctx context.Context, evt RequestEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishRequestEvent(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopPublisher struct{}

func (nopPublisher) PublishRequestEvent(context.Context, RequestEvent) error { return nil }
