package gear

import (
	"context"
	"errors"
	"time"

	"gearguard.io/internal/apperr"
	"gearguard.io/internal/ids"
	"gearguard.io/internal/obs"
)

const msgRequestNotFound = "Request not found"

type RequestService struct {
	store  RequestStore
	events EventPublisher
	now    func() time.Time
}

// NewRequestService wires the store and the event sink. A nil publisher drops events.
func NewRequestService(store RequestStore, events EventPublisher) *RequestService {
	if events == nil {
		events = nopPublisher{}
	}
	return &RequestService{store: store, events: events, now: time.Now}
}

func (s *RequestService) List(ctx context.Context) ([]RequestView, error) {
	out, err := s.store.ListRequests(ctx)
	return out, classify(err, msgRequestNotFound)
}

func (s *RequestService) Get(ctx context.Context, id string) (RequestView, error) {
	v, err := s.store.RequestByID(ctx, id)
	return v, classify(err, msgRequestNotFound)
}

// Create stores a request on behalf of r.CreatedByID. Priority defaults to
// MEDIUM and status is always NEW.
func (s *RequestService) Create(ctx context.Context, r MaintenanceRequest) (MaintenanceRequest, error) {
	if r.CreatedByID == "" {
		return MaintenanceRequest{}, apperr.New(apperr.Unauthenticated, "Authentication required")
	}
	if r.ID == "" {
		r.ID = ids.New()
	}
	if r.Priority == "" {
		r.Priority = PriorityMedium
	}
	if r.Status == "" {
		r.Status = StatusNew
	}
	r.TeamID = normRef(r.TeamID)
	r.AssignedToID = normRef(r.AssignedToID)
	now := s.now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	if err := s.store.CreateRequest(ctx, r); err != nil {
		return MaintenanceRequest{}, classify(err, msgRequestNotFound)
	}
	s.publish(ctx, RequestEvent{
		Type:        EventRequestCreated,
		RequestID:   r.ID,
		EquipmentID: r.EquipmentID,
		Subject:     r.Subject,
		Status:      r.Status,
		Priority:    r.Priority,
		ActorID:     r.CreatedByID,
		OccurredAt:  now,
	})
	return r, nil
}

// Update applies a partial change. A status change publishes an event
// carrying the status the store replaced.
func (s *RequestService) Update(ctx context.Context, id, actorID string, p RequestPatch) (MaintenanceRequest, error) {
	before, r, err := s.store.UpdateRequest(ctx, id, p)
	if err != nil {
		return MaintenanceRequest{}, classify(err, msgRequestNotFound)
	}
	if before.Status != r.Status {
		s.statusChanged(ctx, r, before.Status, actorID)
	}
	return r, nil
}

// UpdateStatus changes only the status field.
func (s *RequestService) UpdateStatus(ctx context.Context, id, actorID string, status RequestStatus) (MaintenanceRequest, error) {
	if status == "" {
		return MaintenanceRequest{}, apperr.Invalid(apperr.FieldError{Field: "status", Message: "Required"})
	}
	return s.Update(ctx, id, actorID, RequestPatch{Status: &status})
}

// Calendar lists requests that have a scheduled date.
func (s *RequestService) Calendar(ctx context.Context) ([]CalendarItem, error) {
	out, err := s.store.CalendarRequests(ctx)
	return out, classify(err, msgRequestNotFound)
}

func (s *RequestService) Kanban(ctx context.Context) ([]KanbanItem, error) {
	out, err := s.store.KanbanRequests(ctx)
	return out, classify(err, msgRequestNotFound)
}

func (s *RequestService) statusChanged(ctx context.Context, r MaintenanceRequest, prev RequestStatus, actorID string) {
	s.publish(ctx, RequestEvent{
		Type:           EventRequestStatusChanged,
		RequestID:      r.ID,
		EquipmentID:    r.EquipmentID,
		Subject:        r.Subject,
		Status:         r.Status,
		PreviousStatus: prev,
		Priority:       r.Priority,
		ActorID:        actorID,
		OccurredAt:     s.now().UTC(),
	})
}

func (s *RequestService) publish(ctx context.Context, evt RequestEvent) {
	obs.RequestEvent(evt.Type)
	if err := s.events.PublishRequestEvent(ctx, evt); err != nil && !errors.Is(err, context.Canceled) {
		obs.Logger().WithError(err).
			WithField("event", evt.Type).
			WithField("request_id", evt.RequestID).
			Warn("request event publish failed")
	}
}
