package gear

import (
	"context"
	"time"

	"gearguard.io/internal/ids"
)

const msgEquipmentNotFound = "Equipment not found"

type EquipmentService struct {
	store EquipmentStore
	now   func() time.Time
}

func NewEquipmentService(store EquipmentStore) *EquipmentService {
	return &EquipmentService{store: store, now: time.Now}
}

func (s *EquipmentService) List(ctx context.Context) ([]EquipmentListItem, error) {
	items, err := s.store.ListEquipment(ctx)
	return items, classify(err, msgEquipmentNotFound)
}

func (s *EquipmentService) Get(ctx context.Context, id string) (EquipmentDetail, error) {
	d, err := s.store.EquipmentByID(ctx, id)
	return d, classify(err, msgEquipmentNotFound)
}

// Create stores new equipment; status defaults to OPERATIONAL.
func (s *EquipmentService) Create(ctx context.Context, e Equipment) (Equipment, error) {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.Status == "" {
		e.Status = EquipmentOperational
	}
	e.AssignedToID = normRef(e.AssignedToID)
	e.MaintenanceTeamID = normRef(e.MaintenanceTeamID)
	now := s.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.store.CreateEquipment(ctx, e); err != nil {
		return Equipment{}, classify(err, msgEquipmentNotFound)
	}
	return e, nil
}

func (s *EquipmentService) Update(ctx context.Context, id string, p EquipmentPatch) (Equipment, error) {
	e, err := s.store.UpdateEquipment(ctx, id, p)
	return e, classify(err, msgEquipmentNotFound)
}

func (s *EquipmentService) Delete(ctx context.Context, id string) error {
	return classify(s.store.DeleteEquipment(ctx, id), msgEquipmentNotFound)
}

// Requests lists the equipment's requests, newest first.
func (s *EquipmentService) Requests(ctx context.Context, id string) ([]EquipmentRequest, error) {
	out, err := s.store.EquipmentRequests(ctx, id)
	return out, classify(err, msgEquipmentNotFound)
}

func normRef(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}
