package gear

import "time"

// Patches carry only the fields a caller supplied. For optional
// references (*ID fields) a pointer to "" clears the reference.

type EquipmentPatch struct {
	Name              *string
	SerialNumber      *string
	Category          *EquipmentCategory
	Department        *string
	Location          *string
	PurchaseDate      *time.Time
	WarrantyExpiry    *time.Time
	Status            *EquipmentStatus
	AssignedToID      *string
	MaintenanceTeamID *string
}

type TeamPatch struct {
	Name           *string
	Specialization *string
	Description    *string
}

type RequestPatch struct {
	Subject       *string
	Description   *string
	Type          *RequestType
	Priority      *Priority
	Status        *RequestStatus
	ScheduledDate *time.Time
	CompletedDate *time.Time
	Duration      *float64
	EquipmentID   *string
	TeamID        *string
	AssignedToID  *string
}

func (p EquipmentPatch) apply(e *Equipment) {
	setIf(&e.Name, p.Name)
	setIf(&e.SerialNumber, p.SerialNumber)
	setIf(&e.Category, p.Category)
	setIf(&e.Department, p.Department)
	setIf(&e.Location, p.Location)
	setIf(&e.PurchaseDate, p.PurchaseDate)
	if p.WarrantyExpiry != nil {
		w := *p.WarrantyExpiry
		e.WarrantyExpiry = &w
	}
	setIf(&e.Status, p.Status)
	setRef(&e.AssignedToID, p.AssignedToID)
	setRef(&e.MaintenanceTeamID, p.MaintenanceTeamID)
}

func (p TeamPatch) apply(t *Team) {
	setIf(&t.Name, p.Name)
	setIf(&t.Specialization, p.Specialization)
	if p.Description != nil {
		d := *p.Description
		t.Description = &d
	}
}

func (p RequestPatch) apply(r *MaintenanceRequest) {
	setIf(&r.Subject, p.Subject)
	setIf(&r.Description, p.Description)
	setIf(&r.Type, p.Type)
	setIf(&r.Priority, p.Priority)
	setIf(&r.Status, p.Status)
	if p.ScheduledDate != nil {
		d := *p.ScheduledDate
		r.ScheduledDate = &d
	}
	if p.CompletedDate != nil {
		d := *p.CompletedDate
		r.CompletedDate = &d
	}
	if p.Duration != nil {
		d := *p.Duration
		r.Duration = &d
	}
	setIf(&r.EquipmentID, p.EquipmentID)
	setRef(&r.TeamID, p.TeamID)
	setRef(&r.AssignedToID, p.AssignedToID)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setRef(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

// Apply returns a copy of e with p applied.
func (p EquipmentPatch) Apply(e Equipment) Equipment { p.apply(&e); return e }

// Apply returns a copy of t with p applied.
func (p TeamPatch) Apply(t Team) Team { p.apply(&t); return t }

// Apply returns a copy of r with p applied.
func (p RequestPatch) Apply(r MaintenanceRequest) MaintenanceRequest { p.apply(&r); return r }
