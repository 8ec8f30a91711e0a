package httpapi

import (
	"time"

	"gearguard.io/internal/gear"
	"gearguard.io/internal/validate"
)

// Request bodies. Dates arrive as strings and are checked by the datestr
// rule before conversion.

type registerBody struct {
	Email    string `json:"email" validate:"email" msg:"Invalid email address"`
	Password string `json:"password" validate:"min=6" msg:"Password must be at least 6 characters"`
	Name     string `json:"name" validate:"min=1" msg:"Name is required"`
}

type loginBody struct {
	Email    string `json:"email" validate:"email" msg:"Invalid email address"`
	Password string `json:"password" validate:"min=1" msg:"Password is required"`
}

type googleBody struct {
	Credential string `json:"credential"`
}

type createEquipmentBody struct {
	Name              string  `json:"name" validate:"min=1" msg:"Name is required"`
	SerialNumber      string  `json:"serialNumber" validate:"min=1" msg:"Serial number is required"`
	Category          string  `json:"category" validate:"required,oneof=MACHINERY VEHICLE IT_EQUIPMENT ELECTRICAL HVAC PLUMBING OTHER"`
	Department        string  `json:"department" validate:"min=1" msg:"Department is required"`
	Location          string  `json:"location" validate:"min=1" msg:"Location is required"`
	PurchaseDate      string  `json:"purchaseDate" validate:"required,datestr"`
	WarrantyExpiry    *string `json:"warrantyExpiry" validate:"omitempty,datestr"`
	AssignedToID      *string `json:"assignedToId"`
	MaintenanceTeamID *string `json:"maintenanceTeamId"`
}

func (b createEquipmentBody) equipment() gear.Equipment {
	return gear.Equipment{
		Name:              b.Name,
		SerialNumber:      b.SerialNumber,
		Category:          gear.EquipmentCategory(b.Category),
		Department:        b.Department,
		Location:          b.Location,
		PurchaseDate:      date(b.PurchaseDate),
		WarrantyExpiry:    optDate(b.WarrantyExpiry),
		AssignedToID:      b.AssignedToID,
		MaintenanceTeamID: b.MaintenanceTeamID,
	}
}

type updateEquipmentBody struct {
	Name              *string `json:"name" validate:"omitempty,notblank" msg:"Name is required"`
	SerialNumber      *string `json:"serialNumber" validate:"omitempty,notblank" msg:"Serial number is required"`
	Category          *string `json:"category" validate:"omitempty,oneof=MACHINERY VEHICLE IT_EQUIPMENT ELECTRICAL HVAC PLUMBING OTHER"`
	Department        *string `json:"department" validate:"omitempty,notblank" msg:"Department is required"`
	Location          *string `json:"location" validate:"omitempty,notblank" msg:"Location is required"`
	PurchaseDate      *string `json:"purchaseDate" validate:"omitempty,datestr"`
	WarrantyExpiry    *string `json:"warrantyExpiry" validate:"omitempty,datestr"`
	Status            *string `json:"status" validate:"omitempty,oneof=OPERATIONAL UNDER_MAINTENANCE SCRAPPED DECOMMISSIONED"`
	AssignedToID      *string `json:"assignedToId"`
	MaintenanceTeamID *string `json:"maintenanceTeamId"`
}

func (b updateEquipmentBody) patch() gear.EquipmentPatch {
	return gear.EquipmentPatch{
		Name:              b.Name,
		SerialNumber:      b.SerialNumber,
		Category:          enumPtr[gear.EquipmentCategory](b.Category),
		Department:        b.Department,
		Location:          b.Location,
		PurchaseDate:      optDate(b.PurchaseDate),
		WarrantyExpiry:    optDate(b.WarrantyExpiry),
		Status:            enumPtr[gear.EquipmentStatus](b.Status),
		AssignedToID:      b.AssignedToID,
		MaintenanceTeamID: b.MaintenanceTeamID,
	}
}

type createTeamBody struct {
	Name           string  `json:"name" validate:"min=1" msg:"Team name is required"`
	Specialization string  `json:"specialization" validate:"min=1" msg:"Specialization is required"`
	Description    *string `json:"description"`
}

type updateTeamBody struct {
	Name           *string `json:"name" validate:"omitempty,notblank" msg:"Team name is required"`
	Specialization *string `json:"specialization" validate:"omitempty,notblank" msg:"Specialization is required"`
	Description    *string `json:"description"`
}

type addMemberBody struct {
	UserID string  `json:"userId" validate:"min=1" msg:"User ID is required"`
	Role   *string `json:"role" validate:"omitempty,oneof=LEAD MEMBER"`
}

type createRequestBody struct {
	Subject       string  `json:"subject" validate:"min=1" msg:"Subject is required"`
	Description   string  `json:"description" validate:"min=1" msg:"Description is required"`
	Type          string  `json:"type" validate:"required,oneof=CORRECTIVE PREVENTIVE"`
	Priority      *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	EquipmentID   string  `json:"equipmentId" validate:"min=1" msg:"Equipment ID is required"`
	TeamID        *string `json:"teamId"`
	AssignedToID  *string `json:"assignedToId"`
	ScheduledDate *string `json:"scheduledDate" validate:"omitempty,datestr"`
}

func (b createRequestBody) request(createdBy string) gear.MaintenanceRequest {
	r := gear.MaintenanceRequest{
		Subject:       b.Subject,
		Description:   b.Description,
		Type:          gear.RequestType(b.Type),
		EquipmentID:   b.EquipmentID,
		TeamID:        b.TeamID,
		AssignedToID:  b.AssignedToID,
		ScheduledDate: optDate(b.ScheduledDate),
		CreatedByID:   createdBy,
	}
	if b.Priority != nil {
		r.Priority = gear.Priority(*b.Priority)
	}
	return r
}

type updateRequestBody struct {
	Subject       *string  `json:"subject" validate:"omitempty,notblank" msg:"Subject is required"`
	Description   *string  `json:"description" validate:"omitempty,notblank" msg:"Description is required"`
	Type          *string  `json:"type" validate:"omitempty,oneof=CORRECTIVE PREVENTIVE"`
	Priority      *string  `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Status        *string  `json:"status" validate:"omitempty,oneof=NEW IN_PROGRESS REPAIRED SCRAP"`
	EquipmentID   *string  `json:"equipmentId" validate:"omitempty,notblank" msg:"Equipment ID is required"`
	TeamID        *string  `json:"teamId"`
	AssignedToID  *string  `json:"assignedToId"`
	ScheduledDate *string  `json:"scheduledDate" validate:"omitempty,datestr"`
	CompletedDate *string  `json:"completedDate" validate:"omitempty,datestr"`
	Duration      *float64 `json:"duration" validate:"omitempty,gte=0"`
}

func (b updateRequestBody) patch() gear.RequestPatch {
	return gear.RequestPatch{
		Subject:       b.Subject,
		Description:   b.Description,
		Type:          enumPtr[gear.RequestType](b.Type),
		Priority:      enumPtr[gear.Priority](b.Priority),
		Status:        enumPtr[gear.RequestStatus](b.Status),
		ScheduledDate: optDate(b.ScheduledDate),
		CompletedDate: optDate(b.CompletedDate),
		Duration:      b.Duration,
		EquipmentID:   b.EquipmentID,
		TeamID:        b.TeamID,
		AssignedToID:  b.AssignedToID,
	}
}

type updateStatusBody struct {
	Status string `json:"status" validate:"required,oneof=NEW IN_PROGRESS REPAIRED SCRAP"`
}

// date converts a string that already passed the datestr rule.
func date(s string) time.Time {
	t, _ := validate.ParseDate(s)
	return t.UTC()
}

func optDate(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := date(*s)
	return &t
}

func enumPtr[E ~string](s *string) *E {
	if s == nil {
		return nil
	}
	e := E(*s)
	return &e
}
