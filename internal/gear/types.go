// Package gear holds the maintenance domain: users, equipment, teams and
// maintenance requests, the store contracts over them, and the services the
// HTTP layer calls.
package gear

import (
	"errors"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleUser       Role = "USER"
)

// AuthProvider tells how a user proves identity. LOCAL users carry a
// password hash; GOOGLE users are federated and never have one.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "LOCAL"
	ProviderGoogle AuthProvider = "GOOGLE"
)

const DefaultDepartment = "General"

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	Role         Role         `json:"role"`
	Department   string       `json:"department"`
	AuthProvider AuthProvider `json:"authProvider"`
	PasswordHash string       `json:"-"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// HasPassword reports whether the user can sign in with a password.
func (u User) HasPassword() bool {
	return u.AuthProvider == ProviderLocal && u.PasswordHash != ""
}

type EquipmentCategory string

const (
	CategoryMachinery   EquipmentCategory = "MACHINERY"
	CategoryVehicle     EquipmentCategory = "VEHICLE"
	CategoryITEquipment EquipmentCategory = "IT_EQUIPMENT"
	CategoryElectrical  EquipmentCategory = "ELECTRICAL"
	CategoryHVAC        EquipmentCategory = "HVAC"
	CategoryPlumbing    EquipmentCategory = "PLUMBING"
	CategoryOther       EquipmentCategory = "OTHER"
)

type EquipmentStatus string

const (
	EquipmentOperational      EquipmentStatus = "OPERATIONAL"
	EquipmentUnderMaintenance EquipmentStatus = "UNDER_MAINTENANCE"
	EquipmentScrapped         EquipmentStatus = "SCRAPPED"
	EquipmentDecommissioned   EquipmentStatus = "DECOMMISSIONED"
)

type Equipment struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	SerialNumber      string            `json:"serialNumber"`
	Category          EquipmentCategory `json:"category"`
	Department        string            `json:"department"`
	Location          string            `json:"location"`
	PurchaseDate      time.Time         `json:"purchaseDate"`
	WarrantyExpiry    *time.Time        `json:"warrantyExpiry"`
	Status            EquipmentStatus   `json:"status"`
	AssignedToID      *string           `json:"assignedToId"`
	MaintenanceTeamID *string           `json:"maintenanceTeamId"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
	Description    *string   `json:"description"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type MemberRole string

const (
	MemberLead   MemberRole = "LEAD"
	MemberMember MemberRole = "MEMBER"
)

type TeamMember struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	TeamID    string     `json:"teamId"`
	Role      MemberRole `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
}

type RequestType string

const (
	RequestCorrective RequestType = "CORRECTIVE"
	RequestPreventive RequestType = "PREVENTIVE"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

type RequestStatus string

const (
	StatusNew        RequestStatus = "NEW"
	StatusInProgress RequestStatus = "IN_PROGRESS"
	StatusRepaired   RequestStatus = "REPAIRED"
	StatusScrap      RequestStatus = "SCRAP"
)

// MaintenanceRequest is a corrective or preventive job against one piece of equipment.
// Duration is in hours.
type MaintenanceRequest struct {
	ID            string        `json:"id"`
	Subject       string        `json:"subject"`
	Description   string        `json:"description"`
	Type          RequestType   `json:"type"`
	Priority      Priority      `json:"priority"`
	Status        RequestStatus `json:"status"`
	ScheduledDate *time.Time    `json:"scheduledDate"`
	CompletedDate *time.Time    `json:"completedDate"`
	Duration      *float64      `json:"duration"`
	EquipmentID   string        `json:"equipmentId"`
	TeamID        *string       `json:"teamId"`
	CreatedByID   string        `json:"createdById"`
	AssignedToID  *string       `json:"assignedToId"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Store-level failures. Services translate them into apperr kinds.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// ConflictError names the unique constraint that was hit.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return "duplicate " + e.Field }
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Field names reported by ConflictError.
const (
	FieldEmail        = "email"
	FieldSerialNumber = "serialNumber"
	FieldMembership   = "membership"
	FieldRequests     = "requests"
)
