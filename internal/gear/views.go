package gear

import "time"

// UserRef is the {id,name,email} projection embedded in reads.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type UserName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NameOnly struct {
	Name string `json:"name"`
}

// UserSummary is what the user directory exposes. No credentials.
type UserSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Department: u.Department}
}

func (u User) Ref() *UserRef { return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email} }

type EquipmentCount struct {
	Requests int `json:"requests"`
}

type EquipmentListItem struct {
	Equipment
	AssignedTo      *UserRef       `json:"assignedTo"`
	MaintenanceTeam *Team          `json:"maintenanceTeam"`
	Count           EquipmentCount `json:"_count"`
}

type EquipmentDetail struct {
	Equipment
	AssignedTo      *UserRef             `json:"assignedTo"`
	MaintenanceTeam *Team                `json:"maintenanceTeam"`
	Requests        []MaintenanceRequest `json:"requests"`
}

// EquipmentRequest is a request listed under its equipment.
type EquipmentRequest struct {
	MaintenanceRequest
	CreatedBy  *UserName `json:"createdBy"`
	AssignedTo *UserName `json:"assignedTo"`
}

type MemberUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

type MemberView struct {
	TeamMember
	User MemberUser `json:"user"`
}

type TeamCount struct {
	Equipment int `json:"equipment"`
	Requests  int `json:"requests"`
}

type TeamListItem struct {
	Team
	Members []MemberView `json:"members"`
	Count   TeamCount    `json:"_count"`
}

type TeamDetail struct {
	Team
	Members   []MemberView         `json:"members"`
	Equipment []Equipment          `json:"equipment"`
	Requests  []MaintenanceRequest `json:"requests"`
}

// RequestView is a request with its equipment, team, creator and assignee.
type RequestView struct {
	MaintenanceRequest
	Equipment  *Equipment `json:"equipment"`
	Team       *Team      `json:"team"`
	CreatedBy  *UserRef   `json:"createdBy"`
	AssignedTo *UserRef   `json:"assignedTo"`
}

type CalendarItem struct {
	ID            string        `json:"id"`
	Subject       string        `json:"subject"`
	ScheduledDate time.Time     `json:"scheduledDate"`
	Type          RequestType   `json:"type"`
	Priority      Priority      `json:"priority"`
	Status        RequestStatus `json:"status"`
}

type KanbanItem struct {
	ID           string        `json:"id"`
	Subject      string        `json:"subject"`
	Priority     Priority      `json:"priority"`
	Status       RequestStatus `json:"status"`
	EquipmentID  string        `json:"equipmentId"`
	AssignedToID *string       `json:"assignedToId"`
	Equipment    NameOnly      `json:"equipment"`
}

type RecentRequest struct {
	MaintenanceRequest
	Equipment  *NameOnly `json:"equipment"`
	AssignedTo *NameOnly `json:"assignedTo"`
}

// Stats are dashboard counters. TotalRequests always equals
// NewRequests+InProgressRequests+CompletedRequests+ScrappedRequests.
type Stats struct {
	TotalEquipment       int `json:"totalEquipment"`
	OperationalEquipment int `json:"operationalEquipment"`
	UnderMaintenance     int `json:"underMaintenance"`
	TotalTeams           int `json:"totalTeams"`
	TotalRequests        int `json:"totalRequests"`
	NewRequests          int `json:"newRequests"`
	InProgressRequests   int `json:"inProgressRequests"`
	CompletedRequests    int `json:"completedRequests"`
	ScrappedRequests     int `json:"scrappedRequests"`
}
