package gear

import "context"

// Stores set UpdatedAt on every update. Create methods persist the value as
// given; IDs and CreatedAt are filled by the services.

type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

type EquipmentStore interface {
	ListEquipment(ctx context.Context) ([]EquipmentListItem, error)
	EquipmentByID(ctx context.Context, id string) (EquipmentDetail, error)
	CreateEquipment(ctx context.Context, e Equipment) error
	UpdateEquipment(ctx context.Context, id string, p EquipmentPatch) (Equipment, error)
	// DeleteEquipment fails with a ConflictError while requests still reference it.
	DeleteEquipment(ctx context.Context, id string) error
	EquipmentRequests(ctx context.Context, id string) ([]EquipmentRequest, error)
}

type TeamStore interface {
	ListTeams(ctx context.Context) ([]TeamListItem, error)
	TeamByID(ctx context.Context, id string) (TeamDetail, error)
	CreateTeam(ctx context.Context, t Team) error
	UpdateTeam(ctx context.Context, id string, p TeamPatch) (Team, error)
	// DeleteTeam removes memberships and clears team references on equipment and requests.
	DeleteTeam(ctx context.Context, id string) error
	AddMember(ctx context.Context, m TeamMember) error
	RemoveMember(ctx context.Context, teamID, userID string) error
}

type RequestStore interface {
	ListRequests(ctx context.Context) ([]RequestView, error)
	RequestByID(ctx context.Context, id string) (RequestView, error)
	CreateRequest(ctx context.Context, r MaintenanceRequest) error
	// UpdateRequest returns the row as it was before and after the patch,
	// both read under the same lock.
	UpdateRequest(ctx context.Context, id string, p RequestPatch) (before, after MaintenanceRequest, err error)
	CalendarRequests(ctx context.Context) ([]CalendarItem, error)
	KanbanRequests(ctx context.Context) ([]KanbanItem, error)
	RecentRequests(ctx context.Context, limit int) ([]RecentRequest, error)
}

// Counter answers the dashboard count queries. A nil status counts everything.
type Counter interface {
	CountEquipment(ctx context.Context, status *EquipmentStatus) (int, error)
	CountTeams(ctx context.Context) (int, error)
	CountRequests(ctx context.Context, status *RequestStatus) (int, error)
}

// Store is the full persistence contract. Implemented by the in-memory
// store and by store/pg.
type Store interface {
	UserStore
	EquipmentStore
	TeamStore
	RequestStore
	Counter
	Ping(ctx context.Context) error
}
