package pg

import (
	"database/sql"
	"time"

	"gearguard.io/internal/gear"
)

type scanner interface {
	Scan(dest ...any) error
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

const userCols = `u.id, u.email, u.name, u.role, u.department, u.auth_provider, coalesce(u.password_hash, ''), u.created_at, u.updated_at`

func scanUser(row scanner) (gear.User, error) {
	var u gear.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.Department, &u.AuthProvider, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const equipmentCols = `e.id, e.name, e.serial_number, e.category, e.department, e.location, e.purchase_date,
	e.warranty_expiry, e.status, e.assigned_to_id, e.maintenance_team_id, e.created_at, e.updated_at`

type equipmentRow struct {
	e                          gear.Equipment
	warranty                   sql.NullTime
	assignedTo, maintenanceTID sql.NullString
}

func (r *equipmentRow) dest() []any {
	return []any{&r.e.ID, &r.e.Name, &r.e.SerialNumber, &r.e.Category, &r.e.Department, &r.e.Location, &r.e.PurchaseDate,
		&r.warranty, &r.e.Status, &r.assignedTo, &r.maintenanceTID, &r.e.CreatedAt, &r.e.UpdatedAt}
}

func (r *equipmentRow) value() gear.Equipment {
	e := r.e
	e.WarrantyExpiry = timePtr(r.warranty)
	e.AssignedToID = strPtr(r.assignedTo)
	e.MaintenanceTeamID = strPtr(r.maintenanceTID)
	return e
}

func scanEquipment(row scanner) (gear.Equipment, error) {
	var r equipmentRow
	if err := row.Scan(r.dest()...); err != nil {
		return gear.Equipment{}, err
	}
	return r.value(), nil
}

const teamCols = `t.id, t.name, t.specialization, t.description, t.created_at, t.updated_at`

func scanTeam(row scanner) (gear.Team, error) {
	var (
		t    gear.Team
		desc sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Specialization, &desc, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return gear.Team{}, err
	}
	t.Description = strPtr(desc)
	return t, nil
}

// optTeam scans a LEFT JOINed team.
type optTeam struct {
	id, name, spec, desc sql.NullString
	created, updated     sql.NullTime
}

func (o *optTeam) dest() []any {
	return []any{&o.id, &o.name, &o.spec, &o.desc, &o.created, &o.updated}
}

func (o *optTeam) value() *gear.Team {
	if !o.id.Valid {
		return nil
	}
	return &gear.Team{
		ID:             o.id.String,
		Name:           o.name.String,
		Specialization: o.spec.String,
		Description:    strPtr(o.desc),
		CreatedAt:      o.created.Time,
		UpdatedAt:      o.updated.Time,
	}
}

// optUser scans a LEFT JOINed {id,name,email}.
type optUser struct {
	id, name, email sql.NullString
}

func (o *optUser) dest() []any { return []any{&o.id, &o.name, &o.email} }

func (o *optUser) ref() *gear.UserRef {
	if !o.id.Valid {
		return nil
	}
	return &gear.UserRef{ID: o.id.String, Name: o.name.String, Email: o.email.String}
}

func (o *optUser) short() *gear.UserName {
	if !o.id.Valid {
		return nil
	}
	return &gear.UserName{ID: o.id.String, Name: o.name.String}
}

const requestCols = `r.id, r.subject, r.description, r.type, r.priority, r.status, r.scheduled_date, r.completed_date,
	r.duration, r.equipment_id, r.team_id, r.created_by_id, r.assigned_to_id, r.created_at, r.updated_at`

type requestRow struct {
	r                   gear.MaintenanceRequest
	scheduled, complete sql.NullTime
	duration            sql.NullFloat64
	teamID, assignedTo  sql.NullString
}

func (x *requestRow) dest() []any {
	return []any{&x.r.ID, &x.r.Subject, &x.r.Description, &x.r.Type, &x.r.Priority, &x.r.Status, &x.scheduled, &x.complete,
		&x.duration, &x.r.EquipmentID, &x.teamID, &x.r.CreatedByID, &x.assignedTo, &x.r.CreatedAt, &x.r.UpdatedAt}
}

func (x *requestRow) value() gear.MaintenanceRequest {
	r := x.r
	r.ScheduledDate = timePtr(x.scheduled)
	r.CompletedDate = timePtr(x.complete)
	r.Duration = floatPtr(x.duration)
	r.TeamID = strPtr(x.teamID)
	r.AssignedToID = strPtr(x.assignedTo)
	return r
}

func scanRequest(row scanner) (gear.MaintenanceRequest, error) {
	var x requestRow
	if err := row.Scan(x.dest()...); err != nil {
		return gear.MaintenanceRequest{}, err
	}
	return x.value(), nil
}

func concat(parts ...[]any) []any {
	var out []any
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
