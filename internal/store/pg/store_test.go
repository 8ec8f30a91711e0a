package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"gearguard.io/internal/gear"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return New(db), mock
}

var userColumns = []string{"id", "email", "name", "role", "department", "auth_provider", "password_hash", "created_at", "updated_at"}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "users_email_key"})

	err := s.CreateUser(context.Background(), gear.User{ID: "u1", Email: "a@x.com", AuthProvider: gear.ProviderLocal, PasswordHash: "h"})
	var ce *gear.ConflictError
	if !errors.As(err, &ce) || ce.Field != gear.FieldEmail {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if !errors.Is(err, gear.ErrConflict) {
		t.Fatalf("conflict should unwrap to ErrConflict")
	}
}

func TestUserByEmail(t *testing.T) {
	s, mock := newMock(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("from users u where u.email").WithArgs("a@x.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "a@x.com", "A", "ADMIN", "Ops", "LOCAL", "hash", now, now))
	mock.ExpectQuery("from users u where u.email").WithArgs("ghost@x.com").WillReturnError(sql.ErrNoRows)

	u, err := s.UserByEmail(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	if u.Role != gear.RoleAdmin || u.PasswordHash != "hash" || !u.HasPassword() {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := s.UserByEmail(context.Background(), "ghost@x.com"); !errors.Is(err, gear.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteEquipment(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("delete from equipment").WithArgs("eq-1").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "maintenance_requests_equipment_id_fkey"})
	mock.ExpectExec("delete from equipment").WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from equipment").WithArgs("eq-2").WillReturnResult(sqlmock.NewResult(0, 1))

	var ce *gear.ConflictError
	if err := s.DeleteEquipment(context.Background(), "eq-1"); !errors.As(err, &ce) || ce.Field != gear.FieldRequests {
		t.Fatalf("expected requests conflict, got %v", err)
	}
	if err := s.DeleteEquipment(context.Background(), "missing"); !errors.Is(err, gear.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteEquipment(context.Background(), "eq-2"); err != nil {
		t.Fatalf("DeleteEquipment: %v", err)
	}
}

func TestAddMemberReferenceErrors(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("insert into team_members").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "team_members_team_id_fkey"})
	mock.ExpectExec("insert into team_members").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "team_members_user_id_fkey"})
	mock.ExpectExec("insert into team_members").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "team_members_user_id_team_id_key"})

	m := gear.TeamMember{ID: "m1", UserID: "u1", TeamID: "t1", Role: gear.MemberMember}
	if err := s.AddMember(context.Background(), m); !errors.Is(err, gear.ErrNotFound) {
		t.Fatalf("missing team: expected ErrNotFound, got %v", err)
	}
	if err := s.AddMember(context.Background(), m); !errors.Is(err, gear.ErrInvalidReference) {
		t.Fatalf("missing user: expected ErrInvalidReference, got %v", err)
	}
	var ce *gear.ConflictError
	if err := s.AddMember(context.Background(), m); !errors.As(err, &ce) || ce.Field != gear.FieldMembership {
		t.Fatalf("duplicate: expected membership conflict, got %v", err)
	}
}

func TestRemoveMemberMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("delete from team_members").WithArgs("t1", "u1").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := s.RemoveMember(context.Background(), "t1", "u1"); !errors.Is(err, gear.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCountRequestsByStatus(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectQuery("select count\\(\\*\\) from maintenance_requests").WithArgs("REPAIRED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("select count\\(\\*\\) from maintenance_requests").WithArgs(nil).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	repaired := gear.StatusRepaired
	n, err := s.CountRequests(context.Background(), &repaired)
	if err != nil || n != 3 {
		t.Fatalf("CountRequests(REPAIRED) = %d, %v", n, err)
	}
	n, err = s.CountRequests(context.Background(), nil)
	if err != nil || n != 7 {
		t.Fatalf("CountRequests(nil) = %d, %v", n, err)
	}
}

func TestUpdateTeamAppliesPatchInTransaction(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery("from maintenance_teams t where t.id = .* for update").WithArgs("t1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "specialization", "description", "created_at", "updated_at"}).
			AddRow("t1", "Electrical", "Electrical", nil, created, created))
	mock.ExpectQuery("update maintenance_teams set").WithArgs("t1", "Power", "Electrical", nil).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))
	mock.ExpectCommit()

	name := "Power"
	team, err := s.UpdateTeam(context.Background(), "t1", gear.TeamPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateTeam: %v", err)
	}
	if team.Name != "Power" || team.Specialization != "Electrical" || !team.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected team: %+v", team)
	}
}

func TestUpdateRequestMissing(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("from maintenance_requests r where r.id = .* for update").WithArgs("nope").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	status := gear.StatusRepaired
	if _, _, err := s.UpdateRequest(context.Background(), "nope", gear.RequestPatch{Status: &status}); !errors.Is(err, gear.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRequestReturnsLockedPreImage(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)
	cols := []string{"id", "subject", "description", "type", "priority", "status", "scheduled_date", "completed_date",
		"duration", "equipment_id", "team_id", "created_by_id", "assigned_to_id", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery("for update").WithArgs("r1").WillReturnRows(sqlmock.NewRows(cols).
		AddRow("r1", "Leak", "d", "CORRECTIVE", "HIGH", "IN_PROGRESS", nil, nil, nil, "e1", nil, "u1", nil, created, created))
	mock.ExpectQuery("update maintenance_requests").WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(updated))
	mock.ExpectCommit()

	status := gear.StatusRepaired
	before, after, err := s.UpdateRequest(context.Background(), "r1", gear.RequestPatch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateRequest: %v", err)
	}
	if before.Status != gear.StatusInProgress || after.Status != gear.StatusRepaired {
		t.Fatalf("before=%s after=%s", before.Status, after.Status)
	}
	if !after.UpdatedAt.Equal(updated) || after.Subject != "Leak" {
		t.Fatalf("after = %+v", after)
	}
}

func TestRecentRequestsProjection(t *testing.T) {
	s, mock := newMock(t)
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "subject", "description", "type", "priority", "status", "scheduled_date", "completed_date",
		"duration", "equipment_id", "team_id", "created_by_id", "assigned_to_id", "created_at", "updated_at", "name", "name"}
	mock.ExpectQuery("limit").WithArgs(5).WillReturnRows(sqlmock.NewRows(cols).
		AddRow("r1", "Leak", "d", "CORRECTIVE", "HIGH", "NEW", nil, nil, nil, "eq-1", nil, "u1", "u2", now, now, "Pump", "Jane"))

	out, err := s.RecentRequests(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRequests: %v", err)
	}
	if len(out) != 1 || out[0].Equipment.Name != "Pump" || out[0].AssignedTo == nil || out[0].AssignedTo.Name != "Jane" {
		t.Fatalf("unexpected projection: %+v", out)
	}
	if out[0].AssignedToID == nil || *out[0].AssignedToID != "u2" || out[0].TeamID != nil {
		t.Fatalf("nullable columns not mapped: %+v", out[0].MaintenanceRequest)
	}
}
