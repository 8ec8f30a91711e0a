// Package seed loads the demo organisation: five users, two teams, four
// pieces of equipment and four maintenance requests. Running it twice is
// harmless; records that already exist are left untouched.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gearguard.io/internal/auth"
	"gearguard.io/internal/gear"
	"gearguard.io/internal/ids"
	"gearguard.io/internal/obs"
)

type demoUser struct {
	email, password, name, department string
	role                              gear.Role
}

var users = []demoUser{
	{"admin@gearguard.com", "admin123", "Admin User", "Management", gear.RoleAdmin},
	{"manager@gearguard.com", "manager123", "Manager User", "Operations", gear.RoleManager},
	{"user@gearguard.com", "user123", "Standard User", "General", gear.RoleUser},
	{"john@gearguard.com", "tech123", "John Smith", "Electrical", gear.RoleTechnician},
	{"jane@gearguard.com", "tech123", "Jane Doe", "Mechanical", gear.RoleTechnician},
}

const (
	ElectricalTeamID = "electrical-team"
	MechanicalTeamID = "mechanical-team"
)

// Demo seeds store. now anchors relative dates (the scheduled HVAC visit).
func Demo(ctx context.Context, store gear.Store, now time.Time) error {
	log := obs.Logger().WithField("component", "seed")
	now = now.UTC()

	byEmail := make(map[string]string, len(users))
	for _, du := range users {
		id, err := ensureUser(ctx, store, du, now)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", du.email, err)
		}
		byEmail[du.email] = id
	}
	log.WithField("count", len(users)).Info("users ready")

	admin := byEmail["admin@gearguard.com"]
	john := byEmail["john@gearguard.com"]
	jane := byEmail["jane@gearguard.com"]

	teams := []gear.Team{
		{ID: ElectricalTeamID, Name: "Electrical Team", Specialization: "Electrical Systems", Description: str("Handles all electrical equipment maintenance")},
		{ID: MechanicalTeamID, Name: "Mechanical Team", Specialization: "Mechanical Systems", Description: str("Handles all mechanical equipment maintenance")},
	}
	for _, t := range teams {
		t.CreatedAt, t.UpdatedAt = now, now
		if err := skipExisting(store.CreateTeam(ctx, t)); err != nil {
			return fmt.Errorf("seed team %s: %w", t.ID, err)
		}
	}

	members := []gear.TeamMember{
		{UserID: john, TeamID: ElectricalTeamID, Role: gear.MemberLead},
		{UserID: jane, TeamID: MechanicalTeamID, Role: gear.MemberLead},
	}
	for _, m := range members {
		m.ID, m.CreatedAt = ids.New(), now
		if err := skipExisting(store.AddMember(ctx, m)); err != nil {
			return fmt.Errorf("seed member %s/%s: %w", m.TeamID, m.UserID, err)
		}
	}
	log.Info("teams ready")

	equipment := []gear.Equipment{
		{ID: "eq-cnc-001", Name: "CNC Milling Machine", SerialNumber: "CNC-001", Category: gear.CategoryMachinery,
			Department: "Production", Location: "Building A, Floor 1", PurchaseDate: day(2022, 1, 15),
			WarrantyExpiry: ptr(day(2025, 1, 15)), Status: gear.EquipmentOperational, MaintenanceTeamID: str(MechanicalTeamID)},
		{ID: "eq-hvac-001", Name: "Central Air Conditioning Unit", SerialNumber: "HVAC-001", Category: gear.CategoryHVAC,
			Department: "Facilities", Location: "Rooftop", PurchaseDate: day(2021, 6, 20),
			WarrantyExpiry: ptr(day(2024, 6, 20)), Status: gear.EquipmentOperational, MaintenanceTeamID: str(ElectricalTeamID)},
		{ID: "eq-frk-001", Name: "Electric Forklift", SerialNumber: "FRK-001", Category: gear.CategoryVehicle,
			Department: "Warehouse", Location: "Warehouse B", PurchaseDate: day(2023, 3, 10),
			WarrantyExpiry: ptr(day(2026, 3, 10)), Status: gear.EquipmentOperational},
		{ID: "eq-gen-001", Name: "Backup Generator", SerialNumber: "GEN-001", Category: gear.CategoryElectrical,
			Department: "Facilities", Location: "Building A, Basement", PurchaseDate: day(2020, 11, 5),
			WarrantyExpiry: ptr(day(2023, 11, 5)), Status: gear.EquipmentUnderMaintenance, MaintenanceTeamID: str(ElectricalTeamID)},
	}
	for _, e := range equipment {
		e.CreatedAt, e.UpdatedAt = now, now
		if err := skipExisting(store.CreateEquipment(ctx, e)); err != nil {
			return fmt.Errorf("seed equipment %s: %w", e.SerialNumber, err)
		}
	}
	log.WithField("count", len(equipment)).Info("equipment ready")

	requests := []gear.MaintenanceRequest{
		{ID: "req-001", Subject: "Generator not starting",
			Description: "The backup generator fails to start during power outage tests.",
			Type:        gear.RequestCorrective, Priority: gear.PriorityHigh, Status: gear.StatusInProgress,
			EquipmentID: "eq-gen-001", TeamID: str(ElectricalTeamID), CreatedByID: admin, AssignedToID: str(john)},
		{ID: "req-002", Subject: "Quarterly HVAC maintenance",
			Description: "Scheduled preventive maintenance for the central AC unit.",
			Type:        gear.RequestPreventive, Priority: gear.PriorityMedium, Status: gear.StatusNew,
			ScheduledDate: ptr(now.Add(7 * 24 * time.Hour)),
			EquipmentID:   "eq-hvac-001", TeamID: str(ElectricalTeamID), CreatedByID: admin},
		{ID: "req-003", Subject: "CNC calibration required",
			Description: "Machine is producing parts slightly off-spec. Needs recalibration.",
			Type:        gear.RequestCorrective, Priority: gear.PriorityCritical, Status: gear.StatusNew,
			EquipmentID: "eq-cnc-001", TeamID: str(MechanicalTeamID), CreatedByID: admin},
		{ID: "req-004", Subject: "Forklift battery replacement",
			Description: "Battery no longer holds charge for a full shift.",
			Type:        gear.RequestCorrective, Priority: gear.PriorityMedium, Status: gear.StatusRepaired,
			CompletedDate: ptr(now), Duration: ptr(2.5),
			EquipmentID: "eq-frk-001", CreatedByID: admin, AssignedToID: str(jane)},
	}
	for i, r := range requests {
		// distinct timestamps keep newest-first listings stable
		at := now.Add(time.Duration(i) * time.Second)
		r.CreatedAt, r.UpdatedAt = at, at
		if err := skipExisting(store.CreateRequest(ctx, r)); err != nil {
			return fmt.Errorf("seed request %s: %w", r.ID, err)
		}
	}
	log.WithFields(logrus.Fields{"count": len(requests)}).Info("demo data seeded")
	return nil
}

func ensureUser(ctx context.Context, store gear.UserStore, du demoUser, now time.Time) (string, error) {
	existing, err := store.UserByEmail(ctx, du.email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gear.ErrNotFound) {
		return "", err
	}
	hash, err := auth.HashPassword(du.password)
	if err != nil {
		return "", err
	}
	u := gear.User{
		ID:           ids.New(),
		Email:        du.email,
		Name:         du.name,
		Role:         du.role,
		Department:   du.department,
		AuthProvider: gear.ProviderLocal,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return u.ID, store.CreateUser(ctx, u)
}

func skipExisting(err error) error {
	if errors.Is(err, gear.ErrConflict) {
		return nil
	}
	return err
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func str(s string) *string { return &s }

func ptr[T any](v T) *T { return &v }
