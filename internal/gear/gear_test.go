package gear

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"gearguard.io/internal/apperr"
)

type fixture struct {
	store     *Memory
	equipment *EquipmentService
	teams     *TeamService
	requests  *RequestService
	dashboard *DashboardService
	events    *recorder
	user      User
}

type recorder struct {
	mu     sync.Mutex
	events []RequestEvent
}

func (r *recorder) PublishRequestEvent(_ context.Context, evt RequestEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := NewMemory()
	rec := &recorder{}
	u := User{ID: "u1", Email: "tech@example.com", Name: "Tech", Role: RoleTechnician, Department: DefaultDepartment, AuthProvider: ProviderLocal, PasswordHash: "x"}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return &fixture{
		store:     store,
		equipment: NewEquipmentService(store),
		teams:     NewTeamService(store),
		requests:  NewRequestService(store, MultiPublisher{rec}),
		dashboard: NewDashboardService(store),
		events:    rec,
		user:      u,
	}
}

func (f *fixture) pump(t *testing.T, serial string) Equipment {
	t.Helper()
	e, err := f.equipment.Create(context.Background(), Equipment{
		Name: "Pump", SerialNumber: serial, Category: CategoryMachinery,
		Department: "Ops", Location: "L1", PurchaseDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create equipment: %v", err)
	}
	return e
}

func (f *fixture) leak(t *testing.T, equipmentID string) MaintenanceRequest {
	t.Helper()
	r, err := f.requests.Create(context.Background(), MaintenanceRequest{
		Subject: "Leak", Description: "d", Type: RequestCorrective,
		EquipmentID: equipmentID, CreatedByID: f.user.ID,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return r
}

func wantKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := apperr.KindOf(err); got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

func TestEquipmentDefaultsAndUniqueness(t *testing.T) {
	f := newFixture(t)
	e := f.pump(t, "P-1")
	if e.Status != EquipmentOperational || e.ID == "" {
		t.Fatalf("unexpected defaults: %+v", e)
	}

	_, err := f.equipment.Create(context.Background(), Equipment{Name: "Other", SerialNumber: "P-1", Category: CategoryOther})
	wantKind(t, err, apperr.Conflict)

	missing := "nobody"
	_, err = f.equipment.Create(context.Background(), Equipment{Name: "X", SerialNumber: "P-2", AssignedToID: &missing})
	wantKind(t, err, apperr.Validation)

	_, err = f.equipment.Get(context.Background(), "nope")
	wantKind(t, err, apperr.NotFound)
	_, err = f.equipment.Update(context.Background(), "nope", EquipmentPatch{})
	wantKind(t, err, apperr.NotFound)
	wantKind(t, f.equipment.Delete(context.Background(), "nope"), apperr.NotFound)
}

func TestEquipmentListCountsRequests(t *testing.T) {
	f := newFixture(t)
	e := f.pump(t, "P-1")
	f.leak(t, e.ID)
	f.leak(t, e.ID)

	items, err := f.equipment.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Count.Requests != 2 {
		t.Fatalf("unexpected list: %+v", items)
	}

	wantKind(t, f.equipment.Delete(context.Background(), e.ID), apperr.Conflict)
}

func TestAddMemberRejectsDuplicatePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	team, err := f.teams.Create(ctx, Team{Name: "Electrical", Specialization: "Electrical"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}

	m, err := f.teams.AddMember(ctx, team.ID, f.user.ID, "")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if m.Role != MemberMember {
		t.Fatalf("expected default role MEMBER, got %s", m.Role)
	}

	_, err = f.teams.AddMember(ctx, team.ID, f.user.ID, MemberLead)
	wantKind(t, err, apperr.Conflict)
	if ae, _ := apperr.As(err); ae.Message != "User is already a member of this team" {
		t.Fatalf("unexpected message %q", ae.Message)
	}

	wantKind(t, f.teams.RemoveMember(ctx, team.ID, "ghost"), apperr.NotFound)
	if err := f.teams.RemoveMember(ctx, team.ID, f.user.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
}

func TestDeleteTeamCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	team, _ := f.teams.Create(ctx, Team{Name: "Mechanical", Specialization: "Mechanical"})
	if _, err := f.teams.AddMember(ctx, team.ID, f.user.ID, MemberLead); err != nil {
		t.Fatalf("add member: %v", err)
	}
	e := f.pump(t, "P-1")
	if _, err := f.equipment.Update(ctx, e.ID, EquipmentPatch{MaintenanceTeamID: &team.ID}); err != nil {
		t.Fatalf("assign team: %v", err)
	}

	if err := f.teams.Delete(ctx, team.ID); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	d, err := f.equipment.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get equipment: %v", err)
	}
	if d.MaintenanceTeamID != nil || d.MaintenanceTeam != nil {
		t.Fatalf("team reference not cleared: %+v", d)
	}
	if len(f.store.members) != 0 {
		t.Fatalf("memberships not removed")
	}
}

func TestUpdateStatusLeavesOtherFieldsUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pump(t, "P-1")
	r := f.leak(t, e.ID)

	before, err := f.requests.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := f.requests.UpdateStatus(ctx, r.ID, f.user.ID, StatusRepaired); err != nil {
		t.Fatalf("update status: %v", err)
	}
	after, err := f.requests.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.Status != StatusRepaired {
		t.Fatalf("status = %s", after.Status)
	}

	after.Status = before.Status
	after.UpdatedAt = before.UpdatedAt
	if !reflect.DeepEqual(before.MaintenanceRequest, after.MaintenanceRequest) {
		t.Fatalf("other fields changed:\nbefore %+v\nafter  %+v", before.MaintenanceRequest, after.MaintenanceRequest)
	}

	_, err = f.requests.UpdateStatus(ctx, "missing", f.user.ID, StatusRepaired)
	wantKind(t, err, apperr.NotFound)
}

func TestRequestCreateDefaultsAndEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pump(t, "P-1")
	r := f.leak(t, e.ID)

	if r.Priority != PriorityMedium || r.Status != StatusNew || r.CreatedByID != f.user.ID {
		t.Fatalf("unexpected defaults: %+v", r)
	}
	if _, err := f.requests.UpdateStatus(ctx, r.ID, f.user.ID, StatusInProgress); err != nil {
		t.Fatalf("update status: %v", err)
	}
	// same status again: no event
	if _, err := f.requests.UpdateStatus(ctx, r.ID, f.user.ID, StatusInProgress); err != nil {
		t.Fatalf("update status: %v", err)
	}

	if len(f.events.events) != 2 {
		t.Fatalf("expected 2 events, got %+v", f.events.events)
	}
	if f.events.events[0].Type != EventRequestCreated {
		t.Fatalf("first event %s", f.events.events[0].Type)
	}
	changed := f.events.events[1]
	if changed.Type != EventRequestStatusChanged || changed.PreviousStatus != StatusNew || changed.Status != StatusInProgress {
		t.Fatalf("unexpected status event: %+v", changed)
	}

	_, err := f.requests.Create(ctx, MaintenanceRequest{Subject: "s", Description: "d", Type: RequestPreventive, EquipmentID: "missing", CreatedByID: f.user.ID})
	wantKind(t, err, apperr.Validation)
}

func TestConcurrentStatusChangePublishesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pump(t, "P-1")
	r := f.leak(t, e.ID)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.requests.UpdateStatus(ctx, r.ID, f.user.ID, StatusRepaired); err != nil {
				t.Errorf("update status: %v", err)
			}
		}()
	}
	wg.Wait()

	f.events.mu.Lock()
	defer f.events.mu.Unlock()
	var changes []RequestEvent
	for _, evt := range f.events.events {
		if evt.Type == EventRequestStatusChanged {
			changes = append(changes, evt)
		}
	}
	if len(changes) != 1 {
		t.Fatalf("expected exactly one status change, got %+v", changes)
	}
	if changes[0].PreviousStatus != StatusNew || changes[0].Status != StatusRepaired {
		t.Fatalf("unexpected transition: %+v", changes[0])
	}
}

func TestCalendarOnlyScheduled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pump(t, "P-1")
	f.leak(t, e.ID)
	when := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if _, err := f.requests.Create(ctx, MaintenanceRequest{Subject: "Check", Description: "d", Type: RequestPreventive, EquipmentID: e.ID, CreatedByID: f.user.ID, ScheduledDate: &when}); err != nil {
		t.Fatalf("create: %v", err)
	}

	items, err := f.requests.Calendar(ctx)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(items) != 1 || items[0].Subject != "Check" || !items[0].ScheduledDate.Equal(when) {
		t.Fatalf("unexpected calendar: %+v", items)
	}

	kanban, err := f.requests.Kanban(ctx)
	if err != nil {
		t.Fatalf("kanban: %v", err)
	}
	if len(kanban) != 2 || kanban[0].Equipment.Name != "Pump" {
		t.Fatalf("unexpected kanban: %+v", kanban)
	}
}

func TestStatsBreakdownAddsUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pump(t, "P-1")
	statuses := []RequestStatus{StatusNew, StatusInProgress, StatusRepaired, StatusScrap, StatusScrap}
	for _, st := range statuses {
		r := f.leak(t, e.ID)
		if _, err := f.requests.UpdateStatus(ctx, r.ID, f.user.ID, st); err != nil {
			t.Fatalf("status: %v", err)
		}
	}

	st, err := f.dashboard.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalRequests != len(statuses) {
		t.Fatalf("total = %d", st.TotalRequests)
	}
	if st.TotalRequests != st.NewRequests+st.InProgressRequests+st.CompletedRequests+st.ScrappedRequests {
		t.Fatalf("breakdown does not add up: %+v", st)
	}
	if st.TotalEquipment != 1 || st.OperationalEquipment != 1 || st.ScrappedRequests != 2 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestRecentRequestsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.pump(t, "P-1")
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.requests.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	var last MaintenanceRequest
	for i := 0; i < 7; i++ {
		last = f.leak(t, e.ID)
	}

	recent, err := f.dashboard.RecentRequests(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != DefaultRecentLimit {
		t.Fatalf("expected default limit, got %d", len(recent))
	}
	if recent[0].ID != last.ID || recent[0].Equipment == nil || recent[0].Equipment.Name != "Pump" {
		t.Fatalf("unexpected head: %+v", recent[0])
	}

	if got := ClampLimit(1000); got != MaxRecentLimit {
		t.Fatalf("clamp = %d", got)
	}
}

func TestUsersDirectoryOmitsCredentials(t *testing.T) {
	f := newFixture(t)
	users, err := f.dashboard.Users(context.Background())
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	want := []UserSummary{{ID: "u1", Name: "Tech", Email: "tech@example.com", Role: RoleTechnician, Department: DefaultDepartment}}
	if !reflect.DeepEqual(users, want) {
		t.Fatalf("users = %+v", users)
	}
}
