package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gearguard.io/internal/auth"
	"gearguard.io/internal/gear"
	"gearguard.io/internal/stream"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type apiClient struct {
	baseURL string
	client  *http.Client
	server  *httptest.Server
	codec   *auth.TokenCodec
	store   *gear.Memory
	clock   *testClock
	t       *testing.T
}

func newTestAPI(t *testing.T, mutate ...func(*Deps)) *apiClient {
	t.Helper()

	clock := &testClock{t: time.Now().UTC().Truncate(time.Second)}
	codec, err := auth.NewTokenCodec("test-secret", 0, clock.Now)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	store := gear.NewMemory()
	svc, err := auth.NewService(store, codec)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	deps := Deps{
		Auth:          svc,
		Store:         store,
		Stream:        stream.New(),
		Version:       "test",
		Env:           "test",
		CORSOrigins:   []string{"*"},
		RateBurst:     100,
		RatePerSecond: 100,
	}
	for _, m := range mutate {
		m(&deps)
	}

	srv := httptest.NewServer(New(deps).Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		server:  srv,
		codec:   codec,
		store:   store,
		clock:   clock,
		t:       t,
	}
}

func (c *apiClient) do(method, path, token string, body any) *http.Response {
	c.t.Helper()
	var payload io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		payload = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

// token mints a token for an identity that need not exist in the store.
func (c *apiClient) token(userID string, role gear.Role) string {
	c.t.Helper()
	tok, err := c.codec.Issue(auth.Identity{UserID: userID, Email: userID + "@x.com", Role: role})
	if err != nil {
		c.t.Fatalf("issue: %v", err)
	}
	return tok
}

func (c *apiClient) register(email string) auth.Session {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "secret1", "name": "A",
	})
	var sess auth.Session
	expectJSON(c.t, resp, http.StatusCreated, &sess)
	return sess
}

func expectJSON(t *testing.T, resp *http.Response, code int, dst any) {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != code {
		t.Fatalf("expected %d, got %d: %s", code, resp.StatusCode, raw)
	}
	if dst == nil {
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func expectError(t *testing.T, resp *http.Response, code int, message string) errorBody {
	t.Helper()
	var body errorBody
	expectJSON(t, resp, code, &body)
	if message != "" && body.Message != message {
		t.Fatalf("message = %q, want %q", body.Message, message)
	}
	return body
}

func pump(t *testing.T, c *apiClient, token string) string {
	t.Helper()
	var e gear.Equipment
	expectJSON(t, c.do(http.MethodPost, "/api/equipment", token, map[string]any{
		"name": "Pump", "serialNumber": "P-1", "category": "MACHINERY",
		"department": "Ops", "location": "L1", "purchaseDate": "2024-01-01",
	}), http.StatusCreated, &e)
	return e.ID
}

func TestEndToEndScenario(t *testing.T) {
	c := newTestAPI(t)

	sess := c.register("a@x.com")
	if sess.Token == "" || sess.User.ID == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	var e gear.Equipment
	expectJSON(t, c.do(http.MethodPost, "/api/equipment", sess.Token, map[string]any{
		"name": "Pump", "serialNumber": "P-1", "category": "MACHINERY",
		"department": "Ops", "location": "L1", "purchaseDate": "2024-01-01",
	}), http.StatusCreated, &e)
	if e.ID == "" || e.Status != gear.EquipmentOperational {
		t.Fatalf("unexpected equipment: %+v", e)
	}
	if !e.PurchaseDate.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("purchaseDate = %v", e.PurchaseDate)
	}

	var req gear.MaintenanceRequest
	expectJSON(t, c.do(http.MethodPost, "/api/requests", sess.Token, map[string]any{
		"subject": "Leak", "description": "d", "type": "CORRECTIVE", "equipmentId": e.ID,
	}), http.StatusCreated, &req)
	if req.CreatedByID != sess.User.ID {
		t.Fatalf("createdById = %q, want %q", req.CreatedByID, sess.User.ID)
	}
	if req.Priority != gear.PriorityMedium || req.Status != gear.StatusNew {
		t.Fatalf("defaults not applied: %+v", req)
	}

	var list []gear.EquipmentListItem
	expectJSON(t, c.do(http.MethodGet, "/api/equipment", sess.Token, nil), http.StatusOK, &list)
	if len(list) != 1 || list[0].Count.Requests != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestRegisterNeverReturnsPassword(t *testing.T) {
	c := newTestAPI(t)
	resp := c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "b@x.com", "password": "secret1", "name": "B",
	})
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d: %s", resp.StatusCode, raw)
	}
	if strings.Contains(strings.ToLower(string(raw)), "password") {
		t.Fatalf("password leaked: %s", raw)
	}

	var sess auth.Session
	expectJSON(t, c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "b@x.com", "password": "secret1",
	}), http.StatusOK, &sess)
	if sess.Token == "" {
		t.Fatal("login returned no token")
	}

	expectError(t, c.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "b@x.com", "password": "secret1", "name": "B",
	}), http.StatusConflict, "Email already registered")
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	c := newTestAPI(t)
	c.register("a@x.com")

	wrong := expectError(t, c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "nope-nope",
	}), http.StatusUnauthorized, "Invalid email or password")
	unknown := expectError(t, c.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@x.com", "password": "nope-nope",
	}), http.StatusUnauthorized, "Invalid email or password")
	if wrong.Message != unknown.Message {
		t.Fatalf("messages differ: %q vs %q", wrong.Message, unknown.Message)
	}
}

func TestAuthRequired(t *testing.T) {
	c := newTestAPI(t)
	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodGet, "/api/equipment"},
		{http.MethodPost, "/api/teams"},
		{http.MethodGet, "/api/requests/kanban"},
		{http.MethodPatch, "/api/requests/x/status"},
		{http.MethodGet, "/api/dashboard/stats"},
	}
	for _, p := range paths {
		resp := c.do(p.method, p.path, "", nil)
		expectError(t, resp, http.StatusUnauthorized, "Authentication required")
	}

	// authentication runs before validation
	expectError(t, c.do(http.MethodPost, "/api/requests", "", `{"subject":`),
		http.StatusUnauthorized, "Authentication required")

	expectError(t, c.do(http.MethodGet, "/api/equipment", "not-a-jwt", nil),
		http.StatusUnauthorized, "Invalid token")
}

func TestTokenValidForSevenDays(t *testing.T) {
	c := newTestAPI(t)
	issued := c.clock.Now()
	tok := c.token("u1", gear.RoleUser)

	c.clock.Set(issued.Add(7*24*time.Hour - time.Second))
	var me auth.Me
	expectJSON(t, c.do(http.MethodGet, "/api/auth/me", tok, nil), http.StatusOK, &me)
	if me.UserID != "u1" || me.Exp-me.Iat != int64((7*24*time.Hour).Seconds()) {
		t.Fatalf("unexpected claims: %+v", me)
	}

	c.clock.Set(issued.Add(7*24*time.Hour + time.Second))
	expectError(t, c.do(http.MethodGet, "/api/auth/me", tok, nil), http.StatusUnauthorized, "Invalid token")
}

func TestValidationErrors(t *testing.T) {
	c := newTestAPI(t)
	tok := c.token("u1", gear.RoleUser)

	body := expectError(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
		"subject": "Leak", "description": "d", "type": "CORRECTIVE",
	}), http.StatusBadRequest, "Validation failed")
	found := false
	for _, fe := range body.Errors {
		if fe.Field == "equipmentId" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no equipmentId error in %+v", body.Errors)
	}

	body = expectError(t, c.do(http.MethodPost, "/api/equipment", tok, map[string]any{
		"name": "Pump", "serialNumber": "P-1", "category": "BOAT",
		"department": "Ops", "location": "L1", "purchaseDate": "yesterday",
	}), http.StatusBadRequest, "Validation failed")
	got := map[string]string{}
	for _, fe := range body.Errors {
		got[fe.Field] = fe.Message
	}
	if !strings.HasPrefix(got["category"], "Invalid enum value.") || got["purchaseDate"] == "" {
		t.Fatalf("unexpected errors: %+v", body.Errors)
	}

	body = expectError(t, c.do(http.MethodPost, "/api/teams", tok, `{"name": 5, "specialization": "x"}`),
		http.StatusBadRequest, "Validation failed")
	if len(body.Errors) != 1 || body.Errors[0].Field != "name" {
		t.Fatalf("type mismatch errors: %+v", body.Errors)
	}

	body = expectError(t, c.do(http.MethodPost, "/api/teams", tok, `{"name":`),
		http.StatusBadRequest, "Validation failed")
	if len(body.Errors) != 1 || body.Errors[0].Field != "body" {
		t.Fatalf("malformed errors: %+v", body.Errors)
	}
}

func TestTeamMembership(t *testing.T) {
	c := newTestAPI(t)
	sess := c.register("lead@x.com")
	tok := sess.Token

	var team gear.Team
	expectJSON(t, c.do(http.MethodPost, "/api/teams", tok, map[string]any{
		"name": "Electrical", "specialization": "Wiring",
	}), http.StatusCreated, &team)

	path := "/api/teams/" + team.ID + "/members"
	var m gear.TeamMember
	expectJSON(t, c.do(http.MethodPost, path, tok, map[string]any{"userId": sess.User.ID}), http.StatusCreated, &m)
	if m.Role != gear.MemberMember {
		t.Fatalf("role = %s", m.Role)
	}
	expectError(t, c.do(http.MethodPost, path, tok, map[string]any{"userId": sess.User.ID}),
		http.StatusConflict, "User is already a member of this team")

	expectJSON(t, c.do(http.MethodDelete, path+"/"+sess.User.ID, tok, nil), http.StatusNoContent, nil)
	expectError(t, c.do(http.MethodDelete, path+"/"+sess.User.ID, tok, nil),
		http.StatusNotFound, "Team member not found")
}

func TestUpdateStatusKeepsOtherFields(t *testing.T) {
	c := newTestAPI(t)
	tok := c.register("a@x.com").Token
	eqID := pump(t, c, tok)

	var created gear.MaintenanceRequest
	expectJSON(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
		"subject": "Leak", "description": "d", "type": "PREVENTIVE", "priority": "HIGH",
		"equipmentId": eqID, "scheduledDate": "2030-05-01T08:00:00+02:00",
	}), http.StatusCreated, &created)

	var updated gear.MaintenanceRequest
	expectJSON(t, c.do(http.MethodPatch, "/api/requests/"+created.ID+"/status", tok,
		map[string]string{"status": "REPAIRED"}), http.StatusOK, &updated)

	var read gear.RequestView
	expectJSON(t, c.do(http.MethodGet, "/api/requests/"+created.ID, tok, nil), http.StatusOK, &read)
	if read.Status != gear.StatusRepaired {
		t.Fatalf("status = %s", read.Status)
	}
	before, after := created, read.MaintenanceRequest
	before.Status, before.UpdatedAt = after.Status, after.UpdatedAt
	if !sameRequest(before, after) {
		t.Fatalf("fields changed:\nbefore %+v\nafter  %+v", before, after)
	}

	expectError(t, c.do(http.MethodPatch, "/api/requests/"+created.ID+"/status", tok,
		map[string]string{"status": "DONE"}), http.StatusBadRequest, "Validation failed")
	expectError(t, c.do(http.MethodPatch, "/api/requests/missing/status", tok,
		map[string]string{"status": "NEW"}), http.StatusNotFound, "Request not found")
}

func sameRequest(a, b gear.MaintenanceRequest) bool {
	ra, _ := json.Marshal(a)
	rb, _ := json.Marshal(b)
	return bytes.Equal(ra, rb)
}

func TestDashboardStatsAddUp(t *testing.T) {
	c := newTestAPI(t)
	tok := c.register("a@x.com").Token
	eqID := pump(t, c, tok)

	statuses := []string{"", "IN_PROGRESS", "REPAIRED", "SCRAP", ""}
	for _, st := range statuses {
		var r gear.MaintenanceRequest
		expectJSON(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
			"subject": "s", "description": "d", "type": "CORRECTIVE", "equipmentId": eqID,
		}), http.StatusCreated, &r)
		if st != "" {
			expectJSON(t, c.do(http.MethodPatch, "/api/requests/"+r.ID+"/status", tok,
				map[string]string{"status": st}), http.StatusOK, nil)
		}
	}

	var s gear.Stats
	expectJSON(t, c.do(http.MethodGet, "/api/dashboard/stats", tok, nil), http.StatusOK, &s)
	if s.TotalRequests != 5 || s.NewRequests != 2 || s.InProgressRequests != 1 || s.CompletedRequests != 1 || s.ScrappedRequests != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.TotalRequests != s.NewRequests+s.InProgressRequests+s.CompletedRequests+s.ScrappedRequests {
		t.Fatalf("stats do not add up: %+v", s)
	}

	var recent []gear.RecentRequest
	expectJSON(t, c.do(http.MethodGet, "/api/dashboard/recent-requests?limit=2", tok, nil), http.StatusOK, &recent)
	if len(recent) != 2 || recent[0].Equipment.Name != "Pump" {
		t.Fatalf("unexpected recent: %+v", recent)
	}

	// a sixth request so the default of 5 is observable
	expectJSON(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
		"subject": "s", "description": "d", "type": "CORRECTIVE", "equipmentId": eqID,
	}), http.StatusCreated, nil)
	for query, want := range map[string]int{"limit=abc": 5, "limit=": 5, "limit=0": 5, "limit=3x": 3, "limit=500": 6} {
		recent = nil
		expectJSON(t, c.do(http.MethodGet, "/api/dashboard/recent-requests?"+query, tok, nil), http.StatusOK, &recent)
		if len(recent) != want {
			t.Fatalf("%s: got %d items, want %d", query, len(recent), want)
		}
	}
}

func TestDeleteEquipmentWithRequestsConflicts(t *testing.T) {
	c := newTestAPI(t)
	tok := c.register("a@x.com").Token
	eqID := pump(t, c, tok)
	expectJSON(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
		"subject": "s", "description": "d", "type": "CORRECTIVE", "equipmentId": eqID,
	}), http.StatusCreated, nil)

	expectError(t, c.do(http.MethodDelete, "/api/equipment/"+eqID, tok, nil),
		http.StatusConflict, "Equipment still has maintenance requests")
	expectError(t, c.do(http.MethodDelete, "/api/equipment/missing", tok, nil),
		http.StatusNotFound, "Equipment not found")
	expectError(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
		"subject": "s", "description": "d", "type": "CORRECTIVE", "equipmentId": "missing",
	}), http.StatusBadRequest, "Referenced record does not exist")
}

func TestRoleGuard(t *testing.T) {
	c := newTestAPI(t, func(d *Deps) { d.EnforceRoles = true })

	expectError(t, c.do(http.MethodDelete, "/api/teams/t1", c.token("u1", gear.RoleUser), nil),
		http.StatusForbidden, "Insufficient permissions")
	expectError(t, c.do(http.MethodGet, "/api/dashboard/users", c.token("u2", gear.RoleTechnician), nil),
		http.StatusForbidden, "Insufficient permissions")
	expectError(t, c.do(http.MethodDelete, "/api/teams/t1", c.token("a1", gear.RoleAdmin), nil),
		http.StatusNotFound, "Team not found")
	expectJSON(t, c.do(http.MethodGet, "/api/dashboard/users", c.token("m1", gear.RoleManager), nil),
		http.StatusOK, nil)
}

func TestRoutingFallbacks(t *testing.T) {
	c := newTestAPI(t)
	tok := c.token("u1", gear.RoleUser)

	expectError(t, c.do(http.MethodGet, "/nowhere", "", nil), http.StatusNotFound, "Route not found")
	expectError(t, c.do(http.MethodPut, "/api/equipment", tok, nil), http.StatusMethodNotAllowed, "Method not allowed")
	expectError(t, c.do(http.MethodPut, "/api/equipment", "", nil), http.StatusMethodNotAllowed, "Method not allowed")
	expectError(t, c.do(http.MethodDelete, "/api/requests/r1/status", tok, nil), http.StatusMethodNotAllowed, "Method not allowed")
	expectError(t, c.do(http.MethodGet, "/api/auth/login", "", nil), http.StatusMethodNotAllowed, "Method not allowed")
	expectError(t, c.do(http.MethodGet, "/api/auth/nowhere", "", nil), http.StatusNotFound, "Route not found")
	expectError(t, c.do(http.MethodGet, "/api/nowhere", "", nil), http.StatusNotFound, "Route not found")

	var health map[string]any
	expectJSON(t, c.do(http.MethodGet, "/healthz", "", nil), http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Fatalf("healthz = %v", health)
	}
	expectJSON(t, c.do(http.MethodGet, "/readyz", "", nil), http.StatusOK, nil)

	resp := c.do(http.MethodGet, "/openapi.yaml", "", nil)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(raw, []byte("openapi:")) {
		t.Fatalf("openapi: %d %q", resp.StatusCode, raw[:min(len(raw), 40)])
	}
}

func TestStreamDeliversRequestEvents(t *testing.T) {
	c := newTestAPI(t)
	tok := c.register("a@x.com").Token
	eqID := pump(t, c, tok)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/requests/stream", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}
	lines := bufio.NewReader(resp.Body)
	if first, _ := lines.ReadString('\n'); !strings.HasPrefix(first, ": stream started") {
		t.Fatalf("first line = %q", first)
	}

	expectJSON(t, c.do(http.MethodPost, "/api/requests", tok, map[string]any{
		"subject": "Leak", "description": "d", "type": "CORRECTIVE", "equipmentId": eqID,
	}), http.StatusCreated, nil)

	for {
		line, err := lines.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "event: ") {
			if got := strings.TrimSpace(strings.TrimPrefix(line, "event: ")); got != gear.EventRequestCreated {
				t.Fatalf("event = %q", got)
			}
			return
		}
	}
}

func TestShutdownEndsOpenStreams(t *testing.T) {
	var hub *stream.Hub
	c := newTestAPI(t, func(d *Deps) { hub = d.Stream })
	c.server.Config.RegisterOnShutdown(hub.Close)
	tok := c.register("a@x.com").Token

	req, _ := http.NewRequest(http.MethodGet, c.baseURL+"/api/requests/stream", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := c.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	body := bufio.NewReader(resp.Body)
	if first, _ := body.ReadString('\n'); !strings.HasPrefix(first, ": stream started") {
		t.Fatalf("first line = %q", first)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.server.Config.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown blocked by open stream: %v", err)
	}
	if _, err := io.ReadAll(body); err != nil {
		t.Fatalf("stream did not end cleanly: %v", err)
	}
	if n := hub.Subscribers(); n != 0 {
		t.Fatalf("subscribers after shutdown = %d", n)
	}
}
