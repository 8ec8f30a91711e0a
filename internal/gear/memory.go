package gear

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a process-local Store. It enforces the same uniqueness,
// reference and cascade rules as the PostgreSQL schema.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]User
	emails    map[string]string // email -> user id
	equipment map[string]Equipment
	serials   map[string]string // serial -> equipment id
	teams     map[string]Team
	members   map[string]TeamMember
	requests  map[string]MaintenanceRequest
	now       func() time.Time
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]User),
		emails:    make(map[string]string),
		equipment: make(map[string]Equipment),
		serials:   make(map[string]string),
		teams:     make(map[string]Team),
		members:   make(map[string]TeamMember),
		requests:  make(map[string]MaintenanceRequest),
		now:       time.Now,
	}
}

var _ Store = (*Memory)(nil)

func (s *Memory) Ping(context.Context) error { return nil }

// --- users

func (s *Memory) CreateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[u.Email]; ok {
		return &ConflictError{Field: FieldEmail}
	}
	if _, ok := s.users[u.ID]; ok {
		return ErrConflict
	}
	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Memory) UserByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *Memory) ListUsers(context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

// --- equipment

func (s *Memory) ListEquipment(context.Context) ([]EquipmentListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, r := range s.requests {
		counts[r.EquipmentID]++
	}
	out := make([]EquipmentListItem, 0, len(s.equipment))
	for _, e := range s.equipment {
		out = append(out, EquipmentListItem{
			Equipment:       e,
			AssignedTo:      s.userRef(e.AssignedToID),
			MaintenanceTeam: s.team(e.MaintenanceTeamID),
			Count:           EquipmentCount{Requests: counts[e.ID]},
		})
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Memory) EquipmentByID(_ context.Context, id string) (EquipmentDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.equipment[id]
	if !ok {
		return EquipmentDetail{}, ErrNotFound
	}
	return EquipmentDetail{
		Equipment:       e,
		AssignedTo:      s.userRef(e.AssignedToID),
		MaintenanceTeam: s.team(e.MaintenanceTeamID),
		Requests:        s.requestsWhere(func(r MaintenanceRequest) bool { return r.EquipmentID == id }),
	}, nil
}

func (s *Memory) CreateEquipment(_ context.Context, e Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.serials[e.SerialNumber]; ok {
		return &ConflictError{Field: FieldSerialNumber}
	}
	if err := s.checkEquipmentRefs(e); err != nil {
		return err
	}
	s.equipment[e.ID] = e
	s.serials[e.SerialNumber] = e.ID
	return nil
}

func (s *Memory) UpdateEquipment(_ context.Context, id string, p EquipmentPatch) (Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.equipment[id]
	if !ok {
		return Equipment{}, ErrNotFound
	}
	next := p.Apply(cur)
	if next.SerialNumber != cur.SerialNumber {
		if _, taken := s.serials[next.SerialNumber]; taken {
			return Equipment{}, &ConflictError{Field: FieldSerialNumber}
		}
	}
	if err := s.checkEquipmentRefs(next); err != nil {
		return Equipment{}, err
	}
	next.UpdatedAt = s.now().UTC()
	delete(s.serials, cur.SerialNumber)
	s.serials[next.SerialNumber] = id
	s.equipment[id] = next
	return next, nil
}

func (s *Memory) DeleteEquipment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.equipment[id]
	if !ok {
		return ErrNotFound
	}
	for _, r := range s.requests {
		if r.EquipmentID == id {
			return &ConflictError{Field: FieldRequests}
		}
	}
	delete(s.serials, e.SerialNumber)
	delete(s.equipment, id)
	return nil
}

func (s *Memory) EquipmentRequests(_ context.Context, id string) ([]EquipmentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.requestsWhere(func(r MaintenanceRequest) bool { return r.EquipmentID == id })
	out := make([]EquipmentRequest, 0, len(rs))
	for _, r := range rs {
		out = append(out, EquipmentRequest{
			MaintenanceRequest: r,
			CreatedBy:          s.userName(&r.CreatedByID),
			AssignedTo:         s.userName(r.AssignedToID),
		})
	}
	return out, nil
}

func (s *Memory) checkEquipmentRefs(e Equipment) error {
	if e.AssignedToID != nil {
		if _, ok := s.users[*e.AssignedToID]; !ok {
			return ErrInvalidReference
		}
	}
	if e.MaintenanceTeamID != nil {
		if _, ok := s.teams[*e.MaintenanceTeamID]; !ok {
			return ErrInvalidReference
		}
	}
	return nil
}

// --- teams

func (s *Memory) ListTeams(context.Context) ([]TeamListItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TeamListItem, 0, len(s.teams))
	for _, t := range s.teams {
		item := TeamListItem{Team: t, Members: s.membersOf(t.ID)}
		for _, e := range s.equipment {
			if e.MaintenanceTeamID != nil && *e.MaintenanceTeamID == t.ID {
				item.Count.Equipment++
			}
		}
		for _, r := range s.requests {
			if r.TeamID != nil && *r.TeamID == t.ID {
				item.Count.Requests++
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out, nil
}

func (s *Memory) TeamByID(_ context.Context, id string) (TeamDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return TeamDetail{}, ErrNotFound
	}
	d := TeamDetail{
		Team:      t,
		Members:   s.membersOf(id),
		Equipment: []Equipment{},
		Requests:  s.requestsWhere(func(r MaintenanceRequest) bool { return r.TeamID != nil && *r.TeamID == id }),
	}
	for _, e := range s.equipment {
		if e.MaintenanceTeamID != nil && *e.MaintenanceTeamID == id {
			d.Equipment = append(d.Equipment, e)
		}
	}
	sort.Slice(d.Equipment, func(i, j int) bool {
		return olderFirst(d.Equipment[i].CreatedAt, d.Equipment[i].ID, d.Equipment[j].CreatedAt, d.Equipment[j].ID)
	})
	return d, nil
}

func (s *Memory) CreateTeam(_ context.Context, t Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[t.ID]; ok {
		return ErrConflict
	}
	s.teams[t.ID] = t
	return nil
}

func (s *Memory) UpdateTeam(_ context.Context, id string, p TeamPatch) (Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.teams[id]
	if !ok {
		return Team{}, ErrNotFound
	}
	next := p.Apply(cur)
	next.UpdatedAt = s.now().UTC()
	s.teams[id] = next
	return next, nil
}

func (s *Memory) DeleteTeam(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return ErrNotFound
	}
	for mid, m := range s.members {
		if m.TeamID == id {
			delete(s.members, mid)
		}
	}
	for eid, e := range s.equipment {
		if e.MaintenanceTeamID != nil && *e.MaintenanceTeamID == id {
			e.MaintenanceTeamID = nil
			s.equipment[eid] = e
		}
	}
	for rid, r := range s.requests {
		if r.TeamID != nil && *r.TeamID == id {
			r.TeamID = nil
			s.requests[rid] = r
		}
	}
	delete(s.teams, id)
	return nil
}

func (s *Memory) AddMember(_ context.Context, m TeamMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[m.TeamID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.users[m.UserID]; !ok {
		return ErrInvalidReference
	}
	for _, existing := range s.members {
		if existing.TeamID == m.TeamID && existing.UserID == m.UserID {
			return &ConflictError{Field: FieldMembership}
		}
	}
	s.members[m.ID] = m
	return nil
}

func (s *Memory) RemoveMember(_ context.Context, teamID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.members {
		if m.TeamID == teamID && m.UserID == userID {
			delete(s.members, id)
			return nil
		}
	}
	return ErrNotFound
}

// --- requests

func (s *Memory) ListRequests(context.Context) ([]RequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.requestsWhere(func(MaintenanceRequest) bool { return true })
	out := make([]RequestView, 0, len(rs))
	for _, r := range rs {
		out = append(out, s.view(r))
	}
	return out, nil
}

func (s *Memory) RequestByID(_ context.Context, id string) (RequestView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return RequestView{}, ErrNotFound
	}
	return s.view(r), nil
}

func (s *Memory) CreateRequest(_ context.Context, r MaintenanceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[r.ID]; ok {
		return ErrConflict
	}
	if err := s.checkRequestRefs(r); err != nil {
		return err
	}
	s.requests[r.ID] = r
	return nil
}

func (s *Memory) UpdateRequest(_ context.Context, id string, p RequestPatch) (MaintenanceRequest, MaintenanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requests[id]
	if !ok {
		return MaintenanceRequest{}, MaintenanceRequest{}, ErrNotFound
	}
	next := p.Apply(cur)
	if err := s.checkRequestRefs(next); err != nil {
		return MaintenanceRequest{}, MaintenanceRequest{}, err
	}
	next.UpdatedAt = s.now().UTC()
	s.requests[id] = next
	return cur, next, nil
}

func (s *Memory) CalendarRequests(context.Context) ([]CalendarItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []CalendarItem{}
	for _, r := range s.requests {
		if r.ScheduledDate == nil {
			continue
		}
		out = append(out, CalendarItem{
			ID:            r.ID,
			Subject:       r.Subject,
			ScheduledDate: *r.ScheduledDate,
			Type:          r.Type,
			Priority:      r.Priority,
			Status:        r.Status,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return olderFirst(out[i].ScheduledDate, out[i].ID, out[j].ScheduledDate, out[j].ID)
	})
	return out, nil
}

func (s *Memory) KanbanRequests(context.Context) ([]KanbanItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.requestsWhere(func(MaintenanceRequest) bool { return true })
	out := make([]KanbanItem, 0, len(rs))
	for _, r := range rs {
		out = append(out, KanbanItem{
			ID:           r.ID,
			Subject:      r.Subject,
			Priority:     r.Priority,
			Status:       r.Status,
			EquipmentID:  r.EquipmentID,
			AssignedToID: r.AssignedToID,
			Equipment:    NameOnly{Name: s.equipment[r.EquipmentID].Name},
		})
	}
	return out, nil
}

func (s *Memory) RecentRequests(_ context.Context, limit int) ([]RecentRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs := s.requestsWhere(func(MaintenanceRequest) bool { return true })
	if limit > 0 && len(rs) > limit {
		rs = rs[:limit]
	}
	out := make([]RecentRequest, 0, len(rs))
	for _, r := range rs {
		rr := RecentRequest{MaintenanceRequest: r}
		if e, ok := s.equipment[r.EquipmentID]; ok {
			rr.Equipment = &NameOnly{Name: e.Name}
		}
		if r.AssignedToID != nil {
			if u, ok := s.users[*r.AssignedToID]; ok {
				rr.AssignedTo = &NameOnly{Name: u.Name}
			}
		}
		out = append(out, rr)
	}
	return out, nil
}

func (s *Memory) checkRequestRefs(r MaintenanceRequest) error {
	if _, ok := s.equipment[r.EquipmentID]; !ok {
		return ErrInvalidReference
	}
	if _, ok := s.users[r.CreatedByID]; !ok {
		return ErrInvalidReference
	}
	if r.TeamID != nil {
		if _, ok := s.teams[*r.TeamID]; !ok {
			return ErrInvalidReference
		}
	}
	if r.AssignedToID != nil {
		if _, ok := s.users[*r.AssignedToID]; !ok {
			return ErrInvalidReference
		}
	}
	return nil
}

// --- counts

func (s *Memory) CountEquipment(_ context.Context, status *EquipmentStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == nil {
		return len(s.equipment), nil
	}
	n := 0
	for _, e := range s.equipment {
		if e.Status == *status {
			n++
		}
	}
	return n, nil
}

func (s *Memory) CountTeams(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams), nil
}

func (s *Memory) CountRequests(_ context.Context, status *RequestStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if status == nil {
		return len(s.requests), nil
	}
	n := 0
	for _, r := range s.requests {
		if r.Status == *status {
			n++
		}
	}
	return n, nil
}

// --- helpers; callers hold mu

func (s *Memory) userRef(id *string) *UserRef {
	if id == nil {
		return nil
	}
	if u, ok := s.users[*id]; ok {
		return u.Ref()
	}
	return nil
}

func (s *Memory) userName(id *string) *UserName {
	if id == nil {
		return nil
	}
	if u, ok := s.users[*id]; ok {
		return &UserName{ID: u.ID, Name: u.Name}
	}
	return nil
}

func (s *Memory) team(id *string) *Team {
	if id == nil {
		return nil
	}
	if t, ok := s.teams[*id]; ok {
		return &t
	}
	return nil
}

func (s *Memory) membersOf(teamID string) []MemberView {
	out := []MemberView{}
	for _, m := range s.members {
		if m.TeamID != teamID {
			continue
		}
		u := s.users[m.UserID]
		out = append(out, MemberView{
			TeamMember: m,
			User:       MemberUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		})
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[i].CreatedAt, out[i].ID, out[j].CreatedAt, out[j].ID) })
	return out
}

// requestsWhere returns matching requests newest first.
func (s *Memory) requestsWhere(keep func(MaintenanceRequest) bool) []MaintenanceRequest {
	out := []MaintenanceRequest{}
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return olderFirst(out[j].CreatedAt, out[j].ID, out[i].CreatedAt, out[i].ID) })
	return out
}

func (s *Memory) view(r MaintenanceRequest) RequestView {
	v := RequestView{
		MaintenanceRequest: r,
		Team:               s.team(r.TeamID),
		CreatedBy:          s.userRef(&r.CreatedByID),
		AssignedTo:         s.userRef(r.AssignedToID),
	}
	if e, ok := s.equipment[r.EquipmentID]; ok {
		v.Equipment = &e
	}
	return v
}

func olderFirst(at time.Time, aid string, bt time.Time, bid string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return aid < bid
}
