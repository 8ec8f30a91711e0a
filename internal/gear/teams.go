package gear

import (
	"context"
	"time"

	"gearguard.io/internal/ids"
)

const (
	msgTeamNotFound   = "Team not found"
	msgMemberNotFound = "Team member not found"
)

type TeamService struct {
	store TeamStore
	now   func() time.Time
}

func NewTeamService(store TeamStore) *TeamService {
	return &TeamService{store: store, now: time.Now}
}

func (s *TeamService) List(ctx context.Context) ([]TeamListItem, error) {
	out, err := s.store.ListTeams(ctx)
	return out, classify(err, msgTeamNotFound)
}

func (s *TeamService) Get(ctx context.Context, id string) (TeamDetail, error) {
	d, err := s.store.TeamByID(ctx, id)
	return d, classify(err, msgTeamNotFound)
}

func (s *TeamService) Create(ctx context.Context, t Team) (Team, error) {
	if t.ID == "" {
		t.ID = ids.New()
	}
	now := s.now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if err := s.store.CreateTeam(ctx, t); err != nil {
		return Team{}, classify(err, msgTeamNotFound)
	}
	return t, nil
}

func (s *TeamService) Update(ctx context.Context, id string, p TeamPatch) (Team, error) {
	t, err := s.store.UpdateTeam(ctx, id, p)
	return t, classify(err, msgTeamNotFound)
}

func (s *TeamService) Delete(ctx context.Context, id string) error {
	return classify(s.store.DeleteTeam(ctx, id), msgTeamNotFound)
}

// AddMember links a user to a team. Role defaults to MEMBER; a repeated
// (user, team) pair is a Conflict.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string, role MemberRole) (TeamMember, error) {
	if role == "" {
		role = MemberMember
	}
	m := TeamMember{
		ID:        ids.New(),
		UserID:    userID,
		TeamID:    teamID,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		return TeamMember{}, classify(err, msgTeamNotFound)
	}
	return m, nil
}

func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	return classify(s.store.RemoveMember(ctx, teamID, userID), msgMemberNotFound)
}
