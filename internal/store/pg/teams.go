package pg

import (
	"context"
	"database/sql"

	"gearguard.io/internal/gear"
)

func (s *Store) ListTeams(ctx context.Context) ([]gear.TeamListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+teamCols+`,
			(select count(*) from equipment e where e.maintenance_team_id = t.id),
			(select count(*) from maintenance_requests r where r.team_id = t.id)
		from maintenance_teams t
		order by t.created_at, t.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.TeamListItem{}
	for rows.Next() {
		var (
			t    gear.Team
			desc sql.NullString
			c    gear.TeamCount
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Specialization, &desc, &t.CreatedAt, &t.UpdatedAt, &c.Equipment, &c.Requests); err != nil {
			return nil, err
		}
		t.Description = strPtr(desc)
		out = append(out, gear.TeamListItem{Team: t, Members: []gear.MemberView{}, Count: c})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	members, err := s.members(ctx, ``)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if m, ok := members[out[i].ID]; ok {
			out[i].Members = m
		}
	}
	return out, nil
}

func (s *Store) TeamByID(ctx context.Context, id string) (gear.TeamDetail, error) {
	t, err := scanTeam(s.db.QueryRowContext(ctx, `select `+teamCols+` from maintenance_teams t where t.id = $1`, id))
	if err != nil {
		return gear.TeamDetail{}, mapErr(err)
	}
	d := gear.TeamDetail{Team: t, Members: []gear.MemberView{}, Equipment: []gear.Equipment{}}

	members, err := s.members(ctx, `where m.team_id = $1`, id)
	if err != nil {
		return gear.TeamDetail{}, err
	}
	if m, ok := members[id]; ok {
		d.Members = m
	}

	rows, err := s.db.QueryContext(ctx, `select `+equipmentCols+` from equipment e where e.maintenance_team_id = $1 order by e.created_at, e.id`, id)
	if err != nil {
		return gear.TeamDetail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return gear.TeamDetail{}, err
		}
		d.Equipment = append(d.Equipment, e)
	}
	if err := rows.Err(); err != nil {
		return gear.TeamDetail{}, err
	}

	if d.Requests, err = s.requestsWhere(ctx, `r.team_id = $1`, id); err != nil {
		return gear.TeamDetail{}, err
	}
	return d, nil
}

// members groups memberships by team id.
func (s *Store) members(ctx context.Context, where string, args ...any) (map[string][]gear.MemberView, error) {
	rows, err := s.db.QueryContext(ctx, `
		select m.id, m.user_id, m.team_id, m.role, m.created_at, u.id, u.name, u.email, u.role
		from team_members m
		join users u on u.id = m.user_id
		`+where+`
		order by m.created_at, m.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]gear.MemberView{}
	for rows.Next() {
		var mv gear.MemberView
		if err := rows.Scan(&mv.ID, &mv.UserID, &mv.TeamID, &mv.Role, &mv.CreatedAt,
			&mv.User.ID, &mv.User.Name, &mv.User.Email, &mv.User.Role); err != nil {
			return nil, err
		}
		out[mv.TeamID] = append(out[mv.TeamID], mv)
	}
	return out, rows.Err()
}

func (s *Store) CreateTeam(ctx context.Context, t gear.Team) error {
	_, err := s.db.ExecContext(ctx, `
		insert into maintenance_teams (id, name, specialization, description, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.Name, t.Specialization, nullString(t.Description), t.CreatedAt, t.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateTeam(ctx context.Context, id string, p gear.TeamPatch) (gear.Team, error) {
	var out gear.Team
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanTeam(tx.QueryRowContext(ctx, `select `+teamCols+` from maintenance_teams t where t.id = $1 for update`, id))
		if err != nil {
			return mapErr(err)
		}
		next := p.Apply(cur)
		err = tx.QueryRowContext(ctx, `
			update maintenance_teams set name = $2, specialization = $3, description = $4, updated_at = now()
			where id = $1
			returning updated_at
		`, id, next.Name, next.Specialization, nullString(next.Description)).Scan(&next.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		out = next
		return nil
	})
	return out, err
}

// DeleteTeam relies on the schema: memberships cascade, equipment and
// request references are set to null.
func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from maintenance_teams where id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

func (s *Store) AddMember(ctx context.Context, m gear.TeamMember) error {
	_, err := s.db.ExecContext(ctx, `
		insert into team_members (id, user_id, team_id, role, created_at)
		values ($1, $2, $3, $4, $5)
	`, m.ID, m.UserID, m.TeamID, m.Role, m.CreatedAt)
	if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation && pgErr.ConstraintName == "team_members_team_id_fkey" {
		return gear.ErrNotFound
	}
	return mapErr(err)
}

func (s *Store) RemoveMember(ctx context.Context, teamID, userID string) error {
	res, err := s.db.ExecContext(ctx, `delete from team_members where team_id = $1 and user_id = $2`, teamID, userID)
	if err != nil {
		return mapErr(err)
	}
	return expectOne(res)
}

func (s *Store) CountTeams(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from maintenance_teams`).Scan(&n)
	return n, err
}
