package pg

import (
	"context"
	"database/sql"

	"gearguard.io/internal/gear"
)

const requestViewSelect = `
	select ` + requestCols + `, ` + equipmentCols + `, ` + teamCols + `,
		cu.id, cu.name, cu.email, au.id, au.name, au.email
	from maintenance_requests r
	join equipment e on e.id = r.equipment_id
	left join maintenance_teams t on t.id = r.team_id
	join users cu on cu.id = r.created_by_id
	left join users au on au.id = r.assigned_to_id`

func scanRequestView(row scanner) (gear.RequestView, error) {
	var (
		rr                requestRow
		er                equipmentRow
		team              optTeam
		creator, assignee optUser
	)
	if err := row.Scan(concat(rr.dest(), er.dest(), team.dest(), creator.dest(), assignee.dest())...); err != nil {
		return gear.RequestView{}, err
	}
	e := er.value()
	return gear.RequestView{
		MaintenanceRequest: rr.value(),
		Equipment:          &e,
		Team:               team.value(),
		CreatedBy:          creator.ref(),
		AssignedTo:         assignee.ref(),
	}, nil
}

func (s *Store) ListRequests(ctx context.Context) ([]gear.RequestView, error) {
	rows, err := s.db.QueryContext(ctx, requestViewSelect+` order by r.created_at desc, r.id desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.RequestView{}
	for rows.Next() {
		v, err := scanRequestView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) RequestByID(ctx context.Context, id string) (gear.RequestView, error) {
	v, err := scanRequestView(s.db.QueryRowContext(ctx, requestViewSelect+` where r.id = $1`, id))
	return v, mapErr(err)
}

// requestsWhere lists bare requests newest first.
func (s *Store) requestsWhere(ctx context.Context, where string, args ...any) ([]gear.MaintenanceRequest, error) {
	rows, err := s.db.QueryContext(ctx, `select `+requestCols+` from maintenance_requests r where `+where+
		` order by r.created_at desc, r.id desc`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.MaintenanceRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) CreateRequest(ctx context.Context, r gear.MaintenanceRequest) error {
	_, err := s.db.ExecContext(ctx, `
		insert into maintenance_requests (id, subject, description, type, priority, status, scheduled_date,
			completed_date, duration, equipment_id, team_id, created_by_id, assigned_to_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, r.ID, r.Subject, r.Description, r.Type, r.Priority, r.Status, nullTime(r.ScheduledDate),
		nullTime(r.CompletedDate), nullFloat(r.Duration), r.EquipmentID, nullString(r.TeamID), r.CreatedByID,
		nullString(r.AssignedToID), r.CreatedAt, r.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateRequest(ctx context.Context, id string, p gear.RequestPatch) (gear.MaintenanceRequest, gear.MaintenanceRequest, error) {
	var before, after gear.MaintenanceRequest
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanRequest(tx.QueryRowContext(ctx, `select `+requestCols+` from maintenance_requests r where r.id = $1 for update`, id))
		if err != nil {
			return mapErr(err)
		}
		next := p.Apply(cur)
		err = tx.QueryRowContext(ctx, `
			update maintenance_requests set subject = $2, description = $3, type = $4, priority = $5, status = $6,
				scheduled_date = $7, completed_date = $8, duration = $9, equipment_id = $10, team_id = $11,
				assigned_to_id = $12, updated_at = now()
			where id = $1
			returning updated_at
		`, id, next.Subject, next.Description, next.Type, next.Priority, next.Status, nullTime(next.ScheduledDate),
			nullTime(next.CompletedDate), nullFloat(next.Duration), next.EquipmentID, nullString(next.TeamID),
			nullString(next.AssignedToID)).Scan(&next.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		before, after = cur, next
		return nil
	})
	return before, after, err
}

func (s *Store) CalendarRequests(ctx context.Context) ([]gear.CalendarItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, subject, scheduled_date, type, priority, status
		from maintenance_requests
		where scheduled_date is not null
		order by scheduled_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.CalendarItem{}
	for rows.Next() {
		var c gear.CalendarItem
		if err := rows.Scan(&c.ID, &c.Subject, &c.ScheduledDate, &c.Type, &c.Priority, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) KanbanRequests(ctx context.Context) ([]gear.KanbanItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.id, r.subject, r.priority, r.status, r.equipment_id, r.assigned_to_id, e.name
		from maintenance_requests r
		join equipment e on e.id = r.equipment_id
		order by r.created_at desc, r.id desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.KanbanItem{}
	for rows.Next() {
		var (
			k        gear.KanbanItem
			assignee sql.NullString
		)
		if err := rows.Scan(&k.ID, &k.Subject, &k.Priority, &k.Status, &k.EquipmentID, &assignee, &k.Equipment.Name); err != nil {
			return nil, err
		}
		k.AssignedToID = strPtr(assignee)
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) RecentRequests(ctx context.Context, limit int) ([]gear.RecentRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+requestCols+`, e.name, au.name
		from maintenance_requests r
		join equipment e on e.id = r.equipment_id
		left join users au on au.id = r.assigned_to_id
		order by r.created_at desc, r.id desc
		limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.RecentRequest{}
	for rows.Next() {
		var (
			rr            requestRow
			equipmentName string
			assignee      sql.NullString
		)
		if err := rows.Scan(append(rr.dest(), &equipmentName, &assignee)...); err != nil {
			return nil, err
		}
		item := gear.RecentRequest{MaintenanceRequest: rr.value(), Equipment: &gear.NameOnly{Name: equipmentName}}
		if assignee.Valid {
			item.AssignedTo = &gear.NameOnly{Name: assignee.String}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) CountRequests(ctx context.Context, status *gear.RequestStatus) (int, error) {
	var n int
	var arg sql.NullString
	if status != nil {
		arg = sql.NullString{String: string(*status), Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `select count(*) from maintenance_requests where $1::text is null or status = $1`, arg).Scan(&n)
	return n, err
}
