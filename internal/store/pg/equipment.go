package pg

import (
	"context"
	"database/sql"
	"errors"

	"gearguard.io/internal/gear"
)

const equipmentJoins = `
	from equipment e
	left join users u on u.id = e.assigned_to_id
	left join maintenance_teams t on t.id = e.maintenance_team_id`

func (s *Store) ListEquipment(ctx context.Context) ([]gear.EquipmentListItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+equipmentCols+`, u.id, u.name, u.email, `+teamCols+`,
			(select count(*) from maintenance_requests r where r.equipment_id = e.id)
		`+equipmentJoins+`
		order by e.created_at, e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.EquipmentListItem{}
	for rows.Next() {
		var (
			er    equipmentRow
			user  optUser
			team  optTeam
			count int
		)
		if err := rows.Scan(concat(er.dest(), user.dest(), team.dest(), []any{&count})...); err != nil {
			return nil, err
		}
		out = append(out, gear.EquipmentListItem{
			Equipment:       er.value(),
			AssignedTo:      user.ref(),
			MaintenanceTeam: team.value(),
			Count:           gear.EquipmentCount{Requests: count},
		})
	}
	return out, rows.Err()
}

func (s *Store) EquipmentByID(ctx context.Context, id string) (gear.EquipmentDetail, error) {
	var (
		er   equipmentRow
		user optUser
		team optTeam
	)
	err := s.db.QueryRowContext(ctx, `
		select `+equipmentCols+`, u.id, u.name, u.email, `+teamCols+`
		`+equipmentJoins+`
		where e.id = $1`, id).Scan(concat(er.dest(), user.dest(), team.dest())...)
	if err != nil {
		return gear.EquipmentDetail{}, mapErr(err)
	}
	reqs, err := s.requestsWhere(ctx, `r.equipment_id = $1`, id)
	if err != nil {
		return gear.EquipmentDetail{}, err
	}
	return gear.EquipmentDetail{
		Equipment:       er.value(),
		AssignedTo:      user.ref(),
		MaintenanceTeam: team.value(),
		Requests:        reqs,
	}, nil
}

func (s *Store) CreateEquipment(ctx context.Context, e gear.Equipment) error {
	_, err := s.db.ExecContext(ctx, `
		insert into equipment (id, name, serial_number, category, department, location, purchase_date,
			warranty_expiry, status, assigned_to_id, maintenance_team_id, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, e.ID, e.Name, e.SerialNumber, e.Category, e.Department, e.Location, e.PurchaseDate,
		nullTime(e.WarrantyExpiry), e.Status, nullString(e.AssignedToID), nullString(e.MaintenanceTeamID), e.CreatedAt, e.UpdatedAt)
	return mapErr(err)
}

// UpdateEquipment locks the row, applies the patch and writes every column back.
func (s *Store) UpdateEquipment(ctx context.Context, id string, p gear.EquipmentPatch) (gear.Equipment, error) {
	var out gear.Equipment
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := scanEquipment(tx.QueryRowContext(ctx, `select `+equipmentCols+` from equipment e where e.id = $1 for update`, id))
		if err != nil {
			return mapErr(err)
		}
		next := p.Apply(cur)
		err = tx.QueryRowContext(ctx, `
			update equipment set name = $2, serial_number = $3, category = $4, department = $5, location = $6,
				purchase_date = $7, warranty_expiry = $8, status = $9, assigned_to_id = $10,
				maintenance_team_id = $11, updated_at = now()
			where id = $1
			returning updated_at
		`, id, next.Name, next.SerialNumber, next.Category, next.Department, next.Location, next.PurchaseDate,
			nullTime(next.WarrantyExpiry), next.Status, nullString(next.AssignedToID), nullString(next.MaintenanceTeamID),
		).Scan(&next.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		out = next
		return nil
	})
	return out, err
}

func (s *Store) DeleteEquipment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from equipment where id = $1`, id)
	if err != nil {
		err = mapErr(err)
		if errors.Is(err, gear.ErrInvalidReference) {
			return &gear.ConflictError{Field: gear.FieldRequests}
		}
		return err
	}
	return expectOne(res)
}

func (s *Store) EquipmentRequests(ctx context.Context, id string) ([]gear.EquipmentRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+requestCols+`, cu.id, cu.name, cu.email, au.id, au.name, au.email
		from maintenance_requests r
		join users cu on cu.id = r.created_by_id
		left join users au on au.id = r.assigned_to_id
		where r.equipment_id = $1
		order by r.created_at desc, r.id desc`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.EquipmentRequest{}
	for rows.Next() {
		var (
			rr                requestRow
			creator, assignee optUser
		)
		if err := rows.Scan(concat(rr.dest(), creator.dest(), assignee.dest())...); err != nil {
			return nil, err
		}
		out = append(out, gear.EquipmentRequest{
			MaintenanceRequest: rr.value(),
			CreatedBy:          creator.short(),
			AssignedTo:         assignee.short(),
		})
	}
	return out, rows.Err()
}

func (s *Store) CountEquipment(ctx context.Context, status *gear.EquipmentStatus) (int, error) {
	var n int
	var arg sql.NullString
	if status != nil {
		arg = sql.NullString{String: string(*status), Valid: true}
	}
	err := s.db.QueryRowContext(ctx, `select count(*) from equipment where $1::text is null or status = $1`, arg).Scan(&n)
	return n, err
}
