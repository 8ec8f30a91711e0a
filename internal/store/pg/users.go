package pg

import (
	"context"

	"gearguard.io/internal/gear"
)

func (s *Store) CreateUser(ctx context.Context, u gear.User) error {
	_, err := s.db.ExecContext(ctx, `
		insert into users (id, email, name, role, department, auth_provider, password_hash, created_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, nullif($7, ''), $8, $9)
	`, u.ID, u.Email, u.Name, u.Role, u.Department, u.AuthProvider, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UserByID(ctx context.Context, id string) (gear.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userCols+` from users u where u.id = $1`, id))
	return u, mapErr(err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (gear.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `select `+userCols+` from users u where u.email = $1`, email))
	return u, mapErr(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]gear.User, error) {
	rows, err := s.db.QueryContext(ctx, `select `+userCols+` from users u order by u.created_at, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []gear.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
