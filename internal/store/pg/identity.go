package pg

import (
	"context"
	"database/sql"
	"errors"

	"hrcore.io/internal/auth"
)

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, username, email, password_hash, active, company_id, manager_id, created_at, updated_at`

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	row := s.db.QueryRowContext(ctx, `
		insert into users (username, email, password_hash, active, company_id)
		values ($1, $2, $3, $4, $5)
		returning id, created_at, updated_at
	`, u.Username, u.Email, u.PasswordHash, u.Active, u.CompanyID)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var (
		u         auth.User
		companyID sql.NullInt64
		managerID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active,
		&companyID, &managerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if companyID.Valid {
		u.CompanyID = &companyID.Int64
	}
	if managerID.Valid {
		u.ManagerID = &managerID.Int64
	}
	return &u, nil
}

func (s *userStore) Find(ctx context.Context, id int64) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id))
}

func (s *userStore) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where username=$1`, username))
}

func (s *userStore) RoleNames(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		select r.name
		from user_roles ur
		join roles r on r.id = ur.role_id
		where ur.user_id = $1
		order by r.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *userStore) SetManager(ctx context.Context, userID int64, managerID *int64) error {
	res, err := s.db.ExecContext(ctx,
		`update users set manager_id=$2, updated_at=now() where id=$1`, userID, managerID)
	if err != nil {
		return mapWriteErr(err)
	}
	return requireRow(res)
}

func (s *userStore) SetActive(ctx context.Context, userID int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set active=$2, updated_at=now() where id=$1`, userID, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) ManagerOf(ctx context.Context, userID int64) (*int64, error) {
	var managerID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`select manager_id from users where id=$1`, userID).Scan(&managerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !managerID.Valid {
		return nil, nil
	}
	return &managerID.Int64, nil
}

// Company store ------------------------------------------------------------

type companyStore struct{ db *sql.DB }

func (s *companyStore) Create(ctx context.Context, c *auth.Company) error {
	row := s.db.QueryRowContext(ctx, `
		insert into companies (name, active)
		values ($1, $2)
		returning id, created_at, updated_at
	`, c.Name, c.Active)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return mapWriteErr(err)
	}
	return nil
}

func (s *companyStore) Find(ctx context.Context, id int64) (*auth.Company, error) {
	var c auth.Company
	err := s.db.QueryRowContext(ctx, `
		select id, name, active, created_at, updated_at from companies where id=$1
	`, id).Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *companyStore) List(ctx context.Context) ([]*auth.Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, name, active, created_at, updated_at from companies order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Company
	for rows.Next() {
		var c auth.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// Role store ---------------------------------------------------------------

type roleStore struct{ db *sql.DB }

func (s *roleStore) Ensure(ctx context.Context, roles []auth.Role) error {
	for _, role := range roles {
		if _, err := s.db.ExecContext(ctx, `
			insert into roles (name, global) values ($1, $2)
			on conflict (name) do nothing
		`, role.Name, role.Global); err != nil {
			return err
		}
	}
	return nil
}

func (s *roleStore) List(ctx context.Context) ([]auth.Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, global, created_at from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		var r auth.Role
		if err := rows.Scan(&r.ID, &r.Name, &r.Global, &r.CreatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *roleStore) FindByName(ctx context.Context, name string) (*auth.Role, error) {
	var r auth.Role
	err := s.db.QueryRowContext(ctx,
		`select id, name, global, created_at from roles where name=$1`, name).
		Scan(&r.ID, &r.Name, &r.Global, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *roleStore) Assign(ctx context.Context, userID, roleID int64) error {
	_, err := s.db.ExecContext(ctx, `
		insert into user_roles (user_id, role_id) values ($1, $2)
		on conflict (user_id, role_id) do nothing
	`, userID, roleID)
	return mapWriteErr(err)
}

func (s *roleStore) Unassign(ctx context.Context, userID, roleID int64) error {
	res, err := s.db.ExecContext(ctx,
		`delete from user_roles where user_id=$1 and role_id=$2`, userID, roleID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
