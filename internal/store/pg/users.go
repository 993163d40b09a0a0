package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"achievio.org/internal/users"
)

// Users implements users.Store on PostgreSQL.
type Users struct {
	db *sql.DB
}

var _ users.Store = (*Users)(nil)

const userColumns = `id, username, phone, email, password, points, active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*users.User, error) {
	var u users.User
	err := row.Scan(&u.ID, &u.Username, &u.Phone, &u.Email, &u.Password, &u.Points, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

func (s *Users) Create(ctx context.Context, u *users.User) error {
	err := s.db.QueryRowContext(ctx, `
		insert into users (username, phone, email, password, points, active)
		values ($1, $2, lower($3), $4, $5, $6)
		returning id, created_at, updated_at
	`, u.Username, u.Phone, u.Email, u.Password, u.Points, u.Active).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return users.ErrEmailConflict
	}
	return err
}

func (s *Users) Find(ctx context.Context, id int64) (*users.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1 and deleted_at is null`, id)
	return scanUser(row)
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where lower(email)=lower($1) and deleted_at is null`, email)
	return scanUser(row)
}

func (s *Users) List(ctx context.Context, page, limit int) (users.Page, error) {
	page, limit, offset := users.ClampPage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from users where deleted_at is null`).Scan(&total); err != nil {
		return users.Page{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where deleted_at is null order by created_at desc, id desc limit $1 offset $2`,
		limit, offset)
	if err != nil {
		return users.Page{}, err
	}
	defer rows.Close()

	items := make([]*users.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return users.Page{}, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return users.Page{}, err
	}
	return users.Page{Items: items, Page: page, Total: total, Pages: users.PageCount(total, limit)}, nil
}

func (s *Users) Update(ctx context.Context, id int64, upd users.Update) (*users.User, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Username != nil {
		add("username", *upd.Username)
	}
	if upd.Phone != nil {
		add("phone", *upd.Phone)
	}
	if upd.Email != nil {
		add("email", strings.ToLower(*upd.Email))
	}
	if upd.Password != nil {
		add("password", *upd.Password)
	}
	if upd.Points != nil {
		add("points", *upd.Points)
	}
	if upd.Active != nil {
		add("active", *upd.Active)
	}

	row := s.db.QueryRowContext(ctx,
		`update users set `+strings.Join(sets, ", ")+` where id=$1 and deleted_at is null returning `+userColumns,
		args...)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return nil, users.ErrEmailConflict
	}
	return u, err
}

func (s *Users) SoftDelete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`update users set deleted_at = now(), updated_at = now() where id=$1 and deleted_at is null`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

// CreditPoints adds delta to the user's balance.
func (s *Users) CreditPoints(ctx context.Context, id int64, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`update users set points = points + $2, updated_at = now() where id=$1 and deleted_at is null`, id, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}
