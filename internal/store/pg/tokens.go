package pg

import (
	"context"
	"database/sql"
	"errors"

	"achievio.org/internal/auth"
	"achievio.org/internal/users"
)

// Tokens implements the refresh-token ledger on PostgreSQL.
type Tokens struct {
	db *sql.DB
}

var _ auth.TokenStore = (*Tokens)(nil)

func (s *Tokens) Create(ctx context.Context, rec *auth.TokenRecord) error {
	return s.db.QueryRowContext(ctx, `
		insert into refresh_tokens (user_id, token_hash, expires_at)
		values ($1, $2, $3)
		returning id, created_at, updated_at
	`, rec.UserID, rec.TokenHash, rec.ExpiresAt).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (s *Tokens) Find(ctx context.Context, id int64) (*auth.TokenRecord, error) {
	var rec auth.TokenRecord
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, token_hash, revoked, revoked_at, expires_at, created_at, updated_at
		from refresh_tokens where id=$1 and deleted_at is null
	`, id).Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.Revoked, &rec.RevokedAt,
		&rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Tokens) ListByUser(ctx context.Context, userID int64, page, limit int) (auth.TokenPage, error) {
	page, limit, offset := users.ClampPage(page, limit)

	var total int
	err := s.db.QueryRowContext(ctx, `
		select count(*) from refresh_tokens where user_id=$1 and deleted_at is null
	`, userID).Scan(&total)
	if err != nil {
		return auth.TokenPage{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, token_hash, revoked, revoked_at, expires_at, created_at, updated_at
		from refresh_tokens where user_id=$1 and deleted_at is null
		order by created_at desc, id desc
		limit $2 offset $3
	`, userID, limit, offset)
	if err != nil {
		return auth.TokenPage{}, err
	}
	defer rows.Close()

	items := make([]*auth.TokenRecord, 0, limit)
	for rows.Next() {
		var rec auth.TokenRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TokenHash, &rec.Revoked, &rec.RevokedAt,
			&rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return auth.TokenPage{}, err
		}
		items = append(items, &rec)
	}
	if err := rows.Err(); err != nil {
		return auth.TokenPage{}, err
	}
	return auth.TokenPage{Items: items, Page: page, Total: total, Pages: users.PageCount(total, limit)}, nil
}

func (s *Tokens) MarkRevoked(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		update refresh_tokens
		set revoked = true, revoked_at = coalesce(revoked_at, now()), updated_at = now()
		where id=$1 and deleted_at is null
	`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Tokens) MarkRevokedByUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		update refresh_tokens
		set revoked = true, revoked_at = coalesce(revoked_at, now()), updated_at = now()
		where user_id=$1 and revoked = false and deleted_at is null
	`, userID)
	return err
}
