// Package pg implements the persistence interfaces on PostgreSQL via
// database/sql and the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgErrUniqueViolation = "23505"
)

type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle, mainly for tests.
func NewWithDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Users returns the user persistence view of the store.
func (s *Store) Users() *Users { return &Users{db: s.db} }

// Tokens returns the refresh-token ledger view of the store.
func (s *Store) Tokens() *Tokens { return &Tokens{db: s.db} }

// Achievements returns the catalog and award view of the store.
func (s *Store) Achievements() *Achievements { return &Achievements{db: s.db} }

// EnsureSchema creates the tables when they do not exist yet. Kept
// idempotent so the binary can run it on every start.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`create table if not exists users (
			id bigserial primary key,
			username text not null,
			phone text not null default '',
			email text not null,
			password text not null,
			points integer not null default 0,
			active boolean not null default true,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now(),
			deleted_at timestamptz
		)`,
		`create unique index if not exists users_email_idx on users(lower(email)) where deleted_at is null`,
		`create table if not exists refresh_tokens (
			id bigserial primary key,
			user_id bigint not null references users(id),
			token_hash text not null,
			revoked boolean not null default false,
			revoked_at timestamptz,
			expires_at timestamptz not null,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now(),
			deleted_at timestamptz
		)`,
		`create index if not exists refresh_tokens_user_idx on refresh_tokens(user_id)`,
		`create table if not exists achievements (
			id bigserial primary key,
			title text not null,
			description text not null default '',
			points integer not null default 0,
			special boolean not null default false,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now(),
			deleted_at timestamptz
		)`,
		`create table if not exists user_achievements (
			id bigserial primary key,
			user_id bigint not null references users(id),
			achievement_id bigint not null references achievements(id),
			achieved_at timestamptz not null default now(),
			unique (user_id, achievement_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
