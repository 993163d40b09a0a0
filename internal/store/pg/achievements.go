package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"achievio.org/internal/achievements"
	"achievio.org/internal/users"
)

// Achievements implements the catalog and its awards on PostgreSQL.
type Achievements struct {
	db *sql.DB
}

var _ achievements.Store = (*Achievements)(nil)

const achievementColumns = `id, title, description, points, special, created_at, updated_at`

func scanAchievement(row interface{ Scan(...any) error }) (*achievements.Achievement, error) {
	var a achievements.Achievement
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Points, &a.Special, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, achievements.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Achievements) Create(ctx context.Context, a *achievements.Achievement) error {
	return s.db.QueryRowContext(ctx, `
		insert into achievements (title, description, points, special)
		values ($1, $2, $3, $4)
		returning id, created_at, updated_at
	`, a.Title, a.Description, a.Points, a.Special).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (s *Achievements) Find(ctx context.Context, id int64) (*achievements.Achievement, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+achievementColumns+` from achievements where id=$1 and deleted_at is null`, id)
	return scanAchievement(row)
}

func (s *Achievements) List(ctx context.Context, page, limit int) (achievements.Page, error) {
	page, limit, offset := users.ClampPage(page, limit)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`select count(*) from achievements where deleted_at is null`).Scan(&total); err != nil {
		return achievements.Page{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select `+achievementColumns+` from achievements where deleted_at is null order by id limit $1 offset $2`,
		limit, offset)
	if err != nil {
		return achievements.Page{}, err
	}
	defer rows.Close()

	items := make([]achievements.Achievement, 0, limit)
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return achievements.Page{}, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return achievements.Page{}, err
	}
	return achievements.Page{Items: items, Page: page, Total: total, Pages: users.PageCount(total, limit)}, nil
}

func (s *Achievements) Update(ctx context.Context, id int64, upd achievements.Update) (*achievements.Achievement, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Points != nil {
		add("points", *upd.Points)
	}
	if upd.Special != nil {
		add("special", *upd.Special)
	}

	row := s.db.QueryRowContext(ctx,
		`update achievements set `+strings.Join(sets, ", ")+` where id=$1 and deleted_at is null returning `+achievementColumns,
		args...)
	return scanAchievement(row)
}

func (s *Achievements) SoftDelete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`update achievements set deleted_at = now(), updated_at = now() where id=$1 and deleted_at is null`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return achievements.ErrNotFound
	}
	return nil
}

// Award records the award and credits its points in one transaction,
// so a crashed credit never leaves a half-applied award behind.
func (s *Achievements) Award(ctx context.Context, userID, achievementID int64) (*achievements.Award, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var points int
	err = tx.QueryRowContext(ctx,
		`select points from achievements where id=$1 and deleted_at is null`, achievementID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, achievements.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	award := &achievements.Award{UserID: userID, AchievementID: achievementID}
	err = tx.QueryRowContext(ctx, `
		insert into user_achievements (user_id, achievement_id)
		values ($1, $2)
		returning id, achieved_at
	`, userID, achievementID).Scan(&award.ID, &award.AchievedAt)
	if isUniqueViolation(err) {
		return nil, achievements.ErrAlreadyAwarded
	}
	if err != nil {
		return nil, err
	}

	if points != 0 {
		if _, err := tx.ExecContext(ctx,
			`update users set points = points + $2, updated_at = now() where id=$1 and deleted_at is null`,
			userID, points); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return award, nil
}

func (s *Achievements) ListAwards(ctx context.Context, userID int64) ([]achievements.Award, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, achievement_id, achieved_at
		from user_achievements where user_id=$1 order by id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]achievements.Award, 0)
	for rows.Next() {
		var aw achievements.Award
		if err := rows.Scan(&aw.ID, &aw.UserID, &aw.AchievementID, &aw.AchievedAt); err != nil {
			return nil, err
		}
		out = append(out, aw)
	}
	return out, rows.Err()
}
