// Package achievements manages the badge catalog and the awards that
// tie badges to user accounts.
package achievements

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an achievement or award does not exist.
	ErrNotFound = errors.New("achievements: not found")
	// ErrAlreadyAwarded is returned when a user already holds an achievement.
	ErrAlreadyAwarded = errors.New("achievements: already awarded")
)

// Achievement is a badge in the catalog. Special achievements are
// hand-granted and never awarded automatically.
type Achievement struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Points      int        `json:"points"`
	Special     bool       `json:"special"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"-"`
}

// Award links a user to an achievement they earned.
type Award struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	AchievementID int64     `json:"achievementId"`
	AchievedAt    time.Time `json:"achievedAt"`
}

// Update carries partial changes to an achievement. Nil fields are
// left untouched.
type Update struct {
	Title       *string
	Description *string
	Points      *int
	Special     *bool
}

// Page is one slice of the catalog.
type Page struct {
	Items []Achievement `json:"items"`
	Page  int           `json:"page"`
	Total int           `json:"total"`
	Pages int           `json:"pages"`
}

// Store persists the catalog and its awards. Award must atomically
// record the award and credit the achievement's points to the user.
type Store interface {
	Create(ctx context.Context, a *Achievement) error
	Find(ctx context.Context, id int64) (*Achievement, error)
	List(ctx context.Context, page, limit int) (Page, error)
	Update(ctx context.Context, id int64, upd Update) (*Achievement, error)
	SoftDelete(ctx context.Context, id int64) error

	Award(ctx context.Context, userID, achievementID int64) (*Award, error)
	ListAwards(ctx context.Context, userID int64) ([]Award, error)
}
