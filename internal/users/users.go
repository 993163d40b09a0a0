// Package users owns the user entity and its persistence contract. The
// authentication core consumes a narrow read/create view of this
// package; the HTTP layer uses the full CRUD surface.
package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("users: not found")
	ErrEmailConflict = errors.New("users: email already registered")
)

// User is an account holder in the points program. Password holds the
// bcrypt hash, never plaintext, and is excluded from serialization.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Phone     string     `json:"phone"`
	Email     string     `json:"email"`
	Password  string     `json:"-"`
	Points    int        `json:"points"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"-"`
}

// Update carries optional field changes; nil means leave unchanged.
type Update struct {
	Username *string
	Phone    *string
	Email    *string
	Password *string
	Points   *int
	Active   *bool
}

// Page is one page of a listing.
type Page struct {
	Items []*User `json:"items"`
	Page  int     `json:"page"`
	Total int     `json:"total"`
	Pages int     `json:"pages"`
}

// Store manages user persistence. Soft-deleted rows are invisible to
// every lookup.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, page, limit int) (Page, error)
	Update(ctx context.Context, id int64, upd Update) (*User, error)
	SoftDelete(ctx context.Context, id int64) error
}

// ClampPage normalizes pagination input the way every listing endpoint
// expects it: 1-based page, limit within [1,100].
func ClampPage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	offset := (page - 1) * limit
	return page, limit, offset
}

// PageCount returns the number of pages a listing spans.
func PageCount(total, limit int) int {
	if total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
