package auth

import (
	"context"

	"achievio.org/internal/users"
)

// TokenStore is the persistence contract for the refresh-token ledger.
// Every mutation is a single atomic row operation; no call spans a
// multi-row transaction.
type TokenStore interface {
	// Create inserts a new unrevoked row and assigns rec.ID.
	Create(ctx context.Context, rec *TokenRecord) error
	// Find returns the row by id, ErrNotFound when absent or
	// soft-deleted.
	Find(ctx context.Context, id int64) (*TokenRecord, error)
	// MarkRevoked flips the row to revoked and stamps RevokedAt.
	// Revocation is monotonic; revoking twice is a no-op.
	MarkRevoked(ctx context.Context, id int64) error
	// MarkRevokedByUser revokes every row owned by userID.
	MarkRevokedByUser(ctx context.Context, userID int64) error
	// ListByUser pages through the rows owned by userID, newest
	// first, revoked rows included.
	ListByUser(ctx context.Context, userID int64, page, limit int) (TokenPage, error)
}

// UserDirectory is the narrow view of user persistence the service
// needs: lookup and creation, nothing else.
type UserDirectory interface {
	Create(ctx context.Context, u *users.User) error
	Find(ctx context.Context, id int64) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
}
