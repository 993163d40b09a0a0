package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"achievio.org/internal/users"
)

// MemoryStore implements TokenStore with in-process concurrency
// safety. Used by tests and by DSN-less boots of the API.
type MemoryStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[int64]*TokenRecord
}

var _ TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[int64]*TokenRecord)}
}

func (s *MemoryStore) Create(ctx context.Context, rec *TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now().UTC()
	rec.ID = s.seq
	rec.Revoked = false
	rec.RevokedAt = nil
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	s.rows[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id int64) (*TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.rows[id]
	if !ok || rec.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) MarkRevoked(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.rows[id]
	if !ok || rec.DeletedAt != nil {
		return ErrNotFound
	}
	if rec.Revoked {
		return nil
	}
	now := time.Now().UTC()
	rec.Revoked = true
	rec.RevokedAt = &now
	rec.UpdatedAt = now
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, userID int64, page, limit int) (TokenPage, error) {
	page, limit, offset := users.ClampPage(page, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]*TokenRecord, 0, len(s.rows))
	for _, rec := range s.rows {
		if rec.UserID == userID && rec.DeletedAt == nil {
			owned = append(owned, rec)
		}
	}
	// Newest first, matching the relational store's ordering.
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	total := len(owned)
	items := make([]*TokenRecord, 0, limit)
	for i := offset; i < total && len(items) < limit; i++ {
		cp := *owned[i]
		items = append(items, &cp)
	}
	return TokenPage{Items: items, Page: page, Total: total, Pages: users.PageCount(total, limit)}, nil
}

func (s *MemoryStore) MarkRevokedByUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, rec := range s.rows {
		if rec.UserID != userID || rec.DeletedAt != nil || rec.Revoked {
			continue
		}
		rec.Revoked = true
		rec.RevokedAt = &now
		rec.UpdatedAt = now
	}
	return nil
}
