package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process concurrency safety.
// Used by tests and by DSN-less boots of the API.
type MemoryStore struct {
	mu    sync.RWMutex
	seq   int64
	byID  map[int64]*User
	email map[string]int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[int64]*User),
		email: make(map[string]int64),
	}
}

func (s *MemoryStore) Create(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.email[key]; ok {
		return ErrEmailConflict
	}
	s.seq++
	now := time.Now().UTC()
	u.ID = s.seq
	u.Email = key
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := *u
	s.byID[u.ID] = &cp
	s.email[key] = u.ID
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok || u.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.email[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	u := s.byID[id]
	if u == nil || u.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, page, limit int) (Page, error) {
	page, limit, offset := ClampPage(page, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	live := make([]*User, 0, len(s.byID))
	for _, u := range s.byID {
		if u.DeletedAt == nil {
			live = append(live, u)
		}
	}
	// Newest first, matching the relational store's ordering.
	sort.Slice(live, func(i, j int) bool {
		if !live[i].CreatedAt.Equal(live[j].CreatedAt) {
			return live[i].CreatedAt.After(live[j].CreatedAt)
		}
		return live[i].ID > live[j].ID
	})

	total := len(live)
	items := make([]*User, 0, limit)
	for i := offset; i < total && len(items) < limit; i++ {
		cp := *live[i]
		items = append(items, &cp)
	}
	return Page{Items: items, Page: page, Total: total, Pages: PageCount(total, limit)}, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, upd Update) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || u.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		key := strings.ToLower(strings.TrimSpace(*upd.Email))
		if other, ok := s.email[key]; ok && other != id {
			return nil, ErrEmailConflict
		}
		delete(s.email, u.Email)
		u.Email = key
		s.email[key] = id
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Password != nil {
		u.Password = *upd.Password
	}
	if upd.Points != nil {
		u.Points = *upd.Points
	}
	if upd.Active != nil {
		u.Active = *upd.Active
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	u.DeletedAt = &now
	delete(s.email, u.Email)
	return nil
}

// CreditPoints adds delta to the user's balance. Used by the
// achievements store when an award is recorded.
func (s *MemoryStore) CreditPoints(ctx context.Context, id int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok || u.DeletedAt != nil {
		return ErrNotFound
	}
	u.Points += delta
	u.UpdatedAt = time.Now().UTC()
	return nil
}
