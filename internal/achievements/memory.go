package achievements

import (
	"context"
	"sort"
	"sync"
	"time"

	"achievio.org/internal/users"
)

// PointsCreditor credits award points to a user balance.
type PointsCreditor interface {
	CreditPoints(ctx context.Context, userID int64, delta int) error
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu       sync.RWMutex
	seq      int64
	awardSeq int64
	rows     map[int64]*Achievement
	awards   map[int64]*Award
	credits  PointsCreditor
}

// NewMemoryStore returns an empty store. Awards credit their points
// through the given creditor, typically the user store.
func NewMemoryStore(credits PointsCreditor) *MemoryStore {
	return &MemoryStore{
		rows:    make(map[int64]*Achievement),
		awards:  make(map[int64]*Award),
		credits: credits,
	}
}

func (s *MemoryStore) Create(ctx context.Context, a *Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now().UTC()
	a.ID = s.seq
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	s.rows[a.ID] = &cp
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, id int64) (*Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.rows[id]
	if !ok || a.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) List(ctx context.Context, page, limit int) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Achievement, 0, len(s.rows))
	for _, a := range s.rows {
		if a.DeletedAt != nil {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	page, limit, offset := users.ClampPage(page, limit)
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return Page{
		Items: all[offset:end],
		Page:  page,
		Total: total,
		Pages: users.PageCount(total, limit),
	}, nil
}

func (s *MemoryStore) Update(ctx context.Context, id int64, upd Update) (*Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok || a.DeletedAt != nil {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		a.Title = *upd.Title
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.Points != nil {
		a.Points = *upd.Points
	}
	if upd.Special != nil {
		a.Special = *upd.Special
	}
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) SoftDelete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.rows[id]
	if !ok || a.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now().UTC()
	a.DeletedAt = &now
	return nil
}

func (s *MemoryStore) Award(ctx context.Context, userID, achievementID int64) (*Award, error) {
	s.mu.Lock()
	a, ok := s.rows[achievementID]
	if !ok || a.DeletedAt != nil {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	for _, aw := range s.awards {
		if aw.UserID == userID && aw.AchievementID == achievementID {
			s.mu.Unlock()
			return nil, ErrAlreadyAwarded
		}
	}
	s.awardSeq++
	award := &Award{
		ID:            s.awardSeq,
		UserID:        userID,
		AchievementID: achievementID,
		AchievedAt:    time.Now().UTC(),
	}
	s.awards[award.ID] = award
	points := a.Points
	s.mu.Unlock()

	// Credit outside the lock: the creditor takes its own lock.
	if s.credits != nil && points != 0 {
		if err := s.credits.CreditPoints(ctx, userID, points); err != nil {
			s.mu.Lock()
			delete(s.awards, award.ID)
			s.mu.Unlock()
			return nil, err
		}
	}
	cp := *award
	return &cp, nil
}

func (s *MemoryStore) ListAwards(ctx context.Context, userID int64) ([]Award, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Award, 0)
	for _, aw := range s.awards {
		if aw.UserID == userID {
			out = append(out, *aw)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
