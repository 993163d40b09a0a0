// Package stream fans achievement awards out to live subscribers.
package stream

import (
	"context"
	"sync"
	"time"
)

// AwardEvent describes one achievement being granted to a user.
type AwardEvent struct {
	UserID        int64     `json:"userId"`
	AchievementID int64     `json:"achievementId"`
	Title         string    `json:"title"`
	Points        int       `json:"points"`
	Special       bool      `json:"special"`
	Timestamp     time.Time `json:"timestamp"`
}

// Stream fan-outs award events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan AwardEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan AwardEvent)}
}

// Subscribe registers a subscriber and returns a channel which will
// receive events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan AwardEvent {
	ch := make(chan AwardEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt AwardEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
