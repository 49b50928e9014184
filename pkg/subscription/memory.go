package subscription

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store implementation and the default backend.
// Operations never fail.
type MemoryStore struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add inserts a new subscription
func (s *MemoryStore) Add(ctx context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub.Clone())
	return nil
}

// Deactivate flips the first active subscription for donorID inactive
func (s *MemoryStore) Deactivate(ctx context.Context, donorID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.DonorID == donorID && sub.Active {
			sub.Active = false
			return true, nil
		}
	}
	return false, nil
}

// ListActive returns copies of all active subscriptions in insertion order
func (s *MemoryStore) ListActive(ctx context.Context) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.Active {
			out = append(out, sub.Clone())
		}
	}
	return out, nil
}

// ListAll returns copies of every subscription in insertion order
func (s *MemoryStore) ListAll(ctx context.Context) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub.Clone())
	}
	return out, nil
}

// MarkCharged advances LastCharged on the identified subscription
func (s *MemoryStore) MarkCharged(ctx context.Context, donorID string, createdAt, chargedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.DonorID != donorID || !sub.CreatedAt.Equal(createdAt) {
			continue
		}
		// LastCharged is monotonically non-decreasing.
		if sub.LastCharged == nil || !chargedAt.Before(*sub.LastCharged) {
			t := chargedAt
			sub.LastCharged = &t
		}
		return true, nil
	}
	return false, nil
}
