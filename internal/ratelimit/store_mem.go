package ratelimit

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"travelguide.io/guestbook/internal/domain"
)

// MemStore keeps windows in a bounded in-process LRU. Entries are evicted
// after ttl or when capacity is exceeded; an evicted window simply restarts.
type MemStore struct {
	Data *expirable.LRU[string, domain.RateWindow]
}

func NewMemStore(capacity int, ttl time.Duration) MemStore {
	return MemStore{
		Data: expirable.NewLRU[string, domain.RateWindow](capacity, nil, ttl),
	}
}

func (s MemStore) Get(ctx context.Context, identity string, kind domain.ActionKind) (*domain.RateWindow, error) {
	w, ok := s.Data.Get(windowKey(identity, kind))
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s MemStore) Put(ctx context.Context, w domain.RateWindow, expiresAt time.Time) error {
	s.Data.Add(windowKey(w.Identity, w.ActionKind), w)
	return nil
}

func (s MemStore) Delete(ctx context.Context, identity string, kind domain.ActionKind) error {
	s.Data.Remove(windowKey(identity, kind))
	return nil
}
