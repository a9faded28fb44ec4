package store

import (
	"context"
	"sync"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

// MemoryStore is the in-process fallback backend, used when no durable
// store is configured. State lives for the process lifetime only.
type MemoryStore struct {
	mu     sync.Mutex
	leads  []types.Lead
	notifs []types.Notification
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AddLead(_ context.Context, lead types.Lead) (types.Lead, error) {
	lead.ID = NewID("lead")
	notifs := NotificationsFor(lead)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append([]types.Lead{lead}, s.leads...)
	s.notifs = append(notifs, s.notifs...)
	return lead, nil
}

func (s *MemoryStore) AddNotification(_ context.Context, n types.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifs = append([]types.Notification{n}, s.notifs...)
	return nil
}

func (s *MemoryStore) Leads(_ context.Context) ([]types.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Lead, len(s.leads))
	copy(out, s.leads)
	return out, nil
}

func (s *MemoryStore) Notifications(_ context.Context) ([]types.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Notification, len(s.notifs))
	copy(out, s.notifs)
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (types.Stats, error) {
	leads, err := s.Leads(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	return types.ComputeStats(leads), nil
}
