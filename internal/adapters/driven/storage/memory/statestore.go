// Package memory provides an in-memory driven.StateStore for tests and
// throwaway deployments. State does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/driveroute/internal/core/domain"
	"github.com/custodia-labs/driveroute/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore is an in-memory implementation of driven.StateStore.
type StateStore struct {
	mu      sync.RWMutex
	channel *domain.WatchChannel
	cursor  string
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// GetChannel returns the active channel.
func (s *StateStore) GetChannel(_ context.Context) (*domain.WatchChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.channel == nil {
		return nil, domain.ErrNotFound
	}
	ch := *s.channel
	return &ch, nil
}

// SaveChannel replaces the active channel.
func (s *StateStore) SaveChannel(_ context.Context, ch domain.WatchChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = &ch
	return nil
}

// ClearChannel removes the active channel.
func (s *StateStore) ClearChannel(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = nil
	return nil
}

// GetCursor returns the persisted cursor token.
func (s *StateStore) GetCursor(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor == "" {
		return "", domain.ErrNotFound
	}
	return s.cursor, nil
}

// SaveCursor replaces the cursor token.
func (s *StateStore) SaveCursor(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = token
	return nil
}

// Close is a no-op.
func (s *StateStore) Close() error {
	return nil
}
