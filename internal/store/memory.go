package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// MemoryStore keeps listings in process memory. It backs the check command
// and tests; contents are lost on exit.
type MemoryStore struct {
	mu         sync.RWMutex
	listings   []model.Listing
	byExternal map[string]struct{}
	nextID     int64
	normalizer model.Normalizer
	logger     *slog.Logger
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(normalizer model.Normalizer, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		byExternal: make(map[string]struct{}),
		nextID:     1,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Save normalizes results and keeps those whose external id is new.
func (s *MemoryStore) Save(ctx context.Context, results []model.RawResult) ([]model.Listing, error) {
	return saveEach(ctx, results, s.normalizer, s.insert, s.logger)
}

func (s *MemoryStore) insert(_ context.Context, l model.Listing) (model.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byExternal[l.ExternalID]; ok {
		return model.Listing{}, model.ErrDuplicateKey
	}
	l.ID = s.nextID
	l.CreatedAt = time.Now().UTC()
	s.nextID++
	s.byExternal[l.ExternalID] = struct{}{}
	s.listings = append(s.listings, l)
	return l, nil
}

// GetAll returns copies of every listing in insertion order.
func (s *MemoryStore) GetAll(_ context.Context) ([]model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Listing, len(s.listings))
	copy(out, s.listings)
	return out, nil
}

// GetByID returns a copy of the listing, or model.ErrNotFound.
func (s *MemoryStore) GetByID(_ context.Context, id int64) (model.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// IDs are dense and start at 1.
	if id < 1 || id > int64(len(s.listings)) {
		return model.Listing{}, fmt.Errorf("listing %d: %w", id, model.ErrNotFound)
	}
	return s.listings[id-1], nil
}

// Count returns the number of stored listings.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
