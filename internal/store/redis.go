package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mejango/rev-sim/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	if err := s.primary.CreateScenario(ctx, sc); err != nil {
		return err
	}
	s.cacheScenario(ctx, sc)
	return nil
}

func (s *CachedStore) UpdateScenario(ctx context.Context, sc *model.Scenario) error {
	if err := s.primary.UpdateScenario(ctx, sc); err != nil {
		return err
	}
	// Invalidate; next read re-populates with the fresh version.
	s.rdb.Del(ctx, scenarioKey(sc.ID))
	return nil
}

func (s *CachedStore) DeleteScenario(ctx context.Context, id string) error {
	if err := s.primary.DeleteScenario(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, scenarioKey(id))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	data, err := s.rdb.Get(ctx, scenarioKey(id)).Bytes()
	if err == nil {
		var sc model.Scenario
		if json.Unmarshal(data, &sc) == nil {
			return &sc, nil
		}
	}

	// Cache miss: read from primary.
	sc, err := s.primary.GetScenario(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheScenario(ctx, sc)
	return sc, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	return s.primary.ListScenarios(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cacheScenario(ctx context.Context, sc *model.Scenario) {
	if data, err := json.Marshal(sc); err == nil {
		s.rdb.Set(ctx, scenarioKey(sc.ID), data, s.ttl)
	}
}

func scenarioKey(id string) string { return fmt.Sprintf("scenario:%s", id) }
