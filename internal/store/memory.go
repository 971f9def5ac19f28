package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mejango/rev-sim/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// single-user development runs. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	scenarios map[string]*model.Scenario
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios: make(map[string]*model.Scenario),
	}
}

func (s *MemoryStore) CreateScenario(_ context.Context, sc *model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenarios[sc.ID]; ok {
		return fmt.Errorf("%w: id %s", ErrDuplicate, sc.ID)
	}
	for _, existing := range s.scenarios {
		if existing.Name == sc.Name {
			return fmt.Errorf("%w: name %q", ErrDuplicate, sc.Name)
		}
	}

	// Store a copy to avoid external mutation.
	s.scenarios[sc.ID] = copyScenario(sc)
	return nil
}

func (s *MemoryStore) GetScenario(_ context.Context, id string) (*model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyScenario(sc), nil
}

func (s *MemoryStore) ListScenarios(_ context.Context) ([]model.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scenarios := make([]model.Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		scenarios = append(scenarios, *copyScenario(sc))
	}
	sort.Slice(scenarios, func(i, j int) bool {
		if scenarios[i].CreatedAt.Equal(scenarios[j].CreatedAt) {
			return scenarios[i].Name < scenarios[j].Name
		}
		return scenarios[i].CreatedAt.After(scenarios[j].CreatedAt)
	})
	return scenarios, nil
}

func (s *MemoryStore) UpdateScenario(_ context.Context, sc *model.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenarios[sc.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sc.ID)
	}
	s.scenarios[sc.ID] = copyScenario(sc)
	return nil
}

func (s *MemoryStore) DeleteScenario(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenarios[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.scenarios, id)
	return nil
}

// copyScenario deep-copies the scenario so callers and the store never
// share event slices or split maps.
func copyScenario(sc *model.Scenario) *model.Scenario {
	c := *sc
	c.Events = append([]model.Event(nil), sc.Events...)
	c.Stages = make([]model.StageDefinition, len(sc.Stages))
	for i, def := range sc.Stages {
		d := def
		d.Splits = make(map[string]decimal.Decimal, len(def.Splits))
		for k, v := range def.Splits {
			d.Splits[k] = v
		}
		c.Stages[i] = d
	}
	return &c
}
