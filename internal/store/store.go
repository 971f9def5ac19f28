// Package store defines the persistence interface for scenarios.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing and single-user runs).
package store

import (
	"context"
	"errors"

	"github.com/mejango/rev-sim/internal/model"
)

var (
	// ErrNotFound is returned when a scenario does not exist.
	ErrNotFound = errors.New("store: scenario not found")

	// ErrDuplicate is returned when a scenario ID or name already exists.
	ErrDuplicate = errors.New("store: scenario already exists")
)

// Store persists scenarios: event logs plus stage timelines under a name.
// Computed ledger states are never stored — they are replayed on demand.
type Store interface {
	// CreateScenario persists a new scenario.
	CreateScenario(ctx context.Context, s *model.Scenario) error

	// GetScenario retrieves a scenario by its ID.
	GetScenario(ctx context.Context, id string) (*model.Scenario, error)

	// ListScenarios returns all scenarios, newest first.
	ListScenarios(ctx context.Context) ([]model.Scenario, error)

	// UpdateScenario replaces an existing scenario's contents.
	UpdateScenario(ctx context.Context, s *model.Scenario) error

	// DeleteScenario removes a scenario by its ID.
	DeleteScenario(ctx context.Context, id string) error
}
