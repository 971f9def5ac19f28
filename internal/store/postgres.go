package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mejango/rev-sim/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Events and stages are stored as JSONB in the scenario wire format, so
// decimal values round-trip exactly as strings.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc *model.Scenario) error {
	events, stages, err := marshalScenarioBody(sc)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO scenarios (id, name, description, narrative, events, stages, created_at)
		 VALUES ($1, $2, $3, $4, $5::JSONB, $6::JSONB, $7)`,
		sc.ID, sc.Name, sc.Description, sc.Narrative, events, stages, sc.CreatedAt,
	)
	return err
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*model.Scenario, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, narrative, events::TEXT, stages::TEXT, created_at
		 FROM scenarios WHERE id = $1`, id)

	sc, err := scanScenario(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get scenario %s: %w", id, err)
	}
	return sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, narrative, events::TEXT, stages::TEXT, created_at
		 FROM scenarios ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []model.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *sc)
	}
	return scenarios, rows.Err()
}

func (s *PostgresStore) UpdateScenario(ctx context.Context, sc *model.Scenario) error {
	events, stages, err := marshalScenarioBody(sc)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE scenarios
		 SET name = $2, description = $3, narrative = $4,
		     events = $5::JSONB, stages = $6::JSONB
		 WHERE id = $1`,
		sc.ID, sc.Name, sc.Description, sc.Narrative, events, stages,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, sc.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteScenario(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func marshalScenarioBody(sc *model.Scenario) (events, stages []byte, err error) {
	events, err = json.Marshal(sc.Events)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal events for %s: %w", sc.ID, err)
	}
	stages, err = json.Marshal(sc.Stages)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal stages for %s: %w", sc.ID, err)
	}
	return events, stages, nil
}

// scanScenario reads one scenario row.
func scanScenario(row pgx.Row) (*model.Scenario, error) {
	var sc model.Scenario
	var eventsJSON, stagesJSON string

	if err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Narrative,
		&eventsJSON, &stagesJSON, &sc.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(eventsJSON), &sc.Events); err != nil {
		return nil, fmt.Errorf("unmarshal events for %s: %w", sc.ID, err)
	}
	if err := json.Unmarshal([]byte(stagesJSON), &sc.Stages); err != nil {
		return nil, fmt.Errorf("unmarshal stages for %s: %w", sc.ID, err)
	}
	return &sc, nil
}
