package commandplan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lustrefs/manager/pkg/cperrors"
)

// PlanStore is the persistence contract the executor and the api.Manager
// depend on, narrow enough to substitute with a fake in tests that have
// no database available. *Store is its production implementation.
type PlanStore interface {
	Insert(ctx context.Context, plan Plan) (int64, error)
	Update(ctx context.Context, id int64, plan Plan, state State) error
	Get(ctx context.Context, id int64) (Plan, State, error)
}

// Store persists command plans to the command_plan table (spec.md section
// 6: `command_plan(id: int, plan: json, state: enum)`), backed by a
// bounded jackc/pgx/v5 connection pool — the stack grounded on
// bartekus-stagecraft, the only repo in the retrieved pack carrying a
// Postgres dependency.
type Store struct {
	pool *pgxpool.Pool
}

var _ PlanStore = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Insert persists a freshly compiled plan with state Pending and returns
// its assigned id.
func (s *Store) Insert(ctx context.Context, plan Plan) (int64, error) {
	raw, err := json.Marshal(plan)
	if err != nil {
		return 0, cperrors.NewPersistenceError(fmt.Errorf("marshal plan: %w", err))
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO command_plan (plan, state) VALUES ($1, $2) RETURNING id`,
		json.RawMessage(raw), Pending.String(),
	).Scan(&id)
	if err != nil {
		return 0, cperrors.NewPersistenceError(fmt.Errorf("insert command_plan: %w", err))
	}
	return id, nil
}

// Update overwrites the persisted plan and rolled-up state for id.
func (s *Store) Update(ctx context.Context, id int64, plan Plan, state State) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return cperrors.NewPersistenceError(fmt.Errorf("marshal plan: %w", err))
	}

	_, err = s.pool.Exec(ctx,
		`UPDATE command_plan SET plan = $1, state = $2 WHERE id = $3`,
		json.RawMessage(raw), state.String(), id,
	)
	if err != nil {
		return cperrors.NewPersistenceError(fmt.Errorf("update command_plan %d: %w", id, err))
	}
	return nil
}

// Get loads a persisted plan and its rolled-up state, for query(command_id)
// (spec.md section 6).
func (s *Store) Get(ctx context.Context, id int64) (Plan, State, error) {
	var raw json.RawMessage
	var stateName string
	err := s.pool.QueryRow(ctx,
		`SELECT plan, state FROM command_plan WHERE id = $1`, id,
	).Scan(&raw, &stateName)
	if err != nil {
		return nil, 0, cperrors.NewPersistenceError(fmt.Errorf("get command_plan %d: %w", id, err))
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, 0, cperrors.NewPersistenceError(fmt.Errorf("unmarshal plan %d: %w", id, err))
	}
	return plan, parseState(stateName), nil
}

func parseState(name string) State {
	switch name {
	case "Pending":
		return Pending
	case "Running":
		return Running
	case "Completed":
		return Completed
	case "Cancelled":
		return Cancelled
	case "Errored":
		return Errored
	default:
		return Pending
	}
}
