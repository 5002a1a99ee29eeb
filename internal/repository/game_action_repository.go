package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/virtulab/virtulab-api/internal/models"
)

// GameActionRepository is the append-only audit log of processed actions.
type GameActionRepository struct {
	db *sqlx.DB
}

// NewGameActionRepository creates a new game action repository.
func NewGameActionRepository(db *sqlx.DB) *GameActionRepository {
	return &GameActionRepository{db: db}
}

// Append inserts one action row. Rows are never updated or deleted.
func (r *GameActionRepository) Append(ctx context.Context, action *models.GameAction) error {
	if action.ID == "" {
		action.ID = uuid.NewString()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO game_actions
        (id, simulation_id, student_id, kind, equipment, target, result, score_delta, created_at)
        VALUES (:id, :simulation_id, :student_id, :kind, :equipment, :target, :result, :score_delta, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, action); err != nil {
		return fmt.Errorf("insert game action: %w", err)
	}
	return nil
}

// ListBySimulation returns a simulation's action log in chronological order.
func (r *GameActionRepository) ListBySimulation(ctx context.Context, simulationID string) ([]models.GameAction, error) {
	const query = `SELECT id, simulation_id, student_id, kind, equipment, target, result, score_delta, created_at
        FROM game_actions WHERE simulation_id = $1 ORDER BY created_at ASC`
	actions := []models.GameAction{}
	if err := r.db.SelectContext(ctx, &actions, query, simulationID); err != nil {
		return nil, fmt.Errorf("list game actions: %w", err)
	}
	return actions, nil
}
