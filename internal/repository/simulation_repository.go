package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

// SimulationRepository handles simulation document persistence. The lab,
// game config, state, and AI metadata live in JSONB columns; scalar columns
// exist for filtering and listing.
type SimulationRepository struct {
	db *sqlx.DB
}

// NewSimulationRepository creates a new simulation repository.
func NewSimulationRepository(db *sqlx.DB) *SimulationRepository {
	return &SimulationRepository{db: db}
}

// Create inserts a new simulation after integrity repair.
func (r *SimulationRepository) Create(ctx context.Context, sim *models.Simulation) error {
	repairLab(sim)
	if sim.ID == "" {
		sim.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sim.CreatedAt.IsZero() {
		sim.CreatedAt = now
	}
	sim.UpdatedAt = now
	sim.Version = 1
	const query = `INSERT INTO simulations
        (id, student_id, title, description, prompt, subject, level, experiment_type, estimated_duration, difficulty_tier,
         lab, game_config, state, ai_meta, version, created_at, updated_at)
        VALUES (:id, :student_id, :title, :description, :prompt, :subject, :level, :experiment_type, :estimated_duration, :difficulty_tier,
         :lab, :game_config, :state, :ai_meta, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sim); err != nil {
		return fmt.Errorf("insert simulation: %w", err)
	}
	return nil
}

// FindByID loads one simulation. Returns sql.ErrNoRows when absent.
func (r *SimulationRepository) FindByID(ctx context.Context, id string) (*models.Simulation, error) {
	const query = `SELECT id, student_id, title, description, prompt, subject, level, experiment_type, estimated_duration, difficulty_tier,
        lab, game_config, state, ai_meta, version, created_at, updated_at
        FROM simulations WHERE id = $1`
	var sim models.Simulation
	if err := r.db.GetContext(ctx, &sim, query, id); err != nil {
		return nil, err
	}
	return &sim, nil
}

// Save persists a mutated simulation guarded by an optimistic version check.
// Concurrent writers lose with a conflict instead of silently overwriting
// each other. The lab invariant is repaired before any write reaches disk.
func (r *SimulationRepository) Save(ctx context.Context, sim *models.Simulation) error {
	repairLab(sim)
	sim.UpdatedAt = time.Now().UTC()
	const query = `UPDATE simulations SET
        title = :title, description = :description, experiment_type = :experiment_type,
        estimated_duration = :estimated_duration, difficulty_tier = :difficulty_tier,
        lab = :lab, game_config = :game_config, state = :state,
        version = version + 1, updated_at = :updated_at
        WHERE id = :id AND version = :version`
	result, err := r.db.NamedExecContext(ctx, query, sim)
	if err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update simulation: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrConflict, "simulation was modified concurrently, retry")
	}
	sim.Version++
	return nil
}

// ListByStudent returns a filtered page of a student's simulations with the
// total match count.
func (r *SimulationRepository) ListByStudent(ctx context.Context, filter models.SimulationFilter) ([]models.Simulation, int, error) {
	where := " WHERE student_id = $1"
	args := []interface{}{filter.StudentID}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND state->>'status' = $%d", len(args)+1)
		args = append(args, string(filter.Status))
	}
	if filter.Subject != "" {
		where += fmt.Sprintf(" AND subject = $%d", len(args)+1)
		args = append(args, string(filter.Subject))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM simulations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count simulations: %w", err)
	}

	query := `SELECT id, student_id, title, description, prompt, subject, level, experiment_type, estimated_duration, difficulty_tier,
        lab, game_config, state, ai_meta, version, created_at, updated_at
        FROM simulations` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", filter.PageSize, (filter.Page-1)*filter.PageSize)
	var sims []models.Simulation
	if err := r.db.SelectContext(ctx, &sims, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list simulations: %w", err)
	}
	return sims, total, nil
}

// StatusCounts returns the per-status breakdown for a student.
func (r *SimulationRepository) StatusCounts(ctx context.Context, studentID string) (*models.StatusBreakdown, error) {
	const query = `SELECT state->>'status' AS status, COUNT(*) AS count
        FROM simulations WHERE student_id = $1 GROUP BY state->>'status'`
	rows := []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("count simulation statuses: %w", err)
	}
	breakdown := &models.StatusBreakdown{}
	for _, row := range rows {
		switch models.Status(row.Status) {
		case models.StatusNotStarted:
			breakdown.NotStarted = row.Count
		case models.StatusInProgress:
			breakdown.InProgress = row.Count
		case models.StatusPaused:
			breakdown.Paused = row.Count
		case models.StatusCompleted:
			breakdown.Completed = row.Count
		}
	}
	return breakdown, nil
}

// CountCreatedSince counts a student's simulations created after the cutoff.
// Backs the generation quota when the limiter is unavailable.
func (r *SimulationRepository) CountCreatedSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM simulations WHERE student_id = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, studentID, since); err != nil {
		return 0, fmt.Errorf("count recent simulations: %w", err)
	}
	return count, nil
}

// repairLab enforces the non-empty equipment/procedure/safety invariant
// before any write. Never skipped.
func repairLab(sim *models.Simulation) {
	sim.Lab.RepairDefaults(sim.Subject)
}
