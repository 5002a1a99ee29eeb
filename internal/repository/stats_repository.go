package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/virtulab/virtulab-api/internal/models"
)

// StatsRepository persists per-student aggregate game statistics.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsColumns = `student_id, total_games_played, total_score, average_score, experiments_completed,
    achievements, skills, best_scores, favorite_subject, current_streak, longest_streak, last_played_at, updated_at`

// GetByStudent loads a student's aggregate stats, returning zeroed stats when
// the student has not completed anything yet.
func (r *StatsRepository) GetByStudent(ctx context.Context, studentID string) (*models.StudentGameStats, error) {
	query := `SELECT ` + statsColumns + ` FROM student_game_stats WHERE student_id = $1`
	var stats models.StudentGameStats
	if err := r.db.GetContext(ctx, &stats, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emptyStats(studentID), nil
		}
		return nil, fmt.Errorf("get student stats: %w", err)
	}
	return &stats, nil
}

// ApplyCompletion runs the read-modify-write of a student's stats inside a
// transaction holding a row lock, so concurrent completions serialize instead
// of losing updates. The update callback receives the current row (zeroed on
// first completion) and mutates it in place.
func (r *StatsRepository) ApplyCompletion(ctx context.Context, studentID string, update func(*models.StudentGameStats) error) (*models.StudentGameStats, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin stats tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Ensure the row exists so FOR UPDATE has something to lock.
	const seed = `INSERT INTO student_game_stats (student_id, updated_at) VALUES ($1, NOW())
        ON CONFLICT (student_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, seed, studentID); err != nil {
		return nil, fmt.Errorf("seed student stats: %w", err)
	}

	lock := `SELECT ` + statsColumns + ` FROM student_game_stats WHERE student_id = $1 FOR UPDATE`
	var stats models.StudentGameStats
	if err := tx.GetContext(ctx, &stats, lock, studentID); err != nil {
		return nil, fmt.Errorf("lock student stats: %w", err)
	}

	if err := update(&stats); err != nil {
		return nil, err
	}
	stats.StudentID = studentID
	stats.UpdatedAt = time.Now().UTC()

	const save = `UPDATE student_game_stats SET
        total_games_played = :total_games_played, total_score = :total_score, average_score = :average_score,
        experiments_completed = :experiments_completed, achievements = :achievements, skills = :skills,
        best_scores = :best_scores, favorite_subject = :favorite_subject, current_streak = :current_streak,
        longest_streak = :longest_streak, last_played_at = :last_played_at, updated_at = :updated_at
        WHERE student_id = :student_id`
	if _, err := tx.NamedExecContext(ctx, save, &stats); err != nil {
		return nil, fmt.Errorf("save student stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit stats tx: %w", err)
	}
	return &stats, nil
}

// TopStudents returns the highest cumulative scorers joined with student
// names, optionally filtered by student level (0 means all levels).
func (r *StatsRepository) TopStudents(ctx context.Context, level, limit int) ([]models.LeaderboardEntry, error) {
	query := `SELECT s.student_id, u.full_name AS student_name, s.total_score, s.average_score,
        s.total_games_played, s.longest_streak, s.favorite_subject
        FROM student_game_stats s
        JOIN users u ON u.id = s.student_id AND u.active`
	args := []interface{}{}
	if level > 0 {
		query += " WHERE u.level = $1"
		args = append(args, level)
	}
	query += fmt.Sprintf(" ORDER BY s.total_score DESC, s.average_score DESC, u.full_name ASC LIMIT %d", limit)

	entries := []models.LeaderboardEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return entries, nil
}

func emptyStats(studentID string) *models.StudentGameStats {
	return &models.StudentGameStats{
		StudentID:    studentID,
		Achievements: models.StringList{},
	}
}
