package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/virtulab/virtulab-api/internal/models"
)

// UserRepository reads users and the guardian/student link table.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, full_name, role, level, active, last_login, created_at, updated_at`

// FindByID loads one user. Returns sql.ErrNoRows when absent.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads one user by email. Returns sql.ErrNoRows when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, err
	}
	return &user, nil
}

// TouchLastLogin records a successful login time.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

// ChildrenOf returns the students linked to a guardian.
func (r *UserRepository) ChildrenOf(ctx context.Context, guardianID string) ([]models.User, error) {
	query := `SELECT ` + prefixedUserColumns("u") + `
        FROM users u
        JOIN guardian_links gl ON gl.student_id = u.id
        WHERE gl.guardian_id = $1 AND u.active
        ORDER BY u.full_name ASC`
	children := []models.User{}
	if err := r.db.SelectContext(ctx, &children, query, guardianID); err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return children, nil
}

// GuardiansOf returns the guardians linked to a student.
func (r *UserRepository) GuardiansOf(ctx context.Context, studentID string) ([]models.User, error) {
	query := `SELECT ` + prefixedUserColumns("u") + `
        FROM users u
        JOIN guardian_links gl ON gl.guardian_id = u.id
        WHERE gl.student_id = $1 AND u.active`
	guardians := []models.User{}
	if err := r.db.SelectContext(ctx, &guardians, query, studentID); err != nil {
		return nil, fmt.Errorf("list guardians: %w", err)
	}
	return guardians, nil
}

func prefixedUserColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.email, %[1]s.password_hash, %[1]s.full_name, %[1]s.role,
        %[1]s.level, %[1]s.active, %[1]s.last_login, %[1]s.created_at, %[1]s.updated_at`, alias)
}
