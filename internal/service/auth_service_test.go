package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

type fakeAuthUserRepo struct {
	user        *models.User
	lastLoginAt *time.Time
}

func (r *fakeAuthUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.user == nil || r.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return r.user, nil
}

func (r *fakeAuthUserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.lastLoginAt = &at
	return nil
}

func authTestUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "student-1",
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		FullName:     "Ada Lovelace",
		Role:         models.RoleStudent,
		Active:       true,
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	repo := &fakeAuthUserRepo{user: authTestUser(t, "secret-pw")}
	svc := NewAuthService(repo, "signing-secret", time.Hour, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret-pw"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotNil(t, repo.lastLoginAt)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "student-1", claims.UserID)
	require.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := NewAuthService(&fakeAuthUserRepo{user: authTestUser(t, "secret-pw")}, "signing-secret", time.Hour, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "not-it"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc := NewAuthService(&fakeAuthUserRepo{}, "signing-secret", time.Hour, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "secret-pw"})
	require.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	user := authTestUser(t, "secret-pw")
	user.Active = false
	svc := NewAuthService(&fakeAuthUserRepo{user: user}, "signing-secret", time.Hour, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret-pw"})
	require.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	repo := &fakeAuthUserRepo{user: authTestUser(t, "secret-pw")}
	svc := NewAuthService(repo, "signing-secret", time.Hour, nil)
	svc.now = func() time.Time { return time.Now().UTC().Add(-2 * time.Hour) }

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret-pw"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	repo := &fakeAuthUserRepo{user: authTestUser(t, "secret-pw")}
	issuer := NewAuthService(repo, "signing-secret", time.Hour, nil)
	verifier := NewAuthService(repo, "another-secret", time.Hour, nil)

	resp, err := issuer.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "secret-pw"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.AccessToken)
	require.Error(t, err)
}
