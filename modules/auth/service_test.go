package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func setupService(t *testing.T) *AuthService {
	t.Helper()

	db, err := OpenDatabase("sqlite", filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return NewAuthService(
		NewUserRepository(db),
		NewPasswordHasherWithCost(bcrypt.MinCost),
		NewJWTManager(testJWTConfig()),
		NewDBRevocationStore(db),
	)
}

func registerAlice(t *testing.T, s *AuthService) (*domain.User, *domain.TokenPair) {
	t.Helper()
	user, tokens, err := s.Register(context.Background(), RegisterInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "password123",
		Password2: "password123",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	return user, tokens
}

func TestAuthService_Register(t *testing.T) {
	s := setupService(t)
	user, tokens := registerAlice(t, s)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.FirstName)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := s.ValidateToken(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{
			name: "short username",
			in:   RegisterInput{Username: "al", Email: "al@example.com", Password: "password123"},
			want: ErrInvalidUsername,
		},
		{
			name: "username with space",
			in:   RegisterInput{Username: "al ice", Email: "al@example.com", Password: "password123"},
			want: ErrInvalidUsername,
		},
		{
			name: "bad email",
			in:   RegisterInput{Username: "bob", Email: "bob-at-example", Password: "password123"},
			want: ErrInvalidEmail,
		},
		{
			name: "display-name email",
			in:   RegisterInput{Username: "bob", Email: "Bob <bob@example.com>", Password: "password123"},
			want: ErrInvalidEmail,
		},
		{
			name: "weak password",
			in:   RegisterInput{Username: "bob", Email: "bob@example.com", Password: "short"},
			want: ErrWeakPassword,
		},
		{
			name: "mismatched confirmation",
			in:   RegisterInput{Username: "bob", Email: "bob@example.com", Password: "password123", Password2: "password124"},
			want: ErrPasswordMismatch,
		},
	}

	s := setupService(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.Register(context.Background(), tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("Register() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	s := setupService(t)
	registerAlice(t, s)

	_, _, err := s.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "other@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserExists)

	_, _, err = s.Register(context.Background(), RegisterInput{
		Username: "alice2",
		Email:    "alice@example.com",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthService_Login(t *testing.T) {
	s := setupService(t)
	registerAlice(t, s)
	ctx := context.Background()

	tokens, err := s.Login(ctx, "alice", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	_, err = s.Login(ctx, "alice@example.com", "password123")
	assert.NoError(t, err, "login by email")

	_, err = s.Login(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	s := setupService(t)
	_, tokens := registerAlice(t, s)
	ctx := context.Background()

	require.NoError(t, s.Logout(ctx, tokens.RefreshToken))

	_, err := s.ValidateToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrRevokedToken, "access token of a revoked session")

	err = s.Logout(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken, "second logout")

	_, err = s.RefreshTokens(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken, "refresh after logout")
}

func TestAuthService_LogoutRejectsAccessToken(t *testing.T) {
	s := setupService(t)
	_, tokens := registerAlice(t, s)

	err := s.Logout(context.Background(), tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_RefreshRotates(t *testing.T) {
	s := setupService(t)
	_, tokens := registerAlice(t, s)
	ctx := context.Background()

	rotated, err := s.RefreshTokens(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, rotated.RefreshToken)

	_, err = s.ValidateToken(ctx, rotated.AccessToken)
	assert.NoError(t, err)

	_, err = s.RefreshTokens(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrRevokedToken, "old refresh token reused")

	_, err = s.ValidateToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrRevokedToken, "old access token")
}

func TestAuthService_UpdateUser(t *testing.T) {
	s := setupService(t)
	alice, _ := registerAlice(t, s)
	ctx := context.Background()

	bob, _, err := s.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	lastName := "Liddell"
	updated, err := s.UpdateUser(ctx, alice.ID, alice.ID, domain.ProfileUpdate{LastName: &lastName})
	require.NoError(t, err)
	assert.Equal(t, "Liddell", updated.LastName)
	assert.Equal(t, "Alice", updated.FirstName, "untouched field")

	stored, err := s.GetUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Liddell", stored.LastName)

	_, err = s.UpdateUser(ctx, bob.ID, alice.ID, domain.ProfileUpdate{LastName: &lastName})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.UpdateUser(ctx, alice.ID, "missing", domain.ProfileUpdate{LastName: &lastName})
	assert.ErrorIs(t, err, ErrUserNotFound)

	taken := "bob@example.com"
	_, err = s.UpdateUser(ctx, alice.ID, alice.ID, domain.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrUserExists)

	bad := "nope"
	_, err = s.UpdateUser(ctx, alice.ID, alice.ID, domain.ProfileUpdate{Email: &bad})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = s.UpdateUser(ctx, alice.ID, alice.ID, domain.ProfileUpdate{})
	assert.ErrorIs(t, err, ErrEmptyUpdate)
}

func TestAuthService_GetUserNotFound(t *testing.T) {
	s := setupService(t)
	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
