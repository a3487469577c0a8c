package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidUsername is returned when the username breaks the naming rules.
	ErrInvalidUsername = errors.New("username must be 3-150 characters: letters, digits and @.+-_")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrForbidden is returned when a user modifies someone else's profile.
	ErrForbidden = errors.New("you do not have permission")
	// ErrEmptyUpdate is returned when a profile update changes nothing.
	ErrEmptyUpdate = errors.New("no fields to update")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]{3,150}$`)

// RegisterInput carries the fields of a registration.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	FirstName string
	LastName  string
}

// AuthService handles authentication business logic.
type AuthService struct {
	repo        *UserRepository
	hasher      *PasswordHasher
	jwt         *JWTManager
	revocations RevocationStore
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, jwt *JWTManager, revocations RevocationStore) *AuthService {
	return &AuthService{
		repo:        repo,
		hasher:      hasher,
		jwt:         jwt,
		revocations: revocations,
	}
}

// Register creates a new user account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.TokenPair, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if !usernamePattern.MatchString(in.Username) {
		return nil, nil, ErrInvalidUsername
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, nil, err
	}
	if in.Password2 != "" && in.Password2 != in.Password {
		return nil, nil, ErrPasswordMismatch
	}

	taken, err := s.repo.Taken(ctx, in.Username, in.Email, "")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if taken {
		return nil, nil, ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// Login authenticates by username (or email) and password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) && strings.Contains(username, "@") {
		user, err = s.repo.FindByEmail(ctx, username)
	}
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Logout revokes the session of a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.revoke(ctx, claims)
}

// RefreshTokens rotates a refresh token: the old session is revoked and a
// new token pair is issued.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.revoke(ctx, claims); err != nil {
		return nil, err
	}
	return s.issue(user)
}

// ValidateToken validates an access token and returns the identity.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	return claims.ToClaims(), nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.FindByID(ctx, userID)
}

// UpdateUser applies a partial profile update. Only the owner may update.
func (s *AuthService) UpdateUser(ctx context.Context, requesterID, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ID != requesterID {
		return nil, ErrForbidden
	}
	if update.Empty() {
		return nil, ErrEmptyUpdate
	}

	var newUsername, newEmail string
	if update.Username != nil {
		newUsername = strings.TrimSpace(*update.Username)
		if !usernamePattern.MatchString(newUsername) {
			return nil, ErrInvalidUsername
		}
	}
	if update.Email != nil {
		newEmail = strings.TrimSpace(*update.Email)
		if err := validateEmail(newEmail); err != nil {
			return nil, err
		}
	}

	taken, err := s.repo.Taken(ctx, newUsername, newEmail, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	if newUsername != "" {
		user.Username = newUsername
	}
	if newEmail != "" {
		user.Email = newEmail
	}
	if update.FirstName != nil {
		user.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		user.LastName = *update.LastName
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.Save(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*domain.TokenPair, error) {
	tokens, _, err := s.jwt.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}
	return tokens, nil
}

func (s *AuthService) validateRefresh(ctx context.Context, refreshToken string) (*JWTClaims, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *AuthService) checkRevoked(ctx context.Context, sessionID string) error {
	revoked, err := s.revocations.IsRevoked(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return ErrRevokedToken
	}
	return nil
}

func (s *AuthService) revoke(ctx context.Context, claims *JWTClaims) error {
	expiresAt := time.Now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.revocations.Revoke(ctx, claims.SessionID, claims.UserID, expiresAt)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordBytes {
		return ErrWeakPassword
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
