package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, *domain.TokenPair, error)
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	UpdateUser(ctx context.Context, requesterID, userID string, update domain.ProfileUpdate) (*domain.User, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account and returns it with its first token pair.
func (a *AuthAdapter) Register(ctx context.Context, req RegisterRequest) (*domain.User, *domain.TokenPair, error) {
	var resp RegisterResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"register",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, nil, fmt.Errorf("register request failed: %w", err)
	}
	tokens := resp.Tokens
	return resp.User.toUser(), &tokens, nil
}

// Login exchanges credentials for a token pair.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp TokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"login",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return resp.toTokenPair(), nil
}

// Logout revokes the session of a refresh token.
func (a *AuthAdapter) Logout(ctx context.Context, refreshToken string) error {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp LogoutResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"logout",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	return nil
}

// RefreshTokens rotates a refresh token.
func (a *AuthAdapter) RefreshTokens(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp TokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"refresh-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("refresh-token request failed: %w", err)
	}
	return resp.toTokenPair(), nil
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}

	return &domain.Claims{
		UserID:    resp.UserID,
		Username:  resp.Username,
		Email:     resp.Email,
		SessionID: resp.SessionID,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	req := GetUserRequest{UserID: userID}
	var resp UserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-user request failed: %w", err)
	}
	return resp.toUser(), nil
}

// UpdateUser applies a partial profile update on behalf of requesterID.
func (a *AuthAdapter) UpdateUser(ctx context.Context, requesterID, userID string, update domain.ProfileUpdate) (*domain.User, error) {
	req := UpdateUserRequest{RequesterID: requesterID, UserID: userID, Update: update}
	var resp UserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"update-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("update-user request failed: %w", err)
	}
	return resp.toUser(), nil
}
