package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ModuleConfig holds everything the auth module needs at start.
type ModuleConfig struct {
	DatabaseDriver    string
	DatabaseDSN       string
	JWT               JWTConfig
	RevocationBackend string // database|redis
	RedisAddr         string
	RedisKeyPrefix    string
	BcryptCost        int
}

// AuthModule provides credential storage and token services.
type AuthModule struct {
	config  ModuleConfig
	db      *gorm.DB
	redis   *redis.Client
	service *AuthService
	logger  *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(config ModuleConfig) *AuthModule {
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultBcryptCost
	}
	if config.RevocationBackend == "" {
		config.RevocationBackend = "database"
	}
	return &AuthModule{
		config: config,
		logger: slog.Default().With("module", "auth"),
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the credential store and builds the service.
func (m *AuthModule) Start(ctx context.Context) error {
	db, err := OpenDatabase(m.config.DatabaseDriver, m.config.DatabaseDSN)
	if err != nil {
		return err
	}
	m.db = db

	revocations, err := m.openRevocationStore(ctx)
	if err != nil {
		return err
	}

	m.service = NewAuthService(
		NewUserRepository(db),
		NewPasswordHasherWithCost(m.config.BcryptCost),
		NewJWTManager(m.config.JWT),
		revocations,
	)

	m.logger.Info("Module started",
		"driver", m.config.DatabaseDriver,
		"revocation", m.config.RevocationBackend)
	return nil
}

func (m *AuthModule) openRevocationStore(ctx context.Context) (RevocationStore, error) {
	switch m.config.RevocationBackend {
	case "redis":
		m.redis = redis.NewClient(&redis.Options{
			Addr:         m.config.RedisAddr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisRevocationStore(m.redis, m.config.RedisKeyPrefix), nil
	case "database":
		store := NewDBRevocationStore(m.db)
		if n, err := store.PurgeExpired(ctx, time.Now()); err != nil {
			m.logger.Warn("Failed to purge expired revocations", "error", err)
		} else if n > 0 {
			m.logger.Info("Purged expired revocations", "count", n)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported revocation backend %q", m.config.RevocationBackend)
	}
}

// Stop closes the database and redis connections.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Warn("Error closing Redis connection", "error", err)
		}
	}
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}
	if m.redis != nil {
		if err := m.redis.Ping(ctx).Err(); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("redis ping failed: %v", err),
			}
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":     m.config.DatabaseDriver,
			"revocation": m.config.RevocationBackend,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "logout", json.Unmarshal, json.Marshal, m.handleLogout,
	); err != nil {
		return fmt.Errorf("failed to register logout service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, "update-user", json.Unmarshal, json.Marshal, m.handleUpdateUser,
	); err != nil {
		return fmt.Errorf("failed to register update-user service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", []string{"register", "login", "logout", "refresh-token", "validate-token", "get-user", "update-user"})
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	user, tokens, err := m.service.Register(ctx, RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return RegisterResponse{}, err
	}

	m.logger.Info("User registered", "user_id", user.ID)
	return RegisterResponse{
		User:   toUserResponse(user),
		Tokens: *tokens,
	}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	return toTokenResponse(tokens), nil
}

func (m *AuthModule) handleLogout(ctx context.Context, req RefreshRequest, _ *mono.Msg) (LogoutResponse, error) {
	if err := m.service.Logout(ctx, req.RefreshToken); err != nil {
		return LogoutResponse{}, err
	}
	return LogoutResponse{Revoked: true}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (TokenResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return TokenResponse{}, err
	}
	return toTokenResponse(tokens), nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		switch {
		case errors.Is(err, ErrExpiredToken):
			errMsg = "token expired"
		case errors.Is(err, ErrRevokedToken):
			errMsg = "token revoked"
		case !errors.Is(err, ErrInvalidToken):
			// storage failure, not the caller's fault
			return ValidateTokenResponse{}, err
		}
		return ValidateTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil
	}

	return ValidateTokenResponse{
		Valid:     true,
		UserID:    claims.UserID,
		Username:  claims.Username,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}

func (m *AuthModule) handleUpdateUser(ctx context.Context, req UpdateUserRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.UpdateUser(ctx, req.RequesterID, req.UserID, req.Update)
	if err != nil {
		return UserResponse{}, err
	}
	return toUserResponse(user), nil
}
