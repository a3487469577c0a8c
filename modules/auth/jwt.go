package auth

import (
	"errors"
	"time"

	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrRevokedToken is returned when the token's session was revoked.
	ErrRevokedToken = errors.New("token has been revoked")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey            string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	Issuer               string
}

// DefaultJWTConfig returns a default JWT configuration.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:            "your-secret-key-change-in-production",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "ai-support-chat",
	}
}

// JWTClaims represents the custom claims for JWT tokens.
// SessionID ties an access token to the refresh token it was issued with;
// the refresh token's jti equals SessionID.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// ToClaims converts the token claims to the domain identity.
func (c *JWTClaims) ToClaims() *domain.Claims {
	return &domain.Claims{
		UserID:    c.UserID,
		Username:  c.Username,
		Email:     c.Email,
		SessionID: c.SessionID,
	}
}

// JWTManager handles JWT token operations.
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		config: config,
	}
}

// GenerateTokenPair issues an access and a refresh token sharing a new
// session ID.
func (m *JWTManager) GenerateTokenPair(user *domain.User) (*domain.TokenPair, string, error) {
	sessionID := uuid.New().String()

	accessToken, err := m.generateToken(user, sessionID, tokenTypeAccess, m.config.AccessTokenDuration)
	if err != nil {
		return nil, "", err
	}

	refreshToken, err := m.generateToken(user, sessionID, tokenTypeRefresh, m.config.RefreshTokenDuration)
	if err != nil {
		return nil, "", err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    m.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, sessionID, nil
}

func (m *JWTManager) generateToken(user *domain.User, sessionID, tokenType string, duration time.Duration) (string, error) {
	now := time.Now()
	tokenID := sessionID
	if tokenType == tokenTypeAccess {
		tokenID = uuid.New().String()
	}

	claims := JWTClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		TokenType: tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    m.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateToken validates the signature and lifetime of a token.
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, jwt.WithIssuer(m.config.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ValidateAccessToken validates an access token.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	return m.validateTyped(tokenString, tokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token.
func (m *JWTManager) ValidateRefreshToken(tokenString string) (*JWTClaims, error) {
	return m.validateTyped(tokenString, tokenTypeRefresh)
}

func (m *JWTManager) validateTyped(tokenString, tokenType string) (*JWTClaims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AccessTokenDuration returns the access token duration in seconds.
func (m *JWTManager) AccessTokenDuration() int64 {
	return int64(m.config.AccessTokenDuration.Seconds())
}
