package user

import (
	"time"
)

// User represents a registered account.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;type:text"`
	Email        string `gorm:"uniqueIndex;not null;type:text"`
	FirstName    string `gorm:"type:text"`
	LastName     string `gorm:"type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// RevokedToken records a session whose tokens must no longer be accepted.
// The session ID is the jti of the refresh token that opened it.
type RevokedToken struct {
	SessionID string    `gorm:"primaryKey;type:text"`
	UserID    string    `gorm:"index;type:text"`
	ExpiresAt time.Time `gorm:"index"`
	RevokedAt time.Time
}

// TableName returns the table name for the RevokedToken entity.
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// ProfileUpdate carries the optional fields of a partial profile update.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the identity resolved from a valid access token.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
}
