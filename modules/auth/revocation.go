package auth

import (
	"context"
	"fmt"
	"time"

	domain "github.com/example/ai-support-chat/domain/user"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RevocationStore records revoked sessions until their tokens expire.
type RevocationStore interface {
	Revoke(ctx context.Context, sessionID, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}

// DBRevocationStore keeps revoked sessions in the revoked_tokens table.
type DBRevocationStore struct {
	db *gorm.DB
}

// NewDBRevocationStore creates a table-backed revocation store.
func NewDBRevocationStore(db *gorm.DB) *DBRevocationStore {
	return &DBRevocationStore{db: db}
}

// Revoke records the session. Revoking twice is a no-op.
func (s *DBRevocationStore) Revoke(ctx context.Context, sessionID, userID string, expiresAt time.Time) error {
	entry := &domain.RevokedToken{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to revoke session: %w", result.Error)
	}
	return nil
}

// IsRevoked reports whether the session was revoked.
func (s *DBRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&domain.RevokedToken{}).
		Where("session_id = ?", sessionID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// PurgeExpired deletes entries whose tokens have expired anyway.
func (s *DBRevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.RevokedToken{})
	return result.RowsAffected, result.Error
}

// RedisRevocationStore keeps revoked sessions as keys that expire with the
// token.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore creates a redis-backed revocation store.
func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	return &RedisRevocationStore{client: client, prefix: prefix}
}

func (s *RedisRevocationStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Revoke records the session with a TTL equal to the remaining token
// lifetime. Already expired sessions need no record.
func (s *RedisRevocationStore) Revoke(ctx context.Context, sessionID, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(sessionID), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// IsRevoked reports whether the session key exists.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
