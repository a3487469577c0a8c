package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// requires Redis running on localhost:6379, skipped otherwise
const testRedisAddr = "localhost:6379"

func TestDBRevocationStore(t *testing.T) {
	db, err := OpenDatabase("sqlite", filepath.Join(t.TempDir(), "revocations.db"))
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	store := NewDBRevocationStore(db)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "session-1")
	if err != nil || revoked {
		t.Fatalf("IsRevoked() = %v, %v; want false, nil", revoked, err)
	}

	expiresAt := time.Now().Add(time.Hour)
	if err := store.Revoke(ctx, "session-1", "user-1", expiresAt); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	// revoking twice is allowed
	if err := store.Revoke(ctx, "session-1", "user-1", expiresAt); err != nil {
		t.Fatalf("second Revoke() error = %v", err)
	}

	revoked, err = store.IsRevoked(ctx, "session-1")
	if err != nil || !revoked {
		t.Errorf("IsRevoked() = %v, %v; want true, nil", revoked, err)
	}
}

func TestDBRevocationStore_PurgeExpired(t *testing.T) {
	db, err := OpenDatabase("sqlite", filepath.Join(t.TempDir(), "revocations.db"))
	if err != nil {
		t.Fatalf("OpenDatabase() error = %v", err)
	}
	store := NewDBRevocationStore(db)
	ctx := context.Background()

	_ = store.Revoke(ctx, "old", "user-1", time.Now().Add(-time.Hour))
	_ = store.Revoke(ctx, "fresh", "user-1", time.Now().Add(time.Hour))

	n, err := store.PurgeExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("PurgeExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", n)
	}
	if revoked, _ := store.IsRevoked(ctx, "fresh"); !revoked {
		t.Error("unexpired entry was purged")
	}
}

func TestRedisRevocationStore(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	prefix := "test:revoked:" + uuid.New().String() + ":"
	store := NewRedisRevocationStore(client, prefix)

	if err := store.Revoke(ctx, "session-1", "user-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	defer client.Del(ctx, prefix+"session-1")

	revoked, err := store.IsRevoked(ctx, "session-1")
	if err != nil || !revoked {
		t.Errorf("IsRevoked() = %v, %v; want true, nil", revoked, err)
	}

	ttl, err := client.TTL(ctx, prefix+"session-1").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, %v; want (0, 1m]", ttl, err)
	}

	// already expired sessions are not stored
	if err := store.Revoke(ctx, "session-2", "user-1", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("Revoke(expired) error = %v", err)
	}
	if revoked, _ := store.IsRevoked(ctx, "session-2"); revoked {
		t.Error("expired session should not be recorded")
	}
}
