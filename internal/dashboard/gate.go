package dashboard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// unlockKeyPrefix namespaces unlock flags in redis. The value mirrors the
// browser storage key the dashboard historically used.
const unlockKeyPrefix = "clinicai.dashboard.unlocked"

// ErrIncorrectCode is returned for a wrong access code.
var ErrIncorrectCode = errors.New("Incorrect access code.")

// ErrCodeNotConfigured is returned when no access code is set server-side.
// Unlocking is impossible until CLINIC_DASHBOARD_PASSWORD is configured.
var ErrCodeNotConfigured = errors.New("Dashboard password is not configured. Set CLINIC_DASHBOARD_PASSWORD and restart the server.")

// UnlockStore persists which sessions have unlocked the dashboard. An unlock
// is never cleared; it survives for the lifetime of the stored flag.
type UnlockStore interface {
	Unlocked(ctx context.Context, sessionID string) (bool, error)
	Unlock(ctx context.Context, sessionID string) error
}

// RedisUnlockStore keeps unlock flags in redis so they survive restarts.
type RedisUnlockStore struct {
	redis *redis.Client
}

// NewRedisUnlockStore creates a redis-backed unlock store.
func NewRedisUnlockStore(redisClient *redis.Client) *RedisUnlockStore {
	return &RedisUnlockStore{redis: redisClient}
}

func (s *RedisUnlockStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", unlockKeyPrefix, sessionID)
}

func (s *RedisUnlockStore) Unlocked(ctx context.Context, sessionID string) (bool, error) {
	val, err := s.redis.Get(ctx, s.key(sessionID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dashboard: get unlock flag: %w", err)
	}
	return val == "1", nil
}

func (s *RedisUnlockStore) Unlock(ctx context.Context, sessionID string) error {
	if err := s.redis.Set(ctx, s.key(sessionID), "1", 0).Err(); err != nil {
		return fmt.Errorf("dashboard: set unlock flag: %w", err)
	}
	return nil
}

// MemoryUnlockStore is the in-process fallback when redis is not configured.
type MemoryUnlockStore struct {
	mu       sync.RWMutex
	unlocked map[string]struct{}
}

// NewMemoryUnlockStore creates an in-memory unlock store.
func NewMemoryUnlockStore() *MemoryUnlockStore {
	return &MemoryUnlockStore{unlocked: make(map[string]struct{})}
}

func (s *MemoryUnlockStore) Unlocked(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.unlocked[sessionID]
	return ok, nil
}

func (s *MemoryUnlockStore) Unlock(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocked[sessionID] = struct{}{}
	return nil
}

// Gate checks access codes and tracks unlocked sessions.
type Gate struct {
	secret string
	store  UnlockStore
}

// NewGate creates a gate with the configured access code.
func NewGate(secret string, store UnlockStore) *Gate {
	return &Gate{secret: strings.TrimSpace(secret), store: store}
}

// Unlock validates the code and marks the session as unlocked.
func (g *Gate) Unlock(ctx context.Context, sessionID, code string) error {
	if g.secret == "" {
		return ErrCodeNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(g.secret)) != 1 {
		return ErrIncorrectCode
	}
	return g.store.Unlock(ctx, sessionID)
}

// Unlocked reports whether the session has already unlocked the dashboard.
func (g *Gate) Unlocked(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	return g.store.Unlocked(ctx, sessionID)
}
