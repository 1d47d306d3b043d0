package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no profile exists for an id.
var ErrNotFound = errors.New("onboarding: clinic not found")

// Profile is a registered clinic as persisted by the wizard.
type Profile struct {
	ID            string    `json:"id"`
	AIAssistantID string    `json:"aiAssistantId"`
	Submission
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists registered clinic profiles.
type Store interface {
	Save(ctx context.Context, profile Profile) error
	Get(ctx context.Context, id string) (Profile, error)
}

// RedisStore keeps profiles in redis.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a redis-backed profile store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

func (s *RedisStore) key(id string) string {
	return fmt.Sprintf("clinicai:clinic:%s", id)
}

func (s *RedisStore) Save(ctx context.Context, profile Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("onboarding: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(profile.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("onboarding: save profile: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Profile, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("onboarding: get profile: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("onboarding: unmarshal profile: %w", err)
	}
	return profile, nil
}

// MemoryStore is the in-process fallback when redis is not configured.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemoryStore creates an in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (s *MemoryStore) Save(ctx context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profile, nil
}
