package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store хранит идентификаторы активных админских сессий
type Store interface {
	Create(ctx context.Context, ttl time.Duration) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore держит сессии в памяти процесса
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]time.Time // id -> истекает
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryStore) Create(ctx context.Context, ttl time.Duration) (string, error) {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired()
	m.sessions[id] = m.now().Add(ttl)
	return id, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.sessions, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// вызывается под m.mu
func (m *MemoryStore) evictExpired() {
	now := m.now()
	for id, exp := range m.sessions {
		if !now.Before(exp) {
			delete(m.sessions, id)
		}
	}
}

const keyPrefix = "print_orders:session:"

// RedisStore хранит сессии в Redis с TTL ключа
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context, ttl time.Duration) (string, error) {
	const op = "session.RedisStore.Create"

	id := uuid.NewString()
	if err := s.client.Set(ctx, keyPrefix+id, 1, ttl).Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	const op = "session.RedisStore.Exists"

	n, err := s.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	const op = "session.RedisStore.Delete"

	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
