package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter считает обращения по ключу в фиксированном окне и возвращает их число с учётом текущего
type Limiter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int, error)
}

type bucket struct {
	count int
	reset time.Time
}

// MemoryLimiter - счётчики в памяти процесса
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

func (l *MemoryLimiter) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok || !now.Before(b.reset) {
		if len(l.buckets) > 10000 {
			l.sweep(now)
		}
		b = &bucket{reset: now.Add(window)}
		l.buckets[key] = b
	}
	b.count++
	return b.count, nil
}

func (l *MemoryLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if !now.Before(b.reset) {
			delete(l.buckets, k)
		}
	}
}

const keyPrefix = "print_orders:ratelimit:"

// RedisLimiter - общий счётчик для нескольких экземпляров сервиса
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

// Hit увеличивает счётчик и ставит TTL, если его ещё нет. EXPIRE NX уходит с каждым
// обращением, поэтому ключ не остаётся без срока жизни после сбоя. Нужен Redis 7+.
func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int, error) {
	const op = "ratelimit.RedisLimiter.Hit"

	k := keyPrefix + key
	var incr *redis.IntCmd
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(incr.Val()), nil
}
