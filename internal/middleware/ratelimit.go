package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Window is the fixed-window state for one client: how many requests have
// been counted and when the window resets.
type Window struct {
	Count   int
	ResetAt time.Time
}

// WindowStore records a hit against a key and returns the current window.
// The store is injected so limiter state can live in Redis for
// multi-process deployments or in process memory for a single instance.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (Window, error)
}

// MemoryStore keeps windows in a mutex-guarded map. State is lost on
// restart, which is acceptable for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]Window
}

// NewMemoryStore builds an in-process window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]Window)}
}

// Hit starts or advances the window for the key.
func (s *MemoryStore) Hit(_ context.Context, key string, window time.Duration) (Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.windows[key]
	if !ok || now.After(w.ResetAt) {
		w = Window{Count: 1, ResetAt: now.Add(window)}
	} else {
		w.Count++
	}
	s.windows[key] = w
	return w, nil
}

// RedisStore keeps windows in Redis so multiple processes share one
// counter. The key TTL doubles as the window reset.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a Redis-backed window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Hit increments the key, arming its TTL on first use.
func (s *RedisStore) Hit(ctx context.Context, key string, window time.Duration) (Window, error) {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return Window{}, err
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, key, window).Err(); err != nil {
			return Window{}, err
		}
	}
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return Window{Count: int(count), ResetAt: time.Now().Add(ttl)}, nil
}

// Limit configures one throttle: at most Max requests per Window. Scope
// names the throttle; every route sharing a limiter shares its window, so
// a client cannot multiply the budget by spreading requests across
// endpoints. An empty scope falls back to per-path windows.
type Limit struct {
	Scope  string
	Max    int
	Window time.Duration
}

// RateLimit throttles requests per client IP using a fixed window held in
// the injected store. Store errors fail open so a Redis outage does not
// take authentication down with it.
func RateLimit(store WindowStore, limit Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scope := limit.Scope
		if scope == "" {
			scope = c.Path()
		}
		key := "rl:" + scope + ":" + c.IP()
		w, err := store.Hit(c.UserContext(), key, limit.Window)
		if err != nil {
			return c.Next()
		}
		if w.Count > limit.Max {
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"message":   "Too many requests, please try again later",
				"resetTime": w.ResetAt,
			})
		}
		return c.Next()
	}
}
