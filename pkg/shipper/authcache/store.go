package authcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// Store persists tokens with a TTL. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, scope string) (Token, bool, error)
	Set(ctx context.Context, tok Token) error
	Delete(ctx context.Context, scope string) error
}

// MemoryStore keeps tokens in process memory. Expiry is judged by the
// Cache against its own clock; the store returns whatever it holds.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]Token
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]Token)}
}

// Get returns the token stored for scope.
func (s *MemoryStore) Get(_ context.Context, scope string) (Token, bool, error) {
	s.mu.RLock()
	tok, ok := s.tokens[scope]
	s.mu.RUnlock()
	return tok, ok, nil
}

// Set stores tok under its scope.
func (s *MemoryStore) Set(_ context.Context, tok Token) error {
	s.mu.Lock()
	s.tokens[tok.Scope] = tok
	s.mu.Unlock()
	return nil
}

// Delete removes the token for scope.
func (s *MemoryStore) Delete(_ context.Context, scope string) error {
	s.mu.Lock()
	delete(s.tokens, scope)
	s.mu.Unlock()
	return nil
}

// RedisStore shares tokens between replicas through Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis instance at url (redis://...).
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts), prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "courierhub:token:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the token for scope; a missing key is not an error.
func (s *RedisStore) Get(ctx context.Context, scope string) (Token, bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+scope).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("redis get: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Token{}, false, fmt.Errorf("decoding token: %w", err)
	}
	return tok, true, nil
}

// Set stores tok with Redis expiry equal to its TTL.
func (s *RedisStore) Set(ctx context.Context, tok Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+tok.Scope, raw, tok.TTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes the token for scope.
func (s *RedisStore) Delete(ctx context.Context, scope string) error {
	if err := s.client.Del(ctx, s.prefix+scope).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// ExpiryFromJWT reads the exp claim of a JWT without verifying its signature.
// It reports false for opaque tokens and tokens already expired.
func ExpiryFromJWT(token string, now time.Time) (time.Duration, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return 0, false
	}
	if claims.ExpiresAt == nil {
		return 0, false
	}
	d := claims.ExpiresAt.Time.Sub(now)
	if d <= 0 {
		return 0, false
	}
	return d, true
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
