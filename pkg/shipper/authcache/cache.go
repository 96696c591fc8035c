// Package authcache acquires and caches carrier login tokens.
//
// Tokens are cached per scope key with a TTL strictly below the vendor's
// declared expiry. Concurrent misses for one scope share a single acquisition.
package authcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Token is a cached credential for one scope.
type Token struct {
	Scope      string        `json:"scope"`
	Value      string        `json:"value"`
	AcquiredAt time.Time     `json:"acquired_at"`
	TTL        time.Duration `json:"ttl"`
}

// ExpiresAt is when the cache stops handing the token out.
func (t Token) ExpiresAt() time.Time {
	return t.AcquiredAt.Add(t.TTL)
}

// Valid reports whether the token may still be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt())
}

// Grant is what a vendor login returns. ExpiresIn is zero when the vendor
// does not say; the JWT exp claim or the policy default is used instead.
type Grant struct {
	Value     string
	ExpiresIn time.Duration
}

// AcquireFunc performs the vendor login.
type AcquireFunc func(ctx context.Context) (Grant, error)

// Policy turns a vendor-declared expiry into a cache TTL.
type Policy struct {
	// DefaultExpiry is assumed when neither the vendor nor the token states one.
	DefaultExpiry time.Duration
	// Margin is subtracted from the declared expiry.
	Margin time.Duration
	// MaxTTL caps the TTL regardless of expiry; zero means no cap.
	MaxTTL time.Duration
}

// TTL returns a cache lifetime strictly shorter than expiry.
func (p Policy) TTL(expiry time.Duration) time.Duration {
	if expiry <= 0 {
		expiry = p.DefaultExpiry
	}
	if expiry <= 0 {
		expiry = time.Hour
	}
	ttl := expiry - p.Margin
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	if ttl >= expiry {
		ttl = expiry - expiry/20
	}
	if ttl <= 0 {
		ttl = expiry / 2
	}
	return ttl
}

// Observer is notified of cache events: hit, miss, acquire, acquire_error, invalidate.
type Observer interface {
	ObserveToken(scope, event string)
}

// Cache is safe for concurrent use and is the only state shared between
// concurrent carrier calls.
type Cache struct {
	store          Store
	group          singleflight.Group
	logger         *otelzap.Logger
	observer       Observer
	now            func() time.Time
	acquireTimeout time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithObserver reports cache events to o.
func WithObserver(o Observer) Option {
	return func(c *Cache) { c.observer = o }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithAcquireTimeout bounds a single vendor login.
func WithAcquireTimeout(d time.Duration) Option {
	return func(c *Cache) { c.acquireTimeout = d }
}

// New creates a cache over store.
func New(store Store, logger *otelzap.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:          store,
		logger:         logger,
		now:            time.Now,
		acquireTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScopeKey identifies a token: one per carrier, mode and login principal.
// The principal is hashed so usernames never reach the store's keyspace.
func ScopeKey(carrier shipper.Code, mode shipper.Mode, principal string) string {
	sum := sha256.Sum256([]byte(principal))
	return fmt.Sprintf("%s:%s:%s", carrier, mode, hex.EncodeToString(sum[:8]))
}

// Token returns a cached token for scope, acquiring one on a miss.
func (c *Cache) Token(ctx context.Context, scope string, policy Policy, acquire AcquireFunc) (string, error) {
	if tok, ok := c.lookup(ctx, scope); ok {
		c.notify(scope, "hit")
		return tok.Value, nil
	}
	c.notify(scope, "miss")
	return c.refresh(ctx, scope, policy, acquire, "")
}

// Invalidate drops the cached token for scope.
func (c *Cache) Invalidate(ctx context.Context, scope string) error {
	c.notify(scope, "invalidate")
	return c.store.Delete(ctx, scope)
}

// Do runs call with a token. When call fails as unauthorized, the token is
// invalidated, re-acquired once and call retried once; a second failure is returned.
func (c *Cache) Do(ctx context.Context, scope string, policy Policy, acquire AcquireFunc, call func(ctx context.Context, token string) error) error {
	token, err := c.Token(ctx, scope, policy, acquire)
	if err != nil {
		return err
	}

	err = call(ctx, token)
	if !shipper.IsUnauthorized(err) {
		return err
	}

	c.logger.Ctx(ctx).Info("Carrier rejected cached token, re-acquiring", zap.String("scope", scope))
	c.invalidateIf(ctx, scope, token)

	token, err = c.refresh(ctx, scope, policy, acquire, token)
	if err != nil {
		return err
	}
	return call(ctx, token)
}

// invalidateIf deletes the stored token only if it is still the rejected one,
// so a concurrent caller's fresh token survives.
func (c *Cache) invalidateIf(ctx context.Context, scope, rejected string) {
	tok, ok, err := c.store.Get(ctx, scope)
	if err != nil || !ok || tok.Value != rejected {
		return
	}
	if err := c.Invalidate(ctx, scope); err != nil {
		c.logger.Ctx(ctx).Warn("Failed to invalidate token", zap.String("scope", scope), zap.Error(err))
	}
}

func (c *Cache) refresh(ctx context.Context, scope string, policy Policy, acquire AcquireFunc, rejected string) (string, error) {
	ch := c.group.DoChan(scope, func() (any, error) {
		// The acquisition outlives any single caller's cancellation.
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.acquireTimeout)
		defer cancel()

		// A previous flight may have stored a token while this one queued.
		if tok, ok := c.lookup(actx, scope); ok && tok.Value != rejected {
			return tok.Value, nil
		}

		grant, err := acquire(actx)
		if err != nil {
			c.notify(scope, "acquire_error")
			return nil, err
		}
		if grant.Value == "" {
			c.notify(scope, "acquire_error")
			return nil, fmt.Errorf("%w: login returned an empty token", shipper.ErrAuthenticationFailed)
		}
		c.notify(scope, "acquire")

		now := c.now()
		expiry := grant.ExpiresIn
		if expiry <= 0 {
			if d, ok := ExpiryFromJWT(grant.Value, now); ok {
				expiry = d
			}
		}
		tok := Token{
			Scope:      scope,
			Value:      grant.Value,
			AcquiredAt: now,
			TTL:        policy.TTL(expiry),
		}
		if err := c.store.Set(actx, tok); err != nil {
			c.logger.Ctx(ctx).Warn("Failed to store token, using it uncached",
				zap.String("scope", scope), zap.Error(err))
		}
		c.logger.Ctx(ctx).Debug("Acquired carrier token",
			zap.String("scope", scope), zap.Duration("ttl", tok.TTL))
		return tok.Value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Cache) lookup(ctx context.Context, scope string) (Token, bool) {
	tok, ok, err := c.store.Get(ctx, scope)
	if err != nil {
		c.logger.Ctx(ctx).Warn("Token store lookup failed", zap.String("scope", scope), zap.Error(err))
		return Token{}, false
	}
	if !ok || !tok.Valid(c.now()) {
		return Token{}, false
	}
	return tok, true
}

func (c *Cache) notify(scope, event string) {
	if c.observer != nil {
		c.observer.ObserveToken(scope, event)
	}
}
