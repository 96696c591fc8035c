package authcache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/courierhub/pkg/shipper"
	"github.com/tournevent/courierhub/pkg/shipper/authcache"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newCache(opts ...authcache.Option) (*authcache.Cache, *authcache.MemoryStore) {
	store := authcache.NewMemoryStore()
	return authcache.New(store, otelzap.New(zap.NewNop()), opts...), store
}

func countingAcquire(counter *atomic.Int32, delay time.Duration) authcache.AcquireFunc {
	return func(ctx context.Context) (authcache.Grant, error) {
		n := counter.Add(1)
		time.Sleep(delay)
		return authcache.Grant{Value: "token-" + string(rune('0'+n)), ExpiresIn: time.Hour}, nil
	}
}

func TestCache_ConcurrentMissesAcquireOnce(t *testing.T) {
	cache, _ := newCache()
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 50*time.Millisecond)

	const callers = 10
	var wg sync.WaitGroup
	start := make(chan struct{})
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			tokens[i], errs[i] = cache.Token(context.Background(), "bigship:test:abc", authcache.Policy{}, acquire)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), acquisitions.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "token-1", tokens[i])
	}
}

func TestCache_HitDoesNotAcquire(t *testing.T) {
	cache, _ := newCache()
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 0)

	first, err := cache.Token(context.Background(), "scope", authcache.Policy{}, acquire)
	require.NoError(t, err)
	second, err := cache.Token(context.Background(), "scope", authcache.Policy{}, acquire)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), acquisitions.Load())
}

func TestCache_ScopesAreIndependent(t *testing.T) {
	cache, _ := newCache()
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 0)

	_, err := cache.Token(context.Background(), "shiprocket:production:a", authcache.Policy{}, acquire)
	require.NoError(t, err)
	_, err = cache.Token(context.Background(), "xpressbees:production:a", authcache.Policy{}, acquire)
	require.NoError(t, err)

	assert.Equal(t, int32(2), acquisitions.Load())
}

func TestCache_ExpiredTokenIsReacquired(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	cache, _ := newCache(authcache.WithClock(clock))
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 0)
	policy := authcache.Policy{Margin: 5 * time.Minute}

	_, err := cache.Token(context.Background(), "scope", policy, acquire)
	require.NoError(t, err)

	mu.Lock()
	now = now.Add(56 * time.Minute)
	mu.Unlock()

	tok, err := cache.Token(context.Background(), "scope", policy, acquire)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
	assert.Equal(t, int32(2), acquisitions.Load())
}

func TestCache_InjectedClockGovernsExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	cache, _ := newCache(authcache.WithClock(clock))
	var acquisitions atomic.Int32
	acquire := func(ctx context.Context) (authcache.Grant, error) {
		acquisitions.Add(1)
		return authcache.Grant{Value: "day-token", ExpiresIn: 24 * time.Hour}, nil
	}
	policy := authcache.Policy{Margin: 5 * time.Minute}
	ctx := context.Background()

	for range 2 {
		_, err := cache.Token(ctx, "xpressbees:production:abc", policy, acquire)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), acquisitions.Load())

	advance(23*time.Hour + 54*time.Minute)
	_, err := cache.Token(ctx, "xpressbees:production:abc", policy, acquire)
	require.NoError(t, err)
	assert.Equal(t, int32(1), acquisitions.Load())

	advance(2 * time.Minute)
	_, err = cache.Token(ctx, "xpressbees:production:abc", policy, acquire)
	require.NoError(t, err)
	assert.Equal(t, int32(2), acquisitions.Load())
}

func TestCache_AcquireErrorNotCached(t *testing.T) {
	cache, _ := newCache()
	calls := 0
	acquire := func(ctx context.Context) (authcache.Grant, error) {
		calls++
		if calls == 1 {
			return authcache.Grant{}, shipper.FromHTTPStatus(shipper.CodeBigShip, 401, "bad password")
		}
		return authcache.Grant{Value: "ok", ExpiresIn: time.Hour}, nil
	}

	_, err := cache.Token(context.Background(), "scope", authcache.Policy{}, acquire)
	assert.ErrorIs(t, err, shipper.ErrAuthenticationFailed)

	tok, err := cache.Token(context.Background(), "scope", authcache.Policy{}, acquire)
	require.NoError(t, err)
	assert.Equal(t, "ok", tok)
}

func TestCache_EmptyTokenRejected(t *testing.T) {
	cache, _ := newCache()
	_, err := cache.Token(context.Background(), "scope", authcache.Policy{}, func(ctx context.Context) (authcache.Grant, error) {
		return authcache.Grant{}, nil
	})
	assert.ErrorIs(t, err, shipper.ErrAuthenticationFailed)
}

func TestCache_Do_RetriesOnceOnUnauthorized(t *testing.T) {
	cache, _ := newCache()
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 0)

	var seen []string
	err := cache.Do(context.Background(), "scope", authcache.Policy{}, acquire, func(ctx context.Context, token string) error {
		seen = append(seen, token)
		if token == "token-1" {
			return shipper.FromHTTPStatus(shipper.CodeShiprocket, 401, "token expired")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"token-1", "token-2"}, seen)
	assert.Equal(t, int32(2), acquisitions.Load())
}

func TestCache_Do_SurfacesSecondUnauthorized(t *testing.T) {
	cache, _ := newCache()
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 0)

	calls := 0
	err := cache.Do(context.Background(), "scope", authcache.Policy{}, acquire, func(ctx context.Context, token string) error {
		calls++
		return shipper.FromHTTPStatus(shipper.CodeShiprocket, 401, "still rejected")
	})

	assert.ErrorIs(t, err, shipper.ErrAuthenticationFailed)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(2), acquisitions.Load())
}

func TestCache_Do_OtherErrorsNotRetried(t *testing.T) {
	cache, _ := newCache()
	var acquisitions atomic.Int32
	acquire := countingAcquire(&acquisitions, 0)
	boom := errors.New("connection reset")

	calls := 0
	err := cache.Do(context.Background(), "scope", authcache.Policy{}, acquire, func(ctx context.Context, token string) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(1), acquisitions.Load())
}

func TestCache_CancelledCallerReturnsPromptly(t *testing.T) {
	cache, _ := newCache()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cache.Token(ctx, "scope", authcache.Policy{}, func(ctx context.Context) (authcache.Grant, error) {
		<-release
		return authcache.Grant{Value: "late"}, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCache_ExpiryFromJWTClaim(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("vendor-secret"))
	require.NoError(t, err)

	cache, store := newCache(authcache.WithClock(func() time.Time { return now }))
	_, err = cache.Token(context.Background(), "scope", authcache.Policy{Margin: 5 * time.Minute}, func(ctx context.Context) (authcache.Grant, error) {
		return authcache.Grant{Value: signed}, nil
	})
	require.NoError(t, err)

	tok, ok, err := store.Get(context.Background(), "scope")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 55*time.Minute, tok.TTL)
}

func TestPolicy_TTL(t *testing.T) {
	tests := []struct {
		name   string
		policy authcache.Policy
		expiry time.Duration
		want   time.Duration
	}{
		{"24h token with 5m margin", authcache.Policy{Margin: 5 * time.Minute}, 24 * time.Hour, 23*time.Hour + 55*time.Minute},
		{"12h token capped at 2h", authcache.Policy{MaxTTL: 2 * time.Hour, Margin: 5 * time.Minute}, 12 * time.Hour, 2 * time.Hour},
		{"default expiry", authcache.Policy{DefaultExpiry: 240 * time.Hour, Margin: time.Hour}, 0, 239 * time.Hour},
		{"no margin stays below expiry", authcache.Policy{}, time.Hour, 57 * time.Minute},
		{"margin larger than expiry", authcache.Policy{Margin: 2 * time.Hour}, time.Hour, 30 * time.Minute},
		{"nothing known", authcache.Policy{}, 0, 57 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.TTL(tt.expiry)
			assert.Equal(t, tt.want, got)
			expiry := tt.expiry
			if expiry == 0 {
				expiry = tt.policy.DefaultExpiry
			}
			if expiry == 0 {
				expiry = time.Hour
			}
			assert.Less(t, got, expiry)
		})
	}
}

func TestScopeKey_HidesPrincipal(t *testing.T) {
	key := authcache.ScopeKey(shipper.CodeBigShip, shipper.ModeProduction, "ops@example.com")
	assert.Contains(t, key, "bigship:production:")
	assert.NotContains(t, key, "ops@example.com")
	assert.Equal(t, key, authcache.ScopeKey(shipper.CodeBigShip, shipper.ModeProduction, "ops@example.com"))
	assert.NotEqual(t, key, authcache.ScopeKey(shipper.CodeBigShip, shipper.ModeTest, "ops@example.com"))
}

func TestExpiryFromJWT_Opaque(t *testing.T) {
	_, ok := authcache.ExpiryFromJWT("opaque-session-token", time.Now())
	assert.False(t, ok)
}
