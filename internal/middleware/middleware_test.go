package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/apperrors"
	"github.com/helenjin/databases-proj-group27/internal/config"
	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/model"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

type fixedIdentity string

func (f fixedIdentity) Identify(*http.Request) model.Identity {
	return model.Identity{Username: string(f)}
}

type failingLeaser struct{}

func (f *failingLeaser) Lease(context.Context) *database.Lease {
	return database.FailedLease(apperrors.ErrConnection)
}

func TestConnStoresLease(t *testing.T) {
	e := echo.New()
	var got error
	e.GET("/", func(c echo.Context) error {
		_, got = database.ConnFrom(c.Request().Context())
		return c.NoContent(http.StatusOK)
	}, Conn(&failingLeaser{}))

	serve(e, http.MethodGet, "/")
	assert.ErrorIs(t, got, apperrors.ErrConnection)
}

func TestIdentifyStoresIdentity(t *testing.T) {
	e := echo.New()
	var got model.Identity
	e.GET("/", func(c echo.Context) error {
		got = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	}, Identify(fixedIdentity("ada")))
	e.GET("/anon", func(c echo.Context) error {
		got = IdentityFrom(c)
		return c.NoContent(http.StatusOK)
	})

	serve(e, http.MethodGet, "/")
	assert.Equal(t, "ada", got.Username)

	serve(e, http.MethodGet, "/anon")
	assert.True(t, got.IsAnonymous())
}

func limits(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_route",
		Prefix:         "rl",
	}
}

func TestTokenBucketBlocksWhenEmpty(t *testing.T) {
	_, rdb := newRedis(t)
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(limits(2), rdb, zap.NewNop()))

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodPost, "/login")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := serve(e, http.MethodPost, "/login")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestTokenBucketRefills(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := limits(1)
	cfg.RefillInterval = 50 * time.Millisecond
	cfg.TTL = time.Minute
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, rdb, zap.NewNop()))

	require.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login").Code)
	require.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/login").Code)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login").Code)
	assert.Len(t, mr.Keys(), 1)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(limits(1), rdb, zap.NewNop()))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login").Code)
	}
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := limits(1)
	cfg.Enabled = false
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(cfg, nil, zap.NewNop()))
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/login")
	SetIdentity(c, model.Identity{Username: "ada"})

	tests := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:ada",
		"ip_route":   "rl:ip:10.0.0.1:route:POST /login",
		"user_route": "rl:user:ada:route:POST /login",
		"":           "rl:ip:10.0.0.1:user:ada:route:POST /login",
	}
	for strategy, want := range tests {
		cfg := limits(1)
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, buildRateKey(cfg, c), strategy)
	}
}

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestCacheReplaysResponse(t *testing.T) {
	_, rdb := newRedis(t)
	calls := 0
	e := echo.New()
	e.GET("/movies", func(c echo.Context) error {
		calls++
		return c.HTML(http.StatusOK, "<ul><li>Alien</li></ul>")
	}, NewRedisCache(cacheConfig(), rdb, zap.NewNop()))

	first := serve(e, http.MethodGet, "/movies")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := serve(e, http.MethodGet, "/movies")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
	assert.Equal(t, 1, calls)
}

func TestCacheKeyVariesByUser(t *testing.T) {
	_, rdb := newRedis(t)
	calls := 0
	who := "ada"
	e := echo.New()
	e.GET("/movies", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "hello "+IdentityFrom(c).Username)
	}, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetIdentity(c, model.Identity{Username: who})
			return next(c)
		}
	}, NewRedisCache(cacheConfig(), rdb, zap.NewNop()))

	assert.Equal(t, "hello ada", serve(e, http.MethodGet, "/movies").Body.String())
	who = "alan"
	assert.Equal(t, "hello alan", serve(e, http.MethodGet, "/movies").Body.String())
	assert.Equal(t, 2, calls)
}

func TestCacheSkipsErrorsAndLargeBodies(t *testing.T) {
	mr, rdb := newRedis(t)
	cfg := cacheConfig()
	cfg.MaxBodyBytes = 8
	e := echo.New()
	mw := NewRedisCache(cfg, rdb, zap.NewNop())
	e.GET("/missing", func(c echo.Context) error { return c.String(http.StatusNotFound, "no") }, mw)
	e.GET("/big", func(c echo.Context) error { return c.String(http.StatusOK, strings.Repeat("x", 64)) }, mw)
	e.GET("/fail", func(c echo.Context) error { return errors.New("boom") }, mw)

	serve(e, http.MethodGet, "/missing")
	serve(e, http.MethodGet, "/big")
	serve(e, http.MethodGet, "/fail")
	assert.Empty(t, mr.Keys())
}

func TestCacheStoresPageAsHashWithTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	e := echo.New()
	e.GET("/genres", func(c echo.Context) error {
		return c.HTML(http.StatusOK, "<ul><li>Drama</li></ul>")
	}, NewRedisCache(cacheConfig(), rdb, zap.NewNop()))

	serve(e, http.MethodGet, "/genres")
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, "<ul><li>Drama</li></ul>", mr.HGet(keys[0], pageBody))
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, mr.HGet(keys[0], pageContentType))
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))
}

func TestCacheIgnoresEntryWithoutBody(t *testing.T) {
	mr, rdb := newRedis(t)
	calls := 0
	e := echo.New()
	e.GET("/genres", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "fresh")
	}, NewRedisCache(cacheConfig(), rdb, zap.NewNop()))

	serve(e, http.MethodGet, "/genres")
	key := mr.Keys()[0]
	mr.HDel(key, pageBody)

	rec := serve(e, http.MethodGet, "/genres")
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestBucketTake(t *testing.T) {
	cfg := limits(2)
	now := time.UnixMilli(1_700_000_000_000)

	b, ok, _ := bucket{}.take(now, cfg)
	require.True(t, ok)
	assert.Equal(t, bucket{Tokens: 1, LastRefill: now.UnixMilli()}, b)

	b, ok, _ = b.take(now, cfg)
	require.True(t, ok)
	_, ok, retry := b.take(now.Add(20*time.Second), cfg)
	assert.False(t, ok)
	assert.Equal(t, 40*time.Second, retry)

	// three intervals later the bucket is full again, never above capacity
	b, ok, _ = b.take(now.Add(3*time.Minute), cfg)
	require.True(t, ok)
	assert.Equal(t, int64(1), b.Tokens)
	assert.Equal(t, now.Add(3*time.Minute).UnixMilli(), b.LastRefill)
}

func TestMetricsCountsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/movies/:title", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/gone", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) })
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	serve(e, http.MethodGet, "/movies/Heat")
	serve(e, http.MethodGet, "/movies/Alien")
	serve(e, http.MethodGet, "/gone")
	serve(e, http.MethodGet, "/boom")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/movies/:title", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/gone", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/boom", "500")))
}
