package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/config"
)

// captureWriter records status and body while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		cw.buf.Write(b[:min(int64(len(b)), remain)])
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// truncated reports whether more was written than the buffer kept.
func (cw *captureWriter) truncated() bool {
	return cw.limit > 0 && cw.size > cw.limit
}

// cacheKeyFrom hashes the request parts chosen by the key strategy. The
// caller's username is always included: every page shows who is logged in.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := []string{"user", currentUser(c)}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = append(parts, "route", r.URL.Path)
	case "method_route":
		parts = append(parts, "method", r.Method, "route", r.URL.Path)
	case "method_route_query":
		parts = append(parts, "method", r.Method, "route", r.URL.Path, "q", r.URL.RawQuery)
	default: // route_query
		parts = append(parts, "route", r.URL.Path, "q", r.URL.RawQuery)
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// Cached pages are Redis hashes. Only 200 responses are stored, so the
// status is implied.
const (
	pageContentType = "content_type"
	pageBody        = "body"
)

func loadPage(ctx context.Context, rdb *redis.Client, key string) (contentType string, body []byte, ok bool, err error) {
	fields, err := rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return "", nil, false, err
	}
	b, ok := fields[pageBody]
	if !ok {
		return "", nil, false, nil
	}
	return fields[pageContentType], []byte(b), true, nil
}

func storePage(ctx context.Context, rdb *redis.Client, key, contentType string, body []byte, ttl time.Duration) error {
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, pageContentType, contentType, pageBody, body)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

// NewRedisCache replays successful browse pages from Redis for TTL. Only
// 200 responses that fit in MaxBodyBytes are stored. Redis errors degrade to
// a cache miss.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}

			ctx := c.Request().Context()
			key := cacheKeyFrom(cfg, c)
			res := c.Response()

			contentType, body, hit, err := loadPage(ctx, rdb, key)
			if err != nil {
				logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
			}
			if hit {
				if contentType != "" {
					res.Header().Set(echo.HeaderContentType, contentType)
				}
				res.Header().Set("X-Cache", "HIT")
				res.WriteHeader(http.StatusOK)
				_, err := res.Write(body)
				return err
			}

			cw := &captureWriter{ResponseWriter: res.Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			res.Writer = cw
			res.Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.truncated() {
				return nil
			}

			ct := res.Header().Get(echo.HeaderContentType)
			if err := storePage(context.WithoutCancel(ctx), rdb, key, ct, cw.buf.Bytes(), ttl); err != nil {
				logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
