package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/config"
)

// bucket is the per-key limiter state, kept in a Redis hash so every server
// instance shares it.
type bucket struct {
	Tokens     int64
	LastRefill int64 // unix ms; zero means the key did not exist
}

// take credits the refills due since LastRefill and spends one token if
// one is left. When the bucket is empty, retry is the wait until the next
// refill.
func (b bucket) take(now time.Time, cfg config.RateLimitConfig) (next bucket, allowed bool, retry time.Duration) {
	nowMs := now.UnixMilli()
	if b.LastRefill == 0 {
		b = bucket{Tokens: int64(cfg.Capacity), LastRefill: nowMs}
	}
	interval := cfg.RefillInterval.Milliseconds()
	if interval > 0 && cfg.RefillTokens > 0 {
		if n := max(nowMs-b.LastRefill, 0) / interval; n > 0 {
			b.Tokens = min(int64(cfg.Capacity), b.Tokens+n*int64(cfg.RefillTokens))
			b.LastRefill += n * interval
		}
	}
	if b.Tokens > 0 {
		b.Tokens--
		return b, true, 0
	}
	wait := max(interval-(nowMs-b.LastRefill), 0)
	return b, false, time.Duration(wait) * time.Millisecond
}

const maxSpendAttempts = 3

// spend runs take against the stored bucket under WATCH, retrying when a
// concurrent request for the same key got there first.
func spend(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string) (b bucket, allowed bool, retry time.Duration, err error) {
	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, key, "tokens", "last_refill_ms").Result()
		if err != nil {
			return err
		}
		cur := bucket{Tokens: asInt64(vals[0]), LastRefill: asInt64(vals[1])}
		b, allowed, retry = cur.take(time.Now(), cfg)
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, key, "tokens", b.Tokens, "last_refill_ms", b.LastRefill)
			if cfg.TTL > 0 {
				p.Expire(ctx, key, cfg.TTL)
			}
			return nil
		})
		return err
	}
	for range maxSpendAttempts {
		err = rdb.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return b, allowed, retry, err
		}
	}
	return b, allowed, retry, err
}

// NewTokenBucket throttles form submissions. When Redis is unreachable the
// request goes through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			b, allowed, retry, err := spend(c.Request().Context(), rdb, cfg, key)
			if err != nil {
				logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(b.Tokens, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if allowed {
				return next(c)
			}

			secs := max(int(math.Ceil(retry.Seconds())), 1)
			h.Set("Retry-After", strconv.Itoa(secs))
			logger.Info("rate limited", zap.String("key", key), zap.Duration("retry", retry))
			return echo.NewHTTPError(http.StatusTooManyRequests,
				fmt.Sprintf("Too many attempts. Try again in %d seconds.", secs))
		}
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	user := currentUser(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", user)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", user)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", user, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", user, "route", route)
	}
	return strings.Join(parts, ":")
}

func currentUser(c echo.Context) string {
	if id := IdentityFrom(c); !id.IsAnonymous() {
		return id.Username
	}
	return "anon"
}
