package router

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/config"
	"github.com/helenjin/databases-proj-group27/internal/handler"
	"github.com/helenjin/databases-proj-group27/internal/middleware"
	"github.com/helenjin/databases-proj-group27/internal/service"
)

// Deps is everything the HTTP layer needs from main.
type Deps struct {
	DB           handler.Pinger
	Provider     middleware.Leaser
	Auth         *service.AuthService
	Redis        *redis.Client
	Cache        config.CacheConfig
	RateLimit    config.RateLimitConfig
	QueryTimeout time.Duration
	Renderer     echo.Renderer
	// Registry receives the HTTP metrics and backs /metrics. Optional.
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// New builds the echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = d.Renderer
	e.HTTPErrorHandler = handler.NewErrorHandler(d.Logger)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	if d.Registry != nil {
		e.Use(middleware.NewMetrics(d.Registry).Middleware())
	}
	e.Use(accessLog(d.Logger))

	RegisterRoutes(e, d)

	// Every page needs a connection and the caller's identity, in that order.
	page := []echo.MiddlewareFunc{middleware.Conn(d.Provider), middleware.Identify(d.Auth)}

	RegisterBrowse(e, handler.NewBrowseHandler(d.QueryTimeout), page, middleware.NewRedisCache(d.Cache, d.Redis, d.Logger))
	RegisterAuth(e, handler.NewAuthHandler(d.Auth), page, middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	RegisterGuestbook(e, handler.NewGuestbookHandler(d.QueryTimeout), page)
	return e
}

// RegisterRoutes registers the operational endpoints: health and metrics.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	if d.Registry != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}
}

func accessLog(logger *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	})
}
