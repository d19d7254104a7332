package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/helenjin/databases-proj-group27/internal/config"
	"github.com/helenjin/databases-proj-group27/internal/database"
	"github.com/helenjin/databases-proj-group27/internal/logging"
	"github.com/helenjin/databases-proj-group27/internal/queue"
	"github.com/helenjin/databases-proj-group27/internal/router"
	"github.com/helenjin/databases-proj-group27/internal/service"
	"github.com/helenjin/databases-proj-group27/internal/session"
	"github.com/helenjin/databases-proj-group27/internal/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.Migrate {
		if err := database.Migrate(cfg.DB, logger); err != nil {
			return err
		}
	}

	db, dialect, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected",
		zap.String("driver", string(dialect)),
		zap.String("dsn", logging.SanitizeDSN(cfg.DB.DataSourceName())),
	)

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "moviedb"),
	)

	keys := [][]byte{[]byte(cfg.Session.Secret)}
	if cfg.Session.EncryptionKey != "" {
		keys = append(keys, []byte(cfg.Session.EncryptionKey))
	}
	store := session.NewRedisStore(rdb, cfg.Session.KeyPrefix, keys...)
	store.Options.Secure = cfg.Session.Secure
	sessions := session.NewManager(store, cfg.Session.CookieName, cfg.Session.MaxAge)

	var events service.Publisher = service.NopPublisher{}
	if cfg.AMQP.URL != "" {
		events = service.NewAsyncPublisher(service.NewAMQPPublisher(cfg.AMQP.URL), logger)
		if cfg.AMQP.Consume {
			go func() {
				err := queue.StartAuditConsumer(ctx, cfg.AMQP.URL, cfg.AMQP.AuditDir, logger)
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	renderer, err := view.New()
	if err != nil {
		return err
	}

	e := router.New(router.Deps{
		DB:           db,
		Provider:     database.NewProvider(db, dialect, cfg.DB.AcquireTimeout, logger),
		Auth:         service.NewAuthService(sessions, events, cfg.BcryptCost, cfg.DB.QueryTimeout, logger),
		Redis:        rdb,
		Cache:        cfg.Cache,
		RateLimit:    cfg.RateLimit,
		QueryTimeout: cfg.DB.QueryTimeout,
		Renderer:     renderer,
		Registry:     reg,
		Logger:       logger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr()), zap.String("env", cfg.Env))
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
