package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/arsalyy/greeka-todo-api/api"
	"github.com/arsalyy/greeka-todo-api/config"
	"github.com/arsalyy/greeka-todo-api/domain"
	"github.com/arsalyy/greeka-todo-api/events"
	"github.com/arsalyy/greeka-todo-api/storage"
)

type pingableStore interface {
	domain.TaskStore
	api.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
		log.SetLevel(log.DebugLevel)
	}
	log.SetFormatter(&log.JSONFormatter{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		base pingableStore
		pool *pgxpool.Pool
	)
	if cfg.Postgres.URL == "" {
		logger.Warn("DATABASE_URL not set; tasks are kept in memory")
		base = storage.NewMemoryStore()
	} else {
		pool, err = storage.Connect(ctx, storage.PostgresConfig{
			URL:            cfg.Postgres.URL,
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectTimeout: cfg.Postgres.ConnectTimeout,
		})
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		defer pool.Close()
		if cfg.Postgres.MigrateOnStart {
			if err := storage.Migrate(pool); err != nil {
				log.Fatalf("migrate: %v", err)
			}
		}
		base = storage.NewPostgresStore(pool)
	}

	var store domain.TaskStore = base
	if cfg.Redis.ConnectionString != "" {
		redisOpts, err := storage.ParseRedisOptions(cfg.Redis.ConnectionString)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		rc := redis.NewClient(redisOpts)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis not reachable; cache reads will fall back to the store")
		}
		store = storage.NewCache(base, rc, cfg.Redis.TaskTTL)
	}

	var (
		notifier   domain.ChangeNotifier
		dispatcher *events.Dispatcher
	)
	if cfg.Events.Enabled() {
		pub, err := events.NewQueuePublisher(cfg.Events.StorageConnectionString, cfg.Events.Queue)
		if err != nil {
			log.Fatalf("events: %v", err)
		}
		dispatcher = events.NewDispatcher(pub, events.Config{
			Workers:        cfg.Events.Workers,
			Buffer:         cfg.Events.Buffer,
			PublishTimeout: cfg.Events.PublishTimeout,
			HandoffTimeout: cfg.Events.HandoffTimeout,
		}, logger)
		notifier = dispatcher
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
	}))

	api.Register(e, domain.NewTaskService(store, notifier), base, logger)

	go func() {
		if err := e.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil {
			logger.WithError(err).Error("event dispatcher drain")
		}
	}
}
