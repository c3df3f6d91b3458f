package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/arsalyy/greeka-todo-api/config"
	"github.com/arsalyy/greeka-todo-api/events"
	"github.com/arsalyy/greeka-todo-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	ctx := context.Background()

	if cfg.Postgres.URL == "" {
		log.Fatal("missing DATABASE_URL")
	}
	pool, err := storage.Connect(ctx, storage.PostgresConfig{
		URL:            cfg.Postgres.URL,
		MaxConns:       2,
		ConnectTimeout: cfg.Postgres.ConnectTimeout,
	})
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	if err := storage.Migrate(pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	if cfg.Events.Enabled() {
		q, err := events.NewQueueClient(cfg.Events.StorageConnectionString, cfg.Events.Queue)
		if err != nil {
			log.Fatalf("create queue: %v", err)
		}
		if err := events.EnsureQueue(ctx, q); err != nil {
			log.Fatalf("create queue: %v", err)
		}
		log.WithField("queue", cfg.Events.Queue).Info("events queue ready")
	}

	log.Info("storage init complete")
}
