// Standalone async job worker. Runs only the job coordinator, for
// deployments that keep job execution off the main daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/entgrid-io/entgrid/internal/engine"
	"github.com/entgrid-io/entgrid/internal/infrastructure/config"
	"github.com/entgrid-io/entgrid/internal/infrastructure/database"
	"github.com/entgrid-io/entgrid/internal/shared/biztime"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger()
	log.Infow("starting job worker")

	biztime.MustInit("")

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	eng := engine.New(database.Get(), redisClient, &cfg.Engine, log)
	eng.StartWorkers(ctx)

	log.Infow("job worker started", "workers", cfg.Engine.JobWorkers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infow("received signal, shutting down", "signal", sig)

	eng.StopWorkers()
	log.Infow("job worker stopped")
}
