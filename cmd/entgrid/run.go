package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/entgrid-io/entgrid/internal/engine"
	"github.com/entgrid-io/entgrid/internal/infrastructure/config"
	"github.com/entgrid-io/entgrid/internal/infrastructure/database"
	"github.com/entgrid-io/entgrid/internal/infrastructure/migration"
	"github.com/entgrid-io/entgrid/internal/infrastructure/scheduler"
	"github.com/entgrid-io/entgrid/internal/shared/biztime"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the entitlement engine daemon",
		Long:  `Runs schema migrations, then starts the async job workers and the periodic maintenance sweeps.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon()
		},
	}
}

func runDaemon() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	biztime.MustInit("")

	if err := database.Init(&cfg.Database); err != nil {
		log.Fatalw("failed to initialize database", "error", err)
	}
	defer database.Close()

	if err := migration.Run(database.Get()); err != nil {
		log.Fatalw("failed to run migrations", "error", err)
	}

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

	sched, err := scheduler.NewManager(eng.Jobs(), log)
	if err != nil {
		log.Fatalw("failed to create scheduler", "error", err)
	}
	if err := sched.RegisterPoolSweep(
		time.Duration(cfg.Engine.PoolSweepMinutes) * time.Minute); err != nil {
		log.Fatalw("failed to register pool sweep", "error", err)
	}
	if err := sched.RegisterOrphanSweep(
		time.Duration(cfg.Engine.OrphanSweepMinutes) * time.Minute); err != nil {
		log.Fatalw("failed to register orphan sweep", "error", err)
	}
	sched.Start()

	log.Infow("entitlement engine started",
		"workers", cfg.Engine.JobWorkers,
		"pool_sweep_minutes", cfg.Engine.PoolSweepMinutes,
		"orphan_sweep_minutes", cfg.Engine.OrphanSweepMinutes,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Infow("received signal, shutting down", "signal", sig)

	if err := sched.Stop(); err != nil {
		log.Errorw("scheduler shutdown failed", "error", err)
	}
	eng.StopWorkers()
	cancel()

	log.Infow("entitlement engine stopped")
	return nil
}
