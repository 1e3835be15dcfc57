package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-clinic/meridian/internal/app"
	"github.com/meridian-clinic/meridian/internal/billing"
	jobmetrics "github.com/meridian-clinic/meridian/internal/jobs"
	"github.com/meridian-clinic/meridian/internal/numbering"
	"github.com/meridian-clinic/meridian/internal/platform/cache"
	"github.com/meridian-clinic/meridian/internal/platform/db"
	"github.com/meridian-clinic/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The worker audits whichever backend the server allocates from.
	// Asynq dials Redis itself, so a dedicated client exists only in
	// redis mode.
	var counterStore numbering.CounterStore
	if cfg.NumberingStore == "redis" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		counterStore = numbering.NewRedisStore(redisClient)
	} else {
		counterStore = numbering.NewPostgresStore(pool)
	}
	billingRepo := billing.NewRepository(pool)
	auditor := jobs.NewNumberingAuditor(counterStore, billingRepo, logger, jobmetrics.NewMetrics(nil))

	auditTask, err := jobs.NewNumberingAuditTask(jobs.NumberingAuditPayload{})
	if err != nil {
		logger.Error("build audit task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskNumberingAudit, Handler: auditor.HandleTask},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.AuditCron, Task: auditTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
