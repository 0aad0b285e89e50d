package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/periodclose/internal/app"
	"github.com/odyssey-erp/periodclose/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, "periodclose-worker")

	rt, err := app.NewRuntime(ctx, cfg, "worker", logger)
	if err != nil {
		logger.Error("init runtime", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close runtime", slog.Any("error", err))
		}
	}()

	redisOpt := cfg.AsynqRedis()
	client, err := jobs.NewClient(redisOpt)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close jobs client", slog.Any("error", err))
		}
	}()

	var mailer jobs.Mailer
	smtpMailer, err := jobs.NewSMTPMailer(cfg.SMTP())
	if err != nil {
		logger.Error("init mailer", slog.Any("error", err))
		os.Exit(1)
	}
	if smtpMailer != nil {
		mailer = smtpMailer
	} else {
		logger.Warn("SMTP_HOST is empty; mail tasks will only be logged")
	}

	if len(cfg.NotifyMailTo) == 0 {
		logger.Warn("NOTIFY_MAIL_TO is empty; closing notifications will only be logged")
	}
	notifyJob := jobs.NewNotifyScanJob(rt.Service, client, cfg.NotifyMailTo, logger, rt.Metrics.Jobs())
	notifyTask, err := jobs.NewNotifyScanTask(jobs.NotifyScanPayload{})
	if err != nil {
		logger.Error("build notify scan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpt,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Mailer:      mailer,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPeriodNotifyScan, Handler: notifyJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.NotifyCron, Task: notifyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
