package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/periodclose/internal/app"
	"github.com/odyssey-erp/periodclose/internal/close"
	closehttp "github.com/odyssey-erp/periodclose/internal/close/http"
	"github.com/odyssey-erp/periodclose/internal/platform/cache"
	"github.com/odyssey-erp/periodclose/internal/rbac"
	"github.com/odyssey-erp/periodclose/jobs"
	"github.com/odyssey-erp/periodclose/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	logger := app.NewLogger(cfg, "periodclose")
	slog.SetDefault(logger)

	rt, err := app.NewRuntime(ctx, cfg, "periodclose", logger)
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
	inspector := asynq.NewInspector(redisOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("close inspector", slog.Any("error", err))
		}
	}()

	pdf := report.NewClient(cfg.GotenbergURL)
	renderer, err := report.NewRenderer(pdf)
	if err != nil {
		logger.Error("init report renderer", slog.Any("error", err))
		os.Exit(1)
	}

	rbacMiddleware := rbac.Middleware{Service: rt.Roles, Logger: logger}
	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		CloseHandler:  closehttp.NewHandler(logger, rt.Service),
		RolesHandler:  rbac.NewHandler(logger, rt.Roles, rbacMiddleware, close.RoleSystemManager),
		JobHandler:    jobs.NewHandler(inspector, logger),
		ReportHandler: report.NewHandler(pdf, renderer, rt.Service, logger),
		Metrics:       rt.Metrics,
		Health: map[string]app.Pinger{
			"postgres": rt.Pool,
			"redis":    cache.Pinger{Client: rt.Redis},
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
