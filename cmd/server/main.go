package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/attilastrba/notion2hugo/internal/api"
	"github.com/attilastrba/notion2hugo/internal/config"
	"github.com/attilastrba/notion2hugo/internal/export"
	"github.com/attilastrba/notion2hugo/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Each job gets its own media cache and export tree. Publish targets
	// are shared between jobs.
	newRunner := func(ctx context.Context, job *pipeline.Job) (*pipeline.Runner, func(), error) {
		b := pipeline.Build{
			DatabaseID: job.Request.DatabaseID,
			Filter:     job.Request.Filter,
			CacheDir:   pipeline.JobCacheDir(cfg, job.ID),
			OutputDir:  pipeline.JobOutputDir(cfg, job.ID),
		}
		if job.Request.Publish && cfg.PublishMode == config.PublishYes {
			b.Confirmer = export.AutoConfirm(true)
		}
		return pipeline.NewRunnerFromConfig(ctx, cfg, b, log.With("job_id", job.ID))
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, newRunner, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting notion2hugo server", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
