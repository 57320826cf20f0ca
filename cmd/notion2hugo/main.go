package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/attilastrba/notion2hugo/internal/config"
	"github.com/attilastrba/notion2hugo/internal/export"
	"github.com/attilastrba/notion2hugo/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	configFile := flag.String("config", "", "YAML config file (overrides "+config.ConfigFileEnv+")")
	publish := flag.String("publish", "", "publish mode: ask, yes or no (overrides PUBLISH_MODE)")
	flag.Parse()

	_ = godotenv.Load(*envFile)
	if *configFile != "" {
		os.Setenv(config.ConfigFileEnv, *configFile)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *publish != "" {
		cfg.PublishMode = *publish
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var confirmer export.Confirmer
	switch cfg.PublishMode {
	case config.PublishAsk:
		confirmer = export.NewPromptConfirmer(os.Stdin, os.Stdout)
	case config.PublishYes:
		confirmer = export.AutoConfirm(true)
	}

	runner, closeRunner, err := pipeline.NewRunnerFromConfig(ctx, cfg, pipeline.Build{
		Clean:     cfg.CleanOutput,
		Confirmer: confirmer,
	}, log)
	if err != nil {
		log.Error("setup failed", "error", err)
		os.Exit(1)
	}
	defer closeRunner()

	log.Info("start processing", "database_id", cfg.NotionDatabaseID, "output_dir", cfg.OutputDir)
	sum, err := runner.Run(ctx, nil)
	if err != nil {
		log.Error("export failed", "error", err)
		closeRunner()
		os.Exit(1)
	}
	if sum.Failed > 0 {
		log.Warn("some documents failed", "failed", sum.Failed, "exported", sum.Exported)
		closeRunner()
		os.Exit(2)
	}
	log.Info("processing completed", "exported", sum.Exported, "published", sum.Published)
}
