package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/api"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/editor"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/filters"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/session"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editing API and export runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, origins)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "Extra browser origin allowed by CORS (repeatable)")
	return cmd
}

func runServe(cmdCtx context.Context, cctx *commandContext, origins []string) error {
	startTime := time.Now()

	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := cctx.logger

	for _, dir := range []string{cfg.DataDir(), cfg.CacheDir(), cfg.ExportDir(), cfg.WorkDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := export.ValidateExportDir(cfg.ExportDir()); err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return errors.New("another heimdex-editor instance is already using this data dir")
	}
	defer lock.Unlock()

	logger.Info("starting heimdex editor", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir()))
	if f := cfg.File(); f != "" {
		logger.Info("loaded config file", "path", logging.SanitizePath(f))
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stack, err := newRenderStack(ctx, cfg, logger)
	if err != nil {
		return err
	}

	doctor := engine.NewCachedDoctor(stack.runner, logging.WithComponent(logger, "doctor"))
	doctorCtx, doctorCancel := context.WithTimeout(ctx, cfg.ProbeTimeout())
	if caps, err := doctor.Refresh(doctorCtx); err != nil {
		logger.Warn("initial engine probe failed", "error", err)
	} else {
		logger.Info("engine capabilities detected",
			"ffmpeg", caps.FFmpegVersion,
			"drawtext", caps.HasDrawtext,
			"libx264", caps.HasLibx264,
			"missing_filters", caps.MissingFilters,
		)
		if !caps.Ready() {
			logger.Warn("engine is missing features, renders may fail")
		}
	}
	doctorCancel()

	width, height := cfg.CanvasSize()
	projects := project.NewStore(repo, logging.WithComponent(logger, "project"))
	sessions := session.NewManager(projects, session.Config{
		IdleTimeout:   cfg.SessionIdleTimeout(),
		SweepInterval: cfg.SweepInterval(),
		CanvasWidth:   width,
		CanvasHeight:  height,
		Logger:        logging.WithComponent(logger, "session"),
	})
	go sessions.Run(ctx)

	catalog := filters.NewCatalog()
	editorSvc := editor.NewService(sessions, catalog, stack.resolver, stack.runner, logging.WithComponent(logger, "editor"))

	publisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	var notifier cloud.Notifier = cloud.NopNotifier{}
	if url := cfg.WebhookURL(); url != "" {
		notifier = cloud.NewWebhookNotifier(url, cfg.WebhookToken(), logging.WithComponent(logger, "webhook"))
	}

	exportRunner := export.NewRunner(repo, stack.orchestrator, export.RunnerConfig{
		OutputDir:    cfg.ExportDir(),
		PollInterval: cfg.ExportPollInterval(),
		Publisher:    publisher,
		Notifier:     notifier,
		Logger:       logging.WithComponent(logger, "export"),
	})
	go exportRunner.Start(ctx)
	exports := export.NewService(sessions, repo, exportRunner, logging.WithComponent(logger, "export"))

	apiServer := api.NewServer(api.ServerConfig{
		Port:           cfg.Port(),
		AllowedOrigins: origins,
		Editor:         editorSvc,
		Sessions:       sessions,
		Projects:       projects,
		Repository:     repo,
		Exports:        exports,
		Runner:         exportRunner,
		Planner:        stack.orchestrator,
		Catalog:        catalog,
		Doctor:         doctor,
		Logger:         logger,
		StartTime:      startTime,
		Version:        config.Version,
	})

	printBanner(cfg.Port(), authToken)

	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	logger.Info("initiating graceful shutdown")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete", "open_sessions", sessions.Len())
	return nil
}

func newPublisher(ctx context.Context, cfg *config.EnvConfig, logger *slog.Logger) (cloud.Publisher, error) {
	bucket := cfg.PublishBucket()
	if bucket == "" {
		return cloud.NewStubPublisher(logger), nil
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing exports to object storage", "bucket", bucket, "prefix", cfg.PublishPrefix())
	return cloud.NewS3Publisher(client, bucket, cfg.PublishPrefix(), logging.WithComponent(logger, "publish")), nil
}

func printBanner(port int, token string) {
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  HEIMDEX EDITOR %-61s ║\n", "v"+config.Version)
	fmt.Println("╠═══════════════════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-47d ║\n", port)
	fmt.Printf("║  Auth Token: %-64s ║\n", token)
	fmt.Println("╚═══════════════════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func ensureAuthToken(repo project.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.AuthTokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.AuthTokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
