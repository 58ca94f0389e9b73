package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/fonts"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// renderStack is the engine-facing half of the service, shared by serve and
// the one-shot render command.
type renderStack struct {
	runner       *engine.FFmpegRunner
	resolver     assets.Resolver
	orchestrator *render.Orchestrator
}

func newS3Client(ctx context.Context, cfg *config.EnvConfig) (*s3.Client, error) {
	s := cfg.S3()
	client, err := cloud.NewS3Client(ctx, cloud.S3Config{
		Region:    s.Region,
		Endpoint:  s.Endpoint,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		PathStyle: s.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("build s3 client: %w", err)
	}
	return client, nil
}

func newRenderStack(ctx context.Context, cfg *config.EnvConfig, logger *slog.Logger) (*renderStack, error) {
	engineCfg := engine.DefaultConfig(logging.WithComponent(logger, "engine"))
	engineCfg.FFmpegPath = cfg.FFmpegPath()
	engineCfg.FFprobePath = cfg.FFprobePath()
	engineCfg.Timeout = cfg.RenderTimeout()
	engineCfg.ProbeTimeout = cfg.ProbeTimeout()

	runner, err := engine.NewRunner(engineCfg)
	if err != nil {
		return nil, err
	}

	chain := assets.Chain{}
	if cfg.S3AssetsEnabled() {
		client, err := newS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		chain = append(chain, assets.NewS3Resolver(client, cfg.CacheDir(), logging.WithComponent(logger, "assets")))
	}
	chain = append(chain, assets.NewLocalResolver(cfg.MediaRoot()))

	fontResolver := fonts.NewResolver(fonts.Config{
		Aliases:     cfg.FontAliases(),
		DefaultFont: cfg.DefaultFont(),
		Logger:      logging.WithComponent(logger, "fonts"),
	})

	width, height := cfg.CanvasSize()
	renderLogger := logging.WithComponent(logger, "render")
	compiler := render.NewCompiler(chain, fontResolver, engine.DefaultProfile(), renderLogger)
	orchestrator := render.NewOrchestrator(runner, compiler, render.Config{
		Workers:             cfg.RenderWorkers(),
		WorkDir:             cfg.WorkDir(),
		KeepFailedArtifacts: cfg.KeepFailedArtifacts(),
		CanvasWidth:         width,
		CanvasHeight:        height,
		Logger:              renderLogger,
	})

	return &renderStack{runner: runner, resolver: chain, orchestrator: orchestrator}, nil
}

// validateTimeline rejects documents that break the timeline invariants.
func validateTimeline(tl *timeline.Timeline) error {
	if err := tl.Validate(); err != nil {
		return fmt.Errorf("invalid timeline: %w", err)
	}
	return nil
}
