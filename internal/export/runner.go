package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	DefaultPollInterval = 2 * time.Second
	maxDiagnostics      = 4096
)

// Renderer renders a timeline to a file.
type Renderer interface {
	Render(ctx context.Context, tl *timeline.Timeline, output string, progress render.ProgressFunc) (*render.Result, error)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	OutputDir    string
	FrameRate    int // EDL timecode rate
	PollInterval time.Duration
	Publisher    cloud.Publisher
	Notifier     cloud.Notifier
	Logger       *slog.Logger
}

// Runner polls for pending exports and executes them one at a time.
type Runner struct {
	repo         project.Repository
	renderer     Renderer
	publisher    cloud.Publisher
	notifier     cloud.Notifier
	outputDir    string
	frameRate    int
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

func NewRunner(repo project.Repository, renderer Renderer, cfg RunnerConfig) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = engine.DefaultProfile().FrameRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = cloud.NewStubPublisher(cfg.Logger)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = cloud.NopNotifier{}
	}
	return &Runner{
		repo:         repo,
		renderer:     renderer,
		publisher:    cfg.Publisher,
		notifier:     cfg.Notifier,
		outputDir:    cfg.OutputDir,
		frameRate:    cfg.FrameRate,
		logger:       cfg.Logger,
		pollInterval: cfg.PollInterval,
		active:       make(map[string]context.CancelFunc),
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("export runner started", "poll_interval", r.pollInterval.String())

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("export runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextExport(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("export runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("export runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Cancel interrupts an export that is currently executing. It reports false
// when the export is not running here.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.active[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// ActiveCount returns the number of exports executing right now.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Runner) processNextExport(ctx context.Context) bool {
	exports, err := r.repo.ListPendingExports(ctx)
	if err != nil {
		r.logger.Error("failed to list pending exports", "error", err)
		return false
	}
	if len(exports) == 0 {
		return false
	}
	r.process(ctx, exports[0])
	return true
}

func (r *Runner) process(ctx context.Context, e *project.Export) {
	logger := r.logger.With("export_id", e.ID, "format", e.Format)
	logger.Info("processing export", "project_id", e.ProjectID)

	// Terminal bookkeeping must land even when ctx is being shut down.
	store := context.WithoutCancel(ctx)

	tl, err := timeline.Decode([]byte(e.SnapshotJSON))
	if err != nil {
		r.fail(store, e, fmt.Sprintf("invalid snapshot: %v", err), "")
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.active[e.ID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, e.ID)
		r.mu.Unlock()
		cancel()
	}()

	claimed, err := r.repo.ClaimExport(store, e.ID)
	if err != nil {
		logger.Error("failed to mark export running", "error", err)
		return
	}
	if !claimed {
		logger.Info("export no longer pending, skipping")
		return
	}

	output := outputPath(r.outputDir, e.ID, filepath.Base(e.OutputPath))
	switch e.Format {
	case project.FormatEDL:
		err = r.writeEDL(store, tl, e, output)
	default:
		_, err = r.renderer.Render(jobCtx, tl, output, func(done, total int) {
			pct := done * 100 / total
			if pct >= 100 {
				pct = 99
			}
			if perr := r.repo.UpdateExportProgress(store, e.ID, pct); perr != nil {
				logger.Warn("failed to record export progress", "error", perr)
			}
		})
	}

	if err != nil {
		switch {
		case ctx.Err() != nil:
			r.fail(store, e, "interrupted by shutdown", "")
		case jobCtx.Err() != nil:
			r.cancelled(store, e)
		default:
			r.fail(store, e, err.Error(), diagnostics(err))
		}
		return
	}

	location, err := r.publisher.Publish(jobCtx, e.ID, output)
	if err != nil {
		r.fail(store, e, fmt.Sprintf("publish: %v", err), "")
		return
	}
	if err := r.repo.CompleteExport(store, e.ID, output, location); err != nil {
		logger.Error("failed to record completed export", "error", err)
		return
	}
	logger.Info("export completed", "output", output, "location", location)
	r.notify(store, e, project.ExportStatusCompleted, location, "")
}

func (r *Runner) writeEDL(ctx context.Context, tl *timeline.Timeline, e *project.Export, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	title := e.ProjectID
	if p, err := r.repo.GetProject(ctx, e.ProjectID); err == nil && p != nil {
		title = p.Name
	}
	edl := GenerateEDL(ClipsFromTimeline(tl), title, float64(r.frameRate))
	return os.WriteFile(output, []byte(edl), 0o644)
}

func (r *Runner) fail(ctx context.Context, e *project.Export, msg, diag string) {
	r.logger.Error("export failed", "export_id", e.ID, "error", msg)
	if err := r.repo.FailExport(ctx, e.ID, msg, diag); err != nil {
		r.logger.Error("failed to record export failure", "export_id", e.ID, "error", err)
	}
	r.notify(ctx, e, project.ExportStatusFailed, "", msg)
}

func (r *Runner) cancelled(ctx context.Context, e *project.Export) {
	r.logger.Info("export cancelled", "export_id", e.ID)
	if err := r.repo.UpdateExportStatus(ctx, e.ID, project.ExportStatusCancelled, ""); err != nil {
		r.logger.Error("failed to record export cancellation", "export_id", e.ID, "error", err)
	}
	r.notify(ctx, e, project.ExportStatusCancelled, "", "")
}

func (r *Runner) notify(ctx context.Context, e *project.Export, status, location, msg string) {
	err := r.notifier.Notify(ctx, cloud.ExportEvent{
		ExportID:   e.ID,
		ProjectID:  e.ProjectID,
		Status:     status,
		Location:   location,
		Error:      msg,
		FinishedAt: time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("export notification failed", "export_id", e.ID, "error", err)
	}
}

// diagnostics extracts the engine output tail carried by err, if any.
func diagnostics(err error) string {
	var runErr *engine.RunError
	if !errors.As(err, &runErr) {
		return ""
	}
	return truncateStr(runErr.Output, maxDiagnostics)
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}
