package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const maxDefaultWorkers = 4

// Config configures an Orchestrator.
type Config struct {
	Workers             int    // 0 = NumCPU, capped at 4
	WorkDir             string // parent of per-render temp dirs; "" = os.TempDir
	KeepFailedArtifacts bool
	CanvasWidth         int
	CanvasHeight        int
	Logger              *slog.Logger
}

// ProgressFunc is called after each finished engine invocation.
type ProgressFunc func(done, total int)

// Result describes a finished render.
type Result struct {
	OutputPath   string        `json:"output_path"`
	Intervals    int           `json:"intervals"`
	Concatenated bool          `json:"concatenated"`
	Duration     float64       `json:"duration"`
	Size         int64         `json:"size"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Orchestrator plans, compiles and executes a timeline render.
type Orchestrator struct {
	runner   engine.Runner
	compiler *Compiler
	cfg      Config
	logger   *slog.Logger
}

func NewOrchestrator(runner engine.Runner, compiler *Compiler, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), maxDefaultWorkers)
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		cfg.CanvasWidth, cfg.CanvasHeight = timeline.DefaultCanvasWidth, timeline.DefaultCanvasHeight
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{runner: runner, compiler: compiler, cfg: cfg, logger: cfg.Logger}
}

// Plan decomposes tl with the configured canvas defaults.
func (o *Orchestrator) Plan(tl *timeline.Timeline) *Plan {
	return NewPlan(tl, o.cfg.CanvasWidth, o.cfg.CanvasHeight)
}

// Render writes tl to output. Intervals run in parallel; their outputs are
// joined in plan order. progress may be nil.
func (o *Orchestrator) Render(ctx context.Context, tl *timeline.Timeline, output string, progress ProgressFunc) (*Result, error) {
	if !tl.HasVisualContent() {
		return nil, ErrEmptyTimelineExport
	}
	started := time.Now()
	plan := o.Plan(tl)
	if len(plan.Intervals) == 0 {
		return nil, ErrEmptyTimelineExport
	}

	workDir, err := os.MkdirTemp(o.cfg.WorkDir, "render-")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	success := false
	defer func() {
		if success || ctx.Err() != nil || !o.cfg.KeepFailedArtifacts {
			os.RemoveAll(workDir)
			return
		}
		o.logger.Warn("keeping failed render artifacts", "work_dir", workDir)
	}()

	cmds := make([]engine.Command, len(plan.Intervals))
	for i, iv := range plan.Intervals {
		part := filepath.Join(workDir, fmt.Sprintf("part-%04d.mp4", iv.Index))
		cmd, err := o.compiler.Compile(ctx, plan, iv, part)
		if err != nil {
			return nil, err
		}
		cmds[i] = cmd
	}

	total := len(cmds)
	if total > 1 {
		total++
	}
	report := o.progress(progress, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Workers)
	for i := range cmds {
		cmd := cmds[i]
		idx := plan.Intervals[i].Index
		g.Go(func() error {
			if _, err := o.runner.Run(gctx, cmd); err != nil {
				return fmt.Errorf("interval %d: %w", idx, err)
			}
			report()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, o.failure(ctx, err)
	}

	res := &Result{OutputPath: output, Intervals: len(cmds), Duration: plan.Duration}
	if len(cmds) == 1 {
		if err := copyFile(cmds[0].Output, output); err != nil {
			return nil, fmt.Errorf("copy single interval: %w", err)
		}
	} else {
		if _, err := o.runner.Run(ctx, o.concat(plan, cmds, output)); err != nil {
			return nil, o.failure(ctx, fmt.Errorf("concat: %w", err))
		}
		res.Concatenated = true
		report()
	}

	success = true
	if fi, err := os.Stat(output); err == nil {
		res.Size = fi.Size()
	}
	res.Elapsed = time.Since(started)
	o.logger.Info("render finished",
		"output", output,
		"intervals", res.Intervals,
		"size", humanize.Bytes(uint64(res.Size)),
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// failure prefers the caller's cancellation over the engine error it caused.
func (o *Orchestrator) failure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var runErr *engine.RunError
	if errors.As(err, &runErr) {
		o.logger.Error("engine failed", "exit_code", runErr.ExitCode, "output", runErr.Output)
	}
	return err
}

func (o *Orchestrator) progress(fn ProgressFunc, total int) func() {
	if fn == nil {
		return func() {}
	}
	var mu sync.Mutex
	done := 0
	return func() {
		mu.Lock()
		defer mu.Unlock()
		done++
		fn(done, total)
	}
}

// concat joins the interval outputs in order, re-encoding with the shared
// profile. Intervals without audio get silence of their own length.
func (o *Orchestrator) concat(plan *Plan, parts []engine.Command, output string) engine.Command {
	profile := o.compiler.profile
	anyAudio := false
	for _, p := range parts {
		if p.AudioMap != "" {
			anyAudio = true
			break
		}
	}

	cmd := engine.Command{Profile: profile, VideoMap: "[vout]", Output: output}
	for _, p := range parts {
		cmd.Inputs = append(cmd.Inputs, engine.Input{Path: p.Output})
	}
	var sb strings.Builder
	for i, p := range parts {
		fmt.Fprintf(&sb, "[%d:v]", i)
		if !anyAudio {
			continue
		}
		if p.AudioMap != "" {
			fmt.Fprintf(&sb, "[%d:a]", i)
			continue
		}
		silence := fmt.Sprintf("anullsrc=r=%d:cl=%s", profile.SampleRate, profile.ChannelLayout())
		cmd.Inputs = append(cmd.Inputs, engine.Input{
			Path:    silence,
			Options: []string{"-f", "lavfi", "-t", engine.FormatSeconds(plan.Intervals[i].Duration())},
		})
		fmt.Fprintf(&sb, "[%d:a]", len(cmd.Inputs)-1)
	}
	if anyAudio {
		fmt.Fprintf(&sb, "concat=n=%d:v=1:a=1[vout][aout]", len(parts))
		cmd.AudioMap = "[aout]"
	} else {
		fmt.Fprintf(&sb, "concat=n=%d:v=1:a=0[vout]", len(parts))
	}
	cmd.Graph = sb.String()
	return cmd
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
