package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	maxOutputBytes = 8 * 1024 // 8 KB tail of engine output kept for diagnostics
	killGrace      = 5 * time.Second
)

// Runner executes engine commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) (RunResult, error)
}

// Prober reads source media metadata.
type Prober interface {
	Probe(ctx context.Context, path string) (*MediaInfo, error)
}

// Config holds the runner's configuration.
type Config struct {
	FFmpegPath   string        // empty = look up "ffmpeg" on PATH
	FFprobePath  string        // empty = look up "ffprobe" on PATH
	Timeout      time.Duration // hard limit per invocation
	ProbeTimeout time.Duration
	Logger       *slog.Logger
	DebugPaths   bool // if true, log full file paths; otherwise sanitise
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		Timeout:      5 * time.Minute,
		ProbeTimeout: 30 * time.Second,
		Logger:       logger,
	}
}

// FFmpegRunner is the production implementation of Runner and Prober.
type FFmpegRunner struct {
	cfg     Config
	ffmpeg  string
	ffprobe string // empty when ffprobe is unavailable
}

// NewRunner creates an FFmpegRunner, resolving the engine binaries.
func NewRunner(cfg Config) (*FFmpegRunner, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 30 * time.Second
	}

	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}
	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		cfg.Logger.Warn("ffprobe not found, source probing disabled", "error", err)
		ffprobe = ""
	}

	cfg.Logger.Info("engine runner initialised",
		"ffmpeg", ffmpeg,
		"ffprobe", ffprobe,
		"timeout", cfg.Timeout.String(),
	)

	return &FFmpegRunner{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

// Run executes one command under the configured hard timeout. A timeout kills
// the whole process group and yields ErrRenderTimeout; a non-zero exit yields
// a *RunError.
func (r *FFmpegRunner) Run(ctx context.Context, cmd Command) (RunResult, error) {
	if cmd.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cmd.Output), 0755); err != nil {
			return RunResult{ExitCode: -1}, fmt.Errorf("cannot create output dir: %w", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	args := cmd.Args()
	result, err := r.exec(runCtx, r.ffmpeg, args, nil)
	result.OutputPath = cmd.Output

	switch {
	case ctx.Err() != nil:
		return result, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		r.cfg.Logger.Warn("engine command timed out",
			"timeout", r.cfg.Timeout.String(),
			"output", r.safePath(cmd.Output),
		)
		return result, fmt.Errorf("%w after %s", ErrRenderTimeout, r.cfg.Timeout)
	case err != nil:
		return result, fmt.Errorf("cannot start engine: %w", err)
	case !result.IsSuccess():
		return result, &RunError{ExitCode: result.ExitCode, Output: result.OutputTail, Args: args}
	}
	return result, nil
}

// Probe reads duration, dimensions and stream presence with ffprobe.
func (r *FFmpegRunner) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	if r.ffprobe == "" {
		return nil, errors.New("ffprobe is not available")
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	var stdout bytes.Buffer
	result, err := r.exec(ctx, r.ffprobe, []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}, &stdout)
	if err != nil {
		return nil, fmt.Errorf("cannot run ffprobe: %w", err)
	}
	if !result.IsSuccess() {
		return nil, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, truncate(result.OutputTail, 512))
	}
	return parseProbe(stdout.Bytes())
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseProbe(data []byte) (*MediaInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	info := &MediaInfo{}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.Width, info.Height = s.Width, s.Height
			}
			info.HasVideo = true
			if info.Duration == 0 {
				if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
					info.Duration = d
				}
			}
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}

// exec is the core subprocess execution helper. Combined output is tailed
// into the result unless stdout is given, in which case only stderr is.
func (r *FFmpegRunner) exec(ctx context.Context, bin string, args []string, stdout io.Writer) (RunResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = killGrace

	var tail bytes.Buffer
	lw := &limitedWriter{w: &tail, limit: maxOutputBytes}
	cmd.Stderr = lw
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = lw
	}

	r.cfg.Logger.Debug("executing engine command",
		"binary", filepath.Base(bin),
		"args", len(args),
	)

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			err = nil
		} else if ctx.Err() != nil {
			exitCode = -1
			err = nil
		} else {
			exitCode = -1
		}
	}

	outputTail := tail.String()

	if exitCode != 0 {
		r.cfg.Logger.Warn("engine command failed",
			"binary", filepath.Base(bin),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"output_tail", truncate(outputTail, 512),
		)
	} else {
		r.cfg.Logger.Debug("engine command succeeded",
			"binary", filepath.Base(bin),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputTail: outputTail,
		Duration:   elapsed,
	}, err
}

func (r *FFmpegRunner) safePath(path string) string {
	if r.cfg.DebugPaths {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(path)
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return filepath.Base(path)
}

// resolveBinary finds an engine binary, preferring the configured path.
func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", name, preferred)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("no %s binary found on PATH", name)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
