package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultCacheTTL = 5 * time.Minute

// requiredFilters are the graph filters the compositor emits.
var requiredFilters = []string{
	"color", "trim", "setpts", "scale", "overlay", "drawtext",
	"atrim", "asetpts", "adelay", "amix", "volume", "anullsrc", "concat",
}

// DoctorRunner probes engine capabilities.
type DoctorRunner interface {
	RunDoctor(ctx context.Context) (*Capabilities, error)
}

// RunDoctor inspects the ffmpeg build for the encoder and filters the
// compositor relies on.
func (r *FFmpegRunner) RunDoctor(ctx context.Context) (*Capabilities, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()

	caps := &Capabilities{
		FFmpegPath:  r.ffmpeg,
		FFprobePath: r.ffprobe,
		HasFFprobe:  r.ffprobe != "",
	}

	var version bytes.Buffer
	if res, err := r.exec(ctx, r.ffmpeg, []string{"-hide_banner", "-version"}, &version); err != nil || !res.IsSuccess() {
		return nil, fmt.Errorf("ffmpeg -version failed: %v %s", err, truncate(res.OutputTail, 256))
	}
	caps.FFmpegVersion = parseVersion(version.String())

	var filters bytes.Buffer
	if res, err := r.exec(ctx, r.ffmpeg, []string{"-hide_banner", "-filters"}, &filters); err != nil || !res.IsSuccess() {
		return nil, fmt.Errorf("ffmpeg -filters failed: %v %s", err, truncate(res.OutputTail, 256))
	}
	available := parseListing(filters.String())
	for _, f := range requiredFilters {
		if !available[f] {
			caps.MissingFilters = append(caps.MissingFilters, f)
		}
	}
	caps.HasDrawtext = available["drawtext"]

	var encoders bytes.Buffer
	if res, err := r.exec(ctx, r.ffmpeg, []string{"-hide_banner", "-encoders"}, &encoders); err == nil && res.IsSuccess() {
		caps.HasLibx264 = parseListing(encoders.String())["libx264"]
	}
	caps.ProbedAt = time.Now()

	r.cfg.Logger.Info("engine doctor probe complete",
		"version", caps.FFmpegVersion,
		"drawtext", caps.HasDrawtext,
		"libx264", caps.HasLibx264,
		"missing_filters", caps.MissingFilters,
	)

	return caps, nil
}

// parseVersion extracts "6.1.1" from "ffmpeg version 6.1.1 Copyright ...".
func parseVersion(out string) string {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	if len(fields) >= 3 && fields[0] == "ffmpeg" && fields[1] == "version" {
		return fields[2]
	}
	return strings.TrimSpace(line)
}

// parseListing reads the name column of `ffmpeg -filters` / `-encoders`
// output: a flags column followed by the name.
func parseListing(out string) map[string]bool {
	names := make(map[string]bool)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || strings.HasSuffix(fields[0], ":") || strings.HasPrefix(fields[0], "-") {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

// CachedDoctor wraps a DoctorRunner to cache probe results with a TTL.
type CachedDoctor struct {
	runner DoctorRunner
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around doctor probes.
func NewCachedDoctor(runner DoctorRunner, logger *slog.Logger) *CachedDoctor {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedDoctor{
		runner: runner,
		ttl:    defaultCacheTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.runner.RunDoctor(ctx)
	if err != nil {
		d.logger.Warn("engine doctor probe failed", "error", err)
		if d.cached != nil {
			d.logger.Info("returning stale capabilities cache")
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}

// Invalidate clears the cached capabilities.
func (d *CachedDoctor) Invalidate() {
	d.mu.Lock()
	d.cached = nil
	d.mu.Unlock()
}
