// Package editor implements the segment mutations. Every operation runs as
// one copy-on-write update of a session's timeline: either it succeeds as a
// whole or the timeline is left untouched.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/filters"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	// SplitMargin is the minimum distance of a split point from either edge.
	SplitMargin = 0.1

	// DefaultStillDuration is the length given to new images and texts.
	DefaultStillDuration = 5.0

	contiguityTolerance = 1e-6
	marginTolerance     = 1e-9
	maxVolume           = 4.0
)

// Service applies mutations to session timelines.
type Service struct {
	sessions *session.Manager
	catalog  *filters.Catalog
	assets   assets.Resolver
	prober   engine.Prober // may be nil
	logger   *slog.Logger
}

func NewService(sessions *session.Manager, catalog *filters.Catalog, resolver assets.Resolver, prober engine.Prober, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		catalog:  catalog,
		assets:   resolver,
		prober:   prober,
		logger:   logger,
	}
}

// Timeline returns a snapshot of the session's timeline.
func (s *Service) Timeline(sessionID string) (*timeline.Timeline, error) {
	return s.sessions.Get(sessionID)
}

// probe resolves a source and reads its metadata. A missing source is fatal;
// a failed probe only loses the metadata.
func (s *Service) probe(ctx context.Context, source string) (*engine.MediaInfo, error) {
	local, err := s.assets.Resolve(ctx, source)
	if err != nil {
		return nil, err
	}
	if s.prober == nil {
		return &engine.MediaInfo{HasAudio: true, HasVideo: true}, nil
	}
	info, err := s.prober.Probe(ctx, local)
	if err != nil {
		s.logger.Warn("source probe failed", "source", source, "error", err)
		return &engine.MediaInfo{HasAudio: true, HasVideo: true}, nil
	}
	return info, nil
}

// place resolves the start of a new segment: the requested time, or the end
// of the last segment on the layer.
func place(tl *timeline.Timeline, layer int, start *float64) float64 {
	if start != nil {
		return *start
	}
	return tl.LayerEnd(layer)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", timeline.ErrInvalidSegment, fmt.Sprintf(format, args...))
}

func checkUnit(name string, v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return invalid("%s %v out of range [0, 1]", name, v)
	}
	return nil
}

func checkVolume(v float64) error {
	if v < 0 || v > maxVolume || math.IsNaN(v) {
		return invalid("volume %v out of range [0, %v]", v, maxVolume)
	}
	return nil
}

func checkScale(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("scale %v must be positive", v)
	}
	return nil
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < contiguityTolerance
}
