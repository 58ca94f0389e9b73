package editor

import (
	"context"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type AddVideoRequest struct {
	Source      string          `json:"source"`
	Layer       int             `json:"layer"`
	Start       *float64        `json:"start,omitempty"`
	SourceStart float64         `json:"source_start"`
	SourceEnd   *float64        `json:"source_end,omitempty"`
	Scale       float64         `json:"scale,omitempty"`
	Position    *timeline.Point `json:"position,omitempty"`
	Opacity     *float64        `json:"opacity,omitempty"`
	Volume      *float64        `json:"volume,omitempty"`
}

type AddAudioRequest struct {
	Source      string   `json:"source"`
	Layer       int      `json:"layer"`
	Start       *float64 `json:"start,omitempty"`
	SourceStart float64  `json:"source_start"`
	SourceEnd   *float64 `json:"source_end,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`
}

type AddImageRequest struct {
	Source       string          `json:"source"`
	Layer        int             `json:"layer"`
	Start        *float64        `json:"start,omitempty"`
	Duration     float64         `json:"duration,omitempty"`
	CustomWidth  int             `json:"custom_width,omitempty"`
	CustomHeight int             `json:"custom_height,omitempty"`
	LockAspect   *bool           `json:"lock_aspect,omitempty"`
	Scale        float64         `json:"scale,omitempty"`
	Position     *timeline.Point `json:"position,omitempty"`
	Opacity      *float64        `json:"opacity,omitempty"`
}

type AddTextRequest struct {
	Content  string              `json:"content"`
	Layer    int                 `json:"layer"`
	Start    *float64            `json:"start,omitempty"`
	Duration float64             `json:"duration,omitempty"`
	Style    *timeline.TextStyle `json:"style,omitempty"`
	Position *timeline.Point     `json:"position,omitempty"`
	Opacity  *float64            `json:"opacity,omitempty"`
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// sourceWindow resolves the trim window of a new sourced segment.
func sourceWindow(start float64, end *float64, probed float64) (float64, float64, error) {
	if start < 0 {
		return 0, 0, invalid("source_start %v is negative", start)
	}
	stop := probed
	if end != nil {
		stop = *end
	}
	if stop <= start {
		if end == nil {
			return 0, 0, invalid("source duration unknown; source_end is required")
		}
		return 0, 0, invalid("source window [%v, %v) is empty", start, stop)
	}
	if probed > 0 && stop > probed+contiguityTolerance {
		return 0, 0, invalid("source_end %v exceeds source duration %v", stop, probed)
	}
	return start, stop, nil
}

// AddVideo appends a video clip. Without a start time it is placed after the
// last segment on its layer.
func (s *Service) AddVideo(ctx context.Context, sessionID string, req AddVideoRequest) (*timeline.VideoSegment, error) {
	info, err := s.probe(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	srcStart, srcEnd, err := sourceWindow(req.SourceStart, req.SourceEnd, info.Duration)
	if err != nil {
		return nil, err
	}
	opacity, volume := valueOr(req.Opacity, 1), valueOr(req.Volume, 1)
	if err := checkUnit("opacity", opacity); err != nil {
		return nil, err
	}
	if err := checkVolume(volume); err != nil {
		return nil, err
	}
	if err := checkScale(req.Scale); err != nil {
		return nil, err
	}

	seg := &timeline.VideoSegment{
		Base:           timeline.Base{ID: timeline.NewID(), Layer: req.Layer},
		Source:         req.Source,
		SourceStart:    srcStart,
		SourceEnd:      srcEnd,
		SourceDuration: info.Duration,
		Scale:          req.Scale,
		Position:       copyPoint(req.Position),
		Opacity:        opacity,
		HasAudio:       info.HasAudio,
		Volume:         volume,
	}
	_, err = s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg.TimelineStart = place(tl, req.Layer, req.Start)
		seg.TimelineEnd = seg.TimelineStart + (srcEnd - srcStart)
		return tl.Insert(seg)
	})
	if err != nil {
		return nil, err
	}
	return timeline.CloneSegment(seg).(*timeline.VideoSegment), nil
}

// AddAudio appends an audio clip.
func (s *Service) AddAudio(ctx context.Context, sessionID string, req AddAudioRequest) (*timeline.AudioSegment, error) {
	info, err := s.probe(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	srcStart, srcEnd, err := sourceWindow(req.SourceStart, req.SourceEnd, info.Duration)
	if err != nil {
		return nil, err
	}
	volume := valueOr(req.Volume, 1)
	if err := checkVolume(volume); err != nil {
		return nil, err
	}

	seg := &timeline.AudioSegment{
		Base:           timeline.Base{ID: timeline.NewID(), Layer: req.Layer},
		Source:         req.Source,
		SourceStart:    srcStart,
		SourceEnd:      srcEnd,
		SourceDuration: info.Duration,
		Volume:         volume,
	}
	_, err = s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg.TimelineStart = place(tl, req.Layer, req.Start)
		seg.TimelineEnd = seg.TimelineStart + (srcEnd - srcStart)
		return tl.Insert(seg)
	})
	if err != nil {
		return nil, err
	}
	return timeline.CloneSegment(seg).(*timeline.AudioSegment), nil
}

// AddImage places a still image for req.Duration seconds.
func (s *Service) AddImage(ctx context.Context, sessionID string, req AddImageRequest) (*timeline.ImageSegment, error) {
	info, err := s.probe(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	duration := req.Duration
	if duration == 0 {
		duration = DefaultStillDuration
	}
	if duration < 0 {
		return nil, invalid("duration %v is negative", duration)
	}
	if req.CustomWidth < 0 || req.CustomHeight < 0 {
		return nil, invalid("custom size %dx%d is negative", req.CustomWidth, req.CustomHeight)
	}
	opacity := valueOr(req.Opacity, 1)
	if err := checkUnit("opacity", opacity); err != nil {
		return nil, err
	}
	if err := checkScale(req.Scale); err != nil {
		return nil, err
	}
	lock := true
	if req.LockAspect != nil {
		lock = *req.LockAspect
	}

	seg := &timeline.ImageSegment{
		Base:         timeline.Base{ID: timeline.NewID(), Layer: req.Layer},
		Source:       req.Source,
		Width:        info.Width,
		Height:       info.Height,
		CustomWidth:  req.CustomWidth,
		CustomHeight: req.CustomHeight,
		LockAspect:   lock,
		Scale:        req.Scale,
		Position:     copyPoint(req.Position),
		Opacity:      opacity,
	}
	_, err = s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg.TimelineStart = place(tl, req.Layer, req.Start)
		seg.TimelineEnd = seg.TimelineStart + duration
		return tl.Insert(seg)
	})
	if err != nil {
		return nil, err
	}
	return timeline.CloneSegment(seg).(*timeline.ImageSegment), nil
}

// AddText places a text overlay for req.Duration seconds.
func (s *Service) AddText(ctx context.Context, sessionID string, req AddTextRequest) (*timeline.TextSegment, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, invalid("text content is empty")
	}
	duration := req.Duration
	if duration == 0 {
		duration = DefaultStillDuration
	}
	if duration < 0 {
		return nil, invalid("duration %v is negative", duration)
	}
	style := timeline.DefaultTextStyle()
	if req.Style != nil {
		style = *req.Style
	}
	if err := style.Validate(); err != nil {
		return nil, invalid("%v", err)
	}
	opacity := valueOr(req.Opacity, 1)
	if err := checkUnit("opacity", opacity); err != nil {
		return nil, err
	}

	seg := &timeline.TextSegment{
		Base:     timeline.Base{ID: timeline.NewID(), Layer: req.Layer},
		Content:  req.Content,
		Style:    style,
		Position: copyPoint(req.Position),
		Opacity:  opacity,
	}
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg.TimelineStart = place(tl, req.Layer, req.Start)
		seg.TimelineEnd = seg.TimelineStart + duration
		return tl.Insert(seg)
	})
	if err != nil {
		return nil, err
	}
	return timeline.CloneSegment(seg).(*timeline.TextSegment), nil
}

// Remove deletes a segment.
func (s *Service) Remove(sessionID, segmentID string) error {
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		return tl.Remove(segmentID)
	})
	return err
}

// Clear removes every segment. There is no undo.
func (s *Service) Clear(sessionID string) error {
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		tl.Clear()
		return nil
	})
	return err
}

// SetCanvas changes the output size.
func (s *Service) SetCanvas(sessionID string, width, height int) (*timeline.Timeline, error) {
	if width <= 0 || height <= 0 || width%2 != 0 || height%2 != 0 {
		return nil, invalid("canvas %dx%d must be positive and even", width, height)
	}
	return s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		tl.Width, tl.Height = width, height
		return nil
	})
}
