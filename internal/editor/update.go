package editor

import (
	"fmt"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// SegmentPatch repositions or retimes a segment. Nil fields are unchanged.
type SegmentPatch struct {
	Start       *float64        `json:"start,omitempty"`
	End         *float64        `json:"end,omitempty"`
	Layer       *int            `json:"layer,omitempty"`
	SourceStart *float64        `json:"source_start,omitempty"`
	SourceEnd   *float64        `json:"source_end,omitempty"`
	Position    *timeline.Point `json:"position,omitempty"`
	Scale       *float64        `json:"scale,omitempty"`
	Opacity     *float64        `json:"opacity,omitempty"`
	Volume      *float64        `json:"volume,omitempty"`
}

// Update applies a patch. A change of bounds or layer is checked against the
// other segments on the resulting layer.
func (s *Service) Update(sessionID, segmentID string, p SegmentPatch) (timeline.Segment, error) {
	var out timeline.Segment
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg, err := tl.Find(segmentID)
		if err != nil {
			return err
		}
		b := timeline.BaseOf(seg)
		start, end, layer := b.TimelineStart, b.TimelineEnd, b.Layer
		if p.Start != nil {
			start = *p.Start
		}
		if p.End != nil {
			end = *p.End
		} else if p.Start != nil {
			end = start + b.Duration()
		}
		if p.Layer != nil {
			layer = *p.Layer
		}
		if start < 0 || end <= start {
			return invalid("bounds [%g, %g) are empty or negative", start, end)
		}
		if start != b.TimelineStart || end != b.TimelineEnd || layer != b.Layer {
			if !tl.IsIntervalFree(start, end, layer, segmentID) {
				return fmt.Errorf("%w: [%g, %g) on layer %d", timeline.ErrTimelineOverlap, start, end, layer)
			}
		}

		if err := applyKindPatch(seg, p, end-start); err != nil {
			return err
		}
		b.TimelineStart, b.TimelineEnd, b.Layer = start, end, layer
		out = timeline.CloneSegment(seg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func applyKindPatch(seg timeline.Segment, p SegmentPatch, duration float64) error {
	if p.Opacity != nil {
		if err := checkUnit("opacity", *p.Opacity); err != nil {
			return err
		}
	}
	if p.Volume != nil {
		if err := checkVolume(*p.Volume); err != nil {
			return err
		}
	}
	if p.Scale != nil {
		if err := checkScale(*p.Scale); err != nil {
			return err
		}
	}

	switch v := seg.(type) {
	case *timeline.VideoSegment:
		start, end, err := patchWindow(v.SourceStart, v.SourceDuration, p, duration)
		if err != nil {
			return err
		}
		v.SourceStart, v.SourceEnd = start, end
		if p.Position != nil {
			v.Position = copyPoint(p.Position)
		}
		if p.Scale != nil {
			v.Scale = *p.Scale
		}
		if p.Opacity != nil {
			v.Opacity = *p.Opacity
		}
		if p.Volume != nil {
			v.Volume = *p.Volume
		}
	case *timeline.AudioSegment:
		start, end, err := patchWindow(v.SourceStart, v.SourceDuration, p, duration)
		if err != nil {
			return err
		}
		v.SourceStart, v.SourceEnd = start, end
		if p.Volume != nil {
			v.Volume = *p.Volume
		}
	case *timeline.ImageSegment:
		if p.Position != nil {
			v.Position = copyPoint(p.Position)
		}
		if p.Scale != nil {
			v.Scale = *p.Scale
		}
		if p.Opacity != nil {
			v.Opacity = *p.Opacity
		}
	case *timeline.TextSegment:
		if p.Position != nil {
			v.Position = copyPoint(p.Position)
		}
		if p.Opacity != nil {
			v.Opacity = *p.Opacity
		}
	}
	return nil
}

// patchWindow keeps playback speed constant: the source window always spans
// the timeline duration, anchored at the (possibly patched) source start.
func patchWindow(srcStart, srcDuration float64, p SegmentPatch, duration float64) (float64, float64, error) {
	if p.SourceStart != nil {
		srcStart = *p.SourceStart
	}
	srcEnd := srcStart + duration
	if p.SourceEnd != nil && !approxEqual(*p.SourceEnd, srcEnd) {
		return 0, 0, invalid("source window [%g, %g) does not match duration %g", srcStart, *p.SourceEnd, duration)
	}
	if srcStart < 0 {
		return 0, 0, invalid("source_start %g is negative", srcStart)
	}
	if srcDuration > 0 && srcEnd > srcDuration+contiguityTolerance {
		return 0, 0, invalid("source_end %g exceeds source duration %g", srcEnd, srcDuration)
	}
	return srcStart, srcEnd, nil
}

// TextPatch edits a text overlay. Nil fields are unchanged.
type TextPatch struct {
	Content *string             `json:"content,omitempty"`
	Style   *timeline.TextStyle `json:"style,omitempty"`
}

func (s *Service) UpdateText(sessionID, segmentID string, p TextPatch) (*timeline.TextSegment, error) {
	var out *timeline.TextSegment
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		txt, err := findText(tl, segmentID)
		if err != nil {
			return err
		}
		if p.Content != nil {
			if strings.TrimSpace(*p.Content) == "" {
				return invalid("text content is empty")
			}
			txt.Content = *p.Content
		}
		if p.Style != nil {
			if err := p.Style.Validate(); err != nil {
				return invalid("%v", err)
			}
			txt.Style = *p.Style
		}
		out = timeline.CloneSegment(txt).(*timeline.TextSegment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetKeyframe adds or replaces a sample of an animated text property. t is
// relative to the segment start.
func (s *Service) SetKeyframe(sessionID, segmentID, prop string, t, value float64) (*timeline.TextSegment, error) {
	var out *timeline.TextSegment
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		txt, err := findText(tl, segmentID)
		if err != nil {
			return err
		}
		if t > txt.Duration() {
			return invalid("keyframe time %g is past the segment duration %g", t, txt.Duration())
		}
		if err := txt.Keyframes.Set(prop, t, value); err != nil {
			return invalid("%v", err)
		}
		out = timeline.CloneSegment(txt).(*timeline.TextSegment)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveKeyframe deletes the sample of prop at t.
func (s *Service) RemoveKeyframe(sessionID, segmentID, prop string, t float64) error {
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		txt, err := findText(tl, segmentID)
		if err != nil {
			return err
		}
		if !txt.Keyframes.Remove(prop, t) {
			return fmt.Errorf("%w: no %s keyframe at %g", timeline.ErrSegmentNotFound, prop, t)
		}
		return nil
	})
	return err
}

func copyPoint(p *timeline.Point) *timeline.Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func findText(tl *timeline.Timeline, id string) (*timeline.TextSegment, error) {
	seg, err := tl.Find(id)
	if err != nil {
		return nil, err
	}
	txt, ok := seg.(*timeline.TextSegment)
	if !ok {
		return nil, invalid("segment %s is a %s, not text", id, seg.Kind())
	}
	return txt, nil
}
