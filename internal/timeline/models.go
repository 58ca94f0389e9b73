// Package timeline holds the declarative model of a composition: layered,
// time-bounded segments on a shared global clock plus the canvas they are
// composited onto.
package timeline

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCanvasWidth  = 1920
	DefaultCanvasHeight = 1080
)

// Kind identifies the concrete segment type.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Timeline is the full composition. Width and Height of zero mean "unset";
// callers resolve them through Canvas.
type Timeline struct {
	Width  int             `json:"width,omitempty"`
	Height int             `json:"height,omitempty"`
	Videos []*VideoSegment `json:"videos"`
	Images []*ImageSegment `json:"images"`
	Texts  []*TextSegment  `json:"texts"`
	Audios []*AudioSegment `json:"audios"`
}

// Point is an offset in canvas pixels relative to the centered placement.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Base carries the fields every segment kind shares.
type Base struct {
	ID            string    `json:"id"`
	Layer         int       `json:"layer"`
	TimelineStart float64   `json:"timeline_start"`
	TimelineEnd   float64   `json:"timeline_end"`
	Filters       FilterSet `json:"filters"`
	// FilterClock is the time filters see at the segment's start. The right
	// half of a split continues the clock of the original segment.
	FilterClock float64 `json:"filter_clock,omitempty"`
}

func (b *Base) base() *Base { return b }

// Duration returns the length of the segment on the timeline.
func (b *Base) Duration() float64 {
	return b.TimelineEnd - b.TimelineStart
}

// Overlaps reports whether [start, end) intersects the segment's window.
func (b *Base) Overlaps(start, end float64) bool {
	return start < b.TimelineEnd && end > b.TimelineStart
}

// Segment is implemented by every concrete segment kind.
type Segment interface {
	Kind() Kind
	base() *Base
	clone() Segment
}

// BaseOf exposes the shared fields of any segment.
func BaseOf(s Segment) *Base {
	return s.base()
}

// Sourced is implemented by segments backed by a media file with a trim window.
type Sourced interface {
	Segment
	SourcePath() string
	SourceWindow() (start, end float64)
	SetSourceWindow(start, end float64)
}

type VideoSegment struct {
	Base
	Source         string  `json:"source"`
	SourceStart    float64 `json:"source_start"`
	SourceEnd      float64 `json:"source_end"`
	SourceDuration float64 `json:"source_duration,omitempty"`
	Scale          float64 `json:"scale,omitempty"`
	Position       *Point  `json:"position,omitempty"`
	Opacity        float64 `json:"opacity"`
	HasAudio       bool    `json:"has_audio"`
	Volume         float64 `json:"volume"`
}

func (v *VideoSegment) Kind() Kind { return KindVideo }
func (v *VideoSegment) SourcePath() string { return v.Source }
func (v *VideoSegment) SourceWindow() (float64, float64) { return v.SourceStart, v.SourceEnd }
func (v *VideoSegment) SetSourceWindow(start, end float64) {
	v.SourceStart, v.SourceEnd = start, end
}

func (v *VideoSegment) clone() Segment {
	c := *v
	c.Base = v.Base.cloneBase()
	c.Position = clonePoint(v.Position)
	return &c
}

type AudioSegment struct {
	Base
	Source         string  `json:"source"`
	SourceStart    float64 `json:"source_start"`
	SourceEnd      float64 `json:"source_end"`
	SourceDuration float64 `json:"source_duration,omitempty"`
	Volume         float64 `json:"volume"`
}

func (a *AudioSegment) Kind() Kind { return KindAudio }
func (a *AudioSegment) SourcePath() string { return a.Source }
func (a *AudioSegment) SourceWindow() (float64, float64) { return a.SourceStart, a.SourceEnd }
func (a *AudioSegment) SetSourceWindow(start, end float64) {
	a.SourceStart, a.SourceEnd = start, end
}

func (a *AudioSegment) clone() Segment {
	c := *a
	c.Base = a.Base.cloneBase()
	return &c
}

type ImageSegment struct {
	Base
	Source       string  `json:"source"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	CustomWidth  int     `json:"custom_width,omitempty"`
	CustomHeight int     `json:"custom_height,omitempty"`
	LockAspect   bool    `json:"lock_aspect"`
	Scale        float64 `json:"scale,omitempty"`
	Position     *Point  `json:"position,omitempty"`
	Opacity      float64 `json:"opacity"`
}

func (i *ImageSegment) Kind() Kind { return KindImage }

func (i *ImageSegment) clone() Segment {
	c := *i
	c.Base = i.Base.cloneBase()
	c.Position = clonePoint(i.Position)
	return &c
}

type TextSegment struct {
	Base
	Content   string    `json:"content"`
	Style     TextStyle `json:"style"`
	Position  *Point    `json:"position,omitempty"`
	Opacity   float64   `json:"opacity"`
	Keyframes Keyframes `json:"keyframes,omitempty"`
}

func (t *TextSegment) Kind() Kind { return KindText }

func (t *TextSegment) clone() Segment {
	c := *t
	c.Base = t.Base.cloneBase()
	c.Position = clonePoint(t.Position)
	c.Keyframes = t.Keyframes.clone()
	return &c
}

// AppliedFilter records one application of a catalog filter to a segment.
type AppliedFilter struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Params     map[string]string `json:"params,omitempty"`
	Expression string            `json:"expression"`
	AppliedAt  time.Time         `json:"applied_at"`
}

// NewID generates a segment identifier.
func NewID() string {
	return uuid.NewString()
}

// EffectiveScale treats an unset scale as 1.
func EffectiveScale(scale float64) float64 {
	if scale <= 0 {
		return 1
	}
	return scale
}

// EffectivePosition treats an unset position as the canvas center.
func EffectivePosition(p *Point) Point {
	if p == nil {
		return Point{}
	}
	return *p
}

func (b Base) cloneBase() Base {
	b.Filters = b.Filters.clone()
	return b
}

func clonePoint(p *Point) *Point {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
