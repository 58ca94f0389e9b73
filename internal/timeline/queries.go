package timeline

import (
	"fmt"
	"math"
	"sort"
)

// New returns an empty timeline on the given canvas.
func New(width, height int) *Timeline {
	return &Timeline{
		Width:  width,
		Height: height,
		Videos: []*VideoSegment{},
		Images: []*ImageSegment{},
		Texts:  []*TextSegment{},
		Audios: []*AudioSegment{},
	}
}

// All returns every segment of every kind.
func (tl *Timeline) All() []Segment {
	out := make([]Segment, 0, len(tl.Videos)+len(tl.Images)+len(tl.Texts)+len(tl.Audios))
	for _, s := range tl.Videos {
		out = append(out, s)
	}
	for _, s := range tl.Images {
		out = append(out, s)
	}
	for _, s := range tl.Texts {
		out = append(out, s)
	}
	for _, s := range tl.Audios {
		out = append(out, s)
	}
	return out
}

// Find looks a segment up by id across all kinds.
func (tl *Timeline) Find(id string) (Segment, error) {
	for _, s := range tl.All() {
		if s.base().ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
}

// SegmentsOnLayer returns the segments on a layer ordered by start time.
func (tl *Timeline) SegmentsOnLayer(layer int) []Segment {
	var out []Segment
	for _, s := range tl.All() {
		if s.base().Layer == layer {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].base().TimelineStart < out[j].base().TimelineStart
	})
	return out
}

// MaxLayer returns the highest layer in use, or 0 for an empty timeline.
func (tl *Timeline) MaxLayer() int {
	top := 0
	for _, s := range tl.All() {
		if l := s.base().Layer; l > top {
			top = l
		}
	}
	return top
}

// IsIntervalFree reports whether [start, end) on layer intersects no segment
// other than those named in exclude.
func (tl *Timeline) IsIntervalFree(start, end float64, layer int, exclude ...string) bool {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	for _, s := range tl.All() {
		b := s.base()
		if b.Layer != layer || skip[b.ID] {
			continue
		}
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// LayerEnd returns the end of the last segment on a layer, or 0.
func (tl *Timeline) LayerEnd(layer int) float64 {
	end := 0.0
	for _, s := range tl.SegmentsOnLayer(layer) {
		end = math.Max(end, s.base().TimelineEnd)
	}
	return end
}

// Insert adds a segment after checking its bounds and layer freedom.
func (tl *Timeline) Insert(s Segment) error {
	b := s.base()
	if err := validateBounds(b); err != nil {
		return err
	}
	if !tl.IsIntervalFree(b.TimelineStart, b.TimelineEnd, b.Layer, b.ID) {
		return fmt.Errorf("%w: [%g, %g) on layer %d", ErrTimelineOverlap, b.TimelineStart, b.TimelineEnd, b.Layer)
	}
	if _, err := tl.Find(b.ID); err == nil {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidSegment, b.ID)
	}
	switch seg := s.(type) {
	case *VideoSegment:
		tl.Videos = append(tl.Videos, seg)
	case *ImageSegment:
		tl.Images = append(tl.Images, seg)
	case *TextSegment:
		tl.Texts = append(tl.Texts, seg)
	case *AudioSegment:
		tl.Audios = append(tl.Audios, seg)
	default:
		return fmt.Errorf("%w: unsupported kind %T", ErrInvalidSegment, s)
	}
	return nil
}

// Remove deletes a segment by id.
func (tl *Timeline) Remove(id string) error {
	if i := indexOf(tl.Videos, id); i >= 0 {
		tl.Videos = append(tl.Videos[:i], tl.Videos[i+1:]...)
		return nil
	}
	if i := indexOf(tl.Images, id); i >= 0 {
		tl.Images = append(tl.Images[:i], tl.Images[i+1:]...)
		return nil
	}
	if i := indexOf(tl.Texts, id); i >= 0 {
		tl.Texts = append(tl.Texts[:i], tl.Texts[i+1:]...)
		return nil
	}
	if i := indexOf(tl.Audios, id); i >= 0 {
		tl.Audios = append(tl.Audios[:i], tl.Audios[i+1:]...)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
}

// Clear removes every segment but keeps the canvas.
func (tl *Timeline) Clear() {
	tl.Videos = []*VideoSegment{}
	tl.Images = []*ImageSegment{}
	tl.Texts = []*TextSegment{}
	tl.Audios = []*AudioSegment{}
}

// Clone returns a deep copy sharing no mutable state with tl.
func (tl *Timeline) Clone() *Timeline {
	c := New(tl.Width, tl.Height)
	for _, s := range tl.Videos {
		c.Videos = append(c.Videos, s.clone().(*VideoSegment))
	}
	for _, s := range tl.Images {
		c.Images = append(c.Images, s.clone().(*ImageSegment))
	}
	for _, s := range tl.Texts {
		c.Texts = append(c.Texts, s.clone().(*TextSegment))
	}
	for _, s := range tl.Audios {
		c.Audios = append(c.Audios, s.clone().(*AudioSegment))
	}
	return c
}

// CloneSegment deep-copies a single segment.
func CloneSegment(s Segment) Segment {
	return s.clone()
}

// HasVisualContent reports whether anything would be drawn.
func (tl *Timeline) HasVisualContent() bool {
	return len(tl.Videos) > 0 || len(tl.Images) > 0 || len(tl.Texts) > 0
}

// Duration is the end of the latest segment of any kind.
func (tl *Timeline) Duration() float64 {
	d := 0.0
	for _, s := range tl.All() {
		d = math.Max(d, s.base().TimelineEnd)
	}
	return d
}

// Canvas resolves the output size, falling back to the given defaults.
func (tl *Timeline) Canvas(defaultW, defaultH int) (int, int) {
	w, h := tl.Width, tl.Height
	if w <= 0 {
		w = defaultW
	}
	if h <= 0 {
		h = defaultH
	}
	return w, h
}

// Validate checks bounds of every segment and the no-overlap rule per layer.
func (tl *Timeline) Validate() error {
	seen := make(map[string]bool)
	for _, s := range tl.All() {
		b := s.base()
		if b.ID == "" {
			return fmt.Errorf("%w: missing id", ErrInvalidSegment)
		}
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidSegment, b.ID)
		}
		seen[b.ID] = true
		if err := validateBounds(b); err != nil {
			return err
		}
		if !tl.IsIntervalFree(b.TimelineStart, b.TimelineEnd, b.Layer, b.ID) {
			return fmt.Errorf("%w: segment %s", ErrTimelineOverlap, b.ID)
		}
		if t, ok := s.(*TextSegment); ok {
			if err := t.Style.Validate(); err != nil {
				return fmt.Errorf("%w: segment %s: %v", ErrInvalidSegment, b.ID, err)
			}
		}
	}
	return nil
}

func validateBounds(b *Base) error {
	if b.TimelineStart < 0 || !(b.TimelineStart < b.TimelineEnd) {
		return fmt.Errorf("%w: bounds [%g, %g)", ErrInvalidSegment, b.TimelineStart, b.TimelineEnd)
	}
	return nil
}

func indexOf[T Segment](list []T, id string) int {
	for i, s := range list {
		if s.base().ID == id {
			return i
		}
	}
	return -1
}
