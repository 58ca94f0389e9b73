// Package render turns a timeline into one output file. The planner cuts the
// timeline into intervals over which the visible set is constant, the
// compiler turns each interval into an engine command, and the orchestrator
// runs them and stitches the results in time order.
package render

import (
	"errors"
	"math"
	"sort"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// ErrEmptyTimelineExport is returned when a timeline has nothing to draw.
var ErrEmptyTimelineExport = errors.New("timeline has no visual content")

const (
	boundaryEpsilon = 1e-9
	minInterval     = 0.001
)

// Element identifies one visible segment in a plan preview.
type Element struct {
	ID    string        `json:"id"`
	Kind  timeline.Kind `json:"kind"`
	Layer int           `json:"layer"`
}

// Interval is a span of time over which the visible set does not change.
type Interval struct {
	Index    int       `json:"index"`
	Start    float64   `json:"start"`
	End      float64   `json:"end"`
	Elements []Element `json:"elements"`

	// Visible holds the segments in layer-ascending order.
	Visible []timeline.Segment `json:"-"`
}

func (iv Interval) Duration() float64 { return iv.End - iv.Start }

// IsBackground reports whether nothing is visible in the interval.
func (iv Interval) IsBackground() bool { return len(iv.Visible) == 0 }

// Plan is the ordered interval decomposition of a timeline.
type Plan struct {
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Duration  float64    `json:"duration"`
	Intervals []Interval `json:"intervals"`
}

// rawBoundaries returns every segment start and end, unsorted, with
// duplicates.
func rawBoundaries(tl *timeline.Timeline) []float64 {
	segs := tl.All()
	out := make([]float64, 0, 2*len(segs))
	for _, s := range segs {
		b := timeline.BaseOf(s)
		out = append(out, b.TimelineStart, b.TimelineEnd)
	}
	return out
}

// Boundaries returns the sorted, de-duplicated boundary points including 0.
func Boundaries(tl *timeline.Timeline) []float64 {
	points := append([]float64{0}, rawBoundaries(tl)...)
	sort.Float64s(points)
	out := points[:0]
	for _, p := range points {
		if len(out) > 0 && math.Abs(p-out[len(out)-1]) <= boundaryEpsilon {
			continue
		}
		out = append(out, p)
	}
	return out
}

// NewPlan decomposes tl into render intervals. Canvas size falls back to the
// given defaults.
func NewPlan(tl *timeline.Timeline, defaultW, defaultH int) *Plan {
	w, h := tl.Canvas(defaultW, defaultH)
	plan := &Plan{Width: w, Height: h, Duration: tl.Duration()}

	segs := tl.All()
	points := Boundaries(tl)
	for i := 0; i+1 < len(points); i++ {
		start, end := points[i], points[i+1]
		if end-start <= minInterval {
			continue
		}
		iv := Interval{Index: len(plan.Intervals), Start: start, End: end}
		for _, s := range segs {
			b := timeline.BaseOf(s)
			if b.TimelineStart < end && b.TimelineEnd > start {
				iv.Visible = append(iv.Visible, s)
			}
		}
		sort.SliceStable(iv.Visible, func(a, b int) bool {
			return timeline.BaseOf(iv.Visible[a]).Layer < timeline.BaseOf(iv.Visible[b]).Layer
		})
		iv.Elements = make([]Element, 0, len(iv.Visible))
		for _, s := range iv.Visible {
			b := timeline.BaseOf(s)
			iv.Elements = append(iv.Elements, Element{ID: b.ID, Kind: s.Kind(), Layer: b.Layer})
		}
		plan.Intervals = append(plan.Intervals, iv)
	}
	return plan
}
