package editor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/engine"
	"github.com/heimdex/heimdex-editor/internal/filters"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

type fakeResolver map[string]bool

func (f fakeResolver) Resolve(ctx context.Context, logical string) (string, error) {
	if !f[logical] {
		return "", fmt.Errorf("%w: %s", assets.ErrMissingSourceAsset, logical)
	}
	return "/media/" + logical, nil
}

type fakeProber map[string]*engine.MediaInfo

func (f fakeProber) Probe(ctx context.Context, path string) (*engine.MediaInfo, error) {
	info, ok := f[path]
	if !ok {
		return nil, errors.New("probe failed")
	}
	return info, nil
}

type nopStore struct{}

func (nopStore) LoadTimeline(ctx context.Context, projectID string) (*timeline.Timeline, error) {
	return nil, errors.New("no projects")
}

func (nopStore) SaveTimeline(ctx context.Context, projectID string, tl *timeline.Timeline) error {
	return nil
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	sessions := session.NewManager(nopStore{}, session.Config{})
	info, err := sessions.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	resolver := fakeResolver{"clip.mp4": true, "music.mp3": true, "logo.png": true}
	prober := fakeProber{
		"/media/clip.mp4":  {Duration: 30, Width: 1280, Height: 720, HasVideo: true, HasAudio: true},
		"/media/music.mp3": {Duration: 120, HasAudio: true},
		"/media/logo.png":  {Width: 400, Height: 200, HasVideo: true},
	}
	return NewService(sessions, filters.NewCatalog(), resolver, prober, nil), info.ID
}

func f64(v float64) *float64 { return &v }

func addClip(t *testing.T, s *Service, sid string, start, srcStart, srcEnd float64) *timeline.VideoSegment {
	t.Helper()
	v, err := s.AddVideo(context.Background(), sid, AddVideoRequest{
		Source:      "clip.mp4",
		Start:       f64(start),
		SourceStart: srcStart,
		SourceEnd:   f64(srcEnd),
	})
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}
	return v
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestAddVideo_AppendsAfterLastSegment(t *testing.T) {
	s, sid := newTestService(t)
	ctx := context.Background()

	first, err := s.AddVideo(ctx, sid, AddVideoRequest{Source: "clip.mp4", SourceEnd: f64(4)})
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}
	second, err := s.AddVideo(ctx, sid, AddVideoRequest{Source: "clip.mp4", SourceStart: 10})
	if err != nil {
		t.Fatalf("AddVideo() error = %v", err)
	}

	if first.TimelineStart != 0 || first.TimelineEnd != 4 {
		t.Errorf("first = [%v, %v), want [0, 4)", first.TimelineStart, first.TimelineEnd)
	}
	if second.TimelineStart != 4 || second.TimelineEnd != 24 {
		t.Errorf("second = [%v, %v), want [4, 24)", second.TimelineStart, second.TimelineEnd)
	}
	if second.SourceDuration != 30 || !second.HasAudio {
		t.Errorf("probe metadata not recorded: %+v", second)
	}
	if second.Opacity != 1 || second.Volume != 1 {
		t.Errorf("defaults = opacity %v volume %v, want 1, 1", second.Opacity, second.Volume)
	}
}

func TestAddVideo_Rejections(t *testing.T) {
	s, sid := newTestService(t)
	ctx := context.Background()
	addClip(t, s, sid, 0, 0, 5)

	tests := []struct {
		name string
		req  AddVideoRequest
		want error
	}{
		{"overlap", AddVideoRequest{Source: "clip.mp4", Start: f64(2), SourceEnd: f64(3)}, timeline.ErrTimelineOverlap},
		{"missing source", AddVideoRequest{Source: "nope.mp4", Start: f64(10), SourceEnd: f64(3)}, assets.ErrMissingSourceAsset},
		{"past source end", AddVideoRequest{Source: "clip.mp4", Start: f64(10), SourceEnd: f64(31)}, timeline.ErrInvalidSegment},
		{"empty window", AddVideoRequest{Source: "clip.mp4", Start: f64(10), SourceStart: 3, SourceEnd: f64(3)}, timeline.ErrInvalidSegment},
		{"opacity", AddVideoRequest{Source: "clip.mp4", Start: f64(10), SourceEnd: f64(3), Opacity: f64(1.5)}, timeline.ErrInvalidSegment},
		{"volume", AddVideoRequest{Source: "clip.mp4", Start: f64(10), SourceEnd: f64(3), Volume: f64(5)}, timeline.ErrInvalidSegment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.AddVideo(ctx, sid, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("AddVideo() error = %v, want %v", err, tt.want)
			}
		})
	}

	tl, _ := s.Timeline(sid)
	if len(tl.Videos) != 1 {
		t.Errorf("timeline has %d videos after rejected adds, want 1", len(tl.Videos))
	}
}

func TestAddVideo_OtherLayerMayOverlap(t *testing.T) {
	s, sid := newTestService(t)
	addClip(t, s, sid, 0, 0, 5)

	if _, err := s.AddText(context.Background(), sid, AddTextRequest{Content: "hi", Layer: 1, Start: f64(1), Duration: 2}); err != nil {
		t.Fatalf("AddText() on another layer error = %v", err)
	}
	if _, err := s.AddText(context.Background(), sid, AddTextRequest{Content: "hi", Start: f64(1), Duration: 2}); !errors.Is(err, timeline.ErrTimelineOverlap) {
		t.Errorf("AddText() on occupied layer error = %v, want ErrTimelineOverlap", err)
	}
}

func TestAddImageAndText_Defaults(t *testing.T) {
	s, sid := newTestService(t)
	ctx := context.Background()

	img, err := s.AddImage(ctx, sid, AddImageRequest{Source: "logo.png"})
	if err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	if img.Duration() != DefaultStillDuration || !img.LockAspect || img.Width != 400 {
		t.Errorf("image = %+v", img)
	}

	txt, err := s.AddText(ctx, sid, AddTextRequest{Content: "Title", Layer: 2})
	if err != nil {
		t.Fatalf("AddText() error = %v", err)
	}
	if txt.Style != timeline.DefaultTextStyle() {
		t.Errorf("style = %+v, want default", txt.Style)
	}

	if _, err := s.AddText(ctx, sid, AddTextRequest{Content: "   ", Layer: 3}); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("blank text error = %v, want ErrInvalidSegment", err)
	}
	bad := timeline.DefaultTextStyle()
	bad.FontColor = "red"
	if _, err := s.AddText(ctx, sid, AddTextRequest{Content: "x", Layer: 3, Style: &bad}); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("bad color error = %v, want ErrInvalidSegment", err)
	}
}

func TestSplit_PreservesSourceWindow(t *testing.T) {
	s, sid := newTestService(t)
	v := addClip(t, s, sid, 2, 10, 20)

	left, right, err := s.Split(sid, v.ID, 6)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	l, r := left.(*timeline.VideoSegment), right.(*timeline.VideoSegment)
	if l.ID != v.ID || r.ID == v.ID {
		t.Errorf("ids = %s, %s; left should keep %s", l.ID, r.ID, v.ID)
	}
	if l.TimelineStart != 2 || l.TimelineEnd != 6 || r.TimelineStart != 6 || r.TimelineEnd != 12 {
		t.Errorf("bounds = [%v,%v) [%v,%v)", l.TimelineStart, l.TimelineEnd, r.TimelineStart, r.TimelineEnd)
	}
	if !near(l.SourceStart, 10) || !near(l.SourceEnd, 14) || !near(r.SourceStart, 14) || !near(r.SourceEnd, 20) {
		t.Errorf("source windows = [%v,%v) [%v,%v)", l.SourceStart, l.SourceEnd, r.SourceStart, r.SourceEnd)
	}

	tl, _ := s.Timeline(sid)
	if len(tl.Videos) != 2 {
		t.Errorf("timeline has %d videos, want 2", len(tl.Videos))
	}
}

func TestSplit_Margin(t *testing.T) {
	tests := []struct {
		name string
		at   float64
		ok   bool
	}{
		{"at start", 0, false},
		{"inside margin", 0.05, false},
		{"on margin", 0.1, false},
		{"past margin", 0.11, true},
		{"middle", 2.5, true},
		{"on end margin", 4.9, false},
		{"at end", 5, false},
		{"outside", 7, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, sid := newTestService(t)
			v := addClip(t, s, sid, 0, 0, 5)
			_, _, err := s.Split(sid, v.ID, tt.at)
			if tt.ok && err != nil {
				t.Errorf("Split(%v) error = %v", tt.at, err)
			}
			if !tt.ok && !errors.Is(err, timeline.ErrInvalidSplitPoint) {
				t.Errorf("Split(%v) error = %v, want ErrInvalidSplitPoint", tt.at, err)
			}
		})
	}
}

func TestSplit_FiltersGetFreshIDs(t *testing.T) {
	s, sid := newTestService(t)
	v := addClip(t, s, sid, 0, 0, 5)
	applied, err := s.ApplyFilter(sid, v.ID, "brightness", map[string]string{"value": "0.2"})
	if err != nil {
		t.Fatalf("ApplyFilter() error = %v", err)
	}

	left, right, err := s.Split(sid, v.ID, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	lf := timeline.BaseOf(left).Filters.List()
	rf := timeline.BaseOf(right).Filters.List()
	if len(lf) != 1 || len(rf) != 1 {
		t.Fatalf("filters = %d, %d; want 1, 1", len(lf), len(rf))
	}
	if lf[0].ID != applied.ID || rf[0].ID == applied.ID {
		t.Errorf("filter ids = %s, %s", lf[0].ID, rf[0].ID)
	}
	if lf[0].Expression != rf[0].Expression {
		t.Errorf("expressions differ: %q vs %q", lf[0].Expression, rf[0].Expression)
	}
}

func TestSplitThenMerge_RoundTrip(t *testing.T) {
	s, sid := newTestService(t)
	v := addClip(t, s, sid, 1, 3, 9)

	left, right, err := s.Split(sid, v.ID, 4)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	merged, err := s.Merge(sid, right.(*timeline.VideoSegment).ID, left.(*timeline.VideoSegment).ID)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	m := merged.(*timeline.VideoSegment)
	if m.TimelineStart != 1 || m.TimelineEnd != 7 || !near(m.SourceStart, 3) || !near(m.SourceEnd, 9) {
		t.Errorf("merged = [%v,%v) src [%v,%v)", m.TimelineStart, m.TimelineEnd, m.SourceStart, m.SourceEnd)
	}
	if m.ID == v.ID || m.ID == right.(*timeline.VideoSegment).ID {
		t.Errorf("merged id %s should be new", m.ID)
	}
	tl, _ := s.Timeline(sid)
	if len(tl.Videos) != 1 {
		t.Errorf("timeline has %d videos, want 1", len(tl.Videos))
	}
}

func TestSplitThenMerge_FilterClockAndFilters(t *testing.T) {
	s, sid := newTestService(t)
	v := addClip(t, s, sid, 1, 0, 6)
	if _, err := s.ApplyFilter(sid, v.ID, "fade", map[string]string{"type": "out", "start": "5", "duration": "1"}); err != nil {
		t.Fatalf("ApplyFilter() error = %v", err)
	}

	left, right, err := s.Split(sid, v.ID, 3)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if c := timeline.BaseOf(left).FilterClock; c != 0 {
		t.Errorf("left clock = %v, want 0", c)
	}
	rightID := timeline.BaseOf(right).ID
	if c := timeline.BaseOf(right).FilterClock; !near(c, 2) {
		t.Errorf("right clock = %v, want 2", c)
	}

	_, r2, err := s.UpdateSplitPoint(sid, v.ID, rightID, 4)
	if err != nil {
		t.Fatalf("UpdateSplitPoint() error = %v", err)
	}
	if c := timeline.BaseOf(r2).FilterClock; !near(c, 3) {
		t.Errorf("right clock after moving the cut = %v, want 3", c)
	}

	if _, err := s.ApplyFilter(sid, rightID, "grayscale", nil); err != nil {
		t.Fatalf("ApplyFilter() error = %v", err)
	}
	merged, err := s.Merge(sid, v.ID, rightID)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	mb := timeline.BaseOf(merged)
	exprs := mb.Filters.Expressions()
	if len(exprs) != 2 || !strings.HasPrefix(exprs[0], "fade=") || exprs[1] != "hue=s=0" {
		t.Errorf("merged filters = %v, want fade then grayscale", exprs)
	}
	if mb.FilterClock != 0 {
		t.Errorf("merged clock = %v, want 0", mb.FilterClock)
	}
}

func TestMerge_Rejections(t *testing.T) {
	s, sid := newTestService(t)
	a := addClip(t, s, sid, 0, 0, 5)
	b := addClip(t, s, sid, 5, 10, 15) // adjacent but source jumps
	c := addClip(t, s, sid, 20, 15, 20)

	tests := []struct {
		name string
		a, b string
		want error
	}{
		{"self", a.ID, a.ID, timeline.ErrSegmentsNotMergeable},
		{"source gap", a.ID, b.ID, timeline.ErrSegmentsNotMergeable},
		{"timeline gap", b.ID, c.ID, timeline.ErrSegmentsNotMergeable},
		{"unknown", a.ID, "missing", timeline.ErrSegmentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Merge(sid, tt.a, tt.b); !errors.Is(err, tt.want) {
				t.Errorf("Merge() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpdateSplitPoint(t *testing.T) {
	s, sid := newTestService(t)
	v := addClip(t, s, sid, 0, 0, 10)
	left, right, err := s.Split(sid, v.ID, 5)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	lid, rid := timeline.BaseOf(left).ID, timeline.BaseOf(right).ID

	l, r, err := s.UpdateSplitPoint(sid, lid, rid, 8)
	if err != nil {
		t.Fatalf("UpdateSplitPoint() error = %v", err)
	}
	lv, rv := l.(*timeline.VideoSegment), r.(*timeline.VideoSegment)
	if lv.TimelineEnd != 8 || rv.TimelineStart != 8 || !near(lv.SourceEnd, 8) || !near(rv.SourceStart, 8) {
		t.Errorf("after move: left end %v src %v, right start %v src %v", lv.TimelineEnd, lv.SourceEnd, rv.TimelineStart, rv.SourceStart)
	}

	if _, _, err := s.UpdateSplitPoint(sid, lid, rid, 9.95); !errors.Is(err, timeline.ErrInvalidSplitPoint) {
		t.Errorf("UpdateSplitPoint() near edge error = %v, want ErrInvalidSplitPoint", err)
	}
	if _, _, err := s.UpdateSplitPoint(sid, rid, lid, 5); !errors.Is(err, timeline.ErrSegmentsNotAdjacentOrSameSource) {
		t.Errorf("UpdateSplitPoint() reversed error = %v, want ErrSegmentsNotAdjacentOrSameSource", err)
	}
}

func TestSplitText_PartitionsKeyframes(t *testing.T) {
	s, sid := newTestService(t)
	txt, err := s.AddText(context.Background(), sid, AddTextRequest{Content: "x", Start: f64(0), Duration: 4})
	if err != nil {
		t.Fatalf("AddText() error = %v", err)
	}
	for _, k := range []struct{ t, v float64 }{{0, 0}, {1, 0.5}, {3, 1}} {
		if _, err := s.SetKeyframe(sid, txt.ID, timeline.PropOpacity, k.t, k.v); err != nil {
			t.Fatalf("SetKeyframe() error = %v", err)
		}
	}

	left, right, err := s.Split(sid, txt.ID, 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	lk := left.(*timeline.TextSegment).Keyframes[timeline.PropOpacity]
	rk := right.(*timeline.TextSegment).Keyframes[timeline.PropOpacity]
	// Both halves carry the interpolated value at the cut.
	if len(lk) != 3 || len(rk) != 2 || !near(lk[2].Value, 0.75) || !near(rk[0].Value, 0.75) || !near(rk[1].Time, 1) {
		t.Errorf("keyframes = %v | %v", lk, rk)
	}
}

func TestUpdate_RetimeAndOverlap(t *testing.T) {
	s, sid := newTestService(t)
	a := addClip(t, s, sid, 0, 2, 6)
	addClip(t, s, sid, 10, 0, 5)

	got, err := s.Update(sid, a.ID, SegmentPatch{End: f64(6)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	v := got.(*timeline.VideoSegment)
	if v.TimelineEnd != 6 || !near(v.SourceStart, 2) || !near(v.SourceEnd, 8) {
		t.Errorf("retimed = [%v,%v) src [%v,%v)", v.TimelineStart, v.TimelineEnd, v.SourceStart, v.SourceEnd)
	}

	if _, err := s.Update(sid, a.ID, SegmentPatch{Start: f64(8)}); !errors.Is(err, timeline.ErrTimelineOverlap) {
		t.Errorf("Update() into neighbour error = %v, want ErrTimelineOverlap", err)
	}
	if _, err := s.Update(sid, a.ID, SegmentPatch{Start: f64(20), End: f64(50)}); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("Update() past source end error = %v, want ErrInvalidSegment", err)
	}
	if _, err := s.Update(sid, a.ID, SegmentPatch{Start: f64(8), Layer: intPtr(1)}); err != nil {
		t.Errorf("Update() to free layer error = %v", err)
	}
}

func intPtr(v int) *int { return &v }

func TestUpdate_FailureLeavesTimelineUntouched(t *testing.T) {
	s, sid := newTestService(t)
	a := addClip(t, s, sid, 0, 0, 4)
	before, _ := s.Timeline(sid)

	if _, err := s.Update(sid, a.ID, SegmentPatch{Opacity: f64(0.5), Volume: f64(9)}); err == nil {
		t.Fatal("Update() with bad volume succeeded")
	}
	after, _ := s.Timeline(sid)
	if after.Videos[0].Opacity != before.Videos[0].Opacity || after.Videos[0].Volume != before.Videos[0].Volume {
		t.Errorf("failed update leaked: %+v", after.Videos[0])
	}
}

func TestUpdateText(t *testing.T) {
	s, sid := newTestService(t)
	txt, err := s.AddText(context.Background(), sid, AddTextRequest{Content: "before"})
	if err != nil {
		t.Fatalf("AddText() error = %v", err)
	}
	content := "after"
	style := timeline.DefaultTextStyle()
	style.FontSize = 72
	got, err := s.UpdateText(sid, txt.ID, TextPatch{Content: &content, Style: &style})
	if err != nil {
		t.Fatalf("UpdateText() error = %v", err)
	}
	if got.Content != "after" || got.Style.FontSize != 72 {
		t.Errorf("text = %q size %v", got.Content, got.Style.FontSize)
	}

	v := addClip(t, s, sid, 10, 0, 2)
	if _, err := s.UpdateText(sid, v.ID, TextPatch{Content: &content}); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("UpdateText() on video error = %v, want ErrInvalidSegment", err)
	}
}

func TestKeyframes(t *testing.T) {
	s, sid := newTestService(t)
	txt, err := s.AddText(context.Background(), sid, AddTextRequest{Content: "x", Duration: 3})
	if err != nil {
		t.Fatalf("AddText() error = %v", err)
	}
	if _, err := s.SetKeyframe(sid, txt.ID, "rotation", 1, 1); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("SetKeyframe(rotation) error = %v, want ErrInvalidSegment", err)
	}
	if _, err := s.SetKeyframe(sid, txt.ID, timeline.PropX, 5, 1); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("SetKeyframe past end error = %v, want ErrInvalidSegment", err)
	}
	if _, err := s.SetKeyframe(sid, txt.ID, timeline.PropX, 1, 0.25); err != nil {
		t.Fatalf("SetKeyframe() error = %v", err)
	}
	if err := s.RemoveKeyframe(sid, txt.ID, timeline.PropX, 1); err != nil {
		t.Errorf("RemoveKeyframe() error = %v", err)
	}
	if err := s.RemoveKeyframe(sid, txt.ID, timeline.PropX, 1); !errors.Is(err, timeline.ErrSegmentNotFound) {
		t.Errorf("second RemoveKeyframe() error = %v, want ErrSegmentNotFound", err)
	}
}

func TestFilters(t *testing.T) {
	s, sid := newTestService(t)
	v := addClip(t, s, sid, 0, 0, 5)

	a, err := s.ApplyFilter(sid, v.ID, "blur", map[string]string{"radius": "3"})
	if err != nil {
		t.Fatalf("ApplyFilter(blur) error = %v", err)
	}
	b, err := s.ApplyFilter(sid, v.ID, "grayscale", nil)
	if err != nil {
		t.Fatalf("ApplyFilter(grayscale) error = %v", err)
	}
	if _, err := s.ApplyFilter(sid, v.ID, "wobble", nil); !errors.Is(err, filters.ErrUnknownFilterKind) {
		t.Errorf("unknown kind error = %v", err)
	}

	updated, err := s.UpdateFilter(sid, v.ID, a.ID, map[string]string{"radius": "6"})
	if err != nil {
		t.Fatalf("UpdateFilter() error = %v", err)
	}
	if updated.ID == a.ID || updated.Type != a.Type {
		t.Errorf("updated = %+v", updated)
	}

	tl, _ := s.Timeline(sid)
	list := tl.Videos[0].Filters.List()
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != updated.ID {
		t.Errorf("filter order after update = %+v", list)
	}

	if err := s.RemoveFilter(sid, v.ID, a.ID); !errors.Is(err, timeline.ErrSegmentNotFound) {
		t.Errorf("RemoveFilter(stale id) error = %v", err)
	}
	removed, err := s.RemoveAllFilters(sid, v.ID)
	if err != nil {
		t.Fatalf("RemoveAllFilters() error = %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed = %v, want 2 ids", removed)
	}
	removed, err = s.RemoveAllFilters(sid, v.ID)
	if err != nil || removed == nil || len(removed) != 0 {
		t.Errorf("second RemoveAllFilters() = %v, %v; want empty list", removed, err)
	}
}

func TestSetCanvas(t *testing.T) {
	s, sid := newTestService(t)
	if _, err := s.SetCanvas(sid, 1281, 720); !errors.Is(err, timeline.ErrInvalidSegment) {
		t.Errorf("odd width error = %v", err)
	}
	tl, err := s.SetCanvas(sid, 1280, 720)
	if err != nil {
		t.Fatalf("SetCanvas() error = %v", err)
	}
	if tl.Width != 1280 || tl.Height != 720 {
		t.Errorf("canvas = %dx%d", tl.Width, tl.Height)
	}
}

func TestUnknownSession(t *testing.T) {
	s, _ := newTestService(t)
	if err := s.Clear("nope"); !errors.Is(err, session.ErrSessionNotFound) {
		t.Errorf("Clear() error = %v, want ErrSessionNotFound", err)
	}
}
