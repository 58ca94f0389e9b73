package timeline

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func video(id string, layer int, start, end float64) *VideoSegment {
	return &VideoSegment{
		Base:        Base{ID: id, Layer: layer, TimelineStart: start, TimelineEnd: end},
		Source:      "clip.mp4",
		SourceStart: 0,
		SourceEnd:   end - start,
		Opacity:     1,
		HasAudio:    true,
		Volume:      1,
	}
}

func TestIsIntervalFree(t *testing.T) {
	tl := New(1920, 1080)
	if err := tl.Insert(video("a", 0, 0, 5)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	tests := []struct {
		name       string
		start, end float64
		layer      int
		exclude    []string
		want       bool
	}{
		{"touching end", 5, 8, 0, nil, true},
		{"touching start", -2, 0, 0, nil, true},
		{"inside", 1, 2, 0, nil, false},
		{"straddles end", 4.9, 6, 0, nil, false},
		{"other layer", 1, 2, 1, nil, true},
		{"excluded self", 1, 2, 0, []string{"a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tl.IsIntervalFree(tt.start, tt.end, tt.layer, tt.exclude...); got != tt.want {
				t.Errorf("IsIntervalFree(%v, %v, %d) = %v, want %v", tt.start, tt.end, tt.layer, got, tt.want)
			}
		})
	}
}

func TestInsert_LayerSharedAcrossKinds(t *testing.T) {
	tl := New(0, 0)
	if err := tl.Insert(video("v", 2, 0, 4)); err != nil {
		t.Fatalf("Insert(video) error = %v", err)
	}
	txt := &TextSegment{Base: Base{ID: "t", Layer: 2, TimelineStart: 3, TimelineEnd: 6}, Style: DefaultTextStyle()}
	if err := tl.Insert(txt); !errors.Is(err, ErrTimelineOverlap) {
		t.Fatalf("Insert(text) error = %v, want ErrTimelineOverlap", err)
	}
	if len(tl.Texts) != 0 {
		t.Errorf("len(Texts) = %d, want 0", len(tl.Texts))
	}
}

func TestInsert_RandomNeverOverlaps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tl := New(0, 0)
	for i := 0; i < 500; i++ {
		start := float64(rng.Intn(200)) / 2
		end := start + 0.5 + float64(rng.Intn(20))/2
		_ = tl.Insert(video(NewID(), rng.Intn(3), start, end))
	}
	for layer := 0; layer < 3; layer++ {
		segs := tl.SegmentsOnLayer(layer)
		for i := 1; i < len(segs); i++ {
			prev, cur := BaseOf(segs[i-1]), BaseOf(segs[i])
			if prev.TimelineEnd > cur.TimelineStart {
				t.Fatalf("layer %d: %v overlaps %v", layer, prev, cur)
			}
		}
	}
	if err := tl.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestRemoveAndFind(t *testing.T) {
	tl := New(0, 0)
	_ = tl.Insert(video("a", 0, 0, 1))
	_ = tl.Insert(&AudioSegment{Base: Base{ID: "b", TimelineStart: 0, TimelineEnd: 1, Layer: 5}})

	if _, err := tl.Find("b"); err != nil {
		t.Fatalf("Find(b) error = %v", err)
	}
	if err := tl.Remove("b"); err != nil {
		t.Fatalf("Remove(b) error = %v", err)
	}
	if _, err := tl.Find("b"); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("Find(b) after remove error = %v, want ErrSegmentNotFound", err)
	}
	if err := tl.Remove("missing"); !errors.Is(err, ErrSegmentNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrSegmentNotFound", err)
	}
	if got := tl.MaxLayer(); got != 0 {
		t.Errorf("MaxLayer() = %d, want 0", got)
	}
}

func TestClone_IsDeep(t *testing.T) {
	tl := New(1280, 720)
	v := video("a", 0, 0, 5)
	v.Position = &Point{X: 10, Y: 20}
	v.Filters.Add(AppliedFilter{ID: "f1", Type: "blur", Params: map[string]string{"radius": "3"}, Expression: "boxblur=3:1"})
	_ = tl.Insert(v)
	txt := &TextSegment{Base: Base{ID: "t", Layer: 1, TimelineStart: 0, TimelineEnd: 2}, Style: DefaultTextStyle()}
	_ = txt.Keyframes.Set(PropX, 0, 1)
	_ = tl.Insert(txt)

	c := tl.Clone()
	c.Videos[0].Position.X = 99
	c.Videos[0].Filters.Remove("f1")
	c.Texts[0].Keyframes[PropX][0].Value = 42
	c.Videos[0].TimelineEnd = 9

	if v.Position.X != 10 {
		t.Errorf("original position mutated: %v", v.Position.X)
	}
	if v.Filters.Len() != 1 {
		t.Errorf("original filters mutated: len = %d", v.Filters.Len())
	}
	if txt.Keyframes[PropX][0].Value != 1 {
		t.Errorf("original keyframes mutated: %v", txt.Keyframes[PropX][0].Value)
	}
	if v.TimelineEnd != 5 {
		t.Errorf("original bounds mutated: %v", v.TimelineEnd)
	}
}

func TestKeyframes_SetSortsAndReplaces(t *testing.T) {
	var k Keyframes
	_ = k.Set(PropOpacity, 2, 0.5)
	_ = k.Set(PropOpacity, 0, 0)
	_ = k.Set(PropOpacity, 2.00005, 1)

	got := k[PropOpacity]
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Time != 0 || got[1].Time != 2 || got[1].Value != 1 {
		t.Errorf("samples = %+v", got)
	}
	if v, _ := k.ValueAt(PropOpacity, 1); v != 0.5 {
		t.Errorf("ValueAt(1) = %v, want 0.5", v)
	}
	if v, _ := k.ValueAt(PropOpacity, 10); v != 1 {
		t.Errorf("ValueAt(10) = %v, want 1", v)
	}
	if err := k.Set("rotation", 0, 1); err == nil {
		t.Error("Set(rotation) should fail")
	}
}

func TestKeyframes_Split(t *testing.T) {
	var k Keyframes
	_ = k.Set(PropX, 0, 0)
	_ = k.Set(PropX, 10, 100)
	_ = k.Set(PropOpacity, 8, 0.5)

	left, right := k.Split(5)

	tests := []struct {
		prop string
		at   float64
	}{
		{PropX, 0}, {PropX, 4}, {PropX, 5}, {PropX, 6}, {PropX, 10},
		{PropOpacity, 2}, {PropOpacity, 9},
	}
	for _, tt := range tests {
		want, _ := k.ValueAt(tt.prop, tt.at)
		var got float64
		if tt.at < 5 {
			got, _ = left.ValueAt(tt.prop, tt.at)
		} else {
			got, _ = right.ValueAt(tt.prop, tt.at-5)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("%s@%v after split = %v, want %v", tt.prop, tt.at, got, want)
		}
	}
	if r := right[PropX]; len(r) != 2 || r[0].Time != 0 || r[1].Time != 5 {
		t.Errorf("right x = %v, want samples at 0 and 5", r)
	}
}

func TestFilterSet_OrderAndJSON(t *testing.T) {
	var fs FilterSet
	fs.Add(AppliedFilter{ID: "b", Expression: "eq=brightness=0.1"})
	fs.Add(AppliedFilter{ID: "a", Expression: "eq=brightness=0.2"})

	data, err := json.Marshal(fs)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back FilterSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	exprs := back.Expressions()
	if len(exprs) != 2 || exprs[0] != "eq=brightness=0.1" || exprs[1] != "eq=brightness=0.2" {
		t.Errorf("Expressions() = %v", exprs)
	}
	if removed := back.Clear(); len(removed) != 2 || removed[0] != "b" {
		t.Errorf("Clear() = %v", removed)
	}
}

func TestDecode_AppliesDefaults(t *testing.T) {
	doc := `{"videos":[{"id":"v","layer":0,"timeline_start":0,"timeline_end":2,"source":"a.mp4","source_start":0,"source_end":2}],
	"texts":[{"id":"t","layer":1,"timeline_start":0,"timeline_end":1,"content":"hi"}]}`
	tl, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	v := tl.Videos[0]
	if v.Opacity != 1 || v.Volume != 1 || !v.HasAudio {
		t.Errorf("video defaults = opacity %v volume %v audio %v", v.Opacity, v.Volume, v.HasAudio)
	}
	if tl.Texts[0].Style.FontSize != DefaultFontSize {
		t.Errorf("text font size = %d, want %d", tl.Texts[0].Style.FontSize, DefaultFontSize)
	}
	if err := tl.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if w, h := tl.Canvas(DefaultCanvasWidth, DefaultCanvasHeight); w != 1920 || h != 1080 {
		t.Errorf("Canvas() = %dx%d", w, h)
	}
}

func TestTextStyle_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TextStyle)
		wantErr bool
	}{
		{"default", func(*TextStyle) {}, false},
		{"font too big", func(s *TextStyle) { s.FontSize = 501 }, true},
		{"bad color", func(s *TextStyle) { s.FontColor = "red" }, true},
		{"no hash color", func(s *TextStyle) { s.FontColor = "00ff00" }, false},
		{"bad alignment", func(s *TextStyle) { s.Alignment = "justify" }, true},
		{"padding", func(s *TextStyle) { s.Background.Padding = 201 }, true},
		{"shadow offset", func(s *TextStyle) { s.Shadow.OffsetX = -101 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultTextStyle()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
