package editor

import (
	"fmt"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// validSplit reports whether t lies strictly inside (start+margin, end-margin).
// A point exactly on the margin is rejected.
func validSplit(start, end, t float64) bool {
	return t-start > SplitMargin+marginTolerance && end-t > SplitMargin+marginTolerance
}

// sourceAt maps a timeline time inside seg to its source time.
func sourceAt(b *timeline.Base, srcStart, srcEnd, t float64) float64 {
	rate := (srcEnd - srcStart) / (b.TimelineEnd - b.TimelineStart)
	return srcStart + (t-b.TimelineStart)*rate
}

// Split cuts a segment at timeline time t into two segments that share its
// source. The left half keeps the original id.
func (s *Service) Split(sessionID, segmentID string, t float64) (left, right timeline.Segment, err error) {
	_, err = s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg, err := tl.Find(segmentID)
		if err != nil {
			return err
		}
		b := timeline.BaseOf(seg)
		if !validSplit(b.TimelineStart, b.TimelineEnd, t) {
			return fmt.Errorf("%w: %g is not inside (%g, %g) with margin %g",
				timeline.ErrInvalidSplitPoint, t, b.TimelineStart, b.TimelineEnd, SplitMargin)
		}

		l := timeline.CloneSegment(seg)
		r := timeline.CloneSegment(seg)
		lb, rb := timeline.BaseOf(l), timeline.BaseOf(r)
		lb.TimelineEnd = t
		rb.TimelineStart = t
		rb.ID = timeline.NewID()
		rb.Filters = freshFilters(b.Filters)
		rb.FilterClock = b.FilterClock + (t - b.TimelineStart)

		if src, ok := seg.(timeline.Sourced); ok {
			srcStart, srcEnd := src.SourceWindow()
			cut := sourceAt(b, srcStart, srcEnd, t)
			l.(timeline.Sourced).SetSourceWindow(srcStart, cut)
			r.(timeline.Sourced).SetSourceWindow(cut, srcEnd)
		}
		if txt, ok := seg.(*timeline.TextSegment); ok {
			l.(*timeline.TextSegment).Keyframes, r.(*timeline.TextSegment).Keyframes = txt.Keyframes.Split(t - b.TimelineStart)
		}

		if err := tl.Remove(segmentID); err != nil {
			return err
		}
		if err := tl.Insert(l); err != nil {
			return err
		}
		if err := tl.Insert(r); err != nil {
			return err
		}
		left, right = timeline.CloneSegment(l), timeline.CloneSegment(r)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// freshFilters copies a filter set, giving every application a new id.
func freshFilters(fs timeline.FilterSet) timeline.FilterSet {
	var out timeline.FilterSet
	for _, f := range fs.List() {
		f.ID = timeline.NewID()
		out.Add(f)
	}
	return out
}

// mergeFilters returns first followed by the filters of second that first
// has no matching expression for. Matching counts duplicates.
func mergeFilters(first, second timeline.FilterSet) timeline.FilterSet {
	var out timeline.FilterSet
	have := make(map[string]int)
	for _, f := range first.List() {
		have[f.Expression]++
		out.Add(f)
	}
	for _, f := range second.List() {
		if have[f.Expression] > 0 {
			have[f.Expression]--
			continue
		}
		out.Add(f)
	}
	return out
}

// contiguous reports whether left ends exactly where right begins on the same
// layer, with the same kind and source and a continuous source window.
func contiguous(left, right timeline.Segment) bool {
	lb, rb := timeline.BaseOf(left), timeline.BaseOf(right)
	if left.Kind() != right.Kind() || lb.Layer != rb.Layer || !approxEqual(lb.TimelineEnd, rb.TimelineStart) {
		return false
	}
	switch l := left.(type) {
	case *timeline.VideoSegment:
		r := right.(*timeline.VideoSegment)
		return l.Source == r.Source && approxEqual(l.SourceEnd, r.SourceStart)
	case *timeline.AudioSegment:
		r := right.(*timeline.AudioSegment)
		return l.Source == r.Source && approxEqual(l.SourceEnd, r.SourceStart)
	case *timeline.ImageSegment:
		return l.Source == right.(*timeline.ImageSegment).Source
	case *timeline.TextSegment:
		return l.Content == right.(*timeline.TextSegment).Content
	}
	return false
}

// UpdateSplitPoint moves the cut between two contiguous halves of the same
// source to t.
func (s *Service) UpdateSplitPoint(sessionID, leftID, rightID string, t float64) (left, right timeline.Segment, err error) {
	_, err = s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		l, err := tl.Find(leftID)
		if err != nil {
			return err
		}
		r, err := tl.Find(rightID)
		if err != nil {
			return err
		}
		if !contiguous(l, r) {
			return fmt.Errorf("%w: %s and %s", timeline.ErrSegmentsNotAdjacentOrSameSource, leftID, rightID)
		}
		lb, rb := timeline.BaseOf(l), timeline.BaseOf(r)
		if !validSplit(lb.TimelineStart, rb.TimelineEnd, t) {
			return fmt.Errorf("%w: %g is not inside (%g, %g) with margin %g",
				timeline.ErrInvalidSplitPoint, t, lb.TimelineStart, rb.TimelineEnd, SplitMargin)
		}

		if ls, ok := l.(timeline.Sourced); ok {
			rs := r.(timeline.Sourced)
			srcStart, _ := ls.SourceWindow()
			_, srcEnd := rs.SourceWindow()
			span := &timeline.Base{TimelineStart: lb.TimelineStart, TimelineEnd: rb.TimelineEnd}
			cut := sourceAt(span, srcStart, srcEnd, t)
			ls.SetSourceWindow(srcStart, cut)
			rs.SetSourceWindow(cut, srcEnd)
		}
		if lt, ok := l.(*timeline.TextSegment); ok {
			rt := r.(*timeline.TextSegment)
			all := joinKeyframes(lt.Keyframes, rt.Keyframes, lb.Duration())
			lt.Keyframes, rt.Keyframes = all.Split(t - lb.TimelineStart)
		}
		lb.TimelineEnd = t
		rb.TimelineStart = t
		rb.FilterClock = lb.FilterClock + (t - lb.TimelineStart)

		left, right = timeline.CloneSegment(l), timeline.CloneSegment(r)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// Merge joins two contiguous segments of the same source into one new
// segment spanning both. Argument order does not matter. The merged segment
// keeps the earlier half's filters and clock; filters only the later half
// carries are appended after them.
func (s *Service) Merge(sessionID, aID, bID string) (timeline.Segment, error) {
	var merged timeline.Segment
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		a, err := tl.Find(aID)
		if err != nil {
			return err
		}
		b, err := tl.Find(bID)
		if err != nil {
			return err
		}
		if aID == bID {
			return fmt.Errorf("%w: cannot merge a segment with itself", timeline.ErrSegmentsNotMergeable)
		}
		first, second := a, b
		if timeline.BaseOf(b).TimelineStart < timeline.BaseOf(a).TimelineStart {
			first, second = b, a
		}
		if !contiguous(first, second) {
			return fmt.Errorf("%w: %s and %s", timeline.ErrSegmentsNotMergeable, aID, bID)
		}

		m := timeline.CloneSegment(first)
		fb, sb, mb := timeline.BaseOf(first), timeline.BaseOf(second), timeline.BaseOf(m)
		mb.ID = timeline.NewID()
		mb.TimelineEnd = sb.TimelineEnd
		mb.Filters = mergeFilters(fb.Filters, sb.Filters)

		switch mv := m.(type) {
		case *timeline.VideoSegment:
			sv := second.(*timeline.VideoSegment)
			mv.SourceEnd = sv.SourceEnd
			if mv.Position == nil && sv.Position != nil {
				p := *sv.Position
				mv.Position = &p
			}
			if mv.Scale == 0 {
				mv.Scale = sv.Scale
			}
		case *timeline.AudioSegment:
			mv.SourceEnd = second.(*timeline.AudioSegment).SourceEnd
		case *timeline.ImageSegment:
			si := second.(*timeline.ImageSegment)
			if mv.Position == nil && si.Position != nil {
				p := *si.Position
				mv.Position = &p
			}
			if mv.Scale == 0 {
				mv.Scale = si.Scale
			}
		case *timeline.TextSegment:
			st := second.(*timeline.TextSegment)
			mv.Keyframes = joinKeyframes(mv.Keyframes, st.Keyframes, fb.Duration())
			if mv.Position == nil && st.Position != nil {
				p := *st.Position
				mv.Position = &p
			}
		}

		if err := tl.Remove(aID); err != nil {
			return err
		}
		if err := tl.Remove(bID); err != nil {
			return err
		}
		if err := tl.Insert(m); err != nil {
			return err
		}
		merged = timeline.CloneSegment(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// joinKeyframes concatenates the samples of two halves, rebasing the right
// half by offset.
func joinKeyframes(left, right timeline.Keyframes, offset float64) timeline.Keyframes {
	var out timeline.Keyframes
	for prop, samples := range left {
		for _, k := range samples {
			_ = out.Set(prop, k.Time, k.Value)
		}
	}
	for prop, samples := range right {
		for _, k := range samples {
			_ = out.Set(prop, k.Time+offset, k.Value)
		}
	}
	return out
}
