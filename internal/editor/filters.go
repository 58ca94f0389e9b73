package editor

import (
	"fmt"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// ApplyFilter appends a new filter application to a segment.
func (s *Service) ApplyFilter(sessionID, segmentID, kind string, params map[string]string) (timeline.AppliedFilter, error) {
	applied, err := s.catalog.Apply(kind, params)
	if err != nil {
		return timeline.AppliedFilter{}, err
	}
	_, err = s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg, err := tl.Find(segmentID)
		if err != nil {
			return err
		}
		if seg.Kind() == timeline.KindAudio {
			return invalid("filters do not apply to audio segments")
		}
		timeline.BaseOf(seg).Filters.Add(applied)
		return nil
	})
	if err != nil {
		return timeline.AppliedFilter{}, err
	}
	return applied, nil
}

// UpdateFilter replaces an application's parameters. The old instance is
// removed and a new one, with a new id, is appended.
func (s *Service) UpdateFilter(sessionID, segmentID, filterID string, params map[string]string) (timeline.AppliedFilter, error) {
	var applied timeline.AppliedFilter
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg, err := tl.Find(segmentID)
		if err != nil {
			return err
		}
		fs := &timeline.BaseOf(seg).Filters
		old, ok := fs.Get(filterID)
		if !ok {
			return fmt.Errorf("%w: filter %s", timeline.ErrSegmentNotFound, filterID)
		}
		applied, err = s.catalog.Apply(old.Type, params)
		if err != nil {
			return err
		}
		fs.Remove(filterID)
		fs.Add(applied)
		return nil
	})
	if err != nil {
		return timeline.AppliedFilter{}, err
	}
	return applied, nil
}

// RemoveFilter deletes one application.
func (s *Service) RemoveFilter(sessionID, segmentID, filterID string) error {
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg, err := tl.Find(segmentID)
		if err != nil {
			return err
		}
		if !timeline.BaseOf(seg).Filters.Remove(filterID) {
			return fmt.Errorf("%w: filter %s", timeline.ErrSegmentNotFound, filterID)
		}
		return nil
	})
	return err
}

// RemoveAllFilters clears a segment's filters and returns the removed ids.
func (s *Service) RemoveAllFilters(sessionID, segmentID string) ([]string, error) {
	var removed []string
	_, err := s.sessions.Update(sessionID, func(tl *timeline.Timeline) error {
		seg, err := tl.Find(segmentID)
		if err != nil {
			return err
		}
		removed = timeline.BaseOf(seg).Filters.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
