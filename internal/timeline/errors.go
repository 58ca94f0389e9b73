package timeline

import "errors"

var (
	ErrSegmentNotFound                 = errors.New("segment not found")
	ErrInvalidSplitPoint               = errors.New("invalid split point")
	ErrSegmentsNotAdjacentOrSameSource = errors.New("segments are not adjacent or do not share a source")
	ErrSegmentsNotMergeable            = errors.New("segments are not mergeable")
	ErrTimelineOverlap                 = errors.New("segment overlaps another segment on the same layer")
	ErrInvalidSegment                  = errors.New("invalid segment")
)
