package core

import "sort"

// Placement is the horizontal slot assigned to a segment: a column index and
// the derived width/left offsets in percent of the day lane.
type Placement struct {
	Column int     `json:"column"`
	Width  float64 `json:"width"`
	Left   float64 `json:"left"`
}

// LayoutDay assigns the segments of one day to columns so that no two
// segments with overlapping [SegmentStart, SegmentEnd) intervals share any
// horizontal extent.
//
// Greedy first-fit interval coloring: segments are sorted by SegmentStart
// (stable for ties), each is placed in the first column whose members all
// avoid overlap, and a new column is opened otherwise. The result is
// deterministic for a given input order and uses the minimum column count in
// the common few-simultaneous-events case, though the first-fit heuristic is
// not exact for every pathological input.
func LayoutDay(segments []EventSegment) map[string]Placement {
	placements := make(map[string]Placement, len(segments))
	if len(segments) == 0 {
		return placements
	}

	sorted := make([]EventSegment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SegmentStart.Before(sorted[j].SegmentStart)
	})

	var columns [][]EventSegment

	for _, segment := range sorted {
		placed := false

		for i, column := range columns {
			if columnAccepts(column, segment) {
				columns[i] = append(columns[i], segment)
				placements[segment.SegmentId] = Placement{Column: i}
				placed = true

				break
			}
		}

		if !placed {
			columns = append(columns, []EventSegment{segment})
			placements[segment.SegmentId] = Placement{Column: len(columns) - 1}
		}
	}

	width := 100.0 / float64(len(columns))
	for id, placement := range placements {
		placement.Width = width
		placement.Left = float64(placement.Column) * width
		placements[id] = placement
	}

	return placements
}

func columnAccepts(column []EventSegment, candidate EventSegment) bool {
	for _, member := range column {
		if segmentsOverlap(member, candidate) {
			return false
		}
	}

	return true
}

// segmentsOverlap tests the half-open intervals [SegmentStart, SegmentEnd).
func segmentsOverlap(a, b EventSegment) bool {
	return a.SegmentStart.Before(b.SegmentEnd) && b.SegmentStart.Before(a.SegmentEnd)
}
