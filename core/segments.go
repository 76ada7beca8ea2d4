package core

import (
	"fmt"
	"time"
)

// SplitIntoSegments clips an event's interval into one EventSegment per
// calendar day of the window it intersects. Day intervals are half-open
// [dayStart, nextMidnight), so an event ending exactly at midnight does not
// produce a zero-length segment on the following day.
//
// Malformed input (end before start) is not defended against and yields
// zero segments or inverted segments; that is an upstream data defect.
func SplitIntoSegments(event Event, days []time.Time) []EventSegment {
	var segments []EventSegment

	for i, day := range days {
		dayStart := StartOfDay(day)
		dayEnd := EndOfDay(day)

		if !event.StartTime.Before(dayEnd) || !event.EndTime.After(dayStart) {
			continue
		}

		segmentStart := event.StartTime
		if segmentStart.Before(dayStart) {
			segmentStart = dayStart
		}

		segmentEnd := event.EndTime
		if segmentEnd.After(dayEnd) {
			segmentEnd = dayEnd
		}

		segments = append(segments, EventSegment{
			Event:           event,
			SegmentId:       fmt.Sprintf("%s-segment-%d", event.Id, i),
			OriginalEventId: event.Id,
			SegmentStart:    segmentStart,
			SegmentEnd:      segmentEnd,
			IsFirstSegment:  segmentStart.Equal(event.StartTime),
			IsLastSegment:   segmentEnd.Equal(event.EndTime),
		})
	}

	return segments
}

// SegmentsForDay clips every event to a single day. The day index used for
// segment ids is the event's position in the single-day window, i.e. 0.
func SegmentsForDay(events []Event, day time.Time) []EventSegment {
	window := []time.Time{StartOfDay(day)}

	var segments []EventSegment
	for _, event := range events {
		segments = append(segments, SplitIntoSegments(event, window)...)
	}

	return segments
}

// IntersectsDay is the month-view counting test: the same intersection test
// as SplitIntoSegments without the clipping.
func IntersectsDay(event Event, day time.Time) bool {
	dayStart := StartOfDay(day)

	return event.StartTime.Before(EndOfDay(day)) && event.EndTime.After(dayStart)
}
