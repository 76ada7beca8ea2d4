package core

// HourWindow is the inclusive visible-hour range a Day/Week lane renders,
// e.g. 7..22 for a 07:00-22:59 axis.
type HourWindow struct {
	StartHour int `json:"start_hour"`
	EndHour   int `json:"end_hour"`
}

// Geometry is the vertical placement of a segment on a time axis. Units are
// pixels for the fixed-hour variant and percent for the full-day variant.
type Geometry struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// MapToPixels projects a segment's clock time onto a bounded pixel axis.
// unitHeight is the pixel height of one hour; minHeight is the floor that
// keeps short events clickable. It returns nil when the segment lies
// entirely outside the window; the caller must skip rendering instead of
// degrading to a zero-height box.
func MapToPixels(segment EventSegment, window HourWindow, unitHeight, minHeight float64) *Geometry {
	day := StartOfDay(segment.SegmentStart)

	startHour := hourOfDay(segment.SegmentStart, day)
	endHour := hourOfDay(segment.SegmentEnd, day)

	lo := float64(window.StartHour)
	hi := float64(window.EndHour) + 1

	if endHour < lo || startHour > hi {
		return nil
	}

	if startHour < lo {
		startHour = lo
	}
	if endHour > hi {
		endHour = hi
	}

	height := (endHour - startHour) * unitHeight
	if height < minHeight {
		height = minHeight
	}

	return &Geometry{
		Top:    (startHour - lo) * unitHeight,
		Height: height,
	}
}

// MapToPercent is the Day view variant: the same mapping over the full
// 24-hour day, expressed in percent of the day container.
func MapToPercent(segment EventSegment, minHeightPercent float64) *Geometry {
	day := StartOfDay(segment.SegmentStart)

	startHour := hourOfDay(segment.SegmentStart, day)
	endHour := hourOfDay(segment.SegmentEnd, day)

	unit := 100.0 / 24.0

	height := (endHour - startHour) * unit
	if height < minHeightPercent {
		height = minHeightPercent
	}

	return &Geometry{
		Top:    startHour * unit,
		Height: height,
	}
}
