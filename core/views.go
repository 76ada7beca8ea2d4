package core

import (
	"sort"
	"strings"
	"time"
)

// ViewConfig is the display configuration the views are rendered against.
// It is plain data passed in per render; persistence of user preferences
// lives behind the preference store, never inside the views.
type ViewConfig struct {
	HourWindow       HourWindow `json:"hour_window"`
	HourHeight       float64    `json:"hour_height"`
	MinEventHeight   float64    `json:"min_event_height"`
	MinEventPercent  float64    `json:"min_event_percent"`
	NarrowBreakpoint int        `json:"narrow_breakpoint"`
}

func DefaultViewConfig() ViewConfig {
	return ViewConfig{
		HourWindow:       HourWindow{StartHour: 7, EndHour: 22},
		HourHeight:       60,
		MinEventHeight:   20,
		MinEventPercent:  2,
		NarrowBreakpoint: 768,
	}
}

// RenderedSegment is one placed, sized, colored segment ready for a Day or
// Week lane.
type RenderedSegment struct {
	EventSegment
	Placement
	Geometry  Geometry `json:"geometry"`
	Color     string   `json:"color"`
	CanEdit   bool     `json:"can_edit"`
	CanDelete bool     `json:"can_delete"`
}

// RenderedEvent is an unclipped event row (all-day blocks, agenda rows).
type RenderedEvent struct {
	Event
	Color     string `json:"color"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

type DayView struct {
	Date             time.Time         `json:"date"`
	ShowNowIndicator bool              `json:"show_now_indicator"`
	AllDay           []RenderedEvent   `json:"all_day"`
	Segments         []RenderedSegment `json:"segments"`
}

type DayLane struct {
	Date     time.Time         `json:"date"`
	IsToday  bool              `json:"is_today"`
	AllDay   []RenderedEvent   `json:"all_day"`
	Segments []RenderedSegment `json:"segments"`
}

type WeekView struct {
	WeekStart time.Time `json:"week_start"`
	Narrow    bool      `json:"narrow"`
	Days      []DayLane `json:"days"`
}

type MonthCell struct {
	Date       time.Time `json:"date"`
	InMonth    bool      `json:"in_month"`
	EventCount int       `json:"event_count"`
	Badge      string    `json:"badge,omitempty"`
}

type MonthView struct {
	Year  int           `json:"year"`
	Month time.Month    `json:"month"`
	Weeks [][]MonthCell `json:"weeks"`
}

type AgendaGroup struct {
	Day    string          `json:"day"`
	Date   time.Time       `json:"date"`
	Events []RenderedEvent `json:"events"`
}

type AgendaView struct {
	Lookahead AgendaLookahead `json:"lookahead"`
	Query     string          `json:"query,omitempty"`
	Groups    []AgendaGroup   `json:"groups"`
}

// AgendaLookahead selects the agenda time filter.
type AgendaLookahead string

const (
	Lookahead7Days   AgendaLookahead = "7d"
	Lookahead30Days  AgendaLookahead = "30d"
	Lookahead3Months AgendaLookahead = "3m"
	LookaheadAll     AgendaLookahead = "all"
)

func ParseLookahead(s string) AgendaLookahead {
	switch AgendaLookahead(s) {
	case Lookahead7Days, Lookahead30Days, Lookahead3Months:
		return AgendaLookahead(s)
	default:
		return LookaheadAll
	}
}

// BadgeVariant maps a day's event count to the month-view badge tier:
// 1 plain, 2-3 secondary, 4 and more destructive.
func BadgeVariant(count int) string {
	switch {
	case count <= 0:
		return ""
	case count == 1:
		return "default"
	case count <= 3:
		return "secondary"
	default:
		return "destructive"
	}
}

// BuildDayView renders a single day on the 24-hour percentage axis. The
// "now" indicator is shown only when the rendered day is the current date.
func BuildDayView(events []Event, actor Actor, date, now time.Time, cfg ViewConfig) DayView {
	visible := VisibleEvents(events, actor)

	view := DayView{
		Date:             StartOfDay(date),
		ShowNowIndicator: SameDay(date, now),
		AllDay:           []RenderedEvent{},
		Segments:         []RenderedSegment{},
	}

	var timed []Event

	for _, event := range visible {
		if !IntersectsDay(event, date) {
			continue
		}

		if event.AllDay {
			view.AllDay = append(view.AllDay, renderEvent(event, actor))
			continue
		}

		timed = append(timed, event)
	}

	segments := SegmentsForDay(timed, date)
	placements := LayoutDay(segments)

	for _, segment := range sortedByStart(segments) {
		geometry := MapToPercent(segment, cfg.MinEventPercent)

		view.Segments = append(view.Segments, renderSegment(segment, placements[segment.SegmentId], *geometry, actor))
	}

	return view
}

// BuildWeekView renders the 7 days of date's week, or a 3-day slice centered
// on date when the viewport is narrower than the breakpoint. The slice is
// clamped to the week bounds so it never runs short.
func BuildWeekView(events []Event, actor Actor, date, now time.Time, viewportWidth int, cfg ViewConfig) WeekView {
	days := WeekDays(date)
	weekStart := days[0]

	narrow := viewportWidth > 0 && viewportWidth < cfg.NarrowBreakpoint
	if narrow {
		days = narrowSlice(days, date)
	}

	visible := VisibleEvents(events, actor)

	segmentsByDay := make(map[string][]EventSegment)
	allDayByDay := make(map[string][]RenderedEvent)

	for _, event := range visible {
		if event.AllDay {
			for _, day := range days {
				if IntersectsDay(event, day) {
					key := DayKey(day)
					allDayByDay[key] = append(allDayByDay[key], renderEvent(event, actor))
				}
			}

			continue
		}

		for _, segment := range SplitIntoSegments(event, days) {
			key := DayKey(segment.SegmentStart)
			segmentsByDay[key] = append(segmentsByDay[key], segment)
		}
	}

	view := WeekView{WeekStart: weekStart, Narrow: narrow}

	for _, day := range days {
		key := DayKey(day)

		lane := DayLane{
			Date:     day,
			IsToday:  SameDay(day, now),
			AllDay:   allDayByDay[key],
			Segments: []RenderedSegment{},
		}
		if lane.AllDay == nil {
			lane.AllDay = []RenderedEvent{}
		}

		segments := segmentsByDay[key]
		placements := LayoutDay(segments)

		for _, segment := range sortedByStart(segments) {
			geometry := MapToPixels(segment, cfg.HourWindow, cfg.HourHeight, cfg.MinEventHeight)
			if geometry == nil {
				continue
			}

			lane.Segments = append(lane.Segments, renderSegment(segment, placements[segment.SegmentId], *geometry, actor))
		}

		view.Days = append(view.Days, lane)
	}

	return view
}

// BuildMonthView renders the complete-week month grid. Month cells carry a
// per-day event count (intersection test only, no clipping) and a badge
// tier; no column layout is computed at this zoom level.
func BuildMonthView(events []Event, actor Actor, date time.Time, _ ViewConfig) MonthView {
	visible := VisibleEvents(events, actor)
	grid := MonthGridDays(date)

	view := MonthView{Year: date.Year(), Month: date.Month()}

	for i := 0; i < len(grid); i += 7 {
		week := make([]MonthCell, 0, 7)

		for _, day := range grid[i : i+7] {
			count := 0

			for _, event := range visible {
				if IntersectsDay(event, day) {
					count++
				}
			}

			week = append(week, MonthCell{
				Date:       day,
				InMonth:    day.Month() == date.Month(),
				EventCount: count,
				Badge:      BadgeVariant(count),
			})
		}

		view.Weeks = append(view.Weeks, week)
	}

	return view
}

// BuildAgendaView renders the flat list view: events from now up to the
// lookahead horizon, filtered by a case-insensitive substring match against
// title/description/location, grouped by calendar day and sorted
// chronologically. One row per matching event; no splitting or packing.
func BuildAgendaView(events []Event, actor Actor, now time.Time, lookahead AgendaLookahead, query string) AgendaView {
	visible := VisibleEvents(events, actor)

	cutoff, bounded := lookaheadCutoff(now, lookahead)
	needle := strings.ToLower(strings.TrimSpace(query))

	var matched []Event

	for _, event := range visible {
		if event.EndTime.Before(now) {
			continue
		}

		if bounded && event.StartTime.After(cutoff) {
			continue
		}

		if needle != "" && !matchesQuery(event, needle) {
			continue
		}

		matched = append(matched, event)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].StartTime.Before(matched[j].StartTime)
	})

	view := AgendaView{Lookahead: lookahead, Query: query, Groups: []AgendaGroup{}}

	for _, event := range matched {
		key := DayKey(event.StartTime)

		if n := len(view.Groups); n > 0 && view.Groups[n-1].Day == key {
			view.Groups[n-1].Events = append(view.Groups[n-1].Events, renderEvent(event, actor))
			continue
		}

		view.Groups = append(view.Groups, AgendaGroup{
			Day:    key,
			Date:   StartOfDay(event.StartTime),
			Events: []RenderedEvent{renderEvent(event, actor)},
		})
	}

	return view
}

func lookaheadCutoff(now time.Time, lookahead AgendaLookahead) (time.Time, bool) {
	switch lookahead {
	case Lookahead7Days:
		return now.AddDate(0, 0, 7), true
	case Lookahead30Days:
		return now.AddDate(0, 0, 30), true
	case Lookahead3Months:
		return now.AddDate(0, 3, 0), true
	default:
		return time.Time{}, false
	}
}

func matchesQuery(event Event, needle string) bool {
	for _, field := range []string{event.Title, event.Description, event.Location} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}

	return false
}

// narrowSlice picks 3 consecutive week days centered on date, clamped to
// the week bounds.
func narrowSlice(week []time.Time, date time.Time) []time.Time {
	center := 0

	for i, day := range week {
		if SameDay(day, date) {
			center = i
			break
		}
	}

	lo := center - 1
	if lo < 0 {
		lo = 0
	}

	if lo > len(week)-3 {
		lo = len(week) - 3
	}

	return week[lo : lo+3]
}

func sortedByStart(segments []EventSegment) []EventSegment {
	sorted := make([]EventSegment, len(segments))
	copy(sorted, segments)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SegmentStart.Before(sorted[j].SegmentStart)
	})

	return sorted
}

func renderSegment(segment EventSegment, placement Placement, geometry Geometry, actor Actor) RenderedSegment {
	return RenderedSegment{
		EventSegment: segment,
		Placement:    placement,
		Geometry:     geometry,
		Color:        DisplayColor(segment.TargetRoles),
		CanEdit:      CanEdit(segment.Event, actor).Allowed,
		CanDelete:    CanDelete(segment.Event, actor).Allowed,
	}
}

func renderEvent(event Event, actor Actor) RenderedEvent {
	return RenderedEvent{
		Event:     event,
		Color:     DisplayColor(event.TargetRoles),
		CanEdit:   CanEdit(event, actor).Allowed,
		CanDelete: CanDelete(event, actor).Allowed,
	}
}
