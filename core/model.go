package core

import (
	"fmt"
	"time"
)

// Role is the single tagged role type. Every role comparison in the service
// goes through this type and the resolver in permissions.go; no other
// component re-implements role branching.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleDirector    Role = "director"
	RoleAnimator    Role = "animator"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleCoordinator, RoleDirector, RoleAnimator:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// EventStatus is informational display state. The service never drives a
// status workflow; the value is set by whoever mutates the event.
type EventStatus string

const (
	StatusConfirmed EventStatus = "confirmed"
	StatusPending   EventStatus = "pending"
	StatusCancelled EventStatus = "cancelled"
)

// OwnerType distinguishes a personal calendar from a CLAS center calendar.
type OwnerType string

const (
	OwnerPersonal OwnerType = "personal"
	OwnerClas     OwnerType = "clas"
)

// Event is the calendar record. The rendering engine treats it as an
// immutable snapshot per render pass and never mutates it.
//
// The recurrence fields are reserved: the system always supplies them as
// null/false and no expansion is performed.
type Event struct {
	Id          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	EndTime     time.Time `json:"end_time,omitempty"`
	AllDay      bool      `json:"all_day,omitempty"`

	TargetRoles []Role      `json:"target_roles,omitempty"`
	Status      EventStatus `json:"status,omitempty"`

	OwnerType OwnerType `json:"owner_type,omitempty"`
	OwnerId   string    `json:"owner_id,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`

	RecurrenceRule      string `json:"recurrence_rule,omitempty"`
	RecurrenceParentId  string `json:"recurrence_parent_id,omitempty"`
	RecurrenceException bool   `json:"recurrence_exception,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// HasTargetRole reports whether the event is addressed to the given role.
func (e Event) HasTargetRole(role Role) bool {
	for _, r := range e.TargetRoles {
		if r == role {
			return true
		}
	}

	return false
}

// EventSegment is the portion of an event's interval that falls within one
// calendar day. Segments are derived per render pass and never persisted.
type EventSegment struct {
	Event

	// SegmentId is synthesized as "{eventID}-segment-{dayIndex}" so that it
	// never collides with a real event id in downstream state.
	SegmentId       string    `json:"segment_id"`
	OriginalEventId string    `json:"original_event_id"`
	SegmentStart    time.Time `json:"segment_start"`
	SegmentEnd      time.Time `json:"segment_end"`

	// IsFirstSegment / IsLastSegment are true iff the segment boundary
	// coincides with the event's real start/end.
	IsFirstSegment bool `json:"is_first_segment"`
	IsLastSegment  bool `json:"is_last_segment"`
}

// Actor is the acting user as seen by the permission resolver.
type Actor struct {
	UserId string `json:"user_id"`
	Role   Role   `json:"role"`
}
