package core

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateEvent guards the data-access boundary. The rendering engine stays
// permissive (degenerate intervals pass through it untouched), so rejecting
// inverted intervals and empty target sets here is what keeps the engine's
// inputs well-formed by construction.
func ValidateEvent(event Event) error {
	event.Title = strings.TrimSpace(event.Title)
	if len(event.Title) == 0 {
		return errors.New("title is required")
	}

	if len(event.Title) > 100 {
		return errors.New("title is too long (100 characters tops)")
	}

	if event.EndTime.Before(event.StartTime) {
		return errors.New("end time must be after start time")
	}

	if len(event.TargetRoles) == 0 {
		return errors.New("at least one target role is required")
	}

	for _, role := range event.TargetRoles {
		if role == RoleAdmin {
			return errors.New("admin is not a valid target role")
		}

		if _, err := ParseRole(string(role)); err != nil {
			return fmt.Errorf("invalid target role: %w", err)
		}
	}

	switch event.Status {
	case StatusConfirmed, StatusPending, StatusCancelled, "":
	default:
		return fmt.Errorf("unknown status %q", event.Status)
	}

	switch event.OwnerType {
	case OwnerPersonal, OwnerClas:
	default:
		return fmt.Errorf("unknown owner type %q", event.OwnerType)
	}

	if event.OwnerId == "" {
		return errors.New("owner id is required")
	}

	return nil
}
