package core

// Display colors per role, highest priority first. An event addressed to
// several roles takes the color of the highest-priority role present.
const (
	ColorDirector    = "#7c3aed"
	ColorCoordinator = "#2563eb"
	ColorAnimator    = "#16a34a"
)

// Decision is a permission verdict with a human-readable denial reason, so
// the dialog layer can render a labeled read-only view instead of an error.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

var allowed = Decision{Allowed: true}

func denied(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// DisplayColor resolves the event color by role priority:
// director > coordinator > animator. Total for every non-empty target set;
// an empty set (an upstream data defect) falls through to the animator color.
func DisplayColor(targetRoles []Role) string {
	priority := []struct {
		role  Role
		color string
	}{
		{RoleDirector, ColorDirector},
		{RoleCoordinator, ColorCoordinator},
		{RoleAnimator, ColorAnimator},
	}

	for _, p := range priority {
		for _, r := range targetRoles {
			if r == p.role {
				return p.color
			}
		}
	}

	return ColorAnimator
}

// CanView reports whether the actor may see the event: their role is among
// the target roles, they authored it, or they are an admin.
func CanView(event Event, actor Actor) bool {
	if actor.Role == RoleAdmin {
		return true
	}

	if event.CreatedBy == actor.UserId {
		return true
	}

	return event.HasTargetRole(actor.Role)
}

// CanEdit decides edit access. Admins, coordinators and directors may edit
// any event. An animator may edit only an event they created whose target
// set is exactly {animator}: an animator may not broaden or retarget an
// event outside their own role.
func CanEdit(event Event, actor Actor) Decision {
	switch actor.Role {
	case RoleAdmin, RoleCoordinator, RoleDirector:
		return allowed
	case RoleAnimator:
		if event.CreatedBy != actor.UserId {
			return denied("only the creator or a coordinator/director may edit this event")
		}

		if len(event.TargetRoles) != 1 || event.TargetRoles[0] != RoleAnimator {
			return denied("animators may only edit events targeted exclusively at animators")
		}

		return allowed
	default:
		return denied("unknown role")
	}
}

// CanDelete mirrors CanEdit: there is no separate delete-only grant.
func CanDelete(event Event, actor Actor) Decision {
	return CanEdit(event, actor)
}

// VisibleEvents filters the snapshot down to what the actor may see. The
// input slice is never mutated.
func VisibleEvents(events []Event, actor Actor) []Event {
	visible := make([]Event, 0, len(events))

	for _, event := range events {
		if CanView(event, actor) {
			visible = append(visible, event)
		}
	}

	return visible
}
