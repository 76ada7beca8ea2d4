package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

// Mailer delivers a single notification email. Implementations live at the
// system edge (pkg/resources); the notifier only sequences calls.
type Mailer interface {
	Send(ctx context.Context, recipientId, subject, body string) error
}

// NotificationKind selects the email template.
type NotificationKind string

const (
	NotificationCreated   NotificationKind = "created"
	NotificationUpdated   NotificationKind = "updated"
	NotificationCancelled NotificationKind = "cancelled"
)

// Notifier fans a notice out to an event's participants. Sends are strictly
// sequential with a fixed inter-call delay to respect the mail provider's
// rate limit, and each send gets a single bounded retry on a rate-limit
// error. No other retry or backoff exists.
type Notifier struct {
	mailer Mailer
	delay  time.Duration
}

const defaultSendDelay = 600 * time.Millisecond

func NewNotifier(mailer Mailer, delay time.Duration) *Notifier {
	if delay <= 0 {
		delay = defaultSendDelay
	}

	return &Notifier{mailer: mailer, delay: delay}
}

// NotifyParticipants emails every recipient about the event change. The
// recipient list must be the participant set snapshotted before the mutation
// was applied: removed participants still get the notice and fresh joiners
// do not get one for a meeting they just joined.
//
// A failed recipient is logged and skipped; the remaining recipients are
// still notified.
func (n *Notifier) NotifyParticipants(ctx context.Context, event Event, kind NotificationKind, recipientIds []string) {
	subject, body := renderNotification(event, kind)

	for i, recipientId := range recipientIds {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(n.delay):
			}
		}

		err := retry.Do(
			func() error {
				return n.mailer.Send(ctx, recipientId, subject, body)
			},
			retry.Context(ctx),
			retry.Attempts(2),
			retry.Delay(n.delay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return errors.Is(err, ErrRateLimited)
			}),
		)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).
				Str("component", "notifier").
				Str("event_id", event.Id).
				Str("recipient_id", recipientId).
				Msg("failed to send notification")

			continue
		}

		log.Ctx(ctx).Debug().
			Str("component", "notifier").
			Str("event_id", event.Id).
			Str("recipient_id", recipientId).
			Str("kind", string(kind)).
			Msg("notification sent")
	}
}

func renderNotification(event Event, kind NotificationKind) (string, string) {
	when := fmt.Sprintf("%s - %s",
		event.StartTime.Format("Mon 02 Jan 2006 15:04"),
		event.EndTime.Format("15:04"))
	if event.AllDay {
		when = event.StartTime.Format("Mon 02 Jan 2006") + " (all day)"
	}

	where := ""
	if event.Location != "" {
		where = "\nWhere: " + event.Location
	}

	switch kind {
	case NotificationCreated:
		return fmt.Sprintf("Invitation: %s", event.Title),
			fmt.Sprintf("You have been invited to %q.\nWhen: %s%s\n\n%s",
				event.Title, when, where, event.Description)
	case NotificationUpdated:
		return fmt.Sprintf("Updated: %s", event.Title),
			fmt.Sprintf("The event %q has been updated.\nWhen: %s%s\n\n%s",
				event.Title, when, where, event.Description)
	case NotificationCancelled:
		return fmt.Sprintf("Cancelled: %s", event.Title),
			fmt.Sprintf("The event %q has been cancelled.\nIt was planned for: %s%s",
				event.Title, when, where)
	default:
		return event.Title, event.Description
	}
}
