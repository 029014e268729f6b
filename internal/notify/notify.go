// Package notify schedules and delivers payment notifications keyed by
// reminder id.
package notify

import (
	"errors"
	"fmt"
	"time"
)

// ErrSchedulerFailure marks a schedule or delivery problem. The store stays
// authoritative; callers log and surface, they do not roll back.
var ErrSchedulerFailure = errors.New("notification scheduler failure")

// Content carries the display fields of a notification.
type Content struct {
	Title     string
	Body      string
	LargeBody string
	Summary   string
}

// Scheduler is the contract over the host's schedule/cancel primitives. At
// most one notification is pending per reminder id; callers must cancel
// before rescheduling the same id.
type Scheduler interface {
	// Schedule requests a notification at the given absolute instant. The
	// instant must already be resolved to a zone-aware point in time.
	Schedule(id uint, fireAt time.Time, content Content) error

	// Cancel removes any pending notification for the id. Cancelling an id
	// with nothing pending is not an error.
	Cancel(id uint) error
}

// Sink delivers a fired notification to the user.
type Sink interface {
	// Ready reports whether the sink can deliver; probed once at startup.
	Ready() error
	Send(content Content) error
}

// ContentFor builds the notification fields for a reminder, mirroring the
// title/body/large-body/summary shape of device push notifications.
func ContentFor(name string, value float64, dueAt time.Time, loc *time.Location) Content {
	return Content{
		Title:     "Payment due",
		Body:      fmt.Sprintf("Payment of %s", name),
		LargeBody: fmt.Sprintf("Payment of %s for %.2f, due %s", name, value, dueAt.In(loc).Format("2006-01-02 15:04")),
		Summary:   fmt.Sprintf("Remember to pay your %s", name),
	}
}
