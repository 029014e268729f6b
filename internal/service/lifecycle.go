package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"payremind/internal/model"
	"payremind/internal/notify"
	"payremind/internal/recurrence"
	"payremind/internal/store"
)

// ErrNotifyDegraded means the store mutation committed but the notification
// side could not be brought in line. The stored record stays authoritative.
var ErrNotifyDegraded = errors.New("reminder saved but notification scheduling failed")

// Input carries the raw fields collected by the UI for create and edit.
type Input struct {
	Name  string
	Value string
	Date  string // 2006-01-02
	Clock string // 15:04
}

// Lifecycle orchestrates every user-facing reminder mutation: it sequences
// store writes, notification cancel/schedule calls and the monthly
// roll-forward so that no stale notification outlives its record and every
// pending record ends up with exactly one armed notification.
//
// Ordering is uniform: cancel the stale notification first, commit the store
// mutation, then schedule against the authoritative identity. A record
// briefly lacking a notification is the accepted transient state; the
// reverse (a notification without a record) is not.
type Lifecycle struct {
	store store.Store
	sched notify.Scheduler
	loc   *time.Location
}

func NewLifecycle(st store.Store, sched notify.Scheduler, loc *time.Location) *Lifecycle {
	return &Lifecycle{store: st, sched: sched, loc: loc}
}

// Pending returns the current pending view.
func (l *Lifecycle) Pending() []model.Reminder { return l.store.Pending() }

// Paid returns the current paid view.
func (l *Lifecycle) Paid() []model.Reminder { return l.store.Paid() }

// Create validates the input, persists a fresh pending reminder and arms its
// notification using the identity the store assigned.
func (l *Lifecycle) Create(ctx context.Context, input Input) (*model.Reminder, error) {
	name, value, dueAt, err := l.parse(input)
	if err != nil {
		return nil, err
	}

	r := &model.Reminder{Name: name, Value: value, DueAt: dueAt}
	if err := l.store.Add(ctx, r); err != nil {
		return nil, err
	}

	id := l.store.LastInsertedID()
	log.Printf("[info] reminder created id=%d name=%q due=%s", id, name, dueAt.Format(time.RFC3339))

	if err := l.sched.Schedule(id, dueAt, l.content(*r)); err != nil {
		log.Printf("schedule id=%d: %v", id, err)
		return r, fmt.Errorf("%w: %v", ErrNotifyDegraded, err)
	}
	return r, nil
}

// Edit replaces the mutable fields of an existing reminder. Payment state is
// never changed by an edit: editing a paid reminder does not reopen it, and
// only pending reminders get a rescheduled notification.
func (l *Lifecycle) Edit(ctx context.Context, existing model.Reminder, input Input) (*model.Reminder, error) {
	name, value, dueAt, err := l.parse(input)
	if err != nil {
		return nil, err
	}

	if err := l.sched.Cancel(existing.ID); err != nil {
		log.Printf("cancel id=%d: %v", existing.ID, err)
	}

	updated := existing
	updated.Name = name
	updated.Value = value
	updated.DueAt = dueAt
	if err := l.store.Update(ctx, &updated); err != nil {
		return nil, err
	}

	if existing.PaymentDone {
		return &updated, nil
	}
	if err := l.sched.Schedule(updated.ID, dueAt, l.content(updated)); err != nil {
		log.Printf("schedule id=%d: %v", updated.ID, err)
		return &updated, fmt.Errorf("%w: %v", ErrNotifyDegraded, err)
	}
	return &updated, nil
}

// Delete removes the reminder and its pending notification.
func (l *Lifecycle) Delete(ctx context.Context, r model.Reminder) error {
	if err := l.sched.Cancel(r.ID); err != nil {
		log.Printf("cancel id=%d: %v", r.ID, err)
	}
	return l.store.Delete(ctx, r.Identity())
}

// Pay marks the reminder paid and drops its notification.
func (l *Lifecycle) Pay(ctx context.Context, r model.Reminder) error {
	if err := l.sched.Cancel(r.ID); err != nil {
		log.Printf("cancel id=%d: %v", r.ID, err)
	}
	return l.store.MarkPaid(ctx, &r)
}

// Reschedule closes the reminder as paid and rolls it forward: a fresh
// pending record one calendar month later (clamped to month length) with its
// own identity and notification.
func (l *Lifecycle) Reschedule(ctx context.Context, r model.Reminder) (*model.Reminder, error) {
	next := recurrence.AddOneMonth(r.DueAt, l.loc)

	if err := l.sched.Cancel(r.ID); err != nil {
		log.Printf("cancel id=%d: %v", r.ID, err)
	}
	if err := l.store.MarkPaid(ctx, &r); err != nil {
		return nil, err
	}

	fresh := &model.Reminder{Name: r.Name, Value: r.Value, DueAt: next}
	if err := l.store.Add(ctx, fresh); err != nil {
		return nil, err
	}

	id := l.store.LastInsertedID()
	log.Printf("[info] reminder rolled forward old=%d new=%d due=%s", r.ID, id, next.Format(time.RFC3339))

	if err := l.sched.Schedule(id, next, l.content(*fresh)); err != nil {
		log.Printf("schedule id=%d: %v", id, err)
		return fresh, fmt.Errorf("%w: %v", ErrNotifyDegraded, err)
	}
	return fresh, nil
}

// Resync re-arms one notification per pending reminder. Called at boot,
// since in-process timers do not survive a restart.
func (l *Lifecycle) Resync(ctx context.Context) error {
	if err := l.store.LoadPending(ctx); err != nil {
		return err
	}

	var degraded error
	for _, r := range l.store.Pending() {
		if err := l.sched.Cancel(r.ID); err != nil {
			log.Printf("cancel id=%d: %v", r.ID, err)
		}
		if err := l.sched.Schedule(r.ID, r.DueAt, l.content(r)); err != nil {
			log.Printf("schedule id=%d: %v", r.ID, err)
			degraded = fmt.Errorf("%w: %v", ErrNotifyDegraded, err)
		}
	}
	return degraded
}

func (l *Lifecycle) content(r model.Reminder) notify.Content {
	return notify.ContentFor(r.Name, r.Value, r.DueAt, l.loc)
}

// parse validates raw UI fields before any store or scheduler call.
func (l *Lifecycle) parse(input Input) (string, float64, time.Time, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", 0, time.Time{}, fmt.Errorf("%w: name is required", recurrence.ErrInvalidInput)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(input.Value), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return "", 0, time.Time{}, fmt.Errorf("%w: value %q must be a non-negative number", recurrence.ErrInvalidInput, input.Value)
	}

	dueAt, err := recurrence.Combine(input.Date, input.Clock, l.loc)
	if err != nil {
		return "", 0, time.Time{}, err
	}
	return name, value, dueAt, nil
}
