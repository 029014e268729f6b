// Package store persists payment reminders behind a uniform contract with
// two interchangeable backends: a durable relational one and an ephemeral
// session-scoped one.
package store

import (
	"context"
	"errors"

	"payremind/internal/model"
)

// ErrStoreUnavailable means the backend could not be opened or prepared.
var ErrStoreUnavailable = errors.New("reminder store unavailable")

// Store is the uniform reminder persistence contract. Both views are cached
// in the store and refreshed after every mutation, so Pending and Paid are
// never stale relative to the backing records.
//
// Update, MarkPaid and Delete targeting an identity that no longer exists
// are silent no-ops, not errors.
type Store interface {
	// Initialize prepares the backend. Returns ErrStoreUnavailable when it
	// cannot be opened.
	Initialize(ctx context.Context) error

	// LoadPending and LoadPaid repopulate the cached views from the backend.
	LoadPending(ctx context.Context) error
	LoadPaid(ctx context.Context) error

	// Pending and Paid return copies of the current views. The two sets are
	// disjoint and partition the full record set by PaymentDone.
	Pending() []model.Reminder
	Paid() []model.Reminder

	// Add assigns a fresh identity, forces PaymentDone to false and inserts.
	Add(ctx context.Context, r *model.Reminder) error

	// Update replaces name, value and due instant of the matching record.
	// Payment state is left untouched.
	Update(ctx context.Context, r *model.Reminder) error

	// MarkPaid sets PaymentDone on the matching record.
	MarkPaid(ctx context.Context, r *model.Reminder) error

	// Delete removes the record with the given identity.
	Delete(ctx context.Context, id model.Identity) error

	// LastInsertedID returns the integer identity assigned by the most
	// recent Add.
	LastInsertedID() uint
}
