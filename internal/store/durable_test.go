package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"payremind/internal/model"
)

func newTestDurable(t *testing.T) *DurableStore {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	s := NewDurableStore(dsn)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize durable store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dueAt(day int) time.Time {
	return time.Date(2024, time.June, day, 13, 45, 0, 0, time.UTC)
}

func TestDurableAddPopulatesPendingView(t *testing.T) {
	t.Parallel()
	s := newTestDurable(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "rent", Value: 950, DueAt: dueAt(1), PaymentDone: true}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}

	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d records, want 1", len(pending))
	}
	got := pending[0]
	if got.Name != "rent" || got.Value != 950 || got.PaymentDone {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.ID == 0 {
		t.Fatalf("store did not assign an id")
	}
	if s.LastInsertedID() != got.ID {
		t.Fatalf("LastInsertedID = %d, want %d", s.LastInsertedID(), got.ID)
	}
	if len(s.Paid()) != 0 {
		t.Fatalf("paid view should be empty, got %+v", s.Paid())
	}
}

func TestDurableMarkPaidMovesBetweenViews(t *testing.T) {
	t.Parallel()
	s := newTestDurable(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "internet", Value: 60, DueAt: dueAt(5)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.MarkPaid(ctx, r); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if len(s.Pending()) != 0 {
		t.Fatalf("record still pending after MarkPaid: %+v", s.Pending())
	}
	paid := s.Paid()
	if len(paid) != 1 || paid[0].ID != r.ID || !paid[0].PaymentDone {
		t.Fatalf("paid view = %+v", paid)
	}
	if paid[0].Name != "internet" || paid[0].Value != 60 {
		t.Fatalf("MarkPaid touched other fields: %+v", paid[0])
	}
}

func TestDurableLastInsertedIDRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestDurable(t)
	ctx := context.Background()

	first := &model.Reminder{Name: "water", Value: 30, DueAt: dueAt(3)}
	if err := s.Add(ctx, first); err != nil {
		t.Fatalf("add first: %v", err)
	}
	firstID := s.LastInsertedID()

	second := &model.Reminder{Name: "power", Value: 80, DueAt: dueAt(7)}
	if err := s.Add(ctx, second); err != nil {
		t.Fatalf("add second: %v", err)
	}
	secondID := s.LastInsertedID()

	if firstID == secondID {
		t.Fatalf("ids not distinct: %d", firstID)
	}

	if err := s.Update(ctx, &model.Reminder{ID: secondID, Name: "power (edited)", Value: 85, DueAt: dueAt(8)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	for _, r := range s.Pending() {
		switch r.ID {
		case firstID:
			if r.Name != "water" {
				t.Fatalf("update touched unrelated record: %+v", r)
			}
		case secondID:
			if r.Name != "power (edited)" || r.Value != 85 {
				t.Fatalf("update missed target record: %+v", r)
			}
		}
	}
}

func TestDurableUpdateKeepsPaymentState(t *testing.T) {
	t.Parallel()
	s := newTestDurable(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "gym", Value: 25, DueAt: dueAt(10)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.MarkPaid(ctx, r); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if err := s.Update(ctx, &model.Reminder{ID: r.ID, Name: "gym plus", Value: 35, DueAt: dueAt(11)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	paid := s.Paid()
	if len(paid) != 1 || paid[0].Name != "gym plus" {
		t.Fatalf("paid view after update = %+v", paid)
	}
	if len(s.Pending()) != 0 {
		t.Fatalf("editing a paid record reopened it: %+v", s.Pending())
	}
}

func TestDurableMissingIdentityIsNoop(t *testing.T) {
	t.Parallel()
	s := newTestDurable(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "rent", Value: 950, DueAt: dueAt(1)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.Update(ctx, &model.Reminder{ID: 9999, Name: "ghost", DueAt: dueAt(2)}); err != nil {
		t.Fatalf("update of missing id errored: %v", err)
	}
	if err := s.MarkPaid(ctx, &model.Reminder{ID: 9999}); err != nil {
		t.Fatalf("mark paid of missing id errored: %v", err)
	}
	if err := s.Delete(ctx, model.Identity{ID: 9999}); err != nil {
		t.Fatalf("delete of missing id errored: %v", err)
	}

	pending := s.Pending()
	if len(pending) != 1 || pending[0].Name != "rent" {
		t.Fatalf("no-op mutations changed the data: %+v", pending)
	}
}

func TestDurableDeleteRemovesFromBothViews(t *testing.T) {
	t.Parallel()
	s := newTestDurable(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "phone", Value: 45, DueAt: dueAt(12)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Delete(ctx, r.Identity()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(s.Pending()) != 0 || len(s.Paid()) != 0 {
		t.Fatalf("record survived delete: pending=%+v paid=%+v", s.Pending(), s.Paid())
	}
}
