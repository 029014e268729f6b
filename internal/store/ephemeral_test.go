package store

import (
	"context"
	"testing"

	"payremind/internal/model"
)

func newTestEphemeral(t *testing.T) (*EphemeralStore, *MemoryKV) {
	t.Helper()

	kv := NewMemoryKV()
	s := NewEphemeralStore(kv)
	if err := s.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize ephemeral store: %v", err)
	}
	return s, kv
}

func TestEphemeralAddAssignsUUIDAndSequentialID(t *testing.T) {
	t.Parallel()
	s, _ := newTestEphemeral(t)
	ctx := context.Background()

	first := &model.Reminder{Name: "rent", Value: 950, DueAt: dueAt(1)}
	second := &model.Reminder{Name: "water", Value: 30, DueAt: dueAt(2)}
	if err := s.Add(ctx, first); err != nil {
		t.Fatalf("add first: %v", err)
	}
	if err := s.Add(ctx, second); err != nil {
		t.Fatalf("add second: %v", err)
	}

	if first.UUID == "" || second.UUID == "" || first.UUID == second.UUID {
		t.Fatalf("uuids not unique: %q vs %q", first.UUID, second.UUID)
	}
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("ids = %d, %d, want 1, 2", first.ID, second.ID)
	}
	if s.LastInsertedID() != 2 {
		t.Fatalf("LastInsertedID = %d, want 2", s.LastInsertedID())
	}

	// Newest record first.
	pending := s.Pending()
	if len(pending) != 2 || pending[0].Name != "water" {
		t.Fatalf("pending order = %+v", pending)
	}
}

func TestEphemeralIDIsMaxPlusOneAtInsert(t *testing.T) {
	t.Parallel()
	s, _ := newTestEphemeral(t)
	ctx := context.Background()

	a := &model.Reminder{Name: "a", DueAt: dueAt(1)}
	b := &model.Reminder{Name: "b", DueAt: dueAt(2)}
	if err := s.Add(ctx, a); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.Add(ctx, b); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := s.Delete(ctx, b.Identity()); err != nil {
		t.Fatalf("delete b: %v", err)
	}

	c := &model.Reminder{Name: "c", DueAt: dueAt(3)}
	if err := s.Add(ctx, c); err != nil {
		t.Fatalf("add c: %v", err)
	}
	if c.ID != a.ID+1 {
		t.Fatalf("c.ID = %d, want max existing + 1 = %d", c.ID, a.ID+1)
	}
}

func TestEphemeralMarkPaidMovesBetweenViews(t *testing.T) {
	t.Parallel()
	s, _ := newTestEphemeral(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "internet", Value: 60, DueAt: dueAt(5)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.MarkPaid(ctx, r); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	if len(s.Pending()) != 0 {
		t.Fatalf("record still pending: %+v", s.Pending())
	}
	paid := s.Paid()
	if len(paid) != 1 || paid[0].UUID != r.UUID || !paid[0].PaymentDone {
		t.Fatalf("paid view = %+v", paid)
	}
}

func TestEphemeralUpdateByUUID(t *testing.T) {
	t.Parallel()
	s, _ := newTestEphemeral(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "power", Value: 80, DueAt: dueAt(7)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}

	edited := *r
	edited.Name = "power (edited)"
	edited.Value = 85
	if err := s.Update(ctx, &edited); err != nil {
		t.Fatalf("update: %v", err)
	}

	pending := s.Pending()
	if len(pending) != 1 || pending[0].Name != "power (edited)" || pending[0].Value != 85 {
		t.Fatalf("pending after update = %+v", pending)
	}

	// Missing identity stays a silent no-op.
	ghost := model.Reminder{UUID: "no-such-uuid", Name: "ghost", DueAt: dueAt(8)}
	if err := s.Update(ctx, &ghost); err != nil {
		t.Fatalf("update of missing uuid errored: %v", err)
	}
	if got := s.Pending(); len(got) != 1 || got[0].Name != "power (edited)" {
		t.Fatalf("no-op update changed data: %+v", got)
	}
}

func TestEphemeralPersistsThroughSessionArea(t *testing.T) {
	t.Parallel()
	s, kv := newTestEphemeral(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "rent", Value: 950, DueAt: dueAt(1)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}

	// A second store over the same session area sees the records.
	reopened := NewEphemeralStore(kv)
	if err := reopened.Initialize(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	pending := reopened.Pending()
	if len(pending) != 1 || pending[0].UUID != r.UUID {
		t.Fatalf("reopened pending = %+v", pending)
	}
}

func TestEphemeralDelete(t *testing.T) {
	t.Parallel()
	s, _ := newTestEphemeral(t)
	ctx := context.Background()

	r := &model.Reminder{Name: "phone", Value: 45, DueAt: dueAt(12)}
	if err := s.Add(ctx, r); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Delete(ctx, r.Identity()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(s.Pending()) != 0 || len(s.Paid()) != 0 {
		t.Fatalf("record survived delete")
	}
	if err := s.Delete(ctx, r.Identity()); err != nil {
		t.Fatalf("second delete errored: %v", err)
	}
}
