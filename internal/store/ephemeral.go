package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"payremind/internal/model"
)

const sessionKey = "reminders"

// SessionKV is the key-value session area the ephemeral backend writes to.
// The whole record set lives JSON-encoded under a single key.
type SessionKV interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryKV is an in-process SessionKV; contents vanish with the process.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryKV) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// EphemeralStore keeps reminders in a session key-value area. Records carry a
// generated UUID as their operative identity; the integer id is still
// assigned (max existing plus one, computed at insert) so notifications can
// be keyed the same way as with the durable backend.
type EphemeralStore struct {
	kv SessionKV

	mu      sync.Mutex
	records []model.Reminder
	pending []model.Reminder
	paid    []model.Reminder
	lastID  uint
}

func NewEphemeralStore(kv SessionKV) *EphemeralStore {
	if kv == nil {
		kv = NewMemoryKV()
	}
	return &EphemeralStore{kv: kv}
}

// Initialize loads whatever the session area already holds.
func (s *EphemeralStore) Initialize(ctx context.Context) error {
	if err := s.reload(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.refresh(ctx)
}

func (s *EphemeralStore) reload() error {
	raw, ok := s.kv.Get(sessionKey)
	if !ok || raw == "" {
		raw = "[]"
	}
	var records []model.Reminder
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return fmt.Errorf("decode session records: %w", err)
	}
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

func (s *EphemeralStore) save() {
	raw, err := json.Marshal(s.records)
	if err != nil {
		return
	}
	s.kv.Set(sessionKey, string(raw))
}

func (s *EphemeralStore) LoadPending(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = s.pending[:0]
	for _, r := range s.records {
		if !r.PaymentDone {
			s.pending = append(s.pending, r)
		}
	}
	return nil
}

func (s *EphemeralStore) LoadPaid(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paid = s.paid[:0]
	for _, r := range s.records {
		if r.PaymentDone {
			s.paid = append(s.paid, r)
		}
	}
	return nil
}

func (s *EphemeralStore) Pending() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Reminder(nil), s.pending...)
}

func (s *EphemeralStore) Paid() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Reminder(nil), s.paid...)
}

func (s *EphemeralStore) Add(ctx context.Context, r *model.Reminder) error {
	s.mu.Lock()
	r.UUID = uuid.NewString()
	r.ID = s.maxIDLocked() + 1
	r.PaymentDone = false
	s.lastID = r.ID
	// Newest record goes first.
	s.records = append([]model.Reminder{*r}, s.records...)
	s.save()
	s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *EphemeralStore) Update(ctx context.Context, r *model.Reminder) error {
	s.mu.Lock()
	for i := range s.records {
		if s.records[i].UUID == r.UUID {
			s.records[i].Name = r.Name
			s.records[i].Value = r.Value
			s.records[i].DueAt = r.DueAt
			break
		}
	}
	s.save()
	s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *EphemeralStore) MarkPaid(ctx context.Context, r *model.Reminder) error {
	s.mu.Lock()
	for i := range s.records {
		if s.records[i].UUID == r.UUID {
			s.records[i].PaymentDone = true
			break
		}
	}
	s.save()
	s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *EphemeralStore) Delete(ctx context.Context, id model.Identity) error {
	s.mu.Lock()
	kept := s.records[:0]
	for _, r := range s.records {
		if r.UUID != id.UUID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	s.save()
	s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *EphemeralStore) LastInsertedID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}

func (s *EphemeralStore) maxIDLocked() uint {
	var max uint
	for _, r := range s.records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max
}

func (s *EphemeralStore) refresh(ctx context.Context) error {
	if err := s.LoadPending(ctx); err != nil {
		return err
	}
	return s.LoadPaid(ctx)
}
