package notify

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// LocalScheduler arms one in-process timer per reminder id and fans the
// fired notification out to its sinks. Timers do not survive a restart; the
// lifecycle controller re-arms pending reminders at boot.
type LocalScheduler struct {
	mu     sync.Mutex
	timers map[uint]*time.Timer
	sinks  []Sink
	closed bool
}

func NewLocalScheduler(sinks ...Sink) *LocalScheduler {
	return &LocalScheduler{
		timers: make(map[uint]*time.Timer),
		sinks:  sinks,
	}
}

// Ready probes every sink once; a scheduler with no working sink is useless.
func (s *LocalScheduler) Ready() error {
	if len(s.sinks) == 0 {
		return fmt.Errorf("%w: no delivery sinks configured", ErrSchedulerFailure)
	}
	for _, sink := range s.sinks {
		if err := sink.Ready(); err != nil {
			return fmt.Errorf("%w: %v", ErrSchedulerFailure, err)
		}
	}
	return nil
}

// Schedule arms a timer for the id. An already-pending timer for the same id
// is replaced. Instants in the past fire immediately.
func (s *LocalScheduler) Schedule(id uint, fireAt time.Time, content Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("%w: scheduler closed", ErrSchedulerFailure)
	}

	if prev, ok := s.timers[id]; ok {
		prev.Stop()
		delete(s.timers, id)
	}

	delay := time.Until(fireAt)
	if delay < 0 {
		delay = 0
	}

	s.timers[id] = time.AfterFunc(delay, func() {
		s.fire(id, content)
	})
	log.Printf("[info] notify: scheduled id=%d at %s", id, fireAt.Format(time.RFC3339))
	return nil
}

// Cancel stops and forgets the timer for the id. Idempotent.
func (s *LocalScheduler) Cancel(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
		log.Printf("[info] notify: cancelled id=%d", id)
	}
	return nil
}

// Close stops all pending timers.
func (s *LocalScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *LocalScheduler) fire(id uint, content Content) {
	s.mu.Lock()
	delete(s.timers, id)
	sinks := append([]Sink(nil), s.sinks...)
	s.mu.Unlock()

	for _, sink := range sinks {
		if err := sink.Send(content); err != nil {
			log.Printf("notify: deliver id=%d: %v", id, err)
		}
	}
}
