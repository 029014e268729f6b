package store

import (
	"context"
	"fmt"
	"log"
)

// Storage modes.
const (
	ModeAuto      = "auto"
	ModeDurable   = "durable"
	ModeEphemeral = "ephemeral"
)

// Capability describes what the host offers for persistence. It is built
// once at process start and never re-probed.
type Capability struct {
	Mode string // auto, durable or ephemeral
	DSN  string // relational DSN, sqlite file path when not postgres-shaped
	KV   SessionKV
}

// Durable reports whether the host claims durable persistence. In auto mode
// a configured DSN is the capability signal.
func (c Capability) Durable() bool {
	switch c.Mode {
	case ModeDurable:
		return true
	case ModeEphemeral:
		return false
	default:
		return c.DSN != ""
	}
}

// Selector holds the backend chosen at startup behind the Store interface.
// It is never switched at runtime.
type Selector struct {
	Store
	backend string
}

// Backend names the chosen backend, for logging.
func (s *Selector) Backend() string { return s.backend }

// Select resolves the authoritative backend once and initializes it. A
// durable-capable host whose database fails to open gets the error back;
// there is no silent fallback to the ephemeral backend.
func Select(ctx context.Context, c Capability) (*Selector, error) {
	if c.Durable() {
		s := NewDurableStore(c.DSN)
		if err := s.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("durable backend: %w", err)
		}
		log.Printf("[info] store: durable backend at %q", c.DSN)
		return &Selector{Store: s, backend: ModeDurable}, nil
	}

	s := NewEphemeralStore(c.KV)
	if err := s.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("ephemeral backend: %w", err)
	}
	log.Println("[info] store: ephemeral session backend")
	return &Selector{Store: s, backend: ModeEphemeral}, nil
}
