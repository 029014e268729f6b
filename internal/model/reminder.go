package model

import "time"

// Reminder represents a single payment obligation.
type Reminder struct {
	ID          uint   `gorm:"primaryKey"`
	UUID        string `gorm:"index"` // set only by the ephemeral backend
	Name        string `gorm:"not null"`
	Value       float64
	DueAt       time.Time
	PaymentDone bool `gorm:"default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Identity names a reminder inside its backend. The durable backend keys on
// ID, the ephemeral one on UUID; exactly one side is operative per record.
type Identity struct {
	ID   uint
	UUID string
}

// Identity returns the operative identity of the reminder.
func (r Reminder) Identity() Identity {
	return Identity{ID: r.ID, UUID: r.UUID}
}
