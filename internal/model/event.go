package model

import (
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventBooked   EventKind = "booked"
	EventReleased EventKind = "released"
)

// Event доменное событие об изменении слота
type Event struct {
	ID         uuid.UUID `json:"event_id"`
	Kind       EventKind `json:"kind"`
	Date       time.Time `json:"-"`
	TimeOfDay  string    `json:"time_of_day"`
	SubjectID  string    `json:"subject_id,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
