package model

import "time"

type EventKind string

const (
	EventCreated   EventKind = "created"
	EventCancelled EventKind = "cancelled"
	EventUpdated   EventKind = "updated"
)

// ChangeEvent is what observers receive for every committed transition.
type ChangeEvent struct {
	Kind       EventKind `json:"kind"`
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	OwnerID    string    `json:"owner_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     Status    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewChangeEvent(kind EventKind, r *Reservation, at time.Time) ChangeEvent {
	return ChangeEvent{
		Kind:       kind,
		ID:         r.ID,
		ResourceID: r.ResourceID,
		OwnerID:    r.OwnerID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Status:     r.Status,
		OccurredAt: at,
	}
}
