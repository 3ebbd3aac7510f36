package model

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// transitions lists every permitted status edge. Nothing leaves cancelled and
// nothing re-enters pending.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
}

func (s Status) Valid() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

func (s Status) Terminal() bool {
	return s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown reservation status %q", raw)
	}
	return s, nil
}

type Reservation struct {
	ID          string         `json:"id" bson:"_id"`
	ResourceID  string         `json:"resource_id" bson:"resource_id"`
	OwnerID     string         `json:"owner_id" bson:"owner_id"`
	StartTime   time.Time      `json:"start_time" bson:"start_time"`
	EndTime     time.Time      `json:"end_time" bson:"end_time"`
	Status      Status         `json:"status" bson:"status"`
	Metadata    map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
	CancelledBy string         `json:"cancelled_by,omitempty" bson:"cancelled_by,omitempty"`
}

func (r *Reservation) Interval() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}

func (r *Reservation) OwnedBy(principalID string) bool {
	return principalID != "" && r.OwnerID == principalID
}

// Clone returns a copy that shares no mutable state with r.
func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	c := *r
	c.Metadata = CloneMetadata(r.Metadata)
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

// CloneMetadata copies the top-level keys of m.
func CloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// BookingRequest is the gateway payload for a new reservation.
type BookingRequest struct {
	StartTime time.Time      `json:"start_time" validate:"required"`
	EndTime   time.Time      `json:"end_time" validate:"required"`
	Metadata  map[string]any `json:"metadata,omitempty" validate:"omitempty,max=50,metadata_keys"`
}

// BookingUpdate carries the optional fields of UpdateBooking. Nil means unchanged.
type BookingUpdate struct {
	StartTime *time.Time      `json:"start_time,omitempty"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Metadata  *map[string]any `json:"metadata,omitempty" validate:"omitempty,max=50,metadata_keys"`
}

func (u *BookingUpdate) Empty() bool {
	return u == nil || (u.StartTime == nil && u.EndTime == nil && u.Metadata == nil)
}

func (u *BookingUpdate) ChangesInterval() bool {
	return u != nil && (u.StartTime != nil || u.EndTime != nil)
}

// ReservationFilter narrows the read path. Zero values mean no constraint.
type ReservationFilter struct {
	From    *time.Time
	To      *time.Time
	Status  []Status
	OwnerID string
	Limit   int
	Offset  int64
}
