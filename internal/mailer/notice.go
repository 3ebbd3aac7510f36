package mailer

import (
	"time"

	"helipad/pkg/model"
)

type NoticeKind string

const (
	NoticeConfirmed NoticeKind = "reservation.confirmed"
	NoticeCancelled NoticeKind = "reservation.cancelled"
)

// Notice carries the booking facts the email collaborator renders. Templates,
// locale and delivery belong to the collaborator.
type Notice struct {
	Kind          NoticeKind     `json:"kind"`
	ReservationID string         `json:"reservation_id"`
	ResourceID    string         `json:"resource_id"`
	OwnerID       string         `json:"owner_id"`
	StartTime     time.Time      `json:"start_time"`
	EndTime       time.Time      `json:"end_time"`
	Status        model.Status   `json:"status"`
	CancelledBy   string         `json:"cancelled_by,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	IssuedAt      time.Time      `json:"issued_at"`
}

func newNotice(kind NoticeKind, r *model.Reservation) Notice {
	return Notice{
		Kind:          kind,
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		OwnerID:       r.OwnerID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		Status:        r.Status,
		CancelledBy:   r.CancelledBy,
		Metadata:      model.CloneMetadata(r.Metadata),
		IssuedAt:      time.Now().UTC(),
	}
}
