package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	reservationserrors "helipad/internal/reservations/errors"
	"helipad/pkg/model"

	"github.com/google/uuid"
)

var base = time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

func newReservation(status model.Status, start, end time.Time) *model.Reservation {
	return &model.Reservation{
		ID:         uuid.NewString(),
		ResourceID: "pad",
		OwnerID:    "u1",
		StartTime:  start,
		EndTime:    end,
		Status:     status,
		Metadata:   map[string]any{"purpose": "charter"},
		CreatedAt:  base,
		UpdatedAt:  base,
	}
}

func TestMemoryRepository_InsertAndFind(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(30*time.Minute))
	if err := repo.Insert(ctx, r); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := repo.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.OwnerID != "u1" || got.Metadata["purpose"] != "charter" {
		t.Errorf("unexpected reservation: %+v", got)
	}

	got.Metadata["purpose"] = "changed"
	again, _ := repo.FindByID(ctx, r.ID)
	if again.Metadata["purpose"] != "charter" {
		t.Error("returned record shares state with the store")
	}

	if err := repo.Insert(ctx, r); !errors.Is(err, reservationserrors.ErrDuplicateID) {
		t.Errorf("second Insert() error = %v, want ErrDuplicateID", err)
	}
}

func TestMemoryRepository_FindByIDErrors(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "", "R-2030-0042"} {
		if _, err := repo.FindByID(ctx, id); !errors.Is(err, reservationserrors.ErrNotFound) {
			t.Errorf("FindByID(%q) error = %v, want ErrNotFound", id, err)
		}
	}
	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, reservationserrors.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_FindConfirmedOverlapping(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()
	buffer := 5 * time.Minute

	confirmed := newReservation(model.StatusConfirmed, base, base.Add(10*time.Minute))
	pending := newReservation(model.StatusPending, base, base.Add(10*time.Minute))
	cancelled := newReservation(model.StatusCancelled, base, base.Add(10*time.Minute))
	for _, r := range []*model.Reservation{confirmed, pending, cancelled} {
		if err := repo.Insert(ctx, r); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		candidate model.Interval
		exclude   string
		want      int
	}{
		{"inside buffer", model.Interval{Start: base.Add(10 * time.Minute), End: base.Add(20 * time.Minute)}, "", 1},
		{"at buffer boundary", model.Interval{Start: base.Add(15 * time.Minute), End: base.Add(25 * time.Minute)}, "", 0},
		{"before within buffer", model.Interval{Start: base.Add(-10 * time.Minute), End: base.Add(-2 * time.Minute)}, "", 1},
		{"excluded self", model.Interval{Start: base, End: base.Add(10 * time.Minute)}, confirmed.ID, 0},
		{"exact overlap", model.Interval{Start: base, End: base.Add(10 * time.Minute)}, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindConfirmedOverlapping(ctx, "pad", tt.candidate, buffer, tt.exclude)
			if err != nil {
				t.Fatalf("FindConfirmedOverlapping() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d conflicts, want %d", len(got), tt.want)
			}
		})
	}

	got, _ := repo.FindConfirmedOverlapping(ctx, "other-pad", model.Interval{Start: base, End: base.Add(time.Hour)}, buffer, "")
	if len(got) != 0 {
		t.Errorf("reservations leaked across resources: %d", len(got))
	}
}

func TestMemoryRepository_UpdateStatusIsConditional(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(10*time.Minute))
	_ = repo.Insert(ctx, r)

	later := base.Add(time.Hour)
	updated, err := repo.UpdateStatus(ctx, r.ID, model.StatusPending, model.StatusCancelled, StatusFields{
		UpdatedAt:   later,
		CancelledAt: &later,
		CancelledBy: "admin",
	})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if updated.Status != model.StatusCancelled || updated.CancelledBy != "admin" || !updated.UpdatedAt.Equal(later) {
		t.Errorf("unexpected record after update: %+v", updated)
	}

	_, err = repo.UpdateStatus(ctx, r.ID, model.StatusPending, model.StatusConfirmed, StatusFields{UpdatedAt: later})
	if !errors.Is(err, reservationserrors.ErrStatusMismatch) {
		t.Errorf("stale UpdateStatus() error = %v, want ErrStatusMismatch", err)
	}

	_, err = repo.UpdateStatus(ctx, uuid.NewString(), model.StatusPending, model.StatusConfirmed, StatusFields{UpdatedAt: later})
	if !errors.Is(err, reservationserrors.ErrNotFound) {
		t.Errorf("missing UpdateStatus() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepository_UpdateDetails(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	r := newReservation(model.StatusPending, base, base.Add(10*time.Minute))
	_ = repo.Insert(ctx, r)

	newEnd := base.Add(40 * time.Minute)
	meta := map[string]any{"passengers": 3}
	updated, err := repo.UpdateDetails(ctx, r.ID, model.StatusPending, DetailChanges{
		EndTime:   &newEnd,
		Metadata:  &meta,
		UpdatedAt: base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("UpdateDetails() error = %v", err)
	}
	if !updated.EndTime.Equal(newEnd) || !updated.StartTime.Equal(base) || updated.Metadata["passengers"] != 3 {
		t.Errorf("unexpected record after update: %+v", updated)
	}
	if updated.Status != model.StatusPending {
		t.Errorf("status changed to %s", updated.Status)
	}

	if _, err := repo.UpdateDetails(ctx, r.ID, model.StatusConfirmed, DetailChanges{UpdatedAt: base}); !errors.Is(err, reservationserrors.ErrStatusMismatch) {
		t.Errorf("error = %v, want ErrStatusMismatch", err)
	}
}

func TestMemoryRepository_FindAndCount(t *testing.T) {
	repo := NewMemoryReservationRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		status := model.StatusPending
		if i%2 == 0 {
			status = model.StatusConfirmed
		}
		_ = repo.Insert(ctx, newReservation(status, start, start.Add(30*time.Minute)))
	}

	count, err := repo.Count(ctx, "pad", model.ReservationFilter{Status: []model.Status{model.StatusConfirmed}})
	if err != nil || count != 3 {
		t.Errorf("Count() = %d, %v; want 3", count, err)
	}

	from := base.Add(90 * time.Minute)
	page, err := repo.Find(ctx, "pad", model.ReservationFilter{From: &from, Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d results, want 2", len(page))
	}
	if !page[0].StartTime.Equal(base.Add(3*time.Hour)) {
		t.Errorf("results not sorted by start time: first = %s", page[0].StartTime)
	}

	empty, _ := repo.Find(ctx, "pad", model.ReservationFilter{Offset: 50})
	if len(empty) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(empty))
	}
}
