package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	reservationserrors "helipad/internal/reservations/errors"
	mongotx "helipad/pkg/db/mongo"
	"helipad/pkg/model"

	"github.com/google/uuid"
)

// memoryReservationRepository keeps reservations in a map guarded by a
// RWMutex. Records are cloned on the way in and out so callers never share
// state with the store.
type memoryReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*model.Reservation
	txManager    mongotx.TransactionManager
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{
		reservations: make(map[string]*model.Reservation),
		txManager:    mongotx.NoopTransactionManager{},
	}
}

func (r *memoryReservationRepository) Insert(ctx context.Context, reservation *model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	if _, exists := r.reservations[reservation.ID]; exists {
		return reservationserrors.ErrDuplicateID
	}
	r.reservations[reservation.ID] = reservation.Clone()
	return nil
}

func (r *memoryReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return stored.Clone(), nil
}

func (r *memoryReservationRepository) FindConfirmedOverlapping(
	ctx context.Context,
	resourceID string,
	candidate model.Interval,
	buffer time.Duration,
	excludeID string,
) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conflicts []*model.Reservation
	for _, stored := range r.reservations {
		if stored.ResourceID != resourceID || stored.Status != model.StatusConfirmed || stored.ID == excludeID {
			continue
		}
		if stored.Interval().ConflictsWith(candidate, buffer) {
			conflicts = append(conflicts, stored.Clone())
		}
	}
	sortByStart(conflicts)
	return conflicts, nil
}

func (r *memoryReservationRepository) UpdateStatus(
	ctx context.Context,
	id string,
	from, to model.Status,
	fields StatusFields,
) (*model.Reservation, error) {
	return r.conditionalUpdate(ctx, id, from, func(stored *model.Reservation) {
		stored.Status = to
		stored.UpdatedAt = fields.UpdatedAt
		if fields.CancelledAt != nil {
			at := *fields.CancelledAt
			stored.CancelledAt = &at
		}
		if fields.CancelledBy != "" {
			stored.CancelledBy = fields.CancelledBy
		}
	})
}

func (r *memoryReservationRepository) UpdateDetails(
	ctx context.Context,
	id string,
	from model.Status,
	changes DetailChanges,
) (*model.Reservation, error) {
	return r.conditionalUpdate(ctx, id, from, func(stored *model.Reservation) {
		if changes.StartTime != nil {
			stored.StartTime = *changes.StartTime
		}
		if changes.EndTime != nil {
			stored.EndTime = *changes.EndTime
		}
		if changes.Metadata != nil {
			stored.Metadata = model.CloneMetadata(*changes.Metadata)
		}
		stored.UpdatedAt = changes.UpdatedAt
	})
}

func (r *memoryReservationRepository) conditionalUpdate(ctx context.Context, id string, from model.Status, apply func(*model.Reservation)) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reservations[id]
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	if stored.Status != from {
		return nil, reservationserrors.ErrStatusMismatch
	}
	apply(stored)
	return stored.Clone(), nil
}

func (r *memoryReservationRepository) Find(ctx context.Context, resourceID string, filter model.ReservationFilter) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matched := r.matching(resourceID, filter)

	if filter.Offset >= int64(len(matched)) {
		return []*model.Reservation{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *memoryReservationRepository) Count(ctx context.Context, resourceID string, filter model.ReservationFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.matching(resourceID, filter))), nil
}

func (r *memoryReservationRepository) matching(resourceID string, f model.ReservationFilter) []*model.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Reservation
	for _, stored := range r.reservations {
		if stored.ResourceID != resourceID {
			continue
		}
		if f.From != nil && !stored.EndTime.After(*f.From) {
			continue
		}
		if f.To != nil && !stored.StartTime.Before(*f.To) {
			continue
		}
		if len(f.Status) > 0 && !slices.Contains(f.Status, stored.Status) {
			continue
		}
		if f.OwnerID != "" && stored.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, stored.Clone())
	}
	sortByStart(out)
	return out
}

func sortByStart(reservations []*model.Reservation) {
	slices.SortFunc(reservations, func(a, b *model.Reservation) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

func (r *memoryReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
