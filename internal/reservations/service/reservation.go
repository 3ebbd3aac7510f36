package service

import (
	"context"
	"errors"
	"time"

	"helipad/internal/mailer"
	"helipad/internal/notifier"
	reservationserrors "helipad/internal/reservations/errors"
	"helipad/internal/reservations/repository"
	"helipad/internal/reservations/validator"
	"helipad/internal/settings"
	"helipad/pkg/config"
	apperrors "helipad/pkg/errors"
	"helipad/pkg/logger"
	"helipad/pkg/model"

	"github.com/google/uuid"
)

// maxWriteAttempts bounds how often a conditional write is re-evaluated after
// losing a race on the record's status.
const maxWriteAttempts = 3

type ReservationService interface {
	RequestBooking(ctx context.Context, principal model.Principal, interval model.Interval, metadata map[string]any) (*model.Reservation, error)
	ApproveBooking(ctx context.Context, id string, approver model.Principal) (*model.Reservation, error)
	RejectBooking(ctx context.Context, id string, approver model.Principal) (*model.Reservation, error)
	CancelBooking(ctx context.Context, id string, requester model.Principal) (*model.Reservation, error)
	UpdateBooking(ctx context.Context, id string, requester model.Principal, update *model.BookingUpdate) (*model.Reservation, error)
	GetByID(ctx context.Context, id string, requester model.Principal) (*model.Reservation, error)
	List(ctx context.Context, requester model.Principal, filter model.ReservationFilter) ([]*model.Reservation, int64, error)
	Availability(ctx context.Context, date string) (*model.Availability, error)
}

type reservationService struct {
	repo       repository.ReservationRepository
	locker     repository.SlotLocker
	settings   settings.Provider
	publisher  notifier.Publisher
	mail       mailer.Notifier
	validator  *validator.ReservationValidator
	resourceID string
	log        *logger.Logger
	now        func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	locker repository.SlotLocker,
	settings settings.Provider,
	publisher notifier.Publisher,
	mail mailer.Notifier,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:       repo,
		locker:     locker,
		settings:   settings,
		publisher:  publisher,
		mail:       mail,
		validator:  validator,
		resourceID: cfg.ResourceID,
		log:        cfg.Log.Component("reservation_service"),
		now:        time.Now,
	}
}

func (s *reservationService) RequestBooking(ctx context.Context, principal model.Principal, interval model.Interval, metadata map[string]any) (*model.Reservation, error) {
	if principal.Anonymous() {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	p, err := s.loadPolicy(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := p.checkInterval(interval, now); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateRequest(&model.BookingRequest{
		StartTime: interval.Start,
		EndTime:   interval.End,
		Metadata:  metadata,
	}); err != nil {
		s.log.Warn("Reservation request validation failed", "owner_id", principal.ID, "error", err)
		return nil, apperrors.Validation("Invalid reservation request", map[string]any{"error": err.Error()})
	}

	status := model.StatusPending
	if principal.Privileged {
		status = model.StatusConfirmed
	}
	reservation := &model.Reservation{
		ID:         uuid.NewString(),
		ResourceID: s.resourceID,
		OwnerID:    principal.ID,
		StartTime:  interval.Start,
		EndTime:    interval.End,
		Status:     status,
		Metadata:   metadata,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}

	err = s.withSlotLock(ctx, func() error {
		return s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			if err := s.verifyNoConflict(txCtx, interval, p.settings.Buffer(), ""); err != nil {
				return err
			}
			return s.repo.Insert(txCtx, reservation)
		})
	})
	if err != nil {
		return nil, s.storeError(err, reservation.ID, "Failed to create reservation")
	}

	s.log.Info("Reservation created",
		"id", reservation.ID,
		"owner_id", reservation.OwnerID,
		"status", reservation.Status,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
	)

	s.publish(ctx, model.EventCreated, reservation)
	if reservation.Status == model.StatusConfirmed {
		s.mail.NotifyConfirmed(reservation.Clone())
	}
	return reservation, nil
}

func (s *reservationService) ApproveBooking(ctx context.Context, id string, approver model.Principal) (*model.Reservation, error) {
	if !approver.Privileged {
		return nil, apperrors.Forbidden("Only privileged users can approve reservations")
	}

	approved, err := s.retryOnMismatch(func() (*model.Reservation, error) {
		existing, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Status.Terminal() {
			return nil, apperrors.AlreadyTerminal("Reservation is already cancelled")
		}
		if !existing.Status.CanTransitionTo(model.StatusConfirmed) {
			return nil, apperrors.InvalidTransition("Reservation is already confirmed")
		}

		p, err := s.loadPolicy(ctx)
		if err != nil {
			return nil, err
		}

		var updated *model.Reservation
		err = s.withSlotLock(ctx, func() error {
			return s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
				if err := s.verifyNoConflict(txCtx, existing.Interval(), p.settings.Buffer(), id); err != nil {
					return err
				}
				var err error
				updated, err = s.repo.UpdateStatus(txCtx, id, model.StatusPending, model.StatusConfirmed, repository.StatusFields{
					UpdatedAt: s.now().UTC(),
				})
				return err
			})
		})
		return updated, err
	})
	if err != nil {
		return nil, s.storeError(err, id, "Failed to approve reservation")
	}

	s.log.Info("Reservation approved", "id", id, "approver_id", approver.ID)
	s.publish(ctx, model.EventCreated, approved)
	s.mail.NotifyConfirmed(approved.Clone())
	return approved, nil
}

func (s *reservationService) RejectBooking(ctx context.Context, id string, approver model.Principal) (*model.Reservation, error) {
	if !approver.Privileged {
		return nil, apperrors.Forbidden("Only privileged users can reject reservations")
	}

	rejected, err := s.retryOnMismatch(func() (*model.Reservation, error) {
		existing, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Status.Terminal() {
			return nil, apperrors.AlreadyTerminal("Reservation is already cancelled")
		}
		if existing.Status != model.StatusPending {
			return nil, apperrors.InvalidTransition("Only pending reservations can be rejected")
		}

		now := s.now().UTC()
		return s.repo.UpdateStatus(ctx, id, model.StatusPending, model.StatusCancelled, repository.StatusFields{
			UpdatedAt:   now,
			CancelledAt: &now,
			CancelledBy: approver.ID,
		})
	})
	if err != nil {
		return nil, s.storeError(err, id, "Failed to reject reservation")
	}

	s.log.Info("Reservation rejected", "id", id, "approver_id", approver.ID)
	s.publish(ctx, model.EventCancelled, rejected)
	s.mail.NotifyCancelled(rejected.Clone())
	return rejected, nil
}

func (s *reservationService) CancelBooking(ctx context.Context, id string, requester model.Principal) (*model.Reservation, error) {
	cancelled, err := s.retryOnMismatch(func() (*model.Reservation, error) {
		existing, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if !existing.OwnedBy(requester.ID) && !requester.Privileged {
			return nil, apperrors.Forbidden("Only the owner or a privileged user can cancel this reservation")
		}
		if existing.Status.Terminal() {
			return nil, apperrors.AlreadyTerminal("Reservation is already cancelled")
		}

		now := s.now().UTC()
		return s.repo.UpdateStatus(ctx, id, existing.Status, model.StatusCancelled, repository.StatusFields{
			UpdatedAt:   now,
			CancelledAt: &now,
			CancelledBy: requester.ID,
		})
	})
	if err != nil {
		return nil, s.storeError(err, id, "Failed to cancel reservation")
	}

	s.log.Info("Reservation cancelled", "id", id, "cancelled_by", requester.ID)
	s.publish(ctx, model.EventCancelled, cancelled)
	s.mail.NotifyCancelled(cancelled.Clone())
	return cancelled, nil
}

func (s *reservationService) UpdateBooking(ctx context.Context, id string, requester model.Principal, update *model.BookingUpdate) (*model.Reservation, error) {
	if err := s.validator.ValidateUpdate(update); err != nil {
		s.log.Warn("Reservation update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	updated, err := s.retryOnMismatch(func() (*model.Reservation, error) {
		existing, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if !requester.Privileged && !existing.OwnedBy(requester.ID) {
			return nil, apperrors.Forbidden("Only the owner or a privileged user can change this reservation")
		}
		if existing.Status.Terminal() {
			return nil, apperrors.AlreadyTerminal("Reservation is already cancelled")
		}
		now := s.now()
		if !requester.Privileged {
			if existing.Status != model.StatusPending {
				return nil, apperrors.Forbidden("Only pending reservations can be changed by their owner")
			}
			if !existing.StartTime.After(now) {
				return nil, apperrors.Forbidden("Reservations that have started can no longer be changed")
			}
		}

		changes := repository.DetailChanges{
			Metadata:  update.Metadata,
			UpdatedAt: now.UTC(),
		}
		if !update.ChangesInterval() {
			return s.repo.UpdateDetails(ctx, id, existing.Status, changes)
		}

		next := mergeInterval(existing.Interval(), update)
		p, err := s.loadPolicy(ctx)
		if err != nil {
			return nil, err
		}
		if err := p.checkInterval(next, now); err != nil {
			return nil, err
		}
		changes.StartTime = &next.Start
		changes.EndTime = &next.End

		var result *model.Reservation
		err = s.withSlotLock(ctx, func() error {
			return s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
				if err := s.verifyNoConflict(txCtx, next, p.settings.Buffer(), id); err != nil {
					return err
				}
				var err error
				result, err = s.repo.UpdateDetails(txCtx, id, existing.Status, changes)
				return err
			})
		})
		return result, err
	})
	if err != nil {
		return nil, s.storeError(err, id, "Failed to update reservation")
	}

	s.log.Info("Reservation updated", "id", id, "updated_by", requester.ID)
	s.publish(ctx, model.EventUpdated, updated)
	return updated, nil
}

// --- Helpers ---

func mergeInterval(current model.Interval, update *model.BookingUpdate) model.Interval {
	next := current
	if update.StartTime != nil {
		next.Start = *update.StartTime
	}
	if update.EndTime != nil {
		next.End = *update.EndTime
	}
	return next
}

func (s *reservationService) loadPolicy(ctx context.Context) (*policy, error) {
	snapshot, err := s.settings.Load(ctx)
	if err != nil {
		s.log.Error("Failed to load helipad settings", "error", err)
		return nil, apperrors.StoreUnavailable("Helipad settings are unavailable", err)
	}
	return resolvePolicy(snapshot)
}

func (s *reservationService) find(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	return s.repo.FindByID(ctx, id)
}

// withSlotLock runs fn while holding the resource's slot lock.
func (s *reservationService) withSlotLock(ctx context.Context, fn func() error) error {
	release, err := s.locker.Acquire(ctx, s.resourceID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (s *reservationService) verifyNoConflict(ctx context.Context, candidate model.Interval, buffer time.Duration, excludeID string) error {
	blocking, err := s.repo.FindConfirmedOverlapping(ctx, s.resourceID, candidate, buffer, excludeID)
	if err != nil {
		return err
	}
	if len(blocking) > 0 {
		return conflictError(blocking[0])
	}
	return nil
}

// retryOnMismatch re-runs attempt when its conditional write lost a race, so
// the next read reports the state that won.
func (s *reservationService) retryOnMismatch(attempt func() (*model.Reservation, error)) (*model.Reservation, error) {
	var err error
	for i := 0; i < maxWriteAttempts; i++ {
		var r *model.Reservation
		r, err = attempt()
		if !errors.Is(err, reservationserrors.ErrStatusMismatch) {
			return r, err
		}
		s.log.Debug("Reservation changed concurrently, re-evaluating", "attempt", i+1)
	}
	return nil, apperrors.Conflict("Reservation changed concurrently, please retry")
}

// storeError maps repository and lock failures onto the service's error
// vocabulary. AppErrors pass through unchanged.
func (s *reservationService) storeError(err error, id string, message string) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, reservationserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Reservation", id)
	case errors.Is(err, reservationserrors.ErrLockTimeout):
		s.log.Warn("Timed out waiting for slot lock", "id", id, "error", err)
		return apperrors.StoreUnavailable("The helipad is busy, please retry", err)
	}

	s.log.Error(message, "id", id, "error", err)
	return apperrors.StoreUnavailable(message, err)
}

// publish fans a committed transition out to observers, detached from the
// request's cancellation.
func (s *reservationService) publish(ctx context.Context, kind model.EventKind, r *model.Reservation) {
	s.publisher.Publish(context.WithoutCancel(ctx), model.NewChangeEvent(kind, r, s.now().UTC()))
}
