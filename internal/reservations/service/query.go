package service

import (
	"context"
	"sync"
	"time"

	apperrors "helipad/pkg/errors"
	"helipad/pkg/model"
)

func (s *reservationService) GetByID(ctx context.Context, id string, requester model.Principal) (*model.Reservation, error) {
	reservation, err := s.find(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id, "Failed to retrieve reservation")
	}
	if !reservation.OwnedBy(requester.ID) && !requester.Privileged {
		return nil, apperrors.Forbidden("Only the owner or a privileged user can view this reservation")
	}
	return reservation, nil
}

// List returns one page of reservations and the total match count. Callers
// without privilege only ever see their own reservations.
func (s *reservationService) List(ctx context.Context, requester model.Principal, filter model.ReservationFilter) ([]*model.Reservation, int64, error) {
	if !requester.Privileged {
		if requester.Anonymous() {
			return nil, 0, apperrors.Unauthorized("Authentication required")
		}
		filter.OwnerID = requester.ID
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		return nil, 0, apperrors.InvalidInput("'to' must be after 'from'")
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, s.resourceID, filter)
		if errCount != nil {
			errCount = s.storeError(errCount, "", "Failed to count reservations")
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.Find(ctx, s.resourceID, filter)
		if errFind != nil {
			errFind = s.storeError(errFind, "", "Failed to retrieve reservations")
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if reservations == nil {
		reservations = []*model.Reservation{}
	}

	s.log.Debug("Reservation list completed",
		"owner_id", filter.OwnerID,
		"count", len(reservations),
		"total_count", count,
	)
	return reservations, count, nil
}

// Availability lists the slot-aligned intervals of date (YYYY-MM-DD in the
// helipad's timezone) that a request could currently be granted for. Pending
// reservations do not reduce availability.
func (s *reservationService) Availability(ctx context.Context, date string) (*model.Availability, error) {
	p, err := s.loadPolicy(ctx)
	if err != nil {
		return nil, err
	}

	day, err := time.ParseInLocation(model.DateLayout, date, p.loc)
	if err != nil {
		return nil, apperrors.InvalidInput("Date must use the YYYY-MM-DD format")
	}

	result := &model.Availability{
		ResourceID:  s.resourceID,
		Date:        day.Format(model.DateLayout),
		Timezone:    p.settings.Timezone,
		SlotMinutes: p.settings.SlotMinutes,
		Slots:       []model.Interval{},
	}
	if p.settings.IsBlackout(day, p.loc) {
		result.Blackout = true
		return result, nil
	}

	open, closing := p.hours.On(day, p.loc)
	buffer := p.settings.Buffer()
	from := open.Add(-buffer)
	to := closing.Add(buffer)

	confirmed, err := s.repo.Find(ctx, s.resourceID, model.ReservationFilter{
		From:   &from,
		To:     &to,
		Status: []model.Status{model.StatusConfirmed},
	})
	if err != nil {
		return nil, s.storeError(err, "", "Failed to load reservations for availability")
	}

	now := s.now()
	slot := p.settings.SlotDuration()
	for start := open; !start.Add(slot).After(closing); start = start.Add(slot) {
		candidate := model.Interval{Start: start, End: start.Add(slot)}
		if p.checkInterval(candidate, now) != nil {
			continue
		}
		if conflictsAny(candidate, confirmed, buffer) {
			continue
		}
		result.Slots = append(result.Slots, candidate)
	}
	return result, nil
}

func conflictsAny(candidate model.Interval, reservations []*model.Reservation, buffer time.Duration) bool {
	for _, r := range reservations {
		if candidate.ConflictsWith(r.Interval(), buffer) {
			return true
		}
	}
	return false
}
