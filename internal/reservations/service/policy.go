package service

import (
	"fmt"
	"time"

	apperrors "helipad/pkg/errors"
	"helipad/pkg/model"
)

// policy is one settings snapshot resolved for a single engine call.
type policy struct {
	settings *model.Settings
	loc      *time.Location
	hours    model.OperationalHours
}

func resolvePolicy(s *model.Settings) (*policy, error) {
	loc, err := s.Location()
	if err != nil {
		return nil, apperrors.Internal("Helipad settings carry an invalid timezone", err)
	}
	hours, err := s.OperationalHours()
	if err != nil {
		return nil, apperrors.Internal("Helipad settings carry invalid operational hours", err)
	}
	return &policy{settings: s, loc: loc, hours: hours}, nil
}

// checkInterval returns InvalidInterval for malformed or past-dated intervals
// and PolicyViolation for anything the helipad rules forbid.
func (p *policy) checkInterval(iv model.Interval, now time.Time) error {
	if !iv.Valid() {
		return apperrors.InvalidInterval("End time must be after start time")
	}

	startDay := iv.Start.In(p.loc).Format(model.DateLayout)
	today := now.In(p.loc).Format(model.DateLayout)
	if startDay < today {
		return apperrors.InvalidInterval(fmt.Sprintf("Start date %s is in the past", startDay))
	}

	open, closing := p.hours.On(iv.Start, p.loc)
	if iv.Start.Before(open) || iv.End.After(closing) {
		return apperrors.PolicyViolation(fmt.Sprintf(
			"Reservation must fall within operational hours %s-%s (%s)",
			p.settings.OpenTime, p.settings.CloseTime, p.settings.Timezone,
		))
	}

	if p.settings.IsBlackout(iv.Start, p.loc) {
		return apperrors.PolicyViolation(fmt.Sprintf("The helipad is closed on %s", startDay))
	}

	if notice := p.settings.MinNotice(); notice > 0 && iv.Start.Before(now.Add(notice)) {
		return apperrors.PolicyViolation(fmt.Sprintf(
			"Reservations require at least %d minutes notice", p.settings.MinNoticeMinutes,
		))
	}

	if iv.Duration() > p.settings.MaxDuration() {
		return apperrors.PolicyViolation(fmt.Sprintf(
			"Reservation exceeds the maximum duration of %d minutes", p.settings.MaxDurationMinutes,
		))
	}

	return nil
}

func conflictError(blocking *model.Reservation) error {
	return apperrors.Conflict(fmt.Sprintf(
		"Requested interval conflicts with a confirmed reservation (%s - %s)",
		blocking.StartTime.Format(time.RFC3339),
		blocking.EndTime.Format(time.RFC3339),
	)).WithDetails(map[string]any{
		"start_time": blocking.StartTime,
		"end_time":   blocking.EndTime,
	})
}
