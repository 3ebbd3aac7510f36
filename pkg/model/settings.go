package model

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	ClockTimeLayout = "15:04"
)

// Settings is the helipad policy snapshot read by the engine on every call.
type Settings struct {
	ResourceID         string   `json:"resource_id" bson:"_id" mapstructure:"resource_id" validate:"required"`
	Timezone           string   `json:"timezone" bson:"timezone" mapstructure:"timezone" validate:"required,timezone"`
	OpenTime           string   `json:"open_time" bson:"open_time" mapstructure:"open_time" validate:"required,clocktime"`
	CloseTime          string   `json:"close_time" bson:"close_time" mapstructure:"close_time" validate:"required,clocktime"`
	BlackoutDates      []string `json:"blackout_dates" bson:"blackout_dates" mapstructure:"blackout_dates" validate:"dive,datetime=2006-01-02"`
	MinNoticeMinutes   int      `json:"min_notice_minutes" bson:"min_notice_minutes" mapstructure:"min_notice_minutes" validate:"min=0"`
	MaxDurationMinutes int      `json:"max_duration_minutes" bson:"max_duration_minutes" mapstructure:"max_duration_minutes" validate:"min=1"`
	BufferMinutes      int      `json:"buffer_minutes" bson:"buffer_minutes" mapstructure:"buffer_minutes" validate:"min=0"`
	SlotMinutes        int      `json:"slot_minutes" bson:"slot_minutes" mapstructure:"slot_minutes" validate:"min=1"`
}

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

type OperationalHours struct {
	Open  ClockTime
	Close ClockTime
}

// On returns the open and close instants for the calendar day of date in loc.
// Both are wall-clock times, so a daylight saving change on that day does not
// shift them.
func (h OperationalHours) On(date time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, h.Open.Hour, h.Open.Minute, 0, 0, loc),
		time.Date(y, m, d, h.Close.Hour, h.Close.Minute, 0, 0, loc)
}

func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

func (s *Settings) OperationalHours() (OperationalHours, error) {
	open, err := parseClockTime(s.OpenTime)
	if err != nil {
		return OperationalHours{}, err
	}
	closing, err := parseClockTime(s.CloseTime)
	if err != nil {
		return OperationalHours{}, err
	}
	if closing.minutes() <= open.minutes() {
		return OperationalHours{}, fmt.Errorf("close time %s must be after open time %s", s.CloseTime, s.OpenTime)
	}
	return OperationalHours{Open: open, Close: closing}, nil
}

// IsBlackout reports whether the calendar date of t in loc is closed.
func (s *Settings) IsBlackout(t time.Time, loc *time.Location) bool {
	day := t.In(loc).Format(DateLayout)
	for _, d := range s.BlackoutDates {
		if d == day {
			return true
		}
	}
	return false
}

func (s *Settings) MinNotice() time.Duration {
	return time.Duration(s.MinNoticeMinutes) * time.Minute
}

func (s *Settings) MaxDuration() time.Duration {
	return time.Duration(s.MaxDurationMinutes) * time.Minute
}

func (s *Settings) Buffer() time.Duration {
	return time.Duration(s.BufferMinutes) * time.Minute
}

func (s *Settings) SlotDuration() time.Duration {
	return time.Duration(s.SlotMinutes) * time.Minute
}

func parseClockTime(raw string) (ClockTime, error) {
	t, err := time.Parse(ClockTimeLayout, raw)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q, expected HH:MM", raw)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}
