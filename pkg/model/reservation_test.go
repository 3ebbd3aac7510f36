package model

import (
	"testing"
	"time"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo() = %v, want %v", got, tt.allowed)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("confirmed"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseStatus("expired"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestReservation_CloneIsDeep(t *testing.T) {
	original := &Reservation{ID: "r1", Metadata: map[string]any{"purpose": "medevac"}}
	clone := original.Clone()
	clone.Metadata["purpose"] = "tour"

	if original.Metadata["purpose"] != "medevac" {
		t.Error("mutating clone metadata leaked into original")
	}
}

func TestSettings_OperationalHours(t *testing.T) {
	s := &Settings{OpenTime: "06:00", CloseTime: "22:00"}
	hours, err := s.OperationalHours()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hours.Open != (ClockTime{Hour: 6}) || hours.Close != (ClockTime{Hour: 22}) {
		t.Errorf("unexpected hours: %v - %v", hours.Open, hours.Close)
	}

	s.CloseTime = "05:00"
	if _, err := s.OperationalHours(); err == nil {
		t.Error("expected error when close precedes open")
	}
}

func TestOperationalHours_OnDaylightSavingChangeover(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	hours := OperationalHours{Open: ClockTime{Hour: 6}, Close: ClockTime{Hour: 22, Minute: 30}}

	for _, day := range []string{"2030-03-10", "2030-11-03"} {
		t.Run(day, func(t *testing.T) {
			date, err := time.ParseInLocation(DateLayout, day, loc)
			if err != nil {
				t.Fatalf("parse date: %v", err)
			}
			open, closing := hours.On(date, loc)
			if got := open.Format(ClockTimeLayout); got != "06:00" {
				t.Errorf("open = %s, want 06:00", got)
			}
			if got := closing.Format(ClockTimeLayout); got != "22:30" {
				t.Errorf("close = %s, want 22:30", got)
			}
			if open.Format(DateLayout) != day || closing.Format(DateLayout) != day {
				t.Errorf("window %v - %v left %s", open, closing, day)
			}
		})
	}
}

func TestSettings_IsBlackout(t *testing.T) {
	s := &Settings{BlackoutDates: []string{"2030-01-02"}}
	loc := time.FixedZone("UTC+3", 3*60*60)

	// 22:30 UTC on the 1st is already the 2nd at UTC+3.
	late := time.Date(2030, 1, 1, 22, 30, 0, 0, time.UTC)
	if !s.IsBlackout(late, loc) {
		t.Error("expected local date 2030-01-02 to be blacked out")
	}
	if s.IsBlackout(late, time.UTC) {
		t.Error("UTC date 2030-01-01 should not be blacked out")
	}
}
