package validator

import (
	"fmt"
	"testing"
	"time"

	"helipad/pkg/logger"
	"helipad/pkg/model"
)

func TestValidateRequest(t *testing.T) {
	v := NewReservationValidator(logger.Discard())
	start := time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

	tooMany := map[string]any{}
	for i := 0; i < 51; i++ {
		tooMany[fmt.Sprintf("key%d", i)] = i
	}

	tests := []struct {
		name    string
		req     model.BookingRequest
		wantErr bool
	}{
		{"valid", model.BookingRequest{StartTime: start, EndTime: start.Add(time.Hour), Metadata: map[string]any{"purpose": "tour"}}, false},
		{"no metadata", model.BookingRequest{StartTime: start, EndTime: start.Add(time.Hour)}, false},
		{"missing start", model.BookingRequest{EndTime: start}, true},
		{"operator key", model.BookingRequest{StartTime: start, EndTime: start.Add(time.Hour), Metadata: map[string]any{"$where": "1"}}, true},
		{"dotted key", model.BookingRequest{StartTime: start, EndTime: start.Add(time.Hour), Metadata: map[string]any{"a.b": 1}}, true},
		{"too many keys", model.BookingRequest{StartTime: start, EndTime: start.Add(time.Hour), Metadata: tooMany}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRequest(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewReservationValidator(logger.Discard())

	if err := v.ValidateUpdate(&model.BookingUpdate{}); err == nil {
		t.Error("expected error for empty update")
	}

	meta := map[string]any{"notes": "two passengers"}
	if err := v.ValidateUpdate(&model.BookingUpdate{Metadata: &meta}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := map[string]any{"$set": 1}
	if err := v.ValidateUpdate(&model.BookingUpdate{Metadata: &bad}); err == nil {
		t.Error("expected error for operator key")
	}
}
