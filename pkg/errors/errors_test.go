package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   Conflict("slot taken"),
			expected: "CONFLICT: slot taken",
		},
		{
			name:     "with underlying error",
			appErr:   StoreUnavailable("reservation store unavailable", errors.New("connection refused")),
			expected: "STORE_UNAVAILABLE: reservation store unavailable (caused by: connection refused)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   string
		status int
	}{
		{InvalidInterval("end before start"), CodeInvalidInterval, http.StatusBadRequest},
		{PolicyViolation("outside hours"), CodePolicyViolation, http.StatusUnprocessableEntity},
		{Conflict("overlap"), CodeConflict, http.StatusConflict},
		{NotFound("Reservation"), CodeNotFound, http.StatusNotFound},
		{Forbidden("not the owner"), CodeForbidden, http.StatusForbidden},
		{AlreadyTerminal("cancelled"), CodeAlreadyTerminal, http.StatusConflict},
		{InvalidTransition("not pending"), CodeInvalidTransition, http.StatusConflict},
		{StoreUnavailable("down", nil), CodeStoreUnavailable, http.StatusServiceUnavailable},
		{Validation("bad", nil), CodeValidation, http.StatusUnprocessableEntity},
		{Unauthorized("token"), CodeUnauthorized, http.StatusUnauthorized},
		{Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{Timeout("slow"), CodeTimeout, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestRetryable_OnlyStoreUnavailable(t *testing.T) {
	if !StoreUnavailable("down", nil).Retryable() {
		t.Error("store outages must be retryable")
	}
	for _, err := range []*AppError{Conflict("x"), PolicyViolation("x"), AlreadyTerminal("x"), NotFound("x"), Timeout("x")} {
		if err.Retryable() {
			t.Errorf("%s must not be retryable", err.Code)
		}
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Reservation", "abc")

	if err.Message != "Reservation not found" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Details["id"] != "abc" || err.Details["resource"] != "Reservation" {
		t.Errorf("unexpected details %v", err.Details)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	appErr := StoreUnavailable("store down", cause)

	if !errors.Is(appErr, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestAsAppError(t *testing.T) {
	conflict := Conflict("taken")
	wrapped := fmt.Errorf("admission: %w", conflict)

	if got := AsAppError(wrapped); got != conflict {
		t.Error("AsAppError() should unwrap to the original AppError")
	}

	plain := errors.New("plain")
	got := AsAppError(plain)
	if got.Code != CodeInternal || got.Err != plain {
		t.Errorf("AsAppError() should wrap plain errors as internal, got %v", got)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", AlreadyTerminal("cancelled"))

	if !HasCode(err, CodeAlreadyTerminal) {
		t.Error("HasCode() should see through wrapping")
	}
	if HasCode(err, CodeConflict) {
		t.Error("HasCode() matched the wrong code")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Error("HasCode() should be false for non-AppError")
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := WriteError(rec, StoreUnavailable("store down", errors.New("timeout"))); err != nil {
		t.Fatalf("WriteError() returned %v", err)
	}

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header for store outages")
	}

	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Code != CodeStoreUnavailable || body.Message != "store down" {
		t.Errorf("unexpected body %+v", body)
	}
}
