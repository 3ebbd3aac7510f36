package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "helipad/pkg/errors"
	"helipad/pkg/logger"
	"helipad/pkg/middleware"
	"helipad/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockReservationService struct {
	requestFunc func(ctx context.Context, p model.Principal, iv model.Interval, metadata map[string]any) (*model.Reservation, error)
	approveFunc func(ctx context.Context, id string, p model.Principal) (*model.Reservation, error)
	listFunc    func(ctx context.Context, p model.Principal, f model.ReservationFilter) ([]*model.Reservation, int64, error)
}

func (m *mockReservationService) RequestBooking(ctx context.Context, p model.Principal, iv model.Interval, metadata map[string]any) (*model.Reservation, error) {
	return m.requestFunc(ctx, p, iv, metadata)
}

func (m *mockReservationService) ApproveBooking(ctx context.Context, id string, p model.Principal) (*model.Reservation, error) {
	return m.approveFunc(ctx, id, p)
}

func (m *mockReservationService) RejectBooking(ctx context.Context, id string, p model.Principal) (*model.Reservation, error) {
	return nil, apperrors.Forbidden("not in test")
}

func (m *mockReservationService) CancelBooking(ctx context.Context, id string, p model.Principal) (*model.Reservation, error) {
	return nil, apperrors.AlreadyTerminal("Reservation is already cancelled")
}

func (m *mockReservationService) UpdateBooking(ctx context.Context, id string, p model.Principal, u *model.BookingUpdate) (*model.Reservation, error) {
	return nil, nil
}

func (m *mockReservationService) GetByID(ctx context.Context, id string, p model.Principal) (*model.Reservation, error) {
	return nil, apperrors.NotFoundWithID("Reservation", id)
}

func (m *mockReservationService) List(ctx context.Context, p model.Principal, f model.ReservationFilter) ([]*model.Reservation, int64, error) {
	return m.listFunc(ctx, p, f)
}

func (m *mockReservationService) Availability(ctx context.Context, date string) (*model.Availability, error) {
	return &model.Availability{Date: date, Slots: []model.Interval{}}, nil
}

func newTestRouter(svc *mockReservationService) *httprouter.Router {
	router := httprouter.New()
	NewReservationHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, req *http.Request, p *model.Principal) *httptest.ResponseRecorder {
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestCreate(t *testing.T) {
	var received model.Principal
	var receivedInterval model.Interval
	svc := &mockReservationService{
		requestFunc: func(ctx context.Context, p model.Principal, iv model.Interval, metadata map[string]any) (*model.Reservation, error) {
			received = p
			receivedInterval = iv
			return &model.Reservation{ID: "r1", OwnerID: p.ID, StartTime: iv.Start, EndTime: iv.End, Status: model.StatusPending}, nil
		},
	}
	router := newTestRouter(svc)
	pilot := model.Principal{ID: "pilot-1"}

	body := `{"start_time":"2030-06-03T09:00:00Z","end_time":"2030-06-03T10:00:00Z","metadata":{"purpose":"survey"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	rec := serve(router, req, &pilot)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if received != pilot {
		t.Errorf("principal = %+v, want %+v", received, pilot)
	}
	if !receivedInterval.Start.Equal(time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", receivedInterval.Start)
	}

	var resp struct {
		Data model.Reservation `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.ID != "r1" || resp.Data.Status != model.StatusPending {
		t.Errorf("unexpected response %+v", resp.Data)
	}
}

func TestCreate_BadRequests(t *testing.T) {
	svc := &mockReservationService{
		requestFunc: func(ctx context.Context, p model.Principal, iv model.Interval, metadata map[string]any) (*model.Reservation, error) {
			return nil, apperrors.Conflict("Requested interval conflicts with a confirmed reservation")
		},
	}
	router := newTestRouter(svc)
	pilot := model.Principal{ID: "pilot-1"}

	tests := []struct {
		name       string
		body       string
		principal  *model.Principal
		wantStatus int
		wantCode   string
	}{
		{"malformed json", `{"start_time":`, &pilot, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"no principal", `{}`, nil, http.StatusUnauthorized, apperrors.CodeUnauthorized},
		{"engine conflict", `{"start_time":"2030-06-03T09:00:00Z","end_time":"2030-06-03T10:00:00Z"}`, &pilot, http.StatusConflict, apperrors.CodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(tt.body))
			rec := serve(router, req, tt.principal)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %s, want %s", got, tt.wantCode)
			}
		})
	}
}

func TestTransitions_ErrorMapping(t *testing.T) {
	svc := &mockReservationService{
		approveFunc: func(ctx context.Context, id string, p model.Principal) (*model.Reservation, error) {
			if !p.Privileged {
				return nil, apperrors.Forbidden("Only privileged users can approve reservations")
			}
			return &model.Reservation{ID: id, Status: model.StatusConfirmed}, nil
		},
	}
	router := newTestRouter(svc)
	pilot := model.Principal{ID: "pilot-1"}
	admin := model.Principal{ID: "ops-1", Privileged: true}

	tests := []struct {
		name       string
		path       string
		principal  model.Principal
		wantStatus int
	}{
		{"approve forbidden", "/api/v1/reservations/id/r1/approve", pilot, http.StatusForbidden},
		{"approve ok", "/api/v1/reservations/id/r1/approve", admin, http.StatusOK},
		{"cancel already terminal", "/api/v1/reservations/id/r1/cancel", pilot, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			rec := serve(router, req, &tt.principal)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations/id/missing", nil)
	rec := serve(router, req, &pilot)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", rec.Code)
	}
}

func TestList_QueryParameters(t *testing.T) {
	var received model.ReservationFilter
	svc := &mockReservationService{
		listFunc: func(ctx context.Context, p model.Principal, f model.ReservationFilter) ([]*model.Reservation, int64, error) {
			received = f
			return []*model.Reservation{}, 0, nil
		},
	}
	router := newTestRouter(svc)
	admin := model.Principal{ID: "ops-1", Privileged: true}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		check      func(t *testing.T, f model.ReservationFilter)
	}{
		{
			name:       "defaults",
			query:      "",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f model.ReservationFilter) {
				if f.Limit <= 0 || f.Offset != 0 || f.From != nil || len(f.Status) != 0 {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{
			name:       "status list and window",
			query:      "?status=pending,confirmed&from=2030-06-03T00:00:00Z&to=2030-06-04T00:00:00Z&owner=pilot-1&limit=5&offset=10",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f model.ReservationFilter) {
				if len(f.Status) != 2 || f.Status[0] != model.StatusPending || f.Status[1] != model.StatusConfirmed {
					t.Errorf("status = %v", f.Status)
				}
				if f.From == nil || f.To == nil || f.OwnerID != "pilot-1" || f.Limit != 5 || f.Offset != 10 {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{
			name:       "padded filter values",
			query:      "?status=%20pending%20,,&owner=%20pilot-1%20",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, f model.ReservationFilter) {
				if len(f.Status) != 1 || f.Status[0] != model.StatusPending || f.OwnerID != "pilot-1" {
					t.Errorf("unexpected filter %+v", f)
				}
			},
		},
		{name: "unknown status", query: "?status=archived", wantStatus: http.StatusBadRequest},
		{name: "bad from", query: "?from=yesterday", wantStatus: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=abc", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			received = model.ReservationFilter{}
			req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations"+tt.query, nil)
			rec := serve(router, req, &admin)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.check != nil {
				tt.check(t, received)
			}
		})
	}
}

func TestAvailability_RequiresDate(t *testing.T) {
	router := newTestRouter(&mockReservationService{})
	pilot := model.Principal{ID: "pilot-1"}

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil), &pilot)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/availability?date=%20%20", nil), &pilot)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank date: status = %d, want 400", rec.Code)
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/availability?date=2030-06-03", nil), &pilot)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
