package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"helipad/internal/reservations/service"
	apperrors "helipad/pkg/errors"
	httputil "helipad/pkg/http"
	"helipad/pkg/logger"
	"helipad/pkg/middleware"
	"helipad/pkg/model"
	"helipad/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.List)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.PATCH("/api/v1/reservations/id/:id", h.Update)
	router.POST("/api/v1/reservations/id/:id/approve", h.Approve)
	router.POST("/api/v1/reservations/id/:id/reject", h.Reject)
	router.POST("/api/v1/reservations/id/:id/cancel", h.Cancel)
	router.GET("/api/v1/availability", h.Availability)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "Create")
	if !ok {
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	reservation, err := h.service.RequestBooking(r.Context(), principal, model.Interval{
		Start: req.StartTime,
		End:   req.EndTime,
	}, req.Metadata)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "GetByID")
	if !ok {
		return
	}

	reservation, err := h.service.GetByID(r.Context(), ps.ByName("id"), principal)
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "List")
	if !ok {
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	reservations, total, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, filter.Limit, filter.Offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "Update")
	if !ok {
		return
	}

	var update model.BookingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	reservation, err := h.service.UpdateBooking(r.Context(), ps.ByName("id"), principal, &update)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Approve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Approve", h.service.ApproveBooking)
}

func (h *ReservationHandler) Reject(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Reject", h.service.RejectBooking)
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, ps, "Cancel", h.service.CancelBooking)
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	date := sanitizer.TrimAndNormalize(r.URL.Query().Get("date"))
	if date == "" {
		h.writeError(w, "Availability", apperrors.InvalidInput("date query parameter is required"))
		return
	}

	availability, err := h.service.Availability(r.Context(), date)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

type transitionFunc func(ctx context.Context, id string, p model.Principal) (*model.Reservation, error)

func (h *ReservationHandler) transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params, name string, fn transitionFunc) {
	principal, ok := h.principal(w, r, name)
	if !ok {
		return
	}

	reservation, err := fn(r.Context(), ps.ByName("id"), principal)
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) principal(w http.ResponseWriter, r *http.Request, handler string) (model.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok || p.Anonymous() {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
		return model.Principal{}, false
	}
	return p, true
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func parseFilter(r *http.Request) (model.ReservationFilter, error) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		return model.ReservationFilter{}, err
	}
	from, err := httputil.ExtractTime(r, "from")
	if err != nil {
		return model.ReservationFilter{}, err
	}
	to, err := httputil.ExtractTime(r, "to")
	if err != nil {
		return model.ReservationFilter{}, err
	}

	filter := model.ReservationFilter{
		From:    from,
		To:      to,
		OwnerID: sanitizer.TrimAndNormalize(r.URL.Query().Get("owner")),
		Limit:   limit,
		Offset:  offset,
	}
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			if part = sanitizer.TrimAndNormalize(part); part == "" {
				continue
			}
			status, err := model.ParseStatus(part)
			if err != nil {
				return model.ReservationFilter{}, apperrors.InvalidInput(err.Error())
			}
			filter.Status = append(filter.Status, status)
		}
	}
	return filter, nil
}
