package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/careslot/scheduling/internal/calendar"
	"github.com/careslot/scheduling/internal/logger"
	"github.com/careslot/scheduling/internal/models"
	"github.com/careslot/scheduling/internal/schedule"
)

// HealthChecker reports backend liveness
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves the scheduling HTTP API
type Handler struct {
	service  *schedule.Service
	health   HealthChecker
	validate *validator.Validate
	logger   *logger.Logger
}

// New creates the API handler
func New(service *schedule.Service, health HealthChecker, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		health:   health,
		validate: validator.New(),
		logger:   log,
	}
}

// RegisterRoutes mounts the API on the router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/availabilities", h.CreateAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availabilities", h.ListAvailabilities).Methods(http.MethodGet)
	v1.HandleFunc("/availabilities/{id}", h.GetAvailability).Methods(http.MethodGet)
	v1.HandleFunc("/availabilities/{id}", h.DeleteAvailability).Methods(http.MethodDelete)
	v1.HandleFunc("/availabilities/{id}/approve", h.ApproveAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availabilities/{id}/reject", h.RejectAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availabilities/{id}/deactivate", h.DeactivateAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availabilities/{id}/reactivate", h.ReactivateAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availabilities/{id}/materialize", h.MaterializeAvailability).Methods(http.MethodPost)
	v1.HandleFunc("/availabilities/{id}/slots", h.ListSlots).Methods(http.MethodGet)
	v1.HandleFunc("/slots/{id}/book", h.BookSlot).Methods(http.MethodPost)
	v1.HandleFunc("/slots/{id}/cancel", h.CancelSlot).Methods(http.MethodPost)
}

// CreateAvailabilityRequest is the declaration submission payload
type CreateAvailabilityRequest struct {
	ProviderID string  `json:"provider_id" validate:"required,uuid"`
	LocationID string  `json:"location_id" validate:"required,uuid"`
	Kind       string  `json:"kind" validate:"required,oneof=one_time temporary recurring"`
	Date       *string `json:"date,omitempty"`
	StartDate  *string `json:"start_date,omitempty"`
	EndDate    *string `json:"end_date,omitempty"`
	Weekdays   []int   `json:"weekdays,omitempty" validate:"omitempty,dive,gte=0,lte=6"`
	StartTime  string  `json:"start_time" validate:"required"`
	EndTime    string  `json:"end_time" validate:"required"`
}

// ApproveRequest carries the approver identity
type ApproveRequest struct {
	ApprovedBy string `json:"approved_by" validate:"required,uuid"`
}

// RejectRequest carries the rejection reason
type RejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BookRequest binds a slot to an appointment
type BookRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
}

// Health reports service and database health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.health.HealthCheck(ctx); err != nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CreateAvailability submits a declaration, running the conflict check
func (h *Handler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	var req CreateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	av, err := req.toModel()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), av)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (req *CreateAvailabilityRequest) toModel() (*models.Availability, error) {
	av := &models.Availability{
		ProviderID: uuid.MustParse(req.ProviderID),
		LocationID: uuid.MustParse(req.LocationID),
		Kind:       models.RecurrenceKind(req.Kind),
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
	}
	var err error
	if av.Date, err = parseDate(req.Date); err != nil {
		return nil, err
	}
	if av.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, err
	}
	if av.EndDate, err = parseDate(req.EndDate); err != nil {
		return nil, err
	}
	for _, d := range req.Weekdays {
		av.Weekdays = append(av.Weekdays, time.Weekday(d))
	}
	return av, nil
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, &schedule.ValidationError{Field: "date", Message: "expected YYYY-MM-DD, got " + *s}
	}
	marker := calendar.DateMarker(t)
	return &marker, nil
}

// GetAvailability returns one declaration
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	av, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, av)
}

// ListAvailabilities returns declarations filtered by provider and status
func (h *Handler) ListAvailabilities(w http.ResponseWriter, r *http.Request) {
	var providerID *uuid.UUID
	if s := r.URL.Query().Get("provider_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid provider_id")
			return
		}
		providerID = &id
	}
	var status *models.AvailabilityStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := models.AvailabilityStatus(s)
		status = &st
	}

	out, err := h.service.List(r.Context(), providerID, status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// ApproveAvailability approves a pending declaration and materializes its
// initial slot window
func (h *Handler) ApproveAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	av, result, err := h.service.Approve(r.Context(), id, uuid.MustParse(req.ApprovedBy))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"availability": av,
		"slots":        result,
	})
}

// RejectAvailability terminally rejects a pending declaration
func (h *Handler) RejectAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	av, err := h.service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, av)
}

// DeactivateAvailability suspends a declaration and purges its future
// unbooked slots
func (h *Handler) DeactivateAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	av, err := h.service.Deactivate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, av)
}

// ReactivateAvailability lifts a deactivation and re-materializes
func (h *Handler) ReactivateAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	av, result, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"availability": av,
		"slots":        result,
	})
}

// DeleteAvailability terminally deletes a declaration
func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MaterializeAvailability re-runs initial materialization; the operation is
// idempotent
func (h *Handler) MaterializeAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	result, err := h.service.Engine().Materialize(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ListSlots returns a declaration's materialized slots
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	slots, err := h.service.ListSlots(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slots)
}

// BookSlot flips one available slot to booked
func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slot, err := h.service.BookSlot(r.Context(), id, uuid.MustParse(req.AppointmentID))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slot)
}

// CancelSlot releases a booked slot
func (h *Handler) CancelSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	slot, err := h.service.CancelSlot(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, slot)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case schedule.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case schedule.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case schedule.IsConflict(err):
		var ce *schedule.ConflictError
		errors.As(err, &ce)
		h.writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":          "availability conflicts with an existing declaration",
			"conflicting_id": ce.ConflictingID.String(),
			"overlap_start":  ce.OverlapStart.UTC().Format(time.RFC3339),
			"overlap_end":    ce.OverlapEnd.UTC().Format(time.RFC3339),
		})
	default:
		if f, ok := schedule.AsFailure(err); ok {
			h.writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"code":        f.Code,
				"message":     f.Message,
				"diagnostics": f.Diagnostics,
			})
			return
		}
		h.logger.Error("Request failed", map[string]interface{}{"error": err.Error()})
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}
