package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/pagination"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service     ServiceInterface
	displayDays int
	pageSize    int
}

// NewHandler serves the scheduling API. displayDays caps how many days the
// availability endpoint returns; pageSize is the default listing size.
func NewHandler(service ServiceInterface, displayDays, pageSize int) *Handler {
	if displayDays <= 0 {
		displayDays = 14
	}
	if pageSize <= 0 {
		pageSize = pagination.DefaultLimit
	}
	return &Handler{service: service, displayDays: displayDays, pageSize: pageSize}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SlotSuccessResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Slot    *TimeSlot `json:"slot,omitempty"`
}

type SlotListResponse struct {
	Success bool       `json:"success"`
	Slots   []TimeSlot `json:"slots"`
	Total   int        `json:"total"`
}

type AvailabilityResponse struct {
	Success      bool              `json:"success"`
	DoctorID     int64             `json:"doctor_id"`
	Availability []DayAvailability `json:"availability"`
}

type AppointmentSuccessResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

type AppointmentListResponse struct {
	Success      bool            `json:"success"`
	Appointments []Appointment   `json:"appointments"`
	Pagination   pagination.Meta `json:"pagination"`
}

type DoctorSuccessResponse struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Doctor  *Doctor `json:"doctor,omitempty"`
}

type DoctorListResponse struct {
	Success    bool            `json:"success"`
	Doctors    []Doctor        `json:"doctors"`
	Pagination pagination.Meta `json:"pagination"`
}

type SpecializationListResponse struct {
	Success         bool     `json:"success"`
	Specializations []string `json:"specializations"`
}

type CancelRequest struct {
	Reason string `json:"cancellation_reason"`
}

type VerificationRequest struct {
	Verified *bool `json:"is_verified"`
}

// ActorFromPrincipal maps token roles onto a scheduling actor. ADMIN wins
// over DOCTOR, which wins over PATIENT.
func ActorFromPrincipal(p *auth.Principal) (Actor, bool) {
	actor := Actor{UserID: p.AppUserID, ProfileID: p.ProfileID}
	switch {
	case p.HasRole(auth.RoleAdmin):
		actor.Role = RoleAdmin
	case p.HasRole(auth.RoleDoctor):
		actor.Role = RoleDoctor
	case p.HasRole(auth.RolePatient):
		actor.Role = RolePatient
	default:
		return Actor{}, false
	}
	if actor.Role != RoleAdmin && actor.ProfileID == 0 {
		return Actor{}, false
	}
	return actor, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return Actor{}, false
	}
	actor, ok := ActorFromPrincipal(principal)
	if !ok {
		respondError(w, http.StatusForbidden, "no_profile", "Token carries no patient, doctor or admin identity")
		return Actor{}, false
	}
	return actor, true
}

func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// ListSlots handles GET /doctors/{id}/slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "doctor")
	if !ok {
		return
	}

	slots, err := h.service.ListTimeSlots(r.Context(), doctorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SlotListResponse{Success: true, Slots: slots, Total: len(slots)})
}

// AddSlot handles POST /doctor/slots.
func (h *Handler) AddSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req AddSlotRequest
	if !decode(w, r, &req) {
		return
	}

	slot, err := h.service.AddTimeSlot(r.Context(), actor, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, SlotSuccessResponse{Success: true, Message: "Time slot added successfully", Slot: slot})
}

// RemoveSlot handles DELETE /doctor/slots/{id}.
func (h *Handler) RemoveSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	slotID, ok := pathID(w, r, "slot")
	if !ok {
		return
	}

	if err := h.service.RemoveTimeSlot(r.Context(), actor, slotID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SlotSuccessResponse{Success: true, Message: "Time slot deleted successfully"})
}

// ToggleSlot handles POST /doctor/slots/{id}/toggle.
func (h *Handler) ToggleSlot(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	slotID, ok := pathID(w, r, "slot")
	if !ok {
		return
	}

	slot, err := h.service.ToggleTimeSlot(r.Context(), actor, slotID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	msg := "Time slot deactivated"
	if slot.IsActive {
		msg = "Time slot activated"
	}
	respondJSON(w, http.StatusOK, SlotSuccessResponse{Success: true, Message: msg, Slot: slot})
}

// Availability handles GET /doctors/{id}/availability?days=N. At most
// displayDays entries are returned whatever the horizon.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathID(w, r, "doctor")
	if !ok {
		return
	}
	days := 0
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
			return
		}
		days = n
	}

	seq, err := h.service.ProjectAvailability(r.Context(), doctorID, days)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AvailabilityResponse{
		Success:      true,
		DoctorID:     doctorID,
		Availability: Take(seq, h.displayDays),
	})
}

// BookAppointment handles POST /appointments.
func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req BookRequest
	if !decode(w, r, &req) {
		return
	}

	appt, err := h.service.BookAppointment(r.Context(), actor, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, AppointmentSuccessResponse{Success: true, Message: "Appointment booked successfully", Appointment: appt})
}

// ListAppointments handles GET /appointments?status=&date=&page=&limit=.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var q ListQuery
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := ParseStatus(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
		q.Status = st
	}
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := ParseDate(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		q.Date = d
	}

	page, err := h.service.ListAppointments(r.Context(), actor, q, pagination.FromRequest(r, h.pageSize))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AppointmentListResponse{Success: true, Appointments: page.Appointments, Pagination: page.Pagination})
}

// ListDoctors handles GET /doctors?search=&specialization=.
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	q := DoctorQuery{
		Search:         r.URL.Query().Get("search"),
		Specialization: r.URL.Query().Get("specialization"),
	}
	page, err := h.service.ListDoctors(r.Context(), q, pagination.FromRequest(r, h.pageSize))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DoctorListResponse{Success: true, Doctors: page.Doctors, Pagination: page.Pagination})
}

// ListSpecializations handles GET /doctors/specializations.
func (h *Handler) ListSpecializations(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	specs, err := h.service.ListSpecializations(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SpecializationListResponse{Success: true, Specializations: specs})
}

// GetAppointment handles GET /appointments/{id}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "appointment")
	if !ok {
		return
	}

	appt, err := h.service.GetAppointment(r.Context(), actor, id)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AppointmentSuccessResponse{Success: true, Message: "Appointment retrieved", Appointment: appt})
}

// UpdateAppointment handles PATCH /appointments/{id}.
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "appointment")
	if !ok {
		return
	}
	var req TransitionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Status != nil {
		st, err := ParseStatus(string(*req.Status))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_status", err.Error())
			return
		}
		req.Status = &st
	}

	appt, err := h.service.TransitionAppointment(r.Context(), actor, id, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AppointmentSuccessResponse{Success: true, Message: "Appointment updated successfully", Appointment: appt})
}

// CancelAppointment handles POST /appointments/{id}/cancel. The body is
// optional.
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "appointment")
	if !ok {
		return
	}
	var req CancelRequest
	if r.ContentLength != 0 {
		if !decode(w, r, &req) {
			return
		}
	}

	appt, err := h.service.CancelAppointment(r.Context(), actor, id, req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, AppointmentSuccessResponse{Success: true, Message: "Appointment cancelled successfully", Appointment: appt})
}

// SetDoctorVerification handles PUT /admin/doctors/{id}/verification.
func (h *Handler) SetDoctorVerification(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	doctorID, ok := pathID(w, r, "doctor")
	if !ok {
		return
	}
	var req VerificationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Verified == nil {
		respondError(w, http.StatusBadRequest, "missing_field", "is_verified is required")
		return
	}

	doctor, err := h.service.SetDoctorVerified(r.Context(), actor, doctorID, *req.Verified)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DoctorSuccessResponse{Success: true, Message: "Doctor verification updated", Doctor: doctor})
}

// StatusFor maps a service error onto an HTTP status and error type.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrPermission):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, ErrOverlap):
		return http.StatusConflict, "slot_overlap"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "appointment_conflict"
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, ErrUnverifiedDoctor):
		return http.StatusUnprocessableEntity, "doctor_not_verified"
	case errors.Is(err, ErrInactiveDoctor):
		return http.StatusUnprocessableEntity, "doctor_inactive"
	case errors.Is(err, ErrCancellationWindow):
		return http.StatusUnprocessableEntity, "cancellation_window"
	case errors.Is(err, ErrPastDate):
		return http.StatusBadRequest, "past_date"
	case errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest, "invalid_status"
	case errors.Is(err, ErrInvalidSlot):
		return http.StatusBadRequest, "invalid_slot"
	case errors.Is(err, ErrNoChanges):
		return http.StatusBadRequest, "no_changes"
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	}
	return http.StatusInternalServerError, "internal_error"
}

func respondServiceError(w http.ResponseWriter, err error) {
	status, errType := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("scheduling request failed")
		respondError(w, status, errType, "Internal server error")
		return
	}
	respondError(w, status, errType, err.Error())
}

// respondJSON encodes body before writing the status so an encoding failure
// can still become a 500.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	payload, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal_error","message":"Internal server error"}` + "\n"))
		return
	}
	w.WriteHeader(status)
	w.Write(append(payload, '\n'))
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: errorType, Message: message})
}
