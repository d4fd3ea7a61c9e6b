package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/pagination"
	"github.com/gorilla/mux"
)

func withPrincipal(req *http.Request, roles []string, userID, profileID int64) *http.Request {
	principal := &auth.Principal{Subject: "kc-user", Roles: roles, AppUserID: userID, ProfileID: profileID}
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))
}

func asPatient(req *http.Request) *http.Request {
	return withPrincipal(req, []string{auth.RolePatient}, 201, 1)
}

func asDoctor(req *http.Request) *http.Request {
	return withPrincipal(req, []string{auth.RoleDoctor}, 101, 1)
}

func withID(req *http.Request, id string) *http.Request {
	return mux.SetURLVars(req, map[string]string{"id": id})
}

func TestActorFromPrincipal(t *testing.T) {
	testCases := []struct {
		name    string
		roles   []string
		profile int64
		want    Role
		ok      bool
	}{
		{"patient", []string{"PATIENT"}, 3, RolePatient, true},
		{"doctor", []string{"doctor"}, 4, RoleDoctor, true},
		{"admin without profile", []string{"ADMIN"}, 0, RoleAdmin, true},
		{"admin wins", []string{"PATIENT", "ADMIN", "DOCTOR"}, 4, RoleAdmin, true},
		{"doctor wins over patient", []string{"PATIENT", "DOCTOR"}, 4, RoleDoctor, true},
		{"patient without profile", []string{"PATIENT"}, 0, "", false},
		{"no known role", []string{"offline_access"}, 3, "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actor, ok := ActorFromPrincipal(&auth.Principal{Roles: tc.roles, AppUserID: 9, ProfileID: tc.profile})
			if ok != tc.ok || actor.Role != tc.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tc.want, tc.ok, actor.Role, ok)
			}
			if ok && actor.UserID != 9 {
				t.Errorf("Expected user id 9, got %d", actor.UserID)
			}
		})
	}
}

func TestHandlerBookAppointment_Success(t *testing.T) {
	mockService := &mockService{
		bookFunc: func(ctx context.Context, actor Actor, req BookRequest) (*Appointment, error) {
			if actor.Role != RolePatient || actor.ProfileID != 1 {
				t.Errorf("Unexpected actor %+v", actor)
			}
			return &Appointment{ID: 7, DoctorID: req.DoctorID, PatientID: 1, Date: req.Date, Time: *req.Time, Duration: 30, Status: StatusScheduled}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	body := `{"doctor_id":1,"appointment_date":"2025-01-06","appointment_time":"10:00","reason_for_visit":"Checkup"}`
	req := asPatient(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body)))
	rec := httptest.NewRecorder()

	handler.BookAppointment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var response AppointmentSuccessResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if !response.Success || response.Appointment == nil || response.Appointment.ID != 7 {
		t.Errorf("Unexpected response: %+v", response)
	}
	if response.Appointment.Time != at(10, 0) {
		t.Errorf("Expected 10:00, got %s", response.Appointment.Time)
	}
}

func TestHandlerBookAppointment_MissingTime(t *testing.T) {
	f := newFixture(t, utc(2025, 1, 5, 9, 0))
	handler := NewHandler(f.svc, 14, 10)

	body := `{"doctor_id":1,"appointment_date":"2025-01-06"}`
	req := asPatient(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body)))
	rec := httptest.NewRecorder()

	handler.BookAppointment(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
	var response ErrorResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.Error != "invalid_input" {
		t.Errorf("Expected invalid_input, got %q", response.Error)
	}
	if f.store.appointmentCount() != 0 {
		t.Error("Expected no appointment to be stored")
	}
}

func TestHandlerBookAppointment_ErrorMapping(t *testing.T) {
	testCases := []struct {
		err        error
		wantStatus int
		wantType   string
	}{
		{fmt.Errorf("failed to book appointment: %w", ErrConflict), http.StatusConflict, "appointment_conflict"},
		{ErrPastDate, http.StatusBadRequest, "past_date"},
		{ErrUnverifiedDoctor, http.StatusUnprocessableEntity, "doctor_not_verified"},
		{ErrInactiveDoctor, http.StatusUnprocessableEntity, "doctor_inactive"},
		{ErrPermission, http.StatusForbidden, "forbidden"},
		{ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: connection refused", ErrStorage), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range testCases {
		t.Run(tc.wantType, func(t *testing.T) {
			mockService := &mockService{
				bookFunc: func(ctx context.Context, actor Actor, req BookRequest) (*Appointment, error) {
					return nil, tc.err
				},
			}
			handler := NewHandler(mockService, 14, 10)

			body := `{"doctor_id":1,"appointment_date":"2025-01-06","appointment_time":"10:00"}`
			req := asPatient(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body)))
			rec := httptest.NewRecorder()

			handler.BookAppointment(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var response ErrorResponse
			json.NewDecoder(rec.Body).Decode(&response)
			if response.Error != tc.wantType {
				t.Errorf("Expected error '%s', got '%s'", tc.wantType, response.Error)
			}
			if tc.wantStatus == http.StatusInternalServerError && strings.Contains(response.Message, "connection refused") {
				t.Error("Expected internal details to be hidden")
			}
		})
	}
}

func TestHandlerBookAppointment_InvalidBody(t *testing.T) {
	handler := NewHandler(&mockService{}, 14, 10)

	for _, body := range []string{"invalid json", `{"appointment_time":"10am"}`, `{"appointment_date":"06-01-2025"}`} {
		req := asPatient(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(body)))
		rec := httptest.NewRecorder()

		handler.BookAppointment(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", body, rec.Code)
		}
	}
}

func TestHandler_Unauthenticated(t *testing.T) {
	handler := NewHandler(&mockService{}, 14, 10)

	req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.BookAppointment(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}

	req = withPrincipal(httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(`{}`)), []string{"PATIENT"}, 201, 0)
	rec = httptest.NewRecorder()
	handler.BookAppointment(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 without profile, got %d", rec.Code)
	}
}

func TestHandlerAddSlot(t *testing.T) {
	mockService := &mockService{
		addSlotFunc: func(ctx context.Context, actor Actor, req AddSlotRequest) (*TimeSlot, error) {
			if req.Day == Tuesday && req.Start == at(15, 0) {
				return nil, fmt.Errorf("%w: Tuesday 14:00-16:00", ErrOverlap)
			}
			return &TimeSlot{ID: 3, DoctorID: actor.ProfileID, Day: req.Day, Start: req.Start, End: req.End, Duration: 30, IsActive: true}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	body := `{"day_of_week":"Tuesday","start_time":"14:00","end_time":"16:00"}`
	rec := httptest.NewRecorder()
	handler.AddSlot(rec, asDoctor(httptest.NewRequest(http.MethodPost, "/doctor/slots", strings.NewReader(body))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}
	var created SlotSuccessResponse
	json.NewDecoder(rec.Body).Decode(&created)
	if created.Slot == nil || created.Slot.Day != Tuesday {
		t.Errorf("Unexpected response: %+v", created)
	}

	body = `{"day_of_week":"Tuesday","start_time":"15:00","end_time":"17:00"}`
	rec = httptest.NewRecorder()
	handler.AddSlot(rec, asDoctor(httptest.NewRequest(http.MethodPost, "/doctor/slots", strings.NewReader(body))))

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
	var response ErrorResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.Error != "slot_overlap" {
		t.Errorf("Expected error 'slot_overlap', got '%s'", response.Error)
	}
}

func TestHandlerToggleSlot(t *testing.T) {
	mockService := &mockService{
		toggleSlotFunc: func(ctx context.Context, actor Actor, slotID int64) (*TimeSlot, error) {
			return &TimeSlot{ID: slotID, Day: Tuesday, Start: at(9, 0), End: at(12, 0), Duration: 30, IsActive: false}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	req := withID(asDoctor(httptest.NewRequest(http.MethodPost, "/doctor/slots/5/toggle", nil)), "5")
	rec := httptest.NewRecorder()
	handler.ToggleSlot(rec, req)

	var response SlotSuccessResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if rec.Code != http.StatusOK || response.Message != "Time slot deactivated" {
		t.Errorf("Unexpected response %d: %+v", rec.Code, response)
	}

	req = withID(asDoctor(httptest.NewRequest(http.MethodPost, "/doctor/slots/x/toggle", nil)), "x")
	rec = httptest.NewRecorder()
	handler.ToggleSlot(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad id, got %d", rec.Code)
	}
}

func TestHandlerListDoctors(t *testing.T) {
	var gotQuery DoctorQuery
	var gotParams pagination.Params
	mockService := &mockService{
		doctorsFunc: func(ctx context.Context, q DoctorQuery, params pagination.Params) (*DoctorPage, error) {
			gotQuery, gotParams = q, params
			doctors := []Doctor{{ID: 1, FullName: "Smith", Specialization: "Cardiology", IsVerified: true, IsActive: true}}
			return &DoctorPage{Doctors: doctors, Pagination: params.Meta(1)}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	req := asPatient(httptest.NewRequest(http.MethodGet, "/doctors?search=smi&specialization=Cardiology&page=2&limit=5", nil))
	rec := httptest.NewRecorder()
	handler.ListDoctors(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotQuery.Search != "smi" || gotQuery.Specialization != "Cardiology" {
		t.Errorf("Unexpected query %+v", gotQuery)
	}
	if gotParams.Page != 2 || gotParams.Limit != 5 {
		t.Errorf("Unexpected page params %+v", gotParams)
	}
	var response DoctorListResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if !response.Success || len(response.Doctors) != 1 || response.Doctors[0].FullName != "Smith" {
		t.Errorf("Unexpected response: %+v", response)
	}

	rec = httptest.NewRecorder()
	handler.ListDoctors(rec, httptest.NewRequest(http.MethodGet, "/doctors", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 without a principal, got %d", rec.Code)
	}
}

func TestHandlerListSpecializations(t *testing.T) {
	f := newFixture(t, utc(2025, 1, 5, 9, 0))
	handler := NewHandler(f.svc, 14, 10)

	rec := httptest.NewRecorder()
	handler.ListSpecializations(rec, asPatient(httptest.NewRequest(http.MethodGet, "/doctors/specializations", nil)))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var response SpecializationListResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if !slices.Equal(response.Specializations, []string{"Cardiology", "Dermatology"}) {
		t.Errorf("Expected distinct bookable specializations, got %v", response.Specializations)
	}
}

func TestRespondJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	respondJSON(rec, http.StatusOK, SlotSuccessResponse{Success: true, Slot: &TimeSlot{ID: 5}})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500 for an unencodable body, got %d", rec.Code)
	}
	var response ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Expected a JSON error body, got: %v", err)
	}
	if response.Error != "internal_error" {
		t.Errorf("Expected internal_error, got %q", response.Error)
	}
}

func TestHandlerAvailability(t *testing.T) {
	var gotHorizon int
	mockService := &mockService{
		availabilityFunc: func(ctx context.Context, doctorID int64, horizonDays int) (iter.Seq[DayAvailability], error) {
			gotHorizon = horizonDays
			slots := []TimeSlot{{ID: 1, DoctorID: doctorID, Day: Monday, Start: at(9, 0), End: at(12, 0), Duration: 30, IsActive: true}}
			return Project(slots, Date{Year: 2025, Month: 1, Day: 6}, 60), nil
		},
	}
	handler := NewHandler(mockService, 3, 10)

	req := withID(httptest.NewRequest(http.MethodGet, "/doctors/1/availability?days=60", nil), "1")
	rec := httptest.NewRecorder()
	handler.Availability(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var response AvailabilityResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if gotHorizon != 60 {
		t.Errorf("Expected horizon 60, got %d", gotHorizon)
	}
	if len(response.Availability) != 3 {
		t.Errorf("Expected display cap of 3 days, got %d", len(response.Availability))
	}

	req = withID(httptest.NewRequest(http.MethodGet, "/doctors/1/availability?days=-1", nil), "1")
	rec = httptest.NewRecorder()
	handler.Availability(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for negative days, got %d", rec.Code)
	}
}

func TestHandlerListAppointments(t *testing.T) {
	var gotQuery ListQuery
	var gotParams pagination.Params
	mockService := &mockService{
		listFunc: func(ctx context.Context, actor Actor, q ListQuery, params pagination.Params) (*AppointmentPage, error) {
			gotQuery, gotParams = q, params
			return &AppointmentPage{Appointments: []Appointment{{ID: 1}}, Pagination: params.Meta(1)}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	req := asDoctor(httptest.NewRequest(http.MethodGet, "/appointments?status=confirmed&date=2025-01-06&page=2&limit=5", nil))
	rec := httptest.NewRecorder()
	handler.ListAppointments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if gotQuery.Status != StatusConfirmed || gotQuery.Date.String() != "2025-01-06" {
		t.Errorf("Unexpected query: %+v", gotQuery)
	}
	if gotParams.Page != 2 || gotParams.Limit != 5 {
		t.Errorf("Unexpected params: %+v", gotParams)
	}

	req = asDoctor(httptest.NewRequest(http.MethodGet, "/appointments?status=done", nil))
	rec = httptest.NewRecorder()
	handler.ListAppointments(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown status, got %d", rec.Code)
	}
}

func TestHandlerUpdateAppointment(t *testing.T) {
	var got TransitionRequest
	mockService := &mockService{
		transitionFunc: func(ctx context.Context, actor Actor, id int64, req TransitionRequest) (*Appointment, error) {
			got = req
			if req.Status != nil && *req.Status == StatusCompleted {
				return nil, ErrInvalidState
			}
			return &Appointment{ID: id, Status: *req.Status}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	req := withID(asDoctor(httptest.NewRequest(http.MethodPatch, "/appointments/4", strings.NewReader(`{"status":"Confirmed","notes":"ok"}`))), "4")
	rec := httptest.NewRecorder()
	handler.UpdateAppointment(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Status == nil || *got.Status != StatusConfirmed || got.Notes == nil || *got.Notes != "ok" {
		t.Errorf("Unexpected request passed to service: %+v", got)
	}

	req = withID(asDoctor(httptest.NewRequest(http.MethodPatch, "/appointments/4", strings.NewReader(`{"status":"pending"}`))), "4")
	rec = httptest.NewRecorder()
	handler.UpdateAppointment(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown status, got %d", rec.Code)
	}

	req = withID(asDoctor(httptest.NewRequest(http.MethodPatch, "/appointments/4", strings.NewReader(`{"status":"completed"}`))), "4")
	rec = httptest.NewRecorder()
	handler.UpdateAppointment(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for invalid state, got %d", rec.Code)
	}
}

func TestHandlerCancelAppointment(t *testing.T) {
	var gotReason string
	mockService := &mockService{
		cancelFunc: func(ctx context.Context, actor Actor, id int64, reason string) (*Appointment, error) {
			gotReason = reason
			if id == 9 {
				return nil, ErrCancellationWindow
			}
			return &Appointment{ID: id, Status: StatusCancelled, CancellationReason: reason}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)

	req := withID(asPatient(httptest.NewRequest(http.MethodPost, "/appointments/4/cancel", nil)), "4")
	rec := httptest.NewRecorder()
	handler.CancelAppointment(rec, req)
	if rec.Code != http.StatusOK || gotReason != "" {
		t.Errorf("Expected 200 with empty reason, got %d %q", rec.Code, gotReason)
	}

	body, _ := json.Marshal(CancelRequest{Reason: "Travelling"})
	req = withID(asPatient(httptest.NewRequest(http.MethodPost, "/appointments/4/cancel", bytes.NewReader(body))), "4")
	rec = httptest.NewRecorder()
	handler.CancelAppointment(rec, req)
	if gotReason != "Travelling" {
		t.Errorf("Expected reason to be passed through, got %q", gotReason)
	}

	req = withID(asPatient(httptest.NewRequest(http.MethodPost, "/appointments/9/cancel", nil)), "9")
	rec = httptest.NewRecorder()
	handler.CancelAppointment(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected status 422, got %d", rec.Code)
	}
}

func TestHandlerSetDoctorVerification(t *testing.T) {
	mockService := &mockService{
		verifyFunc: func(ctx context.Context, actor Actor, doctorID int64, verified bool) (*Doctor, error) {
			return &Doctor{ID: doctorID, IsVerified: verified}, nil
		},
	}
	handler := NewHandler(mockService, 14, 10)
	admin := func(r *http.Request) *http.Request { return withPrincipal(r, []string{auth.RoleAdmin}, 1, 0) }

	req := withID(admin(httptest.NewRequest(http.MethodPut, "/admin/doctors/2/verification", strings.NewReader(`{"is_verified":true}`))), "2")
	rec := httptest.NewRecorder()
	handler.SetDoctorVerification(rec, req)

	var response DoctorSuccessResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if rec.Code != http.StatusOK || response.Doctor == nil || !response.Doctor.IsVerified {
		t.Errorf("Unexpected response %d: %+v", rec.Code, response)
	}

	req = withID(admin(httptest.NewRequest(http.MethodPut, "/admin/doctors/2/verification", strings.NewReader(`{}`))), "2")
	rec = httptest.NewRecorder()
	handler.SetDoctorVerification(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without is_verified, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrPermission, http.StatusForbidden},
		{ErrOverlap, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidState, http.StatusConflict},
		{ErrUnverifiedDoctor, http.StatusUnprocessableEntity},
		{ErrCancellationWindow, http.StatusUnprocessableEntity},
		{ErrPastDate, http.StatusBadRequest},
		{ErrInvalidStatus, http.StatusBadRequest},
		{ErrInvalidSlot, http.StatusBadRequest},
		{ErrNoChanges, http.StatusBadRequest},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrStorage, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		if got, _ := StatusFor(fmt.Errorf("wrapped: %w", tc.err)); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

// mockService is a ServiceInterface whose behaviour is set per test.
type mockService struct {
	addSlotFunc      func(ctx context.Context, actor Actor, req AddSlotRequest) (*TimeSlot, error)
	removeSlotFunc   func(ctx context.Context, actor Actor, slotID int64) error
	toggleSlotFunc   func(ctx context.Context, actor Actor, slotID int64) (*TimeSlot, error)
	listSlotsFunc    func(ctx context.Context, doctorID int64) ([]TimeSlot, error)
	availabilityFunc func(ctx context.Context, doctorID int64, horizonDays int) (iter.Seq[DayAvailability], error)
	conflictFunc     func(ctx context.Context, doctorID int64, date Date, t ClockTime) (bool, error)
	bookFunc         func(ctx context.Context, actor Actor, req BookRequest) (*Appointment, error)
	transitionFunc   func(ctx context.Context, actor Actor, id int64, req TransitionRequest) (*Appointment, error)
	cancelFunc       func(ctx context.Context, actor Actor, id int64, reason string) (*Appointment, error)
	getFunc          func(ctx context.Context, actor Actor, id int64) (*Appointment, error)
	listFunc         func(ctx context.Context, actor Actor, q ListQuery, params pagination.Params) (*AppointmentPage, error)
	doctorsFunc      func(ctx context.Context, q DoctorQuery, params pagination.Params) (*DoctorPage, error)
	specsFunc        func(ctx context.Context) ([]string, error)
	verifyFunc       func(ctx context.Context, actor Actor, doctorID int64, verified bool) (*Doctor, error)
	remindersFunc    func(ctx context.Context, date Date) (int, error)
	noShowFunc       func(ctx context.Context) (int, error)
}

func (m *mockService) AddTimeSlot(ctx context.Context, actor Actor, req AddSlotRequest) (*TimeSlot, error) {
	if m.addSlotFunc != nil {
		return m.addSlotFunc(ctx, actor, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) RemoveTimeSlot(ctx context.Context, actor Actor, slotID int64) error {
	if m.removeSlotFunc != nil {
		return m.removeSlotFunc(ctx, actor, slotID)
	}
	return errors.New("not implemented")
}

func (m *mockService) ToggleTimeSlot(ctx context.Context, actor Actor, slotID int64) (*TimeSlot, error) {
	if m.toggleSlotFunc != nil {
		return m.toggleSlotFunc(ctx, actor, slotID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ListTimeSlots(ctx context.Context, doctorID int64) ([]TimeSlot, error) {
	if m.listSlotsFunc != nil {
		return m.listSlotsFunc(ctx, doctorID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ProjectAvailability(ctx context.Context, doctorID int64, horizonDays int) (iter.Seq[DayAvailability], error) {
	if m.availabilityFunc != nil {
		return m.availabilityFunc(ctx, doctorID, horizonDays)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) HasConflict(ctx context.Context, doctorID int64, date Date, t ClockTime) (bool, error) {
	if m.conflictFunc != nil {
		return m.conflictFunc(ctx, doctorID, date, t)
	}
	return false, errors.New("not implemented")
}

func (m *mockService) BookAppointment(ctx context.Context, actor Actor, req BookRequest) (*Appointment, error) {
	if m.bookFunc != nil {
		return m.bookFunc(ctx, actor, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) TransitionAppointment(ctx context.Context, actor Actor, id int64, req TransitionRequest) (*Appointment, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, actor, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) CancelAppointment(ctx context.Context, actor Actor, id int64, reason string) (*Appointment, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, actor, id, reason)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetAppointment(ctx context.Context, actor Actor, id int64) (*Appointment, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, actor, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ListAppointments(ctx context.Context, actor Actor, q ListQuery, params pagination.Params) (*AppointmentPage, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, q, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) SetDoctorVerified(ctx context.Context, actor Actor, doctorID int64, verified bool) (*Doctor, error) {
	if m.verifyFunc != nil {
		return m.verifyFunc(ctx, actor, doctorID, verified)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) SendReminders(ctx context.Context, date Date) (int, error) {
	if m.remindersFunc != nil {
		return m.remindersFunc(ctx, date)
	}
	return 0, errors.New("not implemented")
}

func (m *mockService) MarkNoShows(ctx context.Context) (int, error) {
	if m.noShowFunc != nil {
		return m.noShowFunc(ctx)
	}
	return 0, errors.New("not implemented")
}

var _ ServiceInterface = (*mockService)(nil)

func (m *mockService) ListDoctors(ctx context.Context, q DoctorQuery, params pagination.Params) (*DoctorPage, error) {
	if m.doctorsFunc != nil {
		return m.doctorsFunc(ctx, q, params)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) ListSpecializations(ctx context.Context) ([]string, error) {
	if m.specsFunc != nil {
		return m.specsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}
