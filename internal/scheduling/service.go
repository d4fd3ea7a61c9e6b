package scheduling

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/pagination"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/appointment-service/scheduling")

const (
	DefaultPatientCancelReason = "Cancelled by patient"
	DefaultDoctorCancelReason  = "Cancelled by doctor"
)

// Policy holds the tunable scheduling rules.
type Policy struct {
	Location                   *time.Location
	CancellationWindow         time.Duration
	HorizonDays                int
	MaxHorizonDays             int
	DefaultSlotDuration        int
	DefaultAppointmentDuration int
}

// DefaultPolicy is 24h cancellation, a 30 day horizon and 30 minute slots.
func DefaultPolicy() Policy {
	return Policy{
		Location:                   time.UTC,
		CancellationWindow:         24 * time.Hour,
		HorizonDays:                30,
		MaxHorizonDays:             90,
		DefaultSlotDuration:        30,
		DefaultAppointmentDuration: 30,
	}
}

// MetricsRecorder receives business counters. Implemented by telemetry.Metrics.
type MetricsRecorder interface {
	RecordBooking(ctx context.Context, outcome string)
	RecordTransition(ctx context.Context, from, to string)
	RecordSlotOperation(ctx context.Context, operation, outcome string)
}

type Service struct {
	store    Store
	notifier notification.Notifier
	clock    Clock
	policy   Policy
	metrics  MetricsRecorder
}

func NewService(store Store, notifier notification.Notifier, clock Clock, policy Policy, metrics MetricsRecorder) *Service {
	if notifier == nil {
		notifier = notification.NopNotifier{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &Service{store: store, notifier: notifier, clock: clock, policy: policy, metrics: metrics}
}

// now is the current instant in the service location.
func (s *Service) now() time.Time {
	return s.clock.Now().In(s.policy.Location)
}

func (s *Service) AddTimeSlot(ctx context.Context, actor Actor, req AddSlotRequest) (*TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.AddTimeSlot", trace.WithAttributes(
		attribute.Int64("doctor.id", actor.ProfileID),
		attribute.String("slot.day", req.Day.String()),
	))
	defer span.End()

	if actor.Role != RoleDoctor {
		return nil, failSpan(span, fmt.Errorf("%w: only doctors manage time slots", ErrPermission))
	}

	slot := TimeSlot{
		DoctorID: actor.ProfileID,
		Day:      req.Day,
		Start:    req.Start,
		End:      req.End,
		Duration: req.Duration,
		IsActive: true,
	}
	if slot.Duration == 0 {
		slot.Duration = s.policy.DefaultSlotDuration
	}
	if err := slot.Validate(); err != nil {
		s.recordSlot(ctx, "add", err)
		return nil, failSpan(span, err)
	}

	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.LockDoctor(ctx, actor.ProfileID); err != nil {
			return err
		}
		existing, err := tx.ListSlots(ctx, actor.ProfileID)
		if err != nil {
			return err
		}
		if other, found := findOverlap(existing, slot); found {
			return fmt.Errorf("%w: %s %s-%s", ErrOverlap, other.Day, other.Start, other.End)
		}
		return tx.InsertSlot(ctx, &slot)
	})
	s.recordSlot(ctx, "add", err)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to add time slot: %w", err))
	}

	log.Info().
		Int64("doctor_id", slot.DoctorID).
		Int64("slot_id", slot.ID).
		Str("day", slot.Day.String()).
		Str("window", slot.Start.String()+"-"+slot.End.String()).
		Msg("time slot added")
	return &slot, nil
}

// RemoveTimeSlot deletes the slot outright. Appointments already booked
// inside it are independent rows and stay as they are.
func (s *Service) RemoveTimeSlot(ctx context.Context, actor Actor, slotID int64) error {
	ctx, span := tracer.Start(ctx, "scheduling.RemoveTimeSlot", trace.WithAttributes(attribute.Int64("slot.id", slotID)))
	defer span.End()

	err := s.store.InTx(ctx, func(tx Tx) error {
		slot, err := tx.GetSlot(ctx, slotID)
		if err != nil {
			return err
		}
		if err := ownsSlot(actor, slot); err != nil {
			return err
		}
		return tx.DeleteSlot(ctx, slotID)
	})
	s.recordSlot(ctx, "remove", err)
	if err != nil {
		return failSpan(span, fmt.Errorf("failed to remove time slot: %w", err))
	}
	log.Info().Int64("slot_id", slotID).Int64("doctor_id", actor.ProfileID).Msg("time slot removed")
	return nil
}

// ToggleTimeSlot flips the active flag. Reactivation is refused when the
// slot would overlap another active slot, so the non-overlap rule holds
// after any mix of adds and toggles.
func (s *Service) ToggleTimeSlot(ctx context.Context, actor Actor, slotID int64) (*TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.ToggleTimeSlot", trace.WithAttributes(attribute.Int64("slot.id", slotID)))
	defer span.End()

	var slot *TimeSlot
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if slot, err = tx.GetSlot(ctx, slotID); err != nil {
			return err
		}
		if err := ownsSlot(actor, slot); err != nil {
			return err
		}
		if _, err := tx.LockDoctor(ctx, slot.DoctorID); err != nil {
			return err
		}
		if !slot.IsActive {
			existing, err := tx.ListSlots(ctx, slot.DoctorID)
			if err != nil {
				return err
			}
			candidate := *slot
			candidate.IsActive = true
			if other, found := findOverlap(existing, candidate); found {
				return fmt.Errorf("%w: %s %s-%s", ErrOverlap, other.Day, other.Start, other.End)
			}
		}
		slot.IsActive = !slot.IsActive
		return tx.SetSlotActive(ctx, slot.ID, slot.IsActive)
	})
	s.recordSlot(ctx, "toggle", err)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to toggle time slot: %w", err))
	}
	log.Info().Int64("slot_id", slot.ID).Bool("is_active", slot.IsActive).Msg("time slot toggled")
	return slot, nil
}

// ListTimeSlots returns every slot of the doctor, active or not, ordered
// Monday to Sunday and by start time within a day.
func (s *Service) ListTimeSlots(ctx context.Context, doctorID int64) ([]TimeSlot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.ListTimeSlots", trace.WithAttributes(attribute.Int64("doctor.id", doctorID)))
	defer span.End()

	var slots []TimeSlot
	err := s.store.InTx(ctx, func(tx Tx) error {
		if _, err := tx.GetDoctor(ctx, doctorID); err != nil {
			return err
		}
		var err error
		slots, err = tx.ListSlots(ctx, doctorID)
		return err
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to list time slots: %w", err))
	}
	SortSlots(slots)
	return slots, nil
}

// ProjectAvailability reads the doctor's slots once and returns a lazy
// sequence of the days in the next horizonDays that have an active slot.
// horizonDays <= 0 selects the configured horizon; larger values are capped.
func (s *Service) ProjectAvailability(ctx context.Context, doctorID int64, horizonDays int) (iter.Seq[DayAvailability], error) {
	ctx, span := tracer.Start(ctx, "scheduling.ProjectAvailability", trace.WithAttributes(attribute.Int64("doctor.id", doctorID)))
	defer span.End()

	if horizonDays <= 0 {
		horizonDays = s.policy.HorizonDays
	}
	if s.policy.MaxHorizonDays > 0 && horizonDays > s.policy.MaxHorizonDays {
		horizonDays = s.policy.MaxHorizonDays
	}

	var slots []TimeSlot
	err := s.store.InTx(ctx, func(tx Tx) error {
		doctor, err := tx.GetDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		if err := doctor.Bookable(); err != nil {
			return err
		}
		slots, err = tx.ListSlots(ctx, doctorID)
		return err
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to project availability: %w", err))
	}

	span.SetAttributes(attribute.Int("horizon.days", horizonDays))
	return Project(slots, DateOf(s.now()), horizonDays), nil
}

// HasConflict reports whether the exact (doctor, date, time) is already
// held by an appointment that is neither cancelled nor a no-show.
func (s *Service) HasConflict(ctx context.Context, doctorID int64, date Date, t ClockTime) (bool, error) {
	var conflict bool
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		conflict, err = hasConflict(ctx, tx, doctorID, date, t)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to check conflict: %w", err)
	}
	return conflict, nil
}

func (s *Service) BookAppointment(ctx context.Context, actor Actor, req BookRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.BookAppointment", trace.WithAttributes(
		attribute.Int64("doctor.id", req.DoctorID),
		attribute.String("appointment.date", req.Date.String()),
	))
	defer span.End()

	if actor.Role != RolePatient {
		return nil, failSpan(span, fmt.Errorf("%w: only patients book appointments", ErrPermission))
	}
	if req.DoctorID <= 0 || req.Date.IsZero() || req.Time == nil {
		return nil, failSpan(span, fmt.Errorf("%w: doctor_id, appointment_date and appointment_time are required", ErrInvalidInput))
	}
	tm := *req.Time
	span.SetAttributes(attribute.String("appointment.time", tm.String()))
	if req.Duration == 0 {
		req.Duration = s.policy.DefaultAppointmentDuration
	}
	if req.Duration < 0 {
		return nil, failSpan(span, fmt.Errorf("%w: duration must be positive", ErrInvalidInput))
	}

	today := DateOf(s.now())
	var (
		appt    Appointment
		intents []notification.Intent
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		patient, err := tx.GetPatient(ctx, actor.ProfileID)
		if err != nil {
			return err
		}
		doctor, err := tx.GetDoctor(ctx, req.DoctorID)
		if err != nil {
			return err
		}
		if err := doctor.Bookable(); err != nil {
			return err
		}
		if req.Date.Before(today) {
			return fmt.Errorf("%w: %s is before %s", ErrPastDate, req.Date, today)
		}
		conflict, err := hasConflict(ctx, tx, doctor.ID, req.Date, tm)
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}

		appt = Appointment{
			PatientID:      patient.ID,
			DoctorID:       doctor.ID,
			Date:           req.Date,
			Time:           tm,
			Duration:       req.Duration,
			Status:         StatusScheduled,
			ReasonForVisit: strings.TrimSpace(req.ReasonForVisit),
			Symptoms:       strings.TrimSpace(req.Symptoms),
		}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		intents = bookingIntents(&appt, doctor, patient)
		return nil
	})
	s.recordBooking(ctx, err)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to book appointment: %w", err))
	}

	span.SetAttributes(attribute.Int64("appointment.id", appt.ID))
	log.Info().
		Int64("appointment_id", appt.ID).
		Int64("doctor_id", appt.DoctorID).
		Int64("patient_id", appt.PatientID).
		Str("date", appt.Date.String()).
		Str("appointment_time", appt.Time.String()).
		Msg("appointment booked")

	s.dispatch(ctx, intents)
	return &appt, nil
}

// TransitionAppointment applies a doctor's update: an optional status
// change plus any medical fields present in req.
func (s *Service) TransitionAppointment(ctx context.Context, actor Actor, appointmentID int64, req TransitionRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.TransitionAppointment", trace.WithAttributes(attribute.Int64("appointment.id", appointmentID)))
	defer span.End()

	if actor.Role != RoleDoctor {
		return nil, failSpan(span, fmt.Errorf("%w: only the treating doctor can update an appointment", ErrPermission))
	}

	var (
		appt    *Appointment
		from    Status
		intents []notification.Intent
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if appt, err = tx.LockAppointment(ctx, appointmentID); err != nil {
			return err
		}
		if appt.DoctorID != actor.ProfileID {
			return ErrPermission
		}
		if appt.Status.IsTerminal() {
			return fmt.Errorf("%w: appointment is already %s", ErrInvalidState, appt.Status)
		}
		from = appt.Status

		statusChanged := false
		if req.Status != nil {
			if err := CheckTransition(RoleDoctor, from, *req.Status); err != nil {
				return err
			}
			if *req.Status != from {
				appt.Status = *req.Status
				statusChanged = true
			}
		}
		fieldsChanged := setIfPresent(&appt.Diagnosis, req.Diagnosis)
		fieldsChanged = setIfPresent(&appt.Prescription, req.Prescription) || fieldsChanged
		fieldsChanged = setIfPresent(&appt.Notes, req.Notes) || fieldsChanged
		if !statusChanged && !fieldsChanged {
			return ErrNoChanges
		}

		if appt.Status == StatusCancelled && statusChanged {
			appt.CancelledBy = RoleDoctor
			appt.CancellationReason = strings.TrimSpace(req.Reason)
			if appt.CancellationReason == "" {
				appt.CancellationReason = DefaultDoctorCancelReason
			}
		}
		if err := tx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}

		if statusChanged {
			doctor, err := tx.GetDoctor(ctx, appt.DoctorID)
			if err != nil {
				return err
			}
			patient, err := tx.GetPatient(ctx, appt.PatientID)
			if err != nil {
				return err
			}
			intents = statusIntents(appt, doctor, patient)
		}
		return nil
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to update appointment: %w", err))
	}

	if from != appt.Status {
		s.recordTransition(ctx, from, appt.Status)
		log.Info().
			Int64("appointment_id", appt.ID).
			Str("from", string(from)).
			Str("to", string(appt.Status)).
			Msg("appointment status changed")
	}
	s.dispatch(ctx, intents)
	return appt, nil
}

// CancelAppointment is the patient-initiated cancellation. It is refused
// for terminal appointments and inside the cancellation window.
func (s *Service) CancelAppointment(ctx context.Context, actor Actor, appointmentID int64, reason string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.CancelAppointment", trace.WithAttributes(attribute.Int64("appointment.id", appointmentID)))
	defer span.End()

	if actor.Role != RolePatient {
		return nil, failSpan(span, fmt.Errorf("%w: only the booking patient can cancel here", ErrPermission))
	}

	now := s.now()
	var (
		appt    *Appointment
		from    Status
		intents []notification.Intent
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if appt, err = tx.LockAppointment(ctx, appointmentID); err != nil {
			return err
		}
		if appt.PatientID != actor.ProfileID {
			return ErrPermission
		}
		from = appt.Status
		if err := CheckTransition(RolePatient, from, StatusCancelled); err != nil {
			return err
		}
		if lead := appt.StartsAt(s.policy.Location).Sub(now); lead < s.policy.CancellationWindow {
			return fmt.Errorf("%w: %s before start, at least %s required", ErrCancellationWindow, lead.Truncate(time.Minute), s.policy.CancellationWindow)
		}

		appt.Status = StatusCancelled
		appt.CancelledBy = RolePatient
		appt.CancellationReason = strings.TrimSpace(reason)
		if appt.CancellationReason == "" {
			appt.CancellationReason = DefaultPatientCancelReason
		}
		if err := tx.UpdateAppointment(ctx, appt); err != nil {
			return err
		}

		doctor, err := tx.GetDoctor(ctx, appt.DoctorID)
		if err != nil {
			return err
		}
		patient, err := tx.GetPatient(ctx, appt.PatientID)
		if err != nil {
			return err
		}
		intents = patientCancelIntents(appt, doctor, patient)
		return nil
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to cancel appointment: %w", err))
	}

	s.recordTransition(ctx, from, StatusCancelled)
	log.Info().Int64("appointment_id", appt.ID).Str("reason", appt.CancellationReason).Msg("appointment cancelled by patient")
	s.dispatch(ctx, intents)
	return appt, nil
}

// GetAppointment is visible to the booking patient, the treating doctor
// and admins.
func (s *Service) GetAppointment(ctx context.Context, actor Actor, appointmentID int64) (*Appointment, error) {
	var appt *Appointment
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		appt, err = tx.GetAppointment(ctx, appointmentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if err := canView(actor, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListQuery holds the optional filters callers may pass to ListAppointments.
type ListQuery struct {
	Status Status
	Date   Date
}

type AppointmentPage struct {
	Appointments []Appointment   `json:"appointments"`
	Pagination   pagination.Meta `json:"pagination"`
}

// ListAppointments scopes the listing by role: patients see their own,
// newest first; doctors see theirs in calendar order; admins see all.
func (s *Service) ListAppointments(ctx context.Context, actor Actor, q ListQuery, params pagination.Params) (*AppointmentPage, error) {
	params.Validate()
	filter := AppointmentFilter{
		Status: q.Status,
		Date:   q.Date,
		Limit:  params.Limit,
		Offset: params.Offset(),
	}
	switch actor.Role {
	case RolePatient:
		filter.PatientID = actor.ProfileID
		filter.Newest = true
	case RoleDoctor:
		filter.DoctorID = actor.ProfileID
	case RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: role %q cannot list appointments", ErrPermission, actor.Role)
	}

	var (
		appts []Appointment
		total int
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		appts, total, err = tx.ListAppointments(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if appts == nil {
		appts = []Appointment{}
	}
	return &AppointmentPage{Appointments: appts, Pagination: params.Meta(total)}, nil
}

// DoctorQuery holds the optional directory filters.
type DoctorQuery struct {
	Search         string
	Specialization string
}

type DoctorPage struct {
	Doctors    []Doctor        `json:"doctors"`
	Pagination pagination.Meta `json:"pagination"`
}

// ListDoctors is the public directory: verified doctors with an active
// account, ordered by name.
func (s *Service) ListDoctors(ctx context.Context, q DoctorQuery, params pagination.Params) (*DoctorPage, error) {
	ctx, span := tracer.Start(ctx, "scheduling.ListDoctors")
	defer span.End()

	params.Validate()
	filter := DoctorFilter{
		Search:         strings.TrimSpace(q.Search),
		Specialization: strings.TrimSpace(q.Specialization),
		Limit:          params.Limit,
		Offset:         params.Offset(),
	}

	var (
		doctors []Doctor
		total   int
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		doctors, total, err = tx.ListDoctors(ctx, filter)
		return err
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to list doctors: %w", err))
	}
	if doctors == nil {
		doctors = []Doctor{}
	}
	span.SetAttributes(attribute.Int("doctors.total", total))
	return &DoctorPage{Doctors: doctors, Pagination: params.Meta(total)}, nil
}

// ListSpecializations returns the distinct specializations in the directory.
func (s *Service) ListSpecializations(ctx context.Context) ([]string, error) {
	var specs []string
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		specs, err = tx.ListSpecializations(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list specializations: %w", err)
	}
	if specs == nil {
		specs = []string{}
	}
	return specs, nil
}

// SetDoctorVerified is the admin toggle that gates booking.
func (s *Service) SetDoctorVerified(ctx context.Context, actor Actor, doctorID int64, verified bool) (*Doctor, error) {
	ctx, span := tracer.Start(ctx, "scheduling.SetDoctorVerified", trace.WithAttributes(
		attribute.Int64("doctor.id", doctorID),
		attribute.Bool("verified", verified),
	))
	defer span.End()

	if actor.Role != RoleAdmin {
		return nil, failSpan(span, fmt.Errorf("%w: only admins verify doctors", ErrPermission))
	}

	var (
		doctor  *Doctor
		intents []notification.Intent
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		if doctor, err = tx.LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		was := doctor.IsVerified
		if err := tx.SetDoctorVerified(ctx, doctorID, verified); err != nil {
			return err
		}
		doctor.IsVerified = verified
		if verified && !was {
			intents = append(intents, verifiedIntent(doctor))
		}
		return nil
	})
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("failed to set doctor verification: %w", err))
	}
	log.Info().Int64("doctor_id", doctorID).Bool("verified", verified).Msg("doctor verification updated")
	s.dispatch(ctx, intents)
	return doctor, nil
}

// SendReminders emits a reminder for every scheduled or confirmed
// appointment on date and returns how many were sent.
func (s *Service) SendReminders(ctx context.Context, date Date) (int, error) {
	ctx, span := tracer.Start(ctx, "scheduling.SendReminders", trace.WithAttributes(attribute.String("date", date.String())))
	defer span.End()

	var intents []notification.Intent
	err := s.store.InTx(ctx, func(tx Tx) error {
		appts, _, err := tx.ListAppointments(ctx, AppointmentFilter{
			Statuses: []Status{StatusScheduled, StatusConfirmed},
			Date:     date,
		})
		if err != nil {
			return err
		}
		for i := range appts {
			a := &appts[i]
			doctor, err := tx.GetDoctor(ctx, a.DoctorID)
			if err != nil {
				return err
			}
			patient, err := tx.GetPatient(ctx, a.PatientID)
			if err != nil {
				return err
			}
			intents = append(intents, reminderIntent(a, doctor, patient))
		}
		return nil
	})
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to send reminders: %w", err))
	}

	s.dispatch(ctx, intents)
	log.Info().Str("date", date.String()).Int("count", len(intents)).Msg("appointment reminders queued")
	return len(intents), nil
}

// MarkNoShows moves every scheduled appointment whose booked time has
// fully elapsed to no_show. Each appointment commits on its own so one
// failure does not hold back the rest.
func (s *Service) MarkNoShows(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "scheduling.MarkNoShows")
	defer span.End()

	now := s.now()
	var candidates []Appointment
	err := s.store.InTx(ctx, func(tx Tx) error {
		var err error
		candidates, _, err = tx.ListAppointments(ctx, AppointmentFilter{
			Status: StatusScheduled,
			DateTo: DateOf(now),
		})
		return err
	})
	if err != nil {
		return 0, failSpan(span, fmt.Errorf("failed to list overdue appointments: %w", err))
	}

	marked := 0
	var firstErr error
	for _, c := range candidates {
		if c.EndsAt(s.policy.Location).After(now) {
			continue
		}
		var intents []notification.Intent
		err := s.store.InTx(ctx, func(tx Tx) error {
			appt, err := tx.LockAppointment(ctx, c.ID)
			if err != nil {
				return err
			}
			if err := CheckTransition(RoleSystem, appt.Status, StatusNoShow); err != nil {
				return err
			}
			appt.Status = StatusNoShow
			if err := tx.UpdateAppointment(ctx, appt); err != nil {
				return err
			}
			doctor, err := tx.GetDoctor(ctx, appt.DoctorID)
			if err != nil {
				return err
			}
			patient, err := tx.GetPatient(ctx, appt.PatientID)
			if err != nil {
				return err
			}
			intents = statusIntents(appt, doctor, patient)
			return nil
		})
		if errors.Is(err, ErrInvalidState) {
			// Changed by someone else since the listing.
			continue
		}
		if err != nil {
			log.Error().Err(err).Int64("appointment_id", c.ID).Msg("failed to mark appointment as no-show")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		marked++
		s.recordTransition(ctx, StatusScheduled, StatusNoShow)
		s.dispatch(ctx, intents)
	}

	log.Info().Int("count", marked).Msg("no-show sweep finished")
	if firstErr != nil {
		return marked, failSpan(span, fmt.Errorf("no-show sweep incomplete: %w", firstErr))
	}
	return marked, nil
}

func hasConflict(ctx context.Context, tx Tx, doctorID int64, date Date, t ClockTime) (bool, error) {
	n, err := tx.CountActiveAt(ctx, doctorID, date, t)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// dispatch hands intents to the notifier. Failures are logged and never
// reach the caller; the transaction has already committed.
func (s *Service) dispatch(ctx context.Context, intents []notification.Intent) {
	for _, in := range intents {
		if err := s.notifier.Enqueue(ctx, in); err != nil {
			log.Warn().Err(err).Str("event", string(in.Event)).Int64("recipient_user_id", in.Recipient.UserID).Msg("failed to enqueue notification")
		}
	}
}

func ownsSlot(actor Actor, slot *TimeSlot) error {
	if actor.Role != RoleDoctor || slot.DoctorID != actor.ProfileID {
		return ErrPermission
	}
	return nil
}

func canView(actor Actor, appt *Appointment) error {
	switch {
	case actor.Role == RoleAdmin:
		return nil
	case actor.Role == RolePatient && appt.PatientID == actor.ProfileID:
		return nil
	case actor.Role == RoleDoctor && appt.DoctorID == actor.ProfileID:
		return nil
	}
	return ErrPermission
}

// setIfPresent copies the trimmed value into dst and reports whether dst
// changed. A nil v leaves dst alone; a blank one clears it.
func setIfPresent(dst *string, v *string) bool {
	if v == nil {
		return false
	}
	val := strings.TrimSpace(*v)
	if val == *dst {
		return false
	}
	*dst = val
	return true
}

func (s *Service) recordBooking(ctx context.Context, err error) {
	if s.metrics != nil {
		s.metrics.RecordBooking(ctx, Outcome(err))
	}
}

func (s *Service) recordTransition(ctx context.Context, from, to Status) {
	if s.metrics != nil {
		s.metrics.RecordTransition(ctx, string(from), string(to))
	}
}

func (s *Service) recordSlot(ctx context.Context, op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordSlotOperation(ctx, op, Outcome(err))
	}
}

// Outcome names an error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrOverlap):
		return "overlap"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPastDate):
		return "past_date"
	case errors.Is(err, ErrUnverifiedDoctor):
		return "unverified_doctor"
	case errors.Is(err, ErrPermission):
		return "permission"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrCancellationWindow):
		return "cancellation_window"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidSlot), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoChanges):
		return "invalid"
	}
	return "error"
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, Outcome(err))
	return err
}
