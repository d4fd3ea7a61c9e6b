package scheduling

import (
	"context"
	"iter"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/pagination"
)

// ServiceInterface defines the scheduling operations exposed to handlers
// and jobs.
type ServiceInterface interface {
	AddTimeSlot(ctx context.Context, actor Actor, req AddSlotRequest) (*TimeSlot, error)
	RemoveTimeSlot(ctx context.Context, actor Actor, slotID int64) error
	ToggleTimeSlot(ctx context.Context, actor Actor, slotID int64) (*TimeSlot, error)
	ListTimeSlots(ctx context.Context, doctorID int64) ([]TimeSlot, error)
	ProjectAvailability(ctx context.Context, doctorID int64, horizonDays int) (iter.Seq[DayAvailability], error)
	HasConflict(ctx context.Context, doctorID int64, date Date, t ClockTime) (bool, error)
	BookAppointment(ctx context.Context, actor Actor, req BookRequest) (*Appointment, error)
	TransitionAppointment(ctx context.Context, actor Actor, appointmentID int64, req TransitionRequest) (*Appointment, error)
	CancelAppointment(ctx context.Context, actor Actor, appointmentID int64, reason string) (*Appointment, error)
	GetAppointment(ctx context.Context, actor Actor, appointmentID int64) (*Appointment, error)
	ListAppointments(ctx context.Context, actor Actor, q ListQuery, params pagination.Params) (*AppointmentPage, error)
	ListDoctors(ctx context.Context, q DoctorQuery, params pagination.Params) (*DoctorPage, error)
	ListSpecializations(ctx context.Context) ([]string, error)
	SetDoctorVerified(ctx context.Context, actor Actor, doctorID int64, verified bool) (*Doctor, error)
	SendReminders(ctx context.Context, date Date) (int, error)
	MarkNoShows(ctx context.Context) (int, error)
}

var _ ServiceInterface = (*Service)(nil)
