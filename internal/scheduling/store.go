package scheduling

import "context"

// Store runs fn inside one transaction. If fn returns an error the
// transaction is rolled back and nothing fn wrote is kept.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes the scheduling rules need. Lookups that
// find nothing return ErrNotFound; other failures wrap ErrStorage.
type Tx interface {
	GetDoctor(ctx context.Context, id int64) (*Doctor, error)
	// LockDoctor is GetDoctor with a row lock held until the transaction
	// ends. Slot mutations for one doctor serialize on it.
	LockDoctor(ctx context.Context, id int64) (*Doctor, error)
	SetDoctorVerified(ctx context.Context, id int64, verified bool) error
	GetPatient(ctx context.Context, id int64) (*Patient, error)
	// ListDoctors and ListSpecializations see only verified doctors whose
	// user account is active, ordered by name.
	ListDoctors(ctx context.Context, filter DoctorFilter) ([]Doctor, int, error)
	ListSpecializations(ctx context.Context) ([]string, error)

	ListSlots(ctx context.Context, doctorID int64) ([]TimeSlot, error)
	GetSlot(ctx context.Context, id int64) (*TimeSlot, error)
	InsertSlot(ctx context.Context, slot *TimeSlot) error
	DeleteSlot(ctx context.Context, id int64) error
	SetSlotActive(ctx context.Context, id int64, active bool) error

	// CountActiveAt counts appointments holding (doctor, date, time), that
	// is with a status other than cancelled or no_show.
	CountActiveAt(ctx context.Context, doctorID int64, date Date, t ClockTime) (int, error)
	// InsertAppointment returns ErrConflict when the store's uniqueness
	// guard rejects the row.
	InsertAppointment(ctx context.Context, appt *Appointment) error
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	// LockAppointment is GetAppointment with a row lock held until the
	// transaction ends.
	LockAppointment(ctx context.Context, id int64) (*Appointment, error)
	UpdateAppointment(ctx context.Context, appt *Appointment) error
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]Appointment, int, error)
}
