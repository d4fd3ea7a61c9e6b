package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the week ordered Monday=1 through Sunday=7. The
// String form is the persisted day_of_week value.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Valid reports whether d is one of Monday..Sunday.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseWeekday accepts a day name in any letter case.
func ParseWeekday(s string) (Weekday, error) {
	for i := Monday; i <= Sunday; i++ {
		if strings.EqualFold(weekdayNames[i], strings.TrimSpace(s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown day of week %q", ErrInvalidInput, s)
}

// WeekdayOf maps a time.Weekday (Sunday=0) onto the Monday-first ordering.
func WeekdayOf(d time.Weekday) Weekday {
	if d == time.Sunday {
		return Sunday
	}
	return Weekday(d)
}

func (d Weekday) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

func (d *Weekday) UnmarshalText(b []byte) error {
	v, err := ParseWeekday(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ClockTime is a wall-clock time of day with minute granularity, stored as
// minutes since midnight.
type ClockTime int

// MinutesPerDay bounds ClockTime; 24:00 is not representable.
const MinutesPerDay = 24 * 60

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime parses "HH:MM". A trailing ":SS" of zero seconds is
// tolerated so values read back from TIME columns round-trip.
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: time must be HH:MM, got %q", ErrInvalidInput, s)
	}
	if t.Second() != 0 {
		return 0, fmt.Errorf("%w: time must have minute granularity, got %q", ErrInvalidInput, s)
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Add returns c shifted by the given number of minutes.
func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Date is a calendar date without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidInput, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) civil() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.civil().AddDate(0, 0, n))
}

// Weekday returns the Monday-first day of week for d.
func (d Date) Weekday() Weekday {
	return WeekdayOf(d.civil().Weekday())
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.civil().Before(o.civil())
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool {
	return d.civil().After(o.civil())
}

// At anchors d and the wall-clock time c in loc.
func (d Date) At(c ClockTime, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), 0, 0, loc)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Status is the appointment lifecycle state as persisted in appointments.status.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// ParseStatus rejects anything outside the five lifecycle states.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// HoldsSlot reports whether an appointment in state s blocks its
// (doctor, date, time) for other bookings.
func (s Status) HoldsSlot() bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Role identifies who is acting on the schedule.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
	RoleSystem  Role = "system"
)

// Actor is the explicit identity passed into every operation. ProfileID is
// the doctor id for doctors and the patient id for patients.
type Actor struct {
	UserID    int64
	Role      Role
	ProfileID int64
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{Role: RoleSystem}

type Doctor struct {
	ID                 int64   `json:"id"`
	UserID             int64   `json:"user_id"`
	Email              string  `json:"email"`
	FullName           string  `json:"full_name"`
	Specialization     string  `json:"specialization"`
	RegistrationNumber string  `json:"registration_number,omitempty"`
	ConsultationFee    float64 `json:"consultation_fee"`
	IsVerified         bool    `json:"is_verified"`
	IsActive           bool    `json:"is_active"`
}

// Bookable reports why patients cannot see or book d, or nil when they can.
func (d *Doctor) Bookable() error {
	if !d.IsVerified {
		return ErrUnverifiedDoctor
	}
	if !d.IsActive {
		return ErrInactiveDoctor
	}
	return nil
}

type Patient struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone,omitempty"`
}

// TimeSlot is a recurring weekly availability window. Duration is the
// length in minutes of each bookable unit inside [Start, End).
type TimeSlot struct {
	ID        int64     `json:"id"`
	DoctorID  int64     `json:"doctor_id"`
	Day       Weekday   `json:"day_of_week"`
	Start     ClockTime `json:"start_time"`
	End       ClockTime `json:"end_time"`
	Duration  int       `json:"slot_duration"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Appointment struct {
	ID                 int64     `json:"id"`
	PatientID          int64     `json:"patient_id"`
	DoctorID           int64     `json:"doctor_id"`
	Date               Date      `json:"appointment_date"`
	Time               ClockTime `json:"appointment_time"`
	Duration           int       `json:"duration"`
	Status             Status    `json:"status"`
	ReasonForVisit     string    `json:"reason_for_visit,omitempty"`
	Symptoms           string    `json:"symptoms,omitempty"`
	Diagnosis          string    `json:"diagnosis,omitempty"`
	Prescription       string    `json:"prescription,omitempty"`
	Notes              string    `json:"notes,omitempty"`
	CancelledBy        Role      `json:"cancelled_by,omitempty"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// StartsAt is the appointment's start instant in loc.
func (a Appointment) StartsAt(loc *time.Location) time.Time {
	return a.Date.At(a.Time, loc)
}

// EndsAt is StartsAt plus the booked duration.
func (a Appointment) EndsAt(loc *time.Location) time.Time {
	return a.StartsAt(loc).Add(time.Duration(a.Duration) * time.Minute)
}

// DayAvailability is one projected calendar day with the doctor's active
// slots for that weekday.
type DayAvailability struct {
	Date    Date       `json:"date"`
	Weekday Weekday    `json:"day"`
	Slots   []TimeSlot `json:"slots"`
}

type AddSlotRequest struct {
	Day      Weekday   `json:"day_of_week"`
	Start    ClockTime `json:"start_time"`
	End      ClockTime `json:"end_time"`
	Duration int       `json:"slot_duration"`
}

// BookRequest carries a patient's booking. Time is a pointer so a missing
// appointment_time is rejected rather than read as midnight.
type BookRequest struct {
	DoctorID       int64      `json:"doctor_id"`
	Date           Date       `json:"appointment_date"`
	Time           *ClockTime `json:"appointment_time"`
	Duration       int        `json:"duration"`
	ReasonForVisit string     `json:"reason_for_visit"`
	Symptoms       string     `json:"symptoms"`
}

// TransitionRequest carries a doctor's update. Nil fields are left
// untouched and an empty string clears the field.
type TransitionRequest struct {
	Status       *Status `json:"status,omitempty"`
	Diagnosis    *string `json:"diagnosis,omitempty"`
	Prescription *string `json:"prescription,omitempty"`
	Notes        *string `json:"notes,omitempty"`
	Reason       string  `json:"cancellation_reason,omitempty"`
}

// DoctorFilter narrows ListDoctors. Search matches name or specialization
// as a case-insensitive substring; Specialization must match exactly.
// Limit 0 means no limit.
type DoctorFilter struct {
	Search         string
	Specialization string
	Limit          int
	Offset         int
}

// AppointmentFilter narrows ListAppointments. Zero values mean no filter;
// Limit 0 means no limit.
type AppointmentFilter struct {
	PatientID int64
	DoctorID  int64
	Status    Status
	Statuses  []Status
	Date      Date
	DateTo    Date
	Newest    bool
	Limit     int
	Offset    int
}
