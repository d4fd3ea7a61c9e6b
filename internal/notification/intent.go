package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event names what happened. It is the suffix of the routing key events
// are published under.
type Event string

const (
	EventBookingConfirmed      Event = "booking_confirmed"
	EventNewBooking            Event = "new_booking"
	EventStatusUpdated         Event = "status_updated"
	EventCancelledByPatient    Event = "cancelled_by_patient"
	EventCancellationConfirmed Event = "cancellation_confirmed"
	EventCancelledByDoctor     Event = "cancelled_by_doctor"
	EventSlotFreed             Event = "slot_freed"
	EventReminder              Event = "reminder"
	EventDoctorVerified        Event = "doctor_verified"
)

// Type is the persisted notifications.type value.
type Type string

const (
	TypeAppointment  Type = "appointment"
	TypeCancellation Type = "cancellation"
	TypeReminder     Type = "reminder"
	TypeSystem       Type = "system"
)

var ErrQueueFull = errors.New("notification queue is full")
var ErrClosed = errors.New("notification dispatcher is closed")

type Recipient struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

// AppointmentRef is the appointment snapshot templates render from.
type AppointmentRef struct {
	ID          int64  `json:"id"`
	DoctorID    int64  `json:"doctor_id"`
	PatientID   int64  `json:"patient_id"`
	DoctorName  string `json:"doctor_name,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
}

// Intent is a request that someone be told something. Inbox asks for a row
// in the recipient's notifications; Email asks for a mail. Every intent is
// also published as an event.
type Intent struct {
	ID          string          `json:"id"`
	Event       Event           `json:"event"`
	Recipient   Recipient       `json:"recipient"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Type        Type            `json:"type"`
	Inbox       bool            `json:"inbox"`
	Email       bool            `json:"email"`
	Appointment *AppointmentRef `json:"appointment,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewIntent stamps an id and creation time.
func NewIntent(event Event, to Recipient, title, message string, typ Type) Intent {
	return Intent{
		ID:        uuid.NewString(),
		Event:     event,
		Recipient: to,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier accepts intents without waiting for delivery.
type Notifier interface {
	Enqueue(ctx context.Context, intent Intent) error
}

// Sink delivers one intent to one channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, intent Intent) error
}

// NopNotifier drops everything.
type NopNotifier struct{}

func (NopNotifier) Enqueue(context.Context, Intent) error { return nil }
