package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ServiceName is stamped on every event this service publishes.
const ServiceName = "appointment-service"

// Routing key prefixes. Notification events are published as
// notification.<event>, e.g. notification.booking_confirmed.
const (
	NotificationPrefix  = "notification."
	NotificationBinding = "notification.#"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NotificationEvent carries one notification intent across the broker.
type NotificationEvent struct {
	BaseEvent
	Data NotificationData `json:"data"`
}

type NotificationData struct {
	IntentID    string           `json:"intent_id"`
	UserID      int64            `json:"user_id"`
	Email       string           `json:"email,omitempty"`
	Name        string           `json:"name,omitempty"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        string           `json:"type"`
	SendEmail   bool             `json:"send_email"`
	Appointment *AppointmentData `json:"appointment,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

type AppointmentData struct {
	AppointmentID int64  `json:"appointment_id"`
	DoctorID      int64  `json:"doctor_id"`
	PatientID     int64  `json:"patient_id"`
	DoctorName    string `json:"doctor_name,omitempty"`
	PatientName   string `json:"patient_name,omitempty"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	CancelledBy   string `json:"cancelled_by,omitempty"`
}

// NotificationRoutingKey returns the routing key for a notification event name.
func NotificationRoutingKey(event string) string {
	return NotificationPrefix + event
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}

// ID is used as the AMQP message id.
func (b BaseEvent) ID() string {
	return b.EventID
}
