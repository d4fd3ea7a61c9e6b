package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
)

// EventSink publishes every intent to the broker as notification.<event>.
type EventSink struct {
	publisher messaging.PublisherInterface
}

func NewEventSink(publisher messaging.PublisherInterface) *EventSink {
	return &EventSink{publisher: publisher}
}

func (s *EventSink) Name() string { return "event" }

func (s *EventSink) Deliver(ctx context.Context, intent Intent) error {
	if s.publisher == nil {
		return nil
	}
	key := messaging.NotificationRoutingKey(string(intent.Event))
	if err := s.publisher.Publish(ctx, key, ToEvent(intent)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", key, err)
	}
	return nil
}

// ToEvent converts an intent to its wire form.
func ToEvent(intent Intent) messaging.NotificationEvent {
	evt := messaging.NotificationEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.NotificationRoutingKey(string(intent.Event))),
		Data: messaging.NotificationData{
			IntentID:  intent.ID,
			UserID:    intent.Recipient.UserID,
			Email:     intent.Recipient.Email,
			Name:      intent.Recipient.Name,
			Title:     intent.Title,
			Message:   intent.Message,
			Type:      string(intent.Type),
			SendEmail: intent.Email,
			CreatedAt: intent.CreatedAt,
		},
	}
	if a := intent.Appointment; a != nil {
		evt.Data.Appointment = &messaging.AppointmentData{
			AppointmentID: a.ID,
			DoctorID:      a.DoctorID,
			PatientID:     a.PatientID,
			DoctorName:    a.DoctorName,
			PatientName:   a.PatientName,
			Date:          a.Date,
			Time:          a.Time,
			Status:        a.Status,
			Reason:        a.Reason,
			CancelledBy:   a.CancelledBy,
		}
	}
	return evt
}

// FromEvent rebuilds an intent from a consumed event. The event name is the
// routing key with the notification prefix removed.
func FromEvent(evt messaging.NotificationEvent) Intent {
	name := strings.TrimPrefix(evt.EventType, messaging.NotificationPrefix)
	d := evt.Data
	intent := Intent{
		ID:        d.IntentID,
		Event:     Event(name),
		Recipient: Recipient{UserID: d.UserID, Email: d.Email, Name: d.Name},
		Title:     d.Title,
		Message:   d.Message,
		Type:      Type(d.Type),
		Email:     d.SendEmail,
		CreatedAt: d.CreatedAt,
	}
	if a := d.Appointment; a != nil {
		intent.Appointment = &AppointmentRef{
			ID:          a.AppointmentID,
			DoctorID:    a.DoctorID,
			PatientID:   a.PatientID,
			DoctorName:  a.DoctorName,
			PatientName: a.PatientName,
			Date:        a.Date,
			Time:        a.Time,
			Status:      a.Status,
			Reason:      a.Reason,
			CancelledBy: a.CancelledBy,
		}
	}
	return intent
}
