package scheduling

import (
	"fmt"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
)

func doctorRecipient(d *Doctor) notification.Recipient {
	return notification.Recipient{UserID: d.UserID, Email: d.Email, Name: "Dr. " + d.FullName}
}

func patientRecipient(p *Patient) notification.Recipient {
	return notification.Recipient{UserID: p.UserID, Email: p.Email, Name: p.FullName}
}

func appointmentRef(a *Appointment, d *Doctor, p *Patient) *notification.AppointmentRef {
	ref := &notification.AppointmentRef{
		ID:          a.ID,
		DoctorID:    a.DoctorID,
		PatientID:   a.PatientID,
		Date:        a.Date.String(),
		Time:        a.Time.String(),
		Status:      string(a.Status),
		Reason:      a.CancellationReason,
		CancelledBy: string(a.CancelledBy),
	}
	if d != nil {
		ref.DoctorName = "Dr. " + d.FullName
	}
	if p != nil {
		ref.PatientName = p.FullName
	}
	return ref
}

type intentOpt func(*notification.Intent)

func inbox(i *notification.Intent) { i.Inbox = true }
func email(i *notification.Intent) { i.Email = true }

func newIntent(ev notification.Event, to notification.Recipient, ref *notification.AppointmentRef, title, msg string, typ notification.Type, opts ...intentOpt) notification.Intent {
	i := notification.NewIntent(ev, to, title, msg, typ)
	i.Appointment = ref
	for _, o := range opts {
		o(&i)
	}
	return i
}

func bookingIntents(a *Appointment, d *Doctor, p *Patient) []notification.Intent {
	ref := appointmentRef(a, d, p)
	return []notification.Intent{
		newIntent(notification.EventBookingConfirmed, patientRecipient(p), ref,
			"Appointment Booked",
			fmt.Sprintf("Your appointment with Dr. %s on %s at %s is booked", d.FullName, a.Date, a.Time),
			notification.TypeAppointment, email),
		newIntent(notification.EventNewBooking, doctorRecipient(d), ref,
			"New Appointment Booking",
			fmt.Sprintf("New appointment booked for %s at %s", a.Date, a.Time),
			notification.TypeAppointment, inbox, email),
	}
}

func statusIntents(a *Appointment, d *Doctor, p *Patient) []notification.Intent {
	ref := appointmentRef(a, d, p)
	update := newIntent(notification.EventStatusUpdated, patientRecipient(p), ref,
		"Appointment Updated",
		fmt.Sprintf("Your appointment on %s has been updated to %s", a.Date, a.Status),
		notification.TypeAppointment, inbox)
	if a.Status == StatusCompleted {
		update.Email = true
	}
	out := []notification.Intent{update}

	if a.Status == StatusCancelled {
		out = append(out,
			newIntent(notification.EventCancelledByDoctor, patientRecipient(p), ref,
				"Appointment Cancelled",
				fmt.Sprintf("Your appointment with Dr. %s on %s at %s was cancelled: %s", d.FullName, a.Date, a.Time, a.CancellationReason),
				notification.TypeCancellation, email),
			slotFreedIntent(a, d, ref),
		)
	}
	return out
}

func patientCancelIntents(a *Appointment, d *Doctor, p *Patient) []notification.Intent {
	ref := appointmentRef(a, d, p)
	return []notification.Intent{
		newIntent(notification.EventCancelledByPatient, doctorRecipient(d), ref,
			"Appointment Cancelled",
			fmt.Sprintf("Appointment on %s at %s has been cancelled", a.Date, a.Time),
			notification.TypeCancellation, inbox, email),
		slotFreedIntent(a, d, ref),
		newIntent(notification.EventCancellationConfirmed, patientRecipient(p), ref,
			"Appointment Cancelled",
			fmt.Sprintf("Your appointment with Dr. %s on %s at %s has been cancelled", d.FullName, a.Date, a.Time),
			notification.TypeCancellation, email),
	}
}

// slotFreedIntent is published only; it is not written to any inbox.
func slotFreedIntent(a *Appointment, d *Doctor, ref *notification.AppointmentRef) notification.Intent {
	return newIntent(notification.EventSlotFreed, doctorRecipient(d), ref,
		"Slot Available",
		fmt.Sprintf("The %s slot on %s is available again", a.Time, a.Date),
		notification.TypeAppointment)
}

func reminderIntent(a *Appointment, d *Doctor, p *Patient) notification.Intent {
	return newIntent(notification.EventReminder, patientRecipient(p), appointmentRef(a, d, p),
		"Appointment Reminder",
		fmt.Sprintf("Reminder: you have an appointment with Dr. %s on %s at %s", d.FullName, a.Date, a.Time),
		notification.TypeReminder, inbox, email)
}

func verifiedIntent(d *Doctor) notification.Intent {
	return newIntent(notification.EventDoctorVerified, doctorRecipient(d), nil,
		"Account Verified",
		"Your doctor account has been verified. Patients can now book appointments with you.",
		notification.TypeSystem, inbox, email)
}
