package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	ttemplate "text/template"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog/log"
)

// MailSender is satisfied by *gomail.Dialer.
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer renders an intent into a multipart HTML and plain text mail and
// sends it over SMTP.
type Mailer struct {
	sender MailSender
	from   string
}

func NewMailer(cfg MailConfig) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From)
}

func NewMailerWithSender(sender MailSender, from string) *Mailer {
	return &Mailer{sender: sender, from: from}
}

func (m *Mailer) Name() string { return "email" }

// Deliver sends only intents that ask for mail and have an address.
func (m *Mailer) Deliver(ctx context.Context, intent Intent) error {
	if !intent.Email || intent.Recipient.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mail, err := renderMail(intent)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", intent.Recipient.Email)
	msg.SetHeader("Subject", mail.Subject)
	msg.SetBody("text/html", mail.HTML)
	msg.AddAlternative("text/plain", mail.Text)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send %s mail to user %d: %w", intent.Event, intent.Recipient.UserID, err)
	}

	log.Info().
		Str("event", string(intent.Event)).
		Int64("user_id", intent.Recipient.UserID).
		Msg("notification mail sent")
	return nil
}

// Each event has "<event>.subject", "<event>.html" and "<event>.text"
// templates. Events without their own fall back to "generic".
var htmlTemplates = template.Must(template.New("mail").Parse(`
{{define "greeting"}}<p>{{if .Name}}Dear {{.Name}},{{else}}Hello,{{end}}</p>{{end}}
{{define "details"}}{{with .Appointment}}
<table>
  <tr><td>Date</td><td>{{.Date}}</td></tr>
  <tr><td>Time</td><td>{{.Time}}</td></tr>
  {{if .DoctorName}}<tr><td>Doctor</td><td>{{.DoctorName}}</td></tr>{{end}}
  {{if .PatientName}}<tr><td>Patient</td><td>{{.PatientName}}</td></tr>{{end}}
  <tr><td>Status</td><td>{{.Status}}</td></tr>
  {{if .Reason}}<tr><td>Reason</td><td>{{.Reason}}</td></tr>{{end}}
</table>
{{end}}{{end}}
{{define "footer"}}<p>This is an automated message, please do not reply to this email.</p>{{end}}

{{define "booking_confirmed.html"}}
<h1>Appointment Confirmed</h1>
{{template "greeting" .}}
<p>Your appointment has been booked. Here are the details:</p>
{{template "details" .}}
<ul>
  <li>Please arrive 10 minutes before your scheduled time.</li>
  <li>Bring any previous medical records that apply.</li>
</ul>
<p>If you need to cancel, sign in to your account.</p>
{{template "footer"}}
{{end}}

{{define "new_booking.html"}}
<h1>New Appointment Booked</h1>
{{template "greeting" .}}
<p>A patient has booked an appointment with you.</p>
{{template "details" .}}
{{template "footer"}}
{{end}}

{{define "status_updated.html"}}
<h1>Appointment Updated</h1>
{{template "greeting" .}}
<p>The status of your appointment has changed{{with .Appointment}} to <strong>{{.Status}}</strong>{{end}}.</p>
{{template "details" .}}
{{template "footer"}}
{{end}}

{{define "cancelled_by_patient.html"}}
<h1>Appointment Cancelled by Patient</h1>
{{template "greeting" .}}
<p>{{with .Appointment}}{{if .PatientName}}{{.PatientName}}{{else}}Your patient{{end}}{{else}}Your patient{{end}} cancelled the appointment below. The time is open for new bookings.</p>
{{template "details" .}}
{{template "footer"}}
{{end}}

{{define "cancellation_confirmed.html"}}
<h1>Cancellation Confirmed</h1>
{{template "greeting" .}}
<p>Your appointment has been cancelled as requested.</p>
{{template "details" .}}
<p>You are welcome to book a new appointment at any time.</p>
{{template "footer"}}
{{end}}

{{define "cancelled_by_doctor.html"}}
<h1>Appointment Cancelled by Your Doctor</h1>
{{template "greeting" .}}
<p>We are sorry, your doctor had to cancel the appointment below.</p>
{{template "details" .}}
<p>Please book a new appointment at a time that suits you.</p>
{{template "footer"}}
{{end}}

{{define "slot_freed.html"}}
<h1>Slot Available Again</h1>
{{template "greeting" .}}
<p>A cancellation has opened this time in your schedule.</p>
{{template "details" .}}
{{template "footer"}}
{{end}}

{{define "reminder.html"}}
<h1>Appointment Reminder</h1>
{{template "greeting" .}}
<p>This is a reminder of your upcoming appointment.</p>
{{template "details" .}}
<p>Please arrive 10 minutes early.</p>
{{template "footer"}}
{{end}}

{{define "doctor_verified.html"}}
<h1>Your Doctor Account Has Been Verified</h1>
{{template "greeting" .}}
<p>Patients can now find you in the doctor directory and book appointments with you.</p>
<p>Sign in to publish your weekly time slots.</p>
{{template "footer"}}
{{end}}

{{define "generic.html"}}
{{template "greeting" .}}
<p>{{.Message}}</p>
{{template "details" .}}
{{template "footer"}}
{{end}}
`))

var textTemplates = ttemplate.Must(ttemplate.New("mail").Parse(`
{{define "booking_confirmed.subject"}}Appointment Confirmed{{with .Appointment}} - {{.Date}}{{end}}{{end}}
{{define "new_booking.subject"}}New Appointment Booked{{with .Appointment}} - {{.Date}} {{.Time}}{{end}}{{end}}
{{define "status_updated.subject"}}Appointment Updated{{with .Appointment}}: {{.Status}}{{end}}{{end}}
{{define "cancelled_by_patient.subject"}}Appointment Cancelled by Patient{{with .Appointment}} - {{.Date}}{{end}}{{end}}
{{define "cancellation_confirmed.subject"}}Cancellation Confirmed{{with .Appointment}} - {{.Date}}{{end}}{{end}}
{{define "cancelled_by_doctor.subject"}}Appointment Cancelled by Your Doctor{{with .Appointment}} - {{.Date}}{{end}}{{end}}
{{define "slot_freed.subject"}}Slot Available Again{{with .Appointment}} - {{.Date}} {{.Time}}{{end}}{{end}}
{{define "reminder.subject"}}Appointment Reminder{{with .Appointment}} - {{.Date}} at {{.Time}}{{end}}{{end}}
{{define "doctor_verified.subject"}}Your Doctor Account Has Been Verified{{end}}
{{define "generic.subject"}}{{.Title}}{{end}}

{{define "greeting"}}{{if .Name}}Dear {{.Name}},{{else}}Hello,{{end}}{{end}}
{{define "details"}}{{with .Appointment}}
Date:    {{.Date}}
Time:    {{.Time}}
{{- if .DoctorName}}
Doctor:  {{.DoctorName}}{{end}}
{{- if .PatientName}}
Patient: {{.PatientName}}{{end}}
Status:  {{.Status}}
{{- if .Reason}}
Reason:  {{.Reason}}{{end}}
{{end}}{{end}}

{{define "booking_confirmed.text"}}APPOINTMENT CONFIRMED

{{template "greeting" .}}

Your appointment has been booked. Here are the details:
{{template "details" .}}
Please arrive 10 minutes before your scheduled time and bring any previous
medical records that apply. If you need to cancel, sign in to your account.
{{end}}

{{define "new_booking.text"}}NEW APPOINTMENT BOOKED

{{template "greeting" .}}

A patient has booked an appointment with you.
{{template "details" .}}{{end}}

{{define "status_updated.text"}}APPOINTMENT UPDATED

{{template "greeting" .}}

The status of your appointment has changed{{with .Appointment}} to {{.Status}}{{end}}.
{{template "details" .}}{{end}}

{{define "cancelled_by_patient.text"}}APPOINTMENT CANCELLED BY PATIENT

{{template "greeting" .}}

{{with .Appointment}}{{if .PatientName}}{{.PatientName}}{{else}}Your patient{{end}}{{else}}Your patient{{end}} cancelled the appointment below. The time is open for new bookings.
{{template "details" .}}{{end}}

{{define "cancellation_confirmed.text"}}CANCELLATION CONFIRMED

{{template "greeting" .}}

Your appointment has been cancelled as requested.
{{template "details" .}}
You are welcome to book a new appointment at any time.
{{end}}

{{define "cancelled_by_doctor.text"}}APPOINTMENT CANCELLED BY YOUR DOCTOR

{{template "greeting" .}}

We are sorry, your doctor had to cancel the appointment below.
{{template "details" .}}
Please book a new appointment at a time that suits you.
{{end}}

{{define "slot_freed.text"}}SLOT AVAILABLE AGAIN

{{template "greeting" .}}

A cancellation has opened this time in your schedule.
{{template "details" .}}{{end}}

{{define "reminder.text"}}APPOINTMENT REMINDER

{{template "greeting" .}}

This is a reminder of your upcoming appointment.
{{template "details" .}}
Please arrive 10 minutes early.
{{end}}

{{define "doctor_verified.text"}}ACCOUNT VERIFIED

{{template "greeting" .}}

Patients can now find you in the doctor directory and book appointments
with you. Sign in to publish your weekly time slots.
{{end}}

{{define "generic.text"}}{{template "greeting" .}}

{{.Message}}
{{template "details" .}}{{end}}
`))

type mailData struct {
	Name        string
	Title       string
	Message     string
	Appointment *AppointmentRef
}

type renderedMail struct {
	Subject string
	HTML    string
	Text    string
}

func templateName(event Event) string {
	name := string(event)
	if htmlTemplates.Lookup(name+".html") == nil || textTemplates.Lookup(name+".text") == nil {
		return "generic"
	}
	return name
}

func renderMail(intent Intent) (renderedMail, error) {
	name := templateName(intent.Event)
	data := mailData{
		Name:        intent.Recipient.Name,
		Title:       intent.Title,
		Message:     intent.Message,
		Appointment: intent.Appointment,
	}

	var subject, html, text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&subject, name+".subject", data); err != nil {
		return renderedMail{}, fmt.Errorf("failed to render %s mail subject: %w", intent.Event, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html", data); err != nil {
		return renderedMail{}, fmt.Errorf("failed to render %s mail: %w", intent.Event, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".text", data); err != nil {
		return renderedMail{}, fmt.Errorf("failed to render %s plain text mail: %w", intent.Event, err)
	}
	return renderedMail{Subject: subject.String(), HTML: html.String(), Text: text.String()}, nil
}
