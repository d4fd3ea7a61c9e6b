package notification

import (
	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
)

// SinksFor picks the delivery sinks a scheduling process runs with. The
// inbox is always written. Email goes out through the broker when a
// publisher is available, and straight over SMTP otherwise.
func SinksFor(cfg *config.Config, inbox InboxStore, publisher messaging.PublisherInterface) []Sink {
	sinks := []Sink{NewInboxSink(inbox)}
	switch {
	case publisher != nil:
		sinks = append(sinks, NewEventSink(publisher))
	case cfg.SMTPHost != "":
		sinks = append(sinks, NewMailer(MailConfigFrom(cfg)))
	}
	return sinks
}

func MailConfigFrom(cfg *config.Config) MailConfig {
	return MailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}
}
