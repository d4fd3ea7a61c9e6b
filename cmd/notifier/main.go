package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/logger"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
)

func main() {
	cmd := &cobra.Command{
		Use:   "notifier",
		Short: "Consume notification events and deliver them by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			prefetch, _ := cmd.Flags().GetInt("prefetch")
			return run(prefetch)
		},
	}
	cmd.Flags().Int("prefetch", 10, "Maximum unacknowledged deliveries")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(prefetch int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, "appointment-notifier")

	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required")
	}
	if cfg.SMTPHost == "" {
		return errors.New("SMTP_HOST is required")
	}

	consumer, err := messaging.NewConsumer(cfg.RabbitMQURL, cfg.NotifierQueue, prefetch, messaging.NotificationBinding)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mailer := notification.NewMailer(notification.MailConfigFrom(cfg))
	log.Info().Str("queue", cfg.NotifierQueue).Str("smtp_host", cfg.SMTPHost).Msg("notifier started")

	if err := consumer.Consume(ctx, notification.Relay(mailer)); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	log.Info().Msg("notifier stopped")
	return nil
}
