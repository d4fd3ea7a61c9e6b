package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/db"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/logger"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/scheduling"
)

func main() {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Queue next-day appointment reminders and mark elapsed appointments as no-shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			skipNoShow, _ := cmd.Flags().GetBool("skip-no-show")
			return run(date, skipNoShow)
		},
	}
	cmd.Flags().String("date", "", "Remind for this date (YYYY-MM-DD), defaults to tomorrow")
	cmd.Flags().Bool("skip-no-show", false, "Do not run the no-show sweep")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(dateFlag string, skipNoShow bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, "appointment-reminders")

	policy, err := scheduling.PolicyFromConfig(cfg)
	if err != nil {
		return err
	}

	date := scheduling.DateOf(time.Now().In(policy.Location)).AddDays(1)
	if dateFlag != "" {
		if date, err = scheduling.ParseDate(dateFlag); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	conn, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, reminders go to the inbox only")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	sinks := notification.SinksFor(cfg, notification.NewInboxRepository(conn), publisher)
	dispatcher := notification.NewDispatcher(cfg.NotificationQueueSize, cfg.NotificationWorkers, sinks)
	dispatcher.Start()

	repo := scheduling.NewRepository(conn, db.IsolationLevel(cfg.DBTxIsolation))
	service := scheduling.NewService(repo, dispatcher, scheduling.SystemClock{}, policy, nil)

	log.Info().Str("date", date.String()).Msg("reminder job starting")

	sent, err := service.SendReminders(ctx, date)
	if err != nil {
		return err
	}

	noShows := 0
	if !skipNoShow {
		if noShows, err = service.MarkNoShows(ctx); err != nil {
			return err
		}
	}

	// Everything queued above has to reach the sinks before the process exits.
	if err := dispatcher.Close(ctx); err != nil {
		return fmt.Errorf("failed to drain notifications: %w", err)
	}

	log.Info().Int("reminders", sent).Int("no_shows", noShows).Msg("reminder job finished")
	return nil
}
