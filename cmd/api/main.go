package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/db"
	apphttp "github.com/WailSalutem-Health-Care/appointment-service/internal/http"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/logger"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/messaging"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/telemetry"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "appointment-service",
		Short: "Appointment scheduling API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrate, _ := cmd.Flags().GetBool("migrate")
			return runServer(migrate)
		},
	}
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.OTELServiceName)
	return cfg, nil
}

func runServer(migrate bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitProvider(ctx, telemetry.ConfigFrom(cfg))
	if err != nil {
		log.Warn().Err(err).Msg("telemetry disabled")
		provider = &telemetry.Provider{}
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to register metrics")
		metrics = nil
	}

	conn, err := db.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if migrate {
		n, err := db.NewMigrator(conn).Up(ctx)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Info().Int("applied", n).Msg("migrations applied")
	}

	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	authCfg := auth.Config{Issuer: cfg.AuthIssuer, JWKSURL: cfg.AuthJWKSURL, Audience: cfg.AuthAudience}
	if err := authCfg.Validate(); err != nil {
		return err
	}
	jwks, err := auth.NewJWKS(cfg.AuthJWKSURL, 0)
	if err != nil {
		return err
	}
	defer jwks.Close()

	var publisher messaging.PublisherInterface
	if cfg.RabbitMQURL != "" {
		p, err := messaging.NewPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, notification events will not be published")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	opts := []notification.DispatcherOption{}
	if metrics != nil {
		opts = append(opts, notification.WithMetrics(metrics))
	}
	sinks := notification.SinksFor(cfg, notification.NewInboxRepository(conn), publisher)
	dispatcher := notification.NewDispatcher(cfg.NotificationQueueSize, cfg.NotificationWorkers, sinks, opts...)
	dispatcher.Start()

	router, err := apphttp.SetupRouter(apphttp.Dependencies{
		DB:          conn,
		Config:      cfg,
		Verifier:    auth.NewVerifier(authCfg, jwks),
		Permissions: perms,
		Notifier:    dispatcher,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apphttp.CORSMiddleware(cfg.Origins())(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("appointment-service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("notification queue not fully drained")
	}
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			conn, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			count, err := db.NewMigrator(conn).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := context.Background()
			conn, err := db.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			statuses, err := db.NewMigrator(conn).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				state, at := "pending", ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, at)
			}
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}
