package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/db"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/scheduling"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/telemetry"
)

var (
	_ scheduling.MetricsRecorder     = (*telemetry.Metrics)(nil)
	_ notification.DispatchMetrics   = (*telemetry.Metrics)(nil)
	_ auth.MetricsRecorder           = (*telemetry.Metrics)(nil)
	_ auth.PermissionMetricsRecorder = (*telemetry.Metrics)(nil)
	_ RequestMetrics                 = (*telemetry.Metrics)(nil)
)

// Dependencies are the collaborators SetupRouter wires into the handlers.
// Notifier, Metrics and Clock are optional.
type Dependencies struct {
	DB          *sql.DB
	Config      *config.Config
	Verifier    *auth.Verifier
	Permissions auth.Permissions
	Notifier    notification.Notifier
	Metrics     *telemetry.Metrics
	Clock       scheduling.Clock
}

// Routes holds the handlers NewRouter mounts.
type Routes struct {
	Scheduling    *scheduling.Handler
	Notifications *notification.Handler
	Health        http.HandlerFunc
}

// SetupRouter builds the scheduling and inbox stacks on top of deps and
// returns the routed handler.
func SetupRouter(deps Dependencies) (*mux.Router, error) {
	cfg := deps.Config
	policy, err := scheduling.PolicyFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduling policy: %w", err)
	}

	var serviceMetrics scheduling.MetricsRecorder
	if deps.Metrics != nil {
		serviceMetrics = deps.Metrics
	}

	repo := scheduling.NewRepository(deps.DB, db.IsolationLevel(cfg.DBTxIsolation))
	service := scheduling.NewService(repo, deps.Notifier, deps.Clock, policy, serviceMetrics)

	routes := Routes{
		Scheduling:    scheduling.NewHandler(service, cfg.AvailabilityDisplayDays, cfg.AppointmentsPerPage),
		Notifications: notification.NewHandler(notification.NewInboxRepository(deps.DB)),
		Health:        healthHandler(deps.DB, cfg.OTELServiceName),
	}
	return NewRouter(routes, deps.Verifier, deps.Permissions, deps.Metrics), nil
}

// NewRouter mounts routes behind tracing, request logging, panic recovery
// and per-route JWT + permission checks.
func NewRouter(routes Routes, verifier *auth.Verifier, perms auth.Permissions, metrics *telemetry.Metrics) *mux.Router {
	// A nil *telemetry.Metrics must not end up inside a non-nil interface.
	var (
		authMetrics auth.MetricsRecorder
		permMetrics auth.PermissionMetricsRecorder
		reqMetrics  RequestMetrics
	)
	if metrics != nil {
		authMetrics, permMetrics, reqMetrics = metrics, metrics, metrics
	}

	protect := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.MiddlewareWithMetrics(verifier, authMetrics)(
			auth.RequirePermissionWithMetrics(permission, perms, permMetrics)(h),
		)
	}

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("appointment-service"))
	r.Use(requestLogger(reqMetrics))
	r.Use(recoverer)

	r.HandleFunc("/health", routes.Health).Methods("GET")

	s := routes.Scheduling

	// Directory routes
	r.Handle("/doctors", protect("doctor:view", s.ListDoctors)).Methods("GET")
	r.Handle("/doctors/specializations", protect("doctor:view", s.ListSpecializations)).Methods("GET")

	// Calendar routes
	r.Handle("/doctors/{id}/slots", protect("slot:view", s.ListSlots)).Methods("GET")
	r.Handle("/doctors/{id}/availability", protect("availability:view", s.Availability)).Methods("GET")
	r.Handle("/doctor/slots", protect("slot:manage", s.AddSlot)).Methods("POST")
	r.Handle("/doctor/slots/{id}", protect("slot:manage", s.RemoveSlot)).Methods("DELETE")
	r.Handle("/doctor/slots/{id}/toggle", protect("slot:manage", s.ToggleSlot)).Methods("POST")

	// Appointment routes
	r.Handle("/appointments", protect("appointment:book", s.BookAppointment)).Methods("POST")
	r.Handle("/appointments", protect("appointment:view", s.ListAppointments)).Methods("GET")
	r.Handle("/appointments/{id}", protect("appointment:view", s.GetAppointment)).Methods("GET")
	r.Handle("/appointments/{id}", protect("appointment:update", s.UpdateAppointment)).Methods("PATCH")
	r.Handle("/appointments/{id}/cancel", protect("appointment:cancel", s.CancelAppointment)).Methods("POST")

	// Admin routes
	r.Handle("/admin/doctors/{id}/verification", protect("doctor:verify", s.SetDoctorVerification)).Methods("PUT")

	// Inbox routes
	n := routes.Notifications
	r.Handle("/notifications", protect("notification:view", n.List)).Methods("GET")
	r.Handle("/notifications/unread-count", protect("notification:view", n.UnreadCount)).Methods("GET")
	r.Handle("/notifications/read-all", protect("notification:view", n.MarkAllAsRead)).Methods("POST")
	r.Handle("/notifications/{id}/read", protect("notification:view", n.MarkAsRead)).Methods("POST")

	return r
}

func healthHandler(conn *sql.DB, service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status, code := "ok", http.StatusOK

		if conn != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := conn.PingContext(ctx); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}

		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status, "service": service})
	}
}
