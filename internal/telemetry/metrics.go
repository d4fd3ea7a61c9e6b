package telemetry

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Scheduling metrics
	BookingsTotal       metric.Int64Counter
	TransitionsTotal    metric.Int64Counter
	SlotOperationsTotal metric.Int64Counter

	// Notification metrics
	NotificationsTotal        metric.Int64Counter
	NotificationsDroppedTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics registers the service metrics on the global meter provider.
func InitMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter("github.com/WailSalutem-Health-Care/appointment-service"))
}

// NewMetrics registers the service metrics on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.HTTPRequestsTotal, "http_server_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.BookingsTotal, "appointment_bookings_total", "Booking attempts by outcome", "{booking}"},
		{&m.TransitionsTotal, "appointment_transitions_total", "Appointment status changes", "{transition}"},
		{&m.SlotOperationsTotal, "time_slot_operations_total", "Time slot operations by outcome", "{operation}"},
		{&m.NotificationsTotal, "notifications_total", "Notification deliveries by sink and outcome", "{notification}"},
		{&m.NotificationsDroppedTotal, "notifications_dropped_total", "Notifications dropped before delivery", "{notification}"},
		{&m.AuthFailuresTotal, "auth_failures_total", "Total number of authentication failures", "{failure}"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit)); err != nil {
			return nil, err
		}
	}

	m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("custom metrics initialized")
	return m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := metric.WithAttributes(
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPDurationMs.Record(ctx, durationMs, attrs)
}

func (m *Metrics) RecordBooking(ctx context.Context, outcome string) {
	m.BookingsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordTransition(ctx context.Context, from, to string) {
	m.TransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *Metrics) RecordSlotOperation(ctx context.Context, operation, outcome string) {
	m.SlotOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordNotification(ctx context.Context, sink, outcome string) {
	m.NotificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordNotificationDropped(ctx context.Context, event string) {
	m.NotificationsDroppedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
