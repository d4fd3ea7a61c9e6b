package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/appointment-service/auth")

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func deny(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errType, Message: message})
}

// Middleware validates token, injects Principal into request context.
func Middleware(ver *Verifier) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil)
}

// MiddlewareWithMetrics validates token with metrics recording
func MiddlewareWithMetrics(ver *Verifier, metrics MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			fail := func(reason, message string) {
				span.SetStatus(codes.Error, message)
				span.SetAttributes(attribute.String("error.type", reason))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				deny(w, http.StatusUnauthorized, "unauthorized", message)
			}

			authz := r.Header.Get("Authorization")
			if authz == "" {
				fail("missing_authorization", "missing authorization")
				return
			}

			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				fail("invalid_header_format", "invalid authorization header")
				return
			}

			pr, err := ver.ParseAndVerifyToken(parts[1])
			if err != nil {
				log.Warn().Err(err).Str("path", r.URL.Path).Msg("token validation failed")
				fail("invalid_token", "invalid token")
				return
			}

			span.SetAttributes(
				attribute.String("user.subject", pr.Subject),
				attribute.Int64("user.id", pr.AppUserID),
				attribute.Int64("user.profile_id", pr.ProfileID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			span.SetStatus(codes.Ok, "authentication successful")

			ctx = context.WithValue(ctx, principalKey, pr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PermissionMetricsRecorder interface for recording permission check metrics
type PermissionMetricsRecorder interface {
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

// RequirePermission returns middleware that ensures the principal has permission.
func RequirePermission(per string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(per, perms, nil)
}

// RequirePermissionWithMetrics returns middleware with metrics recording
func RequirePermissionWithMetrics(per string, perms Permissions, metrics PermissionMetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", per)),
			)
			defer span.End()

			pr, ok := FromContext(ctx)
			if !ok {
				span.SetStatus(codes.Error, "unauthenticated")
				if metrics != nil {
					metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Milliseconds()), false)
				}
				deny(w, http.StatusUnauthorized, "unauthorized", "unauthenticated")
				return
			}

			allowed := HasPermission(pr, per, perms)
			span.SetAttributes(
				attribute.Bool("permission.allowed", allowed),
				attribute.Int64("user.id", pr.AppUserID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			if metrics != nil {
				metrics.RecordPermissionCheck(ctx, per, float64(time.Since(start).Milliseconds()), allowed)
			}

			if !allowed {
				log.Warn().
					Int64("user_id", pr.AppUserID).
					Strs("roles", pr.Roles).
					Str("permission", per).
					Msg("permission denied")
				span.SetStatus(codes.Error, "forbidden")
				deny(w, http.StatusForbidden, "forbidden", "missing permission "+per)
				return
			}

			span.SetStatus(codes.Ok, "permission granted")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts Principal from context.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

// HasPermission checks roles -> permissions mapping.
// Role lookup is case-insensitive so realm roles (e.g. "doctor") match permissions.yml (e.g. "DOCTOR").
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	for _, role := range pr.Roles {
		pList, ok := perms[role]
		if !ok {
			pList, ok = perms[strings.ToUpper(role)]
		}
		if !ok {
			continue
		}
		for _, p := range pList {
			if p == permission {
				return true
			}
		}
	}
	return false
}
