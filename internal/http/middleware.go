package http

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestMetrics is implemented by telemetry.Metrics.
type RequestMetrics interface {
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// routeTemplate is the mux path template, so ids do not explode metric
// cardinality.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// requestLogger logs one line per request and records request metrics.
func requestLogger(metrics RequestMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := routeTemplate(r)

			var ev *zerolog.Event
			switch {
			case rec.status >= 500:
				ev = log.Error()
			case rec.status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("method", r.Method).
				Str("route", route).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", elapsed).
				Msg("request handled")

			if metrics != nil {
				metrics.RecordHTTPRequest(r.Context(), r.Method, route, rec.status, float64(elapsed.Microseconds())/1000)
			}
		})
	}
}

// recoverer turns a handler panic into a 500 response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				log.Error().
					Interface("panic", v).
					Bytes("stack", debug.Stack()).
					Str("path", r.URL.Path).
					Msg("handler panicked")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "internal_error", "message": "Internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
