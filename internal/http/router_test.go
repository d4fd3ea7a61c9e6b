package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/scheduling"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/testutil"
)

type mockInbox struct {
	UnreadCountFunc func(ctx context.Context, userID int64) (int, error)
}

func (m *mockInbox) Create(ctx context.Context, n *notification.Notification) error {
	return errors.New("not implemented")
}

func (m *mockInbox) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]notification.Notification, error) {
	return nil, errors.New("not implemented")
}

func (m *mockInbox) UnreadCount(ctx context.Context, userID int64) (int, error) {
	if m.UnreadCountFunc != nil {
		return m.UnreadCountFunc(ctx, userID)
	}
	return 0, errors.New("not implemented")
}

func (m *mockInbox) MarkAsRead(ctx context.Context, id, userID int64) error {
	return errors.New("not implemented")
}

func (m *mockInbox) MarkAllAsRead(ctx context.Context, userID int64) (int, error) {
	return 0, errors.New("not implemented")
}

var testPermissions = auth.Permissions{
	"PATIENT": {"appointment:book", "appointment:view", "notification:view"},
	"DOCTOR":  {"slot:manage", "appointment:view", "notification:view"},
}

func newTestRouter(t *testing.T, inbox notification.InboxStore) (http.Handler, func(roles ...string) string) {
	t.Helper()
	verifier, key := testutil.CreateTestVerifier(t)
	routes := Routes{
		Scheduling:    scheduling.NewHandler(nil, 0, 0),
		Notifications: notification.NewHandler(inbox),
		Health:        healthHandler(nil, "appointment-service"),
	}
	r := NewRouter(routes, verifier, testPermissions, nil)
	token := func(roles ...string) string {
		return testutil.GenerateTestJWT(t, key, 42, 7, roles)
	}
	return r, token
}

func TestRouter_Health(t *testing.T) {
	r, _ := newTestRouter(t, &mockInbox{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_Authorization(t *testing.T) {
	inbox := &mockInbox{
		UnreadCountFunc: func(ctx context.Context, userID int64) (int, error) {
			if userID != 42 {
				t.Errorf("Expected user 42, got %d", userID)
			}
			return 3, nil
		},
	}
	r, token := newTestRouter(t, inbox)

	testCases := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
	}{
		{"no token", "GET", "/notifications/unread-count", "", http.StatusUnauthorized},
		{"garbage token", "GET", "/notifications/unread-count", "not-a-jwt", http.StatusUnauthorized},
		{"patient reaches inbox", "GET", "/notifications/unread-count", token("PATIENT"), http.StatusOK},
		{"patient cannot manage slots", "POST", "/doctor/slots", token("PATIENT"), http.StatusForbidden},
		{"doctor cannot book", "POST", "/appointments", token("DOCTOR"), http.StatusForbidden},
		{"directory needs doctor:view", "GET", "/doctors", token("PATIENT"), http.StatusForbidden},
		{"specializations need doctor:view", "GET", "/doctors/specializations", token("DOCTOR"), http.StatusForbidden},
		{"unknown role", "GET", "/appointments", token("NURSE"), http.StatusForbidden},
		{"wrong method", "DELETE", "/appointments", token("PATIENT"), http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_RecoversFromPanic(t *testing.T) {
	inbox := &mockInbox{
		UnreadCountFunc: func(ctx context.Context, userID int64) (int, error) {
			panic("boom")
		},
	}
	r, token := newTestRouter(t, inbox)

	req := httptest.NewRequest("GET", "/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+token("PATIENT"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := CORSMiddleware([]string{"http://localhost:3000"})(next)

	req := httptest.NewRequest("OPTIONS", "/appointments", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected preflight 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin to be echoed, got %q", got)
	}

	req = httptest.NewRequest("GET", "/appointments", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected request to reach next handler, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow-origin for unknown origin, got %q", got)
	}
}
