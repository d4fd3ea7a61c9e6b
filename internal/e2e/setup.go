//go:build integration

package e2e

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/auth"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/config"
	httpserver "github.com/WailSalutem-Health-Care/appointment-service/internal/http"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/notification"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/scheduling"
	"github.com/WailSalutem-Health-Care/appointment-service/internal/testutil"
)

// Now is the wall clock every E2E server runs at: Sunday 2025-01-05 09:00 UTC.
var Now = time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Dispatcher    *notification.Dispatcher
	PrivateKey    *rsa.PrivateKey
}

func testConfig() *config.Config {
	return &config.Config{
		OTELServiceName:            "appointment-service",
		DBTxIsolation:              "read_committed",
		Timezone:                   "UTC",
		CancellationWindow:         24 * time.Hour,
		BookingHorizonDays:         30,
		MaxHorizonDays:             90,
		AvailabilityDisplayDays:    14,
		DefaultSlotDuration:        30,
		DefaultAppointmentDuration: 30,
		AppointmentsPerPage:        10,
	}
}

// SetupE2ETest starts the full router against a real PostgreSQL database.
// Notifications go through a real dispatcher into the inbox table and an
// in-memory publisher.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mockPublisher := testutil.NewMockPublisher()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	cfg := testConfig()
	sinks := notification.SinksFor(cfg, notification.NewInboxRepository(db), mockPublisher)
	dispatcher := notification.NewDispatcher(64, 1, sinks)
	dispatcher.Start()

	router, err := httpserver.SetupRouter(httpserver.Dependencies{
		DB:          db,
		Config:      cfg,
		Verifier:    verifier,
		Permissions: perms,
		Notifier:    dispatcher,
		Clock:       scheduling.FixedClock{T: Now},
	})
	if err != nil {
		t.Fatalf("Failed to set up router: %v", err)
	}

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            db,
		MockPublisher: mockPublisher,
		Dispatcher:    dispatcher,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()

	ts.Server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ts.Dispatcher.Close(ctx); err != nil {
		t.Logf("Dispatcher did not drain: %v", err)
	}

	testutil.CleanupTestDB(t, ts.DB)
	ts.DB.Close()
}

func (ts *TestServer) PatientClient(t *testing.T, userID, patientID int64) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GeneratePatientToken(t, ts.PrivateKey, userID, patientID))
}

func (ts *TestServer) DoctorClient(t *testing.T, userID, doctorID int64) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateDoctorToken(t, ts.PrivateKey, userID, doctorID))
}

func (ts *TestServer) AdminClient(t *testing.T, userID int64) *testutil.HTTPTestClient {
	t.Helper()
	return testutil.NewHTTPTestClient(ts.Server.URL, testutil.GenerateAdminToken(t, ts.PrivateKey, userID))
}
