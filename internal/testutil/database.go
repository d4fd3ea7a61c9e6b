package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync/atomic"
	"testing"

	"github.com/WailSalutem-Health-Care/appointment-service/internal/db"
	_ "github.com/lib/pq"
)

// DefaultTestDSN points at the local appointments_test database.
const DefaultTestDSN = "host=localhost port=5432 user=postgres password=postgres dbname=appointments_test sslmode=disable"

// SetupTestDB connects to TEST_DATABASE_URL (or DefaultTestDSN) and applies
// every pending migration.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		connStr = DefaultTestDSN
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := conn.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if _, err := db.NewMigrator(conn).Up(context.Background()); err != nil {
		conn.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

// CleanupTestDB empties every application table. Run it deferred, before
// closing the connection.
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	_, err := conn.Exec("TRUNCATE TABLE notifications, appointments, time_slots, patients, doctors, users RESTART IDENTITY CASCADE")
	if err != nil {
		t.Logf("Warning: Failed to clean up test data: %v", err)
	}
}

var emailSeq atomic.Int64

func createUser(t *testing.T, conn *sql.DB, role, email string) int64 {
	t.Helper()

	if email == "" {
		email = fmt.Sprintf("%s-%d@test.example", role, emailSeq.Add(1))
	}
	var id int64
	err := conn.QueryRow(`INSERT INTO users (email, role) VALUES ($1, $2) RETURNING id`, email, role).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create %s user: %v", role, err)
	}
	return id
}

// CreateTestDoctor inserts a user and doctor row and returns (userID, doctorID).
func CreateTestDoctor(t *testing.T, conn *sql.DB, name string, verified bool) (int64, int64) {
	t.Helper()

	userID := createUser(t, conn, "doctor", "")
	var doctorID int64
	err := conn.QueryRow(`
		INSERT INTO doctors (user_id, full_name, specialization, is_verified)
		VALUES ($1, $2, 'General Practice', $3)
		RETURNING id
	`, userID, name, verified).Scan(&doctorID)
	if err != nil {
		t.Fatalf("Failed to create test doctor: %v", err)
	}
	return userID, doctorID
}

// CreateTestPatient inserts a user and patient row and returns (userID, patientID).
func CreateTestPatient(t *testing.T, conn *sql.DB, name string) (int64, int64) {
	t.Helper()

	userID := createUser(t, conn, "patient", "")
	var patientID int64
	err := conn.QueryRow(`INSERT INTO patients (user_id, full_name) VALUES ($1, $2) RETURNING id`, userID, name).Scan(&patientID)
	if err != nil {
		t.Fatalf("Failed to create test patient: %v", err)
	}
	return userID, patientID
}

// CreateTestAdmin inserts an admin user and returns its id.
func CreateTestAdmin(t *testing.T, conn *sql.DB) int64 {
	t.Helper()
	return createUser(t, conn, "admin", "")
}
