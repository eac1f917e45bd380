package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/health-wallet/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// Using ":memory:" creates a fresh database that exists only during the test.
// Fast (no disk I/O), isolated (each test gets its own database), and clean
// (destroyed when the connection closes).
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser inserts a user and fails the test on error.
func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{Username: username, PasswordHash: "$2a$04$fakehashforrepositorytests"}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user %q: %v", username, err)
	}
	return user
}

// createTestReport inserts a report owned by ownerID.
func createTestReport(t *testing.T, db *DB, ownerID, reportType, date string) *model.Report {
	t.Helper()
	report := &model.Report{
		Filename: "stored-name.pdf",
		Type:     reportType,
		Date:     date,
		OwnerID:  ownerID,
	}
	if err := db.Reports().Create(context.Background(), report); err != nil {
		t.Fatalf("failed to create test report: %v", err)
	}
	return report
}

// createTestShare grants viewer read access to the report.
func createTestShare(t *testing.T, db *DB, report *model.Report, viewerUsername string) *model.Share {
	t.Helper()
	share := &model.Share{
		ReportID:       report.ID,
		OwnerID:        report.OwnerID,
		ViewerUsername: viewerUsername,
	}
	if err := db.Shares().Create(context.Background(), share); err != nil {
		t.Fatalf("failed to create test share: %v", err)
	}
	return share
}
