// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/codr1/Spinergy/internal/db"
	"github.com/codr1/Spinergy/internal/models"
)

// PKT stands in for Asia/Karachi so tests do not depend on the host tz database.
var PKT = time.FixedZone("PKT", 5*60*60)

// NewTestDB returns a migrated SQLite database in a per-test directory. The seeded
// resources and pricing rules are present.
func NewTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "spinergy.db"))
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func MustDate(t *testing.T, raw string) models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date %q: %v", raw, err)
	}
	return d
}

// InsertReservations stores rs directly, bypassing the booking guard.
func InsertReservations(t *testing.T, database *db.DB, rs ...models.Reservation) {
	t.Helper()
	for _, r := range rs {
		if err := database.Insert(context.Background(), r, false); err != nil {
			t.Fatalf("insert reservation %s: %v", r.ID, err)
		}
	}
}
