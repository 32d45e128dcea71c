package testutil

import (
	"testing"

	"tt-go/internal/database"
	"tt-go/internal/tt"
)

// NewTestDatabase creates an in-memory SQLite replica with all migrations
// applied, using clock for sync operation timestamps. It is closed when the
// test completes.
func NewTestDatabase(t *testing.T, clock tt.Clock) tt.Database {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
