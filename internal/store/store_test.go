package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/tripkeep/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	users := NewUserStore(db)
	for _, u := range []string{"alice", "bob"} {
		if err := users.Ensure(u); err != nil {
			t.Fatalf("ensure user %s: %v", u, err)
		}
	}
	return db
}

func ptr[T any](v T) *T { return &v }
