package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/MoravianUniversity/cost-sharing/internal/storage"
	"github.com/MoravianUniversity/cost-sharing/internal/storage/storagetest"
)

// TestPostgresStore runs the storage contract against a live database.
// Every table is truncated before each case.
func TestPostgresStore(t *testing.T) {
	dbURL := os.Getenv("COST_SHARING_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("set COST_SHARING_TEST_DATABASE_URL to run this integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	storagetest.Run(t, func(t *testing.T) storage.Store {
		t.Helper()
		_, err := store.pool.Exec(ctx,
			"TRUNCATE expense_participants, expenses, group_members, groups, users RESTART IDENTITY CASCADE")
		if err != nil {
			t.Fatalf("reset database: %v", err)
		}
		return store
	})
}
