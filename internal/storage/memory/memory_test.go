package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
	"github.com/MoravianUniversity/cost-sharing/internal/storage/storagetest"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	store := New()
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, newStore)
}

func TestReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewSeeded(t, newStore)

	group, err := store.GetGroupByID(ctx, storagetest.Roommates.ID)
	if err != nil {
		t.Fatalf("GetGroupByID failed: %v", err)
	}
	group.Members[0].Name = "Mallory"
	group.Members = group.Members[:1]

	reloaded, err := store.GetGroupByID(ctx, storagetest.Roommates.ID)
	if err != nil {
		t.Fatalf("GetGroupByID failed: %v", err)
	}
	if len(reloaded.Members) != 3 || reloaded.Members[0].Name != "Alice" {
		t.Errorf("mutating a returned group changed the store: %+v", reloaded.Members)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	original := storagetest.NewSeeded(t, newStore).(*MemoryStore)

	data, err := json.Marshal(original.Snapshot())
	if err != nil {
		t.Fatalf("failed to encode snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}

	restored, err := Restore(snap)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	group, err := restored.GetGroupByID(ctx, storagetest.StudyGroup.ID)
	if err != nil {
		t.Fatalf("GetGroupByID failed: %v", err)
	}
	if len(group.Members) != 5 || group.CreatedBy != storagetest.Helen {
		t.Errorf("unexpected restored group: %+v", group)
	}

	expense, err := restored.GetExpenseByID(ctx, storagetest.GroupDinner.ID)
	if err != nil {
		t.Fatalf("GetExpenseByID failed: %v", err)
	}
	if !expense.Amount.Equal(decimal.RequireFromString("125.33")) {
		t.Errorf("expected amount 125.33, got %s", expense.Amount)
	}

	t.Run("counters resume after highest ID", func(t *testing.T) {
		user, err := restored.CreateUser(ctx, "zoe@school.edu", "Zoe")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.ID != 12 {
			t.Errorf("expected user ID 12, got %d", user.ID)
		}

		created, err := restored.CreateExpense(ctx, storagetest.QuickSplit.ID, storagetest.Iris.ID, models.ExpenseInput{
			Description:    "Bus fare",
			Amount:         decimal.RequireFromString("3.00"),
			Date:           "2025-03-01",
			ParticipantIDs: []int64{storagetest.Iris.ID},
		})
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if created.ID != 12 {
			t.Errorf("expected expense ID 12, got %d", created.ID)
		}
	})
}

func TestRestoreRejectsInvalidSnapshots(t *testing.T) {
	alice := storagetest.Alice

	tests := []struct {
		name string
		snap Snapshot
	}{
		{
			name: "duplicate email",
			snap: Snapshot{Users: []models.User{alice, {ID: 2, Email: alice.Email, Name: "Copy"}}},
		},
		{
			name: "missing creator",
			snap: Snapshot{Groups: []SnapshotGroup{{ID: 1, Name: "Orphan", CreatorID: 1}}},
		},
		{
			name: "missing member",
			snap: Snapshot{
				Users:  []models.User{alice},
				Groups: []SnapshotGroup{{ID: 1, Name: "Trip", CreatorID: 1, MemberIDs: []int64{1, 5}}},
			},
		},
		{
			name: "missing participant",
			snap: Snapshot{
				Users:  []models.User{alice},
				Groups: []SnapshotGroup{{ID: 1, Name: "Trip", CreatorID: 1}},
				Expenses: []SnapshotExpense{{
					ID: 1, GroupID: 1, Description: "Gas", Amount: decimal.NewFromInt(20),
					Date: "2025-01-01", PaidByUserID: 1, ParticipantIDs: []int64{1, 7},
				}},
			},
		},
		{
			name: "duplicate user ID",
			snap: Snapshot{Users: []models.User{alice, {ID: alice.ID, Email: "other@school.edu", Name: "Other"}}},
		},
		{
			name: "duplicate group ID",
			snap: Snapshot{
				Users: []models.User{alice},
				Groups: []SnapshotGroup{
					{ID: 1, Name: "Trip", CreatorID: 1},
					{ID: 1, Name: "Other trip", CreatorID: 1},
				},
			},
		},
		{
			name: "duplicate expense ID",
			snap: Snapshot{
				Users:  []models.User{alice},
				Groups: []SnapshotGroup{{ID: 1, Name: "Trip", CreatorID: 1}},
				Expenses: []SnapshotExpense{
					{ID: 1, GroupID: 1, Description: "Gas", Amount: decimal.NewFromInt(20), Date: "2025-01-01", PaidByUserID: 1, ParticipantIDs: []int64{1}},
					{ID: 1, GroupID: 1, Description: "Tolls", Amount: decimal.NewFromInt(5), Date: "2025-01-02", PaidByUserID: 1, ParticipantIDs: []int64{1}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Restore(tt.snap); err == nil {
				t.Error("expected Restore to fail")
			}
		})
	}

	t.Run("participant error wraps ErrConflict", func(t *testing.T) {
		_, err := Restore(tests[3].snap)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})
}
