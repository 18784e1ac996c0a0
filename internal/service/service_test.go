package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
	"github.com/MoravianUniversity/cost-sharing/internal/storage/memory"
	"github.com/MoravianUniversity/cost-sharing/internal/storage/storagetest"
)

var (
	alice   = storagetest.Alice
	bob     = storagetest.Bob
	charlie = storagetest.Charlie
	david   = storagetest.David
	george  = storagetest.George
	helen   = storagetest.Helen

	weekendTrip = storagetest.WeekendTrip.ID
	roommates   = storagetest.Roommates.ID
	studyGroup  = storagetest.StudyGroup.ID
	quickSplit  = storagetest.QuickSplit.ID
)

// setupService returns a service over an in-memory store holding the sample dataset.
func setupService(t *testing.T) (*CostSharing, storage.Store) {
	t.Helper()

	store := memory.New()
	if err := storagetest.Seed(context.Background(), store); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return New(store), store
}

func expenseInput(amount string, date string, participants ...int64) models.ExpenseInput {
	return models.ExpenseInput{
		Description:    "Test expense",
		Amount:         decimal.RequireFromString(amount),
		Date:           date,
		ParticipantIDs: participants,
	}
}

// assertError checks err is a domain error of the given kind and message.
func assertError(t *testing.T, err error, kind Kind, message string) {
	t.Helper()

	var domainErr *Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected %s error %q, got %v", kind, message, err)
	}
	if domainErr.Kind != kind {
		t.Errorf("expected kind %s, got %s", kind, domainErr.Kind)
	}
	if domainErr.Message != message {
		t.Errorf("expected message %q, got %q", message, domainErr.Message)
	}
}

func assertAmount(t *testing.T, got *decimal.Decimal, want string) {
	t.Helper()

	if got == nil {
		t.Fatalf("expected per-person amount %s, got nil", want)
	}
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("expected per-person amount %s, got %s", want, got.StringFixed(2))
	}
}

func TestGetUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	user, err := svc.GetUser(ctx, charlie.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if *user != charlie {
		t.Errorf("expected %+v, got %+v", charlie, *user)
	}

	_, err = svc.GetUser(ctx, 999)
	assertError(t, err, KindNotFound, "User 999 not found")
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected errors.Is to match ErrNotFound")
	}
}

func TestGetOrCreateUser(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	t.Run("existing user keeps original name", func(t *testing.T) {
		user, err := svc.GetOrCreateUser(ctx, alice.Email, "Alice Renamed")
		if err != nil {
			t.Fatalf("GetOrCreateUser failed: %v", err)
		}
		if *user != alice {
			t.Errorf("expected %+v, got %+v", alice, *user)
		}
	})

	t.Run("new user is created once", func(t *testing.T) {
		first, err := svc.GetOrCreateUser(ctx, "liam@school.edu", "Liam")
		if err != nil {
			t.Fatalf("GetOrCreateUser failed: %v", err)
		}
		if first.ID != 12 {
			t.Errorf("expected new user ID 12, got %d", first.ID)
		}

		second, err := svc.GetOrCreateUser(ctx, "liam@school.edu", "Someone Else")
		if err != nil {
			t.Fatalf("GetOrCreateUser failed: %v", err)
		}
		if *second != *first {
			t.Errorf("expected %+v on repeat call, got %+v", *first, *second)
		}
	})
}

func TestGetUserGroups(t *testing.T) {
	svc, _ := setupService(t)

	groups, err := svc.GetUserGroups(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("GetUserGroups failed: %v", err)
	}
	var ids []int64
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	if !slices.Equal(ids, []int64{weekendTrip, roommates}) {
		t.Errorf("expected groups [1 2], got %v", ids)
	}
}

func TestCreateGroup(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.CreateGroup(ctx, george.ID, "Book Club", "Monthly reads")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if group.CreatedBy != george || !slices.Equal(group.MemberIDs(), []int64{george.ID}) {
		t.Errorf("expected George as creator and only member, got %+v", group)
	}

	_, err = svc.CreateGroup(ctx, 999, "Ghosts", "")
	assertError(t, err, KindNotFound, "User 999 not found")
}

func TestGetGroup(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	group, err := svc.GetGroup(ctx, roommates, alice.ID)
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if group.CreatedBy != charlie {
		t.Errorf("expected creator Charlie, got %+v", group.CreatedBy)
	}

	_, err = svc.GetGroup(ctx, roommates, george.ID)
	assertError(t, err, KindForbidden, "You are not a member of this group")

	_, err = svc.GetGroup(ctx, 999, alice.ID)
	assertError(t, err, KindNotFound, "Group 999 not found")
}

func TestAddGroupMember(t *testing.T) {
	ctx := context.Background()

	t.Run("existing member conflicts", func(t *testing.T) {
		svc, _ := setupService(t)

		_, err := svc.AddGroupMember(ctx, weekendTrip, alice.ID, alice.Email, "Alice")
		assertError(t, err, KindConflict, "User is already a member of this group")
	})

	t.Run("existing user is added", func(t *testing.T) {
		svc, _ := setupService(t)

		member, err := svc.AddGroupMember(ctx, weekendTrip, bob.ID, george.Email, "Whatever")
		if err != nil {
			t.Fatalf("AddGroupMember failed: %v", err)
		}
		if *member != george {
			t.Errorf("expected %+v, got %+v", george, *member)
		}

		group, err := svc.GetGroup(ctx, weekendTrip, george.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if !slices.Equal(group.MemberIDs(), []int64{alice.ID, bob.ID, george.ID}) {
			t.Errorf("unexpected members: %v", group.MemberIDs())
		}
	})

	t.Run("unknown email creates user", func(t *testing.T) {
		svc, store := setupService(t)

		member, err := svc.AddGroupMember(ctx, weekendTrip, alice.ID, "mia@school.edu", "Mia")
		if err != nil {
			t.Fatalf("AddGroupMember failed: %v", err)
		}
		if member.ID != 12 || member.Name != "Mia" {
			t.Errorf("unexpected member: %+v", member)
		}
		if _, err := store.GetUserByEmail(ctx, "mia@school.edu"); err != nil {
			t.Errorf("expected user to be stored, got %v", err)
		}
	})

	t.Run("caller must be a member", func(t *testing.T) {
		svc, _ := setupService(t)

		_, err := svc.AddGroupMember(ctx, weekendTrip, george.ID, "mia@school.edu", "Mia")
		assertError(t, err, KindForbidden, "You are not a member of this group")
	})

	t.Run("missing group", func(t *testing.T) {
		svc, _ := setupService(t)

		_, err := svc.AddGroupMember(ctx, 999, alice.ID, "mia@school.edu", "Mia")
		assertError(t, err, KindNotFound, "Group 999 not found")
	})
}

func TestRemoveGroupMember(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		groupID  int64
		targetID int64
		callerID int64
		kind     Kind
		message  string
	}{
		{"creator removing themself", weekendTrip, alice.ID, alice.ID, KindConflict, "Creator cannot remove themself"},
		{"non-creator removing another member", roommates, david.ID, alice.ID, KindConflict, "Only group creator can remove others"},
		{"target not a member", roommates, george.ID, alice.ID, KindNotFound, "User 7 not found in this group"},
		{"creator removing involved member", roommates, alice.ID, charlie.ID, KindConflict, "Cannot remove member who is involved in expenses"},
		{"involved member removing themself", roommates, david.ID, david.ID, KindConflict, "Cannot remove member who is involved in expenses"},
		{"caller not a member", roommates, alice.ID, george.ID, KindForbidden, "You are not a member of this group"},
		{"missing group", 999, alice.ID, alice.ID, KindNotFound, "Group 999 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := setupService(t)

			before := memberIDs(t, store, tt.groupID)

			err := svc.RemoveGroupMember(ctx, tt.groupID, tt.targetID, tt.callerID)
			assertError(t, err, tt.kind, tt.message)

			if after := memberIDs(t, store, tt.groupID); !slices.Equal(before, after) {
				t.Errorf("failed removal changed members from %v to %v", before, after)
			}
		})
	}

	t.Run("member removes themself", func(t *testing.T) {
		svc, store := setupService(t)

		if err := svc.RemoveGroupMember(ctx, weekendTrip, bob.ID, bob.ID); err != nil {
			t.Fatalf("RemoveGroupMember failed: %v", err)
		}
		group, err := store.GetGroupByID(ctx, weekendTrip)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if group.HasMember(bob.ID) {
			t.Error("expected Bob to be removed")
		}
	})

	t.Run("creator removes uninvolved member", func(t *testing.T) {
		svc, store := setupService(t)

		if _, err := svc.AddGroupMember(ctx, roommates, charlie.ID, george.Email, george.Name); err != nil {
			t.Fatalf("AddGroupMember failed: %v", err)
		}
		if err := svc.RemoveGroupMember(ctx, roommates, george.ID, charlie.ID); err != nil {
			t.Fatalf("RemoveGroupMember failed: %v", err)
		}
		group, err := store.GetGroupByID(ctx, roommates)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if group.HasMember(george.ID) {
			t.Error("expected George to be removed")
		}
		if !group.HasMember(group.CreatedBy.ID) {
			t.Error("creator must remain a member")
		}
	})
}

func memberIDs(t *testing.T, store storage.Store, groupID int64) []int64 {
	t.Helper()

	group, err := store.GetGroupByID(context.Background(), groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		t.Fatalf("GetGroupByID failed: %v", err)
	}
	return group.MemberIDs()
}

func TestGetGroupExpenses(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	expenses, err := svc.GetGroupExpenses(ctx, studyGroup, helen.ID)
	if err != nil {
		t.Fatalf("GetGroupExpenses failed: %v", err)
	}

	want := []struct {
		id     int64
		amount string
	}{
		{storagetest.Textbooks.ID, "50.00"},
		{storagetest.CoffeeSnacks.ID, "11.83"},
		{storagetest.PrintingCosts.ID, "6.38"},
		{storagetest.GroupDinner.ID, "25.07"},
	}
	if len(expenses) != len(want) {
		t.Fatalf("expected %d expenses, got %d", len(want), len(expenses))
	}
	for i, w := range want {
		if expenses[i].ID != w.id {
			t.Errorf("expense %d: expected ID %d, got %d", i, w.id, expenses[i].ID)
		}
		assertAmount(t, expenses[i].PerPersonAmount, w.amount)
	}

	_, err = svc.GetGroupExpenses(ctx, studyGroup, alice.ID)
	assertError(t, err, KindForbidden, "You are not a member of this group")
}

func TestCreateExpenseScenarios(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		groupID      int64
		payerID      int64
		amount       string
		participants []int64
		want         string
	}{
		{"single participant", weekendTrip, alice.ID, "50.00", []int64{alice.ID}, "50.00"},
		{"three way split", roommates, charlie.ID, "100.00", []int64{charlie.ID, alice.ID, david.ID}, "33.33"},
		{"half cent rounds up", roommates, alice.ID, "67.89", []int64{alice.ID, david.ID}, "33.95"},
		{"one cent", weekendTrip, bob.ID, "0.01", []int64{alice.ID, bob.ID}, "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupService(t)

			expense, err := svc.CreateExpense(ctx, tt.groupID, tt.payerID, expenseInput(tt.amount, "2025-03-01", tt.participants...))
			if err != nil {
				t.Fatalf("CreateExpense failed: %v", err)
			}
			assertAmount(t, expense.PerPersonAmount, tt.want)
			if expense.PaidBy.ID != tt.payerID {
				t.Errorf("expected payer %d, got %d", tt.payerID, expense.PaidBy.ID)
			}
			if !expense.HasParticipant(expense.PaidBy.ID) {
				t.Error("payer must be a participant")
			}
		})
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name         string
		payerID      int64
		participants []int64
		kind         Kind
		message      string
	}{
		{"empty participants", alice.ID, nil, KindValidation, "splitBetween must contain at least one user ID"},
		{"payer missing", alice.ID, []int64{bob.ID}, KindValidation, "splitBetween must include the authenticated user's ID"},
		{"payer missing takes precedence over non-member", alice.ID, []int64{george.ID}, KindValidation, "splitBetween must include the authenticated user's ID"},
		{"non-member participant", alice.ID, []int64{alice.ID, george.ID}, KindValidation, "All users in splitBetween must be members of the group"},
		{"unknown participant", alice.ID, []int64{alice.ID, 999}, KindValidation, "All users in splitBetween must be members of the group"},
		{"payer not a member", george.ID, []int64{george.ID}, KindForbidden, "You are not a member of this group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := setupService(t)

			_, err := svc.CreateExpense(ctx, weekendTrip, tt.payerID, expenseInput("10.00", "2025-03-01", tt.participants...))
			assertError(t, err, tt.kind, tt.message)

			expenses, err := store.GetGroupExpenses(ctx, weekendTrip)
			if err != nil {
				t.Fatalf("GetGroupExpenses failed: %v", err)
			}
			if len(expenses) != 0 {
				t.Errorf("expected nothing to be stored, got %d expenses", len(expenses))
			}
		})
	}
}

func TestCreateExpenseCollapsesDuplicateParticipants(t *testing.T) {
	svc, _ := setupService(t)

	expense, err := svc.CreateExpense(context.Background(), weekendTrip, alice.ID,
		expenseInput("30.00", "2025-03-01", bob.ID, alice.ID, bob.ID))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if !slices.Equal(expense.ParticipantIDs(), []int64{alice.ID, bob.ID}) {
		t.Errorf("expected participants [1 2], got %v", expense.ParticipantIDs())
	}
	assertAmount(t, expense.PerPersonAmount, "15.00")
}

func TestGetExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		svc, _ := setupService(t)

		input := expenseInput("67.89", "2025-03-01", alice.ID, david.ID)
		input.Description = "Concert tickets"
		created, err := svc.CreateExpense(ctx, roommates, alice.ID, input)
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		got, err := svc.GetExpense(ctx, created.ID, roommates, alice.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.Description != created.Description || got.Date != created.Date || got.PaidBy != created.PaidBy {
			t.Errorf("expected %+v, got %+v", created, got)
		}
		if !got.Amount.Equal(created.Amount) {
			t.Errorf("expected amount %s, got %s", created.Amount, got.Amount)
		}
		if !slices.Equal(got.Participants, created.Participants) {
			t.Errorf("expected participants %+v, got %+v", created.Participants, got.Participants)
		}
		assertAmount(t, got.PerPersonAmount, created.PerPersonAmount.String())
	})

	t.Run("expense from another group", func(t *testing.T) {
		svc, _ := setupService(t)

		created, err := svc.CreateExpense(ctx, roommates, alice.ID, expenseInput("10.00", "2025-03-01", alice.ID))
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		_, err = svc.GetExpense(ctx, created.ID, weekendTrip, alice.ID)
		assertError(t, err, KindNotFound, "Expense 12 not found")
	})

	t.Run("missing expense", func(t *testing.T) {
		svc, _ := setupService(t)

		_, err := svc.GetExpense(ctx, 999, roommates, alice.ID)
		assertError(t, err, KindNotFound, "Expense 999 not found")
	})

	t.Run("non-member", func(t *testing.T) {
		svc, _ := setupService(t)

		_, err := svc.GetExpense(ctx, storagetest.GroceryShopping.ID, roommates, george.ID)
		assertError(t, err, KindForbidden, "You are not a member of this group")
	})
}

func TestUpdateExpense(t *testing.T) {
	ctx := context.Background()
	internetBill := storagetest.InternetBill.ID

	t.Run("payer updates", func(t *testing.T) {
		svc, _ := setupService(t)

		input := expenseInput("90.00", "2025-01-26", alice.ID, david.ID)
		input.Description = "Internet bill (corrected)"
		updated, err := svc.UpdateExpense(ctx, internetBill, roommates, alice.ID, input)
		if err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		if updated.Description != input.Description || updated.Date != "2025-01-26" {
			t.Errorf("fields not updated: %+v", updated)
		}
		if updated.PaidBy != alice {
			t.Errorf("payer must not change, got %+v", updated.PaidBy)
		}
		assertAmount(t, updated.PerPersonAmount, "45.00")
	})

	tests := []struct {
		name      string
		expenseID int64
		groupID   int64
		userID    int64
		input     models.ExpenseInput
		kind      Kind
		message   string
	}{
		{"non-payer member", internetBill, roommates, charlie.ID, expenseInput("1.00", "2025-01-26", charlie.ID), KindForbidden, "Only the payer can modify this expense"},
		{"non-member", internetBill, roommates, george.ID, expenseInput("1.00", "2025-01-26", george.ID), KindForbidden, "You are not a member of this group"},
		{"wrong group", internetBill, weekendTrip, alice.ID, expenseInput("1.00", "2025-01-26", alice.ID), KindNotFound, "Expense 4 not found"},
		{"missing expense", 999, roommates, alice.ID, expenseInput("1.00", "2025-01-26", alice.ID), KindNotFound, "Expense 999 not found"},
		{"payer dropped from participants", internetBill, roommates, alice.ID, expenseInput("1.00", "2025-01-26", charlie.ID), KindValidation, "splitBetween must include the authenticated user's ID"},
		{"non-member participant", internetBill, roommates, alice.ID, expenseInput("1.00", "2025-01-26", alice.ID, bob.ID), KindValidation, "All users in splitBetween must be members of the group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := setupService(t)

			_, err := svc.UpdateExpense(ctx, tt.expenseID, tt.groupID, tt.userID, tt.input)
			assertError(t, err, tt.kind, tt.message)

			expense, err := store.GetExpenseByID(ctx, internetBill)
			if err != nil {
				t.Fatalf("GetExpenseByID failed: %v", err)
			}
			if !expense.Amount.Equal(decimal.RequireFromString("100.00")) {
				t.Errorf("expense changed after failed update: %+v", expense)
			}
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	ctx := context.Background()
	grocery := storagetest.GroceryShopping.ID

	t.Run("non-payer", func(t *testing.T) {
		svc, _ := setupService(t)

		err := svc.DeleteExpense(ctx, grocery, roommates, alice.ID)
		assertError(t, err, KindForbidden, "Only the payer can delete this expense")
	})

	t.Run("wrong group", func(t *testing.T) {
		svc, _ := setupService(t)

		err := svc.DeleteExpense(ctx, grocery, weekendTrip, alice.ID)
		assertError(t, err, KindNotFound, "Expense 1 not found")
	})

	t.Run("payer deletes", func(t *testing.T) {
		svc, _ := setupService(t)

		if err := svc.DeleteExpense(ctx, grocery, roommates, charlie.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		_, err := svc.GetExpense(ctx, grocery, roommates, charlie.ID)
		assertError(t, err, KindNotFound, "Expense 1 not found")

		err = svc.DeleteExpense(ctx, grocery, roommates, charlie.ID)
		assertError(t, err, KindNotFound, "Expense 1 not found")
	})
}

func TestDeleteGroup(t *testing.T) {
	ctx := context.Background()

	t.Run("group with expenses", func(t *testing.T) {
		svc, _ := setupService(t)

		err := svc.DeleteGroup(ctx, quickSplit, storagetest.Iris.ID)
		assertError(t, err, KindConflict, "Cannot delete group with expenses")
	})

	t.Run("non-member", func(t *testing.T) {
		svc, _ := setupService(t)

		err := svc.DeleteGroup(ctx, weekendTrip, george.ID)
		assertError(t, err, KindForbidden, "You are not a member of this group")
	})

	t.Run("empty group", func(t *testing.T) {
		svc, _ := setupService(t)

		if err := svc.DeleteGroup(ctx, weekendTrip, bob.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		_, err := svc.GetGroup(ctx, weekendTrip, alice.ID)
		assertError(t, err, KindNotFound, "Group 1 not found")
	})

	t.Run("after its last expense is deleted", func(t *testing.T) {
		svc, _ := setupService(t)

		iris := storagetest.Iris.ID
		if err := svc.DeleteExpense(ctx, storagetest.QuickExpense.ID, quickSplit, iris); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if err := svc.DeleteGroup(ctx, quickSplit, iris); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
	})
}

// failingStore fails every group lookup.
type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) GetGroupByID(context.Context, int64) (*models.Group, error) {
	return nil, f.err
}

func TestStorageFailuresPropagate(t *testing.T) {
	boom := errors.New("disk on fire")
	svc := New(failingStore{Store: memory.New(), err: boom})

	_, err := svc.GetGroup(context.Background(), weekendTrip, alice.ID)
	if !errors.Is(err, boom) {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if _, ok := KindOf(err); ok {
		t.Errorf("storage failure must not be a domain error: %v", err)
	}
}
