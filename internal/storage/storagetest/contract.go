package storagetest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// Factory returns an empty store. It should register any cleanup with t.
type Factory func(t *testing.T) storage.Store

// NewSeeded returns a store from factory loaded with the sample dataset.
func NewSeeded(t *testing.T, factory Factory) storage.Store {
	t.Helper()
	store := factory(t)
	if err := Seed(context.Background(), store); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return store
}

// Run exercises the behavior every storage.Store implementation must share.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("CreateUser assigns sequential IDs", func(t *testing.T) {
		store := factory(t)

		first, err := store.CreateUser(ctx, "first@school.edu", "First")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		second, err := store.CreateUser(ctx, "second@school.edu", "Second")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		if first.ID != 1 || second.ID != 2 {
			t.Errorf("expected IDs 1 and 2, got %d and %d", first.ID, second.ID)
		}
		if second.Email != "second@school.edu" || second.Name != "Second" {
			t.Errorf("unexpected user: %+v", second)
		}
	})

	t.Run("CreateUser rejects duplicate email", func(t *testing.T) {
		store := NewSeeded(t, factory)

		_, err := store.CreateUser(ctx, Alice.Email, "Another Alice")
		if !errors.Is(err, storage.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("GetUser by ID and email", func(t *testing.T) {
		store := NewSeeded(t, factory)

		byID, err := store.GetUserByID(ctx, Charlie.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if *byID != Charlie {
			t.Errorf("expected %+v, got %+v", Charlie, *byID)
		}

		byEmail, err := store.GetUserByEmail(ctx, Kate.Email)
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if *byEmail != Kate {
			t.Errorf("expected %+v, got %+v", Kate, *byEmail)
		}

		if _, err := store.GetUserByID(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing ID, got %v", err)
		}
		if _, err := store.GetUserByEmail(ctx, "nobody@school.edu"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound for missing email, got %v", err)
		}
	})

	t.Run("GetGroupByID populates creator and members", func(t *testing.T) {
		store := NewSeeded(t, factory)

		group, err := store.GetGroupByID(ctx, Roommates.ID)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}

		if group.Name != Roommates.Name || group.Description != Roommates.Description {
			t.Errorf("unexpected group fields: %+v", group)
		}
		if group.CreatedBy != Charlie {
			t.Errorf("expected creator %+v, got %+v", Charlie, group.CreatedBy)
		}
		want := []models.User{Alice, Charlie, David}
		if !slices.Equal(group.Members, want) {
			t.Errorf("expected members %+v, got %+v", want, group.Members)
		}

		if _, err := store.GetGroupByID(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetGroupByID keeps maximum length fields", func(t *testing.T) {
		store := NewSeeded(t, factory)

		group, err := store.GetGroupByID(ctx, MaxLength.ID)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if len(group.Name) != 100 || len(group.Description) != 500 {
			t.Errorf("expected lengths 100 and 500, got %d and %d", len(group.Name), len(group.Description))
		}
		if group.Name != MaxLength.Name {
			t.Errorf("name was altered: %q", group.Name)
		}
	})

	t.Run("CreateGroup adds creator as only member", func(t *testing.T) {
		store := NewSeeded(t, factory)

		group, err := store.CreateGroup(ctx, "Book Club", "", George.ID)
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID != 7 {
			t.Errorf("expected ID 7, got %d", group.ID)
		}
		if group.CreatedBy != George {
			t.Errorf("expected creator %+v, got %+v", George, group.CreatedBy)
		}
		if !slices.Equal(group.Members, []models.User{George}) {
			t.Errorf("expected only the creator as member, got %+v", group.Members)
		}
	})

	t.Run("CreateGroup with missing creator", func(t *testing.T) {
		store := NewSeeded(t, factory)

		_, err := store.CreateGroup(ctx, "Ghost Group", "", 999)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := store.GetGroupByID(ctx, 7); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected no group to be persisted, got %v", err)
		}
	})

	t.Run("GetUserGroups orders by group ID", func(t *testing.T) {
		store := NewSeeded(t, factory)

		groups, err := store.GetUserGroups(ctx, Bob.ID)
		if err != nil {
			t.Fatalf("GetUserGroups failed: %v", err)
		}
		if got := groupIDs(groups); !slices.Equal(got, []int64{WeekendTrip.ID, StudyGroup.ID}) {
			t.Errorf("expected groups [1 4], got %v", got)
		}
		if len(groups[1].Members) != 5 {
			t.Errorf("expected 5 members in study group, got %d", len(groups[1].Members))
		}

		none, err := store.GetUserGroups(ctx, George.ID)
		if err != nil {
			t.Fatalf("GetUserGroups failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no groups for George, got %v", groupIDs(none))
		}
	})

	t.Run("AddGroupMember conflicts", func(t *testing.T) {
		store := NewSeeded(t, factory)

		if err := store.AddGroupMember(ctx, WeekendTrip.ID, George.ID); err != nil {
			t.Fatalf("AddGroupMember failed: %v", err)
		}
		group, err := store.GetGroupByID(ctx, WeekendTrip.ID)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if !group.HasMember(George.ID) {
			t.Error("expected George to be a member")
		}

		tests := []struct {
			name    string
			groupID int64
			userID  int64
		}{
			{"existing membership", WeekendTrip.ID, Alice.ID},
			{"missing user", WeekendTrip.ID, 999},
			{"missing group", 999, Alice.ID},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := store.AddGroupMember(ctx, tt.groupID, tt.userID)
				if !errors.Is(err, storage.ErrConflict) {
					t.Errorf("expected ErrConflict, got %v", err)
				}
			})
		}
	})

	t.Run("DeleteGroupMember", func(t *testing.T) {
		store := NewSeeded(t, factory)

		if err := store.DeleteGroupMember(ctx, Roommates.ID, David.ID); err != nil {
			t.Fatalf("DeleteGroupMember failed: %v", err)
		}
		group, err := store.GetGroupByID(ctx, Roommates.ID)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if group.HasMember(David.ID) {
			t.Error("expected David to be removed")
		}

		if err := store.DeleteGroupMember(ctx, Roommates.ID, David.ID); err != nil {
			t.Errorf("expected removing an absent membership to succeed, got %v", err)
		}
	})

	t.Run("DeleteGroup", func(t *testing.T) {
		store := NewSeeded(t, factory)

		if err := store.DeleteGroup(ctx, WeekendTrip.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		if _, err := store.GetGroupByID(ctx, WeekendTrip.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		groups, err := store.GetUserGroups(ctx, Alice.ID)
		if err != nil {
			t.Fatalf("GetUserGroups failed: %v", err)
		}
		if got := groupIDs(groups); !slices.Equal(got, []int64{Roommates.ID}) {
			t.Errorf("expected Alice to keep only group 2, got %v", got)
		}

		if err := store.DeleteGroup(ctx, WeekendTrip.ID); err != nil {
			t.Errorf("expected deleting an absent group to succeed, got %v", err)
		}
	})

	t.Run("DeleteGroup with expenses", func(t *testing.T) {
		store := NewSeeded(t, factory)

		err := store.DeleteGroup(ctx, QuickSplit.ID)
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
		if _, err := store.GetGroupByID(ctx, QuickSplit.ID); err != nil {
			t.Errorf("expected group to survive, got %v", err)
		}
	})

	t.Run("GetExpenseByID populates payer and participants", func(t *testing.T) {
		store := NewSeeded(t, factory)

		expense, err := store.GetExpenseByID(ctx, InternetBill.ID)
		if err != nil {
			t.Fatalf("GetExpenseByID failed: %v", err)
		}
		assertExpense(t, expense, InternetBill)
		if !slices.Equal(expense.Participants, []models.User{Alice, Charlie, David}) {
			t.Errorf("unexpected participants: %+v", expense.Participants)
		}
		if expense.PaidBy != Alice {
			t.Errorf("expected payer %+v, got %+v", Alice, expense.PaidBy)
		}
		if expense.PerPersonAmount != nil {
			t.Errorf("expected stores to leave PerPersonAmount unset, got %v", expense.PerPersonAmount)
		}

		if _, err := store.GetExpenseByID(ctx, 999); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetExpenseByID keeps maximum length description", func(t *testing.T) {
		store := NewSeeded(t, factory)

		expense, err := store.GetExpenseByID(ctx, MaxLengthExpense.ID)
		if err != nil {
			t.Fatalf("GetExpenseByID failed: %v", err)
		}
		if len(expense.Description) != 200 {
			t.Errorf("expected 200 characters, got %d", len(expense.Description))
		}
	})

	t.Run("GetGroupExpenses orders by date then ID", func(t *testing.T) {
		store := NewSeeded(t, factory)

		expenses, err := store.GetGroupExpenses(ctx, Roommates.ID)
		if err != nil {
			t.Fatalf("GetGroupExpenses failed: %v", err)
		}
		if got := expenseIDs(expenses); !slices.Equal(got, []int64{1, 2, 3, 4}) {
			t.Fatalf("expected expenses [1 2 3 4], got %v", got)
		}
		for i, want := range []Expense{GroceryShopping, UtilitiesBill, RestaurantDinner, InternetBill} {
			assertExpense(t, expenses[i], want)
		}

		earlier := models.ExpenseInput{
			Description: "Deposit", Amount: decimal.RequireFromString("500.00"),
			Date: "2025-01-01", ParticipantIDs: []int64{Alice.ID, Charlie.ID},
		}
		sameDay := models.ExpenseInput{
			Description: "Snacks", Amount: decimal.RequireFromString("4.50"),
			Date: "2025-01-15", ParticipantIDs: []int64{Alice.ID},
		}
		if _, err := store.CreateExpense(ctx, Roommates.ID, Alice.ID, earlier); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if _, err := store.CreateExpense(ctx, Roommates.ID, Alice.ID, sameDay); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		expenses, err = store.GetGroupExpenses(ctx, Roommates.ID)
		if err != nil {
			t.Fatalf("GetGroupExpenses failed: %v", err)
		}
		if got := expenseIDs(expenses); !slices.Equal(got, []int64{12, 1, 2, 13, 3, 4}) {
			t.Errorf("expected expenses [12 1 2 13 3 4], got %v", got)
		}

		empty, err := store.GetGroupExpenses(ctx, WeekendTrip.ID)
		if err != nil {
			t.Fatalf("GetGroupExpenses failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected no expenses, got %v", expenseIDs(empty))
		}
	})

	t.Run("CreateExpense is atomic", func(t *testing.T) {
		store := NewSeeded(t, factory)

		tests := []struct {
			name         string
			groupID      int64
			payerID      int64
			participants []int64
		}{
			{"missing participant", QuickSplit.ID, Iris.ID, []int64{Iris.ID, 999}},
			{"duplicate participant", QuickSplit.ID, Iris.ID, []int64{Iris.ID, Iris.ID}},
			{"missing payer", QuickSplit.ID, 999, []int64{Iris.ID}},
			{"missing group", 999, Iris.ID, []int64{Iris.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				input := models.ExpenseInput{
					Description:    "Broken",
					Amount:         decimal.RequireFromString("10.00"),
					Date:           "2025-03-01",
					ParticipantIDs: tt.participants,
				}
				_, err := store.CreateExpense(ctx, tt.groupID, tt.payerID, input)
				if !errors.Is(err, storage.ErrConflict) {
					t.Errorf("expected ErrConflict, got %v", err)
				}
			})
		}

		expenses, err := store.GetGroupExpenses(ctx, QuickSplit.ID)
		if err != nil {
			t.Fatalf("GetGroupExpenses failed: %v", err)
		}
		if got := expenseIDs(expenses); !slices.Equal(got, []int64{QuickExpense.ID}) {
			t.Errorf("expected only the seeded expense, got %v", got)
		}
	})

	t.Run("CreateExpense keeps boundary amounts exactly", func(t *testing.T) {
		store := NewSeeded(t, factory)

		for _, amount := range []decimal.Decimal{decimal.RequireFromString("0.01"), models.MaxAmount} {
			input := models.ExpenseInput{
				Description:    "Boundary",
				Amount:         amount,
				Date:           "2025-03-01",
				ParticipantIDs: []int64{Iris.ID},
			}
			created, err := store.CreateExpense(ctx, QuickSplit.ID, Iris.ID, input)
			if err != nil {
				t.Fatalf("CreateExpense(%s) failed: %v", amount, err)
			}

			got, err := store.GetExpenseByID(ctx, created.ID)
			if err != nil {
				t.Fatalf("GetExpenseByID failed: %v", err)
			}
			if !got.Amount.Equal(amount) {
				t.Errorf("expected amount %s, got %s", amount, got.Amount)
			}
		}
	})

	t.Run("concurrent duplicate writes conflict", func(t *testing.T) {
		store := NewSeeded(t, factory)

		var wg sync.WaitGroup
		memberErrs := make([]error, 2)
		userErrs := make([]error, 2)
		for i := range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				memberErrs[i] = store.AddGroupMember(ctx, WeekendTrip.ID, George.ID)
				_, userErrs[i] = store.CreateUser(ctx, "liam@school.edu", "Liam")
			}()
		}
		wg.Wait()

		assertOneWinner(t, "AddGroupMember", memberErrs, storage.ErrConflict)
		assertOneWinner(t, "CreateUser", userErrs, storage.ErrDuplicateEmail)

		group, err := store.GetGroupByID(ctx, WeekendTrip.ID)
		if err != nil {
			t.Fatalf("GetGroupByID failed: %v", err)
		}
		if got := group.MemberIDs(); !slices.Equal(got, []int64{Alice.ID, Bob.ID, George.ID}) {
			t.Errorf("expected members [1 2 7], got %v", got)
		}
	})

	t.Run("UpdateExpense replaces fields and keeps payer", func(t *testing.T) {
		store := NewSeeded(t, factory)

		input := models.ExpenseInput{
			Description:    "Internet bill (corrected)",
			Amount:         decimal.RequireFromString("90.00"),
			Date:           "2025-01-26",
			ParticipantIDs: []int64{David.ID, Alice.ID},
		}
		updated, err := store.UpdateExpense(ctx, InternetBill.ID, input)
		if err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}

		if updated.Description != input.Description || updated.Date != input.Date {
			t.Errorf("unexpected fields: %+v", updated)
		}
		if !updated.Amount.Equal(input.Amount) {
			t.Errorf("expected amount %s, got %s", input.Amount, updated.Amount)
		}
		if updated.PaidBy != Alice {
			t.Errorf("expected payer to stay %+v, got %+v", Alice, updated.PaidBy)
		}
		if !slices.Equal(updated.Participants, []models.User{Alice, David}) {
			t.Errorf("unexpected participants: %+v", updated.Participants)
		}

		reloaded, err := store.GetExpenseByID(ctx, InternetBill.ID)
		if err != nil {
			t.Fatalf("GetExpenseByID failed: %v", err)
		}
		if !slices.Equal(reloaded.ParticipantIDs(), []int64{Alice.ID, David.ID}) {
			t.Errorf("participants were not persisted: %v", reloaded.ParticipantIDs())
		}

		if _, err := store.UpdateExpense(ctx, 999, input); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateExpense with missing participant leaves expense intact", func(t *testing.T) {
		store := NewSeeded(t, factory)

		input := models.ExpenseInput{
			Description:    "Should not stick",
			Amount:         decimal.RequireFromString("1.00"),
			Date:           "2025-03-01",
			ParticipantIDs: []int64{Iris.ID, 999},
		}
		if _, err := store.UpdateExpense(ctx, QuickExpense.ID, input); !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}

		expense, err := store.GetExpenseByID(ctx, QuickExpense.ID)
		if err != nil {
			t.Fatalf("GetExpenseByID failed: %v", err)
		}
		assertExpense(t, expense, QuickExpense)
	})

	t.Run("DeleteExpense", func(t *testing.T) {
		store := NewSeeded(t, factory)

		if err := store.DeleteExpense(ctx, QuickExpense.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if _, err := store.GetExpenseByID(ctx, QuickExpense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteExpense(ctx, QuickExpense.ID); err != nil {
			t.Errorf("expected deleting an absent expense to succeed, got %v", err)
		}

		if err := store.DeleteGroup(ctx, QuickSplit.ID); err != nil {
			t.Errorf("expected group without expenses to be deletable, got %v", err)
		}
	})
}

func assertExpense(t *testing.T, got *models.Expense, want Expense) {
	t.Helper()

	if got.ID != want.ID || got.GroupID != want.GroupID {
		t.Errorf("expected expense %d in group %d, got %d in group %d", want.ID, want.GroupID, got.ID, got.GroupID)
	}
	if got.Description != want.Description {
		t.Errorf("expected description %q, got %q", want.Description, got.Description)
	}
	if !got.Amount.Equal(decimal.RequireFromString(want.Amount)) {
		t.Errorf("expected amount %s, got %s", want.Amount, got.Amount)
	}
	if got.Date != want.Date {
		t.Errorf("expected date %s, got %s", want.Date, got.Date)
	}
	if got.PaidBy.ID != want.PaidByUserID {
		t.Errorf("expected payer %d, got %d", want.PaidByUserID, got.PaidBy.ID)
	}
	wantParticipants := slices.Clone(want.ParticipantIDs)
	slices.Sort(wantParticipants)
	if !slices.Equal(got.ParticipantIDs(), wantParticipants) {
		t.Errorf("expected participants %v, got %v", wantParticipants, got.ParticipantIDs())
	}
}

func groupIDs(groups []*models.Group) []int64 {
	ids := make([]int64, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}

func expenseIDs(expenses []*models.Expense) []int64 {
	ids := make([]int64, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}
	return ids
}

// assertOneWinner checks that exactly one of two racing writes succeeded
// and the other failed with want.
func assertOneWinner(t *testing.T, op string, errs []error, want error) {
	t.Helper()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, want):
			conflicted++
		default:
			t.Errorf("%s: unexpected error: %v", op, err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Errorf("%s: expected one success and one %v, got %d and %d", op, want, succeeded, conflicted)
	}
}
