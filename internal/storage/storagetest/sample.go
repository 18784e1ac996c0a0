// Package storagetest provides the sample dataset and a contract test suite
// shared by every storage.Store implementation.
package storagetest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// Sample users, in creation order. IDs assume an empty store.
var (
	Alice   = models.User{ID: 1, Email: "alice@school.edu", Name: "Alice"}
	Bob     = models.User{ID: 2, Email: "bob@school.edu", Name: "Bob"}
	Charlie = models.User{ID: 3, Email: "charlie@school.edu", Name: "Charlie"}
	David   = models.User{ID: 4, Email: "david@school.edu", Name: "David"}
	Eve     = models.User{ID: 5, Email: "eve@school.edu", Name: "Eve"}
	Frank   = models.User{ID: 6, Email: "frank@school.edu", Name: "Frank"}
	George  = models.User{ID: 7, Email: "george@school.edu", Name: "George"}
	Helen   = models.User{ID: 8, Email: "helen@school.edu", Name: "Helen"}
	Iris    = models.User{ID: 9, Email: "iris@school.edu", Name: "Iris"}
	Jack    = models.User{ID: 10, Email: "jack@school.edu", Name: "Jack"}
	Kate    = models.User{ID: 11, Email: "kate@school.edu", Name: "Kate"}
)

// Users lists every sample user in ID order. George belongs to no group.
var Users = []models.User{Alice, Bob, Charlie, David, Eve, Frank, George, Helen, Iris, Jack, Kate}

// Group is a sample group. MemberIDs lists the creator first, then the
// other members in the order they joined.
type Group struct {
	ID          int64
	Name        string
	Description string
	MemberIDs   []int64
}

// CreatorID returns the ID of the group's creator.
func (g Group) CreatorID() int64 {
	return g.MemberIDs[0]
}

// Sample groups.
var (
	WeekendTrip = Group{ID: 1, Name: "Weekend Trip Planning", Description: "Planning expenses for upcoming weekend getaway", MemberIDs: []int64{1, 2}}
	Roommates   = Group{ID: 2, Name: "Roommates Spring 2025", Description: "Shared expenses for apartment 4B", MemberIDs: []int64{3, 1, 4}}
	ProjectTeam = Group{ID: 3, Name: "Project Team Expenses", Description: "Team project collaboration costs", MemberIDs: []int64{5, 6}}
	StudyGroup  = Group{ID: 4, Name: "Study Group Fall 2025", Description: "Shared costs for study materials and snacks for our weekly study sessions", MemberIDs: []int64{8, 9, 10, 11, 2}}
	QuickSplit  = Group{ID: 5, Name: "Quick Split", Description: "", MemberIDs: []int64{9, 8}}
	MaxLength   = Group{
		ID:   6,
		Name: "This is a group name that is exactly one hundred characters long to test maximum length validation  ",
		Description: "This is a group description that is exactly five hundred characters long to test the maximum " +
			"length validation rule for group descriptions. It contains multiple sentences and demonstrates how the " +
			"system handles descriptions at the upper limit of the allowed length. The description field can store " +
			"up to 500 characters, and this example uses every single one of those characters to ensure proper " +
			"validation and display handling. This is useful for testing edge cases in the user interface and API val",
		MemberIDs: []int64{10, 11},
	}
)

// Groups lists every sample group in ID order.
var Groups = []Group{WeekendTrip, Roommates, ProjectTeam, StudyGroup, QuickSplit, MaxLength}

// Expense is a sample expense.
type Expense struct {
	ID             int64
	GroupID        int64
	Description    string
	Amount         string
	Date           string
	PaidByUserID   int64
	ParticipantIDs []int64
}

// Input converts the sample into the fields a store accepts.
func (e Expense) Input() models.ExpenseInput {
	return models.ExpenseInput{
		Description:    e.Description,
		Amount:         decimal.RequireFromString(e.Amount),
		Date:           e.Date,
		ParticipantIDs: e.ParticipantIDs,
	}
}

// Sample expenses.
var (
	GroceryShopping  = Expense{ID: 1, GroupID: 2, Description: "Grocery shopping", Amount: "86.40", Date: "2025-01-10", PaidByUserID: 3, ParticipantIDs: []int64{3, 1}}
	UtilitiesBill    = Expense{ID: 2, GroupID: 2, Description: "Utilities bill", Amount: "120.00", Date: "2025-01-15", PaidByUserID: 1, ParticipantIDs: []int64{3, 1}}
	RestaurantDinner = Expense{ID: 3, GroupID: 2, Description: "Restaurant dinner", Amount: "67.89", Date: "2025-01-20", PaidByUserID: 4, ParticipantIDs: []int64{1, 4}}
	InternetBill     = Expense{ID: 4, GroupID: 2, Description: "Internet bill", Amount: "100.00", Date: "2025-01-25", PaidByUserID: 1, ParticipantIDs: []int64{3, 1, 4}}
	TeamLunch        = Expense{ID: 5, GroupID: 3, Description: "Team lunch", Amount: "45.67", Date: "2025-02-01", PaidByUserID: 5, ParticipantIDs: []int64{5, 6}}
	Textbooks        = Expense{ID: 6, GroupID: 4, Description: "Textbooks", Amount: "250.00", Date: "2025-02-05", PaidByUserID: 8, ParticipantIDs: []int64{8, 9, 10, 11, 2}}
	CoffeeSnacks     = Expense{ID: 7, GroupID: 4, Description: "Coffee and snacks", Amount: "35.50", Date: "2025-02-10", PaidByUserID: 9, ParticipantIDs: []int64{9, 10, 11}}
	PrintingCosts    = Expense{ID: 8, GroupID: 4, Description: "Printing costs", Amount: "12.75", Date: "2025-02-12", PaidByUserID: 10, ParticipantIDs: []int64{10, 11}}
	GroupDinner      = Expense{ID: 9, GroupID: 4, Description: "Group dinner", Amount: "125.33", Date: "2025-02-15", PaidByUserID: 11, ParticipantIDs: []int64{8, 9, 10, 11, 2}}
	QuickExpense     = Expense{ID: 10, GroupID: 5, Description: "Quick expense", Amount: "25.00", Date: "2025-02-20", PaidByUserID: 9, ParticipantIDs: []int64{9, 8}}
	MaxLengthExpense = Expense{
		ID:      11,
		GroupID: 6,
		Description: "This is an expense description that is exactly two hundred characters long to test the maximum " +
			"length validation rule for expense descriptions in the system. It demonstrates proper handling of edge ca",
		Amount:         "50.00",
		Date:           "2025-02-25",
		PaidByUserID:   10,
		ParticipantIDs: []int64{10, 11},
	}
)

// Expenses lists every sample expense in ID order.
var Expenses = []Expense{
	GroceryShopping, UtilitiesBill, RestaurantDinner, InternetBill, TeamLunch, Textbooks,
	CoffeeSnacks, PrintingCosts, GroupDinner, QuickExpense, MaxLengthExpense,
}

// Seed loads the sample dataset into an empty store through its public
// operations and verifies each record received the expected ID.
func Seed(ctx context.Context, store storage.Store) error {
	for _, u := range Users {
		created, err := store.CreateUser(ctx, u.Email, u.Name)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		if created.ID != u.ID {
			return fmt.Errorf("seed user %s: got ID %d, want %d", u.Email, created.ID, u.ID)
		}
	}

	for _, g := range Groups {
		created, err := store.CreateGroup(ctx, g.Name, g.Description, g.CreatorID())
		if err != nil {
			return fmt.Errorf("seed group %q: %w", g.Name, err)
		}
		if created.ID != g.ID {
			return fmt.Errorf("seed group %q: got ID %d, want %d", g.Name, created.ID, g.ID)
		}
		for _, memberID := range g.MemberIDs[1:] {
			if err := store.AddGroupMember(ctx, g.ID, memberID); err != nil {
				return fmt.Errorf("seed group %d member %d: %w", g.ID, memberID, err)
			}
		}
	}

	for _, e := range Expenses {
		created, err := store.CreateExpense(ctx, e.GroupID, e.PaidByUserID, e.Input())
		if err != nil {
			return fmt.Errorf("seed expense %q: %w", e.Description, err)
		}
		if created.ID != e.ID {
			return fmt.Errorf("seed expense %q: got ID %d, want %d", e.Description, created.ID, e.ID)
		}
	}

	return nil
}
