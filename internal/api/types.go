package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/calculator"
	"github.com/MoravianUniversity/cost-sharing/internal/models"
)

// User is the wire form of models.User.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Group is the wire form of models.Group.
type Group struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   User   `json:"createdBy"`
	Members     []User `json:"members"`
}

// Expense is the wire form of models.Expense. Amounts are JSON numbers with
// two decimal places.
type Expense struct {
	ID              int64       `json:"id"`
	GroupID         int64       `json:"groupId"`
	Description     string      `json:"description"`
	Amount          json.Number `json:"amount"`
	Date            string      `json:"date"`
	PaidBy          User        `json:"paidBy"`
	SplitBetween    []User      `json:"splitBetween"`
	PerPersonAmount json.Number `json:"perPersonAmount"`
}

// Empty is the response of procedures that return nothing.
type Empty struct{}

// Request and response messages, one pair per procedure. Pointer fields
// distinguish absent from empty values for validation.

type GetAuthorizationURLRequest struct{}

type GetAuthorizationURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type LoginRequest struct {
	Code *string `json:"code"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type GetCurrentUserRequest struct{}

type UserResponse struct {
	User User `json:"user"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

type CreateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type GetGroupRequest struct {
	GroupID int64 `json:"groupId"`
}

type GroupResponse struct {
	Group Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID int64 `json:"groupId"`
}

type AddMemberRequest struct {
	GroupID int64   `json:"groupId"`
	Email   *string `json:"email"`
	Name    *string `json:"name"`
}

type RemoveMemberRequest struct {
	GroupID int64 `json:"groupId"`
	UserID  int64 `json:"userId"`
}

type ListExpensesRequest struct {
	GroupID int64 `json:"groupId"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

// ExpenseFields are the expense fields a client sends on create and update.
type ExpenseFields struct {
	Description  *string          `json:"description"`
	Amount       *decimal.Decimal `json:"amount"`
	Date         *string          `json:"date"`
	SplitBetween []int64          `json:"splitBetween"`
}

type CreateExpenseRequest struct {
	GroupID int64 `json:"groupId"`
	ExpenseFields
}

type GetExpenseRequest struct {
	GroupID   int64 `json:"groupId"`
	ExpenseID int64 `json:"expenseId"`
}

type UpdateExpenseRequest struct {
	GroupID   int64 `json:"groupId"`
	ExpenseID int64 `json:"expenseId"`
	ExpenseFields
}

type DeleteExpenseRequest struct {
	GroupID   int64 `json:"groupId"`
	ExpenseID int64 `json:"expenseId"`
}

type ExpenseResponse struct {
	Expense Expense `json:"expense"`
}

func toUser(u models.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email}
}

func toUsers(users []models.User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = toUser(u)
	}
	return out
}

func toGroup(g *models.Group) Group {
	return Group{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   toUser(g.CreatedBy),
		Members:     toUsers(g.Members),
	}
}

func toExpense(e *models.Expense) Expense {
	out := Expense{
		ID:           e.ID,
		GroupID:      e.GroupID,
		Description:  e.Description,
		Amount:       money(e.Amount),
		Date:         e.Date,
		PaidBy:       toUser(e.PaidBy),
		SplitBetween: toUsers(e.Participants),
	}
	if e.PerPersonAmount != nil {
		out.PerPersonAmount = money(*e.PerPersonAmount)
	}
	return out
}

func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(calculator.CurrencyPlaces))
}
