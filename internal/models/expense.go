package models

import "github.com/shopspring/decimal"

// DateLayout is the calendar date format used for expense dates (ISO 8601).
const DateLayout = "2006-01-02"

// MaxAmount is the largest expense amount every store can hold exactly
// (NUMERIC(10, 2) in the relational schemas).
var MaxAmount = decimal.RequireFromString("99999999.99")

// Expense represents an amount paid by one group member and split equally
// among a set of participants.
type Expense struct {
	// ID is the store-assigned identifier.
	ID int64

	// GroupID is the group this expense belongs to. It never changes.
	GroupID int64

	// Description is what the expense was for (1-200 characters).
	Description string

	// Amount is the total paid, between 0.01 and MaxAmount.
	Amount decimal.Decimal

	// Date is the calendar date of the expense in DateLayout form.
	Date string

	// PaidBy is the payer. Fixed at creation and always a participant.
	PaidBy User

	// Participants are the users splitting the expense, ordered by user ID.
	// Never empty.
	Participants []User

	// PerPersonAmount is Amount divided equally among Participants, rounded
	// to two decimal places. Stores leave it nil; the service fills it in.
	PerPersonAmount *decimal.Decimal
}

// HasParticipant reports whether the user shares this expense.
func (e *Expense) HasParticipant(userID int64) bool {
	for _, p := range e.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs returns the IDs of all participants in participant order.
func (e *Expense) ParticipantIDs() []int64 {
	ids := make([]int64, len(e.Participants))
	for i, p := range e.Participants {
		ids[i] = p.ID
	}
	return ids
}

// ExpenseInput holds the fields of an expense that callers supply on create
// and may replace on update. The group and payer are passed separately since
// they are immutable.
type ExpenseInput struct {
	Description    string
	Amount         decimal.Decimal
	Date           string
	ParticipantIDs []int64
}
