// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
)

var (
	// ErrNotFound indicates a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail indicates a user with the email already exists.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrConflict indicates a write violated a uniqueness or referential
	// constraint, e.g. adding a membership twice or referencing a missing user.
	ErrConflict = errors.New("constraint violation")
)

// Store defines the interface for cost sharing storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// in-memory) without changing the service layer.
//
// Every returned entity is fully populated: groups carry their creator and
// members ordered by user ID, expenses carry their payer and participants
// ordered by user ID. Stores never set Expense.PerPersonAmount.
//
// Errors other than the sentinels above are storage failures that callers
// propagate without interpretation.
type Store interface {
	// GetUserByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// GetUserByEmail retrieves a user by email. Returns ErrNotFound if absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// CreateUser persists a new user and returns it with its assigned ID.
	// Returns ErrDuplicateEmail if the email is taken.
	CreateUser(ctx context.Context, email, name string) (*models.User, error)

	// GetUserGroups returns the groups the user belongs to, ordered by group ID.
	GetUserGroups(ctx context.Context, userID int64) ([]*models.Group, error)

	// CreateGroup persists a group and adds the creator as its only member
	// in a single atomic write. Returns ErrNotFound if the creator does not exist.
	CreateGroup(ctx context.Context, name, description string, creatorID int64) (*models.Group, error)

	// GetGroupByID retrieves a group by ID. Returns ErrNotFound if absent.
	GetGroupByID(ctx context.Context, id int64) (*models.Group, error)

	// AddGroupMember adds a membership. Returns ErrConflict if the membership
	// already exists or the group or user does not exist.
	AddGroupMember(ctx context.Context, groupID, userID int64) error

	// DeleteGroupMember removes a membership. Removing an absent membership is a no-op.
	DeleteGroupMember(ctx context.Context, groupID, userID int64) error

	// DeleteGroup removes a group and its memberships. Removing an absent
	// group is a no-op.
	DeleteGroup(ctx context.Context, id int64) error

	// GetGroupExpenses returns a group's expenses ordered by date, then ID.
	GetGroupExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error)

	// CreateExpense persists an expense and its participants atomically.
	// Returns ErrConflict if the group, payer, or a participant does not exist.
	CreateExpense(ctx context.Context, groupID, paidByUserID int64, input models.ExpenseInput) (*models.Expense, error)

	// GetExpenseByID retrieves an expense by ID. Returns ErrNotFound if absent.
	GetExpenseByID(ctx context.Context, id int64) (*models.Expense, error)

	// UpdateExpense replaces the description, amount, date and participant set
	// of an expense atomically. The payer is never changed.
	// Returns ErrNotFound if absent.
	UpdateExpense(ctx context.Context, id int64, input models.ExpenseInput) (*models.Expense, error)

	// DeleteExpense removes an expense and its participants. Removing an
	// absent expense is a no-op.
	DeleteExpense(ctx context.Context, id int64) error

	// Close releases any resources held by the store.
	Close() error
}
