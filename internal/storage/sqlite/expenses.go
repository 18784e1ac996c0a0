package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

const selectExpenseWithPayer = `
	SELECT e.id, e.group_id, e.description, e.amount, e.expense_date,
	       payer.id, payer.email, payer.name
	FROM expenses e
	INNER JOIN users payer ON e.paid_by_user_id = payer.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	expense := &models.Expense{}
	err := row.Scan(
		&expense.ID, &expense.GroupID, &expense.Description, &expense.Amount, &expense.Date,
		&expense.PaidBy.ID, &expense.PaidBy.Email, &expense.PaidBy.Name,
	)
	return expense, err
}

// CreateExpense inserts an expense and its participants in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, groupID, paidByUserID int64, input models.ExpenseInput) (*models.Expense, error) {
	var expenseID int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (group_id, description, amount, expense_date, paid_by_user_id)
			 VALUES (?, ?, ?, ?, ?)`,
			groupID, input.Description, input.Amount.String(), input.Date, paidByUserID,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("failed to insert expense: %w", storage.ErrConflict)
			}
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		expenseID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read expense ID: %w", err)
		}

		return insertParticipants(ctx, tx, expenseID, input.ParticipantIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetExpenseByID(ctx, expenseID)
}

func insertParticipants(ctx context.Context, tx *sql.Tx, expenseID int64, userIDs []int64) error {
	for _, userID := range userIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, user_id) VALUES (?, ?)",
			expenseID, userID,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("failed to insert participant %d: %w", userID, storage.ErrConflict)
			}
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// GetExpenseByID retrieves an expense by ID, including payer and participants.
func (s *SQLiteStore) GetExpenseByID(ctx context.Context, id int64) (*models.Expense, error) {
	expense, err := scanExpense(s.db.QueryRowContext(ctx, selectExpenseWithPayer+"WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	expense.Participants, err = s.getExpenseParticipants(ctx, id)
	if err != nil {
		return nil, err
	}

	return expense, nil
}

// GetGroupExpenses retrieves all expenses of a group ordered by date, then ID.
func (s *SQLiteStore) GetGroupExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		selectExpenseWithPayer+"WHERE e.group_id = ? ORDER BY e.expense_date, e.id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list group expenses: %w", err)
	}

	expenses := []*models.Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for _, expense := range expenses {
		expense.Participants, err = s.getExpenseParticipants(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
	}

	return expenses, nil
}

func (s *SQLiteStore) getExpenseParticipants(ctx context.Context, expenseID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.name
		FROM expense_participants ep
		INNER JOIN users u ON ep.user_id = u.id
		WHERE ep.expense_id = ?
		ORDER BY u.id`,
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense participants: %w", err)
	}
	return scanUsers(rows)
}

// UpdateExpense replaces an expense's fields and participant set in one
// transaction. The payer is left untouched.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, id int64, input models.ExpenseInput) (*models.Expense, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"UPDATE expenses SET description = ?, amount = ?, expense_date = ? WHERE id = ?",
			input.Description, input.Amount.String(), input.Date, id,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("failed to update expense: %w", storage.ErrConflict)
			}
			return fmt.Errorf("failed to update expense: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_participants WHERE expense_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}

		return insertParticipants(ctx, tx, id, input.ParticipantIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetExpenseByID(ctx, id)
}

// DeleteExpense removes an expense; participants cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
