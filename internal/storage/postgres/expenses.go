package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// Amounts and dates travel as text so neither side depends on pgx's
// numeric or date codecs.
const selectExpenseWithPayer = `
	SELECT e.id, e.group_id, e.description, e.amount::text, to_char(e.expense_date, 'YYYY-MM-DD'),
	       payer.id, payer.email, payer.name
	FROM expenses e
	JOIN users payer ON e.paid_by_user_id = payer.id
`

func scanExpense(row pgx.Row) (*models.Expense, error) {
	expense := &models.Expense{}
	var amount string
	err := row.Scan(
		&expense.ID, &expense.GroupID, &expense.Description, &amount, &expense.Date,
		&expense.PaidBy.ID, &expense.PaidBy.Email, &expense.PaidBy.Name,
	)
	if err != nil {
		return nil, err
	}
	expense.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return expense, nil
}

// CreateExpense inserts an expense and its participants in one transaction.
func (s *Store) CreateExpense(ctx context.Context, groupID, paidByUserID int64, input models.ExpenseInput) (*models.Expense, error) {
	var expenseID int64

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO expenses (group_id, description, amount, expense_date, paid_by_user_id)
			 VALUES ($1, $2, $3::numeric, $4::date, $5)
			 RETURNING id`,
			groupID, input.Description, input.Amount.String(), input.Date, paidByUserID,
		).Scan(&expenseID)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("insert expense: %w", storage.ErrConflict)
			}
			return fmt.Errorf("insert expense: %w", err)
		}

		return insertParticipants(ctx, tx, expenseID, input.ParticipantIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetExpenseByID(ctx, expenseID)
}

func insertParticipants(ctx context.Context, tx pgx.Tx, expenseID int64, userIDs []int64) error {
	for _, userID := range userIDs {
		_, err := tx.Exec(ctx,
			"INSERT INTO expense_participants (expense_id, user_id) VALUES ($1, $2)",
			expenseID, userID,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("insert participant %d: %w", userID, storage.ErrConflict)
			}
			return fmt.Errorf("insert participant: %w", err)
		}
	}
	return nil
}

// GetExpenseByID fetches an expense with its payer and participants.
func (s *Store) GetExpenseByID(ctx context.Context, id int64) (*models.Expense, error) {
	expense, err := scanExpense(s.pool.QueryRow(ctx, selectExpenseWithPayer+"WHERE e.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}

	expense.Participants, err = s.getExpenseParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// GetGroupExpenses fetches a group's expenses ordered by date, then ID.
func (s *Store) GetGroupExpenses(ctx context.Context, groupID int64) ([]*models.Expense, error) {
	rows, err := s.pool.Query(ctx,
		selectExpenseWithPayer+"WHERE e.group_id = $1 ORDER BY e.expense_date, e.id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("list group expenses: %w", err)
	}
	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Expense, error) {
		return scanExpense(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect expenses: %w", err)
	}

	for _, expense := range expenses {
		expense.Participants, err = s.getExpenseParticipants(ctx, expense.ID)
		if err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

func (s *Store) getExpenseParticipants(ctx context.Context, expenseID int64) ([]models.User, error) {
	return queryUsers(ctx, s.pool, `
		SELECT u.id, u.email, u.name
		FROM expense_participants ep
		JOIN users u ON ep.user_id = u.id
		WHERE ep.expense_id = $1
		ORDER BY u.id`,
		expenseID,
	)
}

// UpdateExpense replaces an expense's fields and participant set in one
// transaction. The payer is left untouched.
func (s *Store) UpdateExpense(ctx context.Context, id int64, input models.ExpenseInput) (*models.Expense, error) {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"UPDATE expenses SET description = $1, amount = $2::numeric, expense_date = $3::date WHERE id = $4",
			input.Description, input.Amount.String(), input.Date, id,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("update expense: %w", storage.ErrConflict)
			}
			return fmt.Errorf("update expense: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}

		if _, err := tx.Exec(ctx, "DELETE FROM expense_participants WHERE expense_id = $1", id); err != nil {
			return fmt.Errorf("clear participants: %w", err)
		}

		return insertParticipants(ctx, tx, id, input.ParticipantIDs)
	})
	if err != nil {
		return nil, err
	}

	return s.GetExpenseByID(ctx, id)
}

// DeleteExpense removes an expense; participants cascade.
func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}
