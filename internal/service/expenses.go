package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// GetGroupExpenses lists a group's expenses ordered by date, then ID, each
// with its per-person amount.
func (s *CostSharing) GetGroupExpenses(ctx context.Context, groupID, userID int64) ([]*models.Expense, error) {
	if _, err := s.authorizedGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}

	expenses, err := s.store.GetGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, expense := range expenses {
		if _, err := withPerPersonAmount(expense); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// CreateExpense records an expense paid by payerID.
func (s *CostSharing) CreateExpense(ctx context.Context, groupID, payerID int64, input models.ExpenseInput) (*models.Expense, error) {
	group, err := s.authorizedGroup(ctx, groupID, payerID)
	if err != nil {
		return nil, err
	}
	if err := validateParticipants(group, payerID, input.ParticipantIDs); err != nil {
		return nil, err
	}
	input.ParticipantIDs = uniqueIDs(input.ParticipantIDs)

	expense, err := s.store.CreateExpense(ctx, groupID, payerID, input)
	if err != nil {
		return nil, err
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", groupID,
		"paid_by", payerID,
		"amount", expense.Amount.StringFixed(2),
		"participants", len(expense.Participants),
	)
	return withPerPersonAmount(expense)
}

// GetExpense returns an expense of the given group. An expense that exists
// under a different group is reported as not found.
func (s *CostSharing) GetExpense(ctx context.Context, expenseID, groupID, userID int64) (*models.Expense, error) {
	if _, err := s.authorizedGroup(ctx, groupID, userID); err != nil {
		return nil, err
	}

	expense, err := s.groupExpense(ctx, expenseID, groupID)
	if err != nil {
		return nil, err
	}
	return withPerPersonAmount(expense)
}

// UpdateExpense replaces the description, amount, date and participants of
// an expense. Only the payer may update it and the payer never changes.
func (s *CostSharing) UpdateExpense(ctx context.Context, expenseID, groupID, userID int64, input models.ExpenseInput) (*models.Expense, error) {
	group, err := s.authorizedGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	expense, err := s.groupExpense(ctx, expenseID, groupID)
	if err != nil {
		return nil, err
	}
	if expense.PaidBy.ID != userID {
		return nil, newError(KindForbidden, "Only the payer can modify this expense")
	}
	if err := validateParticipants(group, userID, input.ParticipantIDs); err != nil {
		return nil, err
	}
	input.ParticipantIDs = uniqueIDs(input.ParticipantIDs)

	updated, err := s.store.UpdateExpense(ctx, expenseID, input)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, err, "Expense %d not found", expenseID)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Expense updated", "expense_id", expenseID, "group_id", groupID, "updated_by", userID)
	return withPerPersonAmount(updated)
}

// DeleteExpense deletes an expense. Only the payer may delete it.
func (s *CostSharing) DeleteExpense(ctx context.Context, expenseID, groupID, userID int64) error {
	if _, err := s.authorizedGroup(ctx, groupID, userID); err != nil {
		return err
	}

	expense, err := s.groupExpense(ctx, expenseID, groupID)
	if err != nil {
		return err
	}
	if expense.PaidBy.ID != userID {
		return newError(KindForbidden, "Only the payer can delete this expense")
	}

	if err := s.store.DeleteExpense(ctx, expenseID); err != nil {
		return err
	}

	slog.Info("Expense deleted", "expense_id", expenseID, "group_id", groupID, "deleted_by", userID)
	return nil
}

// groupExpense loads an expense and hides it unless it belongs to groupID.
func (s *CostSharing) groupExpense(ctx context.Context, expenseID, groupID int64) (*models.Expense, error) {
	expense, err := s.store.GetExpenseByID(ctx, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, err, "Expense %d not found", expenseID)
	}
	if err != nil {
		return nil, err
	}
	if expense.GroupID != groupID {
		return nil, newError(KindNotFound, "Expense %d not found", expenseID)
	}
	return expense, nil
}

// validateParticipants checks a participant list against the group. The
// checks run in a fixed order and the first failure is reported.
func validateParticipants(group *models.Group, payerID int64, participantIDs []int64) error {
	if len(participantIDs) == 0 {
		return newError(KindValidation, "splitBetween must contain at least one user ID")
	}

	if !slices.Contains(participantIDs, payerID) {
		return newError(KindValidation, "splitBetween must include the authenticated user's ID")
	}

	for _, id := range participantIDs {
		if !group.HasMember(id) {
			return newError(KindValidation, "All users in splitBetween must be members of the group")
		}
	}
	return nil
}

// uniqueIDs returns the sorted distinct IDs; participants form a set.
func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
