// Package service implements the cost sharing domain: group membership
// authorization, expense invariants and per-person split amounts.
//
// Every operation re-reads what it needs from storage; nothing is cached
// between calls.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MoravianUniversity/cost-sharing/internal/calculator"
	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// CostSharing is the domain service. Callers are expected to have
// authenticated the user IDs they pass in and validated field shapes.
type CostSharing struct {
	store storage.Store
}

// New creates a CostSharing service backed by store.
func New(store storage.Store) *CostSharing {
	return &CostSharing{store: store}
}

// authorizedGroup loads a group and checks that userID is one of its members.
func (s *CostSharing) authorizedGroup(ctx context.Context, groupID, userID int64) (*models.Group, error) {
	group, err := s.store.GetGroupByID(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, err, "Group %d not found", groupID)
	}
	if err != nil {
		return nil, err
	}

	if !group.HasMember(userID) {
		return nil, newError(KindForbidden, "You are not a member of this group")
	}
	return group, nil
}

// withPerPersonAmount sets the derived share on an expense read from storage.
func withPerPersonAmount(expense *models.Expense) (*models.Expense, error) {
	share, err := calculator.PerPersonAmount(expense.Amount, len(expense.Participants))
	if err != nil {
		return nil, fmt.Errorf("expense %d: %w", expense.ID, err)
	}
	expense.PerPersonAmount = &share
	return expense, nil
}
