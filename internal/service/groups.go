package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// CreateGroup creates a group with creatorID as its creator and only member.
func (s *CostSharing) CreateGroup(ctx context.Context, creatorID int64, name, description string) (*models.Group, error) {
	group, err := s.store.CreateGroup(ctx, name, description, creatorID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, err, "User %d not found", creatorID)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "creator_id", creatorID)
	return group, nil
}

// GetGroup returns a group the user is a member of.
func (s *CostSharing) GetGroup(ctx context.Context, groupID, userID int64) (*models.Group, error) {
	return s.authorizedGroup(ctx, groupID, userID)
}

// AddGroupMember adds the user registered under email to the group, creating
// the user first if needed. Any member may add others.
func (s *CostSharing) AddGroupMember(ctx context.Context, groupID, callerID int64, email, name string) (*models.User, error) {
	group, err := s.authorizedGroup(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	member, err := s.GetOrCreateUser(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if group.HasMember(member.ID) {
		return nil, newError(KindConflict, "User is already a member of this group")
	}

	if err := s.store.AddGroupMember(ctx, groupID, member.ID); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, wrapError(KindConflict, err, "User is already a member of this group")
		}
		return nil, err
	}

	slog.Info("Group member added", "group_id", groupID, "user_id", member.ID, "added_by", callerID)
	return member, nil
}

// RemoveGroupMember removes targetID from the group. The creator may remove
// anyone but themself; other members may only remove themselves. Nobody who
// takes part in an expense of the group can be removed.
func (s *CostSharing) RemoveGroupMember(ctx context.Context, groupID, targetID, callerID int64) error {
	group, err := s.authorizedGroup(ctx, groupID, callerID)
	if err != nil {
		return err
	}

	if !group.HasMember(targetID) {
		return newError(KindNotFound, "User %d not found in this group", targetID)
	}

	creatorID := group.CreatedBy.ID
	switch {
	case callerID == creatorID && callerID == targetID:
		return newError(KindConflict, "Creator cannot remove themself")
	case callerID != creatorID && callerID != targetID:
		return newError(KindConflict, "Only group creator can remove others")
	}

	expenses, err := s.store.GetGroupExpenses(ctx, groupID)
	if err != nil {
		return err
	}
	for _, expense := range expenses {
		if expense.HasParticipant(targetID) {
			return newError(KindConflict, "Cannot remove member who is involved in expenses")
		}
	}

	if err := s.store.DeleteGroupMember(ctx, groupID, targetID); err != nil {
		return err
	}

	slog.Info("Group member removed", "group_id", groupID, "user_id", targetID, "removed_by", callerID)
	return nil
}

// DeleteGroup deletes a group that has no expenses. Any member may delete it.
func (s *CostSharing) DeleteGroup(ctx context.Context, groupID, userID int64) error {
	if _, err := s.authorizedGroup(ctx, groupID, userID); err != nil {
		return err
	}

	expenses, err := s.store.GetGroupExpenses(ctx, groupID)
	if err != nil {
		return err
	}
	if len(expenses) > 0 {
		return newError(KindConflict, "Cannot delete group with expenses")
	}

	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		// An expense created after the check above.
		if errors.Is(err, storage.ErrConflict) {
			return wrapError(KindConflict, err, "Cannot delete group with expenses")
		}
		return err
	}

	slog.Info("Group deleted", "group_id", groupID, "deleted_by", userID)
	return nil
}
