package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// GetUser returns the user with the given ID.
func (s *CostSharing) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindNotFound, err, "User %d not found", userID)
	}
	return user, err
}

// GetOrCreateUser returns the user registered under email, creating it with
// name if none exists. An existing user keeps its original name.
//
// Two concurrent first calls for the same email race on the store's unique
// constraint; the loser gets storage.ErrDuplicateEmail back as a failure.
func (s *CostSharing) GetOrCreateUser(ctx context.Context, email, name string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user, err = s.store.CreateUser(ctx, email, name)
	if err != nil {
		return nil, err
	}

	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// GetUserGroups returns the groups userID belongs to, ordered by group ID.
func (s *CostSharing) GetUserGroups(ctx context.Context, userID int64) ([]*models.Group, error) {
	return s.store.GetUserGroups(ctx, userID)
}
