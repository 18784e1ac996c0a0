package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

const selectGroupWithCreator = `
	SELECT g.id, g.name, g.description,
	       creator.id, creator.email, creator.name
	FROM groups g
	JOIN users creator ON g.created_by_user_id = creator.id
`

func scanGroup(row pgx.Row) (*models.Group, error) {
	group := &models.Group{}
	err := row.Scan(
		&group.ID, &group.Name, &group.Description,
		&group.CreatedBy.ID, &group.CreatedBy.Email, &group.CreatedBy.Name,
	)
	return group, err
}

// CreateGroup inserts a group and its creator's membership in one transaction.
func (s *Store) CreateGroup(ctx context.Context, name, description string, creatorID int64) (*models.Group, error) {
	var group *models.Group

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		creator, err := getUserByID(ctx, tx, creatorID)
		if err != nil {
			return err
		}

		group = &models.Group{
			Name:        name,
			Description: description,
			CreatedBy:   *creator,
			Members:     []models.User{*creator},
		}
		err = tx.QueryRow(ctx,
			"INSERT INTO groups (name, description, created_by_user_id) VALUES ($1, $2, $3) RETURNING id",
			name, description, creatorID,
		).Scan(&group.ID)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)",
			group.ID, creatorID,
		)
		if err != nil {
			return fmt.Errorf("insert group creator as member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// GetGroupByID fetches a group with its creator and members.
func (s *Store) GetGroupByID(ctx context.Context, id int64) (*models.Group, error) {
	group, err := scanGroup(s.pool.QueryRow(ctx, selectGroupWithCreator+"WHERE g.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}

	group.Members, err = s.getGroupMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetUserGroups fetches every group the user belongs to, ordered by ID.
func (s *Store) GetUserGroups(ctx context.Context, userID int64) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx,
		selectGroupWithCreator+`
		WHERE g.id IN (SELECT group_id FROM group_members WHERE user_id = $1)
		ORDER BY g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Group, error) {
		return scanGroup(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect groups: %w", err)
	}

	for _, group := range groups {
		group.Members, err = s.getGroupMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (s *Store) getGroupMembers(ctx context.Context, groupID int64) ([]models.User, error) {
	return queryUsers(ctx, s.pool, `
		SELECT u.id, u.email, u.name
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY u.id`,
		groupID,
	)
}

// AddGroupMember inserts a membership row.
func (s *Store) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)",
		groupID, userID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("add user %d to group %d: %w", userID, groupID, storage.ErrConflict)
		}
		return fmt.Errorf("add group member: %w", err)
	}
	return nil
}

// DeleteGroupMember removes a membership row.
func (s *Store) DeleteGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM group_members WHERE group_id = $1 AND user_id = $2",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}
	return nil
}

// DeleteGroup removes a group; memberships cascade.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM groups WHERE id = $1", id)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("delete group %d: %w", id, storage.ErrConflict)
		}
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}
