package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

const selectGroupWithCreator = `
	SELECT g.id, g.name, g.description,
	       creator.id, creator.email, creator.name
	FROM groups g
	INNER JOIN users creator ON g.created_by_user_id = creator.id
`

// CreateGroup persists a new group with the creator as its first member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name, description string, creatorID int64) (*models.Group, error) {
	var group *models.Group

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		creator, err := getUserByID(ctx, tx, creatorID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"INSERT INTO groups (name, description, created_by_user_id) VALUES (?, ?, ?)",
			name, description, creatorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		groupID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read group ID: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
			groupID, creatorID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group creator as member: %w", err)
		}

		group = &models.Group{
			ID:          groupID,
			Name:        name,
			Description: description,
			CreatedBy:   *creator,
			Members:     []models.User{*creator},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// GetGroupByID retrieves a group by ID, including its creator and members.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, id int64) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx, selectGroupWithCreator+"WHERE g.id = ?", id).Scan(
		&group.ID, &group.Name, &group.Description,
		&group.CreatedBy.ID, &group.CreatedBy.Email, &group.CreatedBy.Name,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.Members, err = s.getGroupMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	return group, nil
}

// GetUserGroups retrieves every group the user is a member of, ordered by ID.
func (s *SQLiteStore) GetUserGroups(ctx context.Context, userID int64) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		selectGroupWithCreator+`
		WHERE g.id IN (SELECT group_id FROM group_members WHERE user_id = ?)
		ORDER BY g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list user groups: %w", err)
	}

	groups := []*models.Group{}
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(
			&group.ID, &group.Name, &group.Description,
			&group.CreatedBy.ID, &group.CreatedBy.Email, &group.CreatedBy.Name,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	// Members are loaded after rows is closed; the pool has one connection.
	for _, group := range groups {
		group.Members, err = s.getGroupMembers(ctx, group.ID)
		if err != nil {
			return nil, err
		}
	}

	return groups, nil
}

func (s *SQLiteStore) getGroupMembers(ctx context.Context, groupID int64) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.name
		FROM group_members gm
		INNER JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = ?
		ORDER BY u.id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	return scanUsers(rows)
}

// AddGroupMember inserts a membership row.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
		groupID, userID,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to add user %d to group %d: %w", userID, groupID, storage.ErrConflict)
		}
		return fmt.Errorf("failed to add group member: %w", err)
	}
	return nil
}

// DeleteGroupMember removes a membership row.
func (s *SQLiteStore) DeleteGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group member: %w", err)
	}
	return nil
}

// DeleteGroup removes a group; memberships cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("failed to delete group %d: %w", id, storage.ErrConflict)
		}
		return fmt.Errorf("failed to delete group: %w", err)
	}
	return nil
}
