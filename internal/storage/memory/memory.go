// Package memory provides an in-memory implementation of the storage.Store
// interface for tests and local development.
//
// Each MemoryStore owns its own ID counters; nothing is shared between
// instances. Reads return copies, so callers can never mutate stored state.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
	"github.com/MoravianUniversity/cost-sharing/internal/storage"
)

// Ensure MemoryStore implements storage.Store
var _ storage.Store = (*MemoryStore)(nil)

type groupRecord struct {
	id          int64
	name        string
	description string
	creatorID   int64
}

type expenseRecord struct {
	id             int64
	groupID        int64
	description    string
	amount         decimal.Decimal
	date           string
	paidByUserID   int64
	participantIDs []int64
}

// MemoryStore implements storage.Store with maps and index sets.
type MemoryStore struct {
	mu sync.Mutex

	users      map[int64]models.User
	emailIndex map[string]int64

	groups       map[int64]*groupRecord
	groupMembers map[int64]map[int64]struct{} // group ID -> member IDs
	userGroups   map[int64]map[int64]struct{} // user ID -> group IDs

	expenses      map[int64]*expenseRecord
	groupExpenses map[int64]map[int64]struct{} // group ID -> expense IDs

	nextUserID    int64
	nextGroupID   int64
	nextExpenseID int64
}

// New creates an empty MemoryStore whose IDs start at 1.
func New() *MemoryStore {
	return &MemoryStore{
		users:         make(map[int64]models.User),
		emailIndex:    make(map[string]int64),
		groups:        make(map[int64]*groupRecord),
		groupMembers:  make(map[int64]map[int64]struct{}),
		userGroups:    make(map[int64]map[int64]struct{}),
		expenses:      make(map[int64]*expenseRecord),
		groupExpenses: make(map[int64]map[int64]struct{}),
		nextUserID:    1,
		nextGroupID:   1,
		nextExpenseID: 1,
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emailIndex[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

// CreateUser stores a new user under the next user ID.
func (s *MemoryStore) CreateUser(_ context.Context, email, name string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailIndex[email]; exists {
		return nil, fmt.Errorf("failed to create user %q: %w", email, storage.ErrDuplicateEmail)
	}

	user := models.User{ID: s.nextUserID, Email: email, Name: name}
	s.nextUserID++

	s.users[user.ID] = user
	s.emailIndex[email] = user.ID
	return &user, nil
}

// GetUserGroups returns the user's groups ordered by ID.
func (s *MemoryStore) GetUserGroups(_ context.Context, userID int64) ([]*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := []*models.Group{}
	for _, groupID := range sortedKeys(s.userGroups[userID]) {
		groups = append(groups, s.buildGroup(s.groups[groupID]))
	}
	return groups, nil
}

// CreateGroup stores a group with the creator as its only member.
func (s *MemoryStore) CreateGroup(_ context.Context, name, description string, creatorID int64) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[creatorID]; !ok {
		return nil, storage.ErrNotFound
	}

	record := &groupRecord{
		id:          s.nextGroupID,
		name:        name,
		description: description,
		creatorID:   creatorID,
	}
	s.nextGroupID++

	s.groups[record.id] = record
	s.addMember(record.id, creatorID)
	return s.buildGroup(record), nil
}

// GetGroupByID retrieves a group by ID.
func (s *MemoryStore) GetGroupByID(_ context.Context, id int64) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.groups[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.buildGroup(record), nil
}

// AddGroupMember adds a membership.
func (s *MemoryStore) AddGroupMember(_ context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return fmt.Errorf("group %d does not exist: %w", groupID, storage.ErrConflict)
	}
	if _, ok := s.users[userID]; !ok {
		return fmt.Errorf("user %d does not exist: %w", userID, storage.ErrConflict)
	}
	if _, ok := s.groupMembers[groupID][userID]; ok {
		return fmt.Errorf("user %d already in group %d: %w", userID, groupID, storage.ErrConflict)
	}

	s.addMember(groupID, userID)
	return nil
}

// DeleteGroupMember removes a membership.
func (s *MemoryStore) DeleteGroupMember(_ context.Context, groupID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.groupMembers[groupID], userID)
	delete(s.userGroups[userID], groupID)
	return nil
}

// DeleteGroup removes a group and its memberships. Like the relational
// stores, a group that still has expenses is refused.
func (s *MemoryStore) DeleteGroup(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return nil
	}
	if len(s.groupExpenses[id]) > 0 {
		return fmt.Errorf("group %d still has expenses: %w", id, storage.ErrConflict)
	}

	for userID := range s.groupMembers[id] {
		delete(s.userGroups[userID], id)
	}
	delete(s.groupMembers, id)
	delete(s.groupExpenses, id)
	delete(s.groups, id)
	return nil
}

// GetGroupExpenses returns a group's expenses ordered by date, then ID.
func (s *MemoryStore) GetGroupExpenses(_ context.Context, groupID int64) ([]*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]*expenseRecord, 0, len(s.groupExpenses[groupID]))
	for id := range s.groupExpenses[groupID] {
		records = append(records, s.expenses[id])
	}
	slices.SortFunc(records, func(a, b *expenseRecord) int {
		return cmp.Or(cmp.Compare(a.date, b.date), cmp.Compare(a.id, b.id))
	})

	expenses := make([]*models.Expense, 0, len(records))
	for _, record := range records {
		expenses = append(expenses, s.buildExpense(record))
	}
	return expenses, nil
}

// CreateExpense stores an expense under the next expense ID. References are
// checked before anything is written, so a failed create leaves no trace.
func (s *MemoryStore) CreateExpense(_ context.Context, groupID, paidByUserID int64, input models.ExpenseInput) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return nil, fmt.Errorf("group %d does not exist: %w", groupID, storage.ErrConflict)
	}
	if _, ok := s.users[paidByUserID]; !ok {
		return nil, fmt.Errorf("payer %d does not exist: %w", paidByUserID, storage.ErrConflict)
	}
	participants, err := s.checkParticipants(input.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	record := &expenseRecord{
		id:             s.nextExpenseID,
		groupID:        groupID,
		description:    input.Description,
		amount:         input.Amount,
		date:           input.Date,
		paidByUserID:   paidByUserID,
		participantIDs: participants,
	}
	s.nextExpenseID++

	s.expenses[record.id] = record
	if s.groupExpenses[groupID] == nil {
		s.groupExpenses[groupID] = make(map[int64]struct{})
	}
	s.groupExpenses[groupID][record.id] = struct{}{}

	return s.buildExpense(record), nil
}

// GetExpenseByID retrieves an expense by ID.
func (s *MemoryStore) GetExpenseByID(_ context.Context, id int64) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.buildExpense(record), nil
}

// UpdateExpense replaces an expense's fields and participants.
func (s *MemoryStore) UpdateExpense(_ context.Context, id int64, input models.ExpenseInput) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	participants, err := s.checkParticipants(input.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	record.description = input.Description
	record.amount = input.Amount
	record.date = input.Date
	record.participantIDs = participants
	return s.buildExpense(record), nil
}

// DeleteExpense removes an expense.
func (s *MemoryStore) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.expenses[id]
	if !ok {
		return nil
	}
	delete(s.groupExpenses[record.groupID], id)
	delete(s.expenses, id)
	return nil
}

func (s *MemoryStore) addMember(groupID, userID int64) {
	if s.groupMembers[groupID] == nil {
		s.groupMembers[groupID] = make(map[int64]struct{})
	}
	if s.userGroups[userID] == nil {
		s.userGroups[userID] = make(map[int64]struct{})
	}
	s.groupMembers[groupID][userID] = struct{}{}
	s.userGroups[userID][groupID] = struct{}{}
}

// checkParticipants verifies every participant exists and returns a
// de-duplicated, sorted copy of the IDs.
func (s *MemoryStore) checkParticipants(ids []int64) ([]int64, error) {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.users[id]; !ok {
			return nil, fmt.Errorf("participant %d does not exist: %w", id, storage.ErrConflict)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("participant %d listed twice: %w", id, storage.ErrConflict)
		}
		seen[id] = struct{}{}
	}
	return sortedKeys(seen), nil
}

func (s *MemoryStore) buildGroup(record *groupRecord) *models.Group {
	members := []models.User{}
	for _, userID := range sortedKeys(s.groupMembers[record.id]) {
		members = append(members, s.users[userID])
	}
	return &models.Group{
		ID:          record.id,
		Name:        record.name,
		Description: record.description,
		CreatedBy:   s.users[record.creatorID],
		Members:     members,
	}
}

func (s *MemoryStore) buildExpense(record *expenseRecord) *models.Expense {
	participants := make([]models.User, len(record.participantIDs))
	for i, userID := range record.participantIDs {
		participants[i] = s.users[userID]
	}

	return &models.Expense{
		ID:           record.id,
		GroupID:      record.groupID,
		Description:  record.description,
		Amount:       record.amount,
		Date:         record.date,
		PaidBy:       s.users[record.paidByUserID],
		Participants: participants,
	}
}

func sortedKeys(set map[int64]struct{}) []int64 {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
