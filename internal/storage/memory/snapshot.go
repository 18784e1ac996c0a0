package memory

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/MoravianUniversity/cost-sharing/internal/models"
)

// Snapshot is a point-in-time copy of a MemoryStore's records.
type Snapshot struct {
	Users    []models.User     `json:"users"`
	Groups   []SnapshotGroup   `json:"groups"`
	Expenses []SnapshotExpense `json:"expenses"`
}

// SnapshotGroup is a group row plus its membership set.
type SnapshotGroup struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	CreatorID   int64   `json:"createdByUserId"`
	MemberIDs   []int64 `json:"memberIds"`
}

// SnapshotExpense is an expense row plus its participant set.
type SnapshotExpense struct {
	ID             int64           `json:"id"`
	GroupID        int64           `json:"groupId"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	PaidByUserID   int64           `json:"paidByUserId"`
	ParticipantIDs []int64         `json:"participantIds"`
}

// Snapshot captures every record, ordered by ID.
func (s *MemoryStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap Snapshot
	for _, id := range sortedIDs(s.users) {
		snap.Users = append(snap.Users, s.users[id])
	}
	for _, id := range sortedIDs(s.groups) {
		g := s.groups[id]
		snap.Groups = append(snap.Groups, SnapshotGroup{
			ID:          g.id,
			Name:        g.name,
			Description: g.description,
			CreatorID:   g.creatorID,
			MemberIDs:   sortedKeys(s.groupMembers[id]),
		})
	}
	for _, id := range sortedIDs(s.expenses) {
		e := s.expenses[id]
		snap.Expenses = append(snap.Expenses, SnapshotExpense{
			ID:             e.id,
			GroupID:        e.groupID,
			Description:    e.description,
			Amount:         e.amount,
			Date:           e.date,
			PaidByUserID:   e.paidByUserID,
			ParticipantIDs: slices.Clone(e.participantIDs),
		})
	}
	return snap
}

// Restore builds a MemoryStore from a snapshot. Each ID counter resumes one
// past the highest restored ID. References between records are validated.
func Restore(snap Snapshot) (*MemoryStore, error) {
	s := New()

	for _, u := range snap.Users {
		if _, dup := s.users[u.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate user ID %d", u.ID)
		}
		if _, dup := s.emailIndex[u.Email]; dup {
			return nil, fmt.Errorf("restore: duplicate email %q", u.Email)
		}
		s.users[u.ID] = u
		s.emailIndex[u.Email] = u.ID
		s.nextUserID = max(s.nextUserID, u.ID+1)
	}

	for _, g := range snap.Groups {
		if _, dup := s.groups[g.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate group ID %d", g.ID)
		}
		if _, ok := s.users[g.CreatorID]; !ok {
			return nil, fmt.Errorf("restore: group %d creator %d does not exist", g.ID, g.CreatorID)
		}
		s.groups[g.ID] = &groupRecord{id: g.ID, name: g.Name, description: g.Description, creatorID: g.CreatorID}
		s.addMember(g.ID, g.CreatorID)
		for _, userID := range g.MemberIDs {
			if _, ok := s.users[userID]; !ok {
				return nil, fmt.Errorf("restore: group %d member %d does not exist", g.ID, userID)
			}
			s.addMember(g.ID, userID)
		}
		s.nextGroupID = max(s.nextGroupID, g.ID+1)
	}

	for _, e := range snap.Expenses {
		if _, dup := s.expenses[e.ID]; dup {
			return nil, fmt.Errorf("restore: duplicate expense ID %d", e.ID)
		}
		if _, ok := s.groups[e.GroupID]; !ok {
			return nil, fmt.Errorf("restore: expense %d group %d does not exist", e.ID, e.GroupID)
		}
		if _, ok := s.users[e.PaidByUserID]; !ok {
			return nil, fmt.Errorf("restore: expense %d payer %d does not exist", e.ID, e.PaidByUserID)
		}
		participants, err := s.checkParticipants(e.ParticipantIDs)
		if err != nil {
			return nil, fmt.Errorf("restore: expense %d: %w", e.ID, err)
		}
		s.expenses[e.ID] = &expenseRecord{
			id:             e.ID,
			groupID:        e.GroupID,
			description:    e.Description,
			amount:         e.Amount,
			date:           e.Date,
			paidByUserID:   e.PaidByUserID,
			participantIDs: participants,
		}
		if s.groupExpenses[e.GroupID] == nil {
			s.groupExpenses[e.GroupID] = make(map[int64]struct{})
		}
		s.groupExpenses[e.GroupID][e.ID] = struct{}{}
		s.nextExpenseID = max(s.nextExpenseID, e.ID+1)
	}

	return s, nil
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
