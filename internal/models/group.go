package models

// Group represents a named collection of users who share expenses.
type Group struct {
	// ID is the store-assigned identifier.
	ID int64

	// Name is the display name of the group (1-100 characters).
	Name string

	// Description is optional (0-500 characters); empty when not provided.
	Description string

	// CreatedBy is the user who created the group. It never changes and the
	// creator is always a member.
	CreatedBy User

	// Members is the list of users in this group, ordered by user ID.
	Members []User
}

// HasMember reports whether the user is one of the group's members.
func (g *Group) HasMember(userID int64) bool {
	for _, m := range g.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the IDs of all members in member order.
func (g *Group) MemberIDs() []int64 {
	ids := make([]int64, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}
