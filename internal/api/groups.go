package api

import (
	"context"

	"connectrpc.com/connect"
)

// ListGroups returns the caller's groups.
func (s *Server) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.svc.GetUserGroups(ctx, userID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = toGroup(g)
	}
	return connect.NewResponse(&ListGroupsResponse{Groups: out}), nil
}

// CreateGroup creates a group owned by the caller.
func (s *Server) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	name, err := requiredString("name", req.Msg.Name, MaxGroupNameLength)
	if err != nil {
		return nil, err
	}
	description, err := optionalString("description", req.Msg.Description, MaxGroupDescriptionLength)
	if err != nil {
		return nil, err
	}

	group, err := s.svc.CreateGroup(ctx, userID, name, description)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// GetGroup returns a group the caller belongs to.
func (s *Server) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GroupResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	group, err := s.svc.GetGroup(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&GroupResponse{Group: toGroup(group)}), nil
}

// DeleteGroup deletes a group that has no expenses.
func (s *Server) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[Empty], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.svc.DeleteGroup(ctx, req.Msg.GroupID, userID); err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&Empty{}), nil
}

// AddMember adds a user, by email, to a group the caller belongs to.
func (s *Server) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[UserResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	email, err := validEmail(req.Msg.Email)
	if err != nil {
		return nil, err
	}
	name, err := requiredString("name", req.Msg.Name, MaxUserNameLength)
	if err != nil {
		return nil, err
	}

	member, err := s.svc.AddGroupMember(ctx, req.Msg.GroupID, userID, email, name)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&UserResponse{User: toUser(*member)}), nil
}

// RemoveMember removes a member. Members may leave; only the creator removes others.
func (s *Server) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[Empty], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.svc.RemoveGroupMember(ctx, req.Msg.GroupID, req.Msg.UserID, userID); err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&Empty{}), nil
}
