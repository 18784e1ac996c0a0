package api

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"connectrpc.com/connect"

	"github.com/MoravianUniversity/cost-sharing/internal/auth"
	"github.com/MoravianUniversity/cost-sharing/internal/middleware"
	"github.com/MoravianUniversity/cost-sharing/internal/service"
)

// Service names, used as path prefixes.
const (
	AuthServiceName    = "costsharing.v1.AuthService"
	GroupServiceName   = "costsharing.v1.GroupService"
	ExpenseServiceName = "costsharing.v1.ExpenseService"
)

// Procedure paths.
const (
	GetAuthorizationURLProcedure = "/" + AuthServiceName + "/GetAuthorizationURL"
	LoginProcedure               = "/" + AuthServiceName + "/Login"
	GetCurrentUserProcedure      = "/" + AuthServiceName + "/GetCurrentUser"

	ListGroupsProcedure   = "/" + GroupServiceName + "/ListGroups"
	CreateGroupProcedure  = "/" + GroupServiceName + "/CreateGroup"
	GetGroupProcedure     = "/" + GroupServiceName + "/GetGroup"
	DeleteGroupProcedure  = "/" + GroupServiceName + "/DeleteGroup"
	AddMemberProcedure    = "/" + GroupServiceName + "/AddMember"
	RemoveMemberProcedure = "/" + GroupServiceName + "/RemoveMember"

	ListExpensesProcedure  = "/" + ExpenseServiceName + "/ListExpenses"
	CreateExpenseProcedure = "/" + ExpenseServiceName + "/CreateExpense"
	GetExpenseProcedure    = "/" + ExpenseServiceName + "/GetExpense"
	UpdateExpenseProcedure = "/" + ExpenseServiceName + "/UpdateExpense"
	DeleteExpenseProcedure = "/" + ExpenseServiceName + "/DeleteExpense"
)

// Server implements the RPC procedures on top of the domain service.
type Server struct {
	svc      *service.CostSharing
	tokens   *auth.JWTManager
	identity auth.IdentityProvider
}

// NewServer creates a Server.
func NewServer(svc *service.CostSharing, tokens *auth.JWTManager, identity auth.IdentityProvider) *Server {
	return &Server{svc: svc, tokens: tokens, identity: identity}
}

// Register mounts every procedure on mux. interceptors wrap all procedures;
// everything except GetAuthorizationURL and Login also requires a session
// token. Those two accept a token when one is sent so the caller is logged.
func (s *Server) Register(mux *http.ServeMux, interceptors ...connect.Interceptor) {
	public := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(append(slices.Clone(interceptors), middleware.OptionalAuth(s.tokens))...),
	}
	protected := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithInterceptors(append(slices.Clone(interceptors), middleware.RequireAuth(s.tokens))...),
	}

	mux.Handle(GetAuthorizationURLProcedure, connect.NewUnaryHandler(GetAuthorizationURLProcedure, s.GetAuthorizationURL, public...))
	mux.Handle(LoginProcedure, connect.NewUnaryHandler(LoginProcedure, s.Login, public...))
	mux.Handle(GetCurrentUserProcedure, connect.NewUnaryHandler(GetCurrentUserProcedure, s.GetCurrentUser, protected...))

	mux.Handle(ListGroupsProcedure, connect.NewUnaryHandler(ListGroupsProcedure, s.ListGroups, protected...))
	mux.Handle(CreateGroupProcedure, connect.NewUnaryHandler(CreateGroupProcedure, s.CreateGroup, protected...))
	mux.Handle(GetGroupProcedure, connect.NewUnaryHandler(GetGroupProcedure, s.GetGroup, protected...))
	mux.Handle(DeleteGroupProcedure, connect.NewUnaryHandler(DeleteGroupProcedure, s.DeleteGroup, protected...))
	mux.Handle(AddMemberProcedure, connect.NewUnaryHandler(AddMemberProcedure, s.AddMember, protected...))
	mux.Handle(RemoveMemberProcedure, connect.NewUnaryHandler(RemoveMemberProcedure, s.RemoveMember, protected...))

	mux.Handle(ListExpensesProcedure, connect.NewUnaryHandler(ListExpensesProcedure, s.ListExpenses, protected...))
	mux.Handle(CreateExpenseProcedure, connect.NewUnaryHandler(CreateExpenseProcedure, s.CreateExpense, protected...))
	mux.Handle(GetExpenseProcedure, connect.NewUnaryHandler(GetExpenseProcedure, s.GetExpense, protected...))
	mux.Handle(UpdateExpenseProcedure, connect.NewUnaryHandler(UpdateExpenseProcedure, s.UpdateExpense, protected...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, s.DeleteExpense, protected...))
}

// currentUser returns the user ID placed in ctx by RequireAuth.
func currentUser(ctx context.Context) (int64, error) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		return 0, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// GetAuthorizationURL starts the OAuth login flow.
func (s *Server) GetAuthorizationURL(ctx context.Context, req *connect.Request[GetAuthorizationURLRequest]) (*connect.Response[GetAuthorizationURLResponse], error) {
	state := auth.NewState()
	return connect.NewResponse(&GetAuthorizationURLResponse{
		URL:   s.identity.AuthCodeURL(state),
		State: state,
	}), nil
}

// Login exchanges an OAuth authorization code for a session token, creating
// the user on first login.
func (s *Server) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	if req.Msg.Code == nil || *req.Msg.Code == "" {
		return nil, invalid("code is required")
	}

	identity, err := s.identity.Exchange(ctx, *req.Msg.Code)
	if errors.Is(err, auth.ErrOAuthCode) {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err != nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, err)
	}

	user, err := s.svc.GetOrCreateUser(ctx, identity.Email, identity.Name)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	return connect.NewResponse(&LoginResponse{Token: token, User: toUser(*user)}), nil
}

// GetCurrentUser returns the authenticated user.
func (s *Server) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[UserResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.svc.GetUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&UserResponse{User: toUser(*user)}), nil
}
