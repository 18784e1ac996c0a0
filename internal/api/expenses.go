package api

import (
	"context"

	"connectrpc.com/connect"
)

// ListExpenses returns a group's expenses ordered by date.
func (s *Server) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	expenses, err := s.svc.GetGroupExpenses(ctx, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	out := make([]Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toExpense(e)
	}
	return connect.NewResponse(&ListExpensesResponse{Expenses: out}), nil
}

// CreateExpense records an expense paid by the caller.
func (s *Server) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	input, err := req.Msg.expenseInput()
	if err != nil {
		return nil, err
	}

	expense, err := s.svc.CreateExpense(ctx, req.Msg.GroupID, userID, input)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(expense)}), nil
}

// GetExpense returns one expense of a group the caller belongs to.
func (s *Server) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	expense, err := s.svc.GetExpense(ctx, req.Msg.ExpenseID, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(expense)}), nil
}

// UpdateExpense replaces an expense's fields. Only its payer may call it.
func (s *Server) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[ExpenseResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	input, err := req.Msg.expenseInput()
	if err != nil {
		return nil, err
	}

	expense, err := s.svc.UpdateExpense(ctx, req.Msg.ExpenseID, req.Msg.GroupID, userID, input)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&ExpenseResponse{Expense: toExpense(expense)}), nil
}

// DeleteExpense deletes an expense. Only its payer may call it.
func (s *Server) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[Empty], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.svc.DeleteExpense(ctx, req.Msg.ExpenseID, req.Msg.GroupID, userID); err != nil {
		return nil, toConnectError(ctx, err)
	}
	return connect.NewResponse(&Empty{}), nil
}
