package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID back to the client.
const RequestIDHeader = "X-Request-Id"

// requestInfo is shared between interceptors of one call so the logger can
// report the user that an inner auth interceptor resolved.
type requestInfo struct {
	requestID string
	userID    int64
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// RequestID returns the ID LoggingInterceptor assigned to the current call.
func RequestID(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.requestID
	}
	return ""
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It must wrap the auth interceptors to see the authenticated user.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			info := &requestInfo{requestID: req.Header().Get(RequestIDHeader)}
			if info.requestID == "" {
				info.requestID = uuid.NewString()
			}
			ctx = context.WithValue(ctx, requestInfoKey, info)

			resp, err := next(ctx, req)

			attrs := []any{
				"request_id", info.requestID,
				"procedure", procedure,
				"user_id", info.userID,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					connectErr.Meta().Set(RequestIDHeader, info.requestID)
					if connectErr.Code() == connect.CodeInternal || connectErr.Code() == connect.CodeUnknown {
						slog.Error("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
					} else {
						slog.Warn("RPC error", append(attrs, "code", connectErr.Code(), "error", connectErr.Message())...)
					}
				} else {
					slog.Error("RPC error", append(attrs, "error", err)...)
				}
				return resp, err
			}

			resp.Header().Set(RequestIDHeader, info.requestID)
			slog.Info("RPC ok", attrs...)
			return resp, nil
		}
	}
}
