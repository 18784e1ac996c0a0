package api

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/MoravianUniversity/cost-sharing/internal/middleware"
	"github.com/MoravianUniversity/cost-sharing/internal/service"
)

var errInternal = errors.New("internal error")

// toConnectError maps a service failure to a Connect error. Storage failures
// are logged and reported without detail.
func toConnectError(ctx context.Context, err error) error {
	var domainErr *service.Error
	if !errors.As(err, &domainErr) {
		slog.Error("Internal error", "request_id", middleware.RequestID(ctx), "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}

	switch domainErr.Kind {
	case service.KindNotFound:
		return connect.NewError(connect.CodeNotFound, domainErr)
	case service.KindForbidden:
		return connect.NewError(connect.CodePermissionDenied, domainErr)
	case service.KindConflict:
		// Aborted is served as HTTP 409.
		return connect.NewError(connect.CodeAborted, domainErr)
	case service.KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, domainErr)
	default:
		slog.Error("Unknown error kind", "request_id", middleware.RequestID(ctx), "kind", domainErr.Kind, "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}
