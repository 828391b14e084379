package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/matheus3301/soc/internal/gateway"
	"github.com/matheus3301/soc/internal/identity"
	"github.com/matheus3301/soc/internal/inbox"
	"github.com/matheus3301/soc/internal/outbox"
	msgsync "github.com/matheus3301/soc/internal/sync"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps a domain error onto a gRPC status. Backend failures carry
// the backend's detail as the status message.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}

	msg := err.Error()
	var re *gateway.RequestError
	isRequest := errors.As(err, &re)
	if isRequest {
		msg = re.Message()
	}

	switch {
	case errors.Is(err, identity.ErrNotAuthenticated), gateway.IsUnauthorized(err):
		return grpcstatus.Error(codes.Unauthenticated, msg)
	case errors.Is(err, inbox.ErrNotMounted), errors.Is(err, msgsync.ErrNoDialog):
		return grpcstatus.Error(codes.FailedPrecondition, msg)
	case errors.Is(err, inbox.ErrUnknownDialog):
		return grpcstatus.Error(codes.NotFound, msg)
	case errors.Is(err, outbox.ErrEmptyMessage):
		return grpcstatus.Error(codes.InvalidArgument, msg)
	case errors.Is(err, outbox.ErrSendInFlight):
		return grpcstatus.Error(codes.Aborted, msg)
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, msg)
	case isRequest:
		return grpcstatus.Error(requestCode(re), msg)
	}
	return grpcstatus.Error(codes.Internal, msg)
}

func requestCode(re *gateway.RequestError) codes.Code {
	switch re.Kind {
	case gateway.KindTransport:
		return codes.Unavailable
	case gateway.KindDecode:
		return codes.Internal
	}
	switch {
	case re.Status == http.StatusNotFound:
		return codes.NotFound
	case re.Status == http.StatusForbidden:
		return codes.PermissionDenied
	case re.Status == http.StatusBadRequest, re.Status == http.StatusUnprocessableEntity:
		return codes.InvalidArgument
	case re.Status >= 500:
		return codes.Unavailable
	default:
		return codes.Unknown
	}
}
