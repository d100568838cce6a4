package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/uav-deconfliction/core"
	"github.com/signalsfoundry/uav-deconfliction/model"
)

var (
	// ErrNotFound is returned when a drone id has no registered mission.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest marks payloads that cannot be decoded into the
	// expected shape.
	ErrInvalidRequest = errors.New("invalid request")
)

// ToStatusError maps service errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidMission),
		errors.Is(err, core.ErrNilMission):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
