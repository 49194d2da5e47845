package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/oriys/inkwell/internal/domain"
	"github.com/oriys/inkwell/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusInterceptor turns engine errors into gRPC statuses and logs the
// outcome. Health probes arrive every few seconds, so only failures are
// logged above Debug.
func statusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	err = toStatus(err)

	log := logging.FromContext(ctx).With(
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		log.Warn("gRPC call failed", "error", err)
		return nil, err
	}
	log.Debug("gRPC call")
	return resp, nil
}

// toStatus maps the domain error taxonomy onto gRPC codes. Errors that
// already carry a status keep it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var se *domain.StoreError
	code := codes.Internal
	switch {
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case domain.IsValidation(err):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrConsistency):
		code = codes.Internal
	case errors.As(err, &se):
		code = codes.Unavailable
	}
	return status.Error(code, err.Error())
}
