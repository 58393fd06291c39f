package observability

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"ai-interview-session-service/internal/observability/metrics"
)

// The session service only serves gRPC health checks and reflection. Both
// interceptors count each call by method and status code so orchestrator
// health checks show up next to the interview metrics.

// UnaryServerInterceptor counts health checks and other unary calls.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		observeCall(m, info.FullMethod, "unary", start, err)
		return resp, err
	}
}

// StreamServerInterceptor counts health watches and reflection streams when
// they close.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		observeCall(m, info.FullMethod, "stream", start, err)
		return err
	}
}

func observeCall(m *metrics.Metrics, method, kind string, start time.Time, err error) {
	code := status.Code(err).String()
	if m != nil {
		m.RecordGRPC(method, code)
	}
	log.Debug().
		Str("method", method).
		Str("kind", kind).
		Str("code", code).
		Dur("took", time.Since(start)).
		Msg("gRPC call served")
}
