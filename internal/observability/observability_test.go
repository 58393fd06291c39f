package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"ai-interview-session-service/internal/observability/metrics"
)

func TestHandler_Endpoints(t *testing.T) {
	ready := false
	h := Handler(func() bool { return ready })

	tests := []struct {
		name   string
		path   string
		ready  bool
		status int
	}{
		{"healthz", "/healthz", false, http.StatusOK},
		{"readyz not ready", "/readyz", false, http.StatusServiceUnavailable},
		{"readyz ready", "/readyz", true, http.StatusOK},
		{"metrics", "/metrics", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ready = tt.ready
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
			}
		})
	}
}

func TestHandler_NilReadyIsReady(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestUnaryServerInterceptor_PassesThrough(t *testing.T) {
	icpt := UnaryServerInterceptor(metrics.DefaultMetrics)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	resp, err := icpt(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "resp", nil
	})
	if err != nil || resp != "resp" {
		t.Errorf("expected pass-through, got %v, %v", resp, err)
	}

	want := status.Error(codes.Unavailable, "down")
	_, err = icpt(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected handler error returned, got %v", err)
	}
}

func TestStreamServerInterceptor_ReturnsHandlerError(t *testing.T) {
	icpt := StreamServerInterceptor(nil)
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch", IsServerStream: true}

	if err := icpt(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error { return nil }); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	want := status.Error(codes.Canceled, "watch closed")
	if err := icpt(nil, nil, info, func(srv interface{}, ss grpc.ServerStream) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected handler error returned, got %v", err)
	}
}
