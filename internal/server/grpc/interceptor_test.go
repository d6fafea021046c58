package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/eimzo-auth/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// recordingLogger keeps the messages logged at each level.
type recordingLogger struct {
	mu    sync.Mutex
	debug []string
	warn  []string
}

func (r *recordingLogger) Debug(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, msg)
}
func (r *recordingLogger) Info(context.Context, string, ...any) {}
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warn = append(r.warn, msg)
}
func (r *recordingLogger) Error(context.Context, string, ...any) {}
func (r *recordingLogger) With(...any) logging.Logger            { return r }

func TestInterceptor_PassesThrough(t *testing.T) {
	rec := &recordingLogger{}
	s := NewGRPCServer("", rec, nil)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	handlerCalled := false

	h := func(ctx context.Context, req any) (any, error) {
		handlerCalled = true
		return "ok", nil
	}

	resp, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handlerCalled {
		t.Fatal("handler was not called")
	}
	if resp != "ok" {
		t.Fatalf("unexpected handler resp: %v", resp)
	}
	if len(rec.debug) != 1 || len(rec.warn) != 0 {
		t.Fatalf("expected one debug line, got debug=%v warn=%v", rec.debug, rec.warn)
	}
}

func TestInterceptor_LogsFailures(t *testing.T) {
	rec := &recordingLogger{}
	s := NewGRPCServer("", rec, nil)

	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	h := func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "unknown service")
	}

	_, err := s.loggingInterceptor(context.Background(), nil, info, h)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if len(rec.warn) != 1 || rec.warn[0] != "gRPC call failed" {
		t.Fatalf("expected one warning, got %v", rec.warn)
	}
}
