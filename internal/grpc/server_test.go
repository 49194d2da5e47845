package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oriys/inkwell/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubPinger struct {
	fail atomic.Bool
}

func (p *stubPinger) Ping(context.Context) error {
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func startServer(t *testing.T, pinger Pinger) grpc_health_v1.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(Config{Store: pinger, CheckInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Serve returned %v", err)
		}
	})
	return grpc_health_v1.NewHealthClient(conn)
}

func waitForStatus(t *testing.T, client grpc_health_v1.HealthClient, service string, want grpc_health_v1.HealthCheckResponse_ServingStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
		if err == nil && resp.GetStatus() == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("health of %q never became %v (last: %v, %v)", service, want, resp.GetStatus(), err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealthFollowsStore(t *testing.T) {
	pinger := &stubPinger{}
	client := startServer(t, pinger)

	waitForStatus(t, client, "", grpc_health_v1.HealthCheckResponse_SERVING)
	waitForStatus(t, client, ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	pinger.fail.Store(true)
	waitForStatus(t, client, ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	pinger.fail.Store(false)
	waitForStatus(t, client, ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: 3", domain.ErrPostNotFound), codes.NotFound},
		{&domain.ValidationError{Field: "title", Reason: "is required"}, codes.InvalidArgument},
		{&domain.StoreError{Op: "get_post", Err: errors.New("timeout")}, codes.Unavailable},
		{errors.New("boom"), codes.Internal},
		{domain.ConsistencyFault("increment_likes", 3, "absent from cache"), codes.Internal},
		{fmt.Errorf("load: %w", context.DeadlineExceeded), codes.DeadlineExceeded},
		{status.Error(codes.Canceled, "gone"), codes.Canceled},
	}
	if toStatus(nil) != nil {
		t.Fatal("toStatus(nil) must be nil")
	}
	for _, tt := range tests {
		if got := status.Code(toStatus(tt.err)); got != tt.want {
			t.Errorf("toStatus(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
