package grpc

import (
	"context"
	"testing"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthServerReportsServingAfterMark(t *testing.T) {
	server, err := NewHealthServer("127.0.0.1:0", "field")
	if err != nil {
		t.Fatalf("new health server: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- server.Serve(ctx) }()
	defer func() {
		cancel()
		if err := <-served; err != nil {
			t.Fatalf("serve: %v", err)
		}
	}()

	conn := dialHealthServer(t, server.Addr())
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	resp, err := client.Check(checkCtx, &grpc_health_v1.HealthCheckRequest{Service: "field"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.GetStatus())
	}

	server.MarkServing()
	if err := Probe(context.Background(), server.Addr(), 2*time.Second, t.Logf); err != nil {
		t.Fatalf("probe: %v", err)
	}

	server.MarkNotServing()
	if err := Probe(context.Background(), server.Addr(), 300*time.Millisecond, nil); err == nil {
		t.Fatal("expected probe to time out once not serving")
	}
}

func TestNewHealthServerRequiresAddr(t *testing.T) {
	if _, err := NewHealthServer(" "); err == nil {
		t.Fatal("expected error for empty address")
	}
}
