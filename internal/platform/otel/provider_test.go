package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/solarfield/internal/platform/otel"
)

func TestSetup_Noop(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		enabled  string
	}{
		{name: "endpoint empty", endpoint: "", enabled: ""},
		{name: "explicitly disabled", endpoint: "http://localhost:4318", enabled: "false"},
		{name: "disabled any case", endpoint: "http://localhost:4318", enabled: "FALSE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SOLARFIELD_OTEL_ENDPOINT", tt.endpoint)
			t.Setenv("SOLARFIELD_OTEL_ENABLED", tt.enabled)

			shutdown, err := otel.Setup(context.Background(), "test-service")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			if err := shutdown(ctx); err != nil {
				t.Fatalf("noop shutdown should not error: %v", err)
			}
		})
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no actual export happens.
	t.Setenv("SOLARFIELD_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("SOLARFIELD_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "test-service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_SampleRatio(t *testing.T) {
	tests := []struct {
		ratio   string
		wantErr bool
	}{
		{ratio: "0.25"},
		{ratio: "1"},
		{ratio: "1.5", wantErr: true},
		{ratio: "half", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ratio, func(t *testing.T) {
			t.Setenv("SOLARFIELD_OTEL_ENDPOINT", "http://192.0.2.1:4318")
			t.Setenv("SOLARFIELD_OTEL_ENABLED", "")
			t.Setenv("SOLARFIELD_OTEL_SAMPLE_RATIO", tt.ratio)

			shutdown, err := otel.Setup(context.Background(), "test-service")
			if (err != nil) != tt.wantErr {
				t.Fatalf("setup error = %v, wantErr %v", err, tt.wantErr)
			}
			if err := shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown error: %v", err)
			}
		})
	}
}

func TestTracerStartsSpans(t *testing.T) {
	tracer := otel.Tracer("projection")
	ctx, span := tracer.Start(context.Background(), "fold")
	defer span.End()
	if ctx == nil {
		t.Fatal("expected span context")
	}
}
