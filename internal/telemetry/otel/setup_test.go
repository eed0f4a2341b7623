package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, Config{Endpoint: endpoint, ServiceName: "test-service"})
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatal("providers should not be nil")
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("shutdown should be no-op for empty endpoint, got error: %v", err)
		}
	}
}

func TestOTLPTarget(t *testing.T) {
	testCases := []struct {
		name         string
		endpoint     string
		override     bool
		wantTarget   string
		wantInsecure bool
		wantErr      bool
	}{
		{"bare host port", "localhost:4317", false, "localhost:4317", true, false},
		{"http with path", "http://collector:4317/v1/traces", false, "collector:4317", true, false},
		{"https", "https://collector:4317", false, "collector:4317", false, false},
		{"https insecure override", "https://collector:4317", true, "collector:4317", true, false},
		{"missing host", "http://", false, "", false, true},
		{"malformed", "http://[invalid", false, "", false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target, insecure, err := otlpTarget(tc.endpoint, tc.override)
			if tc.wantErr {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("otlpTarget: %v", err)
			}
			if target != tc.wantTarget || insecure != tc.wantInsecure {
				t.Errorf("got (%q, %v), want (%q, %v)", target, insecure, tc.wantTarget, tc.wantInsecure)
			}
		})
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	if _, err := NewProviders(context.Background(), Config{Endpoint: "http://", ServiceName: "svc"}); err == nil {
		t.Error("NewProviders with missing host should fail")
	}
}

func TestSetGlobal(t *testing.T) {
	ctx := context.Background()
	providers, err := NewProviders(ctx, Config{ServiceName: "test-service"})
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	defer func() { _ = providers.Shutdown(ctx) }()
	providers.SetGlobal()
	if otel.GetTracerProvider() != providers.TracerProvider {
		t.Error("global tracer provider not set")
	}
	if otel.GetMeterProvider() != providers.MeterProvider {
		t.Error("global meter provider not set")
	}
}
