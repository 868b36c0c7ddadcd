package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/llmmeter/llmmeter/config"
)

func TestNormalizeOTLPEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		input         string
		wantEndpoint  string
		wantInsecure  bool
		wantErrSubstr string
	}{
		{
			name:         "host and port",
			input:        "collector:4318",
			wantEndpoint: "collector:4318",
		},
		{
			name:         "http url",
			input:        "http://collector:4318",
			wantEndpoint: "collector:4318",
			wantInsecure: true,
		},
		{
			name:         "https url",
			input:        "https://collector:4318",
			wantEndpoint: "collector:4318",
		},
		{
			name:          "invalid scheme",
			input:         "ftp://collector:4318",
			wantErrSubstr: "scheme must be http or https",
		},
		{
			name:          "empty endpoint",
			input:         "   ",
			wantErrSubstr: "must not be empty",
		},
		{
			name:          "url without host",
			input:         "http://",
			wantErrSubstr: "must include host",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			endpoint, insecure, err := normalizeOTLPEndpoint(tt.input)
			if tt.wantErrSubstr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErrSubstr) {
					t.Fatalf("normalizeOTLPEndpoint() error = %v, want substring %q", err, tt.wantErrSubstr)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeOTLPEndpoint() error: %v", err)
			}
			if endpoint != tt.wantEndpoint {
				t.Fatalf("endpoint = %q, want %q", endpoint, tt.wantEndpoint)
			}
			if insecure != tt.wantInsecure {
				t.Fatalf("insecure = %v, want %v", insecure, tt.wantInsecure)
			}
		})
	}
}

func TestSetupDisabled(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runtime, err := Setup(context.Background(), config.OTelConfig{Enabled: false}, "test", logger)
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if runtime.Enabled() {
		t.Fatal("Runtime.Enabled() = true for disabled config")
	}
	if err := runtime.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}
}

func TestSetupRejectsBadEndpoint(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := Setup(context.Background(), config.OTelConfig{
		Enabled:       true,
		Endpoint:      "ftp://collector",
		TracesEnabled: true,
	}, "test", logger)
	if err == nil {
		t.Fatal("Setup() succeeded with invalid endpoint scheme")
	}
}
