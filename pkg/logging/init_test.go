package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		logType   string
		level     string
		wantError bool
	}{
		{"json/info", JSON, "info", false},
		{"text/debug", Text, "debug", false},
		{"tint/warn", Tint, "warn", false},
		{"json/error", JSON, "error", false},
		{"invalid level", JSON, "bogus", true},
		{"unknown type", "unknown", "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Initialize(tt.logType, tt.level)
			if (err != nil) != tt.wantError {
				t.Errorf("Initialize(%q, %q) error = %v, wantError = %v", tt.logType, tt.level, err, tt.wantError)
			}
		})
	}
}

func TestRedactSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: RedactSecrets}))

	logger.Info("creating account", "email", "a@b.com", "password", "secret", "rootPassword", "secret")

	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("plaintext credential leaked into log: %q", out)
	}
	if !strings.Contains(out, "email=a@b.com") {
		t.Errorf("expected email attribute to survive, got %q", out)
	}
	if strings.Count(out, redacted) != 2 {
		t.Errorf("expected 2 redacted attributes, got %q", out)
	}
}
