package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("Expected info level, got %s", log.GetLevel())
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("rows loaded")

	if !strings.Contains(buf.String(), "rows loaded") {
		t.Errorf("Expected output to contain 'rows loaded', got: %s", buf.String())
	}
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantLevel zerolog.Level
		wantJSON  bool
		wantErr   bool
	}{
		{name: "defaults", cfg: Config{}, wantLevel: zerolog.InfoLevel},
		{name: "debug console", cfg: Config{Level: "debug", Format: "console"}, wantLevel: zerolog.DebugLevel},
		{name: "warn json", cfg: Config{Level: "WARN", Format: "json"}, wantLevel: zerolog.WarnLevel, wantJSON: true},
		{name: "bad level", cfg: Config{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log, err := newFromConfig(tt.cfg, buf)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if log.GetLevel() != tt.wantLevel {
				t.Errorf("Expected level %s, got %s", tt.wantLevel, log.GetLevel())
			}

			log.Error().Msg("boom")
			out := buf.String()
			if strings.HasPrefix(out, "{") != tt.wantJSON {
				t.Errorf("Unexpected output format: %s", out)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	ctx := WithContext(context.Background(), New())

	if ctx.Value(LoggerKey) == nil {
		t.Error("Expected logger in context, got nil")
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())

	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"run_id": "abc",
		"chart":  "gender_distribution",
	})
	log.Info().Msg("test message")

	out := buf.String()
	for _, want := range []string{`"run_id":"abc"`, `"chart":"gender_distribution"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %s, got: %s", want, out)
		}
	}
}
