package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestInit(t *testing.T) {
	if err := Init(Config{Level: "warn"}); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if got := log.Logger.GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("level = %v, want %v", got, zerolog.WarnLevel)
	}

	// Debug wins over an explicit level.
	if err := Init(Config{Level: "error", Debug: true}); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("level = %v, want %v", got, zerolog.DebugLevel)
	}
}

func TestInitInvalidLevel(t *testing.T) {
	if err := Init(Config{Level: "chatty"}); err == nil {
		t.Error("Init() with unknown level should fail")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Output: &buf}); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	l := WithComponent("poller")
	l.Info().Str("address", "hap.local.mesh").Msg("Node added")
	l.Debug().Msg("dropped below info")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "poller" || line["address"] != "hap.local.mesh" || line["level"] != "info" {
		t.Errorf("unexpected log line %v", line)
	}

	if NewTestLogger().GetLevel() != zerolog.Disabled {
		t.Error("test logger should be disabled")
	}
}
