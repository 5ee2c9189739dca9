package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestSetupJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("warn", "json", &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "gateway").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected exactly one json line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["component"] != "gateway" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestSetupDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("bogus", "json", &buf)
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at the default level, got %q", buf.String())
	}
}
