package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"vecna/internal/logging"
	"vecna/internal/services"
)

func TestConsoleLoggerLiftsContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithEntityID(context.Background(), 12)
	ctx = services.WithStage(ctx, "parsing")
	logger = logging.NewComponentLogger(logging.WithContext(ctx, logger), "executor")
	logger.Info("stage started", logging.String("rulebook", "https://example.com/r.pdf"))

	out := buf.String()
	for _, fragment := range []string{"[executor]", "entity=12", "stage=parsing", "stage started", "- rulebook: https://example.com/r.pdf"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in %q", fragment, out)
		}
	}
}

func TestJSONLoggerUsesRepositoryKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithRequestID(services.WithFamilyID(context.Background(), 3), "req-9")
	logging.WithContext(ctx, logger).Warn("lease reclaimed", logging.Int("count", 2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if record["level"] != "warn" || record["msg"] != "lease reclaimed" {
		t.Fatalf("unexpected record %v", record)
	}
	if record[logging.FieldFamilyID] != float64(3) || record[logging.FieldCorrelationID] != "req-9" {
		t.Fatalf("context fields missing: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key: %v", record)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(logging.Options{Format: "json", Writer: &buf})
	logging.WarnWithContext(logger, "suggestion skipped", "suggestion_skipped")
	out := buf.String()
	if !strings.Contains(out, `"event_type":"suggestion_skipped"`) || !strings.Contains(out, `"error_hint"`) {
		t.Fatalf("expected defaults in %q", out)
	}
}

func TestNopLogger(t *testing.T) {
	logging.NewNop().Error("ignored")
	if logging.WithContext(context.Background(), nil) == nil {
		t.Fatal("expected non-nil logger")
	}
}
