package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("drone_id", "primary")).Info(context.Background(), "check complete",
		Int("conflicts", 2),
		Float64("safety_buffer", 50),
		Bool("safe", false),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "check complete" || rec["drone_id"] != "primary" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["conflicts"].(float64) != 2 || rec["safe"] != false || rec["error"] != "boom" {
		t.Fatalf("unexpected fields %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filtering failed: %q", out)
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a UUID: %v", id, err)
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || RequestIDFromContext(ctx2) != id {
		t.Fatalf("EnsureRequestID replaced existing id: %q vs %q", id2, id)
	}

	ctx3 := ContextWithRequestID(context.Background(), "fixed")
	if _, got := EnsureRequestID(ctx3); got != "fixed" {
		t.Fatalf("EnsureRequestID = %q, want fixed", got)
	}
}

func TestLoggerFromContext(t *testing.T) {
	if LoggerFromContext(context.Background(), nil) == nil {
		t.Fatalf("LoggerFromContext returned nil without fallback")
	}

	var buf bytes.Buffer
	fallback := New(Config{Output: &buf})
	if got := LoggerFromContext(context.Background(), fallback); got != fallback {
		t.Fatalf("expected fallback logger")
	}

	stored := Noop()
	ctx := ContextWithLogger(context.Background(), stored)
	if got := LoggerFromContext(ctx, fallback); got != stored {
		t.Fatalf("expected logger stored on context")
	}
}

func TestWithRequestLoggerAnnotates(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})
	ctx, log := WithRequestLogger(ContextWithRequestID(context.Background(), "req-1"), base)
	log.Info(ctx, "hello")

	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("request_id missing from %q", buf.String())
	}
}
