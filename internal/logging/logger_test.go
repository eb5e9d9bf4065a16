package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestConsoleHandlerRendersComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelInfo)).With(String(FieldComponent, "dispatch"))

	logger.Info("stage started", String(FieldStage, "clean"), Int("files", 3))

	line := buf.String()
	if !strings.Contains(line, " INFO dispatch: stage started") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, "stage=clean") || !strings.Contains(line, "files=3") {
		t.Fatalf("missing attrs in %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelInfo))

	logger.Warn("quarantined", String("reason", "exit status 1"))

	if !strings.Contains(buf.String(), `reason="exit status 1"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestConsoleHandlerLevelGate(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelWarn))

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked past warn gate: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestWithContextFallback(t *testing.T) {
	base := NewNop()
	if got := WithContext(context.Background(), base); got != base {
		t.Fatal("expected fallback logger")
	}

	var buf bytes.Buffer
	stored := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := IntoContext(context.Background(), stored)
	if got := WithContext(ctx, base); got != stored {
		t.Fatal("expected logger from context")
	}
}

func TestFormatValueKinds(t *testing.T) {
	if got := formatValue(slog.DurationValue(1500 * time.Millisecond)); got != "1.5s" {
		t.Fatalf("duration formatted as %q", got)
	}
	if got := formatValue(slog.StringValue("")); got != `""` {
		t.Fatalf("empty string formatted as %q", got)
	}
}
