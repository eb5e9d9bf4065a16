package ocrmypdf

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docmill/internal/config"
	"docmill/internal/services"
)

func TestCleanStandardProfileArgs(t *testing.T) {
	cfg := config.Default()
	svc := New(&cfg)
	var captured []string
	svc.SetCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		captured = append([]string{name}, args...)
		return nil, nil
	})

	if err := svc.Clean(context.Background(), "in.pdf", "out.pdf", false); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	joined := strings.Join(captured, " ")
	for _, want := range []string{"ocrmypdf", "--skip-text", "--oversample 600", "--optimize 3", "--output-type pdfa", "in.pdf out.pdf"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
	if strings.Contains(joined, "--force-ocr") {
		t.Fatal("standard profile must not force OCR")
	}
}

func TestCleanEnhancedProfileArgs(t *testing.T) {
	cfg := config.Default()
	svc := New(&cfg)
	var captured []string
	svc.SetCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		captured = args
		return nil, nil
	})

	if err := svc.Clean(context.Background(), "in.pdf", "out.pdf", true); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	joined := strings.Join(captured, " ")
	for _, want := range []string{"--force-ocr", "--deskew", "--remove-background", "--oversample 1200", "--jpeg-quality 95"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("enhanced args %q missing %q", joined, want)
		}
	}
}

func TestCleanWrapsToolFailure(t *testing.T) {
	cfg := config.Default()
	svc := New(&cfg)
	svc.SetCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("PriorOcrFoundError: page already has text"), errors.New("exit status 6")
	})

	err := svc.Clean(context.Background(), "in.pdf", "out.pdf", false)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "PriorOcrFoundError") {
		t.Fatalf("tool output not surfaced: %v", err)
	}
}
