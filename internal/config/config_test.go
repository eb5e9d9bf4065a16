package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docmill/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Workers.Retries != 3 {
		t.Fatalf("expected default retry budget, got %d", cfg.Workers.Retries)
	}
	if cfg.Verification.SamplePages != "first-last" {
		t.Fatalf("expected default sampling, got %q", cfg.Verification.SamplePages)
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docmill.toml")
	content := `
[storage]
bucket = "legal-docs"
prefix = "/cases/"

[ocr]
sequential_threshold_mb = 10

[verification]
sample_pages = "ALL"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to resolve, exists=%v path=%q", exists, resolved)
	}
	if cfg.Storage.Bucket != "legal-docs" {
		t.Fatalf("bucket=%q", cfg.Storage.Bucket)
	}
	if cfg.Storage.Prefix != "cases" {
		t.Fatalf("prefix not trimmed: %q", cfg.Storage.Prefix)
	}
	if cfg.OCR.SequentialThresholdMB != 10 {
		t.Fatalf("threshold=%d", cfg.OCR.SequentialThresholdMB)
	}
	if cfg.Verification.SamplePages != "all" {
		t.Fatalf("sample_pages not lowercased: %q", cfg.Verification.SamplePages)
	}
}

func TestLoadRejectsBadSampling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docmill.toml")
	if err := os.WriteFile(path, []byte("[verification]\nsample_pages = \"middle\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "sample_pages") {
		t.Fatalf("expected sample_pages validation error, got %v", err)
	}
}

func TestValidateRanges(t *testing.T) {
	cfg := config.Default()
	cfg.Workers.Retries = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero retry budget")
	}

	cfg = config.Default()
	cfg.OCR.EnhancedOversample = cfg.OCR.Oversample - 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for enhanced oversample below base")
	}

	cfg = config.Default()
	cfg.Verification.AccuracyWarn = 120
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for out-of-range accuracy threshold")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[verification]") {
		t.Fatal("sample missing verification section")
	}
}
