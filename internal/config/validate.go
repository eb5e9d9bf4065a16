package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks value ranges and cross-field consistency. It does not probe
// credentials or binaries; preflight owns the environment checks.
func (c *Config) Validate() error {
	var problems []string

	if c.OCR.Oversample <= 0 {
		problems = append(problems, "ocr.oversample must be positive")
	}
	if c.OCR.EnhancedOversample < c.OCR.Oversample {
		problems = append(problems, "ocr.enhanced_oversample must be at least ocr.oversample")
	}
	if c.OCR.SequentialThresholdMB <= 0 {
		problems = append(problems, "ocr.sequential_threshold_mb must be positive")
	}
	if c.DocAI.PayloadLimitMB <= 0 {
		problems = append(problems, "docai.payload_limit_mb must be positive")
	}
	if c.Workers.Network <= 0 {
		problems = append(problems, "workers.network must be positive")
	}
	if c.Workers.Local < 0 {
		problems = append(problems, "workers.local must not be negative")
	}
	if c.Workers.Retries <= 0 {
		problems = append(problems, "workers.retries must be positive")
	}
	if c.Workers.AttemptTimeoutSeconds <= 0 {
		problems = append(problems, "workers.attempt_timeout_seconds must be positive")
	}
	if c.Verification.AccuracyWarn < 0 || c.Verification.AccuracyWarn > 100 {
		problems = append(problems, "verification.accuracy_warn must be in [0,100]")
	}
	switch c.Verification.SamplePages {
	case "first-last", "all":
	default:
		problems = append(problems, fmt.Sprintf("verification.sample_pages: unsupported value %q", c.Verification.SamplePages))
	}
	if c.Verification.PageCountTolerance < 0 {
		problems = append(problems, "verification.page_count_tolerance must not be negative")
	}
	if c.Gemini.ChunkPages <= 0 {
		problems = append(problems, "gemini.chunk_pages must be positive")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}
	if c.Daemon.PollIntervalSeconds <= 0 {
		problems = append(problems, "daemon.poll_interval_seconds must be positive")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}
