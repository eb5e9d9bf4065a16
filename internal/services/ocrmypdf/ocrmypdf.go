// Package ocrmypdf wraps the ocrmypdf binary that rasterizes, OCRs, and
// compresses scanned PDFs into PDF/A with an embedded text layer.
package ocrmypdf

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"docmill/internal/config"
	"docmill/internal/services"
)

var commandContext = exec.CommandContext

// Service runs OCR cleaning with either the standard or the enhanced
// settings profile.
type Service struct {
	binary             string
	oversample         int
	enhancedOversample int
	timeout            time.Duration

	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New builds the service from configuration.
func New(cfg *config.Config) *Service {
	return &Service{
		binary:             cfg.OCR.Binary,
		oversample:         cfg.OCR.Oversample,
		enhancedOversample: cfg.OCR.EnhancedOversample,
		timeout:            time.Duration(cfg.OCR.TimeoutSeconds) * time.Second,
	}
}

// SetCommandRunner overrides subprocess execution, for tests.
func (s *Service) SetCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	s.commandRunner = runner
}

// Clean OCRs input into output. The standard profile skips pages that already
// carry text; the enhanced profile forces full-page OCR at a higher
// oversample with deskew, artifact cleanup, and background removal, which is
// slow and reserved for documents that scored critically low.
func (s *Service) Clean(ctx context.Context, input, output string, enhanced bool) error {
	args := s.args(input, output, enhanced)
	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.run(runCtx, args)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "clean", "ocr", s.binary+" exceeded "+s.timeout.String(), err)
		}
		detail := strings.TrimSpace(string(out))
		if len(detail) > 400 {
			detail = detail[:400]
		}
		return services.Wrap(services.ErrExternalTool, "clean", "ocr", detail, err)
	}
	return nil
}

func (s *Service) args(input, output string, enhanced bool) []string {
	if enhanced {
		return []string{
			"--force-ocr",
			"--deskew",
			"--clean",
			"--rotate-pages",
			"--remove-background",
			"--optimize", "1",
			"--oversample", strconv.Itoa(s.enhancedOversample),
			"--jpeg-quality", "95",
			"--output-type", "pdfa",
			input, output,
		}
	}
	return []string{
		"--skip-text",
		"--output-type", "pdfa",
		"--oversample", strconv.Itoa(s.oversample),
		"--optimize", "3",
		input, output,
	}
}

func (s *Service) run(ctx context.Context, args []string) ([]byte, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, s.binary, args...)
	}
	cmd := commandContext(ctx, s.binary, args...) //nolint:gosec
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.Bytes(), err
}
