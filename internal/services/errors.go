package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify stage failures. Transform failures
// (external tool, API, timeout, transient) are retried and then quarantined;
// validation failures quarantine immediately; configuration failures abort
// before any file is touched.
var (
	ErrExternalTool  = errors.New("external tool error")
	ErrAPI           = errors.New("api error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a stage error should consume another attempt from
// the retry budget. Validation and configuration failures never succeed on
// retry, so they go straight to quarantine or abort.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return false
	default:
		return true
	}
}

// Kind maps an error to its taxonomy label for quarantine records and logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrAPI):
		return "api"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
