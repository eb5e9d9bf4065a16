package services_test

import (
	"errors"
	"testing"

	"docmill/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("exit status 2")
	err := services.Wrap(services.ErrExternalTool, "clean", "run ocrmypdf", "OCR pass failed", inner)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected inner error preserved, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "convert", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", services.Wrap(services.ErrValidation, "convert", "", "bad artifact", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "", "", "missing bucket", nil), false},
		{"timeout", services.Wrap(services.ErrTimeout, "format", "", "", nil), true},
		{"api", services.Wrap(services.ErrAPI, "format", "", "", nil), true},
		{"plain", errors.New("boom"), true},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestKind(t *testing.T) {
	if got := services.Kind(services.Wrap(services.ErrAPI, "convert", "", "", nil)); got != "api" {
		t.Fatalf("Kind=%q, want api", got)
	}
	if got := services.Kind(errors.New("x")); got != "transient" {
		t.Fatalf("Kind=%q, want transient", got)
	}
	if got := services.Kind(nil); got != "" {
		t.Fatalf("Kind(nil)=%q, want empty", got)
	}
}
