package pdftext_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docmill/internal/pdftext"
)

func TestPageCountRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not_a_pdf.pdf")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := pdftext.PageCount(path); err == nil {
		t.Fatal("expected error for non-PDF input")
	}
}

func TestExtractPagesMissingFile(t *testing.T) {
	_, err := pdftext.ExtractPages(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
