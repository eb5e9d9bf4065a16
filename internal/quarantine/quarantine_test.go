package quarantine_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"docmill/internal/pipeline"
	"docmill/internal/quarantine"
	"docmill/internal/services"
)

func TestQuarantineCopiesFileAndWritesRecord(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, pipeline.DirRenamed, "brief_r.pdf")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}

	area := quarantine.New(root)
	cause := services.Wrap(services.ErrExternalTool, "clean", "ocr", "exit status 2", fmt.Errorf("boom"))
	record, err := area.Quarantine(pipeline.File{
		Base: "brief",
		Name: "brief_r.pdf",
		Path: src,
	}, pipeline.StageClean, 3, cause)
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}

	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must stay in place for retry: %v", err)
	}
	copied := filepath.Join(root, pipeline.DirFailed, "clean", "brief_r.pdf")
	if _, err := os.Stat(copied); err != nil {
		t.Fatalf("quarantine copy missing: %v", err)
	}
	if record.Kind != "external_tool" {
		t.Fatalf("kind = %q", record.Kind)
	}
	if record.Attempts != 3 {
		t.Fatalf("attempts = %d", record.Attempts)
	}
	if record.ID == "" {
		t.Fatal("record missing id")
	}

	records, err := area.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Base != "brief" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestListEmptyArea(t *testing.T) {
	records, err := quarantine.New(t.TempDir()).List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}
