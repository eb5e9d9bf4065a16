package fileutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"docmill/internal/fileutil"
)

func TestCopyFileVerifiedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")
	payload := []byte("not really a pdf, but sized and hashable")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		t.Fatalf("CopyFileVerified: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read copy: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("copy content mismatch: got %q", got)
	}
}

func TestCopyFileVerifiedMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := fileutil.CopyFileVerified(filepath.Join(dir, "absent"), filepath.Join(dir, "out"))
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.pdf")
	dst := filepath.Join(dir, "sub", "b.pdf")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fileutil.EnsureDir(filepath.Dir(dst)); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	if err := fileutil.MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present, err=%v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("destination missing: %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	if err := fileutil.WriteFileAtomic(path, []byte("a,b\n"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "a,b\n" {
		t.Fatalf("unexpected content %q", got)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only final file, found %d entries", len(entries))
	}
}
