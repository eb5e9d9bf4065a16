package pipeline_test

import (
	"path/filepath"
	"testing"

	"docmill/internal/config"
	"docmill/internal/pipeline"
	"docmill/internal/testsupport"
)

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteFile(t, path, int64(size))
	return path
}

func TestNormalizeBase(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Smith_Deposition_d.pdf", "smith_deposition"},
		{"Smith_Deposition_r.pdf", "smith_deposition"},
		{"Smith_Deposition_o.pdf", "smith_deposition"},
		{"Smith_Deposition_c.txt", "smith_deposition"},
		{"Smith_Deposition_f.txt", "smith_deposition"},
		{"Smith_Deposition_v31.txt", "smith_deposition"},
		{"Smith_Deposition_gp.txt", "smith_deposition"},
		{"SMITH_DEPOSITION.pdf", "smith_deposition"},
		{"exhibit_14.pdf", "exhibit_14"},
		{"exhibit_14_d.pdf", "exhibit_14"},
	}
	for _, tc := range cases {
		if got := pipeline.NormalizeBase(tc.name); got != tc.want {
			t.Errorf("NormalizeBase(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSuffixOf(t *testing.T) {
	if got := pipeline.SuffixOf("brief_o.pdf"); got != pipeline.SuffixClean {
		t.Fatalf("SuffixOf = %q", got)
	}
	if got := pipeline.SuffixOf("brief.pdf"); got != "" {
		t.Fatalf("expected no suffix, got %q", got)
	}
	if got := pipeline.SuffixOf("brief_v31.txt"); got != "_v31" {
		t.Fatalf("legacy suffix = %q", got)
	}
}

func TestScanSkipsNonCandidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one_d.pdf", 10)
	writeFile(t, dir, "two_d.PDF", 20)
	writeFile(t, dir, "notes.txt", 5)
	writeFile(t, dir, "_scratch.pdf", 5)
	writeFile(t, dir, ".hidden.pdf", 5)
	writeFile(t, filepath.Join(dir, "subdir"), "three_d.pdf", 5)

	manifest, err := pipeline.Scan(dir, ".pdf")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(manifest) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(manifest), manifest.Bases())
	}
	if _, ok := manifest["one"]; !ok {
		t.Fatal("missing base \"one\"")
	}
	if _, ok := manifest["two"]; !ok {
		t.Fatal("missing base \"two\" (extension match must be case-insensitive)")
	}
}

func TestScanMissingDirIsEmpty(t *testing.T) {
	manifest, err := pipeline.Scan(filepath.Join(t.TempDir(), "absent"), ".pdf")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(manifest) != 0 {
		t.Fatalf("expected empty manifest, got %d entries", len(manifest))
	}
}

func TestScanDuplicateBaseKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "case_d.pdf", 10)
	writeFile(t, dir, "case_r.pdf", 20)

	manifest, err := pipeline.Scan(dir, ".pdf")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	file, ok := manifest["case"]
	if !ok {
		t.Fatal("missing base \"case\"")
	}
	if file.Name != "case_d.pdf" {
		t.Fatalf("expected lexicographically first winner, got %q", file.Name)
	}
}

func TestPlanDelta(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	writeFile(t, in, "alpha_r.pdf", 300)
	writeFile(t, in, "bravo_r.pdf", 100)
	writeFile(t, in, "charlie_r.pdf", 200)
	writeFile(t, out, "Bravo_o.pdf", 50)

	input, err := pipeline.Scan(in, ".pdf")
	if err != nil {
		t.Fatalf("scan input: %v", err)
	}
	output, err := pipeline.Scan(out, ".pdf")
	if err != nil {
		t.Fatalf("scan output: %v", err)
	}

	pending := pipeline.Plan(input, output, false)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].Base != "charlie" || pending[1].Base != "alpha" {
		t.Fatalf("wrong order: %q, %q", pending[0].Base, pending[1].Base)
	}

	forced := pipeline.Plan(input, output, true)
	if len(forced) != 3 {
		t.Fatalf("force should return every input, got %d", len(forced))
	}
}

func TestPlanIdempotence(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	for _, name := range []string{"a_r.pdf", "b_r.pdf", "c_r.pdf"} {
		writeFile(t, in, name, 10)
	}

	input, _ := pipeline.Scan(in, ".pdf")
	output, _ := pipeline.Scan(out, ".pdf")
	for _, file := range pipeline.Plan(input, output, false) {
		writeFile(t, out, file.Base+"_o.pdf", 10)
	}

	output, _ = pipeline.Scan(out, ".pdf")
	if rerun := pipeline.Plan(input, output, false); len(rerun) != 0 {
		t.Fatalf("re-run should plan zero files, got %d", len(rerun))
	}
}

func TestPartitionStrictBoundary(t *testing.T) {
	files := []pipeline.File{
		{Base: "s1", Size: 100},
		{Base: "s2", Size: 999},
		{Base: "b1", Size: 1000},
		{Base: "b2", Size: 4000},
	}
	parallel, sequential := pipeline.Partition(files, 1000)
	if len(parallel) != 2 || len(sequential) != 2 {
		t.Fatalf("split %d/%d, want 2/2", len(parallel), len(sequential))
	}
	for _, f := range parallel {
		if f.Size >= 1000 {
			t.Fatalf("file %q at/above threshold leaked into parallel pass", f.Base)
		}
	}
	for _, f := range sequential {
		if f.Size < 1000 {
			t.Fatalf("file %q below threshold leaked into sequential pass", f.Base)
		}
	}

	parallel, sequential = pipeline.Partition(files, 0)
	if len(parallel) != 4 || sequential != nil {
		t.Fatal("zero threshold must keep everything parallel")
	}
}

func TestHistoryTracksObservedStages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, pipeline.DirOriginal), "brief_d.pdf", 10)
	writeFile(t, filepath.Join(root, pipeline.DirRenamed), "brief_r.pdf", 10)
	writeFile(t, filepath.Join(root, pipeline.DirClean), "brief_o.pdf", 10)

	cfg := config.Default()
	history, err := pipeline.History(&cfg, root, "brief")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []string{pipeline.SuffixOriginal, pipeline.SuffixRenamed, pipeline.SuffixClean}
	if len(history) != len(want) {
		t.Fatalf("history = %v", history)
	}
	for i := range want {
		if history[i] != want[i] {
			t.Fatalf("history = %v, want %v", history, want)
		}
	}
}

func TestStagesWiring(t *testing.T) {
	cfg := config.Default()
	stages := pipeline.Stages(&cfg)
	if len(stages) != 4 {
		t.Fatalf("expected 4 planner-driven stages, got %d", len(stages))
	}
	if stages[0].Name != pipeline.StageRename || stages[3].Name != pipeline.StageFormat {
		t.Fatalf("stage order wrong: %v ... %v", stages[0].Name, stages[3].Name)
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].InputDir != stages[i-1].OutputDir {
			t.Fatalf("stage %s does not consume output of %s", stages[i].Name, stages[i-1].Name)
		}
		if stages[i].InputSuffix != stages[i-1].OutputSuffix {
			t.Fatalf("suffix chain broken at %s", stages[i].Name)
		}
	}

	clean, ok := pipeline.StageByName(&cfg, pipeline.StageClean)
	if !ok {
		t.Fatal("clean stage missing")
	}
	if clean.Threshold != int64(cfg.OCR.SequentialThresholdMB)*1024*1024 {
		t.Fatalf("clean threshold = %d", clean.Threshold)
	}
	if clean.Resource != pipeline.ResourceLocal {
		t.Fatal("clean should use the local pool")
	}
	convert, _ := pipeline.StageByName(&cfg, pipeline.StageConvert)
	if convert.Resource != pipeline.ResourceNetwork {
		t.Fatal("convert should use the network pool")
	}
	if convert.OutputExt != ".txt" {
		t.Fatalf("convert output ext = %q", convert.OutputExt)
	}
}
