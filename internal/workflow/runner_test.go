package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"docmill/internal/config"
	"docmill/internal/dispatch"
	"docmill/internal/logging"
	"docmill/internal/pipeline"
	"docmill/internal/quarantine"
	"docmill/internal/services"
)

// recordingProvider materializes stage outputs like the real transforms do,
// while recording which document hit which stage.
type recordingProvider struct {
	root string

	mu      sync.Mutex
	calls   map[pipeline.StageName][]string
	failing map[string]pipeline.StageName
}

func newProvider(root string) *recordingProvider {
	return &recordingProvider{
		root:    root,
		calls:   make(map[pipeline.StageName][]string),
		failing: make(map[string]pipeline.StageName),
	}
}

func (p *recordingProvider) record(stage pipeline.StageName, base string) {
	p.mu.Lock()
	p.calls[stage] = append(p.calls[stage], base)
	p.mu.Unlock()
}

func (p *recordingProvider) Collect(context.Context) ([]string, error) { return nil, nil }

func (p *recordingProvider) transform(cfg *config.Config, name pipeline.StageName) dispatch.Transform {
	stage, _ := pipeline.StageByName(cfg, name)
	return func(ctx context.Context, file pipeline.File) (string, error) {
		p.record(name, file.Base)
		if p.failing[file.Base] == name {
			return "", services.Wrap(services.ErrValidation, string(name), "work", "unreadable input", nil)
		}
		out := filepath.Join(p.root, stage.OutputDir,
			pipeline.StageFileName(file.Base, stage.OutputSuffix, stage.OutputExt))
		return out, os.WriteFile(out, []byte("artifact"), 0o644)
	}
}

func (p *recordingProvider) Transforms() map[pipeline.StageName]dispatch.Transform {
	cfg := config.Default()
	return map[pipeline.StageName]dispatch.Transform{
		pipeline.StageRename:  p.transform(&cfg, pipeline.StageRename),
		pipeline.StageClean:   p.transform(&cfg, pipeline.StageClean),
		pipeline.StageConvert: p.transform(&cfg, pipeline.StageConvert),
		pipeline.StageFormat:  p.transform(&cfg, pipeline.StageFormat),
	}
}

func (p *recordingProvider) Upload(_ context.Context, file pipeline.File) (string, error) {
	p.record(pipeline.StageUpload, file.Base)
	return "https://storage.googleapis.com/case-files/" + file.Name, nil
}

func (p *recordingProvider) bases(stage pipeline.StageName) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]string(nil), p.calls[stage]...)
	sort.Strings(out)
	return out
}

func seed(t *testing.T, root, dir, name string) {
	t.Helper()
	p := filepath.Join(root, dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newRunner(t *testing.T, root string, provider StageProvider) *Runner {
	t.Helper()
	cfg := config.Default()
	cfg.Workers.Local = 2
	dispatcher := dispatch.New(&cfg, quarantine.New(root), logging.NewNop())
	return New(&cfg, root, dispatcher, provider, logging.NewNop())
}

// Three documents in one batch: alpha is fully processed and must not be
// touched, bravo only needs the final stage, charlie is fresh and fails its
// first stage permanently.
func TestRunResumesAndQuarantines(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{
		pipeline.DirOriginal, pipeline.DirRenamed, pipeline.DirClean,
	} {
		ext := ".pdf"
		suffix := map[string]string{
			pipeline.DirOriginal: pipeline.SuffixOriginal,
			pipeline.DirRenamed:  pipeline.SuffixRenamed,
			pipeline.DirClean:    pipeline.SuffixClean,
		}[dir]
		seed(t, root, dir, "alpha"+suffix+ext)
		seed(t, root, dir, "bravo"+suffix+ext)
	}
	seed(t, root, pipeline.DirConverted, "alpha_c.txt")
	seed(t, root, pipeline.DirConverted, "bravo_c.txt")
	seed(t, root, pipeline.DirFormatted, "alpha_f.txt")
	seed(t, root, pipeline.DirOriginal, "charlie_d.pdf")

	provider := newProvider(root)
	provider.failing["charlie"] = pipeline.StageRename

	summary, err := newRunner(t, root, provider).Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := provider.bases(pipeline.StageRename); len(got) != 1 || got[0] != "charlie" {
		t.Fatalf("rename ran on %v, want charlie only", got)
	}
	if got := provider.bases(pipeline.StageFormat); len(got) != 1 || got[0] != "bravo" {
		t.Fatalf("format ran on %v, want bravo only", got)
	}
	for _, stage := range []pipeline.StageName{pipeline.StageClean, pipeline.StageConvert} {
		if got := provider.bases(stage); len(got) != 0 {
			t.Fatalf("%s ran on %v, want nothing", stage, got)
		}
	}

	if summary.Succeeded() != 1 || summary.Quarantined() != 1 {
		t.Fatalf("succeeded = %d quarantined = %d", summary.Succeeded(), summary.Quarantined())
	}
	if _, err := os.Stat(filepath.Join(root, pipeline.DirFormatted, "bravo_f.txt")); err != nil {
		t.Fatalf("bravo final artifact missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, pipeline.DirFailed, "rename", "charlie_d.pdf")); err != nil {
		t.Fatalf("charlie not quarantined: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, pipeline.DirOriginal, "charlie_d.pdf")); err != nil {
		t.Fatalf("quarantine must copy, not move: %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := t.TempDir()
	seed(t, root, pipeline.DirOriginal, "alpha_d.pdf")

	provider := newProvider(root)
	runner := newRunner(t, root, provider)

	first, err := runner.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Succeeded() != 4 {
		t.Fatalf("first run succeeded = %d, want one per stage", first.Succeeded())
	}

	second, err := runner.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Succeeded() != 0 {
		t.Fatalf("second run redid work: %+v", second.Stages)
	}
	for _, stage := range second.Stages {
		if stage.Skipped != 1 {
			t.Fatalf("stage %s skipped = %d", stage.Name, stage.Skipped)
		}
	}
}

func TestRunForceReprocesses(t *testing.T) {
	root := t.TempDir()
	seed(t, root, pipeline.DirOriginal, "alpha_d.pdf")

	provider := newProvider(root)
	runner := newRunner(t, root, provider)
	if _, err := runner.Run(context.Background(), Options{}); err != nil {
		t.Fatal(err)
	}

	summary, err := runner.Run(context.Background(), Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Succeeded() != 4 {
		t.Fatalf("force run succeeded = %d", summary.Succeeded())
	}
}

func TestRunOnlyRestrictsStages(t *testing.T) {
	root := t.TempDir()
	seed(t, root, pipeline.DirOriginal, "alpha_d.pdf")

	provider := newProvider(root)
	summary, err := newRunner(t, root, provider).Run(context.Background(),
		Options{Only: []pipeline.StageName{pipeline.StageRename}})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Stages) != 1 || summary.Stages[0].Name != pipeline.StageRename {
		t.Fatalf("stages = %+v", summary.Stages)
	}
	if got := provider.bases(pipeline.StageClean); len(got) != 0 {
		t.Fatalf("clean ran on %v", got)
	}
}

func TestRunUploadPushesCleanedFiles(t *testing.T) {
	root := t.TempDir()
	seed(t, root, pipeline.DirClean, "alpha_o.pdf")
	seed(t, root, pipeline.DirClean, "bravo_o.pdf")

	provider := newProvider(root)
	summary, err := newRunner(t, root, provider).Run(context.Background(),
		Options{Only: []pipeline.StageName{pipeline.StageFormat}, Upload: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := provider.bases(pipeline.StageUpload); len(got) != 2 {
		t.Fatalf("uploads = %v", got)
	}
	last := summary.Stages[len(summary.Stages)-1]
	if last.Name != pipeline.StageUpload || last.Succeeded != 2 {
		t.Fatalf("upload summary = %+v", last)
	}
}
