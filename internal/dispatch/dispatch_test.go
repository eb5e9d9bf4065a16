package dispatch_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"docmill/internal/config"
	"docmill/internal/dispatch"
	"docmill/internal/logging"
	"docmill/internal/pipeline"
	"docmill/internal/quarantine"
	"docmill/internal/services"
	"docmill/internal/testsupport"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Workers.Network = 4
	cfg.Workers.Local = 4
	cfg.Workers.Retries = 3
	cfg.Workers.AttemptTimeoutSeconds = 5
	return &cfg
}

func newDispatcher(t *testing.T, cfg *config.Config) (*dispatch.Dispatcher, string) {
	t.Helper()
	root := t.TempDir()
	return dispatch.New(cfg, quarantine.New(root), logging.NewNop()), root
}

func stageFile(t *testing.T, root, name string, size int) pipeline.File {
	t.Helper()
	path := filepath.Join(root, pipeline.DirRenamed, name)
	testsupport.WriteFile(t, path, int64(size))
	return pipeline.File{
		Base: pipeline.NormalizeBase(name),
		Name: name,
		Path: path,
		Size: int64(size),
	}
}

func TestRunPartitionAndOrdering(t *testing.T) {
	cfg := testConfig()
	d, root := newDispatcher(t, cfg)
	stage := pipeline.Stage{Name: pipeline.StageClean, Threshold: 1000, Resource: pipeline.ResourceLocal}

	files := []pipeline.File{
		stageFile(t, root, "small1_r.pdf", 100),
		stageFile(t, root, "small2_r.pdf", 200),
		stageFile(t, root, "big1_r.pdf", 1000),
		stageFile(t, root, "big2_r.pdf", 2000),
	}

	var mu sync.Mutex
	var order []string
	transform := func(ctx context.Context, file pipeline.File) (string, error) {
		mu.Lock()
		order = append(order, file.Base)
		mu.Unlock()
		return file.Path, nil
	}

	results, err := d.Run(context.Background(), stage, files, transform)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Status != dispatch.StatusSuccess {
			t.Fatalf("file %q not successful: %v", result.File.Base, result.Err)
		}
	}

	// The sequential pass starts only after the parallel pass drains, and
	// runs size-ascending.
	if len(order) != 4 {
		t.Fatalf("order recorded %d entries", len(order))
	}
	if order[2] != "big1" || order[3] != "big2" {
		t.Fatalf("sequential files out of order: %v", order)
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	cfg := testConfig()
	d, root := newDispatcher(t, cfg)
	stage := pipeline.Stage{Name: pipeline.StageConvert, Resource: pipeline.ResourceNetwork}
	file := stageFile(t, root, "flaky_o.pdf", 10)

	var mu sync.Mutex
	calls := 0
	transform := func(ctx context.Context, f pipeline.File) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return "", services.Wrap(services.ErrTransient, "convert", "api", "503", nil)
		}
		return f.Path, nil
	}

	results, err := d.Run(context.Background(), stage, []pipeline.File{file}, transform)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Status != dispatch.StatusSuccess {
		t.Fatalf("expected success after retries, got %v (%v)", results[0].Status, results[0].Err)
	}
	if results[0].Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", results[0].Attempts)
	}
}

func TestRunQuarantinesOnExhaustion(t *testing.T) {
	cfg := testConfig()
	d, root := newDispatcher(t, cfg)
	stage := pipeline.Stage{Name: pipeline.StageClean, Resource: pipeline.ResourceLocal}
	file := stageFile(t, root, "doomed_r.pdf", 10)

	transform := func(ctx context.Context, f pipeline.File) (string, error) {
		return "", services.Wrap(services.ErrExternalTool, "clean", "ocr", "exit status 1", nil)
	}

	results, err := d.Run(context.Background(), stage, []pipeline.File{file}, transform)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Status != dispatch.StatusQuarantined {
		t.Fatalf("expected quarantine, got %v", results[0].Status)
	}
	if results[0].Attempts != cfg.Workers.Retries {
		t.Fatalf("attempts = %d, want full budget %d", results[0].Attempts, cfg.Workers.Retries)
	}
	quarantined := filepath.Join(root, pipeline.DirFailed, "clean", "doomed_r.pdf")
	if _, err := os.Stat(quarantined); err != nil {
		t.Fatalf("quarantined file missing: %v", err)
	}
}

func TestRunSkipsRetriesForPermanentErrors(t *testing.T) {
	cfg := testConfig()
	d, root := newDispatcher(t, cfg)
	stage := pipeline.Stage{Name: pipeline.StageFormat, Resource: pipeline.ResourceNetwork}
	file := stageFile(t, root, "bad_c.pdf", 10)

	var mu sync.Mutex
	calls := 0
	transform := func(ctx context.Context, f pipeline.File) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return "", services.Wrap(services.ErrValidation, "format", "markers", "page 1 marker missing", nil)
	}

	results, err := d.Run(context.Background(), stage, []pipeline.File{file}, transform)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results[0].Status != dispatch.StatusQuarantined {
		t.Fatalf("expected quarantine, got %v", results[0].Status)
	}
	if calls != 1 {
		t.Fatalf("validation error should not be retried, got %d calls", calls)
	}
}

func TestRunContinuesAfterFailures(t *testing.T) {
	cfg := testConfig()
	d, root := newDispatcher(t, cfg)
	stage := pipeline.Stage{Name: pipeline.StageClean, Resource: pipeline.ResourceLocal}
	files := []pipeline.File{
		stageFile(t, root, "ok1_r.pdf", 10),
		stageFile(t, root, "fail_r.pdf", 20),
		stageFile(t, root, "ok2_r.pdf", 30),
	}

	transform := func(ctx context.Context, f pipeline.File) (string, error) {
		if f.Base == "fail" {
			return "", services.Wrap(services.ErrValidation, "clean", "check", "corrupt xref", nil)
		}
		return f.Path, nil
	}

	results, err := d.Run(context.Background(), stage, files, transform)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	successes, quarantined := 0, 0
	for _, result := range results {
		switch result.Status {
		case dispatch.StatusSuccess:
			successes++
		case dispatch.StatusQuarantined:
			quarantined++
		}
	}
	if successes != 2 || quarantined != 1 {
		t.Fatalf("successes=%d quarantined=%d", successes, quarantined)
	}
}
