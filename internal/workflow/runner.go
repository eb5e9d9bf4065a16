// Package workflow drives a full batch run: collect loose files, then walk
// the planner-driven stages in order, dispatching only the pending work for
// each. A stage's failures never stop the batch; later stages simply see no
// input for the documents that fell out.
package workflow

import (
	"context"
	"log/slog"
	"path/filepath"

	"docmill/internal/config"
	"docmill/internal/dispatch"
	"docmill/internal/fileutil"
	"docmill/internal/logging"
	"docmill/internal/pipeline"
)

// StageProvider supplies the per-stage work. stages.Service is the
// production implementation.
type StageProvider interface {
	Collect(ctx context.Context) ([]string, error)
	Transforms() map[pipeline.StageName]dispatch.Transform
	Upload(ctx context.Context, file pipeline.File) (string, error)
}

// Options tunes one batch run.
type Options struct {
	// Force reprocesses every input even when its output already exists.
	Force bool

	// Only restricts the run to the named planner stages. Empty means all.
	Only []pipeline.StageName

	// Upload pushes cleaned PDFs to object storage after the stages finish.
	// The bucket precondition makes re-uploads of existing objects free.
	Upload bool
}

// StageResult tallies one stage of one run.
type StageResult struct {
	Name        pipeline.StageName
	Planned     int
	Skipped     int
	Succeeded   int
	Quarantined int
}

// Summary reports a whole batch run.
type Summary struct {
	Collected []string
	Stages    []StageResult
}

// Succeeded sums successful files across stages.
func (s Summary) Succeeded() int {
	n := 0
	for _, stage := range s.Stages {
		n += stage.Succeeded
	}
	return n
}

// Quarantined sums quarantined files across stages.
func (s Summary) Quarantined() int {
	n := 0
	for _, stage := range s.Stages {
		n += stage.Quarantined
	}
	return n
}

// Runner executes batch runs against one batch root.
type Runner struct {
	cfg        *config.Config
	root       string
	dispatcher *dispatch.Dispatcher
	provider   StageProvider
	logger     *slog.Logger
}

// New builds a runner.
func New(cfg *config.Config, root string, dispatcher *dispatch.Dispatcher, provider StageProvider, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		root:       root,
		dispatcher: dispatcher,
		provider:   provider,
		logger:     logging.WithComponent(logger, "workflow"),
	}
}

// EnsureLayout creates the stage directory tree under the batch root.
func (r *Runner) EnsureLayout() error {
	for _, dir := range pipeline.StageDirs() {
		if err := fileutil.EnsureDir(filepath.Join(r.root, dir)); err != nil {
			return err
		}
	}
	return nil
}

// Run executes one batch pass: layout, collect, then each planner stage in
// order. It returns early only on context cancellation; per-file failures
// are quarantined and counted, and the remaining stages still run.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary
	if err := r.EnsureLayout(); err != nil {
		return summary, err
	}

	collected, err := r.provider.Collect(ctx)
	if err != nil {
		return summary, err
	}
	summary.Collected = collected

	transforms := r.provider.Transforms()
	for _, stage := range pipeline.Stages(r.cfg) {
		if !stageSelected(stage.Name, opts.Only) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		result, err := r.runStage(ctx, stage, transforms[stage.Name], opts.Force)
		summary.Stages = append(summary.Stages, result)
		if err != nil {
			return summary, err
		}
	}

	if opts.Upload {
		result, err := r.runUpload(ctx)
		summary.Stages = append(summary.Stages, result)
		if err != nil {
			return summary, err
		}
	}

	r.logger.InfoContext(ctx, "batch finished", logging.Args(
		logging.Int("collected", len(summary.Collected)),
		logging.Int("succeeded", summary.Succeeded()),
		logging.Int("quarantined", summary.Quarantined()),
	)...)
	return summary, nil
}

func (r *Runner) runStage(ctx context.Context, stage pipeline.Stage, transform dispatch.Transform, force bool) (StageResult, error) {
	result := StageResult{Name: stage.Name}

	input, err := pipeline.Scan(filepath.Join(r.root, stage.InputDir), stage.InputExt)
	if err != nil {
		return result, err
	}
	output, err := pipeline.Scan(filepath.Join(r.root, stage.OutputDir), stage.OutputExt)
	if err != nil {
		return result, err
	}

	pending := pipeline.Plan(input, output, force)
	result.Planned = len(pending)
	result.Skipped = len(input) - len(pending)
	if len(pending) == 0 {
		return result, nil
	}

	results, err := r.dispatcher.Run(ctx, stage, pending, transform)
	for _, fr := range results {
		switch fr.Status {
		case dispatch.StatusSuccess:
			result.Succeeded++
		case dispatch.StatusQuarantined:
			result.Quarantined++
		}
	}
	return result, err
}

// runUpload pushes every cleaned PDF through the network pool. There is no
// local output directory to plan against; idempotence comes from the bucket
// precondition, which treats an already-present object as success.
func (r *Runner) runUpload(ctx context.Context) (StageResult, error) {
	result := StageResult{Name: pipeline.StageUpload}

	cleaned, err := pipeline.Scan(filepath.Join(r.root, pipeline.DirClean), ".pdf")
	if err != nil {
		return result, err
	}
	files := cleaned.Sorted()
	result.Planned = len(files)
	if len(files) == 0 {
		return result, nil
	}

	stage := pipeline.Stage{Name: pipeline.StageUpload, Resource: pipeline.ResourceNetwork}
	results, err := r.dispatcher.Run(ctx, stage, files, r.provider.Upload)
	for _, fr := range results {
		switch fr.Status {
		case dispatch.StatusSuccess:
			result.Succeeded++
		case dispatch.StatusQuarantined:
			result.Quarantined++
		}
	}
	return result, err
}

func stageSelected(name pipeline.StageName, only []pipeline.StageName) bool {
	if len(only) == 0 {
		return true
	}
	for _, candidate := range only {
		if candidate == name {
			return true
		}
	}
	return false
}
