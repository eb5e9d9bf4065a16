package repair

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"docmill/internal/config"
	"docmill/internal/dispatch"
	"docmill/internal/fileutil"
	"docmill/internal/logging"
	"docmill/internal/pipeline"
	"docmill/internal/services"
	"docmill/internal/textdoc"
	"docmill/internal/verify"
)

// StageTransforms supplies the per-stage work the repairer can re-invoke.
// CleanEnhanced runs OCR with the aggressive settings reserved for documents
// that scored critically low.
type StageTransforms struct {
	CleanEnhanced dispatch.Transform
	Convert       dispatch.Transform
	Format        dispatch.Transform
	Upload        dispatch.Transform
}

// Summary reports one repair attempt.
type Summary struct {
	Base     string
	Strategy Strategy
	Success  bool
	Err      error

	// PostStatus is set when verify-after-repair ran.
	PostStatus verify.Status
	Reverified bool
}

// Repairer executes repair strategies by re-invoking stage transforms
// through the dispatcher, so repairs get the same retry, timeout, and
// quarantine treatment as first-pass processing.
type Repairer struct {
	cfg        *config.Config
	root       string
	dispatcher *dispatch.Dispatcher
	transforms StageTransforms
	verifier   *verify.Verifier
	logger     *slog.Logger
}

// New builds a repairer for one batch root. A nil verifier disables
// verify-after-repair regardless of configuration.
func New(cfg *config.Config, root string, dispatcher *dispatch.Dispatcher, transforms StageTransforms, verifier *verify.Verifier, logger *slog.Logger) *Repairer {
	return &Repairer{
		cfg:        cfg,
		root:       root,
		dispatcher: dispatcher,
		transforms: transforms,
		verifier:   verifier,
		logger:     logging.WithComponent(logger, "repair"),
	}
}

// Repair applies at most one strategy to the document behind the record and
// never escalates past the matched tier: a failed repair is reported, not
// retried with a more aggressive strategy.
func (r *Repairer) Repair(ctx context.Context, record verify.Record, doc verify.Document) Summary {
	strategy := Select(record)
	summary := Summary{Base: record.Base, Strategy: strategy}
	if strategy == StrategyNone {
		summary.Success = record.OverallStatus == verify.StatusOK
		return summary
	}

	r.logger.InfoContext(ctx, "repair selected", logging.Args(
		logging.String(logging.FieldDocument, record.Base),
		logging.String("strategy", string(strategy)),
		logging.Float64("accuracy", record.ContentAccuracy),
	)...)

	var err error
	switch strategy {
	case StrategyFullReclean:
		err = r.chain(ctx, record.Base,
			step{pipeline.StageClean, r.transforms.CleanEnhanced},
			step{pipeline.StageConvert, r.transforms.Convert},
			step{pipeline.StageFormat, r.transforms.Format},
		)
	case StrategyReconvert:
		err = r.chain(ctx, record.Base,
			step{pipeline.StageConvert, r.transforms.Convert},
			step{pipeline.StageFormat, r.transforms.Format},
		)
	case StrategyReformat:
		err = r.chain(ctx, record.Base,
			step{pipeline.StageFormat, r.transforms.Format},
		)
	case StrategyHeaderPatch:
		err = r.patchHeaders(doc)
	case StrategyReupload:
		if err = r.chain(ctx, record.Base, step{pipeline.StageUpload, r.transforms.Upload}); err == nil {
			err = r.patchHeaders(doc)
		}
	}

	summary.Err = err
	summary.Success = err == nil
	if err != nil {
		r.logger.WarnContext(ctx, "repair failed", logging.Args(
			logging.String(logging.FieldDocument, record.Base),
			logging.String("strategy", string(strategy)),
			logging.Error(err),
		)...)
		return summary
	}

	if r.cfg.Repair.VerifyAfterRepair && r.verifier != nil {
		post := r.verifier.Verify(ctx, doc)
		summary.Reverified = true
		summary.PostStatus = post.OverallStatus
	}
	return summary
}

type step struct {
	stage     pipeline.StageName
	transform dispatch.Transform
}

// chain runs stage steps in order, feeding each step's output file into the
// next. The first quarantined step stops the chain.
func (r *Repairer) chain(ctx context.Context, base string, steps ...step) error {
	for _, s := range steps {
		stage, ok := pipeline.StageByName(r.cfg, s.stage)
		if !ok && s.stage == pipeline.StageUpload {
			// Upload is not planner-driven; give it the format stage's
			// network pool characteristics.
			stage = pipeline.Stage{Name: pipeline.StageUpload, Resource: pipeline.ResourceNetwork}
			ok = true
		}
		if !ok {
			return services.Wrap(services.ErrConfiguration, string(s.stage), "repair", "unknown stage", nil)
		}

		file, err := r.stageInput(stage, base)
		if err != nil {
			return err
		}
		results, err := r.dispatcher.Run(ctx, stage, []pipeline.File{file}, s.transform)
		if err != nil {
			return err
		}
		if len(results) == 0 || results[0].Status != dispatch.StatusSuccess {
			var cause error
			if len(results) > 0 {
				cause = results[0].Err
			}
			return services.Wrap(services.ErrTransient, string(s.stage), "repair", "stage did not complete for "+base, cause)
		}
	}
	return nil
}

// stageInput locates the document's input artifact for a stage. Upload reads
// the cleaned PDF.
func (r *Repairer) stageInput(stage pipeline.Stage, base string) (pipeline.File, error) {
	dir, ext := stage.InputDir, stage.InputExt
	if stage.Name == pipeline.StageUpload {
		dir, ext = pipeline.DirClean, ".pdf"
	}
	manifest, err := pipeline.Scan(filepath.Join(r.root, dir), ext)
	if err != nil {
		return pipeline.File{}, err
	}
	file, ok := manifest[base]
	if !ok {
		return pipeline.File{}, services.Wrap(services.ErrValidation, string(stage.Name), "repair", "no input artifact for "+base+" in "+dir, nil)
	}
	return file, nil
}

// patchHeaders rewrites the directory and link header lines in both text
// artifacts in place, leaving bodies untouched.
func (r *Repairer) patchHeaders(doc verify.Document) error {
	convertPath := filepath.Join(r.root, pipeline.DirConverted, doc.Base+pipeline.SuffixConverted+".txt")
	for _, path := range []string{convertPath, doc.FormattedText} {
		if err := patchFile(path, doc.ExpectedDirectory, doc.ExpectedLink); err != nil {
			return err
		}
	}
	return nil
}

func patchFile(path, directory, link string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return services.Wrap(services.ErrValidation, "repair", "header_patch", "read "+path, err)
	}
	patched, changed := textdoc.PatchHeaderFields(string(data), directory, link)
	if !changed {
		return nil
	}
	return fileutil.WriteFileAtomic(path, []byte(patched), 0o644)
}
