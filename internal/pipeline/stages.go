package pipeline

import "docmill/internal/config"

// StageName identifies a pipeline phase.
type StageName string

const (
	StageCollect StageName = "collect"
	StageRename  StageName = "rename"
	StageClean   StageName = "clean"
	StageConvert StageName = "convert"
	StageFormat  StageName = "format"
	StageUpload  StageName = "upload"
)

// Resource classifies what a stage is bound by, which picks the worker pool:
// network stages share a small fixed pool, local stages scale with cores.
type Resource int

const (
	ResourceLocal Resource = iota
	ResourceNetwork
)

// Stage directory layout under the batch root. Directories prefixed with "_"
// or named x_failed / y_logs are never scanned as stage inputs.
const (
	DirOriginal  = "01_doc-original"
	DirRenamed   = "02_doc-renamed"
	DirClean     = "03_doc-clean"
	DirConverted = "04_doc-convert"
	DirFormatted = "05_doc-format"
	DirFailed    = "x_failed"
	DirLogs      = "y_logs"
)

// Stage describes one phase of the pipeline: where it reads, where it writes,
// the suffix and extension contract on both sides, and how its work is split
// between the parallel and sequential passes.
type Stage struct {
	Name      StageName
	InputDir  string
	OutputDir string

	InputSuffix  string
	OutputSuffix string
	InputExt     string
	OutputExt    string

	// Threshold is the strict size boundary in bytes: files below it run in
	// the parallel pass, files at or above it run sequentially afterwards.
	// Zero means every file is parallel-eligible.
	Threshold int64
	Resource  Resource
}

// Stages returns the planner-driven phases in execution order. Collect and
// upload are not listed: collect moves loose files into 01_doc-original
// before planning starts, and upload is idempotent against the bucket via
// generation preconditions rather than a local output directory.
func Stages(cfg *config.Config) []Stage {
	return []Stage{
		{
			Name:         StageRename,
			InputDir:     DirOriginal,
			OutputDir:    DirRenamed,
			InputSuffix:  SuffixOriginal,
			OutputSuffix: SuffixRenamed,
			InputExt:     ".pdf",
			OutputExt:    ".pdf",
			Resource:     ResourceLocal,
		},
		{
			Name:         StageClean,
			InputDir:     DirRenamed,
			OutputDir:    DirClean,
			InputSuffix:  SuffixRenamed,
			OutputSuffix: SuffixClean,
			InputExt:     ".pdf",
			OutputExt:    ".pdf",
			Threshold:    int64(cfg.OCR.SequentialThresholdMB) * 1024 * 1024,
			Resource:     ResourceLocal,
		},
		{
			Name:         StageConvert,
			InputDir:     DirClean,
			OutputDir:    DirConverted,
			InputSuffix:  SuffixClean,
			OutputSuffix: SuffixConverted,
			InputExt:     ".pdf",
			OutputExt:    ".txt",
			Threshold:    int64(cfg.DocAI.PayloadLimitMB) * 1024 * 1024,
			Resource:     ResourceNetwork,
		},
		{
			Name:         StageFormat,
			InputDir:     DirConverted,
			OutputDir:    DirFormatted,
			InputSuffix:  SuffixConverted,
			OutputSuffix: SuffixFormatted,
			InputExt:     ".txt",
			OutputExt:    ".txt",
			Resource:     ResourceNetwork,
		},
	}
}

// StageByName looks up a planner-driven stage.
func StageByName(cfg *config.Config, name StageName) (Stage, bool) {
	for _, stage := range Stages(cfg) {
		if stage.Name == name {
			return stage, true
		}
	}
	return Stage{}, false
}

// StageDirs lists every directory the pipeline expects under a batch root.
func StageDirs() []string {
	return []string{DirOriginal, DirRenamed, DirClean, DirConverted, DirFormatted, DirFailed, DirLogs}
}
