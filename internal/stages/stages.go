// Package stages implements the per-stage transforms: collect, rename,
// clean, convert, format, and upload. Each transform takes one input
// artifact and materializes the next stage's artifact, never mutating its
// input, so every stage boundary stays resumable and auditable.
package stages

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docmill/internal/config"
	"docmill/internal/dispatch"
	"docmill/internal/fileutil"
	"docmill/internal/logging"
	"docmill/internal/pdftext"
	"docmill/internal/pipeline"
	"docmill/internal/repair"
	"docmill/internal/services"
	"docmill/internal/textdoc"
)

// OCR cleans a scanned PDF into PDF/A with a text layer.
type OCR interface {
	Clean(ctx context.Context, input, output string, enhanced bool) error
}

// Extractor produces per-page text from a cleaned PDF.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string) ([]string, error)
}

// BodyFormatter normalizes a marker-delimited document body.
type BodyFormatter interface {
	FormatBody(ctx context.Context, body string) (string, error)
}

// Uploader pushes cleaned PDFs to object storage.
type Uploader interface {
	ObjectName(folder, fileName string) string
	PublicURL(objectName string) string
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// Service owns the stage transforms for one batch root.
type Service struct {
	cfg       *config.Config
	root      string
	ocr       OCR
	extractor Extractor
	formatter BodyFormatter
	uploader  Uploader
	logger    *slog.Logger
}

// New wires the transforms. Any collaborator may be nil when its stage is
// not going to run; invoking a stage with a missing collaborator is a
// configuration error.
func New(cfg *config.Config, root string, ocr OCR, extractor Extractor, formatter BodyFormatter, uploader Uploader, logger *slog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		root:      root,
		ocr:       ocr,
		extractor: extractor,
		formatter: formatter,
		uploader:  uploader,
		logger:    logging.WithComponent(logger, "stages"),
	}
}

// Transforms returns the dispatcher transform for each planner-driven stage.
func (s *Service) Transforms() map[pipeline.StageName]dispatch.Transform {
	return map[pipeline.StageName]dispatch.Transform{
		pipeline.StageRename:  s.Rename,
		pipeline.StageClean:   s.Clean,
		pipeline.StageConvert: s.Convert,
		pipeline.StageFormat:  s.Format,
	}
}

// RepairTransforms bundles the transforms the repair path re-invokes.
func (s *Service) RepairTransforms() repair.StageTransforms {
	return repair.StageTransforms{
		CleanEnhanced: s.CleanEnhanced,
		Convert:       s.Convert,
		Format:        s.Format,
		Upload:        s.Upload,
	}
}

// Collect moves loose documents sitting at the batch root into
// 01_doc-original, tagging them with the original-stage suffix. Files
// already carrying a known suffix keep their base; everything else is taken
// as-is. Returns the bases collected.
func (s *Service) Collect(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "collect", "scan", "read batch root", err)
	}
	destDir := filepath.Join(s.root, pipeline.DirOriginal)
	if err := fileutil.EnsureDir(destDir); err != nil {
		return nil, err
	}

	var collected []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".pdf" && ext != ".txt" {
			continue
		}
		base := sanitizeBase(pipeline.NormalizeBase(name))
		dest := filepath.Join(destDir, pipeline.StageFileName(base, pipeline.SuffixOriginal, ext))
		if err := fileutil.MoveFile(filepath.Join(s.root, name), dest); err != nil {
			return collected, services.Wrap(services.ErrValidation, "collect", "move", name, err)
		}
		collected = append(collected, base)
		s.logger.InfoContext(ctx, "document collected", logging.Args(
			logging.String(logging.FieldDocument, base),
			logging.String("file", filepath.Base(dest)),
		)...)
	}
	return collected, nil
}

// Rename copies the original into 02_doc-renamed under the renamed-stage
// suffix. The base never changes past collection, so resume planning keys
// stay stable; the original stays in place for audit.
func (s *Service) Rename(ctx context.Context, file pipeline.File) (string, error) {
	output := filepath.Join(s.root, pipeline.DirRenamed, pipeline.StageFileName(file.Base, pipeline.SuffixRenamed, ".pdf"))
	if err := fileutil.EnsureDir(filepath.Dir(output)); err != nil {
		return "", err
	}
	if err := fileutil.CopyFileVerified(file.Path, output); err != nil {
		return "", services.Wrap(services.ErrValidation, "rename", "copy", file.Name, err)
	}
	return output, nil
}

// Clean OCRs a renamed PDF into 03_doc-clean with the standard profile.
func (s *Service) Clean(ctx context.Context, file pipeline.File) (string, error) {
	return s.clean(ctx, file, false)
}

// CleanEnhanced is the aggressive profile used by the repair path.
func (s *Service) CleanEnhanced(ctx context.Context, file pipeline.File) (string, error) {
	return s.clean(ctx, file, true)
}

func (s *Service) clean(ctx context.Context, file pipeline.File, enhanced bool) (string, error) {
	if s.ocr == nil {
		return "", services.Wrap(services.ErrConfiguration, "clean", "ocr", "no OCR service wired", nil)
	}
	output := filepath.Join(s.root, pipeline.DirClean, pipeline.StageFileName(file.Base, pipeline.SuffixClean, ".pdf"))
	if err := fileutil.EnsureDir(filepath.Dir(output)); err != nil {
		return "", err
	}
	if err := s.ocr.Clean(ctx, file.Path, output, enhanced); err != nil {
		return "", err
	}
	return output, nil
}

// Convert extracts per-page text from a cleaned PDF and writes the
// template-wrapped text artifact to 04_doc-convert: information header,
// marker-delimited body, closing footer.
func (s *Service) Convert(ctx context.Context, file pipeline.File) (string, error) {
	if s.extractor == nil {
		return "", services.Wrap(services.ErrConfiguration, "convert", "extract", "no extractor wired", nil)
	}
	pages, err := s.extractor.ExtractPages(ctx, file.Path)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", services.Wrap(services.ErrValidation, "convert", "extract", "no pages extracted from "+file.Name, nil)
	}

	pageCount, err := pdftext.PageCount(file.Path)
	if err != nil {
		pageCount = len(pages)
	}

	header := textdoc.Header{
		DocumentName:    file.Base,
		OriginalPDFName: file.Name,
		Directory:       s.DirectoryHeaderValue(),
		PublicLink:      s.expectedLink(file.Name),
		TotalPages:      pageCount,
	}
	text := textdoc.Document{
		Header: header.Render(),
		Body:   textdoc.BuildBody(pages),
		Footer: textdoc.Footer(),
	}.Join()

	output := filepath.Join(s.root, pipeline.DirConverted, pipeline.StageFileName(file.Base, pipeline.SuffixConverted, ".txt"))
	if err := fileutil.EnsureDir(filepath.Dir(output)); err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(output, []byte(text), 0o644); err != nil {
		return "", err
	}
	return output, nil
}

// Format runs the converted text's body through the formatter and writes the
// result to 05_doc-format, reattaching header and footer byte-for-byte.
func (s *Service) Format(ctx context.Context, file pipeline.File) (string, error) {
	if s.formatter == nil {
		return "", services.Wrap(services.ErrConfiguration, "format", "model", "no formatter wired", nil)
	}
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "format", "read", file.Name, err)
	}
	doc, err := textdoc.Split(string(data))
	if err != nil {
		return "", err
	}

	cleaned, err := s.formatter.FormatBody(ctx, doc.Body)
	if err != nil {
		return "", err
	}
	doc.Body = cleaned

	output := filepath.Join(s.root, pipeline.DirFormatted, pipeline.StageFileName(file.Base, pipeline.SuffixFormatted, ".txt"))
	if err := fileutil.EnsureDir(filepath.Dir(output)); err != nil {
		return "", err
	}
	if err := fileutil.WriteFileAtomic(output, []byte(doc.Join()), 0o644); err != nil {
		return "", err
	}
	return output, nil
}

// Upload pushes a cleaned PDF to object storage and returns its public URL.
func (s *Service) Upload(ctx context.Context, file pipeline.File) (string, error) {
	if s.uploader == nil {
		return "", services.Wrap(services.ErrConfiguration, "upload", "gcs", "no uploader wired", nil)
	}
	object := s.uploader.ObjectName(s.folderName(), file.Name)
	return s.uploader.Upload(ctx, file.Path, object)
}

// ExpectedLink returns the public URL the headers should carry for a
// document's cleaned PDF.
func (s *Service) ExpectedLink(base string) string {
	return s.expectedLink(pipeline.StageFileName(base, pipeline.SuffixClean, ".pdf"))
}

func (s *Service) expectedLink(fileName string) string {
	if s.uploader == nil {
		return ""
	}
	return s.uploader.PublicURL(s.uploader.ObjectName(s.folderName(), fileName))
}

// DirectoryHeaderValue resolves the directory header per policy: when the
// batch root sits under a configured prefix the header carries the path
// below that prefix, otherwise just the folder name.
func (s *Service) DirectoryHeaderValue() string {
	full := filepath.ToSlash(s.root)
	for _, prefix := range s.cfg.Verification.PathHeaderPrefixes {
		prefix = strings.TrimSuffix(filepath.ToSlash(prefix), "/") + "/"
		if strings.HasPrefix(strings.ToLower(full), strings.ToLower(prefix)) {
			return full[len(prefix):]
		}
	}
	return s.folderName()
}

func (s *Service) folderName() string {
	return filepath.Base(s.root)
}

// sanitizeBase squeezes whitespace and repeated separators out of a base
// name at collection time, before the base becomes the document's identity.
func sanitizeBase(base string) string {
	joined := strings.Join(strings.Fields(base), "_")
	for strings.Contains(joined, "__") {
		joined = strings.ReplaceAll(joined, "__", "_")
	}
	return strings.Trim(joined, "_")
}
