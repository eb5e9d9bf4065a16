package verify

import (
	"context"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"docmill/internal/config"
	"docmill/internal/logging"
	"docmill/internal/textdoc"
)

// PDFInspector provides structural access to a cleaned PDF: page count and
// the embedded text layer of a single 1-based page.
type PDFInspector interface {
	PageCount(path string) (int, error)
	PageText(ctx context.Context, path string, page int) (string, error)
}

// LinkProber answers whether a public object URL resolves to an existing
// object.
type LinkProber interface {
	Reachable(ctx context.Context, url string) (bool, error)
}

// Document names the artifacts and expectations for one verification run.
type Document struct {
	Base              string
	CleanPDF          string
	FormattedText     string
	ExpectedDirectory string
	ExpectedLink      string
}

// Verifier scores processed documents. Inspector and prober are injectable
// so the scoring logic tests without real PDFs or a bucket.
type Verifier struct {
	cfg       *config.Config
	inspector PDFInspector
	prober    LinkProber
	logger    *slog.Logger
}

// New builds a verifier. A nil prober disables link probing regardless of
// configuration.
func New(cfg *config.Config, inspector PDFInspector, prober LinkProber, logger *slog.Logger) *Verifier {
	return &Verifier{
		cfg:       cfg,
		inspector: inspector,
		prober:    prober,
		logger:    logging.WithComponent(logger, "verify"),
	}
}

// Verify produces the record for one document. An unreadable artifact
// degrades that document to FAILED; it never aborts the caller's report run.
func (v *Verifier) Verify(ctx context.Context, doc Document) Record {
	record := Record{
		Base:       doc.Base,
		PDFPath:    doc.CleanPDF,
		TextPath:   doc.FormattedText,
		VerifiedAt: time.Now().UTC(),
	}

	text, err := os.ReadFile(doc.FormattedText)
	if err != nil {
		return v.degrade(ctx, record, "read formatted text: "+err.Error())
	}
	formatted := string(text)
	record.TextChars = len(formatted)
	record.TextSizeBytes = int64(len(text))
	if info, err := os.Stat(doc.CleanPDF); err == nil {
		record.PDFSizeBytes = info.Size()
	}

	pages, err := v.inspector.PageCount(doc.CleanPDF)
	if err != nil {
		return v.degrade(ctx, record, "pdf page count: "+err.Error())
	}
	record.PDFPageCount = pages

	v.checkMarkers(&record, formatted)
	v.checkHeaders(ctx, &record, formatted, doc)
	v.scoreContent(ctx, &record, formatted, doc)

	record.OverallStatus = classify(record)
	v.logger.InfoContext(ctx, "document verified", logging.Args(
		logging.String(logging.FieldDocument, doc.Base),
		logging.String("status", string(record.OverallStatus)),
		logging.Float64("accuracy", record.ContentAccuracy),
		logging.Int("pdf_pages", record.PDFPageCount),
		logging.Int("markers", record.MarkerCount),
	)...)
	return record
}

// degrade finalizes a record that cannot be scored at all.
func (v *Verifier) degrade(ctx context.Context, record Record, message string) Record {
	record.Error = message
	record.OverallStatus = StatusFailed
	v.logger.WarnContext(ctx, "verification degraded", logging.Args(
		logging.String(logging.FieldDocument, record.Base),
		logging.String("reason", message),
	)...)
	return record
}

func (v *Verifier) checkMarkers(record *Record, formatted string) {
	record.MarkerCount = textdoc.CountMarkers(formatted)
	record.MarkersPresent = textdoc.HasMarker(formatted, 1)
	record.PageCountMatch = record.MarkerCount == record.PDFPageCount

	if !record.MarkersPresent {
		record.addIssue(IssueMissingMarker, SeverityFailure, "page 1 marker missing, content may be incomplete", 1)
		return
	}
	tolerance := v.cfg.Verification.PageCountTolerance
	if diff := abs(record.MarkerCount - record.PDFPageCount); diff > tolerance {
		record.addIssue(IssueMissingMarker, SeverityWarning,
			"page count mismatch: pdf has "+itoa(record.PDFPageCount)+", markers found "+itoa(record.MarkerCount))
	}
}

func (v *Verifier) checkHeaders(ctx context.Context, record *Record, formatted string, doc Document) {
	directory, ok := textdoc.HeaderField(formatted, textdoc.FieldDirectory)
	switch {
	case !ok:
		record.addIssue(IssueHeaderMismatch, SeverityFailure, "missing "+textdoc.FieldDirectory+" header")
	case doc.ExpectedDirectory != "" && directory != doc.ExpectedDirectory:
		record.addIssue(IssueHeaderMismatch, SeverityWarning,
			"directory header mismatch: expected "+doc.ExpectedDirectory+", found "+directory)
	default:
		record.HeaderDirectoryMatches = true
	}

	link, ok := textdoc.HeaderField(formatted, textdoc.FieldPublicLink)
	switch {
	case !ok:
		record.addIssue(IssueHeaderMismatch, SeverityFailure, "missing "+textdoc.FieldPublicLink+" header")
	case doc.ExpectedLink != "" && link != doc.ExpectedLink:
		record.addIssue(IssueHeaderMismatch, SeverityWarning,
			"link header mismatch: expected "+doc.ExpectedLink+", found "+link)
	}

	if !v.cfg.Verification.ProbeLinks || v.prober == nil {
		record.HeaderLinkReachable = true
		return
	}
	probe := doc.ExpectedLink
	if probe == "" {
		probe = link
	}
	reachable, err := v.prober.Reachable(ctx, probe)
	if err != nil || !reachable {
		record.addIssue(IssueUnreachableLink, SeverityWarning, "public link not reachable: "+probe)
		return
	}
	record.HeaderLinkReachable = true
}

// scoreContent samples boundary pages (or every page, per configuration),
// compares each PDF text layer against the corresponding marker-bounded
// segment, and averages the ratios into the 0-100 accuracy score.
func (v *Verifier) scoreContent(ctx context.Context, record *Record, formatted string, doc Document) {
	pages := v.samplePages(record.PDFPageCount)
	record.SampledPages = pages
	if len(pages) == 0 {
		return
	}

	body := formatted
	if split, err := textdoc.Split(formatted); err == nil {
		body = split.Body
	}

	var total float64
	for _, page := range pages {
		reference, err := v.inspector.PageText(ctx, doc.CleanPDF, page)
		if err != nil {
			record.addIssue(IssueLowAccuracy, SeverityWarning, "page "+itoa(page)+": cannot extract pdf text layer", page)
			continue
		}
		segment, found := textdoc.PageSegment(body, page)
		if !found {
			// The marker issue is recorded separately; score against the
			// whole body so a formatting defect alone does not masquerade
			// as content loss.
			record.addIssue(IssueMissingMarker, SeverityWarning, "page "+itoa(page)+": page marker not found", page)
			segment = body
		}
		ratio := similarity(reference, segment)
		total += ratio
		if ratio < warnRatio(v.cfg) {
			record.addIssue(IssueLowAccuracy, SeverityWarning,
				"page "+itoa(page)+": low similarity "+percent(ratio), page)
		}
	}

	record.ContentAccuracy = math.Round(total/float64(len(pages))*10000) / 100
	if record.ContentAccuracy < float64(v.cfg.Verification.AccuracyWarn) {
		record.addIssue(IssueLowAccuracy, SeverityWarning, "low content accuracy: "+percent(record.ContentAccuracy/100))
	}
}

func (v *Verifier) samplePages(pageCount int) []int {
	if pageCount <= 0 {
		return nil
	}
	if v.cfg.Verification.SamplePages == "all" {
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}
	if pageCount == 1 {
		return []int{1}
	}
	return []int{1, pageCount}
}

// classify rolls issues up into the overall status. Structural absences fail
// the document regardless of how high the accuracy scored.
func classify(record Record) Status {
	warned := false
	for _, issue := range record.Issues {
		if issue.Severity == SeverityFailure {
			return StatusFailed
		}
		warned = true
	}
	if warned {
		return StatusWarning
	}
	return StatusOK
}

func warnRatio(cfg *config.Config) float64 {
	return float64(cfg.Verification.AccuracyWarn) / 100
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }

func percent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 0, 64) + "%"
}
