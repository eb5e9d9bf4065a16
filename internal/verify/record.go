package verify

import "time"

// Status is the rolled-up verdict for one document.
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarning Status = "WARNING"
	StatusFailed  Status = "FAILED"
)

// IssueKind categorizes a verification finding; the repair selector keys off
// these.
type IssueKind string

const (
	IssueLowAccuracy     IssueKind = "low_accuracy"
	IssueMissingMarker   IssueKind = "missing_marker"
	IssueHeaderMismatch  IssueKind = "header_mismatch"
	IssueUnreachableLink IssueKind = "unreachable_link"
)

// Severity splits structural failures from quality warnings.
type Severity string

const (
	SeverityFailure Severity = "failure"
	SeverityWarning Severity = "warning"
)

// Issue is one concrete finding on one document.
type Issue struct {
	Kind     IssueKind
	Severity Severity
	Pages    []int
	Message  string
}

// Record is the full verification outcome for one document, derived fresh on
// every run from the cleaned PDF and the formatted text.
type Record struct {
	Base          string
	PDFPath       string
	TextPath      string
	PDFPageCount  int
	MarkerCount   int
	MarkersPresent bool
	PageCountMatch bool

	HeaderDirectoryMatches bool
	HeaderLinkReachable    bool

	// ContentAccuracy is the mean sampled-page similarity on a 0-100 scale.
	ContentAccuracy float64
	SampledPages    []int

	PDFSizeBytes  int64
	TextSizeBytes int64
	TextChars     int

	Issues        []Issue
	OverallStatus Status
	VerifiedAt    time.Time

	// Error holds the degradation reason when an artifact could not be
	// scored at all.
	Error string
}

// HasIssue reports whether the record carries a finding of the given kind.
func (r Record) HasIssue(kind IssueKind) bool {
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			return true
		}
	}
	return false
}

func (r *Record) addIssue(kind IssueKind, severity Severity, message string, pages ...int) {
	r.Issues = append(r.Issues, Issue{Kind: kind, Severity: severity, Pages: pages, Message: message})
}
