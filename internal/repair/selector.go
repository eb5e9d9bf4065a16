// Package repair chooses and executes the minimal remediation for a document
// that failed verification: from an in-place header patch up to a full
// enhanced-OCR re-clean of the whole chain. At most one strategy is applied
// per document and the selector never escalates past the matched tier.
package repair

import "docmill/internal/verify"

// Strategy is the remediation tier chosen for one document.
type Strategy string

const (
	// StrategyNone means the record either needs no repair or cannot be
	// repaired automatically (an unreadable artifact is reported, not
	// retried).
	StrategyNone Strategy = "none"
	// StrategyFullReclean re-runs OCR with enhanced settings, then
	// re-converts and re-formats.
	StrategyFullReclean Strategy = "full_reclean"
	// StrategyReconvert re-runs text extraction and formatting.
	StrategyReconvert Strategy = "reconvert"
	// StrategyReformat re-runs only the formatting stage; header and marker
	// reassembly is deterministic so this regenerates markers.
	StrategyReformat Strategy = "reformat"
	// StrategyHeaderPatch rewrites header fields in place with no
	// reprocessing.
	StrategyHeaderPatch Strategy = "header_patch"
	// StrategyReupload pushes the cleaned PDF back to object storage and
	// patches the link header.
	StrategyReupload Strategy = "reupload"
)

// Select maps one verification record to its repair strategy. Tiers are
// ordered most-aggressive first and the first match wins.
func Select(record verify.Record) Strategy {
	if record.OverallStatus == verify.StatusOK {
		return StrategyNone
	}
	// A record that could not be scored at all has nothing to key a repair
	// off; it is surfaced in the report instead.
	if record.Error != "" {
		return StrategyNone
	}

	markerIssue := record.HasIssue(verify.IssueMissingMarker)
	headerIssue := record.HasIssue(verify.IssueHeaderMismatch)
	linkIssue := record.HasIssue(verify.IssueUnreachableLink)

	switch {
	case record.ContentAccuracy < 50:
		return StrategyFullReclean
	case record.ContentAccuracy < 70:
		return StrategyReconvert
	case record.ContentAccuracy < 80 && !markerIssue && !headerIssue && !linkIssue:
		return StrategyReformat
	case markerIssue:
		return StrategyReformat
	case headerIssue && !linkIssue:
		return StrategyHeaderPatch
	case linkIssue:
		return StrategyReupload
	}
	return StrategyNone
}
