package pipeline

import (
	"path/filepath"
	"strings"
)

// File identifies one document artifact inside a stage directory. Base is the
// suffix-stripped, case-folded document identity that stays stable across all
// stages; Suffix is the stage tag the artifact currently carries.
type File struct {
	Base   string
	Name   string
	Path   string
	Suffix string
	Size   int64
}

// Stage suffixes in pipeline order. Legacy tags from earlier tooling are
// accepted on input and stripped during normalization so manually renamed
// files still match their counterparts.
const (
	SuffixOriginal  = "_d"
	SuffixRenamed   = "_r"
	SuffixClean     = "_o"
	SuffixConverted = "_c"
	SuffixFormatted = "_f"
)

var knownSuffixes = []string{
	"_v22", "_v29", "_v30", "_v31", "_gp",
	SuffixOriginal, SuffixRenamed, SuffixClean, SuffixConverted, SuffixFormatted,
	"_a", "_t",
}

// NormalizeBase strips the extension and at most one known stage suffix from
// a file name and folds case, yielding the document identity used for
// cross-stage matching. Longer legacy suffixes are tried first so "_v31"
// never half-matches as "_1".
func NormalizeBase(name string) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	lower := strings.ToLower(stem)
	for _, suffix := range knownSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return lower[:len(lower)-len(suffix)]
		}
	}
	return lower
}

// SuffixOf returns the known stage suffix carried by name, or "".
func SuffixOf(name string) string {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
	for _, suffix := range knownSuffixes {
		if strings.HasSuffix(stem, suffix) {
			return suffix
		}
	}
	return ""
}

// StageFileName builds the artifact name for a base at a given stage.
func StageFileName(base, suffix, ext string) string {
	return base + suffix + ext
}
