package textdoc

import (
	"bufio"
	"fmt"
	"strings"
)

// Header field labels as they appear in the information block.
const (
	FieldDocumentNumber  = "DOCUMENT NUMBER"
	FieldDocumentName    = "DOCUMENT NAME"
	FieldOriginalPDFName = "ORIGINAL PDF NAME"
	FieldDirectory       = "PDF DIRECTORY"
	FieldPublicLink      = "PDF PUBLIC LINK"
	FieldTotalPages      = "TOTAL PAGES"
)

// legacy label accepted when reading but never written.
const fieldPublicURL = "PDF PUBLIC URL"

// headerScanLines bounds how deep field lookups read into a document; the
// information block always fits well within it.
const headerScanLines = 15

// Header carries the information block fields for one processed document.
type Header struct {
	DocumentNumber  string
	DocumentName    string
	OriginalPDFName string
	Directory       string
	PublicLink      string
	TotalPages      int
}

// Render produces the full header text through the closing line of the
// BEGINNING separator block; Join supplies the blank line before the body.
// An empty DocumentNumber renders as TBD.
func (h Header) Render() string {
	number := h.DocumentNumber
	if number == "" {
		number = "TBD"
	}
	var b strings.Builder
	b.WriteString(" DOCUMENT INFORMATION \n\n")
	fmt.Fprintf(&b, "%s: %s\n", FieldDocumentNumber, number)
	fmt.Fprintf(&b, "%s: %s\n", FieldDocumentName, h.DocumentName)
	fmt.Fprintf(&b, "%s: %s\n", FieldOriginalPDFName, h.OriginalPDFName)
	fmt.Fprintf(&b, "%s: %s\n", FieldDirectory, h.Directory)
	fmt.Fprintf(&b, "%s: %s\n", FieldPublicLink, h.PublicLink)
	fmt.Fprintf(&b, "%s: %d\n", FieldTotalPages, h.TotalPages)
	b.WriteString("\n")
	b.WriteString(separator + "\n")
	b.WriteString(beginMarker + "\n")
	b.WriteString(separator + "\n")
	return b.String()
}

// HeaderField returns the value of a labeled header line, scanning only the
// top of the document. The legacy PUBLIC URL label answers for PublicLink
// lookups. The second return reports whether the line was present.
func HeaderField(text, field string) (string, bool) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 0; line < headerScanLines && scanner.Scan(); line++ {
		value, ok := fieldValue(scanner.Text(), field)
		if !ok && field == FieldPublicLink {
			value, ok = fieldValue(scanner.Text(), fieldPublicURL)
		}
		if ok {
			return value, true
		}
	}
	return "", false
}

func fieldValue(line, field string) (string, bool) {
	prefix := field + ":"
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
}

// PatchHeaderFields rewrites the PDF DIRECTORY and PDF PUBLIC LINK lines in
// place, leaving everything else byte-identical. Empty replacement values
// leave the corresponding line untouched. The legacy PUBLIC URL label is
// normalized to PUBLIC LINK when rewritten. Returns the updated text and
// whether anything changed.
func PatchHeaderFields(text, directory, link string) (string, bool) {
	lines := strings.SplitAfter(text, "\n")
	changed := false
	limit := headerScanLines
	if len(lines) < limit {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		trimmed := strings.TrimRight(lines[i], "\n")
		eol := strings.TrimPrefix(lines[i], trimmed)
		switch {
		case directory != "" && strings.HasPrefix(trimmed, FieldDirectory+":"):
			replacement := FieldDirectory + ": " + directory + eol
			if lines[i] != replacement {
				lines[i] = replacement
				changed = true
			}
		case link != "" && (strings.HasPrefix(trimmed, FieldPublicLink+":") || strings.HasPrefix(trimmed, fieldPublicURL+":")):
			replacement := FieldPublicLink + ": " + link + eol
			if lines[i] != replacement {
				lines[i] = replacement
				changed = true
			}
		}
	}
	if !changed {
		return text, false
	}
	return strings.Join(lines, ""), true
}
