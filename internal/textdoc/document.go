package textdoc

import (
	"strings"

	"docmill/internal/services"
)

const (
	separator   = "====================================================================="
	beginMarker = "BEGINNING OF PROCESSED DOCUMENT"
	endMarker   = "END OF PROCESSED DOCUMENT"
)

// Document is the three-part decomposition of a processed text file. Header
// runs through the BEGINNING separator block inclusive, Body is the trimmed
// page content, Footer starts at the separator line preceding END OF
// PROCESSED DOCUMENT. Join(Split(x)) reproduces the contract exactly, which
// lets the format stage hand only the body to the model and reassemble
// without disturbing the template.
type Document struct {
	Header string
	Body   string
	Footer string
}

// Split decomposes a processed document. It fails with a validation error
// when either separator block is missing, which marks a file that did not
// come out of the convert stage.
func Split(text string) (Document, error) {
	bodyStart := strings.Index(text, beginMarker)
	footerStart := strings.Index(text, separator+"\n"+endMarker)
	if bodyStart < 0 || footerStart < 0 {
		return Document{}, services.Wrap(services.ErrValidation, "textdoc", "split", "separator blocks not found", nil)
	}

	// Step past the BEGINNING line and its closing separator line.
	lineEnd := strings.Index(text[bodyStart+len(beginMarker):], "\n")
	if lineEnd < 0 {
		return Document{}, services.Wrap(services.ErrValidation, "textdoc", "split", "truncated after beginning separator", nil)
	}
	cursor := bodyStart + len(beginMarker) + lineEnd + 1
	sepEnd := strings.Index(text[cursor:], "\n")
	if sepEnd < 0 {
		return Document{}, services.Wrap(services.ErrValidation, "textdoc", "split", "truncated after beginning separator", nil)
	}
	contentStart := cursor + sepEnd + 1

	if contentStart > footerStart {
		return Document{}, services.Wrap(services.ErrValidation, "textdoc", "split", "footer precedes body", nil)
	}
	return Document{
		Header: text[:contentStart],
		Body:   strings.TrimSpace(text[contentStart:footerStart]),
		Footer: text[footerStart:],
	}, nil
}

// Join reassembles a document from its parts, restoring the blank lines on
// either side of the body.
func (d Document) Join() string {
	return d.Header + "\n" + d.Body + "\n\n" + d.Footer
}

// Footer returns the canonical closing block.
func Footer() string {
	return separator + "\n" + endMarker + "\n" + separator + "\n"
}

// WrapBody builds a complete document around a bare body, used when external
// text is imported without having gone through conversion. A page 1 marker is
// prepended when the body carries none.
func WrapBody(header Header, body string) string {
	body = strings.TrimSpace(body)
	if CountMarkers(body) == 0 {
		body = PageMarker(1) + "\n\n" + body
	}
	return Document{Header: header.Render(), Body: body, Footer: Footer()}.Join()
}
