package textdoc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var markerPattern = regexp.MustCompile(`\[BEGIN PDF Page (\d+)\]`)

// PageMarker returns the marker line for a 1-based page number.
func PageMarker(page int) string {
	return fmt.Sprintf("[BEGIN PDF Page %d]", page)
}

// CountMarkers counts page markers anywhere in the text.
func CountMarkers(text string) int {
	return len(markerPattern.FindAllString(text, -1))
}

// HasMarker reports whether the marker for a specific page is present.
func HasMarker(text string, page int) bool {
	return strings.Contains(text, PageMarker(page))
}

// MarkerPages lists the page numbers of every marker in order of appearance.
func MarkerPages(text string) []int {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	pages := make([]int, 0, len(matches))
	for _, match := range matches {
		page, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// PageSegment returns the text between a page's marker and the next marker,
// or through the end of the body for the last page. The second return is
// false when the page's marker is absent.
func PageSegment(body string, page int) (string, bool) {
	marker := PageMarker(page)
	start := strings.Index(body, marker)
	if start < 0 {
		return "", false
	}
	segment := body[start+len(marker):]
	if next := strings.Index(segment, PageMarker(page+1)); next >= 0 {
		segment = segment[:next]
	}
	return strings.TrimSpace(segment), true
}

// BuildBody joins per-page texts into a marker-delimited body. Pages are
// numbered from 1 and every page, empty or not, gets its marker so page
// counts stay verifiable downstream.
func BuildBody(pages []string) string {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(PageMarker(i + 1))
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(page, "\n"))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// ChunkByMarkers splits a body into chunks of at most maxPages pages, cutting
// only on marker boundaries so no page is ever split mid-text. A body with no
// markers, or maxPages <= 0, comes back as a single chunk.
func ChunkByMarkers(body string, maxPages int) []string {
	if maxPages <= 0 {
		return []string{body}
	}
	starts := markerPattern.FindAllStringIndex(body, -1)
	if len(starts) <= maxPages {
		return []string{body}
	}

	var chunks []string
	for begin := 0; begin < len(starts); begin += maxPages {
		end := begin + maxPages
		var chunk string
		if end >= len(starts) {
			chunk = body[starts[begin][0]:]
		} else {
			chunk = body[starts[begin][0]:starts[end][0]]
		}
		chunks = append(chunks, strings.TrimSpace(chunk))
	}

	// Anything before the first marker belongs to the first chunk.
	if prefix := strings.TrimSpace(body[:starts[0][0]]); prefix != "" && len(chunks) > 0 {
		chunks[0] = prefix + "\n\n" + chunks[0]
	}
	return chunks
}
