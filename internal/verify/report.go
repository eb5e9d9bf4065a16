package verify

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"docmill/internal/services"
)

// Report aggregates one verification run across a batch.
type Report struct {
	Records []Record
}

// Counts tallies records by overall status.
func (r Report) Counts() (ok, warning, failed int) {
	for _, record := range r.Records {
		switch record.OverallStatus {
		case StatusOK:
			ok++
		case StatusWarning:
			warning++
		default:
			failed++
		}
	}
	return ok, warning, failed
}

// NeedsRepair returns the records whose status is not OK, in input order.
func (r Report) NeedsRepair() []Record {
	var out []Record
	for _, record := range r.Records {
		if record.OverallStatus != StatusOK {
			out = append(out, record)
		}
	}
	return out
}

// Headers names the tabular columns, shared by the console table and the CSV
// export.
func Headers() []string {
	return []string{"document", "pdf pages", "markers", "match", "accuracy", "link", "status", "issues"}
}

// Row renders one record as tabular cells aligned with Headers.
func (r Record) Row() []string {
	match := "no"
	if r.PageCountMatch {
		match = "yes"
	}
	link := "no"
	if r.HeaderLinkReachable {
		link = "yes"
	}
	return []string{
		r.Base,
		strconv.Itoa(r.PDFPageCount),
		strconv.Itoa(r.MarkerCount),
		match,
		strconv.FormatFloat(r.ContentAccuracy, 'f', 0, 64) + "%",
		link,
		string(r.OverallStatus),
		r.issueSummary(),
	}
}

func (r Record) issueSummary() string {
	if r.Error != "" {
		return r.Error
	}
	messages := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		messages = append(messages, issue.Message)
	}
	return strings.Join(messages, "; ")
}

// WriteCSV exports the report as delimited rows for downstream tooling.
func (r Report) WriteCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "verify", "report", "ensure report directory", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "verify", "report", "create "+path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Headers()); err != nil {
		return services.Wrap(services.ErrValidation, "verify", "report", "write header", err)
	}
	for _, record := range r.Records {
		if err := writer.Write(record.Row()); err != nil {
			return services.Wrap(services.ErrValidation, "verify", "report", "write row "+record.Base, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return services.Wrap(services.ErrValidation, "verify", "report", "flush", err)
	}
	return nil
}
