package verify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// History persists verification records append-only, so a repair pass can be
// compared against the run that preceded it.
type History struct {
	db   *sql.DB
	path string
}

const historySchema = `
CREATE TABLE IF NOT EXISTS verification_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    base TEXT NOT NULL,
    status TEXT NOT NULL,
    pdf_pages INTEGER NOT NULL,
    marker_pages INTEGER NOT NULL,
    accuracy REAL NOT NULL,
    issues_json TEXT NOT NULL,
    verified_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_verification_runs_base ON verification_runs(base, verified_at);
`

// OpenHistory initializes or connects to the history database.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &History{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	if h == nil || h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Append records one verification outcome. Records are never updated or
// deleted.
func (h *History) Append(ctx context.Context, record Record) error {
	issues, err := json.Marshal(record.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO verification_runs (base, status, pdf_pages, marker_pages, accuracy, issues_json, verified_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.Base,
		string(record.OverallStatus),
		record.PDFPageCount,
		record.MarkerCount,
		record.ContentAccuracy,
		string(issues),
		record.VerifiedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert verification run: %w", err)
	}
	return nil
}

// HistoryEntry is one stored verification outcome.
type HistoryEntry struct {
	Base       string
	Status     Status
	PDFPages   int
	Markers    int
	Accuracy   float64
	Issues     []Issue
	VerifiedAt time.Time
}

// Runs returns the stored outcomes for one document, newest first.
func (h *History) Runs(ctx context.Context, base string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT base, status, pdf_pages, marker_pages, accuracy, issues_json, verified_at
         FROM verification_runs WHERE base = ? ORDER BY verified_at DESC, id DESC LIMIT ?`,
		base, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query verification runs: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var status, issuesJSON, verifiedAt string
		if err := rows.Scan(&entry.Base, &status, &entry.PDFPages, &entry.Markers, &entry.Accuracy, &issuesJSON, &verifiedAt); err != nil {
			return nil, fmt.Errorf("scan verification run: %w", err)
		}
		entry.Status = Status(status)
		if err := json.Unmarshal([]byte(issuesJSON), &entry.Issues); err != nil {
			return nil, fmt.Errorf("decode issues: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, verifiedAt); err == nil {
			entry.VerifiedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
