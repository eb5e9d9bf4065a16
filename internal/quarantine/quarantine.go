// Package quarantine isolates files that exhausted their retry budget. Each
// failed input is copied to x_failed/<stage>/ next to a JSON sidecar
// describing what went wrong, so a batch keeps draining while a human
// triages later.
package quarantine

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"docmill/internal/fileutil"
	"docmill/internal/pipeline"
	"docmill/internal/services"
)

// Record is the sidecar written alongside every quarantined file.
type Record struct {
	ID            string    `json:"id"`
	Base          string    `json:"base"`
	Name          string    `json:"name"`
	Stage         string    `json:"stage"`
	Kind          string    `json:"kind"`
	Message       string    `json:"message"`
	Attempts      int       `json:"attempts"`
	QuarantinedAt time.Time `json:"quarantined_at"`
}

// Area manages the x_failed tree under one batch root.
type Area struct {
	root string
	now  func() time.Time
}

// New returns an Area rooted at <root>/x_failed.
func New(root string) *Area {
	return &Area{root: filepath.Join(root, pipeline.DirFailed), now: time.Now}
}

// Dir returns the quarantine directory for a stage.
func (a *Area) Dir(stage pipeline.StageName) string {
	return filepath.Join(a.root, string(stage))
}

// Quarantine copies the file into the stage's quarantine directory and writes
// its sidecar record. The input stays in place so the stage can simply be
// retried once the cause is fixed, with no recovery steps.
func (a *Area) Quarantine(file pipeline.File, stage pipeline.StageName, attempts int, cause error) (Record, error) {
	dir := a.Dir(stage)
	if err := fileutil.EnsureDir(dir); err != nil {
		return Record{}, err
	}

	record := Record{
		ID:            uuid.NewString(),
		Base:          file.Base,
		Name:          file.Name,
		Stage:         string(stage),
		Kind:          services.Kind(cause),
		Message:       cause.Error(),
		Attempts:      attempts,
		QuarantinedAt: a.now().UTC(),
	}

	dest := filepath.Join(dir, file.Name)
	if err := fileutil.CopyFileVerified(file.Path, dest); err != nil {
		return Record{}, services.Wrap(services.ErrValidation, string(stage), "quarantine", "copy "+file.Name, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return Record{}, services.Wrap(services.ErrValidation, string(stage), "quarantine", "encode record", err)
	}
	sidecar := strings.TrimSuffix(dest, filepath.Ext(dest)) + ".failed.json"
	if err := fileutil.WriteFileAtomic(sidecar, data, 0o644); err != nil {
		return Record{}, err
	}
	return record, nil
}

// List returns every sidecar record under the quarantine tree, newest first.
func (a *Area) List() ([]Record, error) {
	var records []Record
	err := filepath.WalkDir(a.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".failed.json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return services.Wrap(services.ErrValidation, "quarantine", "list", "decode "+filepath.Base(path), err)
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].QuarantinedAt.After(records[j].QuarantinedAt)
	})
	return records, nil
}
