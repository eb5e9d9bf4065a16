// Package daemon watches an intake root for batch folders and runs the
// pipeline over each, marking finished folders so they are never reprocessed.
// A file lock enforces a single instance per machine.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"docmill/internal/config"
	"docmill/internal/fileutil"
	"docmill/internal/logging"
	"docmill/internal/pipeline"
	"docmill/internal/workflow"
)

// ProcessFunc runs the pipeline over one batch folder.
type ProcessFunc func(ctx context.Context, root string) (workflow.Summary, error)

// Marker is the completion record written into a finished batch folder.
type Marker struct {
	CompletedAt time.Time `json:"completed_at"`
	Collected   int       `json:"collected"`
	Succeeded   int       `json:"succeeded"`
	Quarantined int       `json:"quarantined"`
}

// Watcher polls the watch root and processes candidate batch folders.
type Watcher struct {
	cfg       *config.Config
	watchRoot string
	process   ProcessFunc
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
}

// New constructs a watcher over one intake root.
func New(cfg *config.Config, watchRoot string, process ProcessFunc, logger *slog.Logger) (*Watcher, error) {
	if cfg == nil || process == nil {
		return nil, errors.New("daemon requires config and a process function")
	}
	lockPath := filepath.Join(cfg.Paths.LockDir, "docmilld.lock")
	return &Watcher{
		cfg:       cfg,
		watchRoot: watchRoot,
		process:   process,
		logger:    logging.WithComponent(logger, "daemon"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock.
func (w *Watcher) Start() error {
	if w.running.Load() {
		return errors.New("daemon already running")
	}
	if err := fileutil.EnsureDir(filepath.Dir(w.lockPath)); err != nil {
		return err
	}
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docmill daemon instance is already running")
	}
	w.running.Store(true)
	w.logger.Info("daemon started", logging.Args(
		logging.String("watch_root", w.watchRoot),
		logging.String("lock", w.lockPath),
	)...)
	return nil
}

// Stop releases the lock.
func (w *Watcher) Stop() {
	if !w.running.Load() {
		return
	}
	if err := w.lock.Unlock(); err != nil {
		w.logger.Warn("failed to release daemon lock", logging.Args(logging.Error(err))...)
	}
	w.running.Store(false)
	w.logger.Info("daemon stopped")
}

// Run polls until the context is cancelled, sweeping once immediately and
// then on every poll interval.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.Load() {
		return errors.New("daemon not started")
	}
	interval := time.Duration(w.cfg.Daemon.PollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("sweep failed", logging.Args(logging.Error(err))...)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep processes every current candidate folder once. Candidates are
// processed serially; batches parallelize internally through the worker
// pools, so overlapping two batches would just thrash the same resources.
func (w *Watcher) Sweep(ctx context.Context) error {
	candidates, err := w.Candidates()
	if err != nil {
		return err
	}
	for _, folder := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger := w.logger.With(logging.Args(logging.String("folder", filepath.Base(folder)))...)
		logger.Info("processing batch folder")

		summary, err := w.process(ctx, folder)
		if err != nil {
			logger.Error("batch failed, leaving folder unmarked", logging.Args(logging.Error(err))...)
			continue
		}
		if err := w.writeMarker(folder, summary); err != nil {
			logger.Error("write completion marker", logging.Args(logging.Error(err))...)
			continue
		}
		logger.Info("batch folder complete", logging.Args(
			logging.Int("succeeded", summary.Succeeded()),
			logging.Int("quarantined", summary.Quarantined()),
		)...)
	}
	return nil
}

// Candidates lists batch folders with documents to process and no completion
// marker, sorted by name.
func (w *Watcher) Candidates() ([]string, error) {
	entries, err := os.ReadDir(w.watchRoot)
	if err != nil {
		return nil, fmt.Errorf("read watch root: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		folder := filepath.Join(w.watchRoot, name)
		if _, err := os.Stat(filepath.Join(folder, w.cfg.Daemon.MarkerName)); err == nil {
			continue
		}
		hasDocs, err := folderHasDocuments(folder)
		if err != nil {
			return nil, err
		}
		if hasDocs {
			candidates = append(candidates, folder)
		}
	}
	return candidates, nil
}

func (w *Watcher) writeMarker(folder string, summary workflow.Summary) error {
	marker := Marker{
		CompletedAt: time.Now().UTC(),
		Collected:   len(summary.Collected),
		Succeeded:   summary.Succeeded(),
		Quarantined: summary.Quarantined(),
	}
	data, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(filepath.Join(folder, w.cfg.Daemon.MarkerName), data, 0o644)
}

// folderHasDocuments reports whether a folder holds PDFs awaiting work:
// loose at its root or staged in 01_doc-original.
func folderHasDocuments(folder string) (bool, error) {
	for _, dir := range []string{folder, filepath.Join(folder, pipeline.DirOriginal)} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return false, err
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
				continue
			}
			if strings.EqualFold(filepath.Ext(name), ".pdf") {
				return true, nil
			}
		}
	}
	return false, nil
}
