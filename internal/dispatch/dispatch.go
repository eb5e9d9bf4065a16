// Package dispatch runs one stage's pending files through a transform with
// bounded concurrency, bounded retries, and quarantine on exhaustion. A batch
// never aborts because one document fails: every file gets its budget, then
// either succeeds or lands in x_failed with a record.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docmill/internal/config"
	"docmill/internal/logging"
	"docmill/internal/pipeline"
	"docmill/internal/quarantine"
	"docmill/internal/services"
)

// Transform performs one stage's work for a single file and returns the
// output artifact path. It must be safe for concurrent use across files.
type Transform func(ctx context.Context, file pipeline.File) (string, error)

// Status is the terminal outcome for one file.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusQuarantined Status = "quarantined"
)

// Result records what happened to one file, including how many attempts it
// consumed and how long it held a worker.
type Result struct {
	File     pipeline.File
	Output   string
	Status   Status
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Dispatcher owns the worker pools and retry policy for stage execution.
type Dispatcher struct {
	cfg    *config.Config
	area   *quarantine.Area
	logger *slog.Logger
}

// New builds a dispatcher for one batch root.
func New(cfg *config.Config, area *quarantine.Area, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, area: area, logger: logging.WithComponent(logger, "dispatch")}
}

// Run executes the stage's files: the below-threshold set concurrently on the
// stage's pool, then the at-or-above set one at a time, smallest first in
// both passes. The parallel pass fully drains before the sequential pass
// starts. Run only returns an error when the context is cancelled; per-file
// failures are reported in the results.
func (d *Dispatcher) Run(ctx context.Context, stage pipeline.Stage, files []pipeline.File, transform Transform) ([]Result, error) {
	parallel, sequential := pipeline.Partition(files, stage.Threshold)
	d.logger.InfoContext(ctx, "dispatching stage", logging.Args(
		logging.String(logging.FieldStage, string(stage.Name)),
		logging.Int("pending", len(files)),
		logging.Int("parallel", len(parallel)),
		logging.Int("sequential", len(sequential)),
	)...)

	results := make([]Result, 0, len(files))
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.poolSize(stage.Resource))
	for _, file := range parallel {
		group.Go(func() error {
			result := d.process(groupCtx, stage, file, transform)
			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	for _, file := range sequential {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, d.process(ctx, stage, file, transform))
	}
	return results, nil
}

func (d *Dispatcher) poolSize(resource pipeline.Resource) int {
	if resource == pipeline.ResourceNetwork {
		return d.cfg.Workers.Network
	}
	return d.cfg.Workers.LocalPoolSize()
}

// process drives one file through the retry loop. Each attempt gets its own
// timeout; validation and configuration errors short-circuit the budget since
// retrying them cannot help.
func (d *Dispatcher) process(ctx context.Context, stage pipeline.Stage, file pipeline.File, transform Transform) Result {
	start := time.Now()
	logger := d.logger.With(logging.Args(
		logging.String(logging.FieldStage, string(stage.Name)),
		logging.String(logging.FieldDocument, file.Base),
	)...)

	var lastErr error
	attempts := 0
	for attempts < d.cfg.Workers.Retries {
		attempts++
		output, err := d.attempt(ctx, file, transform)
		if err == nil {
			logger.InfoContext(ctx, "file processed", logging.Args(
				logging.Int("attempts", attempts),
				logging.Duration("elapsed", time.Since(start)),
			)...)
			return Result{File: file, Output: output, Status: StatusSuccess, Attempts: attempts, Elapsed: time.Since(start)}
		}
		lastErr = err
		if errors.Is(ctx.Err(), context.Canceled) {
			break
		}
		if !services.Retryable(err) {
			logger.WarnContext(ctx, "permanent failure, skipping retries", logging.Args(
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
			)...)
			break
		}
		logger.WarnContext(ctx, "attempt failed", logging.Args(
			logging.Int("attempt", attempts),
			logging.Int("budget", d.cfg.Workers.Retries),
			logging.Error(err),
		)...)
	}

	result := Result{File: file, Status: StatusQuarantined, Attempts: attempts, Elapsed: time.Since(start), Err: lastErr}
	if _, qerr := d.area.Quarantine(file, stage.Name, attempts, lastErr); qerr != nil {
		logger.ErrorContext(ctx, "quarantine failed, file left in place", logging.Args(logging.Error(qerr))...)
	} else {
		logger.ErrorContext(ctx, "file quarantined", logging.Args(
			logging.Int("attempts", attempts),
			logging.String(logging.FieldErrorKind, services.Kind(lastErr)),
			logging.Error(lastErr),
		)...)
	}
	return result
}

func (d *Dispatcher) attempt(ctx context.Context, file pipeline.File, transform Transform) (string, error) {
	timeout := time.Duration(d.cfg.Workers.AttemptTimeoutSeconds) * time.Second
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := transform(attemptCtx, file)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return "", services.Wrap(services.ErrTimeout, "", "attempt", "exceeded "+timeout.String(), err)
	}
	return output, err
}
