// Command docmilld watches an intake directory and runs the document
// pipeline over every batch folder that appears in it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"docmill/internal/config"
	"docmill/internal/daemon"
	"docmill/internal/dispatch"
	"docmill/internal/logging"
	"docmill/internal/quarantine"
	"docmill/internal/services/docai"
	"docmill/internal/services/gcs"
	"docmill/internal/services/gemini"
	"docmill/internal/services/ocrmypdf"
	"docmill/internal/stages"
	"docmill/internal/workflow"
)

func main() {
	cmd := newCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var configFlag string
	var uploadFlag bool

	cmd := &cobra.Command{
		Use:           "docmilld <watch-root>",
		Short:         "Document pipeline folder watcher",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configFlag)
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			watchRoot, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, watchRoot, uploadFlag)
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVar(&uploadFlag, "upload", true, "Upload cleaned PDFs after each batch")
	return cmd
}

func run(cmdCtx context.Context, cfg *config.Config, watchRoot string, upload bool) error {
	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var logPath string
	if cfg.Paths.LogDir != "" {
		logPath = filepath.Join(cfg.Paths.LogDir, "docmilld.log")
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Path:   logPath,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	process := func(ctx context.Context, root string) (workflow.Summary, error) {
		return processBatch(ctx, cfg, root, upload, logger)
	}
	watcher, err := daemon.New(cfg, watchRoot, process, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// processBatch wires a fresh service set for one batch folder and runs the
// full pipeline over it. Cloud clients are scoped to the batch so a long-idle
// daemon holds no stale connections.
func processBatch(ctx context.Context, cfg *config.Config, root string, upload bool, logger *slog.Logger) (workflow.Summary, error) {
	ocr := ocrmypdf.New(cfg)

	var extractor stages.Extractor
	if cfg.DocAI.ProjectID != "" {
		client, err := docai.New(ctx, cfg)
		if err != nil {
			return workflow.Summary{}, fmt.Errorf("document ai: %w", err)
		}
		defer client.Close()
		extractor = client
	}

	var formatter stages.BodyFormatter
	if cfg.Gemini.ProjectID != "" {
		f, err := gemini.New(ctx, cfg)
		if err != nil {
			return workflow.Summary{}, fmt.Errorf("gemini: %w", err)
		}
		defer f.Close()
		formatter = f
	}

	var uploader stages.Uploader
	if cfg.Storage.Bucket != "" {
		client, err := gcs.New(ctx, cfg)
		if err != nil {
			return workflow.Summary{}, fmt.Errorf("object storage: %w", err)
		}
		uploader = client
	}

	svc := stages.New(cfg, root, ocr, extractor, formatter, uploader, logger)
	dispatcher := dispatch.New(cfg, quarantine.New(root), logger)
	runner := workflow.New(cfg, root, dispatcher, svc, logger)

	return runner.Run(ctx, workflow.Options{Upload: upload && uploader != nil})
}
