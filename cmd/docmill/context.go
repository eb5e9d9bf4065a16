package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"docmill/internal/config"
	"docmill/internal/dispatch"
	"docmill/internal/logging"
	"docmill/internal/pdftext"
	"docmill/internal/pipeline"
	"docmill/internal/quarantine"
	"docmill/internal/services/docai"
	"docmill/internal/services/gcs"
	"docmill/internal/services/gemini"
	"docmill/internal/services/ocrmypdf"
	"docmill/internal/stages"
	"docmill/internal/verify"
	"docmill/internal/workflow"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		var logPath string
		if cfg.Paths.LogDir != "" {
			logPath = filepath.Join(cfg.Paths.LogDir, "docmill.log")
		}
		c.logger, c.loggerErr = logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Path:   logPath,
		})
	})
	return c.logger, c.loggerErr
}

// batchServices bundles everything a batch command needs for one root.
type batchServices struct {
	cfg        *config.Config
	root       string
	logger     *slog.Logger
	stages     *stages.Service
	dispatcher *dispatch.Dispatcher
	runner     *workflow.Runner
	verifier   *verify.Verifier
	uploader   *gcs.Client

	closers []func() error
}

func (b *batchServices) Close() {
	for _, closer := range b.closers {
		_ = closer()
	}
}

// buildBatchServices assembles the service adapters for one batch root. Cloud
// adapters are only constructed when their section is configured; stages
// whose collaborator is missing fail with a configuration error if invoked.
func (c *commandContext) buildBatchServices(ctx context.Context, root string) (*batchServices, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	absRoot, err := config.ExpandPath(root)
	if err != nil {
		return nil, err
	}

	b := &batchServices{cfg: cfg, root: absRoot, logger: logger}

	ocr := ocrmypdf.New(cfg)

	var extractor stages.Extractor
	if cfg.DocAI.ProjectID != "" {
		client, err := docai.New(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("document ai: %w", err)
		}
		b.closers = append(b.closers, client.Close)
		extractor = client
	}

	var formatter stages.BodyFormatter
	if cfg.Gemini.ProjectID != "" {
		f, err := gemini.New(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("gemini: %w", err)
		}
		b.closers = append(b.closers, f.Close)
		formatter = f
	}

	var uploader stages.Uploader
	if cfg.Storage.Bucket != "" {
		client, err := gcs.New(ctx, cfg)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("object storage: %w", err)
		}
		b.uploader = client
		uploader = client
	}

	b.stages = stages.New(cfg, absRoot, ocr, extractor, formatter, uploader, logger)
	b.dispatcher = dispatch.New(cfg, quarantine.New(absRoot), logger)
	b.runner = workflow.New(cfg, absRoot, b.dispatcher, b.stages, logger)

	var prober verify.LinkProber
	if b.uploader != nil {
		prober = b.uploader
	}
	b.verifier = verify.New(cfg, pdftext.Inspector{}, prober, logger)
	return b, nil
}

// verifyDocuments builds the verification inputs for every formatted
// document under the batch root.
func (b *batchServices) verifyDocuments() ([]verify.Document, error) {
	formatted, err := pipeline.Scan(filepath.Join(b.root, pipeline.DirFormatted), ".txt")
	if err != nil {
		return nil, err
	}
	cleaned, err := pipeline.Scan(filepath.Join(b.root, pipeline.DirClean), ".pdf")
	if err != nil {
		return nil, err
	}

	docs := make([]verify.Document, 0, len(formatted))
	for _, file := range formatted.Sorted() {
		doc := verify.Document{
			Base:              file.Base,
			FormattedText:     file.Path,
			ExpectedDirectory: b.stages.DirectoryHeaderValue(),
		}
		if clean, ok := cleaned[file.Base]; ok {
			doc.CleanPDF = clean.Path
			doc.ExpectedLink = b.stages.ExpectedLink(file.Base)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// historyPath resolves where verification runs are recorded for a root.
func (b *batchServices) historyPath() string {
	if !b.cfg.History.Enabled {
		return ""
	}
	if b.cfg.History.Path != "" {
		return b.cfg.History.Path
	}
	return filepath.Join(b.root, pipeline.DirLogs, "verification.db")
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
