package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration shared by the CLI and the daemon.
type Paths struct {
	LogDir  string `toml:"log_dir"`
	LockDir string `toml:"lock_dir"`
}

// Storage contains object storage settings for the upload stage and link
// verification.
type Storage struct {
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	PublicHost     string `toml:"public_host"`
	RequestTimeout int    `toml:"request_timeout"`
}

// DocAI contains Google Document AI settings for the convert stage.
type DocAI struct {
	ProjectID      string `toml:"project_id"`
	Location       string `toml:"location"`
	ProcessorID    string `toml:"processor_id"`
	PayloadLimitMB int    `toml:"payload_limit_mb"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains Vertex AI settings for the format stage.
type Gemini struct {
	ProjectID       string  `toml:"project_id"`
	Location        string  `toml:"location"`
	Model           string  `toml:"model"`
	Temperature     float64 `toml:"temperature"`
	MaxOutputTokens int     `toml:"max_output_tokens"`
	ChunkPages      int     `toml:"chunk_pages"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// OCR contains ocrmypdf settings for the clean stage.
type OCR struct {
	Binary                string `toml:"binary"`
	Oversample            int    `toml:"oversample"`
	EnhancedOversample    int    `toml:"enhanced_oversample"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	SequentialThresholdMB int    `toml:"sequential_threshold_mb"`
}

// Workers contains dispatcher pool sizing and the retry budget.
type Workers struct {
	Network               int `toml:"network"`
	Local                 int `toml:"local"`
	Retries               int `toml:"retries"`
	AttemptTimeoutSeconds int `toml:"attempt_timeout_seconds"`
}

// LocalPoolSize resolves the local pool width, deriving it from the core
// count when the configured value is zero.
func (w Workers) LocalPoolSize() int {
	if w.Local > 0 {
		return w.Local
	}
	return runtime.NumCPU()
}

// Verification contains fidelity scoring policy.
type Verification struct {
	AccuracyWarn       int      `toml:"accuracy_warn"`
	SamplePages        string   `toml:"sample_pages"`
	PageCountTolerance int      `toml:"page_count_tolerance"`
	ProbeLinks         bool     `toml:"probe_links"`
	PathHeaderPrefixes []string `toml:"path_header_prefixes"`
}

// Repair contains remediation policy.
type Repair struct {
	VerifyAfterRepair bool `toml:"verify_after_repair"`
}

// History contains the verification history store settings.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Daemon contains folder-watcher settings.
type Daemon struct {
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	MarkerName          string `toml:"marker_name"`
}

// Config encapsulates all configuration values for docmill.
//
// Sections by subsystem:
//   - Paths: log and lock directories
//   - Storage: object storage bucket for cleaned PDFs and public links
//   - DocAI: Document AI text recognition for the convert stage
//   - Gemini: Vertex AI text normalization for the format stage
//   - OCR: ocrmypdf invocation for the clean stage
//   - Workers: dispatcher pool sizes, retry budget, attempt timeout
//   - Verification: accuracy thresholds and sampling policy
//   - Repair: remediation behavior
//   - History: sqlite verification history
//   - Logging: log format and level
//   - Daemon: folder watch intervals and completion marker
type Config struct {
	Paths        Paths        `toml:"paths"`
	Storage      Storage      `toml:"storage"`
	DocAI        DocAI        `toml:"docai"`
	Gemini       Gemini       `toml:"gemini"`
	OCR          OCR          `toml:"ocr"`
	Workers      Workers      `toml:"workers"`
	Verification Verification `toml:"verification"`
	Repair       Repair       `toml:"repair"`
	History      History      `toml:"history"`
	Logging      Logging      `toml:"logging"`
	Daemon       Daemon       `toml:"daemon"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docmill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("docmill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline needs outside the
// batch root.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
