// Package preflight provides readiness checks for the external services and
// filesystem paths a batch run depends on.
//
// These checks run in two contexts:
//   - The CLI runs RunAll before a batch; a failed required check stops the
//     run before any document burns its retry budget on a doomed stage.
//   - The "docmill preflight" command displays the same results as a table.
//
// Checks for unconfigured features are skipped rather than failed.
package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"docmill/internal/config"
	"docmill/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the applicable checks for one batch root.
func RunAll(ctx context.Context, cfg *config.Config, root string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Batch root", root),
		CheckDiskSpace(root, minFreeBytes),
	}

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
		if status.Available {
			result.Detail = status.Command
		}
		if status.Optional && !status.Available {
			continue
		}
		results = append(results, result)
	}

	if cloudConfigured(cfg) {
		results = append(results, CheckCredentials())
	}
	return results
}

// Passed reports whether every check succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// minFreeBytes is the floor below which a batch run refuses to start; OCR of
// a large scan can easily need this much scratch space.
const minFreeBytes = 2 << 30

// CheckDirectoryAccess verifies that the directory exists and is
// readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has at least min free
// bytes.
func CheckDiskSpace(path string, min uint64) Result {
	const name = "Disk space"
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%d MiB free, need %d MiB", free>>20, min>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MiB free", free>>20)}
}

// CheckCredentials verifies that Google Cloud credentials are discoverable:
// either GOOGLE_APPLICATION_CREDENTIALS points at a readable file or the
// gcloud application-default login file exists.
func CheckCredentials() Result {
	const name = "Google credentials"
	if path := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("GOOGLE_APPLICATION_CREDENTIALS: %v", err)}
		}
		return Result{Name: name, Passed: true, Detail: "service account key file"}
	}
	home, err := os.UserHomeDir()
	if err == nil {
		adc := filepath.Join(home, ".config", "gcloud", "application_default_credentials.json")
		if _, err := os.Stat(adc); err == nil {
			return Result{Name: name, Passed: true, Detail: "application default credentials"}
		}
	}
	return Result{Name: name, Detail: "no service account key or application default credentials found"}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "ocrmypdf",
			Command:     cfg.OCR.Binary,
			Description: "Required for the clean stage",
		},
	})
}

// cloudConfigured reports whether any stage will reach Google Cloud, which is
// when credentials matter.
func cloudConfigured(cfg *config.Config) bool {
	return cfg.Storage.Bucket != "" || cfg.DocAI.ProjectID != "" || cfg.Gemini.ProjectID != ""
}
