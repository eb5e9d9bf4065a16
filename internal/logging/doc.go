// Package logging provides slog construction with console and JSON handlers
// plus the attribute helpers used throughout docmill.
package logging
