// Package config loads, normalizes, and validates docmill configuration from
// TOML files with sane defaults for every section.
package config
