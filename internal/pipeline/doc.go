// Package pipeline models the on-disk stage state machine: suffix-based file
// identity, stage directory layout, manifest scanning, and resume planning.
// All pipeline state is derived from the filesystem; nothing here persists
// state of its own, which is what makes every run resumable.
package pipeline
