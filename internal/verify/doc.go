// Package verify scores how faithfully a processed text document represents
// its source PDF: structural marker checks, boundary-page content sampling,
// header validation, and link reachability, rolled up into a per-document
// verification record with an OK / WARNING / FAILED status.
package verify
