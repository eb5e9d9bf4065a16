// Package textdoc implements the processed-document text contract: the
// information header, the body delimited by BEGINNING/END separator blocks,
// per-page markers, and the pure split/join operations the format and
// verification stages rely on.
package textdoc
