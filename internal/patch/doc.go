// Package patch implements the patch generation and filtering engine:
// splitting git diff output into ordered per-file changes, applying
// extract/exclude file filters, resolving the mainline provenance tag
// against candidate repositories, and rendering the final patch text with
// its header block and computed diffstat.
//
// Everything in this package is a pure function over its inputs; the sole
// side effect of an export (the filesystem write) lives in internal/output.
// Rendering is deterministic: identical inputs always produce byte-identical
// patch text.
package patch
