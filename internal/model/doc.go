// Package model defines the domain types for the exportpatch CLI.
//
// This package contains pure data structures with no external dependencies.
// The central entities are ResolvedCommit (an immutable snapshot of one
// commit plus its ordered per-file diff) and FileChange (one file's portion
// of a unified diff). Everything here is constructed once per export or fix
// invocation and never mutated afterwards.
//
// The package also defines exit codes (ExitCode), a carrier error type
// (CLIError), and the typed error kinds the rest of the tool reports:
// invalid references, unknown commits, conflicting filters, out-of-range
// patch numbers, and destination problems. Each typed error records the
// offending input so the CLI can produce an actionable message.
package model
