package model

import (
	"fmt"
	"strings"
	"time"
)

// ChangeKind classifies how a file was touched by a commit.
type ChangeKind string

const (
	// KindAdded marks a file created by the commit.
	KindAdded ChangeKind = "added"

	// KindModified marks a file whose content changed in place.
	KindModified ChangeKind = "modified"

	// KindDeleted marks a file removed by the commit.
	KindDeleted ChangeKind = "deleted"

	// KindRenamed marks a file moved from OldPath to Path. Git only emits
	// rename headers when rename detection is enabled; patches produced by
	// other tools may carry them regardless, so the parser recognizes them.
	KindRenamed ChangeKind = "renamed"
)

// String returns the string representation of ChangeKind.
func (k ChangeKind) String() string {
	return string(k)
}

// IsValid checks whether the ChangeKind value is one of the predefined kinds.
func (k ChangeKind) IsValid() bool {
	switch k {
	case KindAdded, KindModified, KindDeleted, KindRenamed:
		return true
	default:
		return false
	}
}

// Hunk is one contiguous block of a unified diff for a single file:
// the "@@ -a,b +c,d @@" header line plus its context/added/removed lines.
type Hunk struct {
	// Header is the full "@@ ... @@" line, without a trailing newline.
	Header string `json:"header"`

	// Lines are the hunk body lines in order, each retaining its leading
	// ' ', '+', '-' or '\' marker, without trailing newlines.
	Lines []string `json:"lines"`
}

// Added returns the number of added lines in the hunk.
func (h Hunk) Added() int {
	n := 0
	for _, l := range h.Lines {
		if strings.HasPrefix(l, "+") {
			n++
		}
	}
	return n
}

// Removed returns the number of removed lines in the hunk.
func (h Hunk) Removed() int {
	n := 0
	for _, l := range h.Lines {
		if strings.HasPrefix(l, "-") {
			n++
		}
	}
	return n
}

// Text reassembles the hunk as diff text, newline-terminated.
func (h Hunk) Text() string {
	var b strings.Builder
	b.WriteString(h.Header)
	b.WriteByte('\n')
	for _, l := range h.Lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// FileChange is one file's portion of a commit diff: the per-file header
// lines followed by an ordered sequence of hunks. Its identity is Path
// (and OldPath for renames). Hunk order is meaningful and is never changed
// by filtering.
type FileChange struct {
	// Path is the file path relative to the repository root. For deletions
	// this is the removed path; for renames it is the new path.
	Path string `json:"path"`

	// OldPath is the pre-rename path. Empty unless Kind is KindRenamed.
	OldPath string `json:"oldPath,omitempty"`

	// Kind classifies the change.
	Kind ChangeKind `json:"kind"`

	// Header holds the per-file diff header lines in order ("diff --git",
	// "index", mode lines, "---", "+++", rename markers, or a
	// "Binary files ... differ" marker), without trailing newlines.
	Header []string `json:"header"`

	// Hunks are the diff blocks for this file, in their original order.
	// Empty for binary changes and pure mode changes.
	Hunks []Hunk `json:"hunks"`
}

// Added returns the total number of added lines across all hunks.
func (c FileChange) Added() int {
	n := 0
	for _, h := range c.Hunks {
		n += h.Added()
	}
	return n
}

// Removed returns the total number of removed lines across all hunks.
func (c FileChange) Removed() int {
	n := 0
	for _, h := range c.Hunks {
		n += h.Removed()
	}
	return n
}

// Text reassembles the file change as diff text, newline-terminated.
func (c FileChange) Text() string {
	var b strings.Builder
	for _, l := range c.Header {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	for _, h := range c.Hunks {
		b.WriteString(h.Text())
	}
	return b.String()
}

// ResolvedCommit is an immutable snapshot of one commit: identity, message,
// and the ordered per-file diff. It is constructed once per export
// invocation and never mutated.
type ResolvedCommit struct {
	// SHA is the canonical full commit hash.
	SHA string `json:"sha"`

	// Author and AuthorEmail identify the patch author.
	Author      string `json:"author"`
	AuthorEmail string `json:"authorEmail"`

	// AuthorDate is the author timestamp; rendered in RFC 2822 form
	// in the patch header.
	AuthorDate time.Time `json:"authorDate"`

	// Committer and CommitterEmail identify who committed the change.
	// Not rendered in the patch, kept for provenance checks.
	Committer      string `json:"committer"`
	CommitterEmail string `json:"committerEmail"`

	// Subject is the first line of the commit message.
	Subject string `json:"subject"`

	// Body is the commit message after the subject line, without leading
	// blank separator and without trailing newline.
	Body string `json:"body,omitempty"`

	// Changes is the ordered per-file diff of the commit.
	Changes []FileChange `json:"changes"`
}

// ShortSHA returns the first eight hex digits of the commit hash,
// used by the filename conflict fallback.
func (c *ResolvedCommit) ShortSHA() string {
	if len(c.SHA) < 8 {
		return c.SHA
	}
	return c.SHA[:8]
}

// UnresolvedMainline is the Patch-mainline value emitted when a commit is
// not reachable from any configured mainline candidate. The tag line is
// always present in a rendered patch so its provenance stays auditable.
const UnresolvedMainline = "Not yet, in preparation"

// MainlineTag is the outcome of mainline provenance resolution.
// The zero value is the unresolved tag.
type MainlineTag struct {
	// Value is the tag text (a version tag, a next-release estimate, or
	// a queued marker). Ignored when Resolved is false.
	Value string `json:"value,omitempty"`

	// Resolved reports whether any candidate repository claimed the commit.
	Resolved bool `json:"resolved"`
}

// String returns the text rendered on the Patch-mainline header line.
func (t MainlineTag) String() string {
	if !t.Resolved {
		return UnresolvedMainline
	}
	return t.Value
}

// NumberingSpec carries the filename numbering options for a batch of
// exports: the starting number, the fixed zero-padding width, an optional
// filename suffix, and the overwrite policy.
type NumberingSpec struct {
	// Numbered enables the "<number>-" filename prefix.
	Numbered bool `json:"numbered"`

	// Start is the number assigned to the first export of the batch.
	Start int `json:"start"`

	// Width is the fixed digit count for zero padding. A number that needs
	// more digits than Width is a hard error, never silently widened —
	// consumers rely on fixed-width lexicographic ordering.
	Width int `json:"width"`

	// Suffix is appended to the filename after the sanitized subject
	// (typically ".patch"). May be empty.
	Suffix string `json:"suffix,omitempty"`

	// Force allows overwriting an existing file of the same name instead
	// of falling back to an alternate name.
	Force bool `json:"force"`
}

// Validate checks the numbering options for values the engine cannot
// work with.
func (s NumberingSpec) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("numbering start must not be negative, got %d", s.Start)
	}
	if s.Numbered && s.Width < 1 {
		return fmt.Errorf("numbering width must be at least 1, got %d", s.Width)
	}
	return nil
}

// NameChoice is the numbering engine's verdict for one export: the final
// filename and whether the conflict fallback had to rename it.
type NameChoice struct {
	// Name is the chosen filename (no directory component).
	Name string `json:"name"`

	// Renamed reports that the computed name already existed and a
	// disambiguated alternate was chosen instead. The caller is expected
	// to warn the user.
	Renamed bool `json:"renamed"`
}

// DestinationKind enumerates where a rendered patch can go.
type DestinationKind string

const (
	// DestStdout streams the patch to standard output. No file is created
	// and no naming or conflict logic applies.
	DestStdout DestinationKind = "stdout"

	// DestDir writes the patch into a directory under an engine-chosen name.
	DestDir DestinationKind = "dir"

	// DestFile writes the patch to an explicit file path, bypassing the
	// naming engine but not the overwrite policy.
	DestFile DestinationKind = "file"
)

// Destination identifies the output target of one export.
type Destination struct {
	Kind DestinationKind `json:"kind"`

	// Path is the directory (DestDir) or file (DestFile) path.
	// Unused for DestStdout.
	Path string `json:"path,omitempty"`
}

// Stdout returns the stream destination.
func Stdout() Destination {
	return Destination{Kind: DestStdout}
}

// Dir returns a directory destination.
func Dir(path string) Destination {
	return Destination{Kind: DestDir, Path: path}
}

// File returns an explicit-file destination.
func File(path string) Destination {
	return Destination{Kind: DestFile, Path: path}
}

// WriteOutcome reports what the output writer actually did.
type WriteOutcome struct {
	// Path is the final file path, which may differ from the initially
	// computed one when the conflict fallback renamed the patch.
	// Empty for stream writes.
	Path string `json:"path,omitempty"`

	// Stream reports that the patch went to stdout rather than a file.
	Stream bool `json:"stream"`
}
