package patch

import (
	"regexp"
	"strings"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// diffStartRe recognizes the first line of a diff body inside a patch
// message. A bare "---" separator line does not match: a diff start needs
// content after the marker.
var diffStartRe = regexp.MustCompile(`^(---|\*\*\*|Index:)[ \t][^ \t]|^diff -|^index [0-9a-f]{7}`)

// headerLineRe matches an RFC 822 style "Key: value" header line.
var headerLineRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9-]*):[ \t](.*)$`)

// unixFromRe extracts a full commit hash from a mailbox "From <sha>" line,
// as written by git format-patch.
var unixFromRe = regexp.MustCompile(`^From ([0-9a-f]{40})`)

// diffstat row and summary lines, stripped from the parsed message so a
// refreshed stat can be recomputed from the (possibly re-filtered) hunks.
var (
	diffstatRowRe     = regexp.MustCompile(`^#? .* \| `)
	diffstatSummaryRe = regexp.MustCompile(`^#? .* files? changed(, .* insertions?\(\+\))?(, .* deletions?\(-\))?`)
)

// Header is one parsed patch header line. Order is preserved so a fixed
// patch keeps unknown headers in their original sequence.
type Header struct {
	Key   string
	Value string
}

// File is an existing on-disk patch parsed back into its parts: the header
// block, the message between headers and diff (with any embedded diffstat
// removed), and the per-file changes.
type File struct {
	// Headers holds the header block lines in order.
	Headers []Header

	// Body is the message text between the header block and the diff,
	// without the "---" separator or diffstat lines, trailing newline
	// trimmed.
	Body string

	// Changes is the parsed per-file diff.
	Changes []model.FileChange
}

// Get returns the first header value for key (case-insensitive),
// or "" when absent.
func (f *File) Get(key string) string {
	for _, h := range f.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// ParseFile parses patch text (a git format-patch mail or an exportpatch
// artifact) into a File.
//
// The header block ends at the first blank line or the first line that is
// not a "Key: value" pair. The message body runs until the first diff-start
// line; "---" separator lines and diffstat rows inside it are dropped, since
// the stat is recomputed on re-render.
func ParseFile(text string) *File {
	lines := strings.Split(text, "\n")
	f := &File{}

	i := 0
	// A leading mailbox line carries the commit hash; keep it as a
	// Git-commit header unless the patch names one explicitly.
	if i < len(lines) {
		if m := unixFromRe.FindStringSubmatch(lines[i]); m != nil {
			f.Headers = append(f.Headers, Header{Key: "Git-commit", Value: m[1]})
			i++
		}
	}

	for i < len(lines) {
		l := lines[i]
		if l == "" {
			i++
			break
		}
		m := headerLineRe.FindStringSubmatch(l)
		if m == nil {
			break
		}
		// Continuation lines (folded headers) are appended to the
		// previous value.
		value := m[2]
		for i+1 < len(lines) && (strings.HasPrefix(lines[i+1], " ") || strings.HasPrefix(lines[i+1], "\t")) {
			value += " " + strings.TrimSpace(lines[i+1])
			i++
		}
		f.Headers = append(f.Headers, Header{Key: m[1], Value: value})
		i++
	}

	var body []string
	for i < len(lines) {
		l := lines[i]
		if diffStartRe.MatchString(l) {
			break
		}
		i++
		if l == "---" || diffstatRowRe.MatchString(l) || diffstatSummaryRe.MatchString(l) {
			continue
		}
		body = append(body, l)
	}
	f.Body = strings.TrimRight(strings.Join(body, "\n"), "\n")

	if i < len(lines) {
		f.Changes = ParseDiff(strings.Join(lines[i:], "\n"))
	}
	return f
}
