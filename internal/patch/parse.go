package patch

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// hunkHeaderRe matches a unified diff hunk header and captures the old and
// new line counts. A missing count (e.g. "@@ -1 +1 @@") means 1.
var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,(\d+))? \+\d+(?:,(\d+))? @@`)

// diffGitRe captures the two paths of a "diff --git a/... b/..." line.
var diffGitRe = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)

// ParseDiff splits unified diff text into an ordered sequence of per-file
// FileChange records. It accepts git-style diffs ("diff --git" boundaries,
// as produced by git diff-tree -p) as well as plain unified diffs whose
// files start with a "--- " / "+++ " pair, so patches produced by other
// tools can be re-filtered.
//
// Anything before the first file boundary (such as the commit id line that
// diff-tree prints) is ignored. Hunk bodies are consumed by the line counts
// declared in the hunk header, so content lines that happen to look like
// file boundaries cannot split a file in two.
func ParseDiff(text string) []model.FileChange {
	lines := strings.Split(text, "\n")
	var changes []model.FileChange

	i := 0
	for i < len(lines) {
		switch {
		case strings.HasPrefix(lines[i], "diff --git "):
			fc, next := parseFile(lines, i)
			changes = append(changes, fc)
			i = next
		case strings.HasPrefix(lines[i], "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			fc, next := parseFile(lines, i)
			changes = append(changes, fc)
			i = next
		default:
			i++
		}
	}
	return changes
}

// parseFile consumes one file's header and hunks starting at lines[start].
// It returns the parsed change and the index of the first unconsumed line.
func parseFile(lines []string, start int) (model.FileChange, int) {
	fc := model.FileChange{Kind: model.KindModified}

	var gitOld, gitNew, oldPath, newPath string
	if m := diffGitRe.FindStringSubmatch(lines[start]); m != nil {
		gitOld, gitNew = m[1], m[2]
	}

	i := start
	for i < len(lines) {
		l := lines[i]
		if strings.HasPrefix(l, "@@") {
			break
		}
		if i > start && isFileBoundary(lines, i) {
			break
		}
		if l == "" {
			i++
			continue
		}

		switch {
		case strings.HasPrefix(l, "new file mode"):
			fc.Kind = model.KindAdded
		case strings.HasPrefix(l, "deleted file mode"):
			fc.Kind = model.KindDeleted
		case strings.HasPrefix(l, "rename from "):
			fc.Kind = model.KindRenamed
			fc.OldPath = strings.TrimPrefix(l, "rename from ")
		case strings.HasPrefix(l, "rename to "):
			newPath = strings.TrimPrefix(l, "rename to ")
		case strings.HasPrefix(l, "--- "):
			oldPath = stripPathPrefix(strings.TrimPrefix(l, "--- "))
		case strings.HasPrefix(l, "+++ "):
			newPath = stripPathPrefix(strings.TrimPrefix(l, "+++ "))
		}
		fc.Header = append(fc.Header, l)
		i++
	}

	for i < len(lines) && strings.HasPrefix(lines[i], "@@") {
		hunk, next := parseHunk(lines, i)
		fc.Hunks = append(fc.Hunks, hunk)
		i = next
	}

	fc.Path = choosePath(fc.Kind, oldPath, newPath, gitOld, gitNew)
	if fc.Kind == model.KindRenamed && fc.OldPath == "" {
		fc.OldPath = oldPath
	}
	return fc, i
}

// parseHunk consumes one hunk starting at the "@@" line at lines[start],
// reading exactly the number of body lines the header declares.
func parseHunk(lines []string, start int) (model.Hunk, int) {
	h := model.Hunk{Header: lines[start]}

	remOld, remNew := 1, 1
	if m := hunkHeaderRe.FindStringSubmatch(lines[start]); m != nil {
		if m[1] != "" {
			remOld, _ = strconv.Atoi(m[1])
		}
		if m[2] != "" {
			remNew, _ = strconv.Atoi(m[2])
		}
	}

	i := start + 1
	for i < len(lines) && (remOld > 0 || remNew > 0) {
		l := lines[i]
		switch {
		case strings.HasPrefix(l, "+"):
			remNew--
		case strings.HasPrefix(l, "-"):
			remOld--
		case strings.HasPrefix(l, "\\"):
			// "\ No newline at end of file" — counts toward neither side.
		default:
			remOld--
			remNew--
		}
		h.Lines = append(h.Lines, l)
		i++
	}

	// A trailing no-newline marker belongs to the hunk it follows.
	if i < len(lines) && strings.HasPrefix(lines[i], "\\") {
		h.Lines = append(h.Lines, lines[i])
		i++
	}
	return h, i
}

// isFileBoundary reports whether lines[i] starts a new file section.
func isFileBoundary(lines []string, i int) bool {
	if strings.HasPrefix(lines[i], "diff --git ") {
		return true
	}
	// A plain unified boundary is only trusted as a "---"/"+++" pair,
	// since "---" alone also appears as a patch separator line.
	return strings.HasPrefix(lines[i], "--- ") &&
		i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ ")
}

// stripPathPrefix removes the conventional a/ or b/ diff prefix and drops
// any trailing tab-separated timestamp some diff tools append.
func stripPathPrefix(p string) string {
	if tab := strings.IndexByte(p, '\t'); tab >= 0 {
		p = p[:tab]
	}
	if p == "/dev/null" {
		return ""
	}
	if len(p) > 2 && (strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/")) {
		return p[2:]
	}
	return p
}

// choosePath picks the change's identity path: the post-image path where
// one exists, the pre-image path for deletions, falling back to the
// "diff --git" line for binary changes that carry no ---/+++ pair.
func choosePath(kind model.ChangeKind, oldPath, newPath, gitOld, gitNew string) string {
	if kind == model.KindDeleted {
		if oldPath != "" {
			return oldPath
		}
		return gitOld
	}
	if newPath != "" {
		return newPath
	}
	if oldPath != "" {
		return oldPath
	}
	if gitNew != "" {
		return gitNew
	}
	return gitOld
}
