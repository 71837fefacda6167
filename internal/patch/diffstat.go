package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// histogramMax caps the +/- histogram width so long diffs stay readable.
const histogramMax = 60

// Diffstat renders a per-file change summary in the classic diffstat
// layout, newline-terminated:
//
//	 drivers/scsi/sd.c | 12 ++++++-----
//	 include/scsi/sd.h |  2 +-
//	 2 files changed, 8 insertions(+), 6 deletions(-)
//
// The stat is computed from the parsed hunks rather than shelling out to
// diffstat(1), so the output does not depend on host tooling.
func Diffstat(changes []model.FileChange) string {
	if len(changes) == 0 {
		return ""
	}

	type row struct {
		name   string
		count  int
		added  int
		remove int
		binary bool
	}

	rows := make([]row, 0, len(changes))
	maxName, maxCount := 0, 0
	totalAdded, totalRemoved := 0, 0

	for _, c := range changes {
		r := row{name: statName(c), added: c.Added(), remove: c.Removed()}
		r.count = r.added + r.remove
		r.binary = len(c.Hunks) == 0 && isBinaryChange(c)

		if len(r.name) > maxName {
			maxName = len(r.name)
		}
		if d := len(strconv.Itoa(r.count)); d > maxCount {
			maxCount = d
		}
		totalAdded += r.added
		totalRemoved += r.remove
		rows = append(rows, r)
	}

	var b strings.Builder
	for _, r := range rows {
		if r.binary {
			fmt.Fprintf(&b, " %-*s | Bin\n", maxName, r.name)
			continue
		}
		plus, minus := scaleHistogram(r.added, r.remove)
		fmt.Fprintf(&b, " %-*s | %*d %s%s\n", maxName, r.name, maxCount, r.count,
			strings.Repeat("+", plus), strings.Repeat("-", minus))
	}

	b.WriteString(" " + summaryLine(len(rows), totalAdded, totalRemoved) + "\n")
	return b.String()
}

// statName is the path shown in the stat table; renames show both sides.
func statName(c model.FileChange) string {
	if c.Kind == model.KindRenamed && c.OldPath != "" {
		return c.OldPath + " => " + c.Path
	}
	return c.Path
}

// isBinaryChange reports whether the change carries a binary marker
// instead of hunks.
func isBinaryChange(c model.FileChange) bool {
	for _, l := range c.Header {
		if strings.HasPrefix(l, "Binary files ") || strings.HasPrefix(l, "GIT binary patch") {
			return true
		}
	}
	return false
}

// scaleHistogram shrinks the +/- marks proportionally when a file's total
// exceeds the histogram cap, keeping at least one mark per non-zero side.
func scaleHistogram(added, removed int) (int, int) {
	total := added + removed
	if total <= histogramMax {
		return added, removed
	}
	plus := added * histogramMax / total
	minus := removed * histogramMax / total
	if added > 0 && plus == 0 {
		plus = 1
	}
	if removed > 0 && minus == 0 {
		minus = 1
	}
	return plus, minus
}

// summaryLine renders the trailing "N files changed, ..." line, omitting
// zero-valued insertion/deletion parts the way git does.
func summaryLine(files, added, removed int) string {
	s := fmt.Sprintf("%d file%s changed", files, plural(files))
	if added > 0 {
		s += fmt.Sprintf(", %d insertion%s(+)", added, plural(added))
	}
	if removed > 0 {
		s += fmt.Sprintf(", %d deletion%s(-)", removed, plural(removed))
	}
	return s
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
