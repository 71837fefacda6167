package patch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// mkChange builds a FileChange with the given number of added and removed
// lines in a single hunk.
func mkChange(path string, added, removed int) model.FileChange {
	var lines []string
	for i := 0; i < removed; i++ {
		lines = append(lines, "-x")
	}
	for i := 0; i < added; i++ {
		lines = append(lines, "+y")
	}
	return model.FileChange{
		Path:  path,
		Kind:  model.KindModified,
		Hunks: []model.Hunk{{Header: "@@ @@", Lines: lines}},
	}
}

// TestDiffstatLayout verifies column alignment across files of different
// name and count widths, and the trailing summary.
func TestDiffstatLayout(t *testing.T) {
	changes := []model.FileChange{
		mkChange("drivers/scsi/sd.c", 8, 4),
		mkChange("a.h", 1, 1),
	}

	got := Diffstat(changes)
	want := strings.Join([]string{
		" drivers/scsi/sd.c | 12 ++++++++----",
		" a.h               |  2 +-",
		" 2 files changed, 9 insertions(+), 5 deletions(-)",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

// TestDiffstatSummarySingular verifies singular forms and the omission of
// zero-valued parts.
func TestDiffstatSummarySingular(t *testing.T) {
	got := Diffstat([]model.FileChange{mkChange("f", 1, 0)})
	assert.Contains(t, got, " 1 file changed, 1 insertion(+)\n")
	assert.NotContains(t, got, "deletion")

	got = Diffstat([]model.FileChange{mkChange("f", 0, 2)})
	assert.Contains(t, got, " 1 file changed, 2 deletions(-)\n")
	assert.NotContains(t, got, "insertion")
}

// TestDiffstatHistogramScaling verifies the +/- histogram is scaled down
// for large files while keeping at least one mark per non-zero side.
func TestDiffstatHistogramScaling(t *testing.T) {
	got := Diffstat([]model.FileChange{mkChange("big.c", 599, 1)})

	line := strings.SplitN(got, "\n", 2)[0]
	plus := strings.Count(line, "+")
	minus := strings.Count(line, "-")

	assert.LessOrEqual(t, plus+minus, histogramMax)
	assert.GreaterOrEqual(t, minus, 1, "non-zero side must keep a mark: %q", line)
	assert.Greater(t, plus, minus)
}

// TestDiffstatBinaryRow verifies binary changes render a Bin row and do not
// contribute line counts.
func TestDiffstatBinaryRow(t *testing.T) {
	changes := []model.FileChange{
		{
			Path: "logo.png",
			Kind: model.KindModified,
			Header: []string{
				"diff --git a/logo.png b/logo.png",
				"Binary files a/logo.png and b/logo.png differ",
			},
		},
		mkChange("main.c", 1, 0),
	}

	got := Diffstat(changes)
	assert.Contains(t, got, " logo.png | Bin\n")
	assert.Contains(t, got, " 2 files changed, 1 insertion(+)\n")
}

// TestDiffstatRenameName verifies renames show both sides of the move.
func TestDiffstatRenameName(t *testing.T) {
	changes := []model.FileChange{
		{
			Path:    "new/f.c",
			OldPath: "old/f.c",
			Kind:    model.KindRenamed,
			Hunks:   []model.Hunk{{Header: "@@ @@", Lines: []string{"+x"}}},
		},
	}

	got := Diffstat(changes)
	assert.Contains(t, got, " old/f.c => new/f.c | 1 +\n")
}

// TestDiffstatEmpty verifies no changes yield no stat at all.
func TestDiffstatEmpty(t *testing.T) {
	assert.Empty(t, Diffstat(nil))
}
