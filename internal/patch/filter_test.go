package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// filterChanges builds a small commit diff for filter tests.
func filterChanges() []model.FileChange {
	return []model.FileChange{
		{Path: "drivers/scsi/sd.c", Kind: model.KindModified},
		{Path: "drivers/scsi/sr.c", Kind: model.KindModified},
		{Path: "include/scsi/sd.h", Kind: model.KindModified},
		{Path: "Documentation/scsi.txt", Kind: model.KindModified},
	}
}

// TestFilterNone verifies that no filters keep everything and report no
// partial patch.
func TestFilterNone(t *testing.T) {
	res, err := Filter(filterChanges(), nil, nil)
	require.NoError(t, err)

	assert.Len(t, res.Kept, 4)
	assert.False(t, res.Partial)
	assert.Empty(t, res.Selectors)
	assert.Empty(t, res.Unmatched)
}

// TestFilterConflicting verifies extract and exclude together are refused.
func TestFilterConflicting(t *testing.T) {
	_, err := Filter(filterChanges(), []string{"drivers/"}, []string{"*.txt"})
	require.Error(t, err)

	var conflict *model.ConflictingFilterError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"drivers/"}, conflict.Extract)
}

// TestFilterExtractExact verifies exact-path extraction keeps only the named
// file, preserves order, and marks the result partial.
func TestFilterExtractExact(t *testing.T) {
	res, err := Filter(filterChanges(), []string{"include/scsi/sd.h"}, nil)
	require.NoError(t, err)

	require.Len(t, res.Kept, 1)
	assert.Equal(t, "include/scsi/sd.h", res.Kept[0].Path)
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"include/scsi/sd.h"}, res.Selectors)
	assert.Empty(t, res.Unmatched)
}

// TestFilterExtractHierarchy verifies the trailing-slash selector keeps a
// whole directory subtree. A selector without the slash must not prefix-match.
func TestFilterExtractHierarchy(t *testing.T) {
	res, err := Filter(filterChanges(), []string{"drivers/scsi/"}, nil)
	require.NoError(t, err)

	require.Len(t, res.Kept, 2)
	assert.Equal(t, "drivers/scsi/sd.c", res.Kept[0].Path)
	assert.Equal(t, "drivers/scsi/sr.c", res.Kept[1].Path)

	// "drivers/scsi" without the slash is an exact path, which matches no
	// change here.
	res, err = Filter(filterChanges(), []string{"drivers/scsi"}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Kept)
	assert.Equal(t, []string{"drivers/scsi"}, res.Unmatched)
}

// TestFilterExtractUnion verifies repeated selectors combine by union and
// that only the selectors matching nothing are reported unmatched.
func TestFilterExtractUnion(t *testing.T) {
	res, err := Filter(filterChanges(),
		[]string{"drivers/scsi/sd.c", "Documentation/", "net/core/"}, nil)
	require.NoError(t, err)

	require.Len(t, res.Kept, 2)
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"net/core/"}, res.Unmatched)
}

// TestFilterExtractMatchesOldPath verifies a rename is selected when the
// selector names its pre-rename path.
func TestFilterExtractMatchesOldPath(t *testing.T) {
	changes := []model.FileChange{
		{Path: "new/dir/f.c", OldPath: "old/dir/f.c", Kind: model.KindRenamed},
	}

	res, err := Filter(changes, []string{"old/dir/"}, nil)
	require.NoError(t, err)
	require.Len(t, res.Kept, 1)
	assert.Empty(t, res.Unmatched)
}

// TestFilterExclude verifies gitignore-style exclude patterns drop matching
// changes and that selectors are reported with the "!" prefix.
func TestFilterExclude(t *testing.T) {
	res, err := Filter(filterChanges(), nil, []string{"Documentation/*", "*.h"})
	require.NoError(t, err)

	require.Len(t, res.Kept, 2)
	assert.Equal(t, "drivers/scsi/sd.c", res.Kept[0].Path)
	assert.Equal(t, "drivers/scsi/sr.c", res.Kept[1].Path)
	assert.True(t, res.Partial)
	assert.Equal(t, []string{"!Documentation/*", "!*.h"}, res.Selectors)
}

// TestFilterExcludeMatchesOldPath verifies a rename out of an excluded tree
// is dropped even though its new path no longer matches the pattern.
func TestFilterExcludeMatchesOldPath(t *testing.T) {
	changes := []model.FileChange{
		{Path: "new/dir/f.c", OldPath: "old/dir/f.c", Kind: model.KindRenamed},
		{Path: "drivers/scsi/sd.c", Kind: model.KindModified},
	}

	res, err := Filter(changes, nil, []string{"old/dir/*"})
	require.NoError(t, err)

	require.Len(t, res.Kept, 1)
	assert.Equal(t, "drivers/scsi/sd.c", res.Kept[0].Path)
	assert.True(t, res.Partial)
}

// TestFilterExcludeNoMatch verifies an exclude pattern matching nothing is a
// silent no-op.
func TestFilterExcludeNoMatch(t *testing.T) {
	res, err := Filter(filterChanges(), nil, []string{"*.rs"})
	require.NoError(t, err)

	assert.Len(t, res.Kept, 4)
	assert.False(t, res.Partial)
	assert.Equal(t, []string{"!*.rs"}, res.Selectors)
}

// TestFilterEmptyResult verifies that filtering everything away is valid
// output, not an error.
func TestFilterEmptyResult(t *testing.T) {
	res, err := Filter(filterChanges(), nil, []string{"*"})
	require.NoError(t, err)

	assert.Empty(t, res.Kept)
	assert.True(t, res.Partial)
}
