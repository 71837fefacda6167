package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// gitDiffFixture is a diff-tree style diff covering a modification, an added
// file and a deleted file. The leading commit id line mimics what
// `git diff-tree -p <sha>` prints before the first file.
const gitDiffFixture = `0123456789abcdef0123456789abcdef01234567
diff --git a/drivers/scsi/sd.c b/drivers/scsi/sd.c
index 1111111..2222222 100644
--- a/drivers/scsi/sd.c
+++ b/drivers/scsi/sd.c
@@ -10,3 +10,4 @@ static int sd_probe(void)
 	int ret;
-	ret = old_call();
+	ret = new_call();
+	check(ret);
 	return ret;
diff --git a/drivers/scsi/sd_new.h b/drivers/scsi/sd_new.h
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/drivers/scsi/sd_new.h
@@ -0,0 +1,2 @@
+#pragma once
+int sd_new(void);
diff --git a/Documentation/old.txt b/Documentation/old.txt
deleted file mode 100644
index 4444444..0000000
--- a/Documentation/old.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-stale
-docs
`

// TestParseDiffGitStyle verifies splitting a diff-tree diff into per-file
// changes with the right kinds, paths and hunk counts.
func TestParseDiffGitStyle(t *testing.T) {
	changes := ParseDiff(gitDiffFixture)
	require.Len(t, changes, 3)

	mod := changes[0]
	assert.Equal(t, "drivers/scsi/sd.c", mod.Path)
	assert.Equal(t, model.KindModified, mod.Kind)
	require.Len(t, mod.Hunks, 1)
	assert.Equal(t, 2, mod.Added())
	assert.Equal(t, 1, mod.Removed())

	added := changes[1]
	assert.Equal(t, "drivers/scsi/sd_new.h", added.Path)
	assert.Equal(t, model.KindAdded, added.Kind)
	assert.Equal(t, 2, added.Added())
	assert.Equal(t, 0, added.Removed())

	deleted := changes[2]
	assert.Equal(t, "Documentation/old.txt", deleted.Path)
	assert.Equal(t, model.KindDeleted, deleted.Kind)
	assert.Equal(t, 2, deleted.Removed())
}

// TestParseDiffRoundTrip verifies that reassembling the parsed changes
// reproduces the diff body byte-for-byte (minus the leading commit id line
// that is not part of any file).
func TestParseDiffRoundTrip(t *testing.T) {
	changes := ParseDiff(gitDiffFixture)
	require.Len(t, changes, 3)

	var got string
	for _, c := range changes {
		got += c.Text()
	}

	// Everything after the commit id line.
	want := gitDiffFixture[len("0123456789abcdef0123456789abcdef01234567\n"):]
	assert.Equal(t, want, got)
}

// TestParseDiffRename verifies rename header handling: kind, old and new
// paths.
func TestParseDiffRename(t *testing.T) {
	diff := `diff --git a/old/name.c b/new/name.c
similarity index 95%
rename from old/name.c
rename to new/name.c
index 1111111..2222222 100644
--- a/old/name.c
+++ b/new/name.c
@@ -1 +1 @@
-int x;
+int y;
`
	changes := ParseDiff(diff)
	require.Len(t, changes, 1)
	assert.Equal(t, model.KindRenamed, changes[0].Kind)
	assert.Equal(t, "new/name.c", changes[0].Path)
	assert.Equal(t, "old/name.c", changes[0].OldPath)
}

// TestParseDiffPlainUnified verifies that a non-git unified diff, whose file
// sections begin with a ---/+++ pair, is parsed too. Such diffs come from
// patches produced by other tools.
func TestParseDiffPlainUnified(t *testing.T) {
	diff := `--- a/src/main.c	2024-01-01 00:00:00
+++ b/src/main.c	2024-01-02 00:00:00
@@ -1,2 +1,2 @@
 int main(void) {
-	return 1;
+	return 0;
`
	changes := ParseDiff(diff)
	require.Len(t, changes, 1)
	assert.Equal(t, "src/main.c", changes[0].Path)
	assert.Equal(t, model.KindModified, changes[0].Kind)
	assert.Equal(t, 1, changes[0].Added())
}

// TestParseDiffCountedHunks verifies that hunk bodies are consumed by the
// counts in the hunk header, so content lines that look like file boundaries
// do not split the file.
func TestParseDiffCountedHunks(t *testing.T) {
	diff := `diff --git a/README b/README
index 1111111..2222222 100644
--- a/README
+++ b/README
@@ -1,3 +1,3 @@
 intro
---- this line looks like a boundary
+++ but it is hunk content
 outro
`
	changes := ParseDiff(diff)
	require.Len(t, changes, 1)
	require.Len(t, changes[0].Hunks, 1)
	assert.Len(t, changes[0].Hunks[0].Lines, 4)
}

// TestParseDiffNoNewlineMarker verifies the trailing no-newline marker
// attaches to its hunk.
func TestParseDiffNoNewlineMarker(t *testing.T) {
	diff := `diff --git a/f b/f
index 1111111..2222222 100644
--- a/f
+++ b/f
@@ -1 +1 @@
-old
+new
\ No newline at end of file
`
	changes := ParseDiff(diff)
	require.Len(t, changes, 1)
	require.Len(t, changes[0].Hunks, 1)
	lines := changes[0].Hunks[0].Lines
	assert.Equal(t, "\\ No newline at end of file", lines[len(lines)-1])
}

// TestParseDiffBinary verifies a binary change parses with no hunks and
// keeps its marker line in the header.
func TestParseDiffBinary(t *testing.T) {
	diff := `diff --git a/logo.png b/logo.png
index 1111111..2222222 100644
Binary files a/logo.png and b/logo.png differ
`
	changes := ParseDiff(diff)
	require.Len(t, changes, 1)
	assert.Equal(t, "logo.png", changes[0].Path)
	assert.Empty(t, changes[0].Hunks)
	assert.Contains(t, changes[0].Header, "Binary files a/logo.png and b/logo.png differ")
}

// TestParseDiffEmpty verifies empty and boundary-free input yields no
// changes.
func TestParseDiffEmpty(t *testing.T) {
	assert.Empty(t, ParseDiff(""))
	assert.Empty(t, ParseDiff("just some text\nwith no diff in it\n"))
}
