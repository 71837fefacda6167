package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// TestWriteStdout verifies the stream destination writes content verbatim
// and creates no file.
func TestWriteStdout(t *testing.T) {
	var buf strings.Builder
	w := New(&buf)

	outcome, err := w.Write("patch body\n", model.Stdout(), "")
	require.NoError(t, err)

	assert.True(t, outcome.Stream)
	assert.Empty(t, outcome.Path)
	assert.Equal(t, "patch body\n", buf.String())
}

// TestWriteDir verifies the directory destination creates the named file
// with the exact content.
func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	w := New(os.Stdout)

	outcome, err := w.Write("content\n", model.Dir(dir), "fix-it.patch")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "fix-it.patch"), outcome.Path)
	assert.False(t, outcome.Stream)

	data, err := os.ReadFile(outcome.Path)
	require.NoError(t, err)
	assert.Equal(t, "content\n", string(data))
}

// TestWriteDirRequiresFilename verifies a directory destination without a
// chosen filename is refused.
func TestWriteDirRequiresFilename(t *testing.T) {
	w := New(os.Stdout)
	_, err := w.Write("content\n", model.Dir(t.TempDir()), "")
	require.Error(t, err)
}

// TestWriteFile verifies the explicit-file destination, including overwrite
// of an existing file.
func TestWriteFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out.patch")
	w := New(os.Stdout)

	_, err := w.Write("first\n", model.File(target), "")
	require.NoError(t, err)

	outcome, err := w.Write("second\n", model.File(target), "")
	require.NoError(t, err)
	assert.Equal(t, target, outcome.Path)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}

// TestWriteMissingDir verifies a nonexistent destination directory maps to
// InvalidDestinationError, for both directory and file destinations.
func TestWriteMissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	w := New(os.Stdout)

	_, err := w.Write("x", model.Dir(missing), "f.patch")
	var invalid *model.InvalidDestinationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, missing, invalid.Path)

	_, err = w.Write("x", model.File(filepath.Join(missing, "f.patch")), "")
	require.ErrorAs(t, err, &invalid)
}

// TestWriteNotADir verifies a file in place of the destination directory is
// rejected.
func TestWriteNotADir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	w := New(os.Stdout)
	_, err := w.Write("x", model.Dir(file), "f.patch")

	var invalid *model.InvalidDestinationError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Reason, "not a directory")
}

// TestWritePermissionDenied verifies an unwritable directory maps to
// PermissionDeniedError.
func TestWritePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	w := New(os.Stdout)
	_, err := w.Write("x", model.Dir(dir), "f.patch")

	var denied *model.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
}

// TestWriteLeavesNoTempFiles verifies the atomic write cleans up after
// itself: the destination directory contains exactly the written patch.
func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(os.Stdout)

	_, err := w.Write("content\n", model.Dir(dir), "f.patch")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f.patch", entries[0].Name())
}

// TestWriteFileMode verifies written patches are world-readable regardless
// of the temp-file creation mode.
func TestWriteFileMode(t *testing.T) {
	dir := t.TempDir()
	w := New(os.Stdout)

	outcome, err := w.Write("content\n", model.Dir(dir), "f.patch")
	require.NoError(t, err)

	info, err := os.Stat(outcome.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
