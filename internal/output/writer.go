// Package output performs the one side effect of an export: writing the
// rendered patch to stdout, into a directory, or to an explicit file.
//
// File writes are atomic — the content goes to a temporary file in the
// destination directory which is then renamed into place — so a failed or
// interrupted export never leaves a truncated patch on disk.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// Writer persists rendered patches. The stream target is injected so tests
// can capture stdout output.
type Writer struct {
	stream io.Writer
}

// New creates a Writer whose stream destination writes to w.
func New(w io.Writer) *Writer {
	return &Writer{stream: w}
}

// Write sends content to the destination.
//
// For the stdout destination the content is streamed as-is; no file is
// created and no naming or conflict logic applies. For directory
// destinations, filename names the file inside the directory (as chosen by
// the naming engine); for explicit-file destinations filename is ignored.
//
// Failure modes: InvalidDestinationError when a directory destination does
// not exist or is not a directory, PermissionDeniedError when the
// destination refuses the write.
func (w *Writer) Write(content string, dest model.Destination, filename string) (model.WriteOutcome, error) {
	switch dest.Kind {
	case model.DestStdout:
		if _, err := io.WriteString(w.stream, content); err != nil {
			return model.WriteOutcome{}, model.WrapCLIError(model.ExitGeneralError, "failed to write patch to stream", err)
		}
		return model.WriteOutcome{Stream: true}, nil

	case model.DestDir:
		if err := checkDir(dest.Path); err != nil {
			return model.WriteOutcome{}, err
		}
		if filename == "" {
			return model.WriteOutcome{}, model.NewCLIError(model.ExitGeneralError, "no filename chosen for directory destination")
		}
		target := filepath.Join(dest.Path, filename)
		if err := atomicWrite(dest.Path, target, content); err != nil {
			return model.WriteOutcome{}, err
		}
		return model.WriteOutcome{Path: target}, nil

	case model.DestFile:
		dir := filepath.Dir(dest.Path)
		if err := checkDir(dir); err != nil {
			return model.WriteOutcome{}, err
		}
		if err := atomicWrite(dir, dest.Path, content); err != nil {
			return model.WriteOutcome{}, err
		}
		return model.WriteOutcome{Path: dest.Path}, nil

	default:
		return model.WriteOutcome{}, model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("unknown destination kind %q", dest.Kind))
	}
}

// checkDir validates a destination directory: it must exist and be a
// directory.
func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.InvalidDestinationError{Path: dir, Reason: "directory does not exist"}
		}
		if os.IsPermission(err) {
			return &model.PermissionDeniedError{Path: dir, Err: err}
		}
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("cannot stat destination %s", dir), err)
	}
	if !info.IsDir() {
		return &model.InvalidDestinationError{Path: dir, Reason: "not a directory"}
	}
	return nil
}

// atomicWrite writes content to a temporary file in dir and renames it to
// target. The temporary file lives in the destination directory so the
// rename never crosses filesystems.
func atomicWrite(dir, target, content string) error {
	tmp, err := os.CreateTemp(dir, ".exportpatch-*")
	if err != nil {
		if os.IsPermission(err) {
			return &model.PermissionDeniedError{Path: dir, Err: err}
		}
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("cannot create file in %s", dir), err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.WriteString(content); err != nil {
		cleanup()
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to write %s", target), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to set permissions on %s", target), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to write %s", target), err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		if os.IsPermission(err) {
			return &model.PermissionDeniedError{Path: target, Err: err}
		}
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to write %s", target), err)
	}
	return nil
}
