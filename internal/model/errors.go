package model

import (
	"errors"
	"fmt"
	"strings"
)

// ExitCode defines the CLI exit codes. Each terminal error kind maps to its
// own code so scripts and CI systems can tell failure modes apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidReference indicates the commit reference was empty,
	// symbolic (HEAD) or relative, and was rejected before resolution.
	ExitInvalidReference ExitCode = 2

	// ExitUnknownCommit indicates the reference did not match any object
	// in the repository.
	ExitUnknownCommit ExitCode = 3

	// ExitConflictingFilter indicates extract and exclude filters were
	// supplied together.
	ExitConflictingFilter ExitCode = 4

	// ExitNumberOutOfRange indicates a patch number did not fit the
	// configured fixed width.
	ExitNumberOutOfRange ExitCode = 5

	// ExitPermissionDenied indicates the destination was not writable.
	ExitPermissionDenied ExitCode = 6

	// ExitInvalidDestination indicates an explicit destination directory
	// does not exist or is not a directory.
	ExitInvalidDestination ExitCode = 7

	// ExitGitError indicates a git invocation failed.
	ExitGitError ExitCode = 8
)

// CLIError is a carrier error that pairs a message with an exit code.
// The CLI layer translates it into the process exit status.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// InvalidReferenceError reports a commit reference that is rejected before
// resolution is even attempted: empty, the symbolic HEAD alias, or a
// relative/ancestor selector. Exported patches must be anchored to a stable,
// explicit commit identity, so these are refused even when git could
// resolve them.
type InvalidReferenceError struct {
	// Reference is the literal reference string supplied by the caller.
	Reference string

	// Reason says which rule the reference broke.
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid commit reference %q: %s", e.Reference, e.Reason)
}

// UnknownCommitError reports a reference that does not match any object in
// the repository it was resolved against.
type UnknownCommitError struct {
	// Reference is the literal reference string supplied by the caller.
	Reference string

	// Repo is the repository path the lookup ran against.
	Repo string
}

func (e *UnknownCommitError) Error() string {
	return fmt.Sprintf("unknown commit %q in repository %s", e.Reference, e.Repo)
}

// LocalOnlyCommitError reports a commit that resolves but exists only in the
// local repository, not on the tracked remote. Exporting it would produce a
// patch nobody else can trace; force overrides the guard.
type LocalOnlyCommitError struct {
	// Reference is the literal reference string supplied by the caller.
	Reference string
}

func (e *LocalOnlyCommitError) Error() string {
	return fmt.Sprintf("commit %q is not in the remote repository, use --force to export it anyway", e.Reference)
}

// ConflictingFilterError reports that extract and exclude selectors were
// supplied in the same invocation. The two are mutually exclusive selection
// modes.
type ConflictingFilterError struct {
	Extract []string
	Exclude []string
}

func (e *ConflictingFilterError) Error() string {
	return fmt.Sprintf("extract and exclude filters are mutually exclusive (extract: %s; exclude: %s)",
		strings.Join(e.Extract, ", "), strings.Join(e.Exclude, ", "))
}

// NumberOutOfRangeError reports a patch number that needs more digits than
// the fixed numbering width allows. The number is never silently widened or
// truncated.
type NumberOutOfRangeError struct {
	Number int
	Width  int
}

func (e *NumberOutOfRangeError) Error() string {
	return fmt.Sprintf("patch number %d does not fit numbering width %d", e.Number, e.Width)
}

// PermissionDeniedError reports an unwritable destination.
type PermissionDeniedError struct {
	// Path is the destination directory or file that refused the write.
	Path string

	Err error
}

func (e *PermissionDeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("destination %s is not writable: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("destination %s is not writable", e.Path)
}

// Unwrap returns the underlying filesystem error.
func (e *PermissionDeniedError) Unwrap() error {
	return e.Err
}

// InvalidDestinationError reports an explicit destination directory that
// does not exist or is not a directory.
type InvalidDestinationError struct {
	Path   string
	Reason string
}

func (e *InvalidDestinationError) Error() string {
	return fmt.Sprintf("invalid destination %s: %s", e.Path, e.Reason)
}

// ExitCodeFor maps an error to the exit code the process should return.
// CLIError instances carry their own code; typed error kinds map to their
// dedicated codes; anything else is a general error.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}

	var (
		invalidRef  *InvalidReferenceError
		unknown     *UnknownCommitError
		localOnly   *LocalOnlyCommitError
		conflicting *ConflictingFilterError
		outOfRange  *NumberOutOfRangeError
		permission  *PermissionDeniedError
		destination *InvalidDestinationError
	)
	switch {
	case errors.As(err, &invalidRef):
		return ExitInvalidReference
	case errors.As(err, &unknown):
		return ExitUnknownCommit
	case errors.As(err, &localOnly):
		return ExitUnknownCommit
	case errors.As(err, &conflicting):
		return ExitConflictingFilter
	case errors.As(err, &outOfRange):
		return ExitNumberOutOfRange
	case errors.As(err, &permission):
		return ExitPermissionDenied
	case errors.As(err, &destination):
		return ExitInvalidDestination
	default:
		return ExitGeneralError
	}
}
