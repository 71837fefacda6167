package gitrepo

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mmr-tortoise/exportpatch/internal/model"
	"github.com/mmr-tortoise/exportpatch/internal/patch"
)

// Repo is a handle to one local Git repository, addressed by its working
// directory (or bare repository) path. The handle is stateless; every
// operation shells out to git with -C.
type Repo struct {
	// Path is the repository directory passed to git -C.
	Path string
}

// Open returns a handle to the repository at path after verifying that git
// recognizes it as one. Candidate repositories from the configuration are
// opened with Open so that a stale search path degrades to a skipped
// candidate instead of failing mid-probe.
func Open(path string) (*Repo, error) {
	r := &Repo{Path: path}
	if _, err := runGit(path, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%s is not a git repository: %w", path, err)
	}
	return r, nil
}

// ValidateReference applies the reference rules that hold before any git
// lookup: exported patches must be anchored to a stable, explicit commit
// identity, so the symbolic HEAD alias and relative/ancestor selectors are
// rejected even when git could resolve them.
func ValidateReference(ref string) error {
	switch {
	case strings.TrimSpace(ref) == "":
		return &model.InvalidReferenceError{Reference: ref, Reason: "reference must not be empty"}
	case strings.Contains(ref, "HEAD"):
		return &model.InvalidReferenceError{Reference: ref, Reason: "the symbolic HEAD alias is not allowed"}
	case strings.ContainsAny(ref, "^~") || strings.Contains(ref, "@{"):
		return &model.InvalidReferenceError{Reference: ref, Reason: "relative and ancestor references are not allowed"}
	default:
		return nil
	}
}

// Resolve turns a validated reference into an immutable ResolvedCommit:
// canonical SHA, author/committer identity, message, and the ordered
// per-file diff.
//
// Unless force is true, a commit that exists only locally (not reachable
// from the branch's remote) is refused with LocalOnlyCommitError, because
// the exported patch would reference a commit nobody upstream can find.
// Repositories with no remotes at all skip that guard.
//
// Merge commits are refused: diff-tree prints nothing for them, so the
// export would silently produce an empty patch. The caller is told to
// export the merged commits individually instead.
func (r *Repo) Resolve(ref string, force bool) (*model.ResolvedCommit, error) {
	if err := ValidateReference(ref); err != nil {
		return nil, err
	}

	sha, err := runGit(r.Path, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return nil, &model.UnknownCommitError{Reference: ref, Repo: r.Path}
	}
	sha = strings.TrimSpace(sha)

	if !force {
		confirmed, err := r.confirmRemote(sha)
		if err == nil && !confirmed {
			return nil, &model.LocalOnlyCommitError{Reference: ref}
		}
	}

	commit, parents, err := r.commitMeta(sha)
	if err != nil {
		return nil, err
	}
	if parents > 1 {
		return nil, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%s is a merge commit and cannot be exported as a patch; export the merged commits individually", sha))
	}

	diff, err := runGit(r.Path, "diff-tree", "--no-renames", "-r", "-p", sha)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGitError, fmt.Sprintf("failed to read diff for %s", sha), err)
	}
	commit.Changes = patch.ParseDiff(diff)

	return commit, nil
}

// Contains reports whether the commit object exists in this repository.
func (r *Repo) Contains(sha string) bool {
	_, err := runGit(r.Path, "cat-file", "-e", sha+"^{commit}")
	return err == nil
}

// IsReachable reports whether the commit is part of this repository's
// tracked history, i.e. an ancestor of HEAD.
func (r *Repo) IsReachable(sha string) bool {
	if !r.Contains(sha) {
		return false
	}
	_, err := runGit(r.Path, "merge-base", "--is-ancestor", sha, "HEAD")
	return err == nil
}

// TagFor returns the release tag containing the commit, determined via
// git name-rev against v* tags. Returns "" when the commit is not yet
// contained in any release tag.
func (r *Repo) TagFor(sha string) (string, error) {
	out, err := runGit(r.Path, "name-rev", "--refs=refs/tags/v*", "--name-only", sha)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(out)
	if name == "" || name == "undefined" {
		return "", nil
	}
	// name-rev output looks like "v6.5~14" or "v6.5^2~3"; the tag is the
	// part before the first traversal operator.
	if i := strings.IndexAny(name, "~^"); i >= 0 {
		name = name[:i]
	}
	return name, nil
}

// NextTag estimates the next release tag from the newest v* tag in the
// repository. A post-release commit (newest tag has no -rc) lands in the
// next cycle's rc1; a commit during an rc cycle lands either in the final
// release or the next rc.
func (r *Repo) NextTag() (string, error) {
	out, err := runGit(r.Path, "tag", "-l", "v[0-9]*")
	if err != nil {
		return "", err
	}
	tags := strings.Fields(out)
	if len(tags) == 0 {
		return "", nil
	}
	latest := latestVersionTag(tags)
	if latest == "" {
		return "", nil
	}
	return nextVersionTag(latest), nil
}

// RemoteURL returns the origin remote URL, or "" when the repository has
// no origin configured. Used to classify candidate repositories against
// the configured mainline URL list.
func (r *Repo) RemoteURL() string {
	out, err := runGit(r.Path, "config", "--get", "remote.origin.url")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// ConfigValue returns a git configuration value (e.g. user.name) from this
// repository's effective configuration, or "" when unset.
func (r *Repo) ConfigValue(key string) string {
	out, err := runGit(r.Path, "config", "--get", key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// commitMeta reads the commit identity, message, and parent count. Fields
// are separated with NUL so multi-line bodies survive intact.
func (r *Repo) commitMeta(sha string) (*model.ResolvedCommit, int, error) {
	out, err := runGit(r.Path, "show", "-s", "--format=%H%x00%an%x00%ae%x00%aI%x00%cn%x00%ce%x00%s%x00%P%x00%b", sha)
	if err != nil {
		return nil, 0, model.WrapCLIError(model.ExitGitError, fmt.Sprintf("failed to read commit %s", sha), err)
	}

	fields := strings.Split(out, "\x00")
	if len(fields) < 9 {
		return nil, 0, model.NewCLIError(model.ExitGitError, fmt.Sprintf("unexpected git show output for %s", sha))
	}

	date, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[3]))
	if err != nil {
		return nil, 0, model.WrapCLIError(model.ExitGitError, fmt.Sprintf("unparseable author date for %s", sha), err)
	}

	return &model.ResolvedCommit{
		SHA:            strings.TrimSpace(fields[0]),
		Author:         fields[1],
		AuthorEmail:    fields[2],
		AuthorDate:     date,
		Committer:      fields[4],
		CommitterEmail: fields[5],
		Subject:        fields[6],
		Body:           strings.TrimRight(fields[8], "\n"),
	}, len(strings.Fields(fields[7])), nil
}

// confirmRemote reports whether the commit has been pushed to the current
// branch's remote. Commits listed by `rev-list HEAD --not --remotes` exist
// only locally. Repositories without any remote return true: there is no
// upstream to compare against.
func (r *Repo) confirmRemote(sha string) (bool, error) {
	remotes, err := runGit(r.Path, "remote")
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(remotes) == "" {
		return true, nil
	}

	out, err := runGit(r.Path, "rev-list", "HEAD", "--not", "--remotes")
	if err != nil {
		return false, err
	}
	for _, local := range strings.Fields(out) {
		if local == sha {
			return false, nil
		}
	}
	return true, nil
}

// runGit executes a git command with the given arguments against the
// specified repository directory.
//
// It captures stdout and stderr separately. On success it returns stdout;
// on failure it returns a model.CLIError with ExitGitError, including the
// stderr output in the error message for diagnostics.
//
// The repoPath parameter is passed to git via the -C flag, which causes git
// to change to that directory before doing anything else, so the process
// working directory never has to change.
func runGit(repoPath string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoPath}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	return stdout.String(), nil
}
