package patch

import (
	"strings"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// QueuedMainline is the Patch-mainline value for a commit that is tracked
// in a subsystem maintainer repository but has not reached mainline yet.
const QueuedMainline = "Queued in subsystem maintainer repo"

// Prober answers the repository questions mainline resolution asks.
// It is implemented by gitrepo.Repo; tests substitute fakes.
type Prober interface {
	// IsReachable reports whether the commit is part of the repository's
	// tracked history.
	IsReachable(sha string) bool

	// TagFor returns the release tag containing the commit, or "" when the
	// commit is not contained in any release tag yet.
	TagFor(sha string) (string, error)

	// NextTag estimates the tag an untagged commit will land in, or ""
	// when the repository carries no version tags.
	NextTag() (string, error)
}

// Candidate is one repository the resolver consults, in configuration
// order.
type Candidate struct {
	// Path identifies the candidate for reporting.
	Path string

	// Mainline marks the candidate as a mainline tree (its origin URL is
	// on the configured mainline list). Non-mainline candidates produce
	// the queued marker instead of a version tag.
	Mainline bool

	// RemoteURL is the candidate's origin URL. A non-mainline candidate
	// only counts as a subsystem maintainer queue when this points at
	// kernel.org; any other tree is just someone's fork and proves
	// nothing about the commit's path to mainline.
	RemoteURL string

	// Prober performs the actual repository queries.
	Prober Prober
}

// ResolveMainlineTag scans the candidates in order and stops at the first
// repository whose tracked history contains the commit.
//
// A mainline candidate yields the containing version tag, or the estimated
// next release tag for a commit merged but not yet tagged. A non-mainline
// candidate with a kernel.org origin yields the queued marker. When no
// candidate claims the commit — including the zero-candidate case of a
// missing configuration — the result is the unresolved tag, which renders
// as an explicit "not yet in mainline" marker rather than omitting the
// header line.
func ResolveMainlineTag(sha string, candidates []Candidate) model.MainlineTag {
	for _, c := range candidates {
		if c.Prober == nil || !c.Prober.IsReachable(sha) {
			continue
		}

		if !c.Mainline {
			if isKernelOrgURL(c.RemoteURL) {
				return model.MainlineTag{Value: QueuedMainline, Resolved: true}
			}
			// Reachable only in a tree with no recognized upstream.
			// Keep scanning; a later candidate may still claim it.
			continue
		}

		if tag, err := c.Prober.TagFor(sha); err == nil && tag != "" {
			return model.MainlineTag{Value: tag, Resolved: true}
		}
		if next, err := c.Prober.NextTag(); err == nil && next != "" {
			return model.MainlineTag{Value: next, Resolved: true}
		}
		// Reachable in a mainline tree that carries no usable version
		// tags. Keep scanning; another candidate may still name it.
	}
	return model.MainlineTag{}
}

// isKernelOrgURL reports whether a remote URL points at a kernel.org
// hosted tree.
func isKernelOrgURL(url string) bool {
	return strings.Contains(url, "kernel.org")
}
