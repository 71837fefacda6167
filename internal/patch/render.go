package patch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// gitDateFormat is the RFC 2822 date layout git uses in patch emails.
const gitDateFormat = "Mon, 2 Jan 2006 15:04:05 -0700"

// Identity is a name/email pair used for sign-off trailers.
type Identity struct {
	Name  string
	Email string
}

// String renders the identity in trailer form.
func (id Identity) String() string {
	return fmt.Sprintf("%s <%s>", id.Name, id.Email)
}

// RenderInput carries everything Render needs. All fields are plain values;
// rendering never consults the environment, so identical inputs always
// produce byte-identical output.
type RenderInput struct {
	// Author identity and date, rendered as the From/Date headers.
	Author      string
	AuthorEmail string
	Date        time.Time

	// Subject is the patch subject line (the commit message's first line).
	Subject string

	// SHA is the full commit hash for the Git-commit header. Empty for
	// patches whose origin is unknown.
	SHA string

	// Partial annotates the Git-commit header when filtering dropped part
	// of the commit.
	Partial bool

	// Mainline is the provenance tag. The Patch-mainline line is always
	// emitted; the unresolved tag renders as an explicit marker.
	Mainline model.MainlineTag

	// References are issue/bug reference tags, deduplicated and sorted
	// at render time.
	References []string

	// Filtered lists the applied filter selectors for the Patch-filtered
	// header. Empty when the patch was not filtered.
	Filtered []string

	// SignOff, when non-nil, adds an Acked-by trailer — or Signed-off-by
	// when SignedOffBy is set.
	SignOff     *Identity
	SignedOffBy bool

	// Body is the commit message after the subject line.
	Body string

	// Changes is the filtered, ordered per-file diff.
	Changes []model.FileChange
}

// Render produces the complete patch text.
//
// Header lines appear in fixed order: From, Date, Subject, Git-commit,
// Patch-mainline, References, Patch-filtered, then the sign-off trailer,
// followed by a blank separator, the message body, the "---" separator
// with a computed diffstat, and the per-file hunks in filtered order.
// An empty change sequence still yields a well-formed header with an empty
// body; Render never fails.
func Render(in RenderInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s <%s>\n", in.Author, in.AuthorEmail)
	fmt.Fprintf(&b, "Date: %s\n", in.Date.Format(gitDateFormat))
	fmt.Fprintf(&b, "Subject: %s\n", in.Subject)

	if in.SHA != "" {
		commit := in.SHA
		if in.Partial {
			commit += " (partial)"
		}
		fmt.Fprintf(&b, "Git-commit: %s\n", commit)
	}

	fmt.Fprintf(&b, "Patch-mainline: %s\n", in.Mainline)

	if refs := normalizeReferences(in.References); len(refs) > 0 {
		fmt.Fprintf(&b, "References: %s\n", strings.Join(refs, " "))
	}
	if len(in.Filtered) > 0 {
		fmt.Fprintf(&b, "Patch-filtered: %s\n", strings.Join(in.Filtered, " "))
	}
	if in.SignOff != nil && in.SignOff.Email != "" {
		tag := "Acked-by"
		if in.SignedOffBy {
			tag = "Signed-off-by"
		}
		fmt.Fprintf(&b, "%s: %s\n", tag, in.SignOff)
	}

	b.WriteString("\n")

	if body := strings.TrimRight(in.Body, "\n"); body != "" {
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	b.WriteString("---\n")
	if len(in.Changes) > 0 {
		b.WriteString(Diffstat(in.Changes))
		b.WriteString("\n")
		for _, c := range in.Changes {
			b.WriteString(c.Text())
		}
	}

	return b.String()
}

// normalizeReferences deduplicates and sorts reference tags so that the
// References header is stable regardless of flag order.
func normalizeReferences(refs []string) []string {
	seen := make(map[string]bool, len(refs))
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
