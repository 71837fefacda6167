// Package cli — fix.go implements the "exportpatch fix" command.
//
// Fix re-annotates existing patch files: it parses the header block, body
// and diff back out of the file, refreshes provenance headers (mainline
// tag, references, sign-off), optionally re-filters the diff, recomputes
// the diffstat, and writes the result back — renaming the file to the
// canonical subject-derived name unless told otherwise.
package cli

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/exportpatch/internal/config"
	"github.com/mmr-tortoise/exportpatch/internal/gitrepo"
	"github.com/mmr-tortoise/exportpatch/internal/model"
	"github.com/mmr-tortoise/exportpatch/internal/naming"
	"github.com/mmr-tortoise/exportpatch/internal/output"
	"github.com/mmr-tortoise/exportpatch/internal/patch"
)

// fixFlags holds the flag values for the fix command.
type fixFlags struct {
	dryRun      bool     // --dry-run: print the fixed patch, touch nothing
	nameOnly    bool     // --name-only: print the computed filename only
	noRename    bool     // --no-rename: keep the original filename
	headerOnly  bool     // --header-only: refresh headers, leave diff alone
	force       bool     // -f: overwrite conflicting filenames
	suffix      bool     // -s: append .patch to renamed files
	signedOffBy bool     // -S: Signed-off-by instead of Acked-by
	noAck       bool     // --no-ack: add no trailer at all
	references  []string // -F: References tags to add
	mainline    string   // -M: explicit Patch-mainline value
	extract     []string // -x: keep only these paths
	exclude     []string // -X: drop paths matching these patterns
}

// NewFixCommand creates the "fix" cobra command.
func NewFixCommand() *cobra.Command {
	flags := &fixFlags{}

	cmd := &cobra.Command{
		Use:   "fix <patchfile>...",
		Short: "Re-annotate and normalize existing patch files",
		Long: `Fix normalizes existing patch files in place.

Headers are rewritten in canonical order, the mainline tag is resolved
against the configured repositories when the patch carries a Git-commit
header, references are merged, the diffstat is recomputed, and the file
is renamed to the subject-derived name unless --no-rename is given.

Examples:
  exportpatch fix 0001-scsi-fix-use-after-free.patch
  exportpatch fix --dry-run -F bsc#12345 *.patch
  exportpatch fix --no-rename -x drivers/scsi/ old.patch`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the fixed patch to stdout without writing")
	cmd.Flags().BoolVar(&flags.nameOnly, "name-only", false, "Print the computed filename without writing")
	cmd.Flags().BoolVar(&flags.noRename, "no-rename", false, "Keep the original filename")
	cmd.Flags().BoolVar(&flags.headerOnly, "header-only", false, "Refresh headers only, leave the diff untouched")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite an existing file when renaming")
	cmd.Flags().BoolVarP(&flags.suffix, "suffix", "s", false, "Append .patch suffix when renaming")
	cmd.Flags().BoolVarP(&flags.signedOffBy, "signed-off-by", "S", false, "Use Signed-off-by instead of Acked-by")
	cmd.Flags().BoolVar(&flags.noAck, "no-ack", false, "Do not add a sign-off trailer")
	cmd.Flags().StringArrayVarP(&flags.references, "reference", "F", nil, "Add a References tag (repeatable)")
	cmd.Flags().StringVarP(&flags.mainline, "mainline", "M", "", "Set the Patch-mainline value explicitly")
	cmd.Flags().StringArrayVarP(&flags.extract, "extract", "x", nil, "Extract only these paths; a trailing / selects a hierarchy (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.exclude, "exclude", "X", nil, "Exclude paths matching this pattern (repeatable)")

	return cmd
}

// fixResult is the per-file outcome reported in JSON mode.
type fixResult struct {
	Input    string `json:"input"`
	Path     string `json:"path,omitempty"`
	Renamed  bool   `json:"renamed,omitempty"`
	Mainline string `json:"mainline"`
}

func runFix(cmd *cobra.Command, files []string, flags *fixFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}
	cfg := config.Load(cwd)
	fillIdentityFromRepos(cfg)

	if flags.headerOnly && (len(flags.extract) > 0 || len(flags.exclude) > 0) {
		Warnf("--header-only ignores --extract and --exclude")
		flags.extract, flags.exclude = nil, nil
	}

	candidates := buildCandidates(cfg)

	var results []fixResult
	for _, path := range files {
		res, err := fixOne(cmd, path, cfg, candidates, flags)
		if err != nil {
			return err
		}
		results = append(results, *res)
	}

	if IsJSONOutput() && !flags.dryRun {
		return printJSON(cmd, map[string]interface{}{"patches": results})
	}
	return nil
}

// fixOne processes a single patch file through the fix pipeline.
func fixOne(cmd *cobra.Command, path string, cfg *config.PatchConfig,
	candidates []patch.Candidate, flags *fixFlags) (*fixResult, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &model.PermissionDeniedError{Path: path, Err: err}
		}
		return nil, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("cannot read %s", path), err)
	}
	pf := patch.ParseFile(string(data))

	subject := pf.Get("Subject")
	if subject == "" {
		return nil, model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("%s has no Subject header", path))
	}

	author, authorEmail, err := parseFromHeader(pf.Get("From"))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("%s has a malformed From header", path), err)
	}
	date, err := parseDateHeader(pf.Get("Date"))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("%s has a malformed Date header", path), err)
	}

	sha, partial := parseGitCommitHeader(pf.Get("Git-commit"))

	// Filter the existing diff; selectors accumulate with whatever the
	// patch already recorded so repeated fixes stay truthful.
	changes := pf.Changes
	var selectors []string
	if prior := pf.Get("Patch-filtered"); prior != "" {
		selectors = strings.Fields(prior)
		partial = partial || len(selectors) > 0
	}
	if len(flags.extract) > 0 || len(flags.exclude) > 0 {
		filtered, err := patch.Filter(changes, flags.extract, flags.exclude)
		if err != nil {
			return nil, err
		}
		for _, sel := range filtered.Unmatched {
			Warnf("%s does not match any change in %s", sel, path)
		}
		changes = filtered.Kept
		if filtered.Partial {
			partial = true
			selectors = mergeSelectors(selectors, filtered.Selectors)
		}
	}

	tag := fixedMainline(pf, sha, candidates, flags.mainline)

	refs := strings.Fields(pf.Get("References"))
	refs = append(refs, flags.references...)

	in := patch.RenderInput{
		Author:      author,
		AuthorEmail: authorEmail,
		Date:        date,
		Subject:     subject,
		SHA:         sha,
		Partial:     partial,
		Mainline:    tag,
		References:  refs,
		Filtered:    selectors,
		SignedOffBy: flags.signedOffBy,
		Body:        pf.Body,
		Changes:     changes,
	}
	// An existing trailer is carried through verbatim; one is only added
	// when the patch has none anywhere and adding is allowed.
	if trailer, signed, ok := existingSignOff(pf); ok {
		in.SignOff = trailer
		in.SignedOffBy = signed
	} else if !flags.noAck && !flags.headerOnly && !hasBodySignOff(pf, cfg) &&
		cfg.Name != "" && cfg.Email() != "" {
		in.SignOff = &patch.Identity{Name: cfg.Name, Email: cfg.Email()}
	}
	text := patch.Render(in)

	result := &fixResult{Input: path, Mainline: tag.String()}

	target, renamed, err := fixTarget(path, subject, sha, flags)
	if err != nil {
		return nil, err
	}
	result.Renamed = renamed

	switch {
	case flags.nameOnly:
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Base(target))
		result.Path = target

	case flags.dryRun:
		fmt.Fprint(cmd.OutOrStdout(), text)

	default:
		writer := output.New(cmd.OutOrStdout())
		if _, err := writer.Write(text, model.File(target), ""); err != nil {
			return nil, err
		}
		if renamed {
			if err := os.Remove(path); err != nil {
				Warnf("could not remove %s: %v", path, err)
			}
		}
		result.Path = target
		reportWritten(cmd, filepath.Base(target))
	}

	return result, nil
}

// fixTarget decides where the fixed patch lands: the original path with
// --no-rename, otherwise the canonical subject-derived name in the same
// directory. Renaming onto an unrelated existing file requires --force.
func fixTarget(path, subject, sha string, flags *fixFlags) (string, bool, error) {
	if flags.noRename || flags.dryRun {
		return path, false, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	short := sha
	if len(short) > 8 {
		short = short[:8]
	}

	spec := model.NumberingSpec{Width: config.DefaultNumWidth, Force: flags.force}
	if flags.suffix {
		spec.Suffix = ".patch"
	}
	choice, err := naming.ChooseName(subject, short, 0, spec, func(name string) bool {
		if name == base {
			// Writing back over the input is a refresh, not a conflict.
			return false
		}
		_, statErr := os.Stat(filepath.Join(dir, name))
		return statErr == nil
	})
	if err != nil {
		return "", false, err
	}
	return filepath.Join(dir, choice.Name), choice.Name != base, nil
}

// fixedMainline picks the Patch-mainline value: an explicit flag wins, then
// resolution against the candidate repositories when the commit is known,
// then whatever the patch already said.
func fixedMainline(pf *patch.File, sha string, candidates []patch.Candidate, override string) model.MainlineTag {
	if override != "" {
		return model.MainlineTag{Value: override, Resolved: true}
	}
	if sha != "" {
		if tag := patch.ResolveMainlineTag(sha, candidates); tag.Resolved {
			return tag
		}
	}
	if existing := pf.Get("Patch-mainline"); existing != "" && existing != model.UnresolvedMainline {
		return model.MainlineTag{Value: existing, Resolved: true}
	}
	return model.MainlineTag{}
}

// parseFromHeader splits "Name <email>" into its parts. A value that the
// mail parser rejects is kept verbatim as the name so odd-but-working
// patches survive a fix round-trip.
func parseFromHeader(from string) (string, string, error) {
	if from == "" {
		return "", "", fmt.Errorf("missing From header")
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return from, "", nil
	}
	return addr.Name, addr.Address, nil
}

// parseDateHeader parses the RFC 2822 Date header.
func parseDateHeader(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("missing Date header")
	}
	return mail.ParseDate(value)
}

// parseGitCommitHeader extracts the hash and partial marker from a
// Git-commit header value.
func parseGitCommitHeader(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	if rest, ok := strings.CutSuffix(value, " (partial)"); ok {
		return rest, true
	}
	return value, false
}

// existingSignOff returns the patch's header-block trailer, if any, so a
// fix round-trip never drops or duplicates it. The second result reports a
// Signed-off-by trailer (as opposed to Acked-by).
func existingSignOff(pf *patch.File) (*patch.Identity, bool, bool) {
	for _, h := range pf.Headers {
		acked := strings.EqualFold(h.Key, "Acked-by")
		signed := strings.EqualFold(h.Key, "Signed-off-by")
		if !acked && !signed {
			continue
		}
		if addr, err := mail.ParseAddress(h.Value); err == nil {
			return &patch.Identity{Name: addr.Name, Email: addr.Address}, signed, true
		}
		// Unparseable trailer, e.g. a bare address. Split on the last
		// angle bracket so the value survives the round-trip.
		if i := strings.LastIndexByte(h.Value, '<'); i >= 0 {
			return &patch.Identity{
				Name:  strings.TrimSpace(h.Value[:i]),
				Email: strings.Trim(h.Value[i:], "<> "),
			}, signed, true
		}
		return &patch.Identity{Email: h.Value}, signed, true
	}
	return nil, false, false
}

// hasBodySignOff reports whether the message body already carries a trailer
// for one of the configured addresses, in which case fix must not add a
// second one to the header block.
func hasBodySignOff(pf *patch.File, cfg *config.PatchConfig) bool {
	for _, line := range strings.Split(pf.Body, "\n") {
		l := strings.TrimSpace(line)
		if !strings.HasPrefix(l, "Acked-by:") && !strings.HasPrefix(l, "Signed-off-by:") {
			continue
		}
		for _, email := range cfg.Emails {
			if email != "" && strings.Contains(l, email) {
				return true
			}
		}
	}
	return false
}

// mergeSelectors appends new filter selectors, skipping duplicates.
func mergeSelectors(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range added {
		if !seen[s] {
			seen[s] = true
			existing = append(existing, s)
		}
	}
	return existing
}

// fillIdentityFromRepos backfills the sign-off identity from git config in
// the first openable configured repository.
func fillIdentityFromRepos(cfg *config.PatchConfig) {
	if cfg.Name != "" && cfg.Email() != "" {
		return
	}
	for _, p := range cfg.Repos {
		r, err := gitrepo.Open(p)
		if err != nil {
			continue
		}
		cfg.FillIdentity(r.ConfigValue("user.name"), r.ConfigValue("user.email"))
		return
	}
}
