// Package cli — export.go implements the "exportpatch export" command.
//
// Export is the primary operation. For each commit reference it resolves
// the commit against the configured repository search list, resolves the
// mainline provenance tag, applies file filters, renders the patch text,
// chooses a filename, and writes the result.
//
// Orchestration steps:
//  1. Load configuration and open the repository search list
//  2. Validate numbering options against the whole batch
//  3. Per commit: resolve reference, filter changes, resolve mainline tag
//  4. Render the patch text
//  5. Choose the filename (numbering, conflict policy) against the live
//     destination namespace
//  6. Write (stdout, directory, or explicit file) and report the outcome
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/exportpatch/internal/config"
	"github.com/mmr-tortoise/exportpatch/internal/gitrepo"
	"github.com/mmr-tortoise/exportpatch/internal/model"
	"github.com/mmr-tortoise/exportpatch/internal/naming"
	"github.com/mmr-tortoise/exportpatch/internal/output"
	"github.com/mmr-tortoise/exportpatch/internal/patch"
)

// exportFlags holds the flag values for the export command.
// These are bound to cobra flags in NewExportCommand.
type exportFlags struct {
	write       bool     // -w: write files instead of stdout
	dir         string   // -d: destination directory for -w
	outputFile  string   // -o: explicit output file (single commit)
	suffix      bool     // -s: append .patch to filenames
	numeric     bool     // -n: prepend order numbers to filenames
	numWidth    int      // --num-width: zero-padding width (0 = config default)
	firstNumber int      // -N: first order number
	force       bool     // -f: overwrite existing files, allow local-only commits
	references  []string // -F: References tags
	extract     []string // -x: keep only these paths
	exclude     []string // -X: drop paths matching these patterns
	signedOffBy bool     // -S: Signed-off-by instead of Acked-by
	repo        string   // --repo: resolve against this repository only
}

// NewExportCommand creates the "export" cobra command.
func NewExportCommand() *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export <commit>...",
		Short: "Export commits as annotated patch files",
		Long: `Export one or more commits as patch files with provenance headers.

Each commit reference must name a single concrete commit — the HEAD alias
and relative references (^, ~, @{...}) are rejected so exported patches
stay anchored to stable commit identities.

Examples:
  exportpatch export 3b1f2c9d
  exportpatch export -w -d patches/ -n -N 10 3b1f2c9d 77aa0e12
  exportpatch export -x drivers/scsi/ -F bsc#12345 3b1f2c9d
  exportpatch export -X Documentation/ 3b1f2c9d`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.write, "write", "w", false, "Write patch file(s) instead of stdout")
	cmd.Flags().StringVarP(&flags.dir, "dir", "d", ".", "Write patches to this directory (with -w)")
	cmd.Flags().StringVarP(&flags.outputFile, "output", "o", "", "Write to this exact file (single commit only)")
	cmd.Flags().BoolVarP(&flags.suffix, "suffix", "s", false, "Append .patch suffix to filenames")
	cmd.Flags().BoolVarP(&flags.numeric, "numeric", "n", false, "Prepend order numbers to filenames")
	cmd.Flags().IntVar(&flags.numWidth, "num-width", 0, "Width of the order numbers, 1-4 (default from config)")
	cmd.Flags().IntVarP(&flags.firstNumber, "first-number", "N", 1, "Start numbering patches at this number")
	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite existing patches and export local-only commits")
	cmd.Flags().StringArrayVarP(&flags.references, "reference", "F", nil, "Add a References tag (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.extract, "extract", "x", nil, "Extract only these paths; a trailing / selects a hierarchy (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.exclude, "exclude", "X", nil, "Exclude paths matching this pattern (repeatable)")
	cmd.Flags().BoolVarP(&flags.signedOffBy, "signed-off-by", "S", false, "Use Signed-off-by instead of Acked-by")
	cmd.Flags().StringVar(&flags.repo, "repo", "", "Resolve commits against this repository instead of the configured search list")

	return cmd
}

// exportResult is the per-commit outcome reported in JSON mode.
type exportResult struct {
	Commit    string   `json:"commit"`
	Subject   string   `json:"subject"`
	Mainline  string   `json:"mainline"`
	Path      string   `json:"path,omitempty"`
	Renamed   bool     `json:"renamed,omitempty"`
	Empty     bool     `json:"empty,omitempty"`
	Unmatched []string `json:"unmatched,omitempty"`
}

// runExport is the main orchestration function for the export command.
func runExport(cmd *cobra.Command, commits []string, flags *exportFlags) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	// Step 1: Configuration and repository handles.
	cfg := config.Load(cwd)
	VerboseLog("Repository search list: %v", cfg.Repos)

	searchRepos, err := openSearchRepos(cfg, flags.repo)
	if err != nil {
		return err
	}
	cfg.FillIdentity(searchRepos[0].ConfigValue("user.name"), searchRepos[0].ConfigValue("user.email"))

	// Step 2: Numbering options, validated against the whole batch before
	// any file is written so a doomed series fails up front.
	spec, err := buildNumberingSpec(flags, cfg, len(commits))
	if err != nil {
		return err
	}

	dest, err := chooseDestination(flags, len(commits))
	if err != nil {
		return err
	}

	candidates := buildCandidates(cfg)
	writer := output.New(cmd.OutOrStdout())

	var results []exportResult
	for i, ref := range commits {
		res, err := exportOne(cmd, ref, i, searchRepos, candidates, cfg, flags, spec, dest, writer)
		if err != nil {
			return err
		}
		results = append(results, *res)
	}

	if IsJSONOutput() && dest.Kind != model.DestStdout {
		return printJSON(cmd, map[string]interface{}{"patches": results})
	}
	return nil
}

// exportOne runs the full pipeline for a single commit reference.
// index is the commit's position in the batch, used for numbering.
func exportOne(cmd *cobra.Command, ref string, index int, searchRepos []*gitrepo.Repo,
	candidates []patch.Candidate, cfg *config.PatchConfig, flags *exportFlags,
	spec model.NumberingSpec, dest model.Destination, writer *output.Writer) (*exportResult, error) {

	// Step 3: Resolve the reference against the search list, first
	// repository that knows the commit wins.
	commit, err := resolveAcross(ref, searchRepos, flags.force)
	if err != nil {
		return nil, err
	}
	VerboseLog("Resolved %s to %s (%d file(s) changed)", ref, commit.SHA, len(commit.Changes))

	filtered, err := patch.Filter(commit.Changes, flags.extract, flags.exclude)
	if err != nil {
		return nil, err
	}
	for _, sel := range filtered.Unmatched {
		Warnf("%s does not match any change in commit %s", sel, commit.ShortSHA())
	}
	if len(filtered.Kept) == 0 && len(commit.Changes) > 0 {
		// An empty patch is valid output, not a failure; the header block
		// still records the commit's provenance.
		Warnf("commit %s is empty after filtering", commit.ShortSHA())
	}

	tag := patch.ResolveMainlineTag(commit.SHA, candidates)
	VerboseLog("Patch-mainline: %s", tag)

	// Step 4: Render.
	in := patch.RenderInput{
		Author:      commit.Author,
		AuthorEmail: commit.AuthorEmail,
		Date:        commit.AuthorDate,
		Subject:     commit.Subject,
		SHA:         commit.SHA,
		Partial:     filtered.Partial,
		Mainline:    tag,
		References:  flags.references,
		SignedOffBy: flags.signedOffBy,
		Body:        commit.Body,
		Changes:     filtered.Kept,
	}
	if filtered.Partial {
		in.Filtered = filtered.Selectors
	}
	if cfg.Name != "" && cfg.Email() != "" {
		in.SignOff = &patch.Identity{Name: cfg.Name, Email: cfg.Email()}
	}
	text := patch.Render(in)

	result := &exportResult{
		Commit:    commit.SHA,
		Subject:   commit.Subject,
		Mainline:  tag.String(),
		Empty:     len(filtered.Kept) == 0,
		Unmatched: filtered.Unmatched,
	}

	// Steps 5-6: Name and write.
	switch dest.Kind {
	case model.DestStdout:
		if _, err := writer.Write(text, dest, ""); err != nil {
			return nil, err
		}

	case model.DestFile:
		if !flags.force {
			if _, statErr := os.Stat(dest.Path); statErr == nil {
				return nil, model.NewCLIError(model.ExitGeneralError,
					fmt.Sprintf("%s already exists, use --force to overwrite", dest.Path))
			}
		}
		outcome, err := writer.Write(text, dest, "")
		if err != nil {
			return nil, err
		}
		result.Path = outcome.Path
		reportWritten(cmd, outcome.Path)

	case model.DestDir:
		// The existence check runs against the live directory on every
		// iteration: earlier writes in the same batch change the
		// namespace, so it is never cached.
		choice, err := naming.ChooseName(commit.Subject, commit.ShortSHA(), spec.Start+index, spec,
			func(name string) bool {
				_, statErr := os.Stat(filepath.Join(dest.Path, name))
				return statErr == nil
			})
		if err != nil {
			return nil, err
		}
		if choice.Renamed {
			taken := strings.TrimSuffix(choice.Name, "-"+commit.ShortSHA())
			Warnf("%s already exists. Using %s", taken, choice.Name)
		}

		outcome, err := writer.Write(text, dest, choice.Name)
		if err != nil {
			return nil, err
		}
		result.Path = outcome.Path
		result.Renamed = choice.Renamed
		reportWritten(cmd, filepath.Base(outcome.Path))
	}

	return result, nil
}

// resolveAcross tries each repository in the search list until one resolves
// the reference. Validation failures and local-only guards are terminal;
// only "unknown commit" moves on to the next repository.
func resolveAcross(ref string, repos []*gitrepo.Repo, force bool) (*model.ResolvedCommit, error) {
	var paths []string
	for _, r := range repos {
		paths = append(paths, r.Path)

		commit, err := r.Resolve(ref, force)
		if err == nil {
			return commit, nil
		}

		var unknown *model.UnknownCommitError
		if errors.As(err, &unknown) {
			VerboseLog("Commit %s not found in %s", ref, r.Path)
			continue
		}
		return nil, err
	}
	return nil, &model.UnknownCommitError{Reference: ref, Repo: strings.Join(paths, ", ")}
}

// openSearchRepos opens the repository search list. A --repo override
// replaces the configured list; stale configured paths are skipped with a
// verbose note rather than failing the whole export.
func openSearchRepos(cfg *config.PatchConfig, override string) ([]*gitrepo.Repo, error) {
	paths := cfg.Repos
	if override != "" {
		paths = []string{override}
	}

	var repos []*gitrepo.Repo
	for _, p := range paths {
		r, err := gitrepo.Open(p)
		if err != nil {
			if override != "" {
				return nil, model.WrapCLIError(model.ExitGitError, fmt.Sprintf("cannot open repository %s", p), err)
			}
			VerboseLog("Skipping configured repository %s: %v", p, err)
			continue
		}
		repos = append(repos, r)
	}
	if len(repos) == 0 {
		return nil, model.NewCLIError(model.ExitGitError,
			fmt.Sprintf("no usable repository among: %s", strings.Join(paths, ", ")))
	}
	return repos, nil
}

// buildCandidates turns the configured search list into ordered mainline
// candidates. A candidate counts as mainline when its origin URL — or the
// configured path itself — appears on the mainline list.
func buildCandidates(cfg *config.PatchConfig) []patch.Candidate {
	var candidates []patch.Candidate
	for _, p := range cfg.Repos {
		r, err := gitrepo.Open(p)
		if err != nil {
			continue
		}
		remote := r.RemoteURL()
		candidates = append(candidates, patch.Candidate{
			Path:      p,
			Mainline:  cfg.IsMainlineURL(remote) || cfg.IsMainlineURL(p),
			RemoteURL: remote,
			Prober:    r,
		})
	}
	return candidates
}

// buildNumberingSpec merges numbering flags with config defaults and
// validates the batch fits the chosen width before anything is written.
func buildNumberingSpec(flags *exportFlags, cfg *config.PatchConfig, batch int) (model.NumberingSpec, error) {
	width := flags.numWidth
	if width == 0 {
		width = cfg.NumWidth
	}
	if width < 1 || width > 4 {
		return model.NumberingSpec{}, model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("numbering width must be between 1 and 4, got %d", width))
	}

	spec := model.NumberingSpec{
		Numbered: flags.numeric,
		Start:    flags.firstNumber,
		Width:    width,
		Force:    flags.force,
	}
	if flags.suffix {
		spec.Suffix = ".patch"
	}
	if err := spec.Validate(); err != nil {
		return model.NumberingSpec{}, model.WrapCLIError(model.ExitGeneralError, "invalid numbering options", err)
	}

	if spec.Numbered {
		last := spec.Start + batch - 1
		if len(strconv.Itoa(last)) > spec.Width {
			return model.NumberingSpec{}, &model.NumberOutOfRangeError{Number: last, Width: spec.Width}
		}
	}
	return spec, nil
}

// chooseDestination maps the flag combination onto a destination.
func chooseDestination(flags *exportFlags, batch int) (model.Destination, error) {
	if flags.outputFile != "" {
		if batch > 1 {
			return model.Destination{}, model.NewCLIError(model.ExitGeneralError,
				"--output accepts a single commit; use --dir for a batch")
		}
		return model.File(flags.outputFile), nil
	}
	if flags.write {
		return model.Dir(flags.dir), nil
	}
	return model.Stdout(), nil
}

// reportWritten prints the written filename in text mode. JSON mode
// reports paths in the aggregated result object instead.
func reportWritten(cmd *cobra.Command, name string) {
	if !IsJSONOutput() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
}
