package patch

import (
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// FilterResult reports what filtering kept and what it dropped.
//
// An empty Kept sequence is valid output, not an error: callers distinguish
// "the patch had nothing to extract" from "the export failed".
type FilterResult struct {
	// Kept holds the surviving changes in their original order. Hunks
	// within a kept file are never reordered.
	Kept []model.FileChange

	// Unmatched lists extract selectors that matched no change in the
	// commit, so the caller can report them.
	Unmatched []string

	// Partial reports that at least one change was dropped. A partial
	// patch is annotated with "(partial)" and a Patch-filtered header.
	Partial bool

	// Selectors is the Patch-filtered rendering of the applied filter:
	// extract selectors verbatim, exclude patterns prefixed with "!".
	Selectors []string
}

// Filter applies extract-only or exclude-list rules to an ordered sequence
// of file changes.
//
// Extract and exclude are mutually exclusive selection modes; supplying
// both is a ConflictingFilterError. Extract selectors match a path exactly,
// or as a hierarchy prefix when the selector ends with "/"; repeated
// selectors combine by union. Exclude patterns use gitignore glob syntax
// and combine by union; a pattern matching nothing is silently a no-op.
func Filter(changes []model.FileChange, extract, exclude []string) (*FilterResult, error) {
	if len(extract) > 0 && len(exclude) > 0 {
		return nil, &model.ConflictingFilterError{Extract: extract, Exclude: exclude}
	}

	res := &FilterResult{}
	switch {
	case len(extract) > 0:
		filterExtract(res, changes, extract)
	case len(exclude) > 0:
		filterExclude(res, changes, exclude)
	default:
		res.Kept = changes
	}
	return res, nil
}

// filterExtract keeps only changes selected by at least one extract path.
func filterExtract(res *FilterResult, changes []model.FileChange, extract []string) {
	matched := make(map[string]bool, len(extract))
	for _, c := range changes {
		selected := false
		for _, sel := range extract {
			if matchesSelector(c.Path, sel) || (c.OldPath != "" && matchesSelector(c.OldPath, sel)) {
				matched[sel] = true
				selected = true
			}
		}
		if selected {
			res.Kept = append(res.Kept, c)
		}
	}

	for _, sel := range extract {
		if !matched[sel] {
			res.Unmatched = append(res.Unmatched, sel)
		}
	}
	res.Partial = len(res.Kept) != len(changes)
	res.Selectors = append(res.Selectors, extract...)
}

// filterExclude drops every change matching at least one exclude pattern.
// Renames match on either side, so a file moved out of an excluded tree is
// dropped along with in-place changes.
func filterExclude(res *FilterResult, changes []model.FileChange, exclude []string) {
	matcher := gitignore.CompileIgnoreLines(exclude...)
	for _, c := range changes {
		if matcher.MatchesPath(c.Path) || (c.OldPath != "" && matcher.MatchesPath(c.OldPath)) {
			continue
		}
		res.Kept = append(res.Kept, c)
	}

	res.Partial = len(res.Kept) != len(changes)
	for _, pat := range exclude {
		res.Selectors = append(res.Selectors, "!"+pat)
	}
}

// matchesSelector implements extract path matching: exact path, or
// hierarchy containment when the selector ends with "/".
func matchesSelector(path, sel string) bool {
	if strings.HasSuffix(sel, "/") {
		return strings.HasPrefix(path, sel)
	}
	return path == sel
}
