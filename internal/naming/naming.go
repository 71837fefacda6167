// Package naming computes patch filenames: a git-am style sanitized subject,
// an optional fixed-width numeric prefix for series ordering, and a
// deterministic conflict fallback that never silently overwrites existing
// work.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// maxNameLen bounds the full filename (prefix + name + suffix).
const maxNameLen = 64

var (
	// subjectLeadRe strips "Re:" markers and "[PATCH ...]" brackets from
	// the front of a subject, mirroring what git am does before using a
	// subject as a filename. Non-PATCH brackets are kept (git am -b).
	subjectLeadRe = regexp.MustCompile(`^(([Rr][Ee]:|\[PATCH[^\]]*\])[ \t]*)*`)

	unsafeCharRe = regexp.MustCompile(`[^_A-Za-z0-9.]`)
	dashRunRe    = regexp.MustCompile(`-+`)
	dotRunRe     = regexp.MustCompile(`\.+`)
)

// SafeFileName converts a commit subject into a safe patch filename stem:
// lead-in markers stripped, unsafe characters squashed to single hyphens,
// dot runs collapsed, edges trimmed.
func SafeFileName(subject string) string {
	name := subjectLeadRe.ReplaceAllString(subject, "")
	name = unsafeCharRe.ReplaceAllString(name, "-")
	name = dashRunRe.ReplaceAllString(name, "-")
	name = dotRunRe.ReplaceAllString(name, ".")
	return strings.Trim(name, "-. ")
}

// ChooseName computes the filename for one export.
//
// n is the patch's number within the batch (ignored unless spec.Numbered).
// A number needing more digits than spec.Width is a NumberOutOfRangeError —
// never widened or truncated, since series consumers rely on fixed-width
// lexicographic ordering. exists is consulted against the destination
// namespace at call time; callers re-check per write in a batch because
// earlier writes change the namespace.
//
// When the computed name exists and spec.Force is false, a deterministic
// alternate ("<name>-<shortSHA>") is chosen and reported via
// NameChoice.Renamed so the caller can warn. If the alternate exists too,
// ChooseName refuses rather than guessing further. With spec.Force the
// computed name is returned unchanged and the caller overwrites.
func ChooseName(subject, shortSHA string, n int, spec model.NumberingSpec, exists func(string) bool) (model.NameChoice, error) {
	if err := spec.Validate(); err != nil {
		return model.NameChoice{}, err
	}

	prefix := ""
	if spec.Numbered {
		if len(strconv.Itoa(n)) > spec.Width {
			return model.NameChoice{}, &model.NumberOutOfRangeError{Number: n, Width: spec.Width}
		}
		prefix = fmt.Sprintf("%0*d-", spec.Width, n)
	}

	name := SafeFileName(subject)
	if name == "" {
		name = "patch"
	}

	room := maxNameLen - len(prefix) - len(spec.Suffix)
	if room < 1 {
		return model.NameChoice{}, fmt.Errorf("numbering prefix and suffix leave no room for a filename within %d characters", maxNameLen)
	}
	if len(name) > room {
		name = strings.Trim(name[:room], "-.")
	}

	full := prefix + name + spec.Suffix
	if spec.Force || exists == nil || !exists(full) {
		return model.NameChoice{Name: full}, nil
	}

	alt := full + "-" + shortSHA
	if exists(alt) {
		return model.NameChoice{}, fmt.Errorf("both %s and %s already exist, use --force to overwrite", full, alt)
	}
	return model.NameChoice{Name: alt, Renamed: true}, nil
}
