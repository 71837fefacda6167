package gitrepo

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// versionKey is the sortable form of a v* release tag. Release builds order
// after their rc candidates (v6.5-rc7 < v6.5 < v6.5.1).
type versionKey struct {
	major, minor, patch int
	release             bool
	rc                  int
}

var (
	// vTwoRe matches historical v2.x.y tags, including v2.6.32.1 point
	// releases and v2.6.39-rc3 candidates.
	vTwoRe = regexp.MustCompile(`^v2\.(\d+)\.(\d+)(?:\.(\d+)|-rc(\d+))?$`)

	// vModernRe matches v3.0 era and later tags: vX.Y and vX.Y-rcN.
	// Stable point releases (vX.Y.Z) are deliberately excluded — those come
	// from -stable trees and never appear in a mainline provenance tag.
	vModernRe = regexp.MustCompile(`^v(\d+)\.(\d+)(?:-rc(\d+))?$`)

	// nextTagRe extracts the components nextVersionTag works from.
	nextTagRe = regexp.MustCompile(`^v(\d+)\.(\d+)(?:-rc(\d+))?$`)
)

// parseVersionKey parses a tag into its sortable key.
// The second result is false for tags that are not mainline version tags.
func parseVersionKey(tag string) (versionKey, bool) {
	if m := vTwoRe.FindStringSubmatch(tag); m != nil {
		k := versionKey{major: 2, minor: atoi(m[1]), patch: atoi(m[2])}
		if m[4] != "" {
			k.rc = atoi(m[4])
		} else {
			k.release = true
			if m[3] != "" {
				k.rc = atoi(m[3])
			}
		}
		return k, true
	}
	if m := vModernRe.FindStringSubmatch(tag); m != nil {
		k := versionKey{major: atoi(m[1]), minor: atoi(m[2])}
		if m[3] != "" {
			k.rc = atoi(m[3])
		} else {
			k.release = true
		}
		return k, true
	}
	return versionKey{}, false
}

// less orders version keys ascending.
func (k versionKey) less(o versionKey) bool {
	if k.major != o.major {
		return k.major < o.major
	}
	if k.minor != o.minor {
		return k.minor < o.minor
	}
	if k.patch != o.patch {
		return k.patch < o.patch
	}
	if k.release != o.release {
		// rc candidates sort before the release they lead up to.
		return !k.release
	}
	return k.rc < o.rc
}

// latestVersionTag returns the newest mainline version tag in tags,
// or "" when none qualifies.
func latestVersionTag(tags []string) string {
	type entry struct {
		tag string
		key versionKey
	}
	var entries []entry
	for _, t := range tags {
		if k, ok := parseVersionKey(t); ok {
			entries = append(entries, entry{tag: t, key: k})
		}
	}
	if len(entries) == 0 {
		return ""
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key.less(entries[j].key) })
	return entries[len(entries)-1].tag
}

// nextVersionTag estimates the tag a not-yet-tagged mainline commit will
// land in, given the newest existing tag:
//   - after a final release vX.Y, the merge window opens for vX.(Y+1)-rc1;
//   - during an rc cycle vX.Y-rcN, the commit lands in vX.Y or the next rc.
func nextVersionTag(latest string) string {
	m := nextTagRe.FindStringSubmatch(latest)
	if m == nil {
		return ""
	}
	major, minor := m[1], atoi(m[2])
	if m[3] == "" {
		return fmt.Sprintf("v%s.%d-rc1", major, minor+1)
	}
	return fmt.Sprintf("v%s.%d or v%s.%d-rc%d (next release)",
		major, minor, major, minor, atoi(m[3])+1)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
