// Package config loads the exportpatch configuration: the repository search
// list, the mainline URL list used to classify candidates, the contact
// identity for sign-off trailers, and formatting defaults.
//
// Configuration files may be YAML (patch.yaml) or JSONC (patch.jsonc /
// patch.json — JSON with comments, stripped with github.com/tidwall/jsonc
// before parsing with the standard encoding/json). Files are layered:
// system, then user, then working directory, later files overriding
// earlier ones.
//
// A missing or unreadable configuration is never a hard failure. The export
// path proceeds on defaults; only mainline tag resolution degrades (zero
// candidates always yield the unresolved tag). The loaded PatchConfig is an
// explicit value threaded through every call — there is no package global.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultNumWidth is the numeric filename prefix width used when neither
// the configuration nor the command line picks one.
const DefaultNumWidth = 4

// defaultMainlineURLs are the upstream URLs recognized as Linus' mainline
// tree. A candidate repository whose origin matches one of these produces
// version tags; any other match produces the queued marker.
var defaultMainlineURLs = []string{
	"git://git.kernel.org/pub/scm/linux/kernel/git/torvalds/linux-2.6.git",
	"git://git.kernel.org/pub/scm/linux/kernel/git/torvalds/linux.git",
	"https://git.kernel.org/pub/scm/linux/kernel/git/torvalds/linux.git",
	"https://kernel.googlesource.com/pub/scm/linux/kernel/git/torvalds/linux.git",
}

// PatchConfig is the resolved configuration for one invocation. It is
// loaded once and treated as read-only afterwards.
type PatchConfig struct {
	// Repos are the local repository paths searched, in order, both to
	// resolve commit references and as mainline-tag candidates.
	Repos []string `yaml:"repos" json:"repos"`

	// MainlineRepos are the remote URLs that identify a candidate as a
	// mainline tree.
	MainlineRepos []string `yaml:"mainline" json:"mainline"`

	// Name is the contact name for Acked-by / Signed-off-by trailers.
	Name string `yaml:"name" json:"name"`

	// Emails are the contact addresses; the first one signs. The full
	// list is used to detect already-present sign-offs.
	Emails []string `yaml:"emails" json:"emails"`

	// NumWidth is the default numbering width for -n exports.
	NumWidth int `yaml:"num_width" json:"numWidth"`
}

// Email returns the signing address: the first configured email, or "".
func (c *PatchConfig) Email() string {
	if len(c.Emails) == 0 {
		return ""
	}
	return c.Emails[0]
}

// IsMainlineURL reports whether url is on the configured mainline list.
func (c *PatchConfig) IsMainlineURL(url string) bool {
	if url == "" {
		return false
	}
	for _, m := range c.MainlineRepos {
		if url == m {
			return true
		}
	}
	return false
}

// FillIdentity applies fallback contact details (typically from git
// config) to fields the configuration files left empty.
func (c *PatchConfig) FillIdentity(name, email string) {
	if c.Name == "" {
		c.Name = name
	}
	if len(c.Emails) == 0 && email != "" {
		c.Emails = []string{email}
	}
}

// Load builds the PatchConfig for an invocation rooted at cwd.
//
// It starts from defaults (search list = cwd, kernel.org mainline URLs,
// standard numbering width) and layers every configuration file found in
// the search locations over them. Files that are missing, unreadable or
// malformed are skipped; Load never fails.
func Load(cwd string) *PatchConfig {
	cfg := &PatchConfig{
		Repos:         []string{cwd},
		MainlineRepos: append([]string(nil), defaultMainlineURLs...),
		NumWidth:      DefaultNumWidth,
	}

	for _, dir := range searchDirs(cwd) {
		layer, ok := loadDir(dir)
		if !ok {
			continue
		}
		cfg.merge(layer)
	}

	cfg.canonicalizeRepos(cwd)
	return cfg
}

// searchDirs lists the configuration locations in layering order:
// system-wide, per-user, then the working directory.
func searchDirs(cwd string) []string {
	dirs := []string{"/etc/exportpatch"}
	if userDir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userDir, "exportpatch"))
	}
	return append(dirs, cwd)
}

// configNames are the filenames probed in each search directory, in
// preference order. The first parseable one wins for that directory.
var configNames = []string{"patch.yaml", "patch.yml", "patch.jsonc", "patch.json"}

// loadDir reads the first parseable configuration file in dir.
func loadDir(dir string) (*PatchConfig, bool) {
	for _, name := range configNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		layer := &PatchConfig{}
		switch filepath.Ext(name) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, layer)
		default:
			// jsonc.ToJSON strips comments and trailing commas, leaving
			// plain JSON for the standard decoder.
			err = json.Unmarshal(jsonc.ToJSON(data), layer)
		}
		if err != nil {
			continue
		}
		return layer, true
	}
	return nil, false
}

// merge layers src over the receiver. Scalar fields and the repo search
// list override wholly; mainline URLs accumulate, since a site-local
// mirror extends rather than replaces the upstream list.
func (c *PatchConfig) merge(src *PatchConfig) {
	if len(src.Repos) > 0 {
		c.Repos = append([]string(nil), src.Repos...)
	}
	for _, m := range src.MainlineRepos {
		if !c.IsMainlineURL(m) {
			c.MainlineRepos = append(c.MainlineRepos, m)
		}
	}
	if src.Name != "" {
		c.Name = src.Name
	}
	if len(src.Emails) > 0 {
		c.Emails = append([]string(nil), src.Emails...)
	}
	if src.NumWidth > 0 {
		c.NumWidth = src.NumWidth
	}
}

// canonicalizeRepos resolves relative search paths against cwd and
// expands "." so repository handles are stable regardless of where the
// command runs from.
func (c *PatchConfig) canonicalizeRepos(cwd string) {
	out := make([]string, 0, len(c.Repos))
	for _, r := range c.Repos {
		switch {
		case r == ".":
			out = append(out, cwd)
		case filepath.IsAbs(r):
			if resolved, err := filepath.EvalSymlinks(r); err == nil {
				r = resolved
			}
			out = append(out, r)
		default:
			out = append(out, filepath.Join(cwd, r))
		}
	}
	c.Repos = out
}
