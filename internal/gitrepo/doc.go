// Package gitrepo provides the version-control operations exportpatch needs:
// reference validation and resolution, commit metadata and diff extraction,
// tag lookup, and reachability probing across candidate repositories.
//
// All Git operations are performed via os/exec calls to the git binary,
// rather than using a Git library like go-git. This approach:
//   - Avoids CGO dependencies (libgit2)
//   - Uses the exact same Git behavior the user sees in their terminal
//   - Keeps the diff output byte-compatible with standard patch tooling
//
// The package never mutates repository state; every command it runs is a
// read-only query.
package gitrepo
