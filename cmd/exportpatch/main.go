// Command exportpatch exports git commits as annotated patch files and
// maintains existing ones.
package main

import (
	"github.com/mmr-tortoise/exportpatch/internal/cli"
)

// Build-time variables injected via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	cli.Execute(cli.NewRootCommand())
}
