// Package cli — config.go implements the "exportpatch config" command.
//
// Config prints the fully resolved configuration for the current directory:
// defaults, every layered file, and the identity backfilled from git config.
// It exists so a surprising export (wrong search list, wrong sign-off) can
// be diagnosed without reading the layering rules.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/exportpatch/internal/config"
	"github.com/mmr-tortoise/exportpatch/internal/model"
)

// NewConfigCommand creates the "config" cobra command.
func NewConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Config prints the configuration that export and fix would run with,
after layering the system, user and working-directory files over the
built-in defaults and backfilling the identity from git config.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(cmd)
		},
	}
}

func runConfig(cmd *cobra.Command) error {
	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	cfg := config.Load(cwd)
	fillIdentityFromRepos(cfg)

	if IsJSONOutput() {
		return printJSON(cmd, cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode configuration", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
