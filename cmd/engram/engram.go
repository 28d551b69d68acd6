// Package engramcmder
package engramcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
)

const engramLongDesc string = `Engram is durable, queryable memory for your projects.

It records engineering decisions, milestone progress, and code patterns in
a structured store, mirrors the searchable records into a vector index, and
answers questions by meaning rather than by keyword.

Common commands:
  engram init          Initialize a local .engram/ directory
  engram serve         Run the API and MCP server
  engram config list   Show the active configuration`

const engramShortDesc string = "Engram - Project Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: ./.engram or ~/.engram)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
