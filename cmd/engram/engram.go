// Package engramcmder
package engramcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	exportcmder "github.com/papercomputeco/engram/cmd/engram/export"
	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	statuscmder "github.com/papercomputeco/engram/cmd/engram/status"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
)

const engramLongDesc string = `Engram is a tiered memory engine for conversational agents.

Run the memory server using:
  engram serve         Run the memory API server

Manage local state and configuration:
  engram init          Initialize a local .engram/ directory
  engram config        Get, set, and list configuration values
  engram status        Show the active session and checkpoint state
  engram export        Export memory as markdown from a running server`

const engramShortDesc string = "Engram - Agent Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Config directory (default: ./.engram or ~/.engram)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(exportcmder.NewExportCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
