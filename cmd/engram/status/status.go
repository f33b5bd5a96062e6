// Package statuscmder provides the status command for displaying the active
// session state of the local .engram directory.
package statuscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/dotdir"
)

const statusLongDesc string = `Show the current engram session state.

Reads the local .engram/ directory (or ~/.engram/) to display the active
agent and session, as recorded the last time a session was saved.

If no session state exists, indicates that the next run will start fresh.

Examples:
  engram status`

const statusShortDesc string = "Show current session state"

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runStatus(configDir)
		},
	}

	return cmd
}

func runStatus(configDir string) error {
	manager := dotdir.NewManager()

	state, err := manager.LoadSessionState(configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	if state == nil {
		fmt.Printf("  %s No session state. Next run will start a new session.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s  %s\n", cliui.KeyStyle.Render("Agent:  "), cliui.NameStyle.Render(state.AgentID))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(state.SessionID))
	fmt.Printf("  %s  %s\n\n",
		cliui.KeyStyle.Render("Updated:"),
		cliui.DimStyle.Render(state.UpdatedAt.Format("2006-01-02 15:04:05 MST")),
	)

	return nil
}
