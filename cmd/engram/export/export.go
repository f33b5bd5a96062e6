// Package exportcmder provides the export command for rendering a running
// server's memory state as markdown in the terminal.
package exportcmder

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/cliui"
)

const exportLongDesc string = `Export memory as markdown from a running engram server.

Fetches the markdown export from the server's /v1/export endpoint and
renders it for terminal display. Use --raw to print the markdown source
unrendered, e.g. for piping into a file.

Examples:
  engram export
  engram export --stats
  engram export --target http://localhost:8081 --raw > memory.md`

const exportShortDesc string = "Export memory as markdown"

type exportCommander struct {
	target string
	stats  bool
	raw    bool
}

func NewExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.target, "target", "t", "http://localhost:8081", "Engram API server URL")
	cmd.Flags().BoolVar(&cmder.stats, "stats", false, "Include memory statistics in the export")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print raw markdown without terminal rendering")

	return cmd
}

func (c *exportCommander) run() error {
	endpoint, err := url.JoinPath(c.target, "/v1/export")
	if err != nil {
		return fmt.Errorf("building export URL: %w", err)
	}
	if c.stats {
		endpoint += "?include_stats=true"
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("fetching export from %s: %w", c.target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading export response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("export failed: %s: %s", resp.Status, string(body))
	}

	if c.raw {
		fmt.Print(string(body))
		return nil
	}

	rendered, err := cliui.RenderMarkdown(string(body))
	if err != nil {
		// Fall back to the raw markdown when the terminal renderer fails.
		fmt.Print(string(body))
		return nil
	}

	fmt.Print(rendered)
	return nil
}
