package cmd

import (
	"github.com/spf13/cobra"

	trkmcp "trk/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients query and modify the issue database natively.
Configure in the client with:

  {
    "mcpServers": {
      "trk": { "command": "trk", "args": ["mcp"] }
    }
  }

Available tools: trk_list_issues, trk_get_issue, trk_create_issue,
trk_update_issue, trk_delete_issue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return trkmcp.NewServer(s).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
