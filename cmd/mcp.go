package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mattsre/conflux/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agent tooling inspect and trigger conflict resolution
sessions natively. Configure with:

  {
    "mcpServers": {
      "conflux": { "command": "conflux", "args": ["mcp"] }
    }
  }

Available tools: conflux_list_sessions, conflux_session_status,
conflux_trigger_resolution`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := buildOrchestrator()
		if err != nil {
			return err
		}
		defer func() {
			if dataStore != nil {
				_ = dataStore.Close()
			}
		}()

		srv := mcp.NewServer(dataStore, orch)
		return srv.ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
