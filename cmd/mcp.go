package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nightfallstudio/bugboard/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for AI-assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets AI coding assistants query the board and file bugs natively.
Configure with:

  {
    "mcpServers": {
      "bugboard": { "command": "bugboard", "args": ["mcp"] }
    }
  }

Available tools: bugboard_list_issues, bugboard_board,
bugboard_submit_bug, bugboard_move_issue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		api, err := newUpstream(cfg)
		if err != nil {
			return err
		}
		return mcp.NewServer(api).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
