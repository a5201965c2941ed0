package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/vibejira/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients query mirrored projects, tickets and comments. Ticket
lookups fall back to JIRA like the REST API does. Configure a client with:

  {
    "mcpServers": {
      "vibejira": { "command": "vibejira", "args": ["mcp"] }
    }
  }

Available tools: vibejira_list_projects, vibejira_list_tickets,
vibejira_get_ticket, vibejira_list_comments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s, newResolver(cfg, s), buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
