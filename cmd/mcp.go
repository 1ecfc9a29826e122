package cmd

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/ccard-fpt/generate-synthetic-data/internal/mcptools"
	"github.com/ccard-fpt/generate-synthetic-data/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP stdio server for use with Claude Code and other AI tools",
	Long: `The mcp subcommand starts a Model Context Protocol server that communicates
over stdin/stdout using JSON-RPC. This lets an AI tool describe a schema and
run a generation pass without shelling out to the CLI flags directly.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

const mcpInstructions = `generate-synthetic-data introspects a MySQL schema and emits synthetic
INSERT/DELETE SQL satisfying its primary keys, unique indexes, foreign keys,
and NOT NULL constraints. It never writes to the database itself.

## Workflow

1. describe_schema -> see the tables, columns, keys, and FK relationships
2. generate -> run the full pipeline and write the INSERT/DELETE SQL files

Start with describe_schema to confirm the schema and config line up, then
call generate.`

func runMCP(_ *cobra.Command, _ []string) error {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "generate-synthetic-data",
			Version: version.Version(),
		},
		&mcp.ServerOptions{
			Instructions: mcpInstructions,
		},
	)

	mcptools.RegisterAll(server)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
