package main

import (
	"github.com/spf13/cobra"

	"github.com/abdelatifsd/Adjacent/internal/app"
	"github.com/abdelatifsd/Adjacent/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve product lookup and recommendations to MCP clients over stdio",
	Long: `Start a Model Context Protocol server speaking JSON-RPC 2.0 on stdin/stdout.

Tools:
  - get_product: product details by id
  - get_product_recommendations: graph and vector recommendations (never schedules inference)

Prompts:
  - find_recommendations

Logs go to stderr. The command is normally spawned by an MCP client, e.g.
  "mcpServers": {"adjacent-kg": {"command": "adjacent", "args": ["mcp"]}}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// zap writes to stderr in every mode; Stdio moves the trace fallback there too.
		a, cleanup, err := bootstrap(cmd.Context(), app.Options{Stdio: true})
		if err != nil {
			return err
		}
		defer cleanup()

		srv, err := mcp.NewServer(a.Stores.Products, a.Recommender, a.Log, a.Cfg.Observability.Version)
		if err != nil {
			return err
		}
		a.Log.Info("Starting MCP server (stdio)", "neo4j", a.Cfg.Neo4j.URI)
		return srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
