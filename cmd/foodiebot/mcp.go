package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/mcpserver"
	"github.com/harunnryd/foodiebot/internal/tooling"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the food tools over MCP on stdio",
	Long:  `Exposes every built-in tool (restaurant search, menus, weather, favorites, orders) to MCP clients over stdin/stdout. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		if _, err := rt.db.Seed(ctx, false); err != nil {
			return fmt.Errorf("seed database: %w", err)
		}

		// Without an embedder search_menu ranks by keywords, which keeps the
		// server usable without a local embedding model.
		tools, err := tooling.Build(ctx, cfg, rt.db, nil)
		if err != nil {
			return fmt.Errorf("build tools: %w", err)
		}

		timeout, err := config.DurationOrDefault(cfg.Tools.Timeout, config.DefaultToolsTimeout)
		if err != nil {
			return fmt.Errorf("parse tools timeout: %w", err)
		}

		server, err := mcpserver.New(tools.Runner, mcpserver.Options{
			Identity: "mcp:" + cliUser(cmd),
			Timeout:  timeout,
		})
		if err != nil {
			return err
		}
		return server.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("user", "", "identity for user-scoped tools when the client omits user_id (default $USER)")
}
