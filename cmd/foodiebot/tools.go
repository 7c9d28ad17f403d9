package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/harunnryd/foodiebot/internal/tool"
	"github.com/harunnryd/foodiebot/internal/tooling"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the model can call",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		rt, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		tools, err := tooling.Build(ctx, cfg, rt.db, nil)
		if err != nil {
			return fmt.Errorf("build tools: %w", err)
		}

		defs := tools.Runner.Definitions()
		sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

		out := cmd.OutOrStdout()
		for _, def := range defs {
			scope := ""
			if tool.DeclaresParam(def, tool.UserIDParam) {
				scope = " [per-user]"
			}
			fmt.Fprintf(out, "%-24s%s\n    %s\n", def.Name, scope, def.Description)
		}
		fmt.Fprintf(out, "\nTotal: %d tool(s)\n", len(defs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
