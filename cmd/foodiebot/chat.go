package main

import (
	"context"
	"fmt"
	"os"

	"github.com/harunnryd/foodiebot/internal/adapter"
	"github.com/harunnryd/foodiebot/internal/egress"
	"github.com/harunnryd/foodiebot/internal/orchestrator"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with FoodieBot in the terminal",
	Long:  `Opens an interactive REPL. Each line is one turn through the same tool loop the chat adapters use; /help lists the slash commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sig := NewSignalHandler(context.Background())
		sig.Start()
		defer sig.Stop()

		rt, err := openRuntime(sig.Context(), cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		user := cliUser(cmd)
		out := egress.NewEgress()

		var cli *adapter.CLIAdapter
		cli = adapter.NewCLIAdapter(os.Stdin, os.Stdout, user, cfg.Adapters.MaxMessageLength,
			func(ctx context.Context, source, eventType, sessionID, content string, metadata map[string]string) error {
				reply, err := rt.engine.Handle(ctx, orchestrator.Turn{
					UserID:      source + ":" + metadata[adapter.MetaUserID],
					DisplayName: metadata[adapter.MetaUserName],
					Text:        content,
				})
				if err != nil {
					return err
				}
				return out.Send(ctx, cli.Name(), sessionID, reply)
			})
		if err := out.Register(cli); err != nil {
			return fmt.Errorf("register cli output: %w", err)
		}

		return cli.Start(sig.Context())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("user", "", "user name for this session (default $USER)")
}
