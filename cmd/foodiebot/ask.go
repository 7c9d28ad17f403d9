package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/harunnryd/foodiebot/internal/orchestrator"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a single question and print the reply",
	Long:  `Runs one turn for the CLI user and prints the reply. With the sqlite backend the turn joins that user's stored conversation.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return fmt.Errorf("message cannot be empty")
		}

		ctx := context.Background()
		rt, err := openRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		user := cliUser(cmd)
		reply, err := rt.engine.Handle(ctx, orchestrator.Turn{
			UserID:      "cli:" + user,
			DisplayName: user,
			Text:        text,
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().String("user", "", "user name for this turn (default $USER)")
}
