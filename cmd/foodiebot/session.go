package main

import (
	"context"
	"fmt"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/formatter"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and reset stored conversations",
	Long:  `Inspect and reset conversations kept by the sqlite backend. The memory backend keeps nothing between runs.`,
}

var sessionStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "List stored conversations",
	Long:  `Display every stored conversation with its entry count and last activity.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := outputFormat(cmd)
		if err != nil {
			return err
		}

		ctx := context.Background()
		rt, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		stats, err := rt.db.ConversationStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read conversations: %w", err)
		}

		f, err := formatter.NewFormatterFactory().Create(format)
		if err != nil {
			return err
		}
		rendered, err := f.FormatConversations(stats)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, rendered)
		if format == formatter.OutputFormatTable {
			if cfg.Conversation.Backend != config.BackendSQLite {
				fmt.Fprintf(out, "\nNote: conversation.backend is %q, so live chats are not stored here.\n", cfg.Conversation.Backend)
			}
			fmt.Fprintf(out, "\nTotal: %d conversation(s)\n", len(stats))
		}
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset [user]",
	Short: "Delete one stored conversation",
	Long:  `Delete all stored history for a conversation identity such as telegram:12345 or cli:alice.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userKey := args[0]

		ctx := context.Background()
		rt, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		removed, err := rt.db.ClearConversation(ctx, userKey)
		if err != nil {
			return fmt.Errorf("failed to reset conversation: %w", err)
		}
		if removed == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No stored conversation for '%s'.\n", userKey)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Conversation '%s' reset (%d entries removed).\n", userKey, removed)
		return nil
	},
}

func outputFormat(cmd *cobra.Command) (formatter.OutputFormat, error) {
	value := string(formatter.OutputFormatTable)
	if flag := cmd.Flags().Lookup("output"); flag != nil {
		value = flag.Value.String()
	}
	return formatter.ParseOutputFormat(value)
}

func init() {
	sessionCmd.AddCommand(sessionStatsCmd)
	sessionCmd.AddCommand(sessionResetCmd)
	sessionStatsCmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(sessionCmd)
}
