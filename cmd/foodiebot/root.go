package main

import (
	"fmt"
	"io"
	"os"

	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "foodiebot",
	Short: "FoodieBot, asisten kuliner Indonesia",
	Long:  `FoodieBot answers food and restaurant questions over Telegram, Slack or the terminal, calling its restaurant, menu, weather and favorites tools as needed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logCloser, err = logger.SetupWithFile(cfg.Server.LogLevel, cfg.Server.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.foodiebot/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("models.default", config.DefaultModelDefault, "model used for chat completions")
	rootCmd.PersistentFlags().String("conversation.backend", config.DefaultConversationBackend, "conversation backend (memory, sqlite)")
}
