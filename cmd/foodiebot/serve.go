package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/harunnryd/foodiebot/internal/adapter"
	"github.com/harunnryd/foodiebot/internal/config"
	"github.com/harunnryd/foodiebot/internal/daemon"
	"github.com/harunnryd/foodiebot/internal/daemon/components"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat adapters and worker pool",
	Long:  `Starts FoodieBot as a long-running service: Telegram and Slack adapters feed the ingress queue, workers run each turn through the tool loop, and maintenance jobs prune idempotency keys and idle conversations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}

		daemonMgr, err := daemon.NewDaemon(cfg)
		if err != nil {
			return fmt.Errorf("failed to create daemon manager: %w", err)
		}

		storeComp := components.NewStoreComponent(cfg)
		ingressComp := components.NewIngressComponent(cfg)

		eventHandler := func(evtCtx context.Context, source string, eventType string, sessionID string, content string, metadata map[string]string) error {
			ing := ingressComp.GetIngress()
			if ing == nil {
				return fmt.Errorf("ingress not initialized")
			}
			return ing.HandleAdapterEvent(evtCtx, source, eventType, sessionID, content, metadata)
		}

		opts := adapter.RuntimeAdapterOptions{RequireSlackSecrets: true}
		if withCLI, _ := cmd.Flags().GetBool("cli"); withCLI {
			opts.CLI = adapter.NewCLIAdapter(os.Stdin, os.Stdout, cliUser(cmd), cfg.Adapters.MaxMessageLength, eventHandler)
		}

		adapterMgr, err := adapter.NewRuntimeManager(cfg.Adapters, eventHandler, opts)
		if err != nil {
			return fmt.Errorf("failed to configure adapters: %w", err)
		}

		orchComp := components.NewOrchestratorComponent(cfg, storeComp)
		workersComp := components.NewWorkersComponent(cfg, ingressComp, orchComp, adapterMgr)
		adaptersComp := components.NewAdaptersComponent(adapterMgr)
		maintenanceComp := components.NewMaintenanceComponent(cfg, ingressComp, storeComp)
		httpComp := components.NewHTTPServerComponent(daemonMgr, &cfg.Server)

		daemonMgr.AddComponent(storeComp)
		daemonMgr.AddComponent(orchComp)
		daemonMgr.AddComponent(ingressComp)
		daemonMgr.AddComponent(workersComp)
		daemonMgr.AddComponent(adaptersComp)
		daemonMgr.AddComponent(maintenanceComp)
		daemonMgr.AddComponent(httpComp)

		slog.Info("FoodieBot daemon starting up...", "adapters", adapterMgr.Inputs(), "health_addr", cfg.Server.HealthAddr)
		err = daemonMgr.Start(context.Background())
		if err != nil {
			// Cancellation via signal/context is a graceful shutdown case for CLI.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("FoodieBot daemon stopped gracefully")
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("FoodieBot daemon stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("server.health_addr", config.DefaultServerHealthAddr, "address for GET /health (empty disables)")
	serveCmd.Flags().Bool("cli", false, "also attach a terminal REPL to the running service")
	serveCmd.Flags().String("user", "", "user name for the terminal REPL (default $USER)")
	serveCmd.Flags().Bool("adapters.telegram.enabled", false, "enable the Telegram adapter")
	serveCmd.Flags().Bool("adapters.slack.enabled", false, "enable the Slack adapter")
}
