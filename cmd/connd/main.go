package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/angelfreak/connd/pkg/config"
	"github.com/angelfreak/connd/pkg/connection"
	"github.com/angelfreak/connd/pkg/daemon"
	"github.com/angelfreak/connd/pkg/metrics"
	"github.com/angelfreak/connd/pkg/policy"
	"github.com/angelfreak/connd/pkg/system"
	"github.com/angelfreak/connd/pkg/types"
)

var (
	configPath string
	debug      bool

	logger     types.Logger
	cfgManager *config.Manager
	client     *daemon.Client
	handler    *connection.Handler

	rootCmd = &cobra.Command{
		Use:   "connd",
		Short: "Network connection request dispatcher",
		Long: `connd dispatches connect/disconnect requests to the network
management daemon, applying enterprise policy and certificate-readiness
checks and deduplicating concurrent requests per network.

Examples:
  connd connect /service/wifi_abc123      Connect to a network
  connd disconnect /service/wifi_abc123   Disconnect a network
  connd status                            List known networks
  connd watch                             Follow request lifecycle events`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initialize()
		},
	}
)

func initialize() error {
	logger = system.NewLogger(debug)

	cfgManager = config.NewManager(logger)
	cfg, err := cfgManager.LoadConfig(configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		return err
	}

	client, err = daemon.NewClient(&cfg.Daemon, logger)
	if err != nil {
		logger.Error("Failed to connect to daemon", "error", err)
		return err
	}

	handler = connection.NewHandler(logger)
	handler.Init(client, client, policy.FromConfig(&cfg.Policy), nil)
	handler.SetCertLoadTimeout(cfg.Connect.GetCertLoadTimeout())
	client.SetWatcher(handler)

	if err := client.Start(context.Background()); err != nil {
		logger.Error("Failed to start daemon watcher", "error", err)
		return err
	}

	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		handler.AddObserver(metrics.NewCollector(registry))
		listen := cfg.Metrics.Listen
		if listen == "" {
			listen = "localhost:9477"
		}
		go func() {
			if err := metrics.Serve(listen, registry, logger); err != nil {
				logger.Error("Metrics listener failed", "error", err)
			}
		}()
	}
	return nil
}

// shutdown drains pending requests and drops the daemon connection.
func shutdown() {
	handler.Shutdown()
	if err := client.Close(); err != nil {
		logger.Warn("Failed to close daemon connection", "error", err)
	}
}

// interruptContext returns a context cancelled on SIGINT/SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), unix.SIGINT, unix.SIGTERM)
}

func createApp() *App {
	return &App{
		Logger:  logger,
		Handler: handler,
		Daemon:  client,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Select configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
