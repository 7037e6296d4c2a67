package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/osa911/datacap/internal/api/client"
	"github.com/osa911/datacap/internal/config"
	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/version"
)

var (
	cfg    *config.Config
	logger *logging.Logger
)

// loadConfig reads the environment and initializes the global logger.
// Only the daemon writes to the log file, client commands log to stdout.
func loadConfig(cmd *cobra.Command) {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := cfg.LogConfig()
	if cmd.Name() != runCmd.Name() {
		logConfig.File = ""
	}
	if err := logging.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logging.GetGlobalLogger()
}

func newClient() *client.Client {
	return client.New(cfg.ControlURL())
}

var rootCmd = &cobra.Command{
	Use:   "datacap",
	Short: "datacap - mobile data quota enforcement",
	Long: `datacap tracks mobile data usage against a purchased quota and blocks all
internet traffic through a local sinkhole once the quota is used up or expired.

Run 'datacap run' (or install the service) to start the daemon; every other
command talks to the running daemon over its local control API.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadConfig(cmd)
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("datacap version: %s\n", version.Info())

		ctx, cancel := timeoutContext()
		defer cancel()
		health, err := newClient().Health(ctx)
		if err != nil {
			logger.Debug("Daemon not reachable: %v", err)
			return
		}
		fmt.Printf("daemon version:  %s\n", health.Version)
		if version.Mismatch(version.Version, health.Version) {
			logger.Warn("CLI and daemon versions differ, restart the service after upgrading")
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(purchaseCmd)
	rootCmd.AddCommand(bootCmd)
	rootCmd.AddCommand(serviceCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		logger.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}
