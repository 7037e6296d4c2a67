package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/osa911/datacap/internal/daemon"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the datacap system service",
	Long:  `Install, uninstall, or manage the datacap daemon as a boot-time system service.`,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install datacap as a system service",
	Run: func(cmd *cobra.Command, args []string) {
		inst, err := daemon.NewInstaller()
		if err != nil {
			logger.Error("Failed to create installer: %v", err)
			os.Exit(1)
		}

		if err := inst.Install(); err != nil {
			logger.Error("Failed to install service: %v", err)
			os.Exit(1)
		}

		logger.Info("Successfully installed datacap service")
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the datacap system service",
	Run: func(cmd *cobra.Command, args []string) {
		inst, err := daemon.NewInstaller()
		if err != nil {
			logger.Error("Failed to create installer: %v", err)
			os.Exit(1)
		}

		if err := inst.Uninstall(); err != nil {
			logger.Error("Failed to uninstall service: %v", err)
			os.Exit(1)
		}

		logger.Info("Successfully uninstalled datacap service")
	},
}

var serviceStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the service and a daemon are running",
	Run: func(cmd *cobra.Command, args []string) {
		running, err := daemon.NewDefaultServiceManager().IsRunning()
		if err != nil {
			logger.Error("Failed to check service status: %v", err)
			os.Exit(1)
		}
		if running {
			logger.Info("Service: running")
		} else {
			logger.Info("Service: not running")
		}

		pidFile, _ := cmd.Flags().GetString("pid-file")
		singleton, err := daemon.NewSingletonManager(pidFile)
		if err != nil {
			logger.Error("Failed to check daemon lock: %v", err)
			os.Exit(1)
		}
		if pid := singleton.GetRunningPID(); pid > 0 {
			logger.Info("Daemon: running (PID: %d)", pid)
		} else {
			logger.Info("Daemon: not running")
		}
	},
}

var serviceRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the datacap system service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := daemon.NewDefaultServiceManager().Restart(); err != nil {
			logger.Error("Failed to restart service: %v", err)
			os.Exit(1)
		}
		logger.Info("Service restarted")
	},
}

var serviceReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Restart only the enforcement engine of the service (SIGHUP)",
	Run: func(cmd *cobra.Command, args []string) {
		if err := daemon.NewDefaultServiceManager().Reload(); err != nil {
			logger.Error("Failed to reload service: %v", err)
			os.Exit(1)
		}
		logger.Info("Service reloaded")
	},
}

func init() {
	serviceStatusCmd.Flags().String("pid-file", daemon.DefaultPidFile, "Single-instance lock file")

	serviceCmd.AddCommand(installCmd)
	serviceCmd.AddCommand(uninstallCmd)
	serviceCmd.AddCommand(serviceStatusCmd)
	serviceCmd.AddCommand(serviceRestartCmd)
	serviceCmd.AddCommand(serviceReloadCmd)
}
