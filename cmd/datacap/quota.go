package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osa911/datacap/internal/api/client"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Manage the data quota",
}

var quotaSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set a new quota and reset usage",
	Long: `Set a new quota and reset usage. Invalid or missing values fall back to
1000 MB and 30 days.

Example:
  datacap quota set --mb 5120 --days 7`,
	Run: func(cmd *cobra.Command, args []string) {
		mb, _ := cmd.Flags().GetString("mb")
		days, _ := cmd.Flags().GetString("days")

		ctx, cancel := timeoutContext()
		defer cancel()

		q, err := newClient().SaveQuotaForm(ctx, mb, days)
		if err != nil {
			logger.Error("Failed to save quota: %v", err)
			os.Exit(1)
		}
		logger.Info("Quota set to %d MB, expires %s", q.LimitMB,
			time.UnixMilli(q.ExpiryTimeMs).Format("2006-01-02 15:04"))
	},
}

var quotaEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable enforcement",
	Run: func(cmd *cobra.Command, args []string) {
		runMessage("enable enforcement", func(ctx context.Context, c *client.Client) (string, error) {
			return c.SetEnabled(ctx, true)
		})
	},
}

var quotaDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable enforcement without changing the quota",
	Run: func(cmd *cobra.Command, args []string) {
		runMessage("disable enforcement", func(ctx context.Context, c *client.Client) (string, error) {
			return c.SetEnabled(ctx, false)
		})
	},
}

var actionCmd = &cobra.Command{
	Use:   "action <id>",
	Short: "Trigger a notification action (block, unblock)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runMessage(fmt.Sprintf("run action %s", args[0]), func(ctx context.Context, c *client.Client) (string, error) {
			return c.Action(ctx, args[0])
		})
	},
}

func init() {
	quotaSetCmd.Flags().String("mb", "1000", "Quota limit in MB")
	quotaSetCmd.Flags().String("days", "30", "Validity in days")

	quotaCmd.AddCommand(quotaSetCmd)
	quotaCmd.AddCommand(quotaEnableCmd)
	quotaCmd.AddCommand(quotaDisableCmd)
	rootCmd.AddCommand(actionCmd)
}
