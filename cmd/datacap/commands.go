package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/osa911/datacap/internal/api/client"
	"github.com/osa911/datacap/internal/api/dto/v1/status"
)

func timeoutContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), client.DefaultTimeout)
}

// runMessage calls a daemon command that answers with a message
func runMessage(what string, call func(ctx context.Context, c *client.Client) (string, error)) {
	ctx, cancel := timeoutContext()
	defer cancel()

	msg, err := call(ctx, newClient())
	if err != nil {
		logger.Error("Failed to %s: %v", what, err)
		os.Exit(1)
	}
	logger.Info("%s", msg)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show quota, usage and enforcement state",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := timeoutContext()
		defer cancel()

		st, err := newClient().Status(ctx)
		if err != nil {
			logger.Error("Failed to get status: %v", err)
			os.Exit(1)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			printJSON(st)
			return
		}
		printStatus(st)
	},
}

func printStatus(st *status.Response) {
	fmt.Println("=== datacap status ===")
	if !st.Ready {
		fmt.Println(st.Notification.Text)
		fmt.Printf("Engine running: %t\n", st.EngineRunning)
		return
	}
	fmt.Println(st.Notification.Title)
	fmt.Println(st.Notification.Text)
	for _, line := range st.Notification.Lines {
		fmt.Printf("  %s\n", line)
	}
	if st.ExpiryTimeMs > 0 {
		fmt.Printf("  Expiry: %s\n", time.UnixMilli(st.ExpiryTimeMs).Format("2006-01-02 15:04"))
	}
	fmt.Printf("  Engine running: %t\n", st.EngineRunning)

	actions := make([]string, 0, len(st.Notification.Actions))
	for _, a := range st.Notification.Actions {
		actions = append(actions, a.Label+" ("+a.ID+")")
	}
	if len(actions) > 0 {
		fmt.Printf("Actions: %s\n", strings.Join(actions, ", "))
	}
}

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Expire the quota now and block all traffic",
	Run: func(cmd *cobra.Command, args []string) {
		runMessage("block", func(ctx context.Context, c *client.Client) (string, error) {
			return c.Block(ctx)
		})
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Reset usage and set the quota to expire in 24 hours",
	Run: func(cmd *cobra.Command, args []string) {
		runMessage("unblock", func(ctx context.Context, c *client.Client) (string, error) {
			return c.Unblock(ctx)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the usage counter without touching the quota",
	Run: func(cmd *cobra.Command, args []string) {
		runMessage("reset usage", func(ctx context.Context, c *client.Client) (string, error) {
			return c.ResetUsage(ctx)
		})
	},
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Restart the enforcement engine (boot completed hook)",
	Run: func(cmd *cobra.Command, args []string) {
		runMessage("restart engine", func(ctx context.Context, c *client.Client) (string, error) {
			return c.RestartEngine(ctx)
		})
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Print the raw status as JSON")
}
