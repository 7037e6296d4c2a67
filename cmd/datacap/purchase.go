package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List purchasable data packages",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := timeoutContext()
		defer cancel()

		pkgs, err := newClient().Packages(ctx)
		if err != nil {
			logger.Error("Failed to list packages: %v", err)
			os.Exit(1)
		}

		fmt.Printf("%-3s %-12s %6s %6s  %s\n", "ID", "NAME", "DATA", "DAYS", "USSD")
		for _, p := range pkgs {
			fmt.Printf("%-3d %-12s %4dGB %6d  %s\n", p.ID, p.Name, p.DataGB, p.ValidityDays, p.USSDCode)
		}
	},
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase <package-id>",
	Short: "Buy a data package over USSD and renew the quota",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			logger.Error("Invalid package id %q", args[0])
			os.Exit(1)
		}

		// The daemon waits for the carrier before answering
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		s := spinner.New(spinner.CharSets[14], 120*time.Millisecond)
		s.Suffix = " Dialing USSD code..."
		s.Start()
		result, err := newClient().Purchase(ctx, id)
		s.Stop()

		if err != nil {
			logger.Error("Purchase failed: %v", err)
			os.Exit(1)
		}

		logger.Info("%s", result.Message)
		if result.Reply != "" {
			logger.Info("Carrier reply: %s", result.Reply)
		}
		logger.Info("New quota: %d GB until %s", result.Package.DataGB,
			time.UnixMilli(result.ExpiryTimeMs).Format("2006-01-02 15:04"))
	},
}
