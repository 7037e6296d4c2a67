package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect datacap configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration resolved from the environment and .env files, with secrets masked.`,
	Run: func(cmd *cobra.Command, args []string) {
		shown := *cfg
		if shown.TelegramBotToken != "" {
			shown.TelegramBotToken = "[MASKED]"
		}
		if shown.DatabaseDriver == "postgres" {
			shown.DatabaseURL = "[MASKED]"
		}
		printJSON(shown)
	},
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("Failed to encode output: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
