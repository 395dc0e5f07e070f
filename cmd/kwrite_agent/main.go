// Package main provides the entry point for the Kwrite quality-analysis agent.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kwrite_agent",
	Short: "Korean business-writing quality analysis agent",
	Long:  "Kwrite analyzes Korean business writing for register, protocol, and policy compliance, and rewrites drafts deterministically to match organizational expectations. Run it as a CLI or as a REST API server.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
