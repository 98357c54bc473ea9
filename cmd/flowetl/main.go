package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:     "flowetl",
		Short:   "Run and inspect yaetl flows",
		Long:    `flowetl is a CLI tool for running demonstration yaetl flows and inspecting their stats.`,
		Version: version,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available demo flows",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("Available demo flows:")
		for _, d := range demos {
			fmt.Printf("  %-12s %s\n", d.name, d.description)
		}
	},
}
