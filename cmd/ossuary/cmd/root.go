// Package cmd implements the ossuary CLI commands (spec §6).
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	noColor bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "ossuary",
	Short: "Governance-risk scoring for open-source packages",
	Long: `ossuary scores the governance risk of an open-source package by
combining its git commit history, forge metadata, and package-registry
signals into a single 0-100 score.

Quick Start:
  ossuary score left-pad --ecosystem npm    Score a single package
  ossuary score expressjs/express --ecosystem github
  ossuary movers                    Show the biggest recent score changes
  ossuary status                    Show cache freshness and config`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			os.Setenv("NO_COLOR", "1")
			color.NoColor = true
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(color.New(color.Bold).Sprint("ossuary"))
		fmt.Println("  governance-risk scoring for open-source packages")
		fmt.Println()
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")
}
