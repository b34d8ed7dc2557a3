package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ossuary/ossuary/pkg/cache/sqlite"
	"github.com/ossuary/ossuary/pkg/core/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and migrate the score cache database",
	Long: `Init opens (creating if necessary) the score cache database at the
configured database_url and runs any pending schema migrations.

This is optional: every command that touches the cache calls the same
migration step on startup. Run it explicitly to provision the database
ahead of time, e.g. in a deploy step.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.New(dbPathFromURL(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("initializing score cache: %w", err)
	}
	defer store.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "score cache ready at %s\n", cfg.DatabaseURL)
	return nil
}
