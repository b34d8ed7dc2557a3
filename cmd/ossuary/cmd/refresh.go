package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ossuary/ossuary/pkg/core/config"
	"github.com/ossuary/ossuary/pkg/model"
)

var (
	refreshMaxAgeDays int
	refreshEcosystem  string
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute every cached score older than max-age",
	Long: `Refresh finds every "current" cache entry (no explicit cutoff) whose
computed_at is older than --max-age days, optionally narrowed to one
ecosystem, and recomputes each one live, bypassing the cache read.

Examples:
  ossuary refresh --max-age 7
  ossuary refresh --max-age 1 --ecosystem npm`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)

	refreshCmd.Flags().IntVar(&refreshMaxAgeDays, "max-age", 7, "Refresh entries older than this many days")
	refreshCmd.Flags().StringVar(&refreshEcosystem, "ecosystem", "", "Limit refresh to one ecosystem")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	var eco *model.Ecosystem
	if refreshEcosystem != "" {
		e := model.Ecosystem(strings.ToLower(refreshEcosystem))
		eco = &e
	}

	maxAge := time.Duration(refreshMaxAgeDays) * 24 * time.Hour
	stale, err := d.store.Stale(cmd.Context(), eco, maxAge)
	if err != nil {
		return fmt.Errorf("finding stale entries: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(stale) == 0 {
		fmt.Fprintln(out, "nothing to refresh")
		return nil
	}

	var failures int
	for _, id := range stale {
		score, err := d.orch.Score(cmd.Context(), id.Ecosystem, id.Name, nil, 0)
		if err != nil {
			failures++
			fmt.Fprintf(out, "%s/%s: %v\n", id.Ecosystem, id.Name, err)
			continue
		}
		fmt.Fprintf(out, "%s/%s: %d (%s)\n", id.Ecosystem, id.Name, score.Score, score.Level)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d packages failed to refresh", failures, len(stale))
	}
	return nil
}
