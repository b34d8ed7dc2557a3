package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/ossuary/ossuary/pkg/core/config"
)

var (
	moversLimit     int
	moversSinceDays int
)

var moversCmd = &cobra.Command{
	Use:   "movers",
	Short: "Show packages whose score changed the most recently",
	Long: `Movers lists the packages whose score_history shows the largest
absolute change between their two most recent computations within the
requested window (spec §6).

Examples:
  ossuary movers
  ossuary movers --limit 20 --since 30`,
	RunE: runMovers,
}

func init() {
	rootCmd.AddCommand(moversCmd)

	moversCmd.Flags().IntVar(&moversLimit, "limit", 10, "Maximum number of packages to show")
	moversCmd.Flags().IntVar(&moversSinceDays, "since", 7, "Only consider history within this many days")
}

func runMovers(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	since := time.Duration(moversSinceDays) * 24 * time.Hour
	movers, err := d.store.Movers(cmd.Context(), moversLimit, since)
	if err != nil {
		return fmt.Errorf("querying movers: %w", err)
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(movers)
	}

	out := cmd.OutOrStdout()
	if len(movers) == 0 {
		fmt.Fprintln(out, "no score movement recorded in that window")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Package", "From", "To", "Delta", "Computed"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	var rows [][]string
	for _, m := range movers {
		delta := fmt.Sprintf("%+d", m.Delta())
		if m.Delta() > 0 {
			delta = color.RedString(delta)
		} else if m.Delta() < 0 {
			delta = color.GreenString(delta)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s/%s", m.Ecosystem, m.Name),
			fmt.Sprintf("%d", m.From),
			fmt.Sprintf("%d", m.To),
			delta,
			m.ComputedAt.Format(time.RFC3339),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
