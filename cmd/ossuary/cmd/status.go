package cmd

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/ossuary/ossuary/pkg/core/config"
)

// freshnessBucket names where a cache entry's age falls relative to
// cfg.CacheDays (a SPEC_FULL.md §12 supplement: "fresh/stale/expired
// against OSSUARY_CACHE_DAYS"). An entry is fresh inside one cache-days
// window, stale inside two, and expired beyond that.
type freshnessBucket string

const (
	bucketFresh   freshnessBucket = "fresh"
	bucketStale   freshnessBucket = "stale"
	bucketExpired freshnessBucket = "expired"
)

func classifyFreshness(age, cacheDays time.Duration) freshnessBucket {
	switch {
	case age <= cacheDays:
		return bucketFresh
	case age <= 2*cacheDays:
		return bucketStale
	default:
		return bucketExpired
	}
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active configuration and cached-package freshness",
	Long: `Status prints the configuration ossuary resolved from environment
variables, an optional ossuary.yaml, and its built-in defaults, confirms
the score cache is reachable, and lists every cached package with its
freshness bucket (fresh/stale/expired) against OSSUARY_CACHE_DAYS.

Examples:
  ossuary status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "configuration:")
	fmt.Fprintf(out, "  database_url:      %s\n", cfg.DatabaseURL)
	fmt.Fprintf(out, "  repos_path:        %s\n", cfg.ReposPath)
	fmt.Fprintf(out, "  cache_days:        %d\n", cfg.CacheDays)
	fmt.Fprintf(out, "  github_token:      %s\n", tokenStatus(cfg.GitHubToken))
	fmt.Fprintf(out, "  rate_limits.github_rps:   %.1f\n", cfg.RateLimits.GitHubRPS)
	fmt.Fprintf(out, "  rate_limits.registry_rps: %.1f\n", cfg.RateLimits.RegistryRPS)
	fmt.Fprintf(out, "  rate_limits.cii_badge_rps: %.1f\n", cfg.RateLimits.CIIBadgeRPS)

	d, err := buildDeps(cfg)
	if err != nil {
		fmt.Fprintf(out, "\nscore cache: unreachable (%v)\n", err)
		return err
	}
	defer d.Close()
	fmt.Fprintln(out, "\nscore cache: reachable")

	entries, err := d.store.List(cmd.Context(), nil)
	if err != nil {
		return fmt.Errorf("listing cached packages: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "\nno cached packages")
		return nil
	}

	cacheDays := time.Duration(cfg.CacheDays) * 24 * time.Hour
	now := time.Now().UTC()

	fmt.Fprintln(out)
	table := tablewriter.NewWriter(out)
	table.Header([]string{"Package", "Score", "Level", "Computed", "Freshness"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	var rows [][]string
	counts := map[freshnessBucket]int{}
	for _, e := range entries {
		bucket := classifyFreshness(now.Sub(e.ComputedAt), cacheDays)
		counts[bucket]++
		rows = append(rows, []string{
			fmt.Sprintf("%s/%s", e.Ecosystem, e.Name),
			fmt.Sprintf("%d", e.Score.Score),
			string(e.Score.Level),
			e.ComputedAt.Format(time.RFC3339),
			string(bucket),
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d fresh, %d stale, %d expired\n", counts[bucketFresh], counts[bucketStale], counts[bucketExpired])

	return nil
}

func tokenStatus(token string) string {
	if token == "" {
		return "not set (unauthenticated, lower rate caps apply)"
	}
	return "set"
}
