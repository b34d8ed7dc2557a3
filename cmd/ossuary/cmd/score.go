package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/ossuary/ossuary/pkg/core/config"
	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/model"
)

var (
	scoreEcosystem string
	scoreCutoff    string
	scoreMaxAge    time.Duration
	scoreNoCache   bool
)

var scoreCmd = &cobra.Command{
	Use:   "score <package>",
	Short: "Score a single package's governance risk",
	Long: `Score computes or retrieves the governance-risk score for one
package (spec §6).

Examples:
  ossuary score left-pad --ecosystem npm
  ossuary score requests --ecosystem pypi --cutoff 2024-01-01
  ossuary score expressjs/express --ecosystem github --json`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreEcosystem, "ecosystem", "", "Package ecosystem: npm, pypi, cargo, rubygems, packagist, nuget, go, github (required)")
	scoreCmd.Flags().StringVar(&scoreCutoff, "cutoff", "", "Score as of this date (YYYY-MM-DD), default now")
	scoreCmd.Flags().DurationVar(&scoreMaxAge, "max-age", 0, "Accept a cached score up to this old (default: config's cache_days)")
	scoreCmd.Flags().BoolVar(&scoreNoCache, "no-cache", false, "Bypass the cache and force a live recomputation")
}

// scoreResponse is the CLI/API wire shape spec §6 fixes literally; it
// is kept distinct from model.Score (the internal, cache-persisted
// shape) so the external contract doesn't drift if internal fields are
// renamed.
type scoreResponse struct {
	Package         string           `json:"package"`
	Ecosystem       model.Ecosystem  `json:"ecosystem"`
	Score           int              `json:"score"`
	RiskLevel       model.Level      `json:"risk_level"`
	Semaphore       model.Semaphore  `json:"semaphore"`
	Explanation     string           `json:"explanation"`
	Breakdown       []breakdownEntry `json:"breakdown"`
	Recommendations []string         `json:"recommendations"`
	ComputedAt      time.Time        `json:"computed_at"`
	AsOf            *time.Time       `json:"as_of"`
	ModelVersion    string           `json:"model_version"`
	Partial         bool             `json:"partial,omitempty"`
}

type breakdownEntry struct {
	Tag      string `json:"tag"`
	Points   int    `json:"points"`
	Evidence string `json:"evidence"`
}

func toScoreResponse(ecosystem model.Ecosystem, name string, score model.Score) scoreResponse {
	breakdown := make([]breakdownEntry, 0, len(score.Breakdown))
	for _, c := range score.Breakdown {
		breakdown = append(breakdown, breakdownEntry{Tag: c.Tag, Points: c.Points, Evidence: c.Evidence})
	}
	return scoreResponse{
		Package:         name,
		Ecosystem:       ecosystem,
		Score:           score.Score,
		RiskLevel:       score.Level,
		Semaphore:       score.Semaphore,
		Explanation:     score.Explanation,
		Breakdown:       breakdown,
		Recommendations: score.Recommendations,
		ComputedAt:      score.ComputedAt,
		AsOf:            score.AsOf,
		ModelVersion:    score.ModelVersion,
		Partial:         score.Partial,
	}
}

func runScore(cmd *cobra.Command, args []string) error {
	name := args[0]

	if scoreEcosystem == "" {
		return ossuaryerrors.InputError("--ecosystem is required")
	}
	ecosystem := model.Ecosystem(strings.ToLower(scoreEcosystem))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer d.Close()

	var asOf *time.Time
	if scoreCutoff != "" {
		t, err := time.Parse("2006-01-02", scoreCutoff)
		if err != nil {
			return ossuaryerrors.InputError(fmt.Sprintf("invalid --cutoff date %q", scoreCutoff))
		}
		asOf = &t
	}

	maxAge := time.Duration(cfg.CacheDays) * 24 * time.Hour
	if scoreNoCache {
		maxAge = 0
	} else if scoreMaxAge > 0 {
		maxAge = scoreMaxAge
	}

	score, err := d.orch.Score(cmd.Context(), ecosystem, name, asOf, maxAge)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(toScoreResponse(ecosystem, name, score))
	}

	printScore(cmd, ecosystem, name, score)
	return nil
}

func printScore(cmd *cobra.Command, ecosystem model.Ecosystem, name string, score model.Score) {
	out := cmd.OutOrStdout()

	header := fmt.Sprintf("%s/%s", ecosystem, name)
	fmt.Fprintf(out, "%s %s\n", color.New(color.Bold).Sprint(header), string(score.Semaphore))
	fmt.Fprintf(out, "  score:  %d  (%s)\n", score.Score, score.Level)
	if score.Partial {
		fmt.Fprintln(out, "  "+color.YellowString("partial: degraded collection, treat with caution"))
	}
	fmt.Fprintf(out, "  %s\n\n", score.Explanation)

	table := tablewriter.NewWriter(out)
	table.Header([]string{"Factor", "Points", "Evidence"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})
	var rows [][]string
	for _, c := range score.Breakdown {
		rows = append(rows, []string{c.Tag, fmt.Sprintf("%+d", c.Points), c.Evidence})
	}
	if err := table.Bulk(rows); err == nil {
		table.Render()
	}

	if len(score.Recommendations) > 0 {
		fmt.Fprintln(out, "\nrecommendations:")
		for _, r := range score.Recommendations {
			fmt.Fprintf(out, "  - %s\n", r)
		}
	}

	if verbose {
		fmt.Fprintf(out, "\ncomputed_at: %s\n", score.ComputedAt.Format(time.RFC3339))
		fmt.Fprintf(out, "inputs_hash: %s\n", score.InputsHash)
		fmt.Fprintf(out, "model_version: %s\n", score.ModelVersion)
	}
}
