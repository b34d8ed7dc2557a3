// Package scoring implements the scoring engine (C8, spec §4.8): the
// two-track maturity/base-risk/activity/protective-factor model that
// turns a ScoreInputs snapshot into a Score. Grounded on the teacher's
// pkg/core/scoring/calculator.go (Calculate/Clamp/ValueToGrade banding
// pattern) and pkg/analysis/scoring/types.go (Score/ComponentScore
// shape), generalized from a single weighted-average into the spec's
// additive base+activity+protective model.
package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ossuary/ossuary/pkg/model"
)

// Calculator evaluates ScoreInputs against a fixed Config.
type Calculator struct {
	cfg Config
}

// New builds a Calculator bound to cfg.
func New(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate runs the full spec §4.8 pipeline and returns a Score.
func (c *Calculator) Calculate(in model.ScoreInputs) model.Score {
	asOf := in.AsOf
	now := time.Now().UTC()
	if asOf.IsZero() || asOf.After(now) {
		asOf = now
	}

	mature := c.isMature(in, asOf)

	concentration, recentTotal := c.baseConcentration(in, mature)
	base := c.cfg.BaseForConcentration(concentration)

	activity := c.activityModifier(recentTotal, mature)

	var breakdown []model.Contribution
	breakdown = append(breakdown, model.Contribution{
		Tag:      "base_risk",
		Points:   base,
		Evidence: fmt.Sprintf("contributor concentration %.1f%%", concentration),
	})
	breakdown = append(breakdown, model.Contribution{
		Tag:      "activity",
		Points:   activity,
		Evidence: fmt.Sprintf("%d commits/year recent", recentTotal),
	})

	protective := c.protectiveFactors(in, mature, concentration)
	breakdown = append(breakdown, protective...)

	raw := base + activity
	for _, p := range protective {
		raw += p.Points
	}
	score := clamp(raw, 0, 100)

	level, semaphore := levelFor(score)
	explanation := explain(semaphore, level, score, breakdown)

	out := model.Score{
		Score:           score,
		Level:           level,
		Semaphore:       semaphore,
		Breakdown:       breakdown,
		Explanation:     explanation,
		Recommendations: recommendationsFor(level),
		InputsHash:      c.inputsHash(in, c.cfg.ModelVersion),
		ComputedAt:      now,
		ModelVersion:    c.cfg.ModelVersion,
		Partial:         in.Partial,
	}
	if !in.AsOf.IsZero() {
		asOfCopy := asOf
		out.AsOf = &asOfCopy
	}
	return out
}

// isMature implements spec §4.8 step 1.
func (c *Calculator) isMature(in model.ScoreInputs, asOf time.Time) bool {
	return c.IsMature(in.RepoAgeYears, in.LifetimeTotalCommits, in.LastCommit, asOf)
}

// IsMature exposes spec §4.8 step 1's maturity classification on its
// own, primitive terms. The contributor aggregator (C5) needs this
// same verdict before a full ScoreInputs exists (maturity gates
// whether it computes proportion shifts at all), so the orchestrator
// calls this rather than re-deriving the thresholds itself.
func (c *Calculator) IsMature(repoAgeYears float64, lifetimeCommits int, lastCommit, asOf time.Time) bool {
	if repoAgeYears < c.cfg.MatureMinAgeYears {
		return false
	}
	if lifetimeCommits < c.cfg.MatureMinCommits {
		return false
	}
	if lastCommit.IsZero() {
		return false
	}
	sinceLast := asOf.Sub(lastCommit).Hours() / (24 * 365.25)
	return sinceLast < c.cfg.MatureMaxSinceCommit
}

// baseConcentration implements spec §4.8 step 2, including the
// recent_total==0 non-mature edge case (concentration forced to 100).
func (c *Calculator) baseConcentration(in model.ScoreInputs, mature bool) (concentration float64, recentTotal int) {
	recentTotal = in.RecentTotalCommits

	if !mature {
		if recentTotal == 0 {
			return 100, 0
		}
		return in.RecentConcentration, recentTotal
	}

	if in.CommitsPerYearRecent >= c.cfg.ActivityLowThreshold {
		return in.RecentConcentration, recentTotal
	}
	if in.LifetimeTotalCommits == 0 {
		return 100, recentTotal
	}
	return in.LifetimeConcentration, recentTotal
}

// activityModifier implements spec §4.8 step 3, including the mature
// clamp-to-<=0 rule and the recent_total==0 "abandoned" edge case.
func (c *Calculator) activityModifier(recentTotal int, mature bool) int {
	var delta int
	switch {
	case recentTotal == 0:
		delta = c.cfg.ActivityAbandonedDelta
	case recentTotal > c.cfg.ActivityHighThreshold:
		delta = c.cfg.ActivityHighDelta
	case recentTotal >= c.cfg.ActivityMidThreshold:
		delta = c.cfg.ActivityMidDelta
	case recentTotal >= c.cfg.ActivityLowThreshold:
		delta = 0
	default:
		delta = c.cfg.ActivityAbandonedDelta
	}
	if mature && delta > 0 {
		return 0
	}
	return delta
}

// protectiveFactors implements spec §4.8 step 4. Order in the returned
// slice does not affect the score (pure sum) but is kept stable for
// deterministic breakdown output.
func (c *Calculator) protectiveFactors(in model.ScoreInputs, mature bool, concentration float64) []model.Contribution {
	var out []model.Contribution

	switch in.ReputationTier {
	case model.ReputationT1:
		out = append(out, model.Contribution{Tag: "reputation_t1", Points: c.cfg.DeltaReputationT1, Evidence: "maintainer reputation tier T1"})
	case model.ReputationT2:
		out = append(out, model.Contribution{Tag: "reputation_t2", Points: c.cfg.DeltaReputationT2, Evidence: "maintainer reputation tier T2"})
	}

	if in.HasSponsors {
		out = append(out, model.Contribution{Tag: "sponsors", Points: c.cfg.DeltaSponsors, Evidence: "GitHub Sponsors enabled"})
	}

	if in.IsOrganization && in.OrgAdminCount != nil && *in.OrgAdminCount >= c.cfg.OrgSuccessionMinAdmins {
		out = append(out, model.Contribution{Tag: "org_succession", Points: c.cfg.DeltaOrgSuccession, Evidence: fmt.Sprintf("organization with %d admins", *in.OrgAdminCount)})
	}

	if in.DownloadsPerWeek != nil {
		dl := *in.DownloadsPerWeek
		switch {
		case dl > c.cfg.MassiveVisibilityThreshold:
			out = append(out, model.Contribution{Tag: "massive_visibility", Points: c.cfg.DeltaMassiveVisibility, Evidence: fmt.Sprintf("%d downloads/week", dl)})
		case dl > c.cfg.HighVisibilityThreshold:
			out = append(out, model.Contribution{Tag: "high_visibility", Points: c.cfg.DeltaHighVisibility, Evidence: fmt.Sprintf("%d downloads/week", dl)})
		}
	}

	if concentration < c.cfg.DistributedGovernanceMax {
		out = append(out, model.Contribution{Tag: "distributed_governance", Points: c.cfg.DeltaDistributedGovernance, Evidence: fmt.Sprintf("contributor concentration %.1f%%", concentration)})
	}

	if in.UniqueContributorsRecent > c.cfg.ActiveCommunityMinUnique {
		out = append(out, model.Contribution{Tag: "active_community", Points: c.cfg.DeltaActiveCommunity, Evidence: fmt.Sprintf("%d unique recent contributors", in.UniqueContributorsRecent)})
	}

	if in.CIIBadge {
		out = append(out, model.Contribution{Tag: "cii_badge", Points: c.cfg.DeltaCIIBadge, Evidence: "CII Best Practices badge"})
	}

	if in.SentimentCompound > c.cfg.PositiveSentimentMin {
		out = append(out, model.Contribution{Tag: "positive_sentiment", Points: c.cfg.DeltaPositiveSentiment, Evidence: fmt.Sprintf("sentiment compound %.2f", in.SentimentCompound)})
	}

	if len(in.FrustrationFlags) > 0 {
		out = append(out, model.Contribution{Tag: "frustration", Points: c.cfg.DeltaFrustration, Evidence: fmt.Sprintf("flagged phrases: %s", strings.Join(in.FrustrationFlags, ", "))})
	}

	if in.SentimentCompound < c.cfg.NegativeSentimentMax {
		out = append(out, model.Contribution{Tag: "negative_sentiment", Points: c.cfg.DeltaNegativeSentiment, Evidence: fmt.Sprintf("sentiment compound %.2f", in.SentimentCompound)})
	}

	if mature {
		if shift, ok := maxShift(in.ProportionShifts); ok && shift.Delta() > c.cfg.TakeoverShiftThreshold {
			out = append(out, model.Contribution{Tag: "takeover_risk", Points: c.cfg.DeltaTakeover, Evidence: fmt.Sprintf("contributor %s gained %.1fpp share", shift.ContributorID, shift.Delta())})
		}
	}

	return out
}

func maxShift(shifts []model.ProportionShift) (model.ProportionShift, bool) {
	if len(shifts) == 0 {
		return model.ProportionShift{}, false
	}
	best := shifts[0]
	for _, s := range shifts[1:] {
		if s.Delta() > best.Delta() {
			best = s
		}
	}
	return best, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// levelFor maps a clamped score to its level/semaphore band (spec §3).
func levelFor(score int) (model.Level, model.Semaphore) {
	switch {
	case score >= 80:
		return model.LevelCritical, model.SemaphoreRed
	case score >= 60:
		return model.LevelHigh, model.SemaphoreOrange
	case score >= 40:
		return model.LevelModerate, model.SemaphoreYellow
	case score >= 20:
		return model.LevelLow, model.SemaphoreGreen
	default:
		return model.LevelVeryLow, model.SemaphoreGreen
	}
}

// explain assembles spec §4.8 step 6's deterministic explanation
// sentence: the semaphore/level/score header, then the single largest
// positive contribution and up to two largest negative contributions.
func explain(semaphore model.Semaphore, level model.Level, score int, breakdown []model.Contribution) string {
	var positives, negatives []model.Contribution
	for _, b := range breakdown {
		if b.Points > 0 {
			positives = append(positives, b)
		} else if b.Points < 0 {
			negatives = append(negatives, b)
		}
	}
	sort.Slice(positives, func(i, j int) bool { return positives[i].Points > positives[j].Points })
	sort.Slice(negatives, func(i, j int) bool { return negatives[i].Points < negatives[j].Points })

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%d). ", semaphore, level, score)
	if len(positives) > 0 {
		fmt.Fprintf(&b, "%s (+%d). ", positives[0].Evidence, positives[0].Points)
	}
	for i, n := range negatives {
		if i >= 2 {
			break
		}
		fmt.Fprintf(&b, "%s (%d). ", n.Evidence, n.Points)
	}
	return strings.TrimSpace(b.String())
}

// recommendationTable is the static per-level lookup spec §4.8 step 6
// requires.
var recommendationTable = map[model.Level][]string{
	model.LevelVeryLow: {
		"No action needed; continue routine dependency monitoring.",
	},
	model.LevelLow: {
		"Revisit at the next scheduled audit; no immediate action required.",
	},
	model.LevelModerate: {
		"Review recent commit activity and contributor diversity before upgrading.",
		"Check for an active maintenance roadmap or recent releases.",
	},
	model.LevelHigh: {
		"Pin to a known-good version and monitor for maintainer changes.",
		"Evaluate alternative packages with broader maintainer bases.",
		"Review issue tracker for unaddressed security reports.",
	},
	model.LevelCritical: {
		"Treat as a supply-chain risk: audit the dependency tree for alternatives.",
		"Require manual review before upgrading past the currently vetted version.",
		"Monitor for a sudden change in maintainers or release cadence.",
	},
}

func recommendationsFor(level model.Level) []string {
	return append([]string(nil), recommendationTable[level]...)
}

// inputsHash computes a stable hash of the scoring-relevant fields of
// in plus the model version, used for cache idempotency checks (spec
// §3's inputs_hash). Field order is fixed so the same inputs always
// hash identically regardless of map iteration order elsewhere in the
// pipeline.
func (c *Calculator) inputsHash(in model.ScoreInputs, modelVersion string) string {
	h := sha256.New()
	fmt.Fprintf(h, "v=%s\n", modelVersion)
	fmt.Fprintf(h, "ecosystem=%s\nname=%s\nas_of=%s\n", in.Ecosystem, in.Name, in.AsOf.UTC().Format(time.RFC3339))
	fmt.Fprintf(h, "recent_total=%d\nlifetime_total=%d\n", in.RecentTotalCommits, in.LifetimeTotalCommits)
	fmt.Fprintf(h, "recent_conc=%.4f\nlifetime_conc=%.4f\n", in.RecentConcentration, in.LifetimeConcentration)
	fmt.Fprintf(h, "commits_per_year=%d\nunique_recent=%d\n", in.CommitsPerYearRecent, in.UniqueContributorsRecent)
	fmt.Fprintf(h, "repo_age=%.4f\nlast_commit=%s\n", in.RepoAgeYears, in.LastCommit.UTC().Format(time.RFC3339))
	if in.DownloadsPerWeek != nil {
		fmt.Fprintf(h, "downloads=%d\n", *in.DownloadsPerWeek)
	} else {
		fmt.Fprintf(h, "downloads=nil\n")
	}
	fmt.Fprintf(h, "sentiment=%.4f\nfrustration=%s\n", in.SentimentCompound, strings.Join(in.FrustrationFlags, "|"))
	fmt.Fprintf(h, "reputation=%s\nhas_sponsors=%t\nis_org=%t\ncii=%t\n", in.ReputationTier, in.HasSponsors, in.IsOrganization, in.CIIBadge)
	if in.OrgAdminCount != nil {
		fmt.Fprintf(h, "admin_count=%d\n", *in.OrgAdminCount)
	} else {
		fmt.Fprintf(h, "admin_count=nil\n")
	}
	shifts := append([]model.ProportionShift(nil), in.ProportionShifts...)
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].ContributorID < shifts[j].ContributorID })
	for _, s := range shifts {
		fmt.Fprintf(h, "shift=%s:%.4f\n", s.ContributorID, s.Delta())
	}
	return hex.EncodeToString(h.Sum(nil))
}
