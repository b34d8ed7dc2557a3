package scoring

import (
	"testing"
	"time"

	"github.com/ossuary/ossuary/pkg/model"
)

// These cases seed the suite with the end-to-end scenarios fixed for the
// scoring model: known real-world package histories with hand-derived
// ScoreInputs, so no network access is required to exercise them.

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return tm
}

func findContribution(breakdown []model.Contribution, tag string) (model.Contribution, bool) {
	for _, c := range breakdown {
		if c.Tag == tag {
			return c, true
		}
	}
	return model.Contribution{}, false
}

func TestCalculate_EventStreamPreIncident(t *testing.T) {
	calc := New(DefaultConfig())
	asOf := mustDate(t, "2018-09-01")
	in := model.ScoreInputs{
		Ecosystem:                model.EcosystemNPM,
		Name:                     "event-stream",
		AsOf:                     asOf,
		RecentTotalCommits:       4,
		CommitsPerYearRecent:     4,
		RecentConcentration:      75,
		UniqueContributorsRecent: 1,
		RepoAgeYears:             3, // mature=false
		LastCommit:               asOf.AddDate(0, -1, 0),
		ReputationTier:           model.ReputationUnknown,
		DownloadsPerWeek:         intPtr(2_000_000),
		FrustrationFlags:         []string{"free work"},
	}

	got := calc.Calculate(in)

	base, _ := findContribution(got.Breakdown, "base_risk")
	activity, _ := findContribution(got.Breakdown, "activity")
	if base.Points != 80 {
		t.Errorf("base_risk = %d, want 80", base.Points)
	}
	if activity.Points != 0 {
		t.Errorf("activity = %d, want 0", activity.Points)
	}
	if frustration, ok := findContribution(got.Breakdown, "frustration"); !ok || frustration.Points != 20 {
		t.Errorf("frustration = %+v, ok=%v, want +20", frustration, ok)
	}
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100", got.Score)
	}
	if got.Level != model.LevelCritical {
		t.Errorf("Level = %s, want CRITICAL", got.Level)
	}
}

func TestCalculate_ColorsPreSabotage(t *testing.T) {
	calc := New(DefaultConfig())
	asOf := mustDate(t, "2022-01-01")
	in := model.ScoreInputs{
		Ecosystem:            model.EcosystemNPM,
		Name:                 "colors",
		AsOf:                 asOf,
		RecentTotalCommits:   0,
		CommitsPerYearRecent: 0,
		RecentConcentration:  100,
		RepoAgeYears:         3, // mature=false
		LastCommit:           asOf.AddDate(-2, 0, 0),
		ReputationTier:       model.ReputationUnknown,
		DownloadsPerWeek:     intPtr(20_000_000),
		HasSponsors:          true,
		FrustrationFlags:     []string{"protest", "exploitation"},
	}

	got := calc.Calculate(in)

	base, _ := findContribution(got.Breakdown, "base_risk")
	activity, _ := findContribution(got.Breakdown, "activity")
	if base.Points != 100 {
		t.Errorf("base_risk = %d, want 100", base.Points)
	}
	if activity.Points != 20 {
		t.Errorf("activity = %d, want 20 (abandoned, non-mature)", activity.Points)
	}
	if sponsors, ok := findContribution(got.Breakdown, "sponsors"); !ok || sponsors.Points != -15 {
		t.Errorf("sponsors = %+v, ok=%v, want -15", sponsors, ok)
	}
	if hv, ok := findContribution(got.Breakdown, "high_visibility"); !ok || hv.Points != -10 {
		t.Errorf("high_visibility = %+v, ok=%v, want -10", hv, ok)
	}
	if frustration, ok := findContribution(got.Breakdown, "frustration"); !ok || frustration.Points != 20 {
		t.Errorf("frustration = %+v, ok=%v, want +20", frustration, ok)
	}
	if got.Score != 100 {
		t.Errorf("Score = %d, want 100 (clamped)", got.Score)
	}
	if got.Level != model.LevelCritical {
		t.Errorf("Level = %s, want CRITICAL", got.Level)
	}
}

func TestCalculate_ExpressCurrent(t *testing.T) {
	calc := New(DefaultConfig())
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := model.ScoreInputs{
		Ecosystem:                model.EcosystemNPM,
		Name:                     "express",
		AsOf:                     asOf,
		RecentTotalCommits:       120,
		CommitsPerYearRecent:     120,
		RecentConcentration:      20,
		UniqueContributorsRecent: 25, // active_community
		LifetimeTotalCommits:     6000,
		RepoAgeYears:             16, // mature=true
		LastCommit:               asOf.AddDate(0, -1, 0),
		ReputationTier:           model.ReputationT1,
		DownloadsPerWeek:         intPtr(64_000_000),
		IsOrganization:           true,
		OrgAdminCount:            intPtr(30),
	}

	got := calc.Calculate(in)

	base, _ := findContribution(got.Breakdown, "base_risk")
	activity, _ := findContribution(got.Breakdown, "activity")
	if base.Points != 20 {
		t.Errorf("base_risk = %d, want 20", base.Points)
	}
	if activity.Points != -30 {
		t.Errorf("activity = %d, want -30", activity.Points)
	}
	for tag, want := range map[string]int{
		"reputation_t1":          -25,
		"org_succession":         -15,
		"massive_visibility":     -20,
		"distributed_governance": -10,
		"active_community":       -10,
	} {
		c, ok := findContribution(got.Breakdown, tag)
		if !ok || c.Points != want {
			t.Errorf("%s = %+v, ok=%v, want %d", tag, c, ok, want)
		}
	}
	if got.Score != 0 {
		t.Errorf("Score = %d, want 0 (clamped)", got.Score)
	}
	if got.Level != model.LevelVeryLow {
		t.Errorf("Level = %s, want VERY_LOW", got.Level)
	}
}

func TestCalculate_ChalkCurrent(t *testing.T) {
	calc := New(DefaultConfig())
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := model.ScoreInputs{
		Ecosystem:            model.EcosystemNPM,
		Name:                 "chalk",
		AsOf:                 asOf,
		RecentTotalCommits:   5,
		CommitsPerYearRecent: 5,
		RecentConcentration:  80,
		LifetimeTotalCommits: 400,
		RepoAgeYears:         9, // mature=true
		LastCommit:           asOf.AddDate(0, -2, 0),
		ReputationTier:       model.ReputationT1,
		DownloadsPerWeek:     intPtr(50_000_001),
		HasSponsors:          true,
	}

	got := calc.Calculate(in)

	base, _ := findContribution(got.Breakdown, "base_risk")
	activity, _ := findContribution(got.Breakdown, "activity")
	if base.Points != 80 {
		t.Errorf("base_risk = %d, want 80", base.Points)
	}
	if activity.Points != 0 {
		t.Errorf("activity = %d, want 0", activity.Points)
	}
	for tag, want := range map[string]int{
		"reputation_t1":      -25,
		"sponsors":           -15,
		"massive_visibility": -20,
	} {
		c, ok := findContribution(got.Breakdown, tag)
		if !ok || c.Points != want {
			t.Errorf("%s = %+v, ok=%v, want %d", tag, c, ok, want)
		}
	}
	if got.Score != 20 {
		t.Errorf("Score = %d, want 20", got.Score)
	}
	if got.Level != model.LevelLow {
		t.Errorf("Level = %s, want LOW", got.Level)
	}
}

func TestCalculate_XzUtilsTakeover(t *testing.T) {
	calc := New(DefaultConfig())
	asOf := mustDate(t, "2023-03-01")
	in := model.ScoreInputs{
		Ecosystem:             model.EcosystemGitHub,
		Name:                  "tukaani-project/xz",
		AsOf:                  asOf,
		RecentTotalCommits:    20,
		CommitsPerYearRecent:  20,
		RecentConcentration:   31,
		LifetimeConcentration: 70,
		LifetimeTotalCommits:  1500,
		RepoAgeYears:          22,
		LastCommit:            asOf.AddDate(0, -1, 0), // mature=true
		ReputationTier:        model.ReputationUnknown,
		SentimentCompound:     -0.4,
		FrustrationFlags:      []string{"overwhelmed", "no time to review"},
		ProportionShifts: []model.ProportionShift{
			{ContributorID: "JiaTan", ShareRecent: 32.4, ShareHistorical: 2.0},
		},
	}

	got := calc.Calculate(in)

	base, _ := findContribution(got.Breakdown, "base_risk")
	if base.Points != 40 {
		t.Errorf("base_risk = %d, want 40 (recent concentration band)", base.Points)
	}
	activity, _ := findContribution(got.Breakdown, "activity")
	if activity.Points != -15 {
		t.Errorf("activity = %d, want -15", activity.Points)
	}
	takeover, ok := findContribution(got.Breakdown, "takeover_risk")
	if !ok {
		t.Fatal("takeover_risk factor missing from breakdown")
	}
	if takeover.Points != 20 {
		t.Errorf("takeover_risk = %d, want +20", takeover.Points)
	}
	if got.Score < 60 {
		t.Errorf("Score = %d, want >= 60 (HIGH or CRITICAL)", got.Score)
	}
	if got.Level != model.LevelHigh && got.Level != model.LevelCritical {
		t.Errorf("Level = %s, want HIGH or CRITICAL", got.Level)
	}
}

func TestCalculate_StableInfrastructureNoAbandonmentPenalty(t *testing.T) {
	calc := New(DefaultConfig())
	asOf := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := model.ScoreInputs{
		Ecosystem:             model.EcosystemGo,
		Name:                  "stable/infra",
		AsOf:                  asOf,
		RecentTotalCommits:    2,
		CommitsPerYearRecent:  2,
		LifetimeConcentration: 90,
		LifetimeTotalCommits:  5000,
		RepoAgeYears:          15,
		LastCommit:            asOf.AddDate(0, -3, 0), // mature=true
		ReputationTier:        model.ReputationUnknown,
		IsOrganization:        true,
		OrgAdminCount:         intPtr(10),
		DownloadsPerWeek:      intPtr(15_000_000),
	}

	got := calc.Calculate(in)

	base, _ := findContribution(got.Breakdown, "base_risk")
	if base.Points != 100 {
		t.Errorf("base_risk = %d, want 100 (lifetime concentration band)", base.Points)
	}
	activity, _ := findContribution(got.Breakdown, "activity")
	if activity.Points != 0 {
		t.Errorf("activity = %d, want 0: a mature project's low recent activity must not be "+
			"penalized as abandonment", activity.Points)
	}
	if _, ok := findContribution(got.Breakdown, "frustration"); ok {
		t.Error("frustration factor present, want none")
	}
	for tag, want := range map[string]int{
		"org_succession":  -15,
		"high_visibility": -10,
	} {
		c, ok := findContribution(got.Breakdown, tag)
		if !ok || c.Points != want {
			t.Errorf("%s = %+v, ok=%v, want %d", tag, c, ok, want)
		}
	}
	if got.Score != 75 {
		t.Errorf("Score = %d, want 75", got.Score)
	}
	if got.Level != model.LevelHigh {
		t.Errorf("Level = %s, want HIGH", got.Level)
	}
}

func intPtr(v int) *int { return &v }
