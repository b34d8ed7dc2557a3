package scoring

import (
	"testing"
	"time"

	"github.com/ossuary/ossuary/pkg/model"
)

func baseInputs() model.ScoreInputs {
	return model.ScoreInputs{
		Ecosystem:              model.EcosystemNPM,
		Name:                   "left-pad",
		AsOf:                   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		RecentTotalCommits:     20,
		LifetimeTotalCommits:   200,
		RecentConcentration:    25,
		LifetimeConcentration:  30,
		CommitsPerYearRecent:   20,
		UniqueContributorsRecent: 5,
		RepoAgeYears:           6,
		LastCommit:             time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		ReputationTier:         model.ReputationUnknown,
	}
}

func TestCalculate_DeterministicForSameInputs(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()

	a := calc.Calculate(in)
	b := calc.Calculate(in)

	if a.Score != b.Score || a.InputsHash != b.InputsHash {
		t.Fatalf("Calculate() not deterministic: %+v vs %+v", a, b)
	}
}

func TestCalculate_ScoreIsClamped(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.RecentConcentration = 95
	in.LifetimeConcentration = 95
	in.FrustrationFlags = []string{"boycott", "burnout"}
	in.RecentTotalCommits = 0
	in.CommitsPerYearRecent = 0

	out := calc.Calculate(in)
	if out.Score < 0 || out.Score > 100 {
		t.Fatalf("Score = %d, want in [0,100]", out.Score)
	}
	if out.Level != model.LevelCritical {
		t.Errorf("Level = %v, want CRITICAL for a heavily concentrated, abandoned, frustrated project", out.Level)
	}
}

func TestCalculate_AbandonedNonMatureEdgeCase(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.RepoAgeYears = 1 // not mature
	in.RecentTotalCommits = 0
	in.CommitsPerYearRecent = 0

	out := calc.Calculate(in)
	// base=100 (forced), activity=+20 (abandoned) -> 120, clamped to 100.
	if out.Score != 100 {
		t.Errorf("Score = %d, want 100 for zero recent commits on a non-mature project", out.Score)
	}
}

func TestCalculate_MatureActivityModifierClampedNonNegative(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.RepoAgeYears = 10
	in.LifetimeTotalCommits = 500
	in.LastCommit = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	in.RecentTotalCommits = 1
	in.CommitsPerYearRecent = 1

	out := calc.Calculate(in)
	for _, b := range out.Breakdown {
		if b.Tag == "activity" && b.Points > 0 {
			t.Errorf("activity modifier = %d, want <=0 for a mature project", b.Points)
		}
	}
}

func TestCalculate_MassiveAndHighVisibilityAreExclusive(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	downloads := 60_000_000
	in.DownloadsPerWeek = &downloads

	out := calc.Calculate(in)
	var massive, high bool
	for _, b := range out.Breakdown {
		if b.Tag == "massive_visibility" {
			massive = true
		}
		if b.Tag == "high_visibility" {
			high = true
		}
	}
	if !massive || high {
		t.Errorf("expected massive_visibility only, got massive=%v high=%v", massive, high)
	}
}

func TestCalculate_TakeoverRequiresMature(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.RepoAgeYears = 1 // immature
	in.ProportionShifts = []model.ProportionShift{{ContributorID: "newcomer", ShareRecent: 50, ShareHistorical: 0}}

	out := calc.Calculate(in)
	for _, b := range out.Breakdown {
		if b.Tag == "takeover_risk" {
			t.Error("takeover_risk factor should not apply to a non-mature project")
		}
	}
}

func TestCalculate_TakeoverAppliesWhenMature(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.ProportionShifts = []model.ProportionShift{{ContributorID: "newcomer", ShareRecent: 50, ShareHistorical: 0}}

	out := calc.Calculate(in)
	var found bool
	for _, b := range out.Breakdown {
		if b.Tag == "takeover_risk" {
			found = true
		}
	}
	if !found {
		t.Error("expected takeover_risk factor for a mature project with a >30pp proportion shift")
	}
}

func TestCalculate_MissingDownloadsSuppressesVisibilityFactor(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.DownloadsPerWeek = nil

	out := calc.Calculate(in)
	for _, b := range out.Breakdown {
		if b.Tag == "massive_visibility" || b.Tag == "high_visibility" {
			t.Error("visibility factor should not apply when downloads are missing")
		}
	}
}

func TestCalculate_AsOfInFutureClampedToNow(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.AsOf = time.Now().UTC().AddDate(5, 0, 0)

	out := calc.Calculate(in)
	if out.AsOf == nil {
		t.Fatal("expected AsOf to be set")
	}
	if out.AsOf.After(time.Now().UTC().Add(time.Minute)) {
		t.Errorf("AsOf = %v, want clamped to ~now", out.AsOf)
	}
}

func TestLevelFor_BandBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  model.Level
	}{
		{0, model.LevelVeryLow},
		{19, model.LevelVeryLow},
		{20, model.LevelLow},
		{39, model.LevelLow},
		{40, model.LevelModerate},
		{59, model.LevelModerate},
		{60, model.LevelHigh},
		{79, model.LevelHigh},
		{80, model.LevelCritical},
		{100, model.LevelCritical},
	}
	for _, tt := range tests {
		level, _ := levelFor(tt.score)
		if level != tt.want {
			t.Errorf("levelFor(%d) = %v, want %v", tt.score, level, tt.want)
		}
	}
}

func TestCalculate_ConcentrationMonotonicity(t *testing.T) {
	calc := New(DefaultConfig())
	low := baseInputs()
	low.RecentConcentration = 15

	high := baseInputs()
	high.RecentConcentration = 95

	if calc.Calculate(high).Score < calc.Calculate(low).Score {
		t.Errorf("higher concentration scored lower: low=%d high=%d", calc.Calculate(low).Score, calc.Calculate(high).Score)
	}
}

func TestCalculate_DownloadsMonotonicity(t *testing.T) {
	calc := New(DefaultConfig())
	noDownloads := baseInputs()
	noDownloads.RecentConcentration = 60 // clear of the distributed-governance discount

	withDownloads := noDownloads
	dl := 60_000_000
	withDownloads.DownloadsPerWeek = &dl

	if calc.Calculate(withDownloads).Score > calc.Calculate(noDownloads).Score {
		t.Errorf("higher downloads scored higher: without=%d with=%d",
			calc.Calculate(noDownloads).Score, calc.Calculate(withDownloads).Score)
	}
}

func TestCalculate_ReputationTierMonotonicity(t *testing.T) {
	calc := New(DefaultConfig())
	unknown := baseInputs()
	unknown.RecentConcentration = 70 // clear of the distributed-governance discount
	unknown.ReputationTier = model.ReputationUnknown

	t2 := unknown
	t2.ReputationTier = model.ReputationT2

	t1 := unknown
	t1.ReputationTier = model.ReputationT1

	su, s2, s1 := calc.Calculate(unknown).Score, calc.Calculate(t2).Score, calc.Calculate(t1).Score
	if s2 > su {
		t.Errorf("T2 scored higher than UNKNOWN: unknown=%d t2=%d", su, s2)
	}
	if s1 > s2 {
		t.Errorf("T1 scored higher than T2: t1=%d t2=%d", s1, s2)
	}
}

func TestInputsHash_StableAcrossShiftOrder(t *testing.T) {
	calc := New(DefaultConfig())
	in := baseInputs()
	in.ProportionShifts = []model.ProportionShift{
		{ContributorID: "b", ShareRecent: 10, ShareHistorical: 1},
		{ContributorID: "a", ShareRecent: 5, ShareHistorical: 1},
	}
	reversed := in
	reversed.ProportionShifts = []model.ProportionShift{in.ProportionShifts[1], in.ProportionShifts[0]}

	h1 := calc.Calculate(in).InputsHash
	h2 := calc.Calculate(reversed).InputsHash
	if h1 != h2 {
		t.Error("InputsHash should not depend on ProportionShifts slice order")
	}
}
