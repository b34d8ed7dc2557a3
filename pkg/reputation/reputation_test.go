package reputation

import (
	"testing"

	"github.com/ossuary/ossuary/pkg/model"
)

func TestScore_NilProfileIsUnknown(t *testing.T) {
	points, tier := Score(nil)
	if tier != model.ReputationUnknown {
		t.Errorf("tier = %v, want UNKNOWN", tier)
	}
	if points != 0 {
		t.Errorf("points = %d, want 0", points)
	}
}

func TestScore_TierBands(t *testing.T) {
	tests := []struct {
		name    string
		profile model.ReputationProfile
		want    model.ReputationTier
	}{
		{
			name: "T1 via tenure+stars+sponsors+top1000",
			profile: model.ReputationProfile{
				AccountAgeYears: 10, StarsTotal: 60_000, SponsorsCount: 15, Top1000MaintainerFlag: true,
			},
			want: model.ReputationT1,
		},
		{
			name:    "T2 via tenure+stars only",
			profile: model.ReputationProfile{AccountAgeYears: 6, StarsTotal: 60_000},
			want:    model.ReputationT2,
		},
		{
			name:    "UNKNOWN with no signals",
			profile: model.ReputationProfile{},
			want:    model.ReputationUnknown,
		},
		{
			name: "T1 via tenure+stars+sponsors+recognized org",
			profile: model.ReputationProfile{
				AccountAgeYears: 6, StarsTotal: 60_000, SponsorsCount: 12, RecognizedOrgMemberships: []string{"kubernetes"},
			},
			want: model.ReputationT1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Score(&tt.profile)
			if got != tt.want {
				t.Errorf("Score() tier = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRecognizedOrg(t *testing.T) {
	if !IsRecognizedOrg("kubernetes") {
		t.Error("expected kubernetes to be a recognized org")
	}
	if IsRecognizedOrg("some-random-startup") {
		t.Error("expected unknown org to not be recognized")
	}
}
