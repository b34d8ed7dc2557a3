package scoring

// Config is the closed, immutable set of weights, thresholds, and model
// version the scoring engine (C8) applies. It replaces the loose
// dictionaries a dynamic-language implementation would pass around
// (spec §9): tests construct alternate Configs directly rather than
// mutating global state.
type Config struct {
	// ModelVersion is embedded in every Score's InputsHash. Bump it
	// whenever any weight or threshold below changes (spec §4.8).
	ModelVersion string

	// Maturity thresholds (spec §4.8 step 1).
	MatureMinAgeYears    float64
	MatureMinCommits     int
	MatureMaxSinceCommit float64 // years since last commit

	// Base-risk concentration bands (spec §4.8 step 2).
	BaseBands []ConcentrationBand

	// Activity modifier thresholds (spec §4.8 step 3), in commits/year.
	ActivityHighThreshold   int // >N -> ActivityHighDelta
	ActivityMidThreshold    int // [N, ActivityHighThreshold] -> ActivityMidDelta
	ActivityLowThreshold    int // [N, ActivityMidThreshold) -> 0; < N -> ActivityAbandonedDelta
	ActivityHighDelta       int
	ActivityMidDelta        int
	ActivityAbandonedDelta  int

	// Protective/risk factor deltas (spec §4.8 step 4).
	DeltaReputationT1          int
	DeltaReputationT2          int
	DeltaSponsors              int
	DeltaOrgSuccession         int
	OrgSuccessionMinAdmins     int
	DeltaMassiveVisibility     int
	MassiveVisibilityThreshold int
	DeltaHighVisibility        int
	HighVisibilityThreshold    int
	DeltaDistributedGovernance int
	DistributedGovernanceMax   float64 // concentration < this
	DeltaActiveCommunity       int
	ActiveCommunityMinUnique   int
	DeltaCIIBadge              int
	DeltaPositiveSentiment     int
	PositiveSentimentMin       float64
	DeltaFrustration           int
	DeltaNegativeSentiment     int
	NegativeSentimentMax       float64
	DeltaTakeover              int
	TakeoverShiftThreshold     float64 // proportion shift in percentage points
	TakeoverMaxHistoricalShare float64 // contributor must be below this historical share
}

// ConcentrationBand maps a half-open concentration range [Min, Max) to a
// base-risk score (spec §4.8 step 2 table).
type ConcentrationBand struct {
	Min   float64
	Max   float64 // use +Inf for the open-ended top band
	Base  int
}

// DefaultConfig returns the weights and thresholds documented in spec §4.8.
func DefaultConfig() Config {
	return Config{
		ModelVersion: "1.0.0",

		MatureMinAgeYears:    5,
		MatureMinCommits:     30,
		MatureMaxSinceCommit: 5,

		BaseBands: []ConcentrationBand{
			{Min: 0, Max: 30, Base: 20},
			{Min: 30, Max: 50, Base: 40},
			{Min: 50, Max: 70, Base: 60},
			{Min: 70, Max: 90, Base: 80},
			{Min: 90, Max: 100.0000001, Base: 100},
		},

		ActivityHighThreshold:  50,
		ActivityMidThreshold:   12,
		ActivityLowThreshold:   4,
		ActivityHighDelta:      -30,
		ActivityMidDelta:       -15,
		ActivityAbandonedDelta: 20,

		DeltaReputationT1:          -25,
		DeltaReputationT2:          -10,
		DeltaSponsors:              -15,
		DeltaOrgSuccession:         -15,
		OrgSuccessionMinAdmins:     3,
		DeltaMassiveVisibility:     -20,
		MassiveVisibilityThreshold: 50_000_000,
		DeltaHighVisibility:        -10,
		HighVisibilityThreshold:    10_000_000,
		DeltaDistributedGovernance: -10,
		DistributedGovernanceMax:   40,
		DeltaActiveCommunity:       -10,
		ActiveCommunityMinUnique:   20,
		DeltaCIIBadge:              -10,
		DeltaPositiveSentiment:     -5,
		PositiveSentimentMin:       0.3,
		DeltaFrustration:           20,
		DeltaNegativeSentiment:     10,
		NegativeSentimentMax:       -0.3,
		DeltaTakeover:              20,
		TakeoverShiftThreshold:     30,
		TakeoverMaxHistoricalShare: 5,
	}
}

// BaseForConcentration looks up the base-risk band for a concentration
// percentage (spec §4.8 step 2).
func (c Config) BaseForConcentration(concentration float64) int {
	for _, band := range c.BaseBands {
		if concentration >= band.Min && concentration < band.Max {
			return band.Base
		}
	}
	// Concentration >= 100 or outside all bands: worst case.
	return 100
}
