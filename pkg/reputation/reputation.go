// Package reputation implements the reputation scorer (C7, spec §4.7):
// an additive signal table over a forge user's public profile, mapped
// to a {T1, T2, UNKNOWN} tier. Grounded on the teacher's
// pkg/core/scoring/calculator.go HealthScore pattern — a sum of
// weighted boolean indicators banded into a tier.
package reputation

import "github.com/ossuary/ossuary/pkg/model"

// recognizedOrgs is the frozen allow-list from spec §6. Membership in
// any of these earns the "Recognized org" signal regardless of the
// other indicators.
var recognizedOrgs = map[string]bool{
	"nodejs":            true,
	"openjs-foundation": true,
	"npm":               true,
	"expressjs":         true,
	"eslint":            true,
	"webpack":           true,
	"babel":             true,
	"python":            true,
	"psf":               true,
	"pypa":              true,
	"pallets":           true,
	"django":            true,
	"tiangolo":          true,
	"apache":            true,
	"cncf":              true,
	"linux-foundation":  true,
	"mozilla":           true,
	"rust-lang":         true,
	"golang":            true,
	"kubernetes":        true,
	"docker":            true,
	"hashicorp":         true,
}

// IsRecognizedOrg reports whether org (lowercased slug) is on the
// frozen recognized-organization list.
func IsRecognizedOrg(org string) bool {
	return recognizedOrgs[org]
}

const (
	pointsTenure      = 15
	pointsPortfolio   = 15
	pointsStars       = 15
	pointsSponsors    = 15
	pointsPackages    = 10
	pointsTop1000     = 15
	pointsRecognized  = 15

	tenureThresholdYears   = 5
	portfolioMinRepos      = 50
	portfolioMinStarsEach  = 10
	starsThreshold         = 50_000
	sponsorsThreshold      = 10
	packagesThreshold      = 20

	tierT1Threshold = 60
	tierT2Threshold = 30
)

// Score applies spec §4.7's additive table to profile and returns the
// raw point sum alongside the resulting tier. A nil profile (fetch
// failed) always yields UNKNOWN with zero points, per spec §4.8's
// "Missing reputation ... treated as UNKNOWN — no error."
func Score(profile *model.ReputationProfile) (points int, tier model.ReputationTier) {
	if profile == nil {
		return 0, model.ReputationUnknown
	}

	if profile.AccountAgeYears >= tenureThresholdYears {
		points += pointsTenure
	}
	if profile.OwnedReposWithTenStars >= portfolioMinRepos {
		points += pointsPortfolio
	}
	if profile.StarsTotal >= starsThreshold {
		points += pointsStars
	}
	if profile.SponsorsCount >= sponsorsThreshold {
		points += pointsSponsors
	}
	if profile.MaintainedPackagesCount >= packagesThreshold {
		points += pointsPackages
	}
	if profile.Top1000MaintainerFlag {
		points += pointsTop1000
	}
	if len(profile.RecognizedOrgMemberships) > 0 {
		points += pointsRecognized
	}

	switch {
	case points >= tierT1Threshold:
		tier = model.ReputationT1
	case points >= tierT2Threshold:
		tier = model.ReputationT2
	default:
		tier = model.ReputationUnknown
	}
	return points, tier
}
