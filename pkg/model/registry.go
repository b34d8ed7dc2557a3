package model

import "time"

// RegistryRecord is the normalized output of a package-registry collector
// (C3). Fields are optional because different ecosystems expose different
// subsets of this data; the scorer treats absence as factor-neutral, never
// as an error (§9 design note on duck-typed collector returns).
type RegistryRecord struct {
	RepoURL          string
	DownloadsPerWeek *int
	LatestVersion    string
	PublishDates     []string
	Maintainers      []string
}

// ForgeRepo carries repository-level forge metadata (§4.4).
type ForgeRepo struct {
	Stars            int
	DefaultBranch    string
	PushedAt         time.Time
	CreatedAt        time.Time
	Archived         bool
	HasSponsors      bool
	OpenIssuesCount  int
	ReleasesCount    int
}

// ForgeOwner carries owner-level forge metadata.
type ForgeOwner struct {
	Type        string // "User" or "Organization"
	AdminCount  *int   // nil for User owners
	MemberCount int
}

// ForgeContributor is one entry of the top-N contributor list (§4.4).
type ForgeContributor struct {
	Login         string
	Contributions int
}

// ForgeRecord is the normalized output of the forge collector (C4).
type ForgeRecord struct {
	Repo             ForgeRepo
	Owner            ForgeOwner
	Contributors     []ForgeContributor
	CIIBadge         bool
	IssueTitles      []string // recent issue/release titles for sentiment
	MaintainerProfile *ReputationProfile
	Partial          bool // true if this record was built from a degraded fetch
}

// ReputationProfile is the forge user profile consumed by the reputation
// scorer (C7).
type ReputationProfile struct {
	AccountAgeYears          float64
	OwnedRepos               int
	OwnedReposWithTenStars   int
	StarsTotal               int
	SponsorsCount            int
	RecognizedOrgMemberships []string
	MaintainedPackagesCount  int
	Top1000MaintainerFlag    bool
}
