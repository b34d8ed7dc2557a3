// Package model holds the shared data types that flow through the
// collector pipeline and scoring engine: commits, contributors, package
// and repository identities, and the inputs/outputs of the scorer.
package model

import "time"

// Ecosystem is one of the closed set of package registries ossuary knows
// how to query, plus the "github" pseudo-ecosystem for scoring a bare
// repository directly.
type Ecosystem string

const (
	EcosystemNPM       Ecosystem = "npm"
	EcosystemPyPI      Ecosystem = "pypi"
	EcosystemCargo     Ecosystem = "cargo"
	EcosystemRubyGems  Ecosystem = "rubygems"
	EcosystemPackagist Ecosystem = "packagist"
	EcosystemNuGet     Ecosystem = "nuget"
	EcosystemGo        Ecosystem = "go"
	EcosystemGitHub    Ecosystem = "github"
)

// ValidEcosystems lists the closed dispatch set from spec §6.
var ValidEcosystems = []Ecosystem{
	EcosystemNPM, EcosystemPyPI, EcosystemCargo, EcosystemRubyGems,
	EcosystemPackagist, EcosystemNuGet, EcosystemGo, EcosystemGitHub,
}

// IsValid reports whether e is one of the closed ecosystem set.
func (e Ecosystem) IsValid() bool {
	for _, v := range ValidEcosystems {
		if v == e {
			return true
		}
	}
	return false
}

// PackageIdentity identifies a package within an ecosystem. Two
// identities with the same Ecosystem and Name are the same entity; for
// EcosystemGitHub, Name is "owner/name".
type PackageIdentity struct {
	Ecosystem Ecosystem
	Name      string
}

// RepositoryRef is a resolved upstream source repository.
type RepositoryRef struct {
	Host string // typically "github.com"
	Owner string
	Repo string
	URL  string
}

// Commit is a single authoritative commit record. Ordering key is
// AuthorTime; Commit is immutable once constructed.
type Commit struct {
	SHA         string
	AuthorName  string
	AuthorEmail string
	AuthorTime  time.Time
	Message     string
}

// Contributor is the canonicalized identity produced by the identity
// normalizer (C1) and populated by the contributor aggregator (C5).
type Contributor struct {
	ID                  string
	DisplayName         string
	Emails              []string
	Names               []string
	IsBot               bool
	FirstCommit         time.Time
	LastCommit          time.Time
	CommitCountLifetime int
	CommitCountRecent   int
}
