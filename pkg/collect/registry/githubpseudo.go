package registry

import (
	"context"

	"github.com/ossuary/ossuary/pkg/model"
)

// GitHubPseudo accepts "owner/name" directly with no registry call
// (spec §4.3's github pseudo-ecosystem).
type GitHubPseudo struct{}

func NewGitHubPseudo() *GitHubPseudo { return &GitHubPseudo{} }

func (g *GitHubPseudo) Fetch(_ context.Context, name string) (model.RegistryRecord, error) {
	return model.RegistryRecord{RepoURL: "https://github.com/" + name}, nil
}
