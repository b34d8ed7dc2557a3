// Package resolve turns a registry-reported repository URL into the
// model.RepositoryRef the git and forge collectors key their mirrors
// and API calls on. Grounded on the normalization already applied by
// each pkg/collect/registry adapter (git+ssh/.git stripping); this
// package is the one place that turns the resulting https URL into
// host/owner/repo parts.
package resolve

import (
	"fmt"
	"net/url"
	"strings"

	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/model"
)

// RepositoryRef parses a normalized repository URL (as produced by the
// registry adapters) into a model.RepositoryRef. Only the first two
// path segments are kept as owner/repo; anything past that (a
// subdirectory link, a tree/blob path) is dropped.
func RepositoryRef(rawURL string) (model.RepositoryRef, error) {
	if rawURL == "" {
		return model.RepositoryRef{}, ossuaryerrors.UnresolvedRepoError("repo-url", "(none reported)")
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.RepositoryRef{}, ossuaryerrors.UnresolvedRepoError("repo-url", rawURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return model.RepositoryRef{}, ossuaryerrors.UnresolvedRepoError("repo-url", rawURL)
	}
	owner, repo := parts[0], strings.TrimSuffix(parts[1], ".git")

	return model.RepositoryRef{
		Host:  u.Host,
		Owner: owner,
		Repo:  repo,
		URL:   fmt.Sprintf("https://%s/%s/%s", u.Host, owner, repo),
	}, nil
}
