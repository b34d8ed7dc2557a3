package registry

import (
	"context"
	"fmt"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// RubyGems fetches rubygems.org's JSON API (spec §4.3).
type RubyGems struct {
	client
}

func NewRubyGems(limiter *ratelimit.Registry, log *logging.Logger) *RubyGems {
	return &RubyGems{client: newClient("rubygems.org", limiter, log)}
}

type rubygemsResponse struct {
	Version      string `json:"version"`
	SourceCodeURI string `json:"source_code_uri"`
	HomepageURI  string `json:"homepage_uri"`
	Authors      string `json:"authors"`
}

func (r *RubyGems) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	var resp rubygemsResponse
	status, err := r.getJSON(ctx, fmt.Sprintf("%s/api/v1/gems/%s.json", r.baseURL, name), &resp)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{LatestVersion: resp.Version}
	if resp.SourceCodeURI != "" {
		rec.RepoURL = resp.SourceCodeURI
	} else if resp.HomepageURI != "" {
		rec.RepoURL = resp.HomepageURI
	}
	if resp.Authors != "" {
		rec.Maintainers = []string{resp.Authors}
	}
	return rec, nil
}
