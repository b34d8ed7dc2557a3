package registry

import (
	"context"
	"fmt"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// Packagist fetches packagist.org's JSON API (spec §4.3).
type Packagist struct {
	client
}

func NewPackagist(limiter *ratelimit.Registry, log *logging.Logger) *Packagist {
	return &Packagist{client: newClient("repo.packagist.org", limiter, log)}
}

type packagistResponse struct {
	Package struct {
		Repository string `json:"repository"`
		Versions   map[string]struct {
			Version string `json:"version"`
			Time    string `json:"time"`
		} `json:"versions"`
	} `json:"package"`
}

func (p *Packagist) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	var resp packagistResponse
	status, err := p.getJSON(ctx, fmt.Sprintf("%s/p2/%s.json", p.baseURL, name), &resp)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{RepoURL: resp.Package.Repository}
	for tag, v := range resp.Package.Versions {
		if v.Time != "" {
			rec.PublishDates = append(rec.PublishDates, v.Time)
		}
		if len(tag) > 0 && tag[0] != 'd' { // skip "dev-*" branch aliases
			rec.LatestVersion = v.Version
		}
	}
	return rec, nil
}
