package registry

import (
	"context"
	"fmt"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// Cargo fetches crates.io's JSON API (spec §4.3: "analogous" to npm/PyPI).
type Cargo struct {
	client
}

func NewCargo(limiter *ratelimit.Registry, log *logging.Logger) *Cargo {
	return &Cargo{client: newClient("crates.io", limiter, log)}
}

type cargoResponse struct {
	Crate struct {
		Repository  string `json:"repository"`
		Homepage    string `json:"homepage"`
		MaxVersion  string `json:"max_version"`
		Downloads   int    `json:"downloads"`
	} `json:"crate"`
	Versions []struct {
		CreatedAt string `json:"created_at"`
	} `json:"versions"`
}

func (c *Cargo) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	var resp cargoResponse
	status, err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/crates/%s", c.baseURL, name), &resp)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{LatestVersion: resp.Crate.MaxVersion}
	if resp.Crate.Repository != "" {
		rec.RepoURL = normalizeGitURL(resp.Crate.Repository)
	} else if resp.Crate.Homepage != "" {
		rec.RepoURL = resp.Crate.Homepage
	}
	for _, v := range resp.Versions {
		if v.CreatedAt != "" {
			rec.PublishDates = append(rec.PublishDates, v.CreatedAt)
		}
	}
	return rec, nil
}
