package registry

import (
	"context"
	"fmt"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// NPM fetches package.json-shaped manifests from the npm registry plus
// weekly download counts (spec §4.3 npm key behaviors).
type NPM struct {
	client
}

func NewNPM(limiter *ratelimit.Registry, log *logging.Logger) *NPM {
	return &NPM{client: newClient("registry.npmjs.org", limiter, log)}
}

type npmManifest struct {
	Name       string `json:"name"`
	DistTags   struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Time       map[string]string `json:"time"`
	Repository struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"repository"`
	Maintainers []struct {
		Name string `json:"name"`
	} `json:"maintainers"`
}

type npmDownloads struct {
	Downloads int `json:"downloads"`
}

func (n *NPM) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	var manifest npmManifest
	status, err := n.getJSON(ctx, fmt.Sprintf("%s/%s", n.baseURL, name), &manifest)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{LatestVersion: manifest.DistTags.Latest}
	if manifest.Repository.URL != "" {
		rec.RepoURL = normalizeGitURL(manifest.Repository.URL)
	}
	for version, ts := range manifest.Time {
		if version == "created" || version == "modified" {
			continue
		}
		rec.PublishDates = append(rec.PublishDates, ts)
	}
	for _, m := range manifest.Maintainers {
		rec.Maintainers = append(rec.Maintainers, m.Name)
	}

	var downloads npmDownloads
	downloadsURL := fmt.Sprintf("https://api.npmjs.org/downloads/point/last-week/%s", name)
	if _, err := n.getJSON(ctx, downloadsURL, &downloads); err == nil {
		d := downloads.Downloads
		rec.DownloadsPerWeek = &d
	}

	return rec, nil
}
