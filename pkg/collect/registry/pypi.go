package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// PyPI fetches the pypi.org JSON API. The repo-URL discovery priority
// order (Repository > Source* > Code > Homepage > Bug Tracker) is
// spec §4.3's literal requirement; preserved exactly here.
type PyPI struct {
	client
}

func NewPyPI(limiter *ratelimit.Registry, log *logging.Logger) *PyPI {
	return &PyPI{client: newClient("pypi.org", limiter, log)}
}

type pypiResponse struct {
	Info struct {
		Version     string            `json:"version"`
		ProjectURLs map[string]string `json:"project_urls"`
		HomePage    string            `json:"home_page"`
	} `json:"info"`
	Releases map[string][]struct {
		UploadTimeISO8601 string `json:"upload_time_iso_8601"`
	} `json:"releases"`
}

// pypiURLPriority is spec §4.3's exact ordering, matched case-insensitively.
var pypiURLPriority = []string{"repository", "source", "source code", "code", "homepage", "bug tracker"}

func (p *PyPI) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	var resp pypiResponse
	status, err := p.getJSON(ctx, fmt.Sprintf("%s/pypi/%s/json", p.baseURL, name), &resp)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{LatestVersion: resp.Info.Version}

	lower := make(map[string]string, len(resp.Info.ProjectURLs))
	for k, v := range resp.Info.ProjectURLs {
		lower[strings.ToLower(strings.TrimSpace(k))] = v
	}
	for _, label := range pypiURLPriority {
		if rec.RepoURL != "" {
			break
		}
		// "source*" matches any key beginning with "source"; pick the
		// lexicographically first match for determinism.
		if label == "source" {
			var matches []string
			for k := range lower {
				if strings.HasPrefix(k, "source") {
					matches = append(matches, k)
				}
			}
			if len(matches) > 0 {
				sort.Strings(matches)
				rec.RepoURL = lower[matches[0]]
			}
			continue
		}
		if url, ok := lower[label]; ok {
			rec.RepoURL = url
		}
	}
	if rec.RepoURL == "" && resp.Info.HomePage != "" {
		rec.RepoURL = resp.Info.HomePage
	}

	for _, releases := range resp.Releases {
		for _, r := range releases {
			if r.UploadTimeISO8601 != "" {
				rec.PublishDates = append(rec.PublishDates, r.UploadTimeISO8601)
			}
		}
	}
	sort.Strings(rec.PublishDates)

	return rec, nil
}
