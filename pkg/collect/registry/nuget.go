package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// NuGet fetches the nuget.org flat-container index plus the registration
// blob for project/repository URL metadata (spec §4.3).
type NuGet struct {
	client
}

func NewNuGet(limiter *ratelimit.Registry, log *logging.Logger) *NuGet {
	return &NuGet{client: newClient("api.nuget.org", limiter, log)}
}

type nugetIndex struct {
	Versions []string `json:"versions"`
}

type nugetRegistration struct {
	Items []struct {
		Items []struct {
			CatalogEntry struct {
				Version     string `json:"version"`
				ProjectURL  string `json:"projectUrl"`
				Published   string `json:"published"`
			} `json:"catalogEntry"`
		} `json:"items"`
	} `json:"items"`
}

func (n *NuGet) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	lower := strings.ToLower(name)
	var idx nugetIndex
	status, err := n.getJSON(ctx, fmt.Sprintf("%s/v3-flatcontainer/%s/index.json", n.baseURL, lower), &idx)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{}
	if len(idx.Versions) > 0 {
		rec.LatestVersion = idx.Versions[len(idx.Versions)-1]
	}

	var reg nugetRegistration
	regURL := fmt.Sprintf("%s/v3/registration5-semver1/%s/index.json", n.baseURL, lower)
	if _, err := n.getJSON(ctx, regURL, &reg); err == nil {
		for _, page := range reg.Items {
			for _, item := range page.Items {
				if item.CatalogEntry.ProjectURL != "" && rec.RepoURL == "" {
					rec.RepoURL = item.CatalogEntry.ProjectURL
				}
				if item.CatalogEntry.Published != "" {
					rec.PublishDates = append(rec.PublishDates, item.CatalogEntry.Published)
				}
			}
		}
	}

	return rec, nil
}
