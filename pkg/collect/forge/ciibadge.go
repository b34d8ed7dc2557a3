package forge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/ossuary/ossuary/pkg/core/logging"
)

// ciiBadgeBaseURL is the CII Best Practices badge lookup API (spec
// §4.4: "looked up via the bestpractices.coreinfrastructure.org API
// keyed on the repo URL"). Overridable for tests.
var ciiBadgeBaseURL = "https://bestpractices.coreinfrastructure.org/projects.json"

type ciiProject struct {
	BadgeLevel string `json:"badge_level"`
}

// CheckCIIBadge reports whether repoURL has an earned CII Best
// Practices badge (badge_level != "in_progress" and non-empty). A
// lookup failure is treated as "no badge" rather than a collection
// error, since it is a secondary, low-weight signal (spec §4.8's
// "CII badge" protective factor).
func CheckCIIBadge(ctx context.Context, repoURL string, httpClient *http.Client, log *logging.Logger) (bool, error) {
	if repoURL == "" {
		return false, nil
	}

	q := url.Values{}
	q.Set("url", repoURL)
	reqURL := ciiBadgeBaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var projects []ciiProject
	if err := json.NewDecoder(resp.Body).Decode(&projects); err != nil {
		return false, err
	}
	for _, p := range projects {
		if p.BadgeLevel != "" && p.BadgeLevel != "in_progress" {
			return true, nil
		}
	}
	return false, nil
}
