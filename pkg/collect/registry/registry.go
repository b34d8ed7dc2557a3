// Package registry implements the per-ecosystem registry collectors
// (C3, spec §4.3). Each adapter shares the same contract: fetch(name)
// -> RegistryRecord. Grounded stylistically on SharanRP-gh-notif's
// retryablehttp-backed client construction, adapted to the small
// per-ecosystem REST APIs this spec targets instead of a single GitHub
// client.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ossuary/ossuary/pkg/collect/httpx"
	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/model"
)

// Adapter fetches registry metadata for a single package name.
type Adapter interface {
	Fetch(ctx context.Context, name string) (model.RegistryRecord, error)
}

// client is the shared HTTP+rate-limit plumbing every adapter embeds.
// baseURL defaults to "https://<host>" and is overridable in tests so
// adapters can be pointed at an httptest.Server without reaching the
// network.
type client struct {
	http    *http.Client
	limiter *ratelimit.Registry
	host    string
	baseURL string
	log     *logging.Logger
}

func newClient(host string, limiter *ratelimit.Registry, log *logging.Logger) client {
	return client{
		http:    httpx.NewClient(log),
		limiter: limiter,
		host:    host,
		baseURL: "https://" + host,
		log:     log,
	}
}

func (c client) getJSON(ctx context.Context, url string, out any) (int, error) {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, httpx.DefaultCeiling)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, ossuaryerrors.TransientCollectFailureError("registry:build-request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, ossuaryerrors.TransientCollectFailureError("registry:get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, ossuaryerrors.TransientCollectFailureError(
			"registry:get", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("registry request failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, ossuaryerrors.TransientCollectFailureError("registry:read-body", err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return resp.StatusCode, fmt.Errorf("registry: decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Dispatch returns the Adapter for ecosystem, or an InputError if the
// ecosystem is unknown (spec §4.3's closed adapter set).
func Dispatch(ecosystem model.Ecosystem, limiter *ratelimit.Registry, log *logging.Logger) (Adapter, error) {
	switch ecosystem {
	case model.EcosystemNPM:
		return NewNPM(limiter, log), nil
	case model.EcosystemPyPI:
		return NewPyPI(limiter, log), nil
	case model.EcosystemCargo:
		return NewCargo(limiter, log), nil
	case model.EcosystemRubyGems:
		return NewRubyGems(limiter, log), nil
	case model.EcosystemPackagist:
		return NewPackagist(limiter, log), nil
	case model.EcosystemNuGet:
		return NewNuGet(limiter, log), nil
	case model.EcosystemGo:
		return NewGoProxy(limiter, log), nil
	case model.EcosystemGitHub:
		return NewGitHubPseudo(), nil
	default:
		return nil, ossuaryerrors.InputError(fmt.Sprintf("unknown ecosystem %q", ecosystem))
	}
}

// normalizeGitURL strips git+ prefixes and .git/ssh forms down to a
// plain https URL, as spec §4.3 requires for npm's "repository" field.
func normalizeGitURL(raw string) string {
	s := raw
	for _, prefix := range []string{"git+https://", "git+ssh://", "git+http://", "git://"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			s = "https://" + s[len(prefix):]
			break
		}
	}
	if len(s) > 4 && s[len(s)-4:] == ".git" {
		s = s[:len(s)-4]
	}
	// git@host:owner/repo -> https://host/owner/repo
	if len(s) > 4 && s[:4] == "git@" {
		rest := s[4:]
		for i := 0; i < len(rest); i++ {
			if rest[i] == ':' {
				s = "https://" + rest[:i] + "/" + rest[i+1:]
				break
			}
		}
	}
	return s
}
