package registry

import (
	"context"
	"fmt"

	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// GoProxy reads the module proxy's @latest endpoint for the latest
// version and its publish time. The repository URL is taken from the
// module path itself; pkg.go.dev is not queried, and no download counts
// or maintainers are reported.
type GoProxy struct {
	client
}

func NewGoProxy(limiter *ratelimit.Registry, log *logging.Logger) *GoProxy {
	return &GoProxy{client: newClient("proxy.golang.org", limiter, log)}
}

type goProxyLatest struct {
	Version string `json:"Version"`
	Time    string `json:"Time"`
}

func (g *GoProxy) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	var latest goProxyLatest
	status, err := g.getJSON(ctx, fmt.Sprintf("%s/%s/@latest", g.baseURL, escapeModulePath(name)), &latest)
	if err != nil {
		return model.RegistryRecord{}, err
	}
	if status == 404 {
		return model.RegistryRecord{}, nil
	}

	rec := model.RegistryRecord{
		LatestVersion: latest.Version,
		// A Go module path IS its repository import path in the common
		// case (github.com/owner/repo[/subpkg]); ossuary takes the module
		// root as the repo URL candidate and leaves forge resolution
		// (stripping subpackage suffixes) to the orchestrator.
		RepoURL: "https://" + name,
	}
	if latest.Time != "" {
		rec.PublishDates = []string{latest.Time}
	}
	return rec, nil
}

// escapeModulePath applies Go's module-path case-encoding (uppercase
// letters become "!" + lowercase) required by the proxy protocol.
func escapeModulePath(path string) string {
	var b []byte
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c >= 'A' && c <= 'Z' {
			b = append(b, '!', c+('a'-'A'))
		} else {
			b = append(b, c)
		}
	}
	return string(b)
}
