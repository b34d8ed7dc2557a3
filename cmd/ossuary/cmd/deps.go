package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ossuary/ossuary/pkg/cache"
	"github.com/ossuary/ossuary/pkg/cache/sqlite"
	"github.com/ossuary/ossuary/pkg/collect/forge"
	"github.com/ossuary/ossuary/pkg/collect/git"
	"github.com/ossuary/ossuary/pkg/collect/httpx"
	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/core/config"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/orchestrator"
	"github.com/ossuary/ossuary/pkg/scoring"
)

const (
	githubAPIHost = "api.github.com"
	ciiBadgeHost  = "bestpractices.coreinfrastructure.org"
)

// deps bundles the long-lived collaborators every subcommand needs:
// an orchestrator wired from config, plus the cache store it writes
// through (held separately so commands can Close it on exit).
type deps struct {
	orch  *orchestrator.Orchestrator
	store cache.Cache
	log   *logging.Logger
}

func buildDeps(cfg config.Config) (*deps, error) {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	log := logging.New(os.Stderr, level)

	store, err := sqlite.New(dbPathFromURL(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("opening score cache: %w", err)
	}

	gitCollector := git.NewCollector(cfg.ReposPath, log)

	httpClient := httpx.NewClient(log)
	forgeCollector := forge.New(cfg.GitHubToken, httpClient, log)

	registryLimiter := ratelimit.NewRegistry(cfg.RateLimits.RegistryRPS).
		WithHost(githubAPIHost, cfg.RateLimits.GitHubRPS).
		WithHost(ciiBadgeHost, cfg.RateLimits.CIIBadgeRPS)

	calc := scoring.New(cfg.Scoring)

	orch := orchestrator.New(gitCollector, forgeCollector, registryLimiter, calc, store, log)

	return &deps{orch: orch, store: store, log: log}, nil
}

func (d *deps) Close() error {
	return d.store.Close()
}

// dbPathFromURL strips ossuary's accepted "sqlite://" scheme, since
// modernc.org/sqlite (via pkg/cache/sqlite) takes a bare filesystem
// path, not a URL.
func dbPathFromURL(raw string) string {
	return strings.TrimPrefix(raw, "sqlite://")
}
