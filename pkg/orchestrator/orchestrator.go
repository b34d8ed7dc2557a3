// Package orchestrator implements the core scoring function (C10,
// spec §4.10): cache read, repo-URL resolution, a parallel git+forge
// fan-out bounded by a per-package deadline, aggregation/sentiment/
// reputation, and a final score write. Grounded on the teacher's
// pkg/hydrate.Hydrate control flow (config-driven construction, a
// semaphore-bounded goroutine fan-out joined by a WaitGroup), adapted
// from "clone and scan N repos" to "collect two branches for one
// package".
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ossuary/ossuary/pkg/aggregate"
	"github.com/ossuary/ossuary/pkg/cache"
	"github.com/ossuary/ossuary/pkg/collect/forge"
	"github.com/ossuary/ossuary/pkg/collect/git"
	"github.com/ossuary/ossuary/pkg/collect/ratelimit"
	"github.com/ossuary/ossuary/pkg/collect/registry"
	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/identity"
	"github.com/ossuary/ossuary/pkg/model"
	"github.com/ossuary/ossuary/pkg/reputation"
	"github.com/ossuary/ossuary/pkg/resolve"
	"github.com/ossuary/ossuary/pkg/scoring"
	"github.com/ossuary/ossuary/pkg/sentiment"
)

// DefaultTaskDeadline is the per-package fan-out deadline spec §4.10
// names ("joined with a deadline, default 5 min per package").
const DefaultTaskDeadline = 5 * time.Minute

// DefaultMaxAge is the cache freshness window spec §4.10's
// score(..., max_age=7d) default names.
const DefaultMaxAge = 7 * 24 * time.Hour

const maxRecentCommitSubjects = 200

// gitFetcher and forgeFetcher narrow pkg/collect/git.Collector and
// pkg/collect/forge.Collector down to the one method the orchestrator
// calls, so tests can substitute stubs without a real mirror or a
// live GitHub API.
type gitFetcher interface {
	Fetch(ref model.RepositoryRef, asOf time.Time) (git.Window, error)
}

type forgeFetcher interface {
	Fetch(ctx context.Context, ref model.RepositoryRef) (model.ForgeRecord, error)
}

// registryDispatcher resolves an ecosystem to its Adapter. The zero
// value wraps registry.Dispatch; tests override it to avoid touching
// the network for registry lookups too.
type registryDispatcher func(ecosystem model.Ecosystem) (registry.Adapter, error)

// Orchestrator is the stateful wiring the score() function needs: one
// git collector, one forge collector, a registry dispatcher, the
// scoring engine, and a cache. All fields are safe for concurrent use
// across multiple Score calls.
type Orchestrator struct {
	git              gitFetcher
	forge            forgeFetcher
	dispatch         registryDispatcher
	calc             *scoring.Calculator
	store            cache.Cache
	log              *logging.Logger
	taskDeadline     time.Duration
	checkTokenScopes func(ctx context.Context) (string, error)
}

// New builds an Orchestrator from the collectors and cache a CLI/API
// entrypoint already constructed. registryLimiter is shared across
// every ecosystem adapter, matching the "one per-host HTTP token
// bucket" resource rule in spec §5.
func New(gitCollector *git.Collector, forgeCollector *forge.Collector, registryLimiter *ratelimit.Registry, calc *scoring.Calculator, store cache.Cache, log *logging.Logger) *Orchestrator {
	return &Orchestrator{
		git:   gitCollector,
		forge: forgeCollector,
		dispatch: func(eco model.Ecosystem) (registry.Adapter, error) {
			return registry.Dispatch(eco, registryLimiter, log)
		},
		calc:             calc,
		store:            store,
		log:              log,
		taskDeadline:     DefaultTaskDeadline,
		checkTokenScopes: forgeCollector.CheckTokenScopes,
	}
}

// Score implements spec §4.10's score(ecosystem, name, as_of?, max_age).
// asOf is nil for "score as of now"; maxAge <= 0 disables the cache
// read (a forced refresh) but the result is still written back.
func (o *Orchestrator) Score(ctx context.Context, ecosystem model.Ecosystem, name string, asOf *time.Time, maxAge time.Duration) (model.Score, error) {
	if !ecosystem.IsValid() {
		return model.Score{}, ossuaryerrors.InputError(fmt.Sprintf("unknown ecosystem %q", ecosystem))
	}
	if strings.TrimSpace(name) == "" {
		return model.Score{}, ossuaryerrors.InputError("package name must not be empty")
	}

	asOfBucket := ""
	effectiveAsOf := time.Now().UTC()
	if asOf != nil {
		effectiveAsOf = *asOf
		asOfBucket = asOf.Format("2006-01-02")
	}

	if maxAge > 0 {
		if cached, ok, err := o.store.Read(ctx, ecosystem, name, asOfBucket, maxAge); err != nil {
			o.log.WithError(err).Warn("orchestrator: cache read failed, falling through to live collection")
		} else if ok {
			return cached, nil
		}
	}

	adapter, err := o.dispatch(ecosystem)
	if err != nil {
		return model.Score{}, err
	}
	registryRecord, err := adapter.Fetch(ctx, name)
	if err != nil {
		return model.Score{}, fmt.Errorf("resolving %s/%s via registry: %w", ecosystem, name, err)
	}

	ref, err := resolve.RepositoryRef(registryRecord.RepoURL)
	if err != nil {
		return model.Score{}, err
	}

	taskCtx, cancel := context.WithTimeout(ctx, o.taskDeadline)
	defer cancel()

	window, forgeRecord, partial, err := o.collect(taskCtx, ref, effectiveAsOf)
	if err != nil {
		return model.Score{}, err
	}
	if taskCtx.Err() != nil {
		return model.Score{}, fmt.Errorf("orchestrator: package task deadline exceeded: %w", taskCtx.Err())
	}

	inputs := o.buildInputs(ecosystem, name, effectiveAsOf, registryRecord, window, forgeRecord, partial)
	score := o.calc.Calculate(inputs)
	if asOf == nil {
		score.AsOf = nil
	}
	o.annotateTokenScopeWarning(taskCtx, &score)

	if ctx.Err() != nil {
		// Cancellation invariant (spec §5): never write a partial score
		// once the caller has given up on the request.
		return model.Score{}, ctx.Err()
	}
	if err := o.store.Write(ctx, ecosystem, name, asOfBucket, score); err != nil {
		o.log.WithError(err).Warn("orchestrator: cache write failed")
	}

	return score, nil
}

// collect runs the git and forge fetches concurrently, each bounded by
// ctx's deadline. A branch that errors degrades the record to its zero
// value and sets partial=true rather than failing the whole task,
// unless both branches fail, in which case the first error propagates
// (spec §4.10: "otherwise propagates").
func (o *Orchestrator) collect(ctx context.Context, ref model.RepositoryRef, asOf time.Time) (git.Window, model.ForgeRecord, bool, error) {
	type gitResult struct {
		window git.Window
		err    error
	}
	type forgeResult struct {
		record model.ForgeRecord
		err    error
	}

	gitCh := make(chan gitResult, 1)
	forgeCh := make(chan forgeResult, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		win, err := o.git.Fetch(ref, asOf)
		gitCh <- gitResult{win, err}
	}()
	go func() {
		defer wg.Done()
		rec, err := o.forge.Fetch(ctx, ref)
		forgeCh <- forgeResult{rec, err}
	}()

	go func() {
		wg.Wait()
		close(gitCh)
		close(forgeCh)
	}()

	var gr gitResult
	var fr forgeResult
	gitDone, forgeDone := false, false
	for !gitDone || !forgeDone {
		select {
		case v, ok := <-gitCh:
			if ok {
				gr = v
			}
			gitDone = true
		case v, ok := <-forgeCh:
			if ok {
				fr = v
			}
			forgeDone = true
		case <-ctx.Done():
			return git.Window{}, model.ForgeRecord{}, true, nil
		}
	}

	partial := false
	if gr.err != nil && fr.err != nil {
		return git.Window{}, model.ForgeRecord{}, false, fmt.Errorf("both collectors failed: git: %v, forge: %w", gr.err, fr.err)
	}
	if gr.err != nil {
		o.log.WithError(gr.err).Warn("orchestrator: git collection degraded")
		partial = true
	}
	if fr.err != nil {
		o.log.WithError(fr.err).Warn("orchestrator: forge collection degraded")
		partial = true
	}
	if fr.record.Partial {
		partial = true
	}

	return gr.window, fr.record, partial, nil
}

// buildInputs assembles model.ScoreInputs from the three collector
// outputs, per spec §4.10 step 4 (aggregate, sentiment, reputation).
func (o *Orchestrator) buildInputs(ecosystem model.Ecosystem, name string, effectiveAsOf time.Time, registryRecord model.RegistryRecord, window git.Window, forgeRecord model.ForgeRecord, partial bool) model.ScoreInputs {
	repoAgeYears, lastCommit := repoAgeAndLastCommit(window.Historical, effectiveAsOf)
	mature := o.calc.IsMature(repoAgeYears, len(window.Historical), lastCommit, effectiveAsOf)

	resolver := identity.NewResolver()
	ascending := make([]model.Commit, len(window.Historical))
	copy(ascending, window.Historical)
	sort.Slice(ascending, func(i, j int) bool { return ascending[i].AuthorTime.Before(ascending[j].AuthorTime) })
	for _, c := range ascending {
		resolver.Observe(c.AuthorName, c.AuthorEmail)
	}
	resolver.Resolve()

	agg := aggregate.Aggregate(window.Historical, effectiveAsOf, resolver, mature)

	corpus := sentiment.BuildCorpus(commitSubjects(window.Recent), forgeRecord.IssueTitles)
	compound := sentiment.Compound(corpus)
	flags := sentiment.FrustrationFlags(corpus)

	_, tier := reputation.Score(forgeRecord.MaintainerProfile)

	downloadsMissing := registryRecord.DownloadsPerWeek == nil

	inputs := model.ScoreInputs{
		Ecosystem: ecosystem,
		Name:      name,
		AsOf:      effectiveAsOf,

		RecentContributors:       agg.RecentContributors,
		LifetimeContributors:     agg.LifetimeContributors,
		RecentTotalCommits:       agg.RecentTotalCommits,
		LifetimeTotalCommits:     agg.LifetimeTotalCommits,
		RecentConcentration:      agg.RecentConcentration,
		LifetimeConcentration:    agg.LifetimeConcentration,
		CommitsPerYearRecent:     agg.CommitsPerYearRecent,
		UniqueContributorsRecent: agg.UniqueContributorsRecent,

		RepoAgeYears: repoAgeYears,
		LastCommit:   lastCommit,

		DownloadsPerWeek: registryRecord.DownloadsPerWeek,

		SentimentCompound: compound,
		FrustrationFlags:  flags,

		ReputationTier: tier,
		OrgAdminCount:  forgeRecord.Owner.AdminCount,
		IsOrganization: forgeRecord.Owner.Type == "Organization",
		HasSponsors:    forgeRecord.Repo.HasSponsors,
		CIIBadge:       forgeRecord.CIIBadge,

		ProportionShifts: agg.ProportionShifts,

		Partial:          partial,
		DownloadsMissing: downloadsMissing,
	}
	return inputs
}

// annotateTokenScopeWarning appends a zero-point degraded-mode line to
// score.Breakdown when the forge collector's token preflight (spec
// §12's "token-permission preflight") finds GITHUB_TOKEN absent or
// missing public_repo scope. It never adjusts score.Score; a failed or
// inconclusive preflight is logged and otherwise ignored.
func (o *Orchestrator) annotateTokenScopeWarning(ctx context.Context, score *model.Score) {
	if o.checkTokenScopes == nil {
		return
	}
	warning, err := o.checkTokenScopes(ctx)
	if err != nil {
		o.log.WithError(err).Debug("orchestrator: token scope preflight failed, skipping degraded-mode annotation")
		return
	}
	if warning == "" {
		return
	}
	score.Breakdown = append(score.Breakdown, model.Contribution{
		Tag:      "degraded_mode_token",
		Points:   0,
		Evidence: warning,
	})
}

// repoAgeAndLastCommit derives repo_age_years and last_commit from the
// full commit history, since ossuary never checks out the tree and so
// has no forge-side "created_at" guarantee of matching the git history
// (a fork or import can have a much younger forge record).
func repoAgeAndLastCommit(historical []model.Commit, asOf time.Time) (ageYears float64, lastCommit time.Time) {
	if len(historical) == 0 {
		return 0, time.Time{}
	}
	earliest, latest := historical[0].AuthorTime, historical[0].AuthorTime
	for _, c := range historical {
		if c.AuthorTime.Before(earliest) {
			earliest = c.AuthorTime
		}
		if c.AuthorTime.After(latest) {
			latest = c.AuthorTime
		}
	}
	return asOf.Sub(earliest).Hours() / (365.25 * 24), latest
}

// commitSubjects extracts the first line of each commit message,
// capped at maxRecentCommitSubjects, for the sentiment corpus (spec
// §4.6).
func commitSubjects(commits []model.Commit) []string {
	n := len(commits)
	if n > maxRecentCommitSubjects {
		n = maxRecentCommitSubjects
	}
	subjects := make([]string, 0, n)
	for _, c := range commits[:n] {
		subject := c.Message
		if idx := strings.IndexByte(subject, '\n'); idx >= 0 {
			subject = subject[:idx]
		}
		subjects = append(subjects, subject)
	}
	return subjects
}
