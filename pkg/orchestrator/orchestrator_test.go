package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ossuary/ossuary/pkg/cache"
	"github.com/ossuary/ossuary/pkg/collect/git"
	"github.com/ossuary/ossuary/pkg/collect/registry"
	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
	"github.com/ossuary/ossuary/pkg/scoring"
)

type stubGit struct {
	window git.Window
	err    error
	delay  time.Duration
}

func (s stubGit) Fetch(ref model.RepositoryRef, asOf time.Time) (git.Window, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.window, s.err
}

type stubForge struct {
	record model.ForgeRecord
	err    error
}

func (s stubForge) Fetch(ctx context.Context, ref model.RepositoryRef) (model.ForgeRecord, error) {
	return s.record, s.err
}

type stubAdapter struct {
	record model.RegistryRecord
	err    error
}

func (s stubAdapter) Fetch(ctx context.Context, name string) (model.RegistryRecord, error) {
	return s.record, s.err
}

// memCache is a minimal in-process cache.Cache for tests, grounded on
// the same Read/Write/Movers/Close contract pkg/cache/sqlite.Store
// implements against SQLite.
type memCache struct {
	mu      sync.Mutex
	scores  map[string]model.Score
	writes  int
}

func newMemCache() *memCache {
	return &memCache{scores: map[string]model.Score{}}
}

func memKey(eco model.Ecosystem, name, bucket string) string {
	return string(eco) + "|" + name + "|" + bucket
}

func (m *memCache) Read(ctx context.Context, eco model.Ecosystem, name, bucket string, maxAge time.Duration) (model.Score, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scores[memKey(eco, name, bucket)]
	if !ok || time.Since(s.ComputedAt) > maxAge {
		return model.Score{}, false, nil
	}
	return s, true, nil
}

func (m *memCache) Write(ctx context.Context, eco model.Ecosystem, name, bucket string, score model.Score) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores[memKey(eco, name, bucket)] = score
	m.writes++
	return nil
}

func (m *memCache) Movers(ctx context.Context, limit int, since time.Duration) ([]cache.Mover, error) {
	return nil, nil
}

func (m *memCache) Stale(ctx context.Context, eco *model.Ecosystem, maxAge time.Duration) ([]model.PackageIdentity, error) {
	return nil, nil
}

func (m *memCache) List(ctx context.Context, eco *model.Ecosystem) ([]model.CacheEntry, error) {
	return nil, nil
}

func (m *memCache) Close() error { return nil }

func testOrchestrator(g gitFetcher, f forgeFetcher, reg registry.Adapter, store cache.Cache) *Orchestrator {
	return &Orchestrator{
		git:          g,
		forge:        f,
		dispatch:     func(model.Ecosystem) (registry.Adapter, error) { return reg, nil },
		calc:         scoring.New(scoring.DefaultConfig()),
		store:        store,
		log:          logging.NewNop(),
		taskDeadline: time.Second,
	}
}

func sampleCommits(n int, start time.Time) []model.Commit {
	commits := make([]model.Commit, 0, n)
	for i := 0; i < n; i++ {
		commits = append(commits, model.Commit{
			SHA:         "deadbeef",
			AuthorName:  "maintainer",
			AuthorEmail: "maintainer@example.com",
			AuthorTime:  start.AddDate(0, 0, i),
			Message:     "fix: bug",
		})
	}
	return commits
}

func TestScore_CacheHitSkipsCollection(t *testing.T) {
	store := newMemCache()
	cached := model.Score{Score: 42, ComputedAt: time.Now().UTC(), ModelVersion: "v1"}
	store.scores[memKey(model.EcosystemNPM, "left-pad", "")] = cached

	gitCalled := false
	o := testOrchestrator(
		fetchFunc(func(model.RepositoryRef, time.Time) (git.Window, error) {
			gitCalled = true
			return git.Window{}, nil
		}),
		stubForge{},
		stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}},
		store,
	)

	got, err := o.Score(context.Background(), model.EcosystemNPM, "left-pad", nil, time.Hour)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got.Score != 42 {
		t.Errorf("Score = %d, want 42 (from cache)", got.Score)
	}
	if gitCalled {
		t.Error("git collector should not run on a cache hit")
	}
}

func TestScore_UnresolvedRepoPropagates(t *testing.T) {
	store := newMemCache()
	o := testOrchestrator(stubGit{}, stubForge{}, stubAdapter{record: model.RegistryRecord{RepoURL: ""}}, store)

	_, err := o.Score(context.Background(), model.EcosystemNPM, "ghost-pkg", nil, 0)
	if !ossuaryerrors.IsUnresolvedRepo(err) {
		t.Errorf("err = %v, want ErrUnresolvedRepo", err)
	}
}

func TestScore_DegradesWhenForgeFails(t *testing.T) {
	store := newMemCache()
	window := git.Window{Historical: sampleCommits(40, time.Now().AddDate(-6, 0, 0))}
	o := testOrchestrator(
		stubGit{window: window},
		stubForge{err: ossuaryerrors.TransientCollectFailureError("forge.repo", nil)},
		stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}},
		store,
	)

	got, err := o.Score(context.Background(), model.EcosystemNPM, "x", nil, 0)
	if err != nil {
		t.Fatalf("Score() error = %v, want a degraded score instead", err)
	}
	if !got.Partial {
		t.Error("Partial = false, want true when the forge branch failed")
	}
}

func TestScore_PropagatesWhenBothCollectorsFail(t *testing.T) {
	store := newMemCache()
	o := testOrchestrator(
		stubGit{err: ossuaryerrors.TransientCollectFailureError("git.fetch", nil)},
		stubForge{err: ossuaryerrors.TransientCollectFailureError("forge.repo", nil)},
		stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}},
		store,
	)

	_, err := o.Score(context.Background(), model.EcosystemNPM, "x", nil, 0)
	if err == nil {
		t.Fatal("expected an error when both collectors fail")
	}
}

func TestScore_WritesCacheOnSuccess(t *testing.T) {
	store := newMemCache()
	window := git.Window{Historical: sampleCommits(40, time.Now().AddDate(-6, 0, 0))}
	o := testOrchestrator(stubGit{window: window}, stubForge{}, stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}}, store)

	_, err := o.Score(context.Background(), model.EcosystemNPM, "x", nil, 0)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if store.writes != 1 {
		t.Errorf("cache writes = %d, want 1", store.writes)
	}
}

func TestScore_CancelledContextNeverWritesCache(t *testing.T) {
	store := newMemCache()
	window := git.Window{Historical: sampleCommits(40, time.Now().AddDate(-6, 0, 0))}
	o := testOrchestrator(stubGit{window: window, delay: 50 * time.Millisecond}, stubForge{}, stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}}, store)
	o.taskDeadline = 10 * time.Millisecond

	_, err := o.Score(context.Background(), model.EcosystemNPM, "x", nil, 0)
	if err == nil {
		t.Fatal("expected a deadline-exceeded error")
	}
	if store.writes != 0 {
		t.Errorf("cache writes = %d, want 0 after a cancelled task", store.writes)
	}
}

func TestScore_AnnotatesDegradedModeWhenTokenScopesWarn(t *testing.T) {
	store := newMemCache()
	window := git.Window{Historical: sampleCommits(40, time.Now().AddDate(-6, 0, 0))}
	o := testOrchestrator(stubGit{window: window}, stubForge{}, stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}}, store)
	o.checkTokenScopes = func(ctx context.Context) (string, error) {
		return "GITHUB_TOKEN not set; forge collection is running unauthenticated at the lower rate cap", nil
	}

	got, err := o.Score(context.Background(), model.EcosystemNPM, "x", nil, 0)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	var found bool
	for _, b := range got.Breakdown {
		if b.Tag == "degraded_mode_token" {
			found = true
			if b.Points != 0 {
				t.Errorf("degraded_mode_token Points = %d, want 0 (advisory only)", b.Points)
			}
		}
	}
	if !found {
		t.Error("expected a degraded_mode_token breakdown line when the token preflight warns")
	}
}

func TestScore_NoDegradedModeAnnotationWhenTokenSufficient(t *testing.T) {
	store := newMemCache()
	window := git.Window{Historical: sampleCommits(40, time.Now().AddDate(-6, 0, 0))}
	o := testOrchestrator(stubGit{window: window}, stubForge{}, stubAdapter{record: model.RegistryRecord{RepoURL: "https://github.com/x/y"}}, store)
	o.checkTokenScopes = func(ctx context.Context) (string, error) {
		return "", nil
	}

	got, err := o.Score(context.Background(), model.EcosystemNPM, "x", nil, 0)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	for _, b := range got.Breakdown {
		if b.Tag == "degraded_mode_token" {
			t.Error("unexpected degraded_mode_token breakdown line when the token preflight found no warning")
		}
	}
}

func TestScore_RejectsUnknownEcosystem(t *testing.T) {
	store := newMemCache()
	o := testOrchestrator(stubGit{}, stubForge{}, stubAdapter{}, store)

	_, err := o.Score(context.Background(), model.Ecosystem("cobol"), "x", nil, 0)
	if !ossuaryerrors.IsInputError(err) {
		t.Errorf("err = %v, want ErrInputError", err)
	}
}

// fetchFunc adapts a plain function to the gitFetcher interface.
type fetchFunc func(model.RepositoryRef, time.Time) (git.Window, error)

func (f fetchFunc) Fetch(ref model.RepositoryRef, asOf time.Time) (git.Window, error) {
	return f(ref, asOf)
}
