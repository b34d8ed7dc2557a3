// Package git implements the git collector (C2, spec §4.2): a lazy
// enumeration of commits from an upstream repository, backed by a bare,
// blobless local mirror. The mirror clone and every subsequent fetch
// apply packp.FilterBlobNone(), go-git's partial-clone blob filter, so
// the local copy never carries file contents, only commit/tree/tag
// objects. Grounded on the go-git usage in the teacher's
// pkg/scanners/code-ownership and pkg/scanners/code-security scanners
// (git.PlainOpen / repo.Log / object.Commit.ForEach), adapted to clone
// remote repositories instead of opening a checked-out working tree.
package git

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp"
	"github.com/go-git/go-git/v5/plumbing/transport"

	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// staleAfter is spec §4.2's "a fetch that has not succeeded within 24
// hours triggers a re-fetch on next request".
const staleAfter = 24 * time.Hour

// Collector clones and incrementally fetches upstream repositories into
// a local mirror directory, then walks their history.
type Collector struct {
	reposPath string
	log       *logging.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex // per-repo serialization
}

// NewCollector returns a Collector that mirrors repositories under
// reposPath (spec §4.2's "configurable repos/ directory").
func NewCollector(reposPath string, log *logging.Logger) *Collector {
	return &Collector{
		reposPath: reposPath,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (c *Collector) lockFor(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[key]
	if !ok {
		l = &sync.Mutex{}
		c.locks[key] = l
	}
	return l
}

func (c *Collector) mirrorPath(ref model.RepositoryRef) string {
	return filepath.Join(c.reposPath, ref.Host, ref.Owner, ref.Repo+".git")
}

// Window is the result of a single commit walk, split into the two time
// views the contributor aggregator needs (spec §4.2 "the collector MUST
// produce both from a single walk").
type Window struct {
	Recent     []model.Commit // author_time within 12 months before AsOf
	Historical []model.Commit // all commits with author_time <= AsOf
}

// Fetch ensures a local mirror of ref exists and is fresh, then walks
// its default-branch history, honoring asOf (zero value means now).
func (c *Collector) Fetch(ref model.RepositoryRef, asOf time.Time) (Window, error) {
	key := ref.Host + "/" + ref.Owner + "/" + ref.Repo
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if asOf.IsZero() {
		asOf = time.Now()
	}

	path := c.mirrorPath(ref)
	repo, err := c.ensureMirror(ref, path)
	if err != nil {
		return Window{}, err
	}

	return c.walk(repo, asOf)
}

func (c *Collector) ensureMirror(ref model.RepositoryRef, path string) (*git.Repository, error) {
	log := c.log.WithRepo(ref.Owner + "/" + ref.Repo)

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return nil, ossuaryerrors.TransientCollectFailureError("git:open", err)
		}
		if c.isFresh(path) {
			return repo, nil
		}
		log.Debug("mirror stale, refetching")
		if err := c.fetch(repo); err != nil {
			if isRepoGoneErr(err) {
				return nil, ossuaryerrors.RepoGoneError(ref.URL)
			}
			// Stale data is usable; proceed with what we have (spec §4.2:
			// caller may proceed with stale cache data on transient failure).
			log.WithError(err).Warn("fetch failed, proceeding with stale mirror")
			return repo, nil
		}
		c.touchFreshness(path)
		return repo, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ossuaryerrors.TransientCollectFailureError("git:mkdir", err)
	}

	repo, err := git.PlainClone(path, true, &git.CloneOptions{
		URL:        ref.URL,
		Tags:       git.NoTags,
		NoCheckout: true,
		Filter:     packp.FilterBlobNone(),
	})
	if err != nil {
		if isRepoGoneErr(err) {
			return nil, ossuaryerrors.RepoGoneError(ref.URL)
		}
		return nil, ossuaryerrors.TransientCollectFailureError("git:clone", err)
	}
	c.touchFreshness(path)
	return repo, nil
}

func (c *Collector) fetch(repo *git.Repository) error {
	err := repo.Fetch(&git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.NoTags,
		Force:      true,
		Filter:     packp.FilterBlobNone(),
	})
	if err == git.NoErrAlreadyUpToDate {
		return nil
	}
	return err
}

func isRepoGoneErr(err error) bool {
	return err == transport.ErrRepositoryNotFound || err == transport.ErrAuthenticationRequired
}

func (c *Collector) freshnessMarker(path string) string {
	return filepath.Join(path, "ossuary_last_fetch")
}

func (c *Collector) touchFreshness(path string) {
	_ = os.WriteFile(c.freshnessMarker(path), []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}

func (c *Collector) isFresh(path string) bool {
	info, err := os.Stat(c.freshnessMarker(path))
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < staleAfter
}

// walk implements spec §4.2's enumeration: default-branch history in
// author-time descending order, producing both the recent and
// historical windows from one pass.
func (c *Collector) walk(repo *git.Repository, asOf time.Time) (Window, error) {
	head, err := headCommit(repo)
	if err != nil {
		return Window{}, ossuaryerrors.TransientCollectFailureError("git:head", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head, Order: git.LogOrderCommitterTime})
	if err != nil {
		return Window{}, ossuaryerrors.TransientCollectFailureError("git:log", err)
	}
	defer iter.Close()

	recentCutoff := asOf.AddDate(0, -12, 0)

	var win Window
	err = iter.ForEach(func(co *object.Commit) error {
		at := co.Author.When
		if at.After(asOf) {
			return nil
		}
		commit := model.Commit{
			SHA:         co.Hash.String(),
			AuthorName:  co.Author.Name,
			AuthorEmail: co.Author.Email,
			AuthorTime:  at,
			Message:     co.Message,
		}
		win.Historical = append(win.Historical, commit)
		if at.After(recentCutoff) {
			win.Recent = append(win.Recent, commit)
		}
		return nil
	})
	if err != nil {
		return Window{}, ossuaryerrors.TransientCollectFailureError("git:walk", err)
	}

	sort.Slice(win.Historical, func(i, j int) bool { return win.Historical[i].AuthorTime.After(win.Historical[j].AuthorTime) })
	sort.Slice(win.Recent, func(i, j int) bool { return win.Recent[i].AuthorTime.After(win.Recent[j].AuthorTime) })

	return win, nil
}

func headCommit(repo *git.Repository) (plumbing.Hash, error) {
	ref, err := repo.Head()
	if err == nil {
		return ref.Hash(), nil
	}
	// Bare mirrors without a symbolic HEAD (some forges) fall back to the
	// default-branch ref directly.
	refs, err2 := repo.Remote("origin")
	if err2 != nil {
		return plumbing.ZeroHash, err
	}
	cfg, err2 := refs.Config()
	if err2 != nil || len(cfg.URLs) == 0 {
		return plumbing.ZeroHash, err
	}
	for _, branch := range []string{"main", "master"} {
		if r, e := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true); e == nil {
			return r.Hash(), nil
		}
	}
	return plumbing.ZeroHash, fmt.Errorf("no resolvable HEAD: %w", err)
}
