package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ossuary/ossuary/pkg/core/logging"
	"github.com/ossuary/ossuary/pkg/model"
)

// seedRepo creates a local, non-bare repository with one commit per
// authorTime/message pair, for use as a clone source.
func seedRepo(t *testing.T, commits []struct {
	name, email, message string
	when                 time.Time
}) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	for i, c := range commits {
		fname := filepath.Join(dir, "file.txt")
		if err := os.WriteFile(fname, []byte(c.message), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := wt.Add("file.txt"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		_, err := wt.Commit(c.message, &git.CommitOptions{
			Author: &object.Signature{Name: c.name, Email: c.email, When: c.when},
		})
		if err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
	}
	return dir
}

func TestCollector_Fetch_SplitsRecentAndHistorical(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	src := seedRepo(t, []struct {
		name, email, message string
		when                 time.Time
	}{
		{"Alice", "alice@example.com", "old commit", now.AddDate(-2, 0, 0)},
		{"Bob", "bob@example.com", "recent commit", now.AddDate(0, -1, 0)},
	})

	reposDir := t.TempDir()
	c := NewCollector(reposDir, logging.NewNop())
	ref := model.RepositoryRef{Host: "local", Owner: "owner", Repo: "repo", URL: src}

	win, err := c.Fetch(ref, now)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(win.Historical) != 2 {
		t.Errorf("Historical len = %d, want 2", len(win.Historical))
	}
	if len(win.Recent) != 1 {
		t.Errorf("Recent len = %d, want 1", len(win.Recent))
	}
	if win.Recent[0].AuthorName != "Bob" {
		t.Errorf("Recent[0] = %q, want Bob", win.Recent[0].AuthorName)
	}
}

func TestCollector_Fetch_RespectsAsOf(t *testing.T) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	src := seedRepo(t, []struct {
		name, email, message string
		when                 time.Time
	}{
		{"Alice", "alice@example.com", "before cutoff", base.AddDate(0, -1, 0)},
		{"Alice", "alice@example.com", "after cutoff", base.AddDate(0, 1, 0)},
	})

	reposDir := t.TempDir()
	c := NewCollector(reposDir, logging.NewNop())
	ref := model.RepositoryRef{Host: "local", Owner: "owner", Repo: "repo2", URL: src}

	win, err := c.Fetch(ref, base)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(win.Historical) != 1 {
		t.Fatalf("Historical len = %d, want 1 (as_of must exclude future commits)", len(win.Historical))
	}
	if win.Historical[0].Message == "" {
		t.Error("expected commit message to be captured")
	}
}

func TestCollector_Fetch_ReusesMirrorOnSecondCall(t *testing.T) {
	now := time.Now()
	src := seedRepo(t, []struct {
		name, email, message string
		when                 time.Time
	}{
		{"Alice", "alice@example.com", "only commit", now.AddDate(0, -1, 0)},
	})

	reposDir := t.TempDir()
	c := NewCollector(reposDir, logging.NewNop())
	ref := model.RepositoryRef{Host: "local", Owner: "owner", Repo: "repo3", URL: src}

	if _, err := c.Fetch(ref, now); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}
	win, err := c.Fetch(ref, now)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}
	if len(win.Historical) != 1 {
		t.Errorf("Historical len = %d, want 1 on reused mirror", len(win.Historical))
	}
}
