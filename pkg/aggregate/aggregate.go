// Package aggregate implements the contributor aggregator (C5, spec
// §4.5): turning raw commits into the recent/historical contributor
// tables, concentration percentages, and proportion shifts the scoring
// engine consumes. Grounded stylistically on the teacher's
// pkg/scanners/code-ownership/ownership.go contributor-tallying loop
// (map[email]Contributor, sorted by commit count).
package aggregate

import (
	"sort"
	"time"

	"github.com/ossuary/ossuary/pkg/identity"
	"github.com/ossuary/ossuary/pkg/model"
)

// maxShareHistoricalForShift and minRecentTotalForShift gate the
// proportion-shift computation (spec §4.5).
const (
	maxShareHistoricalForShift = 5.0
	minRecentTotalForShift     = 5
	recentWindowMonths         = 12
)

// Result is everything the contributor aggregator contributes to
// model.ScoreInputs.
type Result struct {
	RecentContributors    []model.Contributor
	LifetimeContributors  []model.Contributor
	RecentTotalCommits    int
	LifetimeTotalCommits  int
	RecentConcentration   float64
	LifetimeConcentration float64
	CommitsPerYearRecent  int
	UniqueContributorsRecent int
	ProportionShifts      []model.ProportionShift
}

// tally accumulates per-contributor commit counts and first/last commit
// times over a set of commits already mapped to canonical IDs.
type tally struct {
	id          string
	displayName string
	emails      map[string]bool
	names       map[string]bool
	isBot       bool
	count       int
	first, last time.Time
}

// Aggregate partitions commits into recent/historical windows per
// spec §4.5 and computes concentration, activity, and (for mature
// projects) proportion shifts. commits should be every commit with
// author_time <= asOf (the "historical"/lifetime set); resolver must
// already have Observe'd every (name, email) pair in commits, in
// ascending AuthorTime order, and have had Resolve() called.
func Aggregate(commits []model.Commit, asOf time.Time, resolver *identity.Resolver, mature bool) Result {
	recentCutoff := asOf.AddDate(0, -recentWindowMonths, 0)

	historicalTallies := make(map[string]*tally)
	recentTallies := make(map[string]*tally)

	addTo := func(m map[string]*tally, id string, c model.Commit, bot bool) {
		t, ok := m[id]
		if !ok {
			t = &tally{id: id, emails: map[string]bool{}, names: map[string]bool{}, isBot: bot, first: c.AuthorTime, last: c.AuthorTime}
			m[id] = t
		}
		t.emails[c.AuthorEmail] = true
		t.names[c.AuthorName] = true
		if c.AuthorName != "" && t.displayName == "" {
			t.displayName = c.AuthorName
		}
		t.count++
		if c.AuthorTime.Before(t.first) {
			t.first = c.AuthorTime
		}
		if c.AuthorTime.After(t.last) {
			t.last = c.AuthorTime
		}
		if bot {
			t.isBot = true
		}
	}

	for _, c := range commits {
		id := resolver.CanonicalID(c.AuthorName, c.AuthorEmail)
		bot := identity.IsBot(c.AuthorName, c.AuthorEmail)
		addTo(historicalTallies, id, c, bot)
		if c.AuthorTime.After(recentCutoff) {
			addTo(recentTallies, id, c, bot)
		}
	}

	result := Result{}
	result.LifetimeContributors, result.LifetimeTotalCommits, _ = toContributors(historicalTallies, recentTallies, historicalTallies)
	result.RecentContributors, result.RecentTotalCommits, result.UniqueContributorsRecent = toContributors(historicalTallies, recentTallies, recentTallies)
	result.CommitsPerYearRecent = result.RecentTotalCommits

	result.RecentConcentration = concentration(recentTallies, result.RecentTotalCommits)
	result.LifetimeConcentration = concentration(historicalTallies, result.LifetimeTotalCommits)

	if mature {
		result.ProportionShifts = proportionShifts(recentTallies, historicalTallies, result.RecentTotalCommits, result.LifetimeTotalCommits)
	}

	return result
}

// toContributors builds the Contributor rows for one window (the
// entries in window), looking each id up in both historical and recent
// so CommitCountLifetime and CommitCountRecent always reflect their own
// named window regardless of which one window iterates.
func toContributors(historical, recent, window map[string]*tally) ([]model.Contributor, int, int) {
	type row struct {
		c        model.Contributor
		ownCount int
	}
	rows := make([]row, 0, len(window))
	total := 0
	uniqueNonBot := 0
	for _, t := range window {
		lifetimeCount := t.count
		if ht, ok := historical[t.id]; ok {
			lifetimeCount = ht.count
		}
		recentCount := 0
		if rt, ok := recent[t.id]; ok {
			recentCount = rt.count
		}

		c := model.Contributor{
			ID:                  t.id,
			DisplayName:         t.displayName,
			IsBot:               t.isBot,
			FirstCommit:         t.first,
			LastCommit:          t.last,
			CommitCountLifetime: lifetimeCount,
			CommitCountRecent:   recentCount,
		}
		for e := range t.emails {
			c.Emails = append(c.Emails, e)
		}
		for n := range t.names {
			c.Names = append(c.Names, n)
		}
		sort.Strings(c.Emails)
		sort.Strings(c.Names)
		rows = append(rows, row{c: c, ownCount: t.count})
		total += t.count
		if !t.isBot {
			uniqueNonBot++
		}
	}

	// Output order: (commit_count DESC, earliest_first_commit ASC, id ASC) — spec §4.1,
	// commit_count being this window's own count, not whichever field lifetimeCount landed in.
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ownCount != b.ownCount {
			return a.ownCount > b.ownCount
		}
		if !a.c.FirstCommit.Equal(b.c.FirstCommit) {
			return a.c.FirstCommit.Before(b.c.FirstCommit)
		}
		return a.c.ID < b.c.ID
	})

	contributors := make([]model.Contributor, len(rows))
	for i, r := range rows {
		contributors[i] = r.c
	}
	return contributors, total, uniqueNonBot
}

// concentration implements spec §4.5's 100 * max_contributor / total,
// with bots excluded from base-risk computation per spec §3 (bot
// contributors are excluded from base-risk and takeover computation).
func concentration(m map[string]*tally, total int) float64 {
	if total == 0 {
		return 0
	}
	max := 0
	for _, t := range m {
		if t.isBot {
			continue
		}
		if t.count > max {
			max = t.count
		}
	}
	return 100 * float64(max) / float64(total)
}

// proportionShifts implements spec §4.5's takeover-detector input:
// share_recent% - share_historical% for each non-bot contributor with
// share_historical < 5% and recent_total >= 5. share_historical is taken
// over the commits outside the recent window (at or before the 12-month
// cutoff); historical holds lifetime tallies, so the recent counts are
// subtracted from them.
func proportionShifts(recent, historical map[string]*tally, recentTotal, historicalTotal int) []model.ProportionShift {
	oldTotal := historicalTotal - recentTotal
	if recentTotal < minRecentTotalForShift || oldTotal <= 0 {
		return nil
	}
	var shifts []model.ProportionShift
	for id, rt := range recent {
		if rt.isBot {
			continue
		}
		shareRecent := 100 * float64(rt.count) / float64(recentTotal)
		shareHistorical := 0.0
		if ht, ok := historical[id]; ok {
			shareHistorical = 100 * float64(ht.count-rt.count) / float64(oldTotal)
		}
		if shareHistorical >= maxShareHistoricalForShift {
			continue
		}
		shifts = append(shifts, model.ProportionShift{
			ContributorID:   id,
			ShareRecent:     shareRecent,
			ShareHistorical: shareHistorical,
		})
	}
	sort.Slice(shifts, func(i, j int) bool { return shifts[i].ContributorID < shifts[j].ContributorID })
	return shifts
}
