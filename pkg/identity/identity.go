// Package identity implements the identity normalizer (C1, spec §4.1):
// turning raw (name, email) commit-author pairs into a stable canonical
// contributor key, merging aliases that are really the same person.
package identity

import (
	"sort"
	"strings"

	"github.com/ossuary/ossuary/pkg/model"
)

// personalProviders collapse to the shared "personal" domain class
// (spec §4.1) rather than preserving the literal domain.
var personalProviders = map[string]bool{
	"gmail.com":      true,
	"outlook.com":    true,
	"yahoo.com":      true,
	"hotmail.com":    true,
	"protonmail.com": true,
}

// staticBotNames is the small static bot list referenced by spec §4.1's
// bot-detection rule, beyond the "[bot]" substring and
// "@bots.noreply.github.com" suffix checks.
var staticBotNames = map[string]bool{
	"dependabot":  true,
	"renovate":    true,
	"greenkeeper": true,
}

// domainClass implements spec §4.1's domain_class function. It returns
// the class string used in the canonical key, and the GitHub login when
// the email is a noreply address (used later for the secondary merge
// pass).
func domainClass(email string) (class string, githubLogin string) {
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email, ""
	}
	domain := strings.ToLower(email[at+1:])
	local := email[:at]

	if domain == "users.noreply.github.com" {
		// "12345+login@users.noreply.github.com" -> login
		login := local
		if plus := strings.IndexByte(local, '+'); plus >= 0 {
			login = local[plus+1:]
		}
		login = strings.ToLower(login)
		return login + "@github", login
	}
	if personalProviders[domain] {
		return "personal", ""
	}
	return domain, ""
}

// PrimaryKey computes the spec §4.1 canonical key for a single
// (name, email) pair, before case-folding and the secondary merge pass:
// lower(local) + "@" + domain_class(email). A GitHub noreply address
// keys on its login alone (login + "@github"), ignoring the numeric
// "12345+" prefix.
func PrimaryKey(name, email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		// No '@' at all: fall back to the whole string as the local part
		// so malformed author lines still get a stable, if degenerate, key.
		return strings.ToLower(email)
	}
	local := strings.ToLower(email[:at])
	class, login := domainClass(email)
	if login != "" {
		return class
	}
	return local + "@" + class
}

// IsBot implements spec §4.1's bot-detection rule.
func IsBot(name, email string) bool {
	lname := strings.ToLower(name)
	lemail := strings.ToLower(email)
	if strings.Contains(lname, "[bot]") || strings.Contains(lemail, "[bot]") {
		return true
	}
	if strings.HasSuffix(lemail, "@bots.noreply.github.com") {
		return true
	}
	for bot := range staticBotNames {
		if strings.Contains(lname, bot) {
			return true
		}
	}
	return false
}

// stripPlusTag removes a "+tag" suffix from an email's local part, used
// as one of the three secondary-merge signals.
func stripPlusTag(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndexByte(email, '@')
	if at < 0 {
		return email
	}
	local := email[:at]
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}
	return local
}

// normalizeDisplayName lower-cases and strips non-ASCII-letter runes, the
// third secondary-merge signal.
func normalizeDisplayName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// identityObservation is one (name, email) pair seen on a commit,
// together with the signals used for case-folding and the secondary
// merge pass.
type identityObservation struct {
	name, email string
	key         string // primary key, after case-folding
	localTag    string // stripPlusTag(email)
	githubLogin string
	dispName    string // normalizeDisplayName(name)
}

// Resolver canonicalizes (name, email) pairs across a batch of commits.
// It is not safe for concurrent use; build one per repository scan.
type Resolver struct {
	// caseCanon maps lower(primaryKey) -> the first-seen exact-case form,
	// implementing spec §4.1's "later-seen form is normalized to the
	// earlier" rule.
	caseCanon map[string]string
	// firstSeenOrder records insertion order of case-canonical keys, for
	// deterministic merge-representative selection.
	firstSeenOrder []string
	seenOrder      map[string]int

	parent map[string]string // union-find over case-canonical keys

	observations []identityObservation
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		caseCanon: make(map[string]string),
		seenOrder: make(map[string]int),
		parent:    make(map[string]string),
	}
}

// Observe registers one commit author pair. Commits should be fed in
// ascending AuthorTime order so "first seen" matches the spec's intent.
func (r *Resolver) Observe(name, email string) {
	key := PrimaryKey(name, email)
	lower := strings.ToLower(key)
	canon, ok := r.caseCanon[lower]
	if !ok {
		canon = key
		r.caseCanon[lower] = canon
		r.seenOrder[canon] = len(r.firstSeenOrder)
		r.firstSeenOrder = append(r.firstSeenOrder, canon)
		r.find(canon) // ensure union-find entry exists
	}

	_, login := domainClass(email)
	r.observations = append(r.observations, identityObservation{
		name: name, email: email, key: canon,
		localTag:    stripPlusTag(email),
		githubLogin: login,
		dispName:    normalizeDisplayName(name),
	})
}

func (r *Resolver) find(k string) string {
	if _, ok := r.parent[k]; !ok {
		r.parent[k] = k
		return k
	}
	if r.parent[k] != k {
		r.parent[k] = r.find(r.parent[k])
	}
	return r.parent[k]
}

func (r *Resolver) union(a, b string) {
	ra, rb := r.find(a), r.find(b)
	if ra == rb {
		return
	}
	// Deterministic: the lexicographically earlier root wins, so merge
	// outcome does not depend on map iteration order.
	if ra < rb {
		r.parent[rb] = ra
	} else {
		r.parent[ra] = rb
	}
}

// mergeAliases runs spec §4.1's secondary pass: merge keys that share at
// least two of {local-part after stripping +tag, GitHub noreply login,
// normalized display name}. The login signal also counts as shared when
// one key's noreply login, normalized like a display name, equals the
// other key's normalized display name.
func (r *Resolver) mergeAliases() {
	byLocalTag := make(map[string][]string)
	byLogin := make(map[string][]string)
	byDispName := make(map[string][]string)

	// signals[key] holds the set of non-empty signal values seen for key,
	// deduplicated per signal type for the ">=2 shared" comparison.
	type keySignals struct {
		localTag, login, dispName map[string]bool
	}
	signals := make(map[string]*keySignals)

	for _, o := range r.observations {
		s, ok := signals[o.key]
		if !ok {
			s = &keySignals{localTag: map[string]bool{}, login: map[string]bool{}, dispName: map[string]bool{}}
			signals[o.key] = s
		}
		if o.localTag != "" {
			s.localTag[o.localTag] = true
			byLocalTag[o.localTag] = appendIfMissing(byLocalTag[o.localTag], o.key)
		}
		if o.githubLogin != "" {
			s.login[o.githubLogin] = true
			byLogin[o.githubLogin] = appendIfMissing(byLogin[o.githubLogin], o.key)
		}
		if o.dispName != "" {
			s.dispName[o.dispName] = true
			byDispName[o.dispName] = appendIfMissing(byDispName[o.dispName], o.key)
		}
	}

	candidatePairs := make(map[[2]string]bool)
	for _, group := range byLocalTag {
		addPairs(candidatePairs, group)
	}
	for _, group := range byLogin {
		addPairs(candidatePairs, group)
	}
	for _, group := range byDispName {
		addPairs(candidatePairs, group)
	}

	for pair := range candidatePairs {
		a, b := pair[0], pair[1]
		sa, sb := signals[a], signals[b]
		shared := 0
		if sharesAny(sa.localTag, sb.localTag) {
			shared++
		}
		loginShared := sharesAny(sa.login, sb.login)
		for l := range sa.login {
			if sb.dispName[normalizeDisplayName(l)] {
				loginShared = true
			}
		}
		for l := range sb.login {
			if sa.dispName[normalizeDisplayName(l)] {
				loginShared = true
			}
		}
		if loginShared {
			shared++
		}
		if sharesAny(sa.dispName, sb.dispName) {
			shared++
		}
		if shared >= 2 {
			r.union(a, b)
		}
	}
}

func appendIfMissing(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func addPairs(dst map[[2]string]bool, group []string) {
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			a, b := group[i], group[j]
			if a > b {
				a, b = b, a
			}
			dst[[2]string{a, b}] = true
		}
	}
}

func sharesAny(a, b map[string]bool) bool {
	for v := range a {
		if b[v] {
			return true
		}
	}
	return false
}

// Resolve finalizes the merge and returns one Contributor per merged
// identity, sorted by ID.
//
// Resolve is idempotent: calling it twice returns the same mapping, and
// re-running the whole Observe/Resolve sequence on the same input
// produces the same IDs (spec §8 "Identity stability").
func (r *Resolver) Resolve() []model.Contributor {
	r.mergeAliases()

	byRoot := make(map[string][]identityObservation)
	rootFirstIdx := make(map[string]int)
	for _, o := range r.observations {
		root := r.find(o.key)
		byRoot[root] = append(byRoot[root], o)
		if idx, ok := rootFirstIdx[root]; !ok || r.seenOrder[o.key] < idx {
			rootFirstIdx[root] = r.seenOrder[o.key]
		}
	}

	contributors := make([]model.Contributor, 0, len(byRoot))
	for root, obs := range byRoot {
		c := model.Contributor{ID: root}
		emailSeen := map[string]bool{}
		nameSeen := map[string]bool{}
		isBot := false
		for _, o := range obs {
			if !emailSeen[o.email] {
				emailSeen[o.email] = true
				c.Emails = append(c.Emails, o.email)
			}
			if !nameSeen[o.name] {
				nameSeen[o.name] = true
				c.Names = append(c.Names, o.name)
			}
			if IsBot(o.name, o.email) {
				isBot = true
			}
		}
		c.IsBot = isBot
		if len(c.Names) > 0 {
			c.DisplayName = c.Names[0]
		}
		sort.Strings(c.Emails)
		sort.Strings(c.Names)
		contributors = append(contributors, c)
	}

	sort.Slice(contributors, func(i, j int) bool { return contributors[i].ID < contributors[j].ID })
	return contributors
}

// CanonicalID returns the canonical contributor ID for a single
// (name, email) pair, consulting a Resolver that has already processed
// the full commit history. Callers (pkg/aggregate) use this to re-map
// each commit to its contributor after Resolve.
func (r *Resolver) CanonicalID(name, email string) string {
	key := PrimaryKey(name, email)
	lower := strings.ToLower(key)
	if canon, ok := r.caseCanon[lower]; ok {
		return r.find(canon)
	}
	return r.find(key)
}
