// Package api implements the HTTP scoring API (spec §6's "thin HTTP
// API collaborator"), grounded on the teacher's chi-based
// pkg/api/server.go and pkg/api/handlers/system.go (handler struct
// wrapping dependencies, writeJSON/writeError helpers).
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ossuary/ossuary/pkg/cache"
	ossuaryerrors "github.com/ossuary/ossuary/pkg/core/errors"
	"github.com/ossuary/ossuary/pkg/model"
)

// scorer is the orchestrator capability ScoreHandler depends on.
// *orchestrator.Orchestrator satisfies it; tests supply a stub so the
// handler can be exercised without live git/forge/registry collectors.
type scorer interface {
	Score(ctx context.Context, ecosystem model.Ecosystem, name string, asOf *time.Time, maxAge time.Duration) (model.Score, error)
}

// ScoreHandler serves /api/packages/{ecosystem}/{name}.
type ScoreHandler struct {
	orch      scorer
	cacheDays int
}

// NewScoreHandler builds a ScoreHandler. cacheDays is the default
// max-age applied when the request omits ?max_age_days.
func NewScoreHandler(orch scorer, cacheDays int) *ScoreHandler {
	return &ScoreHandler{orch: orch, cacheDays: cacheDays}
}

type scorePayload struct {
	Package         string          `json:"package"`
	Ecosystem       model.Ecosystem `json:"ecosystem"`
	Score           int             `json:"score"`
	RiskLevel       model.Level     `json:"risk_level"`
	Semaphore       model.Semaphore `json:"semaphore"`
	Explanation     string          `json:"explanation"`
	Breakdown       []breakdownRow  `json:"breakdown"`
	Recommendations []string        `json:"recommendations"`
	ComputedAt      time.Time       `json:"computed_at"`
	AsOf            *time.Time      `json:"as_of"`
	ModelVersion    string          `json:"model_version"`
	Partial         bool            `json:"partial,omitempty"`
}

type breakdownRow struct {
	Tag      string `json:"tag"`
	Points   int    `json:"points"`
	Evidence string `json:"evidence"`
}

type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Score handles GET /api/packages/{ecosystem}/{name}.
//
// name may itself contain a slash (the github ecosystem's
// owner/repo form), so it is read from the wildcard remainder of the
// route rather than a second {name} segment.
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	ecosystem := model.Ecosystem(strings.ToLower(chi.URLParam(r, "ecosystem")))
	name := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "package name is required", nil)
		return
	}

	var asOf *time.Time
	if cutoff := r.URL.Query().Get("cutoff"); cutoff != "" {
		t, err := time.Parse("2006-01-02", cutoff)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid cutoff date", err)
			return
		}
		asOf = &t
	}

	maxAge := time.Duration(h.cacheDays) * 24 * time.Hour
	if raw := r.URL.Query().Get("max_age_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid max_age_days", err)
			return
		}
		maxAge = time.Duration(days) * 24 * time.Hour
	}

	score, err := h.orch.Score(r.Context(), ecosystem, name, asOf, maxAge)
	if err != nil {
		writeScoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPayload(ecosystem, name, score))
}

// writeScoreError maps ossuary's error taxonomy (spec §7) onto HTTP
// status codes: 404 for an unresolved repo, 410 for a repository that
// is gone, 503 for a transient collection failure that propagated (both
// collectors failed), 422 for a malformed request, 500 otherwise.
func writeScoreError(w http.ResponseWriter, err error) {
	switch {
	case ossuaryerrors.IsUnresolvedRepo(err):
		writeError(w, http.StatusNotFound, "no upstream repository found", err)
	case ossuaryerrors.IsInputError(err):
		writeError(w, http.StatusUnprocessableEntity, "invalid request", err)
	case ossuaryerrors.IsRepoGone(err):
		writeError(w, http.StatusGone, "repository is gone", err)
	case ossuaryerrors.IsTransientCollectFailure(err):
		writeError(w, http.StatusServiceUnavailable, "collection failed, try again later", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func toPayload(ecosystem model.Ecosystem, name string, score model.Score) scorePayload {
	breakdown := make([]breakdownRow, 0, len(score.Breakdown))
	for _, c := range score.Breakdown {
		breakdown = append(breakdown, breakdownRow{Tag: c.Tag, Points: c.Points, Evidence: c.Evidence})
	}
	return scorePayload{
		Package:         name,
		Ecosystem:       ecosystem,
		Score:           score.Score,
		RiskLevel:       score.Level,
		Semaphore:       score.Semaphore,
		Explanation:     score.Explanation,
		Breakdown:       breakdown,
		Recommendations: score.Recommendations,
		ComputedAt:      score.ComputedAt,
		AsOf:            score.AsOf,
		ModelVersion:    score.ModelVersion,
		Partial:         score.Partial,
	}
}

// MoversHandler serves GET /api/movers.
type MoversHandler struct {
	store cache.Cache
}

// NewMoversHandler builds a MoversHandler over store.
func NewMoversHandler(store cache.Cache) *MoversHandler {
	return &MoversHandler{store: store}
}

// Movers handles GET /api/movers?limit=N&since_days=N.
func (h *MoversHandler) Movers(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid limit", err)
			return
		}
		limit = n
	}

	sinceDays := 7
	if raw := r.URL.Query().Get("since_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid since_days", err)
			return
		}
		sinceDays = n
	}

	movers, err := h.store.Movers(r.Context(), limit, time.Duration(sinceDays)*24*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "querying movers", err)
		return
	}
	writeJSON(w, http.StatusOK, movers)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorPayload{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
