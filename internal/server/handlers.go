package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/gitline/gitline/internal/errors"
	"github.com/gitline/gitline/internal/github"
	"github.com/gitline/gitline/internal/insights"
)

const (
	defaultSimilarLimit     = 5
	defaultContributorLimit = 10
	insightsTopLanguages    = 5
	insightsTopStarred      = 5
	insightsTopExpertise    = 3
)

// envelope is the uniform success response shape
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data"`
	Total     *int        `json:"total,omitempty"`
	Cached    bool        `json:"cached"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// errorBody is the uniform error response shape
type errorBody struct {
	Success     bool                     `json:"success"`
	Message     string                   `json:"message"`
	Suggestions []string                 `json:"suggestions,omitempty"`
	Source      string                   `json:"source"`
	RateLimit   *apperrors.RateLimitInfo `json:"rate_limit,omitempty"`
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	sortMode := r.URL.Query().Get("sort")

	list, err := s.service.UserRepositories(r.Context(), username, sortMode)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	repos := list.Repositories

	limit := queryInt(r, "limit", 0)
	if limit == 0 {
		limit = queryInt(r, "per_page", 0)
	}

	if limit > 0 && len(repos) > limit {
		repos = repos[:limit]
	}

	resp := envelope{
		Success:   true,
		Data:      repos,
		Total:     &list.Total,
		Cached:    list.Cached,
		Timestamp: list.FetchedAt,
	}
	if list.Total == 0 {
		resp.Message = "This user has no public repositories yet."
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	result, err := s.service.UserProfile(r.Context(), username)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      result.Profile,
		Cached:    result.Cached,
		Timestamp: result.FetchedAt,
	})
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	repoName := chi.URLParam(r, "repo")
	limit := queryInt(r, "limit", defaultSimilarLimit)

	list, err := s.service.UserRepositories(r.Context(), username, "created")
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	var subject *github.Repository

	for i := range list.Repositories {
		if strings.EqualFold(list.Repositories[i].Name, repoName) {
			subject = &list.Repositories[i]
			break
		}
	}

	if subject == nil {
		s.respondAppError(w, apperrors.Newf(
			apperrors.ErrTypeNotFound, "repository '%s' not found for user '%s'", repoName, username,
		))

		return
	}

	ranked := s.ranker.RankSimilar(*subject, list.Repositories, limit)
	total := len(ranked)

	s.respondJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      ranked,
		Total:     &total,
		Cached:    list.Cached,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	list, err := s.service.UserRepositories(r.Context(), username, "created")
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	resp := envelope{
		Success:   true,
		Cached:    list.Cached,
		Timestamp: time.Now(),
	}

	if list.Total == 0 {
		resp.Message = "This user has no public repositories to analyze."
		resp.Data = map[string]interface{}{"total_repos": 0}
		s.respondJSON(w, http.StatusOK, resp)

		return
	}

	resp.Data = map[string]interface{}{
		"total_repos":      list.Total,
		"languages":        insights.LanguageStats(list.Repositories, insightsTopLanguages),
		"most_active_year": insights.MostActiveYear(list.Repositories),
		"top_starred":      insights.TopStarred(list.Repositories, insightsTopStarred),
		"expertise_areas":  insights.ExpertiseAreas(list.Repositories, insightsTopExpertise),
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleContributors(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	limit := queryInt(r, "limit", defaultContributorLimit)

	contributors, err := s.service.TopContributors(r.Context(), username, limit)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	total := len(contributors)

	s.respondJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      contributors,
		Total:     &total,
		Timestamp: time.Now(),
	})
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.service.LiveRateLimit(r.Context())
	if err != nil {
		// Degrade to the local advisory count when upstream is unreachable
		s.logger.Warn("live rate limit unavailable, serving local budget", zap.Error(err))

		status := s.service.Budget()
		snapshot = &github.RateSnapshot{
			Limit:     status.Limit,
			Remaining: status.Remaining,
			Used:      status.Used,
			Reset:     status.Reset,
		}
	}

	percentage := 0.0
	if snapshot.Limit > 0 {
		percentage = float64(snapshot.Used) / float64(snapshot.Limit) * 100
	}

	s.respondJSON(w, http.StatusOK, envelope{
		Success: true,
		Data: map[string]interface{}{
			"limit":           snapshot.Limit,
			"remaining":       snapshot.Remaining,
			"used":            snapshot.Used,
			"reset":           snapshot.Reset.Unix(),
			"reset_date":      snapshot.Reset.Format(time.RFC3339),
			"percentage_used": percentage,
		},
		Timestamp: time.Now(),
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      s.service.CacheStats(),
		Timestamp: time.Now(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondAppError maps the closed error kinds onto HTTP statuses and renders
// the uniform error body.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	structured, ok := apperrors.AsError(err)
	if !ok {
		structured = apperrors.Wrap(err, apperrors.ErrTypeServer, "internal server error")
	}

	status := http.StatusInternalServerError
	source := "github_api"

	switch structured.Type {
	case apperrors.ErrTypeValidation:
		status = http.StatusBadRequest
		source = "validation"
	case apperrors.ErrTypeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrTypeRateLimit:
		status = http.StatusForbidden
	case apperrors.ErrTypeNetwork:
		status = http.StatusServiceUnavailable
	case apperrors.ErrTypeServer:
		status = http.StatusInternalServerError
	case apperrors.ErrTypeNoRepos:
		status = http.StatusOK
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}

	s.respondJSON(w, status, errorBody{
		Success:     false,
		Message:     structured.Message,
		Suggestions: structured.Suggestions,
		Source:      source,
		RateLimit:   structured.RateLimit,
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt parses a positive integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return def
	}

	return value
}
