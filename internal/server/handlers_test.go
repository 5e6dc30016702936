package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gitline/gitline/internal/cache"
	"github.com/gitline/gitline/internal/config"
	apperrors "github.com/gitline/gitline/internal/errors"
	"github.com/gitline/gitline/internal/fetcher"
	"github.com/gitline/gitline/internal/github"
	"github.com/gitline/gitline/internal/ratelimit"
	"github.com/gitline/gitline/internal/similarity"
)

type fakeService struct {
	reposFn        func(ctx context.Context, username, sort string) (*fetcher.RepositoryList, error)
	profileFn      func(ctx context.Context, username string) (*fetcher.ProfileResult, error)
	contributorsFn func(ctx context.Context, username string, limit int) ([]fetcher.TopContributor, error)
	rateFn         func(ctx context.Context) (*github.RateSnapshot, error)
	budgetFn       func() ratelimit.Status
	statsFn        func() cache.Stats
}

func (f *fakeService) UserRepositories(
	ctx context.Context,
	username, sort string,
) (*fetcher.RepositoryList, error) {
	if err := fetcher.ValidateUsername(username); err != nil {
		return nil, err
	}

	if f.reposFn != nil {
		return f.reposFn(ctx, username, sort)
	}

	return &fetcher.RepositoryList{Repositories: []github.Repository{}, FetchedAt: time.Now()}, nil
}

func (f *fakeService) UserProfile(ctx context.Context, username string) (*fetcher.ProfileResult, error) {
	if err := fetcher.ValidateUsername(username); err != nil {
		return nil, err
	}

	if f.profileFn != nil {
		return f.profileFn(ctx, username)
	}

	return &fetcher.ProfileResult{Profile: &github.Profile{Login: username}, FetchedAt: time.Now()}, nil
}

func (f *fakeService) TopContributors(
	ctx context.Context,
	username string,
	limit int,
) ([]fetcher.TopContributor, error) {
	if f.contributorsFn != nil {
		return f.contributorsFn(ctx, username, limit)
	}

	return []fetcher.TopContributor{}, nil
}

func (f *fakeService) LiveRateLimit(ctx context.Context) (*github.RateSnapshot, error) {
	if f.rateFn != nil {
		return f.rateFn(ctx)
	}

	return &github.RateSnapshot{Limit: 60, Remaining: 60}, nil
}

func (f *fakeService) Budget() ratelimit.Status {
	if f.budgetFn != nil {
		return f.budgetFn()
	}

	return ratelimit.Status{Limit: 60, Remaining: 60}
}

func (f *fakeService) CacheStats() cache.Stats {
	if f.statsFn != nil {
		return f.statsFn()
	}

	return cache.Stats{}
}

func newTestServer(t *testing.T, service Service) *httptest.Server {
	t.Helper()

	srv := NewServer(
		service,
		similarity.NewRanker(nil, 0),
		&config.ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			RequestTimeout: 5 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		zap.NewNop(),
	)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return ts
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))

	return resp.StatusCode
}

func sampleRepos() []github.Repository {
	now := time.Now()

	return []github.Repository{
		{
			ID: 1, Name: "redis-client", Description: "fast redis client library",
			Language: "Go", StargazersCount: 100, Topics: []string{"redis", "cache"},
			CreatedAt: now,
		},
		{
			ID: 2, Name: "redis-tool", Description: "redis client helper library",
			Language: "Go", StargazersCount: 120, Topics: []string{"redis", "cli"},
			CreatedAt: now.Add(-time.Hour),
		},
		{
			ID: 3, Name: "image-editor", Description: "photo editing desktop app",
			Language: "Rust", StargazersCount: 5, Topics: []string{},
			CreatedAt: now.Add(-2 * time.Hour),
		},
	}
}

func reposService(repos []github.Repository) *fakeService {
	return &fakeService{
		reposFn: func(_ context.Context, _, _ string) (*fetcher.RepositoryList, error) {
			return &fetcher.RepositoryList{
				Repositories: repos,
				Total:        len(repos),
				Cached:       true,
				FetchedAt:    time.Now(),
			}, nil
		},
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	var body map[string]string

	status := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestRepositories_Success(t *testing.T) {
	ts := newTestServer(t, reposService(sampleRepos()))

	var body struct {
		Success bool                `json:"success"`
		Data    []github.Repository `json:"data"`
		Total   int                 `json:"total"`
		Cached  bool                `json:"cached"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/repos", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.True(t, body.Cached)
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Data, 3)
	assert.Equal(t, "redis-client", body.Data[0].Name)
}

func TestRepositories_LimitParameter(t *testing.T) {
	ts := newTestServer(t, reposService(sampleRepos()))

	var body struct {
		Data  []github.Repository `json:"data"`
		Total int                 `json:"total"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/repos?limit=2", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Len(t, body.Data, 2)
	assert.Equal(t, 3, body.Total, "total reflects the full set")
}

func TestRepositories_UsernameValidation(t *testing.T) {
	ts := newTestServer(t, reposService(sampleRepos()))

	accepted := []string{"octocat", "torvalds", "a"}
	for _, username := range accepted {
		var body map[string]interface{}

		status := getJSON(t, fmt.Sprintf("%s/api/users/%s/repos", ts.URL, username), &body)
		assert.Equal(t, http.StatusOK, status, username)
	}

	rejected := []string{"-abc", "user%20name", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"}
	for _, username := range rejected {
		var body struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			Source  string `json:"source"`
		}

		status := getJSON(t, fmt.Sprintf("%s/api/users/%s/repos", ts.URL, username), &body)
		assert.Equal(t, http.StatusBadRequest, status, username)
		assert.False(t, body.Success)
		assert.Equal(t, "validation", body.Source)
		assert.NotEmpty(t, body.Message)
	}
}

func TestRepositories_EmptyListGuidance(t *testing.T) {
	ts := newTestServer(t, reposService(nil))

	var body struct {
		Success bool   `json:"success"`
		Total   int    `json:"total"`
		Message string `json:"message"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/repos", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Zero(t, body.Total)
	assert.Contains(t, body.Message, "no public repositories")
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"user_not_found", apperrors.NewUserNotFound("ghost"), http.StatusNotFound},
		{
			"rate_limit",
			apperrors.NewRateLimited(apperrors.RateLimitInfo{Limit: 60}),
			http.StatusForbidden,
		},
		{
			"network_error",
			apperrors.New(apperrors.ErrTypeNetwork, "GitHub API is not responding"),
			http.StatusServiceUnavailable,
		},
		{
			"server_error",
			apperrors.New(apperrors.ErrTypeServer, "GitHub API error 502"),
			http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeService{
				reposFn: func(_ context.Context, _, _ string) (*fetcher.RepositoryList, error) {
					return nil, tc.err
				},
			})

			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
				Source  string `json:"source"`
			}

			status := getJSON(t, ts.URL+"/api/users/octocat/repos", &body)
			assert.Equal(t, tc.wantStatus, status)
			assert.False(t, body.Success)
			assert.Equal(t, "github_api", body.Source)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestRateLimitErrorCarriesBudget(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute)

	ts := newTestServer(t, &fakeService{
		reposFn: func(_ context.Context, _, _ string) (*fetcher.RepositoryList, error) {
			return nil, apperrors.NewRateLimited(apperrors.RateLimitInfo{
				Authenticated: false,
				Limit:         60,
				Remaining:     0,
				Reset:         reset,
			})
		},
	})

	var body struct {
		Suggestions []string                 `json:"suggestions"`
		RateLimit   *apperrors.RateLimitInfo `json:"rate_limit"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/repos", &body)
	require.Equal(t, http.StatusForbidden, status)

	require.NotNil(t, body.RateLimit)
	assert.Equal(t, 60, body.RateLimit.Limit)
	assert.NotEmpty(t, body.Suggestions)
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	var body struct {
		Success bool           `json:"success"`
		Data    github.Profile `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, "octocat", body.Data.Login)
}

func TestSimilar(t *testing.T) {
	ts := newTestServer(t, reposService(sampleRepos()))

	var body struct {
		Success bool `json:"success"`
		Total   int  `json:"total"`
		Data    []struct {
			Repository github.Repository `json:"repository"`
			Score      float64           `json:"score"`
		} `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/repos/redis-client/similar", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Data, 2)

	assert.Equal(t, "redis-tool", body.Data[0].Repository.Name)
	assert.GreaterOrEqual(t, body.Data[0].Score, body.Data[1].Score)
}

func TestSimilar_UnknownRepository(t *testing.T) {
	ts := newTestServer(t, reposService(sampleRepos()))

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/repos/nonexistent/similar", &body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "nonexistent")
}

func TestInsights(t *testing.T) {
	ts := newTestServer(t, reposService(sampleRepos()))

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			TotalRepos     int           `json:"total_repos"`
			MostActiveYear int           `json:"most_active_year"`
			Languages      []interface{} `json:"languages"`
			TopStarred     []interface{} `json:"top_starred"`
			ExpertiseAreas []string      `json:"expertise_areas"`
		} `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/insights", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, 3, body.Data.TotalRepos)
	assert.Equal(t, time.Now().Year(), body.Data.MostActiveYear)
	assert.NotEmpty(t, body.Data.Languages)
	assert.NotEmpty(t, body.Data.TopStarred)
	assert.NotEmpty(t, body.Data.ExpertiseAreas)
}

func TestInsights_NoRepositories(t *testing.T) {
	ts := newTestServer(t, reposService(nil))

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/insights", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Contains(t, body.Message, "no public repositories")
}

func TestContributors(t *testing.T) {
	ts := newTestServer(t, &fakeService{
		contributorsFn: func(_ context.Context, _ string, limit int) ([]fetcher.TopContributor, error) {
			assert.Equal(t, 10, limit)

			return []fetcher.TopContributor{
				{Login: "alice", TotalContributions: 120, RepositoryCount: 2},
			}, nil
		},
	})

	var body struct {
		Success bool                     `json:"success"`
		Total   int                      `json:"total"`
		Data    []fetcher.TopContributor `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/users/octocat/contributors", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "alice", body.Data[0].Login)
}

func TestRateLimitEndpoint(t *testing.T) {
	reset := time.Now().Add(20 * time.Minute)

	ts := newTestServer(t, &fakeService{
		rateFn: func(_ context.Context) (*github.RateSnapshot, error) {
			return &github.RateSnapshot{Limit: 60, Remaining: 45, Used: 15, Reset: reset}, nil
		},
	})

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Limit          int     `json:"limit"`
			Remaining      int     `json:"remaining"`
			Used           int     `json:"used"`
			Reset          int64   `json:"reset"`
			ResetDate      string  `json:"reset_date"`
			PercentageUsed float64 `json:"percentage_used"`
		} `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/rate-limit", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, 60, body.Data.Limit)
	assert.Equal(t, 45, body.Data.Remaining)
	assert.Equal(t, reset.Unix(), body.Data.Reset)
	assert.InDelta(t, 25.0, body.Data.PercentageUsed, 1e-9)
	assert.NotEmpty(t, body.Data.ResetDate)
}

func TestRateLimitEndpoint_FallsBackToLocalBudget(t *testing.T) {
	ts := newTestServer(t, &fakeService{
		rateFn: func(_ context.Context) (*github.RateSnapshot, error) {
			return nil, apperrors.New(apperrors.ErrTypeNetwork, "GitHub API is not responding")
		},
		budgetFn: func() ratelimit.Status {
			return ratelimit.Status{Limit: 60, Used: 12, Remaining: 48}
		},
	})

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Remaining int `json:"remaining"`
		} `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/rate-limit", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, 48, body.Data.Remaining)
}

func TestCacheStats(t *testing.T) {
	ts := newTestServer(t, &fakeService{
		statsFn: func() cache.Stats {
			return cache.Stats{TotalEntries: 4, Hits: 6, Misses: 2, HitRate: 0.75}
		},
	})

	var body struct {
		Success bool        `json:"success"`
		Data    cache.Stats `json:"data"`
	}

	status := getJSON(t, ts.URL+"/api/cache/stats", &body)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, body.Success)
	assert.Equal(t, 4, body.Data.TotalEntries)
	assert.InDelta(t, 0.75, body.Data.HitRate, 1e-9)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, &fakeService{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
