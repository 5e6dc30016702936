// Package fetcher implements the rate-aware cached fetch pipeline: cache
// probe, rate budget check, existence probe, bounded pagination, final sort,
// cache write.
package fetcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gitline/gitline/internal/cache"
	"github.com/gitline/gitline/internal/config"
	apperrors "github.com/gitline/gitline/internal/errors"
	"github.com/gitline/gitline/internal/github"
	"github.com/gitline/gitline/internal/ratelimit"
)

// usernamePattern enforces GitHub username rules: 1-39 chars, alphanumeric
// plus hyphen, no leading hyphen.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,38})$`)

// validSorts is the upstream sort-mode whitelist; anything else falls back
// to created.
var validSorts = map[string]bool{
	"created": true, "updated": true, "pushed": true, "full_name": true,
}

const (
	// collaborativeRepoCap bounds the contributor fan-out to the most
	// active repositories.
	collaborativeRepoCap = 8
	contributorsPerRepo  = 5
	recentActivityBonus  = 10
)

// RepositoryList is the aggregated, sorted fetch result. The whole list is
// cached as one entry; Cached marks whether this retrieval was served from
// cache.
type RepositoryList struct {
	Repositories []github.Repository `json:"repositories"`
	Total        int                 `json:"total"`
	Cached       bool                `json:"cached"`
	FetchedAt    time.Time           `json:"timestamp"`
}

// ProfileResult wraps a profile with its cache provenance
type ProfileResult struct {
	Profile   *github.Profile `json:"profile"`
	Cached    bool            `json:"cached"`
	FetchedAt time.Time       `json:"timestamp"`
}

// TopContributor aggregates one contributor across a user's repositories
type TopContributor struct {
	Login              string `json:"login"`
	AvatarURL          string `json:"avatar_url"`
	TotalContributions int    `json:"total_contributions"`
	RepositoryCount    int    `json:"repository_count"`
}

// Service is the fetch pipeline with its injected collaborators. It owns no
// state of its own; the cache and tracker are shared process-wide.
type Service struct {
	client  github.API
	cache   *cache.Store
	tracker *ratelimit.Tracker
	pool    *github.WorkerPool
	cfg     *config.Config
	logger  *zap.Logger
}

// New creates a fetch service
func New(
	client github.API,
	store *cache.Store,
	tracker *ratelimit.Tracker,
	cfg *config.Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		client:  client,
		cache:   store,
		tracker: tracker,
		pool: github.NewWorkerPool(
			cfg.Enrich.Workers,
			1*time.Second,
			30*time.Second,
		),
		cfg:    cfg,
		logger: logger,
	}
}

// ValidateUsername rejects malformed usernames before any network or cache
// access.
func ValidateUsername(username string) error {
	if username == "" {
		return apperrors.NewValidation("username is required")
	}

	if !usernamePattern.MatchString(username) {
		return apperrors.NewValidation("invalid username format")
	}

	return nil
}

// SanitizeSort maps a requested sort mode onto the upstream whitelist
func SanitizeSort(sortMode string) string {
	if validSorts[sortMode] {
		return sortMode
	}

	return "created"
}

// UserRepositories returns all public repositories for username, newest
// created first. Results are cached for the configured repo TTL, keyed by
// (username, sort) so different sort modes never collide.
func (s *Service) UserRepositories(
	ctx context.Context,
	username, sortMode string,
) (*RepositoryList, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	sortMode = SanitizeSort(sortMode)
	key := repoCacheKey(username, sortMode)

	if cached, ok := s.cache.Get(key); ok {
		if list, ok := cached.(*RepositoryList); ok {
			s.logger.Debug("repository cache hit", zap.String("username", username))

			hit := *list
			hit.Cached = true

			return &hit, nil
		}
	}

	if !s.tracker.Allow() {
		return nil, apperrors.NewRateLimited(s.rateLimitInfo())
	}

	// Existence probe: fail fast on unknown users before paging
	profile, err := s.client.Profile(ctx, username)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			return nil, apperrors.NewUserNotFound(username)
		}

		return nil, err
	}

	// The probe already paid for a profile; cache it
	s.cache.Set(profileCacheKey(username), &ProfileResult{
		Profile:   profile,
		FetchedAt: time.Now(),
	}, s.cfg.Cache.ProfileTTL)

	repos, err := s.fetchAllPages(ctx, username, sortMode)
	if err != nil {
		// A failed page aborts the whole fetch; nothing partial is cached
		return nil, err
	}

	// Upstream page order varies by requested sort; the contract is always
	// newest created first.
	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].CreatedAt.After(repos[j].CreatedAt)
	})

	list := &RepositoryList{
		Repositories: repos,
		Total:        len(repos),
		FetchedAt:    time.Now(),
	}

	s.cache.Set(key, list, s.cfg.Cache.RepoTTL)

	s.logger.Info("fetched repositories",
		zap.String("username", username),
		zap.String("sort", sortMode),
		zap.Int("total", list.Total),
	)

	return list, nil
}

// fetchAllPages loops pages until a short page, the page cap, or an error
func (s *Service) fetchAllPages(
	ctx context.Context,
	username, sortMode string,
) ([]github.Repository, error) {
	perPage := s.cfg.GitHub.PerPage
	maxPages := s.cfg.GitHub.MaxPages

	all := make([]github.Repository, 0, perPage)

	for page := 1; page <= maxPages; page++ {
		repos, err := s.client.Repositories(ctx, username, sortMode, perPage, page)
		if err != nil {
			return nil, err
		}

		all = append(all, repos...)

		if len(repos) < perPage {
			break
		}
	}

	return all, nil
}

// UserProfile returns a user's profile, cached for the profile TTL
func (s *Service) UserProfile(ctx context.Context, username string) (*ProfileResult, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	key := profileCacheKey(username)

	if cached, ok := s.cache.Get(key); ok {
		if result, ok := cached.(*ProfileResult); ok {
			hit := *result
			hit.Cached = true

			return &hit, nil
		}
	}

	if !s.tracker.Allow() {
		return nil, apperrors.NewRateLimited(s.rateLimitInfo())
	}

	profile, err := s.client.Profile(ctx, username)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeNotFound) {
			return nil, apperrors.NewUserNotFound(username)
		}

		return nil, err
	}

	result := &ProfileResult{
		Profile:   profile,
		FetchedAt: time.Now(),
	}

	s.cache.Set(key, result, s.cfg.Cache.ProfileTTL)

	return result, nil
}

// LiveRateLimit queries the upstream rate-limit endpoint directly
func (s *Service) LiveRateLimit(ctx context.Context) (*github.RateSnapshot, error) {
	return s.client.RateLimit(ctx)
}

// Budget returns the local advisory budget snapshot
func (s *Service) Budget() ratelimit.Status {
	return s.tracker.Status()
}

// CacheStats reports cache statistics
func (s *Service) CacheStats() cache.Stats {
	return s.cache.GetStats()
}

// TopContributors aggregates contributors across the user's most active
// collaborative repositories. The fan-out is bounded by the worker pool and
// individual repository failures degrade to empty results, so one private or
// rate-limited repository cannot blank out the whole surface.
func (s *Service) TopContributors(
	ctx context.Context,
	username string,
	limit int,
) ([]TopContributor, error) {
	list, err := s.UserRepositories(ctx, username, "created")
	if err != nil {
		return nil, err
	}

	candidates := collaborativeRepos(list.Repositories)
	if len(candidates) == 0 {
		return []TopContributor{}, nil
	}

	tasks := make([]github.Task, 0, len(candidates))

	for _, repo := range candidates {
		name := repo.Name
		tasks = append(tasks, github.Task{
			ID: name,
			Run: func(ctx context.Context) (interface{}, error) {
				return s.client.Contributors(ctx, username, name, s.cfg.Enrich.ContribPerRepo)
			},
		})
	}

	results := s.pool.Execute(ctx, tasks)

	totals := make(map[string]*TopContributor)
	order := make([]string, 0)

	for _, result := range results {
		if result.Error != nil {
			s.logger.Warn("contributor fetch degraded to empty",
				zap.String("repository", result.ID),
				zap.Error(result.Error),
			)

			continue
		}

		contributors, ok := result.Data.([]github.Contributor)
		if !ok {
			continue
		}

		count := 0

		for _, contrib := range contributors {
			// The owner dominates their own repositories; skip them
			if strings.EqualFold(contrib.Login, username) {
				continue
			}

			if count >= contributorsPerRepo {
				break
			}

			count++

			if existing, ok := totals[contrib.Login]; ok {
				existing.TotalContributions += contrib.Contributions
				existing.RepositoryCount++

				continue
			}

			totals[contrib.Login] = &TopContributor{
				Login:              contrib.Login,
				AvatarURL:          contrib.AvatarURL,
				TotalContributions: contrib.Contributions,
				RepositoryCount:    1,
			}
			order = append(order, contrib.Login)
		}
	}

	aggregated := make([]TopContributor, 0, len(order))
	for _, login := range order {
		aggregated = append(aggregated, *totals[login])
	}

	sort.SliceStable(aggregated, func(i, j int) bool {
		return aggregated[i].TotalContributions > aggregated[j].TotalContributions
	})

	if limit > 0 && len(aggregated) > limit {
		aggregated = aggregated[:limit]
	}

	return aggregated, nil
}

// collaborativeRepos picks the repositories worth a contributor lookup:
// non-fork, non-empty, with some activity, ranked by stars + forks plus a
// bonus for updates in the last 30 days.
func collaborativeRepos(repos []github.Repository) []github.Repository {
	recentCutoff := time.Now().AddDate(0, 0, -30)

	candidates := make([]github.Repository, 0, len(repos))

	for _, repo := range repos {
		if repo.Fork || repo.Size == 0 {
			continue
		}

		if repo.StargazersCount == 0 && repo.ForksCount == 0 {
			continue
		}

		candidates = append(candidates, repo)
	}

	score := func(repo github.Repository) int {
		s := repo.StargazersCount + repo.ForksCount
		if repo.UpdatedAt.After(recentCutoff) {
			s += recentActivityBonus
		}

		return s
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})

	if len(candidates) > collaborativeRepoCap {
		candidates = candidates[:collaborativeRepoCap]
	}

	return candidates
}

func (s *Service) rateLimitInfo() apperrors.RateLimitInfo {
	status := s.tracker.Status()

	return apperrors.RateLimitInfo{
		Authenticated: s.cfg.Authenticated(),
		Limit:         status.Limit,
		Remaining:     status.Remaining,
		Reset:         status.Reset,
	}
}

func repoCacheKey(username, sortMode string) string {
	return fmt.Sprintf("user:%s:repos:%s", username, sortMode)
}

func profileCacheKey(username string) string {
	return fmt.Sprintf("user:%s:profile", username)
}
