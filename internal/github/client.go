package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v53/github"
	"golang.org/x/oauth2"

	"github.com/gitline/gitline/internal/config"
	apperrors "github.com/gitline/gitline/internal/errors"
	"github.com/gitline/gitline/internal/ratelimit"
)

const userAgent = "gitline"

// API defines the upstream GitHub operations the fetch pipeline consumes
type API interface {
	// Profile fetches a user's profile. It doubles as the existence probe:
	// a missing user surfaces as a user_not_found error.
	Profile(ctx context.Context, username string) (*Profile, error)

	// Repositories fetches a single page of a user's public repositories,
	// normalized. Page numbering starts at 1.
	Repositories(ctx context.Context, username, sort string, perPage, page int) ([]Repository, error)

	// Contributors fetches up to limit contributors for owner/repo
	Contributors(ctx context.Context, owner, repo string, limit int) ([]Contributor, error)

	// RateLimit fetches the live core rate-limit state from upstream
	RateLimit(ctx context.Context) (*RateSnapshot, error)
}

// Client implements API against the GitHub REST API. Every response updates
// the shared rate-limit tracker; upstream 403/429 rejections clamp it.
type Client struct {
	gh            *gh.Client
	tracker       *ratelimit.Tracker
	authenticated bool
}

// NewClient creates a GitHub API client. With a token configured the hourly
// budget is 5000 requests, otherwise 60. BaseURL is overridable for tests.
func NewClient(cfg config.GitHubConfig, tracker *ratelimit.Tracker) (*Client, error) {
	var httpClient *http.Client

	authenticated := strings.TrimSpace(cfg.Token) != ""
	if authenticated {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	} else {
		httpClient = &http.Client{}
	}

	httpClient.Timeout = cfg.Timeout

	client := gh.NewClient(httpClient)
	client.UserAgent = userAgent

	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", cfg.BaseURL, err)
		}

		client.BaseURL = base
	}

	return &Client{
		gh:            client,
		tracker:       tracker,
		authenticated: authenticated,
	}, nil
}

// Profile fetches a user's profile
func (c *Client) Profile(ctx context.Context, username string) (*Profile, error) {
	user, resp, err := c.gh.Users.Get(ctx, username)
	c.record(resp)

	if err != nil {
		return nil, c.classify(err)
	}

	return normalizeProfile(user), nil
}

// Repositories fetches one page of a user's public repositories
func (c *Client) Repositories(
	ctx context.Context,
	username, sort string,
	perPage, page int,
) ([]Repository, error) {
	opts := &gh.RepositoryListOptions{
		Sort:      sort,
		Direction: "desc",
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	raw, resp, err := c.gh.Repositories.List(ctx, username, opts)
	c.record(resp)

	if err != nil {
		return nil, c.classify(err)
	}

	repos := make([]Repository, 0, len(raw))

	for _, r := range raw {
		if repo, ok := normalizeRepository(r); ok {
			repos = append(repos, repo)
		}
	}

	return repos, nil
}

// Contributors fetches up to limit contributors for owner/repo
func (c *Client) Contributors(
	ctx context.Context,
	owner, repo string,
	limit int,
) ([]Contributor, error) {
	opts := &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: limit},
	}

	raw, resp, err := c.gh.Repositories.ListContributors(ctx, owner, repo, opts)
	c.record(resp)

	if err != nil {
		return nil, c.classify(err)
	}

	contributors := make([]Contributor, 0, len(raw))

	for _, contrib := range raw {
		if contrib.GetLogin() == "" {
			continue
		}

		contributors = append(contributors, Contributor{
			Login:         contrib.GetLogin(),
			Contributions: contrib.GetContributions(),
			AvatarURL:     contrib.GetAvatarURL(),
			Type:          contrib.GetType(),
		})
	}

	return contributors, nil
}

// RateLimit fetches the live core rate-limit state from upstream
func (c *Client) RateLimit(ctx context.Context) (*RateSnapshot, error) {
	limits, resp, err := c.gh.RateLimits(ctx)
	c.record(resp)

	if err != nil {
		return nil, c.classify(err)
	}

	core := limits.GetCore()

	return &RateSnapshot{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Used:      core.Limit - core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// record feeds the tracker from response rate headers, falling back to a
// pessimistic local count when the response carried none.
func (c *Client) record(resp *gh.Response) {
	if resp != nil && resp.Rate.Limit > 0 {
		c.tracker.Record(resp.Rate.Remaining, resp.Rate.Reset.Time)
		return
	}

	c.tracker.RecordLocal()
}

// classify maps upstream failures onto the closed error kinds. Rate-limit
// rejections clamp the tracker to zero budget first.
func (c *Client) classify(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		c.tracker.Exhaust(rateErr.Rate.Reset.Time)
		return apperrors.NewRateLimited(c.rateLimitInfo())
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var reset time.Time
		if abuseErr.RetryAfter != nil {
			reset = time.Now().Add(*abuseErr.RetryAfter)
		}

		c.tracker.Exhaust(reset)

		return apperrors.NewRateLimited(c.rateLimitInfo())
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		status := respErr.Response.StatusCode

		switch {
		case status == http.StatusNotFound:
			return apperrors.Wrap(err, apperrors.ErrTypeNotFound, "resource not found on GitHub")
		case status == http.StatusForbidden || status == http.StatusTooManyRequests:
			c.tracker.Exhaust(time.Time{})
			return apperrors.NewRateLimited(c.rateLimitInfo())
		case status >= http.StatusInternalServerError:
			return apperrors.Wrapf(err, apperrors.ErrTypeServer, "GitHub API error %d", status)
		default:
			return apperrors.Wrapf(err, apperrors.ErrTypeServer, "unexpected GitHub API error %d", status)
		}
	}

	// No response received
	return apperrors.Wrap(err, apperrors.ErrTypeNetwork, "GitHub API is not responding").
		WithSuggestion("Check your network connection").
		WithSuggestion("GitHub may be experiencing an outage; try again shortly")
}

func (c *Client) rateLimitInfo() apperrors.RateLimitInfo {
	status := c.tracker.Status()

	return apperrors.RateLimitInfo{
		Authenticated: c.authenticated,
		Limit:         status.Limit,
		Remaining:     status.Remaining,
		Reset:         status.Reset,
	}
}
