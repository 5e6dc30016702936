package github

import (
	"time"

	gh "github.com/google/go-github/v53/github"
)

// Repository is the normalized shape served to callers. Records are built
// once from raw API payloads and immutable thereafter; upstream fields that
// fail the expected shape are dropped or null-coalesced rather than passed
// through untyped.
type Repository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	Homepage        string    `json:"homepage,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	StargazersCount int       `json:"stargazers_count"`
	WatchersCount   int       `json:"watchers_count"`
	ForksCount      int       `json:"forks_count"`
	OpenIssuesCount int       `json:"open_issues_count"`
	Language        string    `json:"language,omitempty"`
	Topics          []string  `json:"topics"`
	Fork            bool      `json:"fork"`
	Archived        bool      `json:"archived"`
	Disabled        bool      `json:"disabled"`
	Private         bool      `json:"private"`
	Size            int       `json:"size"`
	DefaultBranch   string    `json:"default_branch"`
	License         *License  `json:"license"`
}

// License represents repository license information
type License struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	SPDXID string `json:"spdx_id"`
}

// Profile represents a GitHub user profile
type Profile struct {
	Login           string    `json:"login"`
	ID              int64     `json:"id"`
	Name            string    `json:"name,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Company         string    `json:"company,omitempty"`
	Location        string    `json:"location,omitempty"`
	Email           string    `json:"email,omitempty"`
	Blog            string    `json:"blog,omitempty"`
	TwitterUsername string    `json:"twitter_username,omitempty"`
	AvatarURL       string    `json:"avatar_url"`
	HTMLURL         string    `json:"html_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PublicRepos     int       `json:"public_repos"`
	PublicGists     int       `json:"public_gists"`
	Followers       int       `json:"followers"`
	Following       int       `json:"following"`
}

// Contributor represents a repository contributor
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
	AvatarURL     string `json:"avatar_url"`
	Type          string `json:"type"`
}

// RateSnapshot is the upstream rate-limit state as last reported by the API
type RateSnapshot struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset"`
}

// normalizeRepository converts a raw API payload into the immutable
// Repository value. Records without an id or a valid created timestamp are
// rejected.
func normalizeRepository(r *gh.Repository) (Repository, bool) {
	if r == nil || r.GetID() == 0 || r.GetCreatedAt().Time.IsZero() {
		return Repository{}, false
	}

	repo := Repository{
		ID:              r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.GetDescription(),
		HTMLURL:         r.GetHTMLURL(),
		Homepage:        r.GetHomepage(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
		PushedAt:        r.GetPushedAt().Time,
		StargazersCount: r.GetStargazersCount(),
		WatchersCount:   r.GetWatchersCount(),
		ForksCount:      r.GetForksCount(),
		OpenIssuesCount: r.GetOpenIssuesCount(),
		Language:        r.GetLanguage(),
		Topics:          r.Topics,
		Fork:            r.GetFork(),
		Archived:        r.GetArchived(),
		Disabled:        r.GetDisabled(),
		Private:         r.GetPrivate(),
		Size:            r.GetSize(),
		DefaultBranch:   r.GetDefaultBranch(),
	}

	if repo.Topics == nil {
		repo.Topics = []string{}
	}

	if lic := r.GetLicense(); lic != nil {
		repo.License = &License{
			Key:    lic.GetKey(),
			Name:   lic.GetName(),
			SPDXID: lic.GetSPDXID(),
		}
	}

	return repo, true
}

func normalizeProfile(u *gh.User) *Profile {
	return &Profile{
		Login:           u.GetLogin(),
		ID:              u.GetID(),
		Name:            u.GetName(),
		Bio:             u.GetBio(),
		Company:         u.GetCompany(),
		Location:        u.GetLocation(),
		Email:           u.GetEmail(),
		Blog:            u.GetBlog(),
		TwitterUsername: u.GetTwitterUsername(),
		AvatarURL:       u.GetAvatarURL(),
		HTMLURL:         u.GetHTMLURL(),
		CreatedAt:       u.GetCreatedAt().Time,
		UpdatedAt:       u.GetUpdatedAt().Time,
		PublicRepos:     u.GetPublicRepos(),
		PublicGists:     u.GetPublicGists(),
		Followers:       u.GetFollowers(),
		Following:       u.GetFollowing(),
	}
}
