// Package insights derives display statistics and expertise-area labels
// from a user's normalized repository list.
package insights

import (
	"sort"
	"strings"

	"github.com/gitline/gitline/internal/github"
)

// LanguageCount is one row of the language histogram
type LanguageCount struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
}

// LanguageStats returns the topN most used primary languages
func LanguageStats(repos []github.Repository, topN int) []LanguageCount {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, repo := range repos {
		if repo.Language == "" {
			continue
		}

		if _, seen := counts[repo.Language]; !seen {
			order = append(order, repo.Language)
		}

		counts[repo.Language]++
	}

	stats := make([]LanguageCount, 0, len(order))
	for _, language := range order {
		stats = append(stats, LanguageCount{Language: language, Count: counts[language]})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Count > stats[j].Count
	})

	if topN > 0 && len(stats) > topN {
		stats = stats[:topN]
	}

	return stats
}

// MostActiveYear returns the year with the most repository creations,
// or 0 for an empty list.
func MostActiveYear(repos []github.Repository) int {
	counts := make(map[int]int)

	for _, repo := range repos {
		counts[repo.CreatedAt.Year()]++
	}

	best, bestCount := 0, 0

	for year, count := range counts {
		if count > bestCount || (count == bestCount && year > best) {
			best, bestCount = year, count
		}
	}

	return best
}

// TopStarred returns the topN repositories by star count
func TopStarred(repos []github.Repository, topN int) []github.Repository {
	sorted := make([]github.Repository, len(repos))
	copy(sorted, repos)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StargazersCount > sorted[j].StargazersCount
	})

	if topN > 0 && len(sorted) > topN {
		sorted = sorted[:topN]
	}

	return sorted
}

// expertiseRule classifies a repository by topics, name substrings, and
// primary language.
type expertiseRule struct {
	label     string
	topics    []string
	keywords  []string
	languages []string
}

// Ordered, first-match: a repository lands in exactly one bucket
var expertiseRules = []expertiseRule{
	{
		label:     "Web Development",
		topics:    []string{"web", "website", "frontend", "backend", "html", "css", "react", "vue", "angular"},
		keywords:  []string{"website", "web", "app", "frontend", "backend", "react", "vue"},
		languages: []string{"HTML", "CSS", "JavaScript", "TypeScript"},
	},
	{
		label:     "Mobile Development",
		topics:    []string{"mobile", "android", "ios", "react-native", "flutter", "swift", "kotlin"},
		keywords:  []string{"mobile", "android", "ios", "flutter"},
		languages: []string{"Swift", "Kotlin", "Dart"},
	},
	{
		label:    "Backend Development",
		topics:   []string{"api", "backend", "server", "microservice", "rest", "graphql"},
		keywords: []string{"api", "server", "backend", "service"},
	},
	{
		label:    "AI/ML",
		topics:   []string{"ai", "ml", "machine-learning", "data-science", "tensorflow", "pytorch", "sklearn"},
		keywords: []string{"ai", "ml", "data", "neural", "learning", "model"},
	},
	{
		label:    "Libraries & Tools",
		topics:   []string{"library", "package", "framework", "tool", "cli", "npm", "pip"},
		keywords: []string{"lib", "tool", "util", "cli", "helper"},
	},
	{
		label:     "Data Science",
		topics:    []string{"data", "analytics", "visualization", "jupyter", "notebook"},
		keywords:  []string{"data", "analysis", "chart", "graph"},
		languages: []string{"R", "Jupyter Notebook"},
	},
}

// ExpertiseAreas buckets each repository into a project-type label and
// returns the topN labels by frequency, ties broken by first-encountered
// order.
func ExpertiseAreas(repos []github.Repository, topN int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)

	record := func(label string) {
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}

		counts[label]++
	}

	for _, repo := range repos {
		record(classify(repo))
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	return order
}

func classify(repo github.Repository) string {
	for _, rule := range expertiseRules {
		if rule.matches(repo) {
			return rule.label
		}
	}

	switch repo.Language {
	case "":
		return "General Development"
	case "JavaScript", "TypeScript":
		return "JavaScript Development"
	default:
		return repo.Language + " Development"
	}
}

func (r expertiseRule) matches(repo github.Repository) bool {
	for _, topic := range repo.Topics {
		lower := strings.ToLower(topic)
		for _, want := range r.topics {
			if lower == want {
				return true
			}
		}
	}

	name := strings.ToLower(repo.Name)
	for _, keyword := range r.keywords {
		if strings.Contains(name, keyword) {
			return true
		}
	}

	for _, language := range r.languages {
		if repo.Language == language {
			return true
		}
	}

	return false
}
