package similarity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitline/gitline/internal/cache"
	"github.com/gitline/gitline/internal/github"
)

func repo(id int64, name, description, language string, stars int, topics ...string) github.Repository {
	if topics == nil {
		topics = []string{}
	}

	return github.Repository{
		ID:              id,
		Name:            name,
		Description:     description,
		Language:        language,
		StargazersCount: stars,
		Topics:          topics,
	}
}

func TestDocumentText(t *testing.T) {
	r := repo(1, "gin", "HTTP web framework", "Go", 100, "http", "router")
	assert.Equal(t, "gin HTTP web framework http router", DocumentText(r))
}

func TestSimilarity_Components(t *testing.T) {
	a := repo(1, "redis-client", "fast redis client library", "Go", 100, "redis", "cache")
	b := repo(2, "redis-tool", "redis client helper library", "Go", 120, "redis", "cli")
	c := repo(3, "image-editor", "photo editing desktop app", "Rust", 5)

	ranker := NewRanker(nil, 0)
	corpus := NewCorpusFor([]github.Repository{a, b, c})

	near := ranker.Similarity(a, b, corpus)
	far := ranker.Similarity(a, c, corpus)

	assert.Equal(t, 1.0, near.Language)
	assert.Zero(t, far.Language)

	// topics {redis,cache} vs {redis,cli}: 1 shared of 3
	assert.InDelta(t, 1.0/3.0, near.Topics, 1e-9)
	assert.Zero(t, far.Topics)

	assert.Greater(t, near.Text, far.Text)
	assert.Greater(t, near.Activity, far.Activity)
	assert.Greater(t, near.Total, far.Total)
}

func TestSimilarity_WeightedTotal(t *testing.T) {
	a := repo(1, "alpha", "", "Go", 10)
	b := repo(2, "beta", "", "Go", 10)

	ranker := NewRanker(nil, 0)
	corpus := NewCorpusFor([]github.Repository{a, b})

	score := ranker.Similarity(a, b, corpus)

	expected := score.Text*0.5 + score.Language*0.3 + score.Topics*0.4 + score.Activity*0.2
	assert.InDelta(t, expected, score.Total, 1e-9)

	// Identical stars on the same language: language and activity both max
	assert.Equal(t, 1.0, score.Language)
	assert.Equal(t, 1.0, score.Activity)
}

func TestSimilarity_EmptyLanguageNeverMatches(t *testing.T) {
	a := repo(1, "alpha", "", "", 10)
	b := repo(2, "beta", "", "", 10)

	ranker := NewRanker(nil, 0)
	corpus := NewCorpusFor([]github.Repository{a, b})

	assert.Zero(t, ranker.Similarity(a, b, corpus).Language)
}

func TestSimilarity_PairCacheSymmetric(t *testing.T) {
	store := cache.NewStore(time.Minute)
	defer store.Close()

	a := repo(1, "alpha cache store", "key value store", "Go", 10, "cache")
	b := repo(2, "beta cache tool", "cache inspection tool", "Go", 20, "cache")

	ranker := NewRanker(store, time.Minute)
	corpus := NewCorpusFor([]github.Repository{a, b})

	first := ranker.Similarity(a, b, corpus)
	reversed := ranker.Similarity(b, a, corpus)

	assert.Equal(t, first, reversed, "symmetric pair served from cache")

	stats := store.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRankSimilar(t *testing.T) {
	subject := repo(1, "redis-client", "fast redis client library", "Go", 100, "redis", "cache")
	near := repo(2, "redis-tool", "redis client helper library", "Go", 120, "redis", "cli")
	mid := repo(3, "http-cache", "caching http proxy", "Go", 80, "cache")
	far := repo(4, "image-editor", "photo editing desktop app", "Rust", 5)

	ranker := NewRanker(nil, 0)

	pool := []github.Repository{subject, near, mid, far}
	ranked := ranker.RankSimilar(subject, pool, 10)

	require.Len(t, ranked, 3, "subject excluded from its own ranking")

	assert.Equal(t, "redis-tool", ranked[0].Repository.Name)
	assert.Equal(t, "image-editor", ranked[2].Repository.Name)

	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Score, ranked[i].Score)
	}
}

func TestRankSimilar_Limit(t *testing.T) {
	subject := repo(1, "alpha tool", "utility library", "Go", 10)
	pool := []github.Repository{
		subject,
		repo(2, "beta tool", "utility library", "Go", 12),
		repo(3, "gamma tool", "utility library", "Go", 14),
		repo(4, "delta tool", "utility library", "Go", 16),
	}

	ranker := NewRanker(nil, 0)

	ranked := ranker.RankSimilar(subject, pool, 2)
	assert.Len(t, ranked, 2)
}

func TestTopicJaccard(t *testing.T) {
	assert.Equal(t, 1.0, topicJaccard([]string{"go", "cli"}, []string{"CLI", "GO"}))
	assert.Zero(t, topicJaccard([]string{"go"}, []string{"rust"}))
	assert.Zero(t, topicJaccard(nil, nil))
	assert.InDelta(t, 0.5, topicJaccard([]string{"go", "cli"}, []string{"go", "cli", "web", "api"}), 1e-9)
}

func TestActivityCloseness(t *testing.T) {
	equal := activityCloseness(repo(1, "a", "", "", 100), repo(2, "b", "", "", 100))
	assert.InDelta(t, 1.0, equal, 1e-9)

	near := activityCloseness(repo(1, "a", "", "", 100), repo(2, "b", "", "", 130))
	distant := activityCloseness(repo(1, "a", "", "", 10), repo(2, "b", "", "", 10000))

	assert.Greater(t, near, distant)

	zero := activityCloseness(repo(1, "a", "", "", 0), repo(2, "b", "", "", 0))
	assert.Zero(t, zero)
}
