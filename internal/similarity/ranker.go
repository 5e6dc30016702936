package similarity

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gitline/gitline/internal/cache"
	"github.com/gitline/gitline/internal/github"
)

// Component weights for the blended similarity score. The total is not
// strictly bounded to [0,1]; with every signal maxed it approaches 1.4.
const (
	textWeight     = 0.5
	languageWeight = 0.3
	topicWeight    = 0.4
	activityWeight = 0.2
)

// Score breaks the blended similarity down by component. Sub-scores are
// unweighted; Total applies the weights.
type Score struct {
	Text     float64 `json:"text"`
	Language float64 `json:"language"`
	Topics   float64 `json:"topics"`
	Activity float64 `json:"activity"`
	Total    float64 `json:"total"`
}

// ScoredRepository pairs a candidate with its similarity to the subject
type ScoredRepository struct {
	Repository github.Repository `json:"repository"`
	Score      float64           `json:"score"`
	Components Score             `json:"components"`
}

// Ranker blends textual similarity with language, topic, and activity
// signals. Computed pair scores are cached briefly since the candidate pool
// changes slowly within a session.
type Ranker struct {
	pairCache *cache.Store
	pairTTL   time.Duration
}

// NewRanker creates a ranker. The cache is optional; pass nil to disable
// pair-score caching.
func NewRanker(pairCache *cache.Store, pairTTL time.Duration) *Ranker {
	return &Ranker{
		pairCache: pairCache,
		pairTTL:   pairTTL,
	}
}

// DocumentText joins the free-text metadata of a repository into the
// document used for TF-IDF.
func DocumentText(repo github.Repository) string {
	return strings.TrimSpace(
		repo.Name + " " + repo.Description + " " + strings.Join(repo.Topics, " "),
	)
}

// NewCorpusFor builds a TF-IDF corpus over a candidate pool
func NewCorpusFor(pool []github.Repository) *Corpus {
	documents := make([]string, len(pool))
	for i, repo := range pool {
		documents[i] = DocumentText(repo)
	}

	return NewCorpus(documents)
}

// Similarity scores candidate b against subject a using the given corpus
func (r *Ranker) Similarity(a, b github.Repository, corpus *Corpus) Score {
	key := pairKey(a.ID, b.ID)

	if r.pairCache != nil {
		if cached, ok := r.pairCache.Get(key); ok {
			if score, ok := cached.(Score); ok {
				return score
			}
		}
	}

	score := Score{
		Text:     Cosine(corpus.Vector(DocumentText(a)), corpus.Vector(DocumentText(b))),
		Language: languageMatch(a, b),
		Topics:   topicJaccard(a.Topics, b.Topics),
		Activity: activityCloseness(a, b),
	}

	score.Total = score.Text*textWeight +
		score.Language*languageWeight +
		score.Topics*topicWeight +
		score.Activity*activityWeight

	if r.pairCache != nil {
		r.pairCache.Set(key, score, r.pairTTL)
	}

	return score
}

// RankSimilar scores every candidate against the subject, excludes the
// subject itself, and returns the top limit candidates by descending score.
func (r *Ranker) RankSimilar(
	subject github.Repository,
	pool []github.Repository,
	limit int,
) []ScoredRepository {
	corpus := NewCorpusFor(append([]github.Repository{subject}, pool...))

	ranked := make([]ScoredRepository, 0, len(pool))

	for _, candidate := range pool {
		if candidate.ID == subject.ID {
			continue
		}

		components := r.Similarity(subject, candidate, corpus)
		ranked = append(ranked, ScoredRepository{
			Repository: candidate,
			Score:      components.Total,
			Components: components,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

// languageMatch is binary: 1 when both repositories declare the same
// primary language.
func languageMatch(a, b github.Repository) float64 {
	if a.Language != "" && a.Language == b.Language {
		return 1
	}

	return 0
}

// topicJaccard is the Jaccard similarity of the two topic sets, active only
// when topics exist on either side.
func topicJaccard(topicsA, topicsB []string) float64 {
	setA := make(map[string]struct{}, len(topicsA))
	for _, topic := range topicsA {
		setA[strings.ToLower(topic)] = struct{}{}
	}

	setB := make(map[string]struct{}, len(topicsB))
	for _, topic := range topicsB {
		setB[strings.ToLower(topic)] = struct{}{}
	}

	intersection := 0

	for topic := range setA {
		if _, ok := setB[topic]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// activityCloseness compares star counts on a log scale, so a 100-star and a
// 130-star repository score close while 10 vs 10k do not.
func activityCloseness(a, b github.Repository) float64 {
	activityA := math.Log10(float64(a.StargazersCount) + 1)
	activityB := math.Log10(float64(b.StargazersCount) + 1)

	maxActivity := math.Max(activityA, activityB)
	if maxActivity == 0 {
		return 0
	}

	return 1 - math.Abs(activityA-activityB)/maxActivity
}

// pairKey orders the pair so the symmetric score is cached once
func pairKey(idA, idB int64) string {
	if idA > idB {
		idA, idB = idB, idA
	}

	return fmt.Sprintf("similarity:%d:%d", idA, idB)
}
