package similarity

import (
	"crypto/sha256"
	"math"
	"regexp"
	"strings"
	"sync"
)

// stopWords is a fixed closed list of common English function words dropped
// during tokenization.
var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "and": {}, "a": {},
	"to": {}, "as": {}, "are": {}, "was": {}, "will": {}, "be": {}, "been": {},
	"have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "can": {},
	"could": {}, "should": {}, "would": {}, "may": {}, "might": {}, "must": {},
	"shall": {}, "with": {}, "for": {}, "of": {}, "in": {}, "by": {}, "from": {},
	"up": {}, "about": {}, "into": {}, "through": {}, "during": {}, "before": {},
	"after": {}, "above": {}, "below": {}, "between": {}, "among": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "i": {}, "me": {},
	"my": {}, "myself": {}, "we": {}, "our": {}, "ours": {}, "ourselves": {},
	"you": {}, "your": {}, "yours": {}, "yourself": {}, "yourselves": {},
	"he": {}, "him": {}, "his": {}, "himself": {}, "she": {}, "her": {},
	"hers": {}, "herself": {}, "it": {}, "its": {}, "itself": {}, "they": {},
	"them": {}, "their": {}, "theirs": {}, "themselves": {},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Vector is a sparse TF-IDF vector; absent terms have weight 0
type Vector map[string]float64

// Tokenize lowercases, strips non-word characters, splits on whitespace, and
// drops short tokens and stop-words.
func Tokenize(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")

	var tokens []string

	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 2 {
			continue
		}

		if _, stop := stopWords[word]; stop {
			continue
		}

		tokens = append(tokens, word)
	}

	return tokens
}

// Corpus holds the vocabulary and inverse-document-frequency statistics for
// a candidate set of documents. TF-IDF vectors are memoized per document,
// keyed by a hash of the full text so near-duplicate documents never collide.
type Corpus struct {
	totalDocs int
	idf       map[string]float64

	mu   sync.Mutex
	memo map[[sha256.Size]byte]Vector
}

// NewCorpus builds IDF statistics over the given documents
func NewCorpus(documents []string) *Corpus {
	docsContaining := make(map[string]int)

	for _, doc := range documents {
		seen := make(map[string]struct{})
		for _, token := range Tokenize(doc) {
			seen[token] = struct{}{}
		}

		for token := range seen {
			docsContaining[token]++
		}
	}

	idf := make(map[string]float64, len(docsContaining))

	for term, count := range docsContaining {
		if count < 1 {
			count = 1
		}

		idf[term] = math.Log(float64(len(documents)) / float64(count))
	}

	return &Corpus{
		totalDocs: len(documents),
		idf:       idf,
		memo:      make(map[[sha256.Size]byte]Vector),
	}
}

// IDF returns the inverse document frequency of term; terms outside the
// corpus vocabulary weigh 0.
func (c *Corpus) IDF(term string) float64 {
	return c.idf[term]
}

// Vocabulary returns the number of distinct terms in the corpus
func (c *Corpus) Vocabulary() int {
	return len(c.idf)
}

// Vector computes the TF-IDF vector for a document against the corpus IDF
// table. Zero-length documents yield an empty vector.
func (c *Corpus) Vector(document string) Vector {
	key := sha256.Sum256([]byte(document))

	c.mu.Lock()
	if vec, ok := c.memo[key]; ok {
		c.mu.Unlock()
		return vec
	}
	c.mu.Unlock()

	tf := termFrequency(Tokenize(document))

	vec := make(Vector, len(tf))
	for term, freq := range tf {
		vec[term] = freq * c.idf[term]
	}

	c.mu.Lock()
	c.memo[key] = vec
	c.mu.Unlock()

	return vec
}

// termFrequency returns each token's count divided by the token count of the
// document.
func termFrequency(tokens []string) Vector {
	if len(tokens) == 0 {
		return Vector{}
	}

	tf := make(Vector)
	for _, token := range tokens {
		tf[token]++
	}

	total := float64(len(tokens))
	for token := range tf {
		tf[token] /= total
	}

	return tf
}

// Cosine returns the cosine similarity of two sparse vectors: the dot
// product over the union of both vocabularies divided by the product of
// their L2 norms. Returns 0 if either norm is 0.
func Cosine(a, b Vector) float64 {
	var dot, normA, normB float64

	for term, va := range a {
		dot += va * b[term]
		normA += va * va
	}

	for _, vb := range b {
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
