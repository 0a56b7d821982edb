package domain

import (
	"math"
	"strings"
	"time"
)

const (
	phraseBoost  = 0.2
	authorBoost  = 0.3
	termBoost    = 0.1
	recencyBoost = 0.2
	recencyDays  = 30
	minTermLen   = 2
)

// CosineSimilarity returns the cosine of the angle between a and b. A zero
// magnitude on either side yields 0 rather than NaN, so zero embeddings rank
// on boosts alone.
func CosineSimilarity(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// HybridScore is the relevance score of a candidate document against a query:
// cosine similarity of the embeddings plus independent surface-text boosts.
// Deterministic given identical inputs; now anchors the recency boost.
func HybridScore(postEmbedding, queryEmbedding []float64, doc AggregatedDocument, query string, now time.Time) float64 {
	score := CosineSimilarity(postEmbedding, queryEmbedding)

	compositeLower := strings.ToLower(doc.CompositeText)
	queryLower := strings.ToLower(query)
	authorLower := strings.ToLower(doc.Author)

	// Exact phrase match against any single original post.
	for _, text := range doc.OriginalTexts {
		if strings.Contains(strings.ToLower(text), queryLower) {
			score += phraseBoost
			break
		}
	}

	if strings.Contains(queryLower, authorLower) {
		score += authorBoost
	}

	// Per-term overlap, uncapped.
	for _, term := range strings.Fields(queryLower) {
		if len(term) > minTermLen && strings.Contains(compositeLower, term) {
			score += termBoost
		}
	}

	if !doc.LastTimestamp.IsZero() {
		score += recency(doc.LastTimestamp, now)
	}

	return score
}

// recency decays linearly from recencyBoost at age zero to 0 at recencyDays.
func recency(ts, now time.Time) float64 {
	days := now.Sub(ts).Hours() / 24
	return math.Max(0, recencyBoost*(1-days/recencyDays))
}
