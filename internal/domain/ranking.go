package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Ranker turns a raw post corpus into a ranked candidate list for a query.
type Ranker struct {
	embedder  Embedder
	minLength int
	logger    *slog.Logger
	now       func() time.Time
}

// NewRanker creates a Ranker. minLength <= 0 selects DefaultMinPostLength.
func NewRanker(embedder Embedder, minLength int, logger *slog.Logger) *Ranker {
	if minLength <= 0 {
		minLength = DefaultMinPostLength
	}
	return &Ranker{
		embedder:  embedder,
		minLength: minLength,
		logger:    logger,
		now:       time.Now,
	}
}

// Rank aggregates posts per author, embeds every composite document in a
// single batched call plus one call for the query, scores each candidate, and
// returns the top k in descending score order. Ties keep aggregation order.
// An embedding failure aborts the run; retries, if any, belong to the caller.
func (r *Ranker) Rank(ctx context.Context, posts []RawPost, query string, k int) ([]RankedCandidate, error) {
	return r.rank(ctx, posts, query, query, k)
}

// RankWithAuthorHint ranks like Rank, but appends an author hint to the text
// embedded for the query. The surface boosts still score against the plain
// query, so the hint steers the semantic match without inflating term boosts.
func (r *Ranker) RankWithAuthorHint(ctx context.Context, posts []RawPost, query, authorHint string, k int) ([]RankedCandidate, error) {
	embedText := query
	if authorHint != "" {
		embedText = query + " " + authorHint
	}
	return r.rank(ctx, posts, query, embedText, k)
}

func (r *Ranker) rank(ctx context.Context, posts []RawPost, query, embedText string, k int) ([]RankedCandidate, error) {
	docs := AggregatePosts(posts, r.minLength)
	if len(docs) == 0 {
		return nil, nil
	}

	r.logger.Debug("aggregated posts", "posts", len(posts), "authors", len(docs))

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.CompositeText
	}

	docVectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(docVectors) != len(docs) {
		return nil, fmt.Errorf("embed documents: got %d vectors for %d documents", len(docVectors), len(docs))
	}

	queryVectors, err := r.embedder.EmbedTexts(ctx, []string{embedText})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors for one text", len(queryVectors))
	}

	now := r.now()
	candidates := make([]RankedCandidate, len(docs))
	for i, doc := range docs {
		candidates[i] = RankedCandidate{
			AggregatedDocument: doc,
			Score:              HybridScore(docVectors[i], queryVectors[0], doc, query, now),
			Embedding:          docVectors[i],
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if k > 0 && k < len(candidates) {
		candidates = candidates[:k]
	}
	return candidates, nil
}
