package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flyfishlabs/bountyd/internal/retry"
)

// insightTopK is how many ranked candidates back an insight answer.
const insightTopK = 3

// overviewLimit caps how many posts a corpus overview lists.
const overviewLimit = 20

// InsightPost is one author composite that backed an insight answer.
type InsightPost struct {
	Author string  `json:"author"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

// OverviewPost is one row of a corpus overview.
type OverviewPost struct {
	No     int    `json:"no"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// InsightResult is the answer to a free-text query over the post corpus.
// Exactly one of RelevantPosts or AllPosts is populated, depending on whether
// the query asked about specific content or for the whole corpus.
type InsightResult struct {
	Answer        string        `json:"answer"`
	RelevantPosts []InsightPost `json:"relevantPosts,omitempty"`

	AllPosts      []OverviewPost `json:"allPosts,omitempty"`
	TotalPosts    int            `json:"totalPosts,omitempty"`
	UniqueAuthors int            `json:"uniqueAuthors,omitempty"`
}

// Insight answers a free-text query from the ingested post corpus. The top
// three author composites by hybrid score feed the model as context; an
// optional author hint sharpens the semantic match without changing the
// surface boosts. A query that asks for all posts gets a corpus overview
// instead of a ranked answer.
func (s *BountyService) Insight(ctx context.Context, query, authorHint string) (*InsightResult, error) {
	posts, err := retry.Do(ctx, fetchAttempts, s.fetchDelay, s.posts.FetchAll)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	kept := make([]RawPost, 0, len(posts))
	for _, p := range posts {
		if p.Text != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil, ErrNoPosts
	}

	if wantsAllPosts(query) {
		return s.overview(ctx, query, kept)
	}

	candidates, err := s.ranker.RankWithAuthorHint(ctx, kept, query, authorHint, insightTopK)
	if err != nil {
		return nil, fmt.Errorf("rank posts: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoPosts
	}

	contexts := make([]string, len(candidates))
	relevant := make([]InsightPost, len(candidates))
	for i, c := range candidates {
		contexts[i] = c.CompositeText
		relevant[i] = InsightPost{Author: c.Author, Text: c.CompositeText, Score: c.Score}
	}

	answer, err := s.completer.Complete(ctx, analyzePostPrompt(query, strings.Join(contexts, "\n\n")))
	if err != nil {
		return nil, fmt.Errorf("analyze posts: %w", err)
	}

	s.logger.Info("insight generated", "query", query, "candidates", len(candidates))

	return &InsightResult{
		Answer:        strings.TrimSpace(answer),
		RelevantPosts: relevant,
	}, nil
}

// wantsAllPosts reports whether the query asks for the whole corpus rather
// than an answer about specific content.
func wantsAllPosts(query string) bool {
	lowered := strings.ToLower(query)
	return strings.Contains(lowered, "all") && strings.Contains(lowered, "post")
}

// overview renders the corpus newest-first: the model formats it as a table
// and the structured rows carry the first overviewLimit posts.
func (s *BountyService) overview(ctx context.Context, query string, posts []RawPost) (*InsightResult, error) {
	sorted := make([]RawPost, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	type corpusPost struct {
		Author    string    `json:"author"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}
	flat := make([]corpusPost, len(sorted))
	for i, p := range sorted {
		flat[i] = corpusPost{Author: p.Author, Text: p.Text, Timestamp: p.Timestamp}
	}
	corpus, err := json.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("encode post corpus: %w", err)
	}

	answer, err := s.completer.Complete(ctx, getAllPostsPrompt(query, string(corpus)))
	if err != nil {
		return nil, fmt.Errorf("format posts: %w", err)
	}

	limit := len(sorted)
	if limit > overviewLimit {
		limit = overviewLimit
	}
	rows := make([]OverviewPost, limit)
	authors := make(map[string]struct{}, len(sorted))
	for i, p := range sorted {
		if i < limit {
			rows[i] = OverviewPost{No: i + 1, Author: p.Author, Text: p.Text}
		}
		authors[p.Author] = struct{}{}
	}

	s.logger.Info("posts overview generated", "posts", len(sorted), "authors", len(authors))

	return &InsightResult{
		Answer:        strings.TrimSpace(answer),
		AllPosts:      rows,
		TotalPosts:    len(sorted),
		UniqueAuthors: len(authors),
	}, nil
}
