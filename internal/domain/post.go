package domain

import "time"

// UnknownAuthor is the sentinel identity used when a post carries no author.
const UnknownAuthor = "Unknown"

// RawPost is a single ingested social-media item. Posts are pulled from the
// content store, fed through a ranking run, and discarded; they are never
// mutated.
type RawPost struct {
	// Author is the author identity, UnknownAuthor if the source had none.
	Author string

	// Text is the post body. May be empty.
	Text string

	// Timestamp is when the post was created. The zero value means the
	// source carried no timestamp.
	Timestamp time.Time
}

// AggregatedDocument is the per-author composite built from all of an
// author's qualifying posts.
type AggregatedDocument struct {
	// Author is the author identity the group is keyed by.
	Author string

	// CompositeText is the embedding input: a header line followed by each
	// post tagged with its ordinal index.
	CompositeText string

	// OriginalTexts holds the raw post texts in ingestion order, duplicates
	// preserved. Deduplication happens later, when bounty content is packaged.
	OriginalTexts []string

	// LastTimestamp is the timestamp of the group's last contributing post
	// in insertion order. Note this is not the maximum timestamp: if the
	// input is not chronological this may not be the wall-clock latest post.
	LastTimestamp time.Time
}

// RankedCandidate is an AggregatedDocument scored against a query.
type RankedCandidate struct {
	AggregatedDocument

	// Score is the hybrid relevance score. Unbounded above: term boosts
	// accumulate without a cap.
	Score float64

	// Embedding is the document's embedding vector used for the score.
	Embedding []float64
}
