package domain

import (
	"fmt"
	"strings"
)

// DefaultMinPostLength is the minimum post length, in bytes, for a post to
// survive aggregation.
const DefaultMinPostLength = 50

// AggregatePosts filters out posts shorter than minLength and groups the
// survivors by author identity, preserving the first-seen order of authors.
// Every qualifying post contributes to exactly one document; authors with no
// qualifying posts produce none.
//
// A group's LastTimestamp is taken from its last post in insertion order, not
// the maximum timestamp. With non-chronological input the recency boost can
// therefore key off an older post; this mirrors how the corpus is produced
// upstream, where files arrive in capture order.
func AggregatePosts(posts []RawPost, minLength int) []AggregatedDocument {
	if minLength <= 0 {
		minLength = DefaultMinPostLength
	}

	var order []string
	groups := make(map[string]*AggregatedDocument)

	for _, p := range posts {
		if len(p.Text) < minLength {
			continue
		}
		author := p.Author
		if author == "" {
			author = UnknownAuthor
		}

		doc, ok := groups[author]
		if !ok {
			doc = &AggregatedDocument{Author: author}
			groups[author] = doc
			order = append(order, author)
		}
		doc.OriginalTexts = append(doc.OriginalTexts, p.Text)
		doc.LastTimestamp = p.Timestamp
	}

	docs := make([]AggregatedDocument, 0, len(order))
	for _, author := range order {
		doc := groups[author]
		doc.CompositeText = compositeText(doc.Author, doc.OriginalTexts)
		docs = append(docs, *doc)
	}
	return docs
}

func compositeText(author string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Author: %s\nPosts:\n", author)
	for i, t := range texts {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, t)
	}
	return b.String()
}
