// Package firehose ingests live social posts over a websocket stream,
// filters them by keyword, and publishes batches as new datasets.
package firehose

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flyfishlabs/bountyd/internal/domain"
)

const (
	reconnectDelay = 5 * time.Second
	statsInterval  = 30 * time.Second

	// postCollection is the only event collection this subscriber consumes.
	postCollection = "app.bsky.feed.post"
)

// DatasetPublisher stores a batch of posts as a new dataset and returns its
// content reference.
type DatasetPublisher interface {
	PublishDataset(ctx context.Context, posts []domain.RawPost) (string, error)
}

// PostCache keeps a local copy of ingested posts.
type PostCache interface {
	SavePost(ctx context.Context, post domain.RawPost) error
}

// Subscriber connects to the firehose and collects matching posts.
type Subscriber struct {
	url       string
	keywords  []string
	batchSize int
	publisher DatasetPublisher
	cache     PostCache
	logger    *slog.Logger

	buffer []domain.RawPost
}

// NewSubscriber creates a firehose subscriber. Keywords are matched
// case-insensitively against post text; an empty keyword list matches
// everything. A full buffer of batchSize posts is published as one dataset.
func NewSubscriber(
	firehoseURL string,
	keywords []string,
	batchSize int,
	publisher DatasetPublisher,
	cache PostCache,
	logger *slog.Logger,
) *Subscriber {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Subscriber{
		url:       firehoseURL,
		keywords:  lowered,
		batchSize: batchSize,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

// Start connects to the firehose and processes events until the context is
// cancelled. It automatically reconnects on transient errors.
func (s *Subscriber) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := s.subscribe(ctx); err != nil {
				s.logger.Error("firehose connection error, reconnecting", "error", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(reconnectDelay):
					// backoff before reconnecting
				}
			}
		}
	}
}

func (s *Subscriber) buildURL() string {
	u, err := url.Parse(s.url)
	if err != nil {
		return s.url
	}
	q := u.Query()
	q.Add("wantedCollections", postCollection)
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Subscriber) subscribe(ctx context.Context) error {
	wsURL := s.buildURL()
	s.logger.Info("connecting to firehose", "url", wsURL)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial firehose: %w", err)
	}
	defer conn.Close()

	s.logger.Info("connected to firehose")

	var eventsReceived, postsMatched int64
	lastStatsLog := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		event, err := parseEvent(message)
		if err != nil {
			s.logger.Error("failed to parse event", "error", err)
			continue
		}

		eventsReceived++

		if post, ok := s.matchPost(event); ok {
			postsMatched++
			s.collect(ctx, post)
		}

		if time.Since(lastStatsLog) >= statsInterval {
			s.logger.Info("firehose stats",
				"events_received", eventsReceived,
				"posts_matched", postsMatched,
				"buffered", len(s.buffer),
			)
			lastStatsLog = time.Now()
		}
	}
}

// matchPost extracts a post from a commit event and applies the keyword
// filter.
func (s *Subscriber) matchPost(event *streamEvent) (domain.RawPost, bool) {
	if event.Kind != "commit" || event.Commit == nil {
		return domain.RawPost{}, false
	}
	commit := event.Commit
	if commit.Collection != postCollection || commit.Operation != "create" || commit.Record == nil {
		return domain.RawPost{}, false
	}
	if !s.matches(commit.Record.Text) {
		return domain.RawPost{}, false
	}

	post := domain.RawPost{
		Author: event.DID,
		Text:   commit.Record.Text,
	}
	if ts, err := time.Parse(time.RFC3339, commit.Record.CreatedAt); err == nil {
		post.Timestamp = ts
	}
	return post, true
}

func (s *Subscriber) matches(text string) bool {
	if len(s.keywords) == 0 {
		return true
	}
	lowered := strings.ToLower(text)
	for _, k := range s.keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

func (s *Subscriber) collect(ctx context.Context, post domain.RawPost) {
	if err := s.cache.SavePost(ctx, post); err != nil {
		s.logger.Error("failed to cache post", "error", err)
	}

	s.buffer = append(s.buffer, post)
	if len(s.buffer) < s.batchSize {
		return
	}

	ref, err := s.publisher.PublishDataset(ctx, s.buffer)
	if err != nil {
		// Keep the batch and retry once more posts arrive.
		s.logger.Error("failed to publish dataset", "error", err, "posts", len(s.buffer))
		return
	}
	s.logger.Info("dataset published", "ref", ref, "posts", len(s.buffer))
	s.buffer = s.buffer[:0]
}
