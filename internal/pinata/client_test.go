package pinata

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flyfishlabs/bountyd/internal/domain"
)

func newTestClient(t *testing.T, apiBase, gateway string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		JWT:          "test-jwt",
		APIBase:      apiBase,
		Gateway:      gateway,
		DatasetLabel: "posts-dataset",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresJWT(t *testing.T) {
	_, err := NewClient(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestPut(t *testing.T) {
	var captured struct {
		PinataContent map[string]any `json:"pinataContent"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmStored"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	cid, err := c.Put(context.Background(), map[string]any{"title": "bounty"})
	require.NoError(t, err)

	assert.Equal(t, "QmStored", cid)
	assert.Equal(t, "bounty", captured.PinataContent["title"])
}

func TestPutNoHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, srv.URL).Put(context.Background(), "x")
	assert.Error(t, err)
}

func TestPutAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, srv.URL).Put(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPublishDatasetNamesFile(t *testing.T) {
	var captured struct {
		PinataContent  []storedPost   `json:"pinataContent"`
		PinataMetadata map[string]any `json:"pinataMetadata"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmBatch"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	c.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	ts := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	cid, err := c.PublishDataset(context.Background(), []domain.RawPost{
		{Author: "alice", Text: "hello", Timestamp: ts},
	})
	require.NoError(t, err)

	assert.Equal(t, "QmBatch", cid)
	assert.Equal(t, "posts-dataset-1700000000", captured.PinataMetadata["name"],
		"dataset names carry the label so FetchAll finds them")
	require.Len(t, captured.PinataContent, 1)
	assert.Equal(t, "alice", captured.PinataContent[0].AuthorFullname)
	assert.Equal(t, "2025-05-01T12:00:00Z", captured.PinataContent[0].CreatedAt)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ipfs/QmStored", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"title": "bounty"})
	}))
	defer srv.Close()

	var out map[string]string
	err := newTestClient(t, srv.URL, srv.URL).Get(context.Background(), "QmStored", &out)
	require.NoError(t, err)
	assert.Equal(t, "bounty", out["title"])
}

func TestGetNotFound(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnprocessableEntity} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		var out map[string]string
		err := newTestClient(t, srv.URL, srv.URL).Get(context.Background(), "QmGone", &out)
		assert.ErrorIs(t, err, domain.ErrContentNotFound, "status %d", status)
		srv.Close()
	}
}

func TestFetchAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v3/files/public", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-jwt", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"files": []map[string]string{
					{"cid": "QmA", "name": "posts-dataset-1"},
					{"cid": "QmSkip", "name": "unrelated-pin"},
					{"cid": "QmB", "name": "posts-dataset-2"},
					{"cid": "QmBad", "name": "posts-dataset-broken"},
				},
			},
		})
	})
	mux.HandleFunc("/ipfs/QmA", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]storedPost{
			{AuthorFullname: "alice", Text: "first", CreatedAt: "2025-05-01T12:00:00Z"},
		})
	})
	mux.HandleFunc("/ipfs/QmB", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]storedPost{
			{Text: "anonymous post"},
		})
	})
	mux.HandleFunc("/ipfs/QmBad", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "{corrupt")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	fallback := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fallback }

	posts, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	// QmSkip lacks the label and QmBad is undecodable; both are skipped.
	require.Len(t, posts, 2)
	assert.Equal(t, "alice", posts[0].Author)
	assert.Equal(t, time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC), posts[0].Timestamp)
	assert.Equal(t, domain.UnknownAuthor, posts[1].Author)
	assert.Equal(t, fallback, posts[1].Timestamp, "posts without timestamps get ingestion time")
}

func TestFetchAllListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, srv.URL).FetchAll(context.Background())
	assert.Error(t, err)
}
