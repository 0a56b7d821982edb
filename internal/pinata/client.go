// Package pinata is the content-addressed storage adapter, backed by the
// Pinata pinning API and an IPFS gateway.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flyfishlabs/bountyd/internal/domain"
)

const (
	defaultAPIBase = "https://api.pinata.cloud"
	defaultGateway = "https://ipfs.io"
)

// Client talks to Pinata for pinning and to an IPFS gateway for retrieval.
// It implements domain.ContentStore and domain.PostSource.
type Client struct {
	apiBase    string
	gateway    string
	jwt        string
	label      string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Config configures a pinata Client.
type Config struct {
	// JWT authenticates pinning and listing calls. Required.
	JWT string

	// Gateway is the base URL used for retrieval, e.g.
	// https://example.mypinata.cloud. Defaults to the public ipfs.io
	// gateway.
	Gateway string

	// APIBase overrides the Pinata API origin, mainly for tests.
	APIBase string

	// DatasetLabel selects which pinned files FetchAll reads: only files
	// whose name contains the label are treated as post datasets.
	DatasetLabel string
}

// NewClient creates a Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.JWT == "" {
		return nil, fmt.Errorf("pinata JWT is required")
	}
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	gateway := cfg.Gateway
	if gateway == "" {
		gateway = defaultGateway
	}
	return &Client{
		apiBase: apiBase,
		gateway: gateway,
		jwt:     cfg.JWT,
		label:   cfg.DatasetLabel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}, nil
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// Put pins doc as JSON and returns its content identifier.
func (c *Client) Put(ctx context.Context, doc any) (string, error) {
	return c.pin(ctx, map[string]any{"pinataContent": doc})
}

// PublishDataset pins a batch of raw posts under a name carrying the dataset
// label, so later FetchAll calls pick it up.
func (c *Client) PublishDataset(ctx context.Context, posts []domain.RawPost) (string, error) {
	stored := make([]storedPost, len(posts))
	for i, p := range posts {
		stored[i] = storedPost{
			AuthorFullname: p.Author,
			Text:           p.Text,
		}
		if !p.Timestamp.IsZero() {
			stored[i].CreatedAt = p.Timestamp.UTC().Format(time.RFC3339)
		}
	}

	name := fmt.Sprintf("%s-%d", c.label, c.now().Unix())
	return c.pin(ctx, map[string]any{
		"pinataContent":  stored,
		"pinataMetadata": map[string]any{"name": name},
	})
}

func (c *Client) pin(ctx context.Context, body any) (string, error) {
	var resp pinResponse
	if err := c.post(ctx, "/pinning/pinJSONToIPFS", body, &resp); err != nil {
		return "", fmt.Errorf("pin content: %w", err)
	}
	if resp.IpfsHash == "" {
		return "", fmt.Errorf("pin content: no hash in response")
	}
	return resp.IpfsHash, nil
}

// Get retrieves the JSON document stored under cid from the gateway.
func (c *Client) Get(ctx context.Context, cid string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gateway+"/ipfs/"+cid, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", cid, err)
	}
	defer resp.Body.Close()

	// 422 is what gateways return for malformed or unresolvable CIDs;
	// treat it like a plain miss.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("fetch %s: %w", cid, domain.ErrContentNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: gateway status %d", cid, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", cid, err)
	}
	return nil
}

// storedPost is the wire shape of one post inside a pinned dataset file.
type storedPost struct {
	AuthorFullname string `json:"authorFullname"`
	Text           string `json:"text"`
	CreatedAt      string `json:"createdAt,omitempty"`
}

type fileListing struct {
	Data struct {
		Files []struct {
			CID  string `json:"cid"`
			Name string `json:"name"`
		} `json:"files"`
	} `json:"data"`
}

// FetchAll lists pinned files, picks the ones carrying the dataset label, and
// concatenates their posts. Files that fail to fetch or decode are skipped;
// an empty corpus is not an error here (the caller decides).
func (c *Client) FetchAll(ctx context.Context) ([]domain.RawPost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/v3/files/public", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list files: status %d: %s", resp.StatusCode, body)
	}

	var listing fileListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode file listing: %w", err)
	}

	var posts []domain.RawPost
	for _, f := range listing.Data.Files {
		if c.label != "" && !strings.Contains(f.Name, c.label) {
			continue
		}

		var stored []storedPost
		if err := c.Get(ctx, f.CID, &stored); err != nil {
			c.logger.Warn("skipping unreadable dataset file", "cid", f.CID, "error", err)
			continue
		}
		for _, sp := range stored {
			posts = append(posts, c.toRawPost(sp))
		}
	}
	return posts, nil
}

func (c *Client) toRawPost(sp storedPost) domain.RawPost {
	post := domain.RawPost{
		Author: sp.AuthorFullname,
		Text:   sp.Text,
	}
	if post.Author == "" {
		post.Author = domain.UnknownAuthor
	}
	if ts, err := time.Parse(time.RFC3339, sp.CreatedAt); err == nil {
		post.Timestamp = ts
	} else {
		// No usable source timestamp: fall back to ingestion time.
		post.Timestamp = c.now()
	}
	return post
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.jwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
