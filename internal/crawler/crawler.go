// Package crawler fetches a web page and reduces it to markdown suitable for
// prompting.
package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 2 << 20

var (
	titlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptPattern = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</\w+>`)
)

// Page is one crawled web page.
type Page struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

// Crawler fetches pages over plain HTTP.
type Crawler struct {
	httpClient *http.Client
	conv       *converter.Converter
	logger     *slog.Logger
}

// New creates a Crawler.
func New(logger *slog.Logger) *Crawler {
	return &Crawler{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
			),
		),
		logger: logger,
	}
}

// Fetch downloads url and converts its body to markdown.
func (c *Crawler) Fetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}

	html := string(body)
	title := extractTitle(html)

	markdown, err := c.conv.ConvertString(scriptPattern.ReplaceAllString(html, ""))
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", url, err)
	}

	c.logger.Debug("crawled page", "url", url, "title", title, "bytes", len(markdown))

	return &Page{
		URL:      url,
		Title:    title,
		Markdown: strings.TrimSpace(markdown),
	}, nil
}

func extractTitle(html string) string {
	m := titlePattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
