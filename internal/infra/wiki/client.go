// Package wiki implements the primary article source backed by the MediaWiki
// Action API (Russian Wikipedia by default). It exposes free-text search with
// the engine's spelling suggestion and plain-text page extraction.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"promopost/internal/resilience/retry"
)

const defaultAPIURL = "https://ru.wikipedia.org/w/api.php"

// Client queries the MediaWiki Action API.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithAPIURL points the client at a different MediaWiki installation.
// Used for tests and non-Russian wikis.
func WithAPIURL(u string) Option {
	return func(c *Client) { c.apiURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a MediaWiki API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiURL:     defaultAPIURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchResponse mirrors the list=search API response.
type searchResponse struct {
	Query struct {
		SearchInfo struct {
			Suggestion string `json:"suggestion"`
		} `json:"searchinfo"`
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
}

// Search performs a free-text title search. It returns the candidate titles
// in engine order and the engine's spelling suggestion, if any.
func (c *Client) Search(ctx context.Context, query string) ([]string, string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srinfo":   {"suggestion"},
		"srlimit":  {"10"},
		"format":   {"json"},
	}

	var sr searchResponse
	if err := c.get(ctx, params, &sr); err != nil {
		return nil, "", fmt.Errorf("wiki search %q: %w", query, err)
	}

	titles := make([]string, 0, len(sr.Query.Search))
	for _, hit := range sr.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, sr.Query.SearchInfo.Suggestion, nil
}

// extractResponse mirrors the prop=extracts API response. The missing-page
// marker is decoded presence-only: the v1 JSON format encodes it as an empty
// string, formatversion=2 as a boolean.
type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string          `json:"title"`
			Extract string          `json:"extract"`
			Missing json.RawMessage `json:"missing,omitempty"`
		} `json:"pages"`
	} `json:"query"`
}

// Fetch returns the plain-text content of the article with the given title.
// A missing page yields an empty string without an error; absence of an
// article is an empty-result condition, not a failure.
func (c *Client) Fetch(ctx context.Context, title string) (string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"explaintext": {"1"},
		"titles":      {title},
		"format":      {"json"},
	}

	var er extractResponse
	if err := c.get(ctx, params, &er); err != nil {
		return "", fmt.Errorf("wiki fetch %q: %w", title, err)
	}

	for _, page := range er.Query.Pages {
		if len(page.Missing) > 0 {
			continue
		}
		return page.Extract, nil
	}
	return "", nil
}

func (c *Client) get(ctx context.Context, params url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "promopost/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
