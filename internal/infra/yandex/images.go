// Package yandex implements the scraping-backed providers: image acquisition
// from Yandex Images and the secondary (fallback) article source from Yandex
// web search. Both drive a scoped headless-browser session per attempt.
package yandex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"promopost/internal/infra/browser"
)

const (
	imageSearchURL = "https://yandex.ru/images/search?from=tabbar&text="

	// imageSelector matches result thumbnails on the image search page.
	imageSelector = "img.ImagesContentImage-Image"

	// resultWait bounds how long we wait for results to materialize.
	resultWait = 10 * time.Second
)

// ImageSearcher retrieves one representative image for a query.
type ImageSearcher struct {
	browserCfg browser.Config
	httpClient *http.Client

	// pick selects one of n results; swappable for deterministic tests.
	pick func(n int) int
}

// NewImageSearcher creates an image searcher using the given browser config.
func NewImageSearcher(cfg browser.Config) *ImageSearcher {
	return &ImageSearcher{
		browserCfg: cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// #nosec G404 -- the random pick is for variety across runs, not security.
		pick: rand.Intn,
	}
}

// AcquireImage searches Yandex Images for the query, waits for results,
// randomly selects one and downloads its bytes. The random selection is
// intentional: it gives variety across runs for recurring topics.
//
// The browser session lives for exactly one attempt and is torn down on
// every exit path; callers wrap this method with their retry policy.
func (s *ImageSearcher) AcquireImage(ctx context.Context, query string) ([]byte, error) {
	src, err := s.findImageURL(query)
	if err != nil {
		return nil, err
	}

	slog.Debug("image selected", slog.String("query", query))
	return s.download(ctx, src)
}

// findImageURL drives the browser: open the search page, wait for result
// elements, pick one and return its source URL.
func (s *ImageSearcher) findImageURL(query string) (_ string, err error) {
	sess, err := browser.NewSession(s.browserCfg)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	page, err := sess.OpenPage(imageSearchURL + url.QueryEscape(query))
	if err != nil {
		return "", err
	}

	// Bounded wait for the first result; a timeout here is a regular error
	// that the caller's retry policy handles.
	if _, err := page.Timeout(resultWait).Element(imageSelector); err != nil {
		return "", fmt.Errorf("wait for image results: %w", err)
	}

	elements, err := page.Elements(imageSelector)
	if err != nil {
		return "", fmt.Errorf("collect image results: %w", err)
	}
	if len(elements) == 0 {
		return "", fmt.Errorf("no image results for %q", query)
	}

	chosen := elements[s.pick(len(elements))]
	src, err := chosen.Attribute("src")
	if err != nil || src == nil || *src == "" {
		return "", fmt.Errorf("image result has no src attribute")
	}

	return absoluteURL(*src), nil
}

// download fetches the image bytes.
func (s *ImageSearcher) download(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("downloaded image is empty")
	}
	return data, nil
}

// absoluteURL resolves protocol-relative result sources.
func absoluteURL(src string) string {
	if len(src) >= 2 && src[:2] == "//" {
		return "https:" + src
	}
	return src
}
