package yandex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"promopost/internal/infra/browser"
)

const (
	webSearchURL = "https://yandex.ru/search/?text="

	// organicLinkSelector matches organic result links on the search page.
	organicLinkSelector = "a.Link.organic__greenurl"
)

// excludedHosts filters out the search engine's own properties, which never
// carry the article itself.
var excludedHosts = []string{"yandex", "dzen"}

// ArticleSearcher is the secondary (fallback) article source: a plain web
// search whose organic results are run through a readability extractor.
// It is best-effort by contract: a single clean failure yields an empty
// enrichment rather than a retry loop.
type ArticleSearcher struct {
	browserCfg     browser.Config
	extractTimeout time.Duration

	// extract is swappable for tests.
	extract func(ctx context.Context, pageURL string) (string, error)
}

// NewArticleSearcher creates the fallback article source.
func NewArticleSearcher(cfg browser.Config) *ArticleSearcher {
	s := &ArticleSearcher{
		browserCfg:     cfg,
		extractTimeout: 30 * time.Second,
	}
	s.extract = s.extractReadable
	return s
}

// FetchByQuery searches the web for the query and returns the text of the
// first organic result that extracts cleanly. An empty result is a valid
// outcome, not an error.
func (s *ArticleSearcher) FetchByQuery(ctx context.Context, query string) (string, error) {
	links, err := s.searchLinks(query)
	if err != nil {
		return "", err
	}
	return firstExtractable(ctx, links, s.extract), nil
}

// firstExtractable returns the text of the first link that extracts cleanly
// to non-empty content, or "" when none does.
func firstExtractable(ctx context.Context, links []string, extract func(context.Context, string) (string, error)) string {
	for _, link := range links {
		text, err := extract(ctx, link)
		if err != nil {
			slog.Debug("article extraction failed, trying next result",
				slog.String("url", link),
				slog.Any("error", err))
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

// searchLinks opens the search page in a scoped browser session and collects
// filtered organic result URLs. The session is torn down on every exit path.
func (s *ArticleSearcher) searchLinks(query string) ([]string, error) {
	sess, err := browser.NewSession(s.browserCfg)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	page, err := sess.OpenPage(webSearchURL + url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	if _, err := page.Timeout(resultWait).Element(organicLinkSelector); err != nil {
		return nil, fmt.Errorf("wait for search results: %w", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read search page: %w", err)
	}

	return extractOrganicLinks(html)
}

// extractOrganicLinks parses the search result HTML and returns organic
// result hrefs with the search engine's own properties filtered out.
func extractOrganicLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	var links []string
	doc.Find(organicLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if isExcluded(href) {
			return
		}
		links = append(links, href)
	})

	return links, nil
}

func isExcluded(link string) bool {
	lower := strings.ToLower(link)
	for _, host := range excludedHosts {
		if strings.Contains(lower, host) {
			return true
		}
	}
	return false
}

// extractReadable downloads the page and extracts the main article text.
func (s *ArticleSearcher) extractReadable(ctx context.Context, pageURL string) (string, error) {
	article, err := readability.FromURL(pageURL, s.extractTimeout)
	if err != nil {
		return "", fmt.Errorf("readability %s: %w", pageURL, err)
	}
	return article.TextContent, nil
}
