// Package topics supplies post topics for scheduled pipeline runs.
//
// Two sources are provided: a static pool from configuration and an RSS/Atom
// feed whose item titles become the topic pool. One-shot runs take the topic
// from the command line instead and never touch this package.
package topics

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/mmcdole/gofeed"
)

// Source yields a topic for the next scheduled run.
type Source interface {
	// NextTopic returns a topic. An empty pool is an error: a scheduled run
	// cannot proceed without a topic.
	NextTopic(ctx context.Context) (string, error)
}

// StaticPool draws topics from a fixed list, random order, avoiding an
// immediate repeat of the previous topic when the pool allows it.
type StaticPool struct {
	mu     sync.Mutex
	topics []string
	last   int
	// #nosec G404 -- variety, not security.
	pick func(n int) int
}

// NewStaticPool creates a pool over the given topics.
func NewStaticPool(topics []string) *StaticPool {
	return &StaticPool{topics: topics, last: -1, pick: rand.Intn}
}

// NextTopic implements Source.
func (p *StaticPool) NextTopic(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.topics) == 0 {
		return "", fmt.Errorf("topic pool is empty")
	}
	if len(p.topics) == 1 {
		return p.topics[0], nil
	}

	i := p.pick(len(p.topics))
	if i == p.last {
		i = (i + 1) % len(p.topics)
	}
	p.last = i
	return p.topics[i], nil
}

// FeedSource draws topics from the item titles of an RSS/Atom feed,
// re-fetching the feed on every call so fresh items become topics.
type FeedSource struct {
	url    string
	parser *gofeed.Parser
	pick   func(n int) int
}

// NewFeedSource creates a feed-backed topic source.
func NewFeedSource(url string) *FeedSource {
	return &FeedSource{
		url:    url,
		parser: gofeed.NewParser(),
		// #nosec G404 -- variety, not security.
		pick: rand.Intn,
	}
}

// NextTopic implements Source.
func (f *FeedSource) NextTopic(ctx context.Context) (string, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return "", fmt.Errorf("parse topic feed %s: %w", f.url, err)
	}

	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item != nil && item.Title != "" {
			titles = append(titles, item.Title)
		}
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("topic feed %s has no titled items", f.url)
	}

	return titles[f.pick(len(titles))], nil
}
