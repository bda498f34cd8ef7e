package topics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPool(t *testing.T) {
	pool := NewStaticPool([]string{"осень", "зима", "весна"})

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		topic, err := pool.NextTopic(context.Background())
		require.NoError(t, err)
		seen[topic] = true
	}

	assert.Len(t, seen, 3)
}

func TestStaticPool_AvoidsImmediateRepeat(t *testing.T) {
	pool := NewStaticPool([]string{"a", "b"})
	pool.pick = func(int) int { return 0 } // always propose index 0

	first, err := pool.NextTopic(context.Background())
	require.NoError(t, err)
	second, err := pool.NextTopic(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStaticPool_Empty(t *testing.T) {
	pool := NewStaticPool(nil)
	_, err := pool.NextTopic(context.Background())
	assert.Error(t, err)
}

func TestStaticPool_SingleTopic(t *testing.T) {
	pool := NewStaticPool([]string{"осень"})
	for i := 0; i < 3; i++ {
		topic, err := pool.NextTopic(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "осень", topic)
	}
}

func TestFeedSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Темы</title>
  <item><title>осенние праздники</title></item>
  <item><title>городские фестивали</title></item>
</channel></rss>`))
	}))
	defer srv.Close()

	src := NewFeedSource(srv.URL)
	src.pick = func(int) int { return 1 }

	topic, err := src.NextTopic(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "городские фестивали", topic)
}

func TestFeedSource_EmptyFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>x</title></channel></rss>`))
	}))
	defer srv.Close()

	src := NewFeedSource(srv.URL)
	_, err := src.NextTopic(context.Background())
	assert.ErrorContains(t, err, "no titled items")
}
