package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/TechBrief/internal/config"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Test Feed</title>
  <link>https://example.com</link>
  <description>test</description>
  %s
</channel>
</rss>`

func rssItem(title, link, desc, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><description><![CDATA[%s]]></description><pubDate>%s</pubDate></item>`,
		title, link, desc, pubDate)
}

func feedServer(t *testing.T, items ...string) *httptest.Server {
	t.Helper()
	body := ""
	for _, it := range items {
		body += it
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, rssTemplate, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

type stubSeen map[string]bool

func (s stubSeen) StoryURLExists(url string) (bool, error) { return s[url], nil }

func testConfig(feeds ...config.Feed) *config.Config {
	cfg := &config.Config{}
	cfg.Sources.Feeds = feeds
	cfg.Sources.MaxPerFeed = 15
	cfg.Sources.RecencyHours = 168
	cfg.Sources.ExcludedKeywords = []string{"sports", "Celebrity Gossip"}
	cfg.Ingestion.FetchTimeoutSeconds = 5
	return cfg
}

func TestCollectAttachesOriginAttributes(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	srv := feedServer(t,
		rssItem("Launch", "https://example.com/launch", "<p>New <b>product</b> launch</p>", now),
	)
	cfg := testConfig(config.Feed{Name: "Example", Domain: "example.com", URL: srv.URL, TrustScore: 0.9})

	candidates, r := NewCollector(cfg, nil).Collect(context.Background())
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "Example", c.Source)
	assert.Equal(t, "example.com", c.SourceDomain)
	assert.Equal(t, 0.9, c.TrustScore)
	assert.Equal(t, "New product launch", c.RawContent)
	assert.NotNil(t, c.PublishedAt, "expected parsed publication time")
	assert.Equal(t, 1, r.NewArticles)
	assert.Equal(t, 1, r.Sources["Example"])
}

func TestCollectFilters(t *testing.T) {
	now := time.Now().UTC()
	srv := feedServer(t,
		rssItem("Fresh", "https://example.com/fresh", "AI regulation", now.Format(time.RFC1123Z)),
		rssItem("Old", "https://example.com/old", "AI regulation", now.AddDate(0, 0, -30).Format(time.RFC1123Z)),
		rssItem("Game night", "https://example.com/sports", "Sports roundup", now.Format(time.RFC1123Z)),
		rssItem("Gossip", "https://example.com/gossip", "celebrity gossip column", now.Format(time.RFC1123Z)),
		rssItem("Known", "https://example.com/known", "already stored", now.Format(time.RFC1123Z)),
		rssItem("Undated", "https://example.com/undated", "no date", "sometime last week"),
	)
	cfg := testConfig(config.Feed{Name: "Example", URL: srv.URL, TrustScore: 0.5})
	seen := stubSeen{"https://example.com/known": true}

	candidates, r := NewCollector(cfg, seen).Collect(context.Background())

	var titles []string
	for _, c := range candidates {
		titles = append(titles, c.Title)
	}
	assert.ElementsMatch(t, []string{"Fresh", "Undated"}, titles)
	assert.Equal(t, 1, r.Stale)
	assert.Equal(t, 2, r.Excluded)
	assert.Equal(t, 1, r.Duplicates)
}

func TestCollectRespectsMaxPerFeed(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	var items []string
	for i := 0; i < 20; i++ {
		items = append(items, rssItem(fmt.Sprintf("Item %d", i), fmt.Sprintf("https://example.com/%d", i), "body", now))
	}
	srv := feedServer(t, items...)
	cfg := testConfig(config.Feed{Name: "Example", URL: srv.URL})

	candidates, _ := NewCollector(cfg, nil).Collect(context.Background())
	require.Len(t, candidates, 15)
	assert.Equal(t, "Item 0", candidates[0].Title, "feed order preserved")
}

func TestCollectSkipsFailingFeed(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	good := feedServer(t, rssItem("Good", "https://example.com/good", "body", now))
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer bad.Close()

	cfg := testConfig(
		config.Feed{Name: "Bad", URL: bad.URL},
		config.Feed{Name: "Good", URL: good.URL},
	)

	candidates, r := NewCollector(cfg, nil).Collect(context.Background())
	require.Len(t, candidates, 1)
	assert.Equal(t, "Good", candidates[0].Source)
	assert.Equal(t, 1, r.FailedFeeds)
}

func TestCollectDedupesWithinBatch(t *testing.T) {
	now := time.Now().UTC().Format(time.RFC1123Z)
	a := feedServer(t, rssItem("Shared", "https://example.com/shared", "body", now))
	b := feedServer(t, rssItem("Shared again", "https://example.com/shared", "body", now))
	cfg := testConfig(config.Feed{Name: "A", URL: a.URL}, config.Feed{Name: "B", URL: b.URL})

	candidates, r := NewCollector(cfg, nil).Collect(context.Background())
	require.Len(t, candidates, 1)
	assert.Equal(t, "A", candidates[0].Source, "first occurrence kept")
	assert.Equal(t, 1, r.Duplicates)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Hello</p><p>World</p>", "Hello World"},
		{"Fish &amp; chips", "Fish & chips"},
		{"<script>var x;</script>Text", "Text"},
		{"  plain   text ", "plain text"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripHTML(tt.in), "stripHTML(%q)", tt.in)
	}
}

func TestPublishedTimeLenient(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"2026-02-06 10:00:00", true},
		{"Feb 6, 2026", true},
		{"", false},
		{"not a date at all", false},
	}
	for _, tt := range tests {
		parsed := publishedTime(&gofeed.Item{}, tt.raw) != nil
		assert.Equal(t, tt.want, parsed, "publishedTime(%q)", tt.raw)
	}
}
