package collect

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/TobiSchelling/TechBrief/internal/config"
)

// Result holds the results of a collection run.
type Result struct {
	TotalFound  int
	Stale       int
	Excluded    int
	Duplicates  int
	FailedFeeds int
	NewArticles int
	Sources     map[string]int
}

// URLChecker reports whether a URL has already been ingested.
type URLChecker interface {
	StoryURLExists(url string) (bool, error)
}

// Collector gathers fresh candidates from the configured feeds.
type Collector struct {
	seen     URLChecker
	feeds    []FeedConfig
	parser   *FeedParser
	recency  time.Duration
	excluded []string
	now      func() time.Time
}

// NewCollector creates a collector for cfg.Sources. seen may be nil, in which
// case no URL deduplication against storage is done.
func NewCollector(cfg *config.Config, seen URLChecker) *Collector {
	feeds := make([]FeedConfig, len(cfg.Sources.Feeds))
	for i, f := range cfg.Sources.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, Name: f.Name, Domain: f.Domain, TrustScore: f.TrustScore}
	}

	excluded := make([]string, len(cfg.Sources.ExcludedKeywords))
	for i, kw := range cfg.Sources.ExcludedKeywords {
		excluded[i] = strings.ToLower(kw)
	}

	timeout := time.Duration(cfg.Ingestion.FetchTimeoutSeconds) * time.Second
	return &Collector{
		seen:     seen,
		feeds:    feeds,
		parser:   NewFeedParser(cfg.Sources.MaxPerFeed, timeout),
		recency:  time.Duration(cfg.Sources.RecencyHours) * time.Hour,
		excluded: excluded,
		now:      time.Now,
	}
}

// Collect fetches every feed in configuration order. A feed that fails is
// logged and skipped. Returned candidates keep discovery order.
func (c *Collector) Collect(ctx context.Context) ([]Candidate, *Result) {
	r := &Result{Sources: make(map[string]int)}
	var cutoff time.Time
	if c.recency > 0 {
		cutoff = c.now().Add(-c.recency)
	}

	log.Printf("Collecting from %d feeds...", len(c.feeds))
	var kept []Candidate
	batch := make(map[string]struct{})

	for _, fc := range c.feeds {
		if ctx.Err() != nil {
			break
		}
		entries, err := c.parser.Parse(ctx, fc)
		if err != nil {
			log.Printf("Warning: failed to fetch feed %s (%s): %v", fc.Name, fc.URL, err)
			r.FailedFeeds++
			continue
		}
		r.TotalFound += len(entries)

		accepted := 0
		for _, e := range entries {
			if !cutoff.IsZero() && !isRecent(e, cutoff) {
				r.Stale++
				continue
			}
			if c.isExcluded(e) {
				r.Excluded++
				continue
			}
			if _, dup := batch[e.URL]; dup || c.alreadyStored(e.URL) {
				r.Duplicates++
				continue
			}
			batch[e.URL] = struct{}{}
			kept = append(kept, e)
			accepted++
		}
		r.Sources[fc.Name] = accepted
		log.Printf("Parsed %d entries from %s, %d new", len(entries), fc.Name, accepted)
	}

	r.NewArticles = len(kept)
	log.Printf("Collection complete: %d found, %d new, %d duplicates, %d stale, %d excluded",
		r.TotalFound, r.NewArticles, r.Duplicates, r.Stale, r.Excluded)
	return kept, r
}

func (c *Collector) isExcluded(e Candidate) bool {
	text := strings.ToLower(e.Title + " " + e.RawContent)
	for _, kw := range c.excluded {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// alreadyStored treats lookup failures as not stored; the unique URL
// constraint still rejects the insert later.
func (c *Collector) alreadyStored(url string) bool {
	if c.seen == nil {
		return false
	}
	exists, err := c.seen.StoryURLExists(url)
	if err != nil {
		log.Printf("Warning: duplicate check failed for %s: %v", url, err)
		return false
	}
	return exists
}

func httpClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
