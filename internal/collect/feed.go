package collect

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

// Candidate is a raw feed entry with the attributes of the origin it came from.
type Candidate struct {
	URL          string
	Title        string
	Source       string
	SourceDomain string
	TrustScore   float64
	RawContent   string
	Published    string     // free text as found in the feed
	PublishedAt  *time.Time // nil when Published could not be parsed
}

// FeedConfig is a single configured origin.
type FeedConfig struct {
	URL        string
	Name       string
	Domain     string
	TrustScore float64
}

// FeedParser fetches RSS/Atom feeds.
type FeedParser struct {
	parser     *gofeed.Parser
	maxPerFeed int
}

// NewFeedParser creates a FeedParser that returns at most maxPerFeed entries per feed.
func NewFeedParser(maxPerFeed int, timeout time.Duration) *FeedParser {
	p := gofeed.NewParser()
	p.UserAgent = "TechBrief/1.0"
	if timeout > 0 {
		p.Client = httpClient(timeout)
	}
	return &FeedParser{parser: p, maxPerFeed: maxPerFeed}
}

// Parse fetches one feed and returns its leading entries with origin attributes attached.
func (fp *FeedParser) Parse(ctx context.Context, fc FeedConfig) ([]Candidate, error) {
	feed, err := fp.parser.ParseURLWithContext(fc.URL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []Candidate
	for _, item := range feed.Items {
		if fp.maxPerFeed > 0 && len(entries) >= fp.maxPerFeed {
			break
		}
		c := parseItem(item, fc)
		if c == nil {
			continue
		}
		entries = append(entries, *c)
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, fc FeedConfig) *Candidate {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		return nil
	}

	var content string
	if item.Description != "" {
		content = stripHTML(item.Description)
	} else if item.Content != "" {
		content = stripHTML(item.Content)
	}

	published := item.Published
	if published == "" {
		published = item.Updated
	}

	return &Candidate{
		URL:          itemURL,
		Title:        title,
		Source:       fc.Name,
		SourceDomain: fc.Domain,
		TrustScore:   fc.TrustScore,
		RawContent:   content,
		Published:    published,
		PublishedAt:  publishedTime(item, published),
	}
}

// publishedTime prefers gofeed's parsed timestamps and falls back to
// lenient parsing of the raw string.
func publishedTime(item *gofeed.Item, raw string) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	if raw == "" {
		return nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &t
}

// isRecent treats unknown timestamps as recent.
func isRecent(c Candidate, cutoff time.Time) bool {
	if c.PublishedAt == nil {
		return true
	}
	return c.PublishedAt.After(cutoff)
}

// stripHTML returns the visible text of an HTML fragment with whitespace collapsed.
// Every tag is treated as a word boundary.
func stripHTML(text string) string {
	spaced := strings.ReplaceAll(text, "<", " <")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(spaced))
	if err != nil {
		return strings.Join(strings.Fields(text), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
