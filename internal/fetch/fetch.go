package fetch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/TobiSchelling/TechBrief/internal/collect"
)

// minTextLength is the shortest extraction accepted as article text.
const minTextLength = 100

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 5 << 20

// Result holds the results of a content fetch run.
type Result struct {
	Fetched           int
	AlreadyHadContent int
	Failed            int
}

// ContentFetcher fills in article text for feed entries that came without a
// description, via HTTP and readability extraction.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissingContent returns a copy of candidates where empty RawContent has
// been replaced by extracted page text when possible. After an HTTP error
// status, remaining entries from the same host are not attempted.
func (f *ContentFetcher) FillMissingContent(ctx context.Context, candidates []collect.Candidate) ([]collect.Candidate, *Result) {
	out := make([]collect.Candidate, len(candidates))
	copy(out, candidates)

	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range out {
		c := &out[i]
		if c.RawContent != "" {
			result.AlreadyHadContent++
			continue
		}
		if ctx.Err() != nil {
			result.Failed++
			continue
		}

		domain := hostOf(c.URL)
		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		content, httpErr := f.fetchArticleContent(ctx, c.URL)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP %v for %s, skipping remaining from %s", httpErr, c.URL, domain)
			continue
		}

		if content == "" {
			result.Failed++
			log.Printf("No extractable content from: %s", c.URL)
			continue
		}
		c.RawContent = content
		result.Fetched++
		log.Printf("Fetched content for: %s", c.Title)
	}

	if result.Fetched+result.Failed > 0 {
		log.Printf("Content fetch complete: %d fetched, %d failed", result.Fetched, result.Failed)
	}
	return out, result
}

// fetchArticleContent returns an *httpError only for HTTP error statuses.
// Connection and extraction problems yield empty content.
func (f *ContentFetcher) fetchArticleContent(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", "TechBrief/1.0 (news digest)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	parsedURL, err := url.Parse(articleURL)
	if err != nil {
		return "", nil
	}
	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.Join(strings.Fields(article.TextContent), " ")
	if len(text) > minTextLength {
		return text, nil
	}
	return "", nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
