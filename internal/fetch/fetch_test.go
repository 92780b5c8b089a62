package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TobiSchelling/TechBrief/internal/collect"
)

var articleHTML = `<html><head><title>Story</title></head><body>
<nav>Home | About</nav>
<article><h1>Story</h1>
<p>` + strings.Repeat("Regulators published a new framework for AI model audits. ", 10) + `</p>
<p>` + strings.Repeat("Startups will need to document their training data sources. ", 10) + `</p>
</article></body></html>`

func TestFillMissingContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	in := []collect.Candidate{
		{URL: srv.URL + "/empty", Title: "Empty"},
		{URL: srv.URL + "/full", Title: "Full", RawContent: "already there"},
	}

	out, r := NewContentFetcher(5*time.Second).FillMissingContent(context.Background(), in)
	assert.Equal(t, 1, r.Fetched)
	assert.Equal(t, 1, r.AlreadyHadContent)
	assert.Contains(t, out[0].RawContent, "framework for AI model audits")
	assert.Equal(t, "already there", out[1].RawContent, "existing content should be untouched")
	assert.Empty(t, in[0].RawContent, "input slice must not be modified")
}

func TestFillMissingContentSkipsFailedDomain(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	in := []collect.Candidate{
		{URL: srv.URL + "/a", Title: "A"},
		{URL: srv.URL + "/b", Title: "B"},
		{URL: srv.URL + "/c", Title: "C"},
	}

	_, r := NewContentFetcher(5*time.Second).FillMissingContent(context.Background(), in)
	assert.Equal(t, 3, r.Failed)
	assert.EqualValues(t, 1, hits.Load(), "a single request to the failing host")
}

func TestFillMissingContentShortPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Too short.</p></body></html>")
	}))
	defer srv.Close()

	out, r := NewContentFetcher(5*time.Second).FillMissingContent(context.Background(),
		[]collect.Candidate{{URL: srv.URL, Title: "Short"}})
	assert.Equal(t, 1, r.Failed)
	assert.Empty(t, out[0].RawContent, "short page rejected")
}
