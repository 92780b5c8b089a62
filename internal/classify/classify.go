package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/TobiSchelling/TechBrief/internal/collect"
	"github.com/TobiSchelling/TechBrief/internal/database"
	"github.com/TobiSchelling/TechBrief/internal/llm"
	"github.com/TobiSchelling/TechBrief/internal/pace"
	"github.com/TobiSchelling/TechBrief/internal/selection"
)

const classifyPrompt = `You are analyzing a tech news article for a daily brief focused on:
- Big Tech product and strategy moves
- Government regulation shaping technology decisions
- AI security, safety, and compliance trends
- Startup ecosystem news

Article Title: %s
Article Summary: %s
Source: %s

Analyze this article and provide:

1. topics: select ALL that apply, using only these exact names:
%s

2. summary: EXACTLY 3 sentences.
   Sentence 1: what happened (the key event or announcement).
   Sentence 2: why it matters (the implications).
   Sentence 3: who it impacts (products, startups, users, or policy).

3. relevance_score from 0.0 to 1.0 for product managers, founders and people following tech.
   1.0 = major product launch, regulation change or security incident
   0.5 = interesting but not critical
   0.0 = off-topic or a minor update

Respond with ONLY this JSON:
{
  "topics": ["topic1", "topic2"],
  "summary": "Three sentence summary here.",
  "relevance_score": 0.8
}`

// ErrMalformedResponse marks a classifier answer that cannot be used.
var ErrMalformedResponse = errors.New("malformed classification response")

// Options configures a Classifier.
type Options struct {
	Topics       []string // closed vocabulary
	ContentChars int      // body characters sent to the model
	StoredChars  int      // raw content characters persisted
	MaxTokens    int
	Threshold    float64
}

// Result holds the results of a classification run.
type Result struct {
	Processed int
	Stored    int
	Skipped   int
	Errors    int
}

// StoryStore persists classified stories.
type StoryStore interface {
	InsertStory(s database.Story) (string, error)
}

// Classifier scores candidates and stores those that clear the threshold.
type Classifier struct {
	store    StoryStore
	provider llm.Provider
	pacer    pace.Pacer
	opts     Options
}

// NewClassifier creates a new Classifier. A nil pacer means unpaced.
func NewClassifier(store StoryStore, provider llm.Provider, pacer pace.Pacer, opts Options) *Classifier {
	if pacer == nil {
		pacer = pace.Unpaced{}
	}
	return &Classifier{store: store, provider: provider, pacer: pacer, opts: opts}
}

// ClassifyAll classifies candidates one at a time, in order. Failures are
// logged and counted; they never stop the batch.
func (c *Classifier) ClassifyAll(ctx context.Context, candidates []collect.Candidate) *Result {
	if c.provider == nil {
		log.Println("No LLM provider available for classification")
		return &Result{Errors: 1}
	}
	if len(candidates) == 0 {
		log.Println("No candidates pending classification")
		return &Result{}
	}

	r := &Result{}
	for i, cand := range candidates {
		if err := c.pacer.Wait(ctx); err != nil {
			log.Printf("Classification stopped: %v", err)
			break
		}
		log.Printf("[%d/%d] Classifying: %s", i+1, len(candidates), truncate(cand.Title, 60))

		cls, err := c.Classify(ctx, cand)
		if err != nil {
			log.Printf("Error classifying %s: %v", cand.URL, err)
			r.Errors++
			continue
		}
		r.Processed++

		if !selection.MeetsThreshold(cls.Relevance, c.opts.Threshold) {
			log.Printf("Skipped (relevance %.2f): %s", cls.Relevance, cand.Title)
			r.Skipped++
			continue
		}

		if _, err := c.store.InsertStory(c.toStory(cand, cls)); err != nil {
			log.Printf("Error storing %s: %v", cand.URL, err)
			r.Errors++
			continue
		}
		r.Stored++
		log.Printf("Classified [%s] (%.2f): %s", strings.Join(cls.Topics, ", "), cls.Relevance, cand.Title)
	}

	log.Printf("Classification complete: %d processed (%d stored, %d below threshold), %d errors",
		r.Processed, r.Stored, r.Skipped, r.Errors)
	return r
}

// Classify sends one candidate to the model and validates the answer.
func (c *Classifier) Classify(ctx context.Context, cand collect.Candidate) (*Classification, error) {
	body := cand.RawContent
	if body == "" {
		body = cand.Title
	}
	prompt := fmt.Sprintf(classifyPrompt,
		cand.Title, truncate(body, c.opts.ContentChars), cand.Source, formatTopics(c.opts.Topics))

	text, err := c.provider.Generate(ctx, prompt, c.opts.MaxTokens)
	if err != nil {
		return nil, err
	}
	return Parse(text, c.opts.Topics)
}

func (c *Classifier) toStory(cand collect.Candidate, cls *Classification) database.Story {
	s := database.Story{
		URL:            cand.URL,
		Title:          cand.Title,
		Source:         cand.Source,
		Summary:        cls.Summary,
		Topics:         cls.Topics,
		TrustScore:     cand.TrustScore,
		RelevanceScore: cls.Relevance,
		Status:         database.StatusProcessed,
	}
	if cand.SourceDomain != "" {
		domain := cand.SourceDomain
		s.SourceDomain = &domain
	}
	if cand.RawContent != "" {
		raw := truncate(cand.RawContent, c.opts.StoredChars)
		s.RawContent = &raw
	}
	if cand.Published != "" {
		published := cand.Published
		s.PublishedAt = &published
	}
	return s
}

func formatTopics(topics []string) string {
	lines := make([]string, len(topics))
	for i, t := range topics {
		lines[i] = "   - " + t
	}
	return strings.Join(lines, "\n")
}

// truncate cuts s to at most n runes. n <= 0 leaves s untouched.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
