package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/TobiSchelling/TechBrief/internal/classify"
	"github.com/TobiSchelling/TechBrief/internal/collect"
	"github.com/TobiSchelling/TechBrief/internal/config"
	"github.com/TobiSchelling/TechBrief/internal/database"
	"github.com/TobiSchelling/TechBrief/internal/digest"
	"github.com/TobiSchelling/TechBrief/internal/diversify"
	"github.com/TobiSchelling/TechBrief/internal/fetch"
	"github.com/TobiSchelling/TechBrief/internal/history"
	"github.com/TobiSchelling/TechBrief/internal/llm"
	"github.com/TobiSchelling/TechBrief/internal/pace"
	"github.com/TobiSchelling/TechBrief/internal/selection"
)

// storedContentChars caps the raw text persisted with each story.
const storedContentChars = 2000

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a pipeline run.
type Result struct {
	Date      string
	Steps     []StepResult
	Selection *selection.Selection
}

// Err returns the first step error, if any.
func (r *Result) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(s.Name), s.Err)
		}
	}
	return nil
}

func (r *Result) add(s StepResult) StepResult {
	r.Steps = append(r.Steps, s)
	return s
}

// Pipeline runs ingestion and digest selection.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	provider llm.Provider
	pacer    pace.Pacer
	now      func() time.Time
}

// New creates a pipeline with the provider and pacing policy from cfg.
func New(cfg *config.Config, db *database.DB) *Pipeline {
	return NewWithProvider(cfg, db, llm.CreateProvider(cfg.Classification), pace.NewFixedInterval(cfg.ClassificationInterval()))
}

// NewWithProvider creates a pipeline with explicit collaborators.
func NewWithProvider(cfg *config.Config, db *database.DB, provider llm.Provider, pacer pace.Pacer) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, provider: provider, pacer: pacer, now: time.Now}
}

// Close releases the classification client if it holds resources.
func (p *Pipeline) Close() error {
	if c, ok := p.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Run ingests fresh stories and then builds the digest for date.
func (p *Pipeline) Run(ctx context.Context, date string) *Result {
	r := p.Ingest(ctx)
	d := p.Digest(ctx, date, false)
	r.Date = d.Date
	r.Steps = append(r.Steps, d.Steps...)
	r.Selection = d.Selection
	return r
}

// Ingest collects, diversifies, enriches and classifies new feed entries.
// Per-item and per-feed failures are counted, never returned.
func (p *Pipeline) Ingest(ctx context.Context) *Result {
	r := &Result{}

	candidates, step := p.runCollect(ctx)
	r.add(step)
	if len(candidates) == 0 {
		log.Println("Warning: no new articles found")
		return r
	}

	candidates, step = p.runDiversify(candidates)
	r.add(step)

	if p.cfg.Ingestion.FetchMissingContent {
		candidates, step = p.runFetch(ctx, candidates)
		r.add(step)
	}

	r.add(p.runClassify(ctx, candidates))
	return r
}

// Digest selects the stories for date and writes the digest record unless
// dryRun is set. Only a malformed date or the digest write can fail the run.
func (p *Pipeline) Digest(ctx context.Context, date string, dryRun bool) *Result {
	if date == "" {
		date = p.now().Format(database.DateLayout)
	}
	r := &Result{Date: date}
	if _, err := database.ParseDate(date); err != nil {
		r.add(StepResult{Name: "Date", Err: err})
		return r
	}

	used, step := p.runHistory(date)
	r.add(step)

	stories, step := p.runCandidates(used)
	r.add(step)
	if len(stories) == 0 {
		log.Println("Warning: no fresh stories found; run ingest or extend candidate_days")
		return r
	}

	sel, step := p.runSelect(stories)
	r.add(step)
	r.Selection = &sel

	if dryRun {
		r.add(StepResult{
			Name:    "Assemble",
			Summary: fmt.Sprintf("[dry-run] Would write %d stories for %s", len(sel.Stories), date),
		})
		return r
	}
	r.add(p.runAssemble(ctx, date, sel))
	return r
}

func (p *Pipeline) runCollect(ctx context.Context) ([]collect.Candidate, StepResult) {
	log.Println("Step 1/4: Collecting feed entries...")
	candidates, result := collect.NewCollector(p.cfg, p.db).Collect(ctx)
	return candidates, StepResult{
		Name: "Collect",
		Summary: fmt.Sprintf("Found %d new entries (%d total, %d duplicates, %d stale, %d excluded, %d feeds failed)",
			result.NewArticles, result.TotalFound, result.Duplicates, result.Stale, result.Excluded, result.FailedFeeds),
	}
}

func (p *Pipeline) runDiversify(candidates []collect.Candidate) ([]collect.Candidate, StepResult) {
	log.Println("Step 2/4: Diversifying sources...")
	ing := p.cfg.Ingestion
	out := diversify.RoundRobin(candidates,
		func(c collect.Candidate) string { return c.Source },
		func(c collect.Candidate) float64 { return c.TrustScore },
		diversify.Options{PerOrigin: ing.MaxPerSource, Overall: ing.MaxBatch},
	)
	return out, StepResult{
		Name:    "Diversify",
		Summary: fmt.Sprintf("Promoted %d of %d entries (max %d per source)", len(out), len(candidates), ing.MaxPerSource),
	}
}

func (p *Pipeline) runFetch(ctx context.Context, candidates []collect.Candidate) ([]collect.Candidate, StepResult) {
	log.Println("Step 3/4: Fetching missing content...")
	timeout := time.Duration(p.cfg.Ingestion.FetchTimeoutSeconds) * time.Second
	out, result := fetch.NewContentFetcher(timeout).FillMissingContent(ctx, candidates)
	return out, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d articles, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runClassify(ctx context.Context, candidates []collect.Candidate) StepResult {
	log.Println("Step 4/4: Classifying entries...")
	c := classify.NewClassifier(p.db, p.provider, p.pacer, classify.Options{
		Topics:       p.cfg.Topics,
		ContentChars: p.cfg.Ingestion.ContentChars,
		StoredChars:  storedContentChars,
		MaxTokens:    p.cfg.Classification.MaxTokens,
		Threshold:    p.cfg.Selection.RelevanceThreshold,
	})
	result := c.ClassifyAll(ctx, candidates)
	return StepResult{
		Name: "Classify",
		Summary: fmt.Sprintf("Classified %d entries: %d stored, %d below threshold, %d errors",
			result.Processed, result.Stored, result.Skipped, result.Errors),
	}
}

func (p *Pipeline) runHistory(date string) (map[string]struct{}, StepResult) {
	log.Println("Checking previously used stories...")
	days := p.cfg.Selection.HistoryDays
	used := history.NewTracker(p.db, days).UsedIDs(date)
	return used, StepResult{
		Name:    "History",
		Summary: fmt.Sprintf("Excluding %d stories used in the last %d days", len(used), days),
	}
}

// runCandidates degrades a read failure to an empty pool.
func (p *Pipeline) runCandidates(used map[string]struct{}) ([]database.Story, StepResult) {
	log.Println("Loading fresh processed stories...")
	days := p.cfg.Selection.CandidateDays
	since := p.now().Add(-time.Duration(days) * 24 * time.Hour)

	stories, err := p.db.GetCandidateStories(database.StatusProcessed, since, history.Slice(used))
	if err != nil {
		log.Printf("Warning: could not load candidate stories: %v", err)
		stories = nil
	}
	stories = selection.FilterRelevant(stories, p.cfg.Selection.RelevanceThreshold)
	return stories, StepResult{
		Name:    "Candidates",
		Summary: fmt.Sprintf("Found %d fresh stories from the last %d days", len(stories), days),
	}
}

func (p *Pipeline) runSelect(stories []database.Story) (selection.Selection, StepResult) {
	log.Println("Selecting stories for digest...")
	s := p.cfg.Selection
	reqs := make([]selection.Requirement, len(s.RequiredTopics))
	for i, rt := range s.RequiredTopics {
		reqs[i] = selection.Requirement{Topic: rt.Topic, Min: rt.Min}
	}

	sel := selection.Select(stories, reqs, selection.Options{MaxSize: s.MaxStories, MinSize: s.MinStories})
	logSelection(sel, s.MinStories)

	return sel, StepResult{
		Name:    "Select",
		Summary: fmt.Sprintf("Selected %d of %d stories", len(sel.Stories), len(stories)),
	}
}

func (p *Pipeline) runAssemble(ctx context.Context, date string, sel selection.Selection) StepResult {
	log.Println("Writing daily digest...")
	if err := digest.NewAssembler(p.db).Assemble(ctx, date, sel.IDs()); err != nil {
		return StepResult{Name: "Assemble", Err: err}
	}
	return StepResult{
		Name:    "Assemble",
		Summary: fmt.Sprintf("Digest for %s holds %d stories", date, len(sel.Stories)),
	}
}

func logSelection(sel selection.Selection, minStories int) {
	for i, st := range sel.Stories {
		log.Printf("  %d. %s [%s] (%.2f)", i+1, st.Title, strings.Join(st.Topics, ", "), st.RelevanceScore)
	}
	for _, tc := range selection.TopicDistribution(sel.Stories) {
		log.Printf("  topic %s: %d", tc.Topic, tc.Count)
	}
	for _, topic := range sel.Unmet {
		log.Printf("Warning: required topic %q not covered", topic)
	}
	if sel.UnderTarget {
		log.Printf("Warning: only %d stories available (want at least %d)", len(sel.Stories), minStories)
	}
}
