// Package research implements the iterative deep-research loop: ask the
// model for a plan, fan out the planned sub-queries over search and fetch
// providers with bounded concurrency, distill learnings, and repeat until
// the model or the iteration cap says stop.
package research

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mikeboe/deep-research/pkg/gateway"
	"github.com/mikeboe/deep-research/pkg/splitter"
)

const (
	// DefaultMaxIterations bounds the research loop.
	DefaultMaxIterations = 10
	// DefaultConcurrencyLimit bounds how many sub-queries may be in
	// their search/fetch phase at once.
	DefaultConcurrencyLimit = 2

	planMaxTokens   = 1024
	serpMaxTokens   = 2048
	reportMaxTokens = 10000

	// contentContextSize is the per-document token budget when feeding
	// fetched page content to the model.
	contentContextSize = 25000
	// reportContextSize is the token budget for the compiled learnings
	// block in the final report prompt.
	reportContextSize = 150000

	generationTemperature = 0.6
)

// ModelGateway sends prompts to a language model and reports a uniform
// success/failure result. It must not panic or let transport errors
// escape.
type ModelGateway interface {
	Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int, temperature float64) gateway.Result
}

// Config holds the orchestrator's runtime knobs. The zero value gets
// sensible defaults applied by NewEngine.
type Config struct {
	MaxIterations    int
	ConcurrencyLimit int
	Verbose          bool
}

// Engine drives the deep-research loop against pluggable model, search,
// and fetch providers.
type Engine struct {
	Gateway ModelGateway
	Search  SearchProvider
	Fetcher ContentFetcher
	Config  Config
	Logger  *slog.Logger
	Trimmer *splitter.Trimmer

	// OnStateUpdate, when set, is called with a snapshot of the state
	// after every merge. Used by the server to persist progress.
	OnStateUpdate func(state ResearchState)
}

// NewEngine creates an Engine with defaults filled in for any zero
// config fields.
func NewEngine(gw ModelGateway, search SearchProvider, fetcher ContentFetcher, cfg Config) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = DefaultConcurrencyLimit
	}
	return &Engine{
		Gateway: gw,
		Search:  search,
		Fetcher: fetcher,
		Config:  cfg,
		Logger:  slog.Default(),
		Trimmer: splitter.DefaultTrimmer(),
	}
}

// Run executes the research loop for originalQuery, optionally seeded
// with learnings and visited URLs from a previous session. It always
// terminates within Config.MaxIterations iterations; reaching the cap is
// a normal exit, not an error.
func (e *Engine) Run(ctx context.Context, originalQuery string, seedLearnings, seedURLs []string) ResearchState {
	state := ResearchState{
		Learnings:   append([]string(nil), seedLearnings...),
		VisitedURLs: append([]string(nil), seedURLs...),
	}

	for state.Iterations < e.Config.MaxIterations {
		state.Iterations++
		e.Logger.Info("Starting iteration",
			"iteration", state.Iterations,
			"max", e.Config.MaxIterations,
			"learnings", len(state.Learnings),
			"visited_urls", len(state.VisitedURLs))

		// The planner always sees the original query unchanged plus the
		// full learnings list, so the agent cannot drift from the
		// original intent.
		plan := e.planResearch(ctx, originalQuery, state.Learnings)
		e.Logger.Info("Planner decision",
			"breadth", plan.Breadth, "depth", plan.Depth, "queries", len(plan.Queries))

		if plan.Breadth <= 0 || plan.Depth <= 0 || len(plan.Queries) == 0 {
			e.Logger.Info("No further research needed. Stopping.")
			break
		}

		queries := plan.Queries
		if len(queries) > plan.Breadth {
			queries = queries[:plan.Breadth]
		}

		results := e.runSubQueries(ctx, queries, plan.Breadth)

		var stepLearnings, stepURLs []string
		for _, sr := range results {
			stepLearnings = append(stepLearnings, sr.Learnings...)
			stepURLs = append(stepURLs, sr.URLs...)
		}

		state.Learnings = dedupe(state.Learnings, stepLearnings)
		state.VisitedURLs = dedupe(state.VisitedURLs, stepURLs)

		if e.OnStateUpdate != nil {
			e.OnStateUpdate(state)
		}

		// Depth is a one-shot countdown from the planner: a depth of 1
		// means this was the final iteration.
		if plan.Depth <= 1 {
			e.Logger.Info("Planner indicated final iteration. Stopping.")
			break
		}
	}

	return state
}

// planResearch asks the model for the next ResearchPlan. Gateway or parse
// failures degrade to the zero plan, which stops the loop gracefully.
func (e *Engine) planResearch(ctx context.Context, originalQuery string, learnings []string) ResearchPlan {
	prompt := planPrompt(originalQuery, learnings)
	if e.Config.Verbose {
		e.Logger.Debug("Planner prompt", "prompt", prompt)
	}

	res := e.Gateway.Generate(ctx, systemPrompt(), prompt, planMaxTokens, generationTemperature)
	if !res.Success {
		e.Logger.Error("Planner call failed", "error", res.Err)
		return ResearchPlan{}
	}

	plan, err := ParsePlan(res.Response)
	if err != nil {
		e.Logger.Error("Planner response was not valid JSON", "error", err, "response", res.Response)
		return ResearchPlan{}
	}
	return plan
}

// runSubQueries fans the clipped queries out as concurrent tasks and
// blocks until all of them finish. Results are collected in completion
// order; merging happens in the caller, after this barrier.
func (e *Engine) runSubQueries(ctx context.Context, queries []SubQuery, breadth int) []StepResult {
	sem := make(chan struct{}, e.Config.ConcurrencyLimit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]StepResult, 0, len(queries))

	for _, q := range queries {
		wg.Add(1)
		go func(q SubQuery) {
			defer wg.Done()
			sr := e.runSubQuery(ctx, q, breadth, sem)
			mu.Lock()
			results = append(results, sr)
			mu.Unlock()
		}(q)
	}
	wg.Wait()

	return results
}

// runSubQuery executes one search → fetch → summarize pipeline. The
// semaphore gates the search and fetch phases; provider failures are
// swallowed so that sibling sub-queries keep running.
func (e *Engine) runSubQuery(ctx context.Context, q SubQuery, maxResults int, sem chan struct{}) StepResult {
	e.Logger.Debug("Searching", "query", q.Query)

	sem <- struct{}{}
	hits, err := e.Search.Search(ctx, q.Query, maxResults)
	<-sem
	if err != nil {
		e.Logger.Error("Search failed", "query", q.Query, "error", err)
		hits = nil
	}

	var urls []string
	for _, hit := range hits {
		if hit.URL != "" {
			urls = append(urls, hit.URL)
		}
	}
	e.Logger.Debug("Search complete", "query", q.Query, "urls", len(urls))

	var contents []string
	if len(urls) > 0 {
		sem <- struct{}{}
		docs, err := e.Fetcher.Fetch(ctx, urls)
		<-sem
		if err != nil {
			e.Logger.Error("Content fetch failed", "query", q.Query, "error", err)
			docs = nil
		}
		for _, doc := range docs {
			contents = append(contents, doc.Content)
		}
	}

	summary := e.processSERPResult(ctx, q.Query, contents)
	return StepResult{
		URLs:              urls,
		Learnings:         summary.Learnings,
		FollowUpQuestions: summary.FollowUpQuestions,
	}
}

// processSERPResult has the model distill learnings and follow-up
// questions out of the fetched contents for one sub-query.
func (e *Engine) processSERPResult(ctx context.Context, query string, contents []string) StepSummary {
	trimmed := make([]string, 0, len(contents))
	for _, content := range contents {
		trimmed = append(trimmed, e.Trimmer.Trim(content, contentContextSize))
	}

	prompt := serpPrompt(query, trimmed)
	if e.Config.Verbose {
		e.Logger.Debug("SERP prompt", "prompt", prompt)
	}

	res := e.Gateway.Generate(ctx, systemPrompt(), prompt, serpMaxTokens, generationTemperature)
	if !res.Success {
		e.Logger.Error("SERP processing failed", "query", query, "error", res.Err)
		return StepSummary{}
	}

	summary, err := ParseStepSummary(res.Response)
	if err != nil {
		e.Logger.Error("SERP response was not valid JSON", "query", query, "error", err, "response", res.Response)
		return StepSummary{}
	}
	return summary
}

// dedupe appends incoming to existing and removes duplicates from the
// combined sequence, preserving first-occurrence order.
func dedupe(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, s := range list {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
