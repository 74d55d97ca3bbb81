package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mikeboe/deep-research/pkg/gateway"
	"github.com/mikeboe/deep-research/pkg/splitter"
)

// fakeGateway scripts model replies per call kind. The engine's prompt
// kinds are distinguishable by their token budgets.
type fakeGateway struct {
	mu sync.Mutex

	planResponses  []string // consumed in order; last one repeats
	serpResponse   string
	reportResponse string
	failPlans      bool

	planCalls   int
	serpCalls   int
	reportCalls int
}

func (g *fakeGateway) Generate(ctx context.Context, systemPrompt, userContent string, maxTokens int, temperature float64) gateway.Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch maxTokens {
	case planMaxTokens:
		g.planCalls++
		if g.failPlans {
			return gateway.Result{Err: errors.New("backend unavailable")}
		}
		idx := g.planCalls - 1
		if idx >= len(g.planResponses) {
			idx = len(g.planResponses) - 1
		}
		return gateway.Result{Success: true, Response: g.planResponses[idx]}
	case serpMaxTokens:
		g.serpCalls++
		return gateway.Result{Success: true, Response: g.serpResponse}
	case reportMaxTokens:
		g.reportCalls++
		return gateway.Result{Success: true, Response: g.reportResponse}
	default:
		return gateway.Result{Err: fmt.Errorf("unexpected maxTokens %d", maxTokens)}
	}
}

// phaseGauge tracks how many search/fetch phases are active at once.
type phaseGauge struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (g *phaseGauge) enter() {
	g.mu.Lock()
	g.active++
	if g.active > g.maxSeen {
		g.maxSeen = g.active
	}
	g.mu.Unlock()
}

func (g *phaseGauge) leave() {
	g.mu.Lock()
	g.active--
	g.mu.Unlock()
}

type fakeSearch struct {
	gauge   *phaseGauge
	results map[string][]SearchResult
	err     error

	mu    sync.Mutex
	calls int
}

func (s *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if s.gauge != nil {
		s.gauge.enter()
		time.Sleep(2 * time.Millisecond)
		defer s.gauge.leave()
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.results[query], nil
}

type fakeFetcher struct {
	gauge *phaseGauge
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, urls []string) ([]FetchedDocument, error) {
	if f.gauge != nil {
		f.gauge.enter()
		time.Sleep(2 * time.Millisecond)
		defer f.gauge.leave()
	}
	if f.err != nil {
		return nil, f.err
	}
	docs := make([]FetchedDocument, 0, len(urls))
	for _, u := range urls {
		docs = append(docs, FetchedDocument{URL: u, Content: "content of " + u})
	}
	return docs, nil
}

func newTestEngine(gw *fakeGateway, search SearchProvider, fetcher ContentFetcher, cfg Config) *Engine {
	e := NewEngine(gw, search, fetcher, cfg)
	e.Trimmer = splitter.NewTrimmer(splitter.EstimateCounter{})
	return e
}

func planJSON(breadth, depth int, queries ...string) string {
	plan := fmt.Sprintf(`{"breadth":%d,"depth":%d,"queries":[`, breadth, depth)
	for i, q := range queries {
		if i > 0 {
			plan += ","
		}
		plan += fmt.Sprintf(`{"query":%q,"researchGoal":"goal"}`, q)
	}
	return plan + "]}"
}

func singleHit(queries ...string) map[string][]SearchResult {
	out := make(map[string][]SearchResult, len(queries))
	for _, q := range queries {
		out[q] = []SearchResult{{Title: q, URL: "https://example.com/" + q, Snippet: "snippet"}}
	}
	return out
}

func TestRunStopsImmediatelyOnZeroDepth(t *testing.T) {
	gw := &fakeGateway{planResponses: []string{planJSON(0, 0)}}
	search := &fakeSearch{}
	e := newTestEngine(gw, search, &fakeFetcher{}, Config{})

	state := e.Run(context.Background(), "query", []string{"seed"}, []string{"https://seed"})

	if gw.planCalls != 1 {
		t.Errorf("planner called %d times, want 1", gw.planCalls)
	}
	if gw.serpCalls != 0 || search.calls != 0 {
		t.Errorf("no sub-query work expected, got %d serp calls and %d searches", gw.serpCalls, search.calls)
	}
	if len(state.Learnings) != 1 || state.Learnings[0] != "seed" {
		t.Errorf("learnings = %q, want just the seed", state.Learnings)
	}
	if len(state.VisitedURLs) != 1 || state.VisitedURLs[0] != "https://seed" {
		t.Errorf("visited urls = %q, want just the seed", state.VisitedURLs)
	}
	if state.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", state.Iterations)
	}
}

func TestRunSingleIterationScenario(t *testing.T) {
	gw := &fakeGateway{
		planResponses: []string{planJSON(2, 1, "a", "b"), planJSON(0, 0)},
		serpResponse:  `{"learnings":["l1"],"followUpQuestions":["f1"]}`,
	}
	search := &fakeSearch{results: singleHit("a", "b")}
	e := newTestEngine(gw, search, &fakeFetcher{}, Config{})

	state := e.Run(context.Background(), "X", nil, nil)

	// depth=1 stops after the first iteration, without a second plan.
	if gw.planCalls != 1 {
		t.Errorf("planner called %d times, want 1", gw.planCalls)
	}
	if gw.serpCalls != 2 {
		t.Errorf("serp processing called %d times, want 2", gw.serpCalls)
	}
	if search.calls != 2 {
		t.Errorf("search called %d times, want 2", search.calls)
	}
	if len(state.VisitedURLs) != 2 {
		t.Errorf("visited urls = %q, want 2 entries", state.VisitedURLs)
	}
	if len(state.Learnings) != 1 || state.Learnings[0] != "l1" {
		t.Errorf("learnings = %q, want deduplicated [l1]", state.Learnings)
	}
}

func TestRunClipsQueriesToBreadth(t *testing.T) {
	gw := &fakeGateway{
		planResponses: []string{planJSON(1, 1, "a", "b", "c")},
		serpResponse:  `{"learnings":[],"followUpQuestions":[]}`,
	}
	search := &fakeSearch{results: singleHit("a", "b", "c")}
	e := newTestEngine(gw, search, &fakeFetcher{}, Config{})

	e.Run(context.Background(), "X", nil, nil)

	if search.calls != 1 {
		t.Errorf("search called %d times, want 1 after clipping to breadth", search.calls)
	}
}

func TestRunTerminatesAtMaxIterations(t *testing.T) {
	gw := &fakeGateway{
		planResponses: []string{planJSON(1, 99, "a")},
		serpResponse:  `{"learnings":["l"],"followUpQuestions":[]}`,
	}
	search := &fakeSearch{results: singleHit("a")}
	e := newTestEngine(gw, search, &fakeFetcher{}, Config{MaxIterations: 3})

	state := e.Run(context.Background(), "X", nil, nil)

	if state.Iterations != 3 {
		t.Errorf("iterations = %d, want the cap of 3", state.Iterations)
	}
	if gw.planCalls != 3 {
		t.Errorf("planner called %d times, want 3", gw.planCalls)
	}
}

func TestRunDeduplicatesAcrossIterations(t *testing.T) {
	gw := &fakeGateway{
		planResponses: []string{planJSON(1, 2, "a"), planJSON(1, 1, "a")},
		serpResponse:  `{"learnings":["same learning","same learning"],"followUpQuestions":[]}`,
	}
	search := &fakeSearch{results: singleHit("a")}
	e := newTestEngine(gw, search, &fakeFetcher{}, Config{})

	state := e.Run(context.Background(), "X", nil, nil)

	if state.Iterations != 2 {
		t.Fatalf("iterations = %d, want 2", state.Iterations)
	}
	if len(state.Learnings) != 1 {
		t.Errorf("learnings = %q, want a single deduplicated entry", state.Learnings)
	}
	if len(state.VisitedURLs) != 1 {
		t.Errorf("visited urls = %q, want a single deduplicated entry", state.VisitedURLs)
	}
}

func TestRunPlannerFailureStopsGracefully(t *testing.T) {
	gw := &fakeGateway{failPlans: true}
	search := &fakeSearch{}
	e := newTestEngine(gw, search, &fakeFetcher{}, Config{})

	state := e.Run(context.Background(), "X", nil, nil)

	if state.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", state.Iterations)
	}
	if search.calls != 0 {
		t.Errorf("search called %d times, want 0", search.calls)
	}
}

func TestRunGarbledPlanStopsGracefully(t *testing.T) {
	gw := &fakeGateway{planResponses: []string{"total nonsense, no json"}}
	e := newTestEngine(gw, &fakeSearch{}, &fakeFetcher{}, Config{})

	state := e.Run(context.Background(), "X", nil, nil)

	if state.Iterations != 1 {
		t.Errorf("iterations = %d, want 1", state.Iterations)
	}
	if len(state.Learnings) != 0 {
		t.Errorf("learnings = %q, want none", state.Learnings)
	}
}

func TestRunFetchFailureDoesNotAbortSiblings(t *testing.T) {
	gw := &fakeGateway{
		planResponses: []string{planJSON(2, 1, "a", "b")},
		serpResponse:  `{"learnings":["l"],"followUpQuestions":[]}`,
	}
	search := &fakeSearch{results: singleHit("a", "b")}
	e := newTestEngine(gw, search, &fakeFetcher{err: errors.New("fetch blew up")}, Config{})

	state := e.Run(context.Background(), "X", nil, nil)

	// Both sub-queries still complete; URLs are recorded even though no
	// contents came back.
	if gw.serpCalls != 2 {
		t.Errorf("serp processing called %d times, want 2", gw.serpCalls)
	}
	if len(state.VisitedURLs) != 2 {
		t.Errorf("visited urls = %q, want 2 entries", state.VisitedURLs)
	}
}

func TestRunConcurrencyLimit(t *testing.T) {
	gauge := &phaseGauge{}
	gw := &fakeGateway{
		planResponses: []string{planJSON(5, 1, "a", "b", "c", "d", "e")},
		serpResponse:  `{"learnings":[],"followUpQuestions":[]}`,
	}
	search := &fakeSearch{gauge: gauge, results: singleHit("a", "b", "c", "d", "e")}
	fetcher := &fakeFetcher{gauge: gauge}
	e := newTestEngine(gw, search, fetcher, Config{ConcurrencyLimit: 2})

	e.Run(context.Background(), "X", nil, nil)

	if search.calls != 5 {
		t.Errorf("search called %d times, want all 5 before merge", search.calls)
	}
	if gw.serpCalls != 5 {
		t.Errorf("serp processing called %d times, want 5", gw.serpCalls)
	}
	if gauge.maxSeen > 2 {
		t.Errorf("observed %d concurrent search/fetch phases, limit is 2", gauge.maxSeen)
	}
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		incoming []string
		want     []string
	}{
		{"Both empty", nil, nil, []string{}},
		{"Only new", nil, []string{"a", "b", "a"}, []string{"a", "b"}},
		{"Combined order", []string{"a", "b"}, []string{"b", "c", "a", "c"}, []string{"a", "b", "c"}},
		{"Existing duplicates collapse", []string{"a", "a"}, nil, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupe(tt.existing, tt.incoming)
			if len(got) != len(tt.want) {
				t.Fatalf("dedupe() = %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("dedupe()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
