package research

import "context"

// SubQuery is a single SERP query proposed by the planner, together with
// the goal it is meant to achieve. Immutable once produced for an
// iteration.
type SubQuery struct {
	Query        string `json:"query"`
	ResearchGoal string `json:"researchGoal"`
}

// ResearchPlan is the planner's answer for one iteration: how many SERP
// queries to run (breadth), how many further iterations are needed
// (depth), and the proposed queries. A zero plan is the stop signal.
type ResearchPlan struct {
	Breadth int        `json:"breadth"`
	Depth   int        `json:"depth"`
	Queries []SubQuery `json:"queries"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// FetchedDocument is page content retrieved for a URL. Content may be
// empty when the fetch failed for that document.
type FetchedDocument struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// StepSummary is what the model distills out of one sub-query's SERP
// contents.
type StepSummary struct {
	Learnings         []string `json:"learnings"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// StepResult is the unit of work produced per sub-query: the URLs that
// were visited and the distilled summary.
type StepResult struct {
	URLs              []string `json:"urls"`
	Learnings         []string `json:"learnings"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

// ResearchState accumulates learnings and visited URLs across iterations.
// Both sequences are insertion-ordered and de-duplicated by exact string
// equality. The state is owned by the orchestrator and only mutated
// between iterations, never by concurrent sub-query tasks.
type ResearchState struct {
	Learnings   []string `json:"learnings"`
	VisitedURLs []string `json:"visited_urls"`
	Iterations  int      `json:"iterations"`
}

// SearchProvider executes a query and returns structured results. An
// empty slice means no results; errors are converted to empty results at
// the orchestrator boundary.
type SearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// ContentFetcher retrieves page content for a set of URLs. Documents that
// fail to fetch are omitted from the result rather than reported.
type ContentFetcher interface {
	Fetch(ctx context.Context, urls []string) ([]FetchedDocument, error)
}
