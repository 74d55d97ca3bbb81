package research

import "testing"

func TestParsePlanFencedBlock(t *testing.T) {
	raw := "```json\n{\"breadth\":2,\"depth\":1,\"queries\":[]}\n```"
	plan, err := ParsePlan(raw)
	if err != nil {
		t.Fatalf("ParsePlan returned error: %v", err)
	}
	if plan.Breadth != 2 || plan.Depth != 1 || len(plan.Queries) != 0 {
		t.Errorf("plan = %+v, want breadth 2, depth 1, no queries", plan)
	}
}

func TestParsePlanWithQueries(t *testing.T) {
	raw := `Sure, here is the plan:
{"breadth":1,"depth":2,"queries":[{"query":"go concurrency","researchGoal":"understand goroutines"}]}`
	plan, err := ParsePlan(raw)
	if err != nil {
		t.Fatalf("ParsePlan returned error: %v", err)
	}
	if len(plan.Queries) != 1 {
		t.Fatalf("got %d queries, want 1", len(plan.Queries))
	}
	if plan.Queries[0].Query != "go concurrency" {
		t.Errorf("query = %q, want %q", plan.Queries[0].Query, "go concurrency")
	}
	if plan.Queries[0].ResearchGoal != "understand goroutines" {
		t.Errorf("researchGoal = %q, want %q", plan.Queries[0].ResearchGoal, "understand goroutines")
	}
}

func TestParsePlanGarbledYieldsZeroPlan(t *testing.T) {
	plan, err := ParsePlan("I couldn't come up with a plan, sorry!")
	if err == nil {
		t.Error("expected parse error for garbled input")
	}
	if plan.Breadth != 0 || plan.Depth != 0 || len(plan.Queries) != 0 {
		t.Errorf("plan = %+v, want the zero plan", plan)
	}
}

func TestParseStepSummary(t *testing.T) {
	raw := "```\n{\"learnings\":[\"a\",\"b\"],\"followUpQuestions\":[\"q\"]}\n```"
	summary, err := ParseStepSummary(raw)
	if err != nil {
		t.Fatalf("ParseStepSummary returned error: %v", err)
	}
	if len(summary.Learnings) != 2 || len(summary.FollowUpQuestions) != 1 {
		t.Errorf("summary = %+v, want 2 learnings and 1 follow-up", summary)
	}
}

func TestParseStepSummaryGarbledYieldsEmpty(t *testing.T) {
	summary, err := ParseStepSummary("<<<not json>>>")
	if err == nil {
		t.Error("expected parse error for garbled input")
	}
	if len(summary.Learnings) != 0 || len(summary.FollowUpQuestions) != 0 {
		t.Errorf("summary = %+v, want empty", summary)
	}
}

func TestParseReportMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"Valid JSON",
			`{"reportMarkdown":"# Findings\n\nAll good."}`,
			"# Findings\n\nAll good.",
		},
		{
			"JSON inside prose",
			`Here is your report: {"reportMarkdown":"# Report"} enjoy`,
			"# Report",
		},
		{
			"Non-JSON degrades to raw text",
			"# A plain markdown report",
			"# A plain markdown report",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseReportMarkdown(tt.input); got != tt.expected {
				t.Errorf("ParseReportMarkdown(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
