package research

import (
	"encoding/json"

	"github.com/mikeboe/deep-research/pkg/extract"
)

// ParsePlan extracts a ResearchPlan from a raw model reply. A reply that
// cannot be parsed yields the zero plan, which the orchestrator treats as
// the stop signal; the error is returned for logging only.
func ParsePlan(raw string) (ResearchPlan, error) {
	var plan ResearchPlan
	if err := extract.Decode(raw, &plan); err != nil {
		return ResearchPlan{}, err
	}
	return plan, nil
}

// ParseStepSummary extracts learnings and follow-up questions from a raw
// model reply. Unparseable replies yield an empty summary.
func ParseStepSummary(raw string) (StepSummary, error) {
	var summary StepSummary
	if err := extract.Decode(raw, &summary); err != nil {
		return StepSummary{}, err
	}
	return summary, nil
}

// ParseReportMarkdown extracts the reportMarkdown field from a raw model
// reply. A report does not have to be strict JSON to be useful, so on
// parse failure the cleaned text itself is returned.
func ParseReportMarkdown(raw string) string {
	cleaned := extract.FirstJSONObject(raw)

	var parsed struct {
		ReportMarkdown string `json:"reportMarkdown"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil || parsed.ReportMarkdown == "" {
		return cleaned
	}
	return parsed.ReportMarkdown
}
