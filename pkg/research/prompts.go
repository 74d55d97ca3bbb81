package research

import (
	"fmt"
	"strings"
	"time"
)

func systemPrompt() string {
	now := time.Now().UTC().Format(time.RFC3339)
	return fmt.Sprintf(`You are an expert researcher. Today is %s. Follow these instructions when responding:
- Assume that the user is a highly experienced analyst.
- Be as detailed, organized, and accurate as possible.
- Always keep the original user query in context and do not deviate from it.
- Use all previously gathered learnings to decide if further research is needed.
- If you have gathered enough relevant information to fully answer the original query, set the depth to 0 and summarize the key findings.
- Provide clear recommendations and structured outputs.
`, now)
}

func planPrompt(originalQuery string, learnings []string) string {
	learningsStr := "No prior learnings."
	if len(learnings) > 0 {
		var b strings.Builder
		for _, l := range learnings {
			b.WriteString("- ")
			b.WriteString(l)
			b.WriteString("\n")
		}
		learningsStr = strings.TrimRight(b.String(), "\n")
	}

	return fmt.Sprintf(`You are deciding how to conduct further research.

Original query: %s

Learnings from previous research steps:
%s

Based on the original query and the learnings so far, determine how many new SERP queries to run and how many additional research iterations are needed. If you believe that sufficient information has been gathered to produce a final report that directly answers the original query, set depth to 0. Return your answer in valid JSON with the following structure:

{
  "breadth": <number of SERP queries to run this iteration>,
  "depth": <number of additional iterations needed; set 0 if research is complete>,
  "queries": [
    {"query": "<SERP query>", "researchGoal": "<explain what this query should achieve>"},
    ...
  ]
}

Do not deviate from the original query and only request further research if it will add value.`, originalQuery, learningsStr)
}

func serpPrompt(query string, contents []string) string {
	var contentsStr strings.Builder
	for _, content := range contents {
		contentsStr.WriteString("<content>\n")
		contentsStr.WriteString(content)
		contentsStr.WriteString("\n</content>\n")
	}

	return fmt.Sprintf(`We have the following SERP results for this query:
<query>%s</query>

<contents>
%s</contents>

Based on these contents, provide a JSON object with two arrays: 'learnings' and 'followUpQuestions'.
The 'learnings' should contain the key insights from these results, and the 'followUpQuestions' should suggest further questions to clarify or expand on the original query if needed.
Return valid JSON, for example:
{
  "learnings": ["...", "..."],
  "followUpQuestions": ["...", "..."]
}`, query, contentsStr.String())
}

func reportPrompt(originalQuery, learnings string) string {
	return fmt.Sprintf(`We have completed our deep research. Please respond to the user based on the original query and the compiled learnings.

1. **If the user is asking a direct question or wants a brief answer**, provide a concise, clear response first.
2. **If the user is asking for a detailed or final report**, produce a structured, in-depth report in proper Markdown format.
   - The report should comprehensively address the original query.
   - Incorporate all relevant insights from the compiled learnings.
   - Include recommendations, key findings, and any other relevant details.

3. **If the user's request is unclear**, politely ask for clarification.

Include these elements in your response:
- Directly answer any user question (if one was asked).
- A structured summary or final report (if requested), with headings, bullet points, or tables as needed.
- A final summary of key findings and recommendations, where applicable.

Always return your final output in valid JSON under the key "reportMarkdown". For example:
`+"```json"+`
{
  "reportMarkdown": "Your answer or report in Markdown here"
}
`+"```"+`

**Original query:** %s

### Compiled Learnings
<learnings>
%s
</learnings>

Be sure to use all relevant learnings and, if needed, clearly state any assumptions or remaining questions.`, originalQuery, learnings)
}
