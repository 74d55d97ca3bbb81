package research

import (
	"context"
	"fmt"
	"strings"
)

// WriteFinalReport asks the model for a final Markdown report over the
// accumulated learnings and appends a Sources section listing the visited
// URLs in visitation order. The Sources section is built here, never by
// the model.
func (e *Engine) WriteFinalReport(ctx context.Context, originalQuery string, learnings, visitedURLs []string) (string, error) {
	var b strings.Builder
	for _, l := range learnings {
		b.WriteString("<learning>\n")
		b.WriteString(l)
		b.WriteString("\n</learning>\n")
	}
	learningsBlock := e.Trimmer.Trim(strings.TrimRight(b.String(), "\n"), reportContextSize)

	prompt := reportPrompt(originalQuery, learningsBlock)
	if e.Config.Verbose {
		e.Logger.Debug("Report prompt", "prompt", prompt)
	}

	res := e.Gateway.Generate(ctx, systemPrompt(), prompt, reportMaxTokens, generationTemperature)
	if !res.Success {
		return "", fmt.Errorf("final report generation failed: %w", res.Err)
	}

	report := ParseReportMarkdown(res.Response)
	return report + sourcesSection(visitedURLs), nil
}

// sourcesSection renders the visited URLs as a Markdown bullet list, one
// per line, in visitation order.
func sourcesSection(visitedURLs []string) string {
	if len(visitedURLs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n## Sources\n")
	for i, url := range visitedURLs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(url)
	}
	return b.String()
}
