package report

import (
	"fmt"
	"html"
	"strings"
)

// RenderHTML renders the clean report as a standalone HTML page.
func RenderHTML(clean Clean) string {
	var b strings.Builder

	b.WriteString("<html><head><meta charset='utf-8'><title>Conversation Evaluation Report</title></head><body>")
	b.WriteString("<h1>Conversation Evaluation Report</h1>")
	fmt.Fprintf(&b, "<p>Generated: %s</p>", html.EscapeString(clean.GeneratedAt))

	b.WriteString("<h2>Summary</h2><ul>")
	fmt.Fprintf(&b, "<li><b>Mean Relevance:</b> %v</li>", clean.Summary.MeanRelevance)
	fmt.Fprintf(&b, "<li><b>Mean Completeness:</b> %v</li>", clean.Summary.MeanCompleteness)
	fmt.Fprintf(&b, "<li><b>Mean Hallucination Ratio:</b> %v</li>", clean.Summary.MeanHallucinationRatio)
	fmt.Fprintf(&b, "<li><b>Evaluated Responses:</b> %d</li>", clean.Summary.EvaluatedResponses)
	b.WriteString("</ul>")

	b.WriteString("<h2>Per-turn Scores</h2>")
	b.WriteString("<table border='1' style='border-collapse:collapse'><tr>" +
		"<th>Pair</th><th>Turn ID</th><th>User</th><th>AI</th>" +
		"<th>Rel</th><th>Comp</th><th>Hall</th><th>Review?</th></tr>")
	for _, turn := range clean.PerTurnScores {
		review := "NO"
		if turn.RequiresManualReview {
			review = "YES"
		}
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%v</td><td>%s</td><td>%s</td><td>%v</td><td>%v</td><td>%v</td><td>%s</td></tr>",
			turn.PairIndex,
			turn.TurnID,
			html.EscapeString(turn.UserPreview),
			html.EscapeString(turn.AIPreview),
			turn.Relevance,
			turn.Completeness,
			turn.HallucinationRatio,
			review,
		)
	}
	b.WriteString("</table>")

	b.WriteString("<h2>Warnings</h2>")
	for _, warning := range clean.Warnings {
		fmt.Fprintf(&b, "<p style='color:red'>%s</p>", html.EscapeString(warning))
	}

	b.WriteString("<h2>Summary (Text)</h2>")
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(clean.NaturalLanguageSummary))

	b.WriteString("</body></html>")

	return b.String()
}
