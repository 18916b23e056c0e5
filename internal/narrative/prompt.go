package narrative

import (
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

const defaultGuidance = "Produce a concise, practical, and encouraging personalised action plan."

const responseStructure = `Respond only with HTML content (no surrounding commentary) using this structure exactly:
<h3>Now (The Next 2-4 Weeks): Quick Wins</h3>
<p>A very short intro sentence (1-2 lines).</p>
<ul>
  <li><strong>Title for suggestion 1:</strong> <br>What to do: Brief practical step. <br>Why it helps: Brief benefit explanation.</li>
  <li><strong>Title for suggestion 2:</strong> <br>What to do: Brief practical step. <br>Why it helps: Brief benefit explanation.</li>
  <li><strong>Title for suggestion 3:</strong> <br>What to do: Brief practical step. <br>Why it helps: Brief benefit explanation.</li>
</ul>

<h3>Next (This Term): Build Your Skills</h3>
<p>Short intro.</p>
<ul>
  <li>Three items in the same shape as above.</li>
</ul>

<h3>Later (Next Term and Beyond): Think Strategically</h3>
<p>Short intro.</p>
<ul>
  <li>Three items in the same shape as above.</li>
</ul>

Each list item should include a short title, "What to do:" and "Why it helps:". Keep content actionable and specific to the context and the detailed answers above.`

// BuildPrompt renders the user prompt for one result: the configuration's
// guidance, the context with human-readable labels, the score summary and a
// per-question breakdown.
func BuildPrompt(cfg catalog.Config, r *session.Result) string {
	var b strings.Builder

	guidance := strings.TrimSpace(cfg.AnalysisPrompt)
	if guidance == "" {
		guidance = defaultGuidance
	}
	b.WriteString(guidance)
	b.WriteString("\nUse HTML headings and lists as in the structure below. Tone: supportive, jargon-free.\n\n")

	if len(cfg.ContextFields) > 0 {
		b.WriteString("Context:\n")
		for _, f := range cfg.ContextFields {
			fmt.Fprintf(&b, "- %s: %s\n", f.Label, ContextValue(f, r.Context[f.ID]))
		}
		b.WriteString("\n")
	}

	b.WriteString("Assessment summary:\n")
	fmt.Fprintf(&b, "Overall percentage: %d%%\n", r.ResultPercentage)
	fmt.Fprintf(&b, "Overall level: %s\n", r.Interpretation.Label)
	fmt.Fprintf(&b, "Total score: %s of %s\n", formatScore(r.TotalScore), formatScore(r.MaxPossibleScore))
	b.WriteString("Detailed answers:\n")
	for i, q := range cfg.Questions {
		label, score := "Not answered", 0.0
		if i < len(r.Answers) && r.Answers[i].Answered() {
			label, score = r.Answers[i].OptionLabel, r.Answers[i].Score
		}
		fmt.Fprintf(&b, "%d. %s\n   Selected: %s (score %s)\n", i+1, questionTitle(q, i), label, formatScore(score))
	}
	b.WriteString("\n")
	b.WriteString(responseStructure)
	return b.String()
}

// ContextValue shows a stored context value the way the user chose it: the
// option label for select fields, the raw value otherwise, "-" when empty.
func ContextValue(f catalog.ContextField, v string) string {
	if v == "" {
		return "-"
	}
	if label, ok := f.OptionLabel(v); ok {
		return label
	}
	return v
}

func questionTitle(q catalog.Question, i int) string {
	title := q.Title
	if title == "" || strings.HasPrefix(title, "Question ") {
		if q.Prompt != "" {
			return q.Prompt
		}
	}
	if title == "" {
		return fmt.Sprintf("Question %d", i+1)
	}
	return title
}

func formatScore(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
