package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/narrative"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

//go:embed report.html.tmpl
var reportTmpl string

var tmpl = template.Must(template.New("report").Parse(reportTmpl))

const ContentType = "text/html; charset=utf-8"

type contextRow struct {
	Label, Value string
}

type answerRow struct {
	Number   int
	Title    string
	Selected string
	Score    string
	Max      string
}

type view struct {
	Title          string
	Subtitle       string
	Generated      string
	Percentage     int
	Total          string
	Max            string
	Level          catalog.ScoreRange
	Context        []contextRow
	Answers        []answerRow
	Narrative      template.HTML
	NarrativeError string
}

// Render produces a self-contained HTML document from a result and the
// narrative text. An empty narrative renders an explicit notice instead.
func Render(cfg catalog.Config, r *session.Result, narrativeHTML, narrativeErr string) ([]byte, error) {
	v := view{
		Title:      firstNonEmpty(cfg.Welcome.Title, cfg.Name, "Readiness Report"),
		Subtitle:   cfg.Name,
		Generated:  r.CompletedAt.UTC().Format("2 January 2006"),
		Percentage: r.ResultPercentage,
		Total:      formatNumber(r.TotalScore),
		Max:        formatNumber(r.MaxPossibleScore),
		Level:      r.Interpretation,
		Narrative:  template.HTML(narrativeHTML),
	}
	if v.Level.Color == "" {
		v.Level.Color = "#18ab4b"
	}
	if strings.TrimSpace(narrativeHTML) == "" {
		v.NarrativeError = firstNonEmpty(narrativeErr, "The action plan could not be generated for this report.")
	}
	for _, f := range cfg.ContextFields {
		v.Context = append(v.Context, contextRow{Label: f.Label, Value: narrative.ContextValue(f, r.Context[f.ID])})
	}
	for i, q := range cfg.Questions {
		row := answerRow{Number: i + 1, Title: firstNonEmpty(q.Title, q.Prompt), Selected: "Not answered", Score: "0", Max: formatNumber(q.MaxScore())}
		if i < len(r.Answers) && r.Answers[i].Answered() {
			row.Selected = r.Answers[i].OptionLabel
			row.Score = formatNumber(r.Answers[i].Score)
		}
		v.Answers = append(v.Answers, row)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name of a result's report.
func FileName(r *session.Result) string {
	at := r.CompletedAt
	if at.IsZero() {
		at = time.Now()
	}
	return "ai-readiness-report-" + at.UTC().Format("2006-01-02") + ".html"
}

func formatNumber(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
