package scoring

import (
	"math"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
)

// Totals is the aggregate of one answer set.
type Totals struct {
	Total       float64 `json:"total_score"`
	MaxPossible float64 `json:"max_possible_score"`
	Percentage  int     `json:"result_percentage"`
}

// Score sums the answer weights and relates them to the best attainable total
// under the configuration's current option weights. It is pure: the same
// inputs always give the same Totals. A configuration whose maximum is zero
// scores 0%.
func Score(cfg catalog.Config, answers []Answer) Totals {
	var t Totals
	for _, a := range answers {
		t.Total += a.Score
	}
	for _, q := range cfg.Questions {
		t.MaxPossible += q.MaxScore()
	}
	t.Percentage = Percentage(t.Total, t.MaxPossible)
	return t
}

// Percentage is round(100*total/max) clamped to [0,100], and 0 when max <= 0.
func Percentage(total, max float64) int {
	if max <= 0 || math.IsNaN(total) || math.IsNaN(max) {
		return 0
	}
	p := math.Round(100 * total / max)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}

// NumericScores returns the per-question weights in answer order.
func NumericScores(answers []Answer) []float64 {
	out := make([]float64, len(answers))
	for i, a := range answers {
		out[i] = a.Score
	}
	return out
}

// Evaluation bundles the totals with the matched interpretation.
type Evaluation struct {
	Totals
	Interpretation catalog.ScoreRange `json:"interpretation"`
	// Matched is false when the range table did not cover the percentage and
	// the last range was used instead.
	Matched bool `json:"-"`
}

func Evaluate(cfg catalog.Config, answers []Answer) Evaluation {
	t := Score(cfg, answers)
	r, ok := Lookup(cfg.Scoring.Ranges, t.Percentage)
	if !ok {
		r = Classify(cfg.Scoring.Ranges, t.Percentage)
	}
	return Evaluation{Totals: t, Interpretation: r, Matched: ok}
}
