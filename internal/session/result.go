package session

import (
	"time"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/scoring"
)

// Result is the terminal aggregate of one completed session. It is built once
// and never mutated afterwards.
type Result struct {
	ConfigID         string             `json:"config_id"`
	Answers          []scoring.Answer   `json:"answers"`
	Context          map[string]string  `json:"context"`
	TotalScore       float64            `json:"total_score"`
	MaxPossibleScore float64            `json:"max_possible_score"`
	ResultPercentage int                `json:"result_percentage"`
	Interpretation   catalog.ScoreRange `json:"interpretation"`
	CompletedAt      time.Time          `json:"completed_at"`
}

// NewResult scores answers against cfg. Context and answers are copied.
func NewResult(cfg catalog.Config, context map[string]string, answers []scoring.Answer) *Result {
	ev := scoring.Evaluate(cfg, answers)
	ctx := make(map[string]string, len(context))
	for k, v := range context {
		ctx[k] = v
	}
	return &Result{
		ConfigID:         cfg.ID,
		Answers:          append([]scoring.Answer(nil), answers...),
		Context:          ctx,
		TotalScore:       ev.Total,
		MaxPossibleScore: ev.MaxPossible,
		ResultPercentage: ev.Percentage,
		Interpretation:   ev.Interpretation,
		CompletedAt:      time.Now().UTC(),
	}
}

func (r *Result) NumericScores() []float64 { return scoring.NumericScores(r.Answers) }
