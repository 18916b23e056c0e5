package persist

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/scoring"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

// Row is one flat record handed to a RowStore. Values are nil, string,
// float64, int/int64, or nested data the store keeps as opaque JSON.
type Row map[string]any

// Fixed columns written for every result.
const (
	ColID                  = "id"
	ColConfigID            = "config_id"
	ColAnswers             = "answers"
	ColNumericScores       = "numeric_scores"
	ColTotalScore          = "total_score"
	ColMaxPossibleScore    = "max_possible_score"
	ColResultPercentage    = "result_percentage"
	ColInterpretationLabel = "interpretation_label"
	ColCreatedAt           = "created_at"
)

func DestinationTable(m catalog.Mapping) string { return m.Table }

// ToRow flattens a result into the mapping's row shape. Mapped context values
// are coerced by column kind; answers and scores are passed through as nested
// data.
func ToRow(m catalog.Mapping, r *session.Result) Row {
	row := Row{
		ColConfigID:            r.ConfigID,
		ColAnswers:             r.Answers,
		ColNumericScores:       r.NumericScores(),
		ColTotalScore:          r.TotalScore,
		ColMaxPossibleScore:    r.MaxPossibleScore,
		ColResultPercentage:    r.ResultPercentage,
		ColInterpretationLabel: r.Interpretation.Label,
		ColCreatedAt:           r.CompletedAt.Unix(),
	}
	for _, c := range m.Columns {
		row[c.Column] = coerce(c.Kind, r.Context[c.Field])
	}
	return row
}

func coerce(kind catalog.ColumnKind, v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if kind != catalog.KindNumeric {
		return v
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// Record is a persisted result read back from a row.
type Record struct {
	ID                  string            `json:"id"`
	ConfigID            string            `json:"config_id"`
	Context             map[string]string `json:"context"`
	Answers             []scoring.Answer  `json:"answers"`
	NumericScores       []float64         `json:"numeric_scores"`
	TotalScore          float64           `json:"total_score"`
	MaxPossibleScore    float64           `json:"max_possible_score"`
	ResultPercentage    int               `json:"result_percentage"`
	InterpretationLabel string            `json:"interpretation_label"`
	CreatedAt           time.Time         `json:"created_at"`
}

// FromRow is the inverse of ToRow. It accepts both the in-memory row shape and
// the shape read back from SQL, where nested data arrives as JSON text.
// Numeric columns come back in canonical form: "07" is stored as 7 and read
// back as "7", "12.50" as "12.5".
func FromRow(m catalog.Mapping, row Row) (Record, error) {
	rec := Record{
		ID:                  asString(row[ColID]),
		ConfigID:            asString(row[ColConfigID]),
		InterpretationLabel: asString(row[ColInterpretationLabel]),
		Context:             map[string]string{},
	}
	var err error
	if rec.TotalScore, err = asFloat(row[ColTotalScore]); err != nil {
		return Record{}, fmt.Errorf("%s: %w", ColTotalScore, err)
	}
	if rec.MaxPossibleScore, err = asFloat(row[ColMaxPossibleScore]); err != nil {
		return Record{}, fmt.Errorf("%s: %w", ColMaxPossibleScore, err)
	}
	pct, err := asFloat(row[ColResultPercentage])
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", ColResultPercentage, err)
	}
	rec.ResultPercentage = int(pct)
	created, err := asFloat(row[ColCreatedAt])
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", ColCreatedAt, err)
	}
	rec.CreatedAt = time.Unix(int64(created), 0).UTC()

	if err := decodeNested(row[ColAnswers], &rec.Answers); err != nil {
		return Record{}, fmt.Errorf("%s: %w", ColAnswers, err)
	}
	if err := decodeNested(row[ColNumericScores], &rec.NumericScores); err != nil {
		return Record{}, fmt.Errorf("%s: %w", ColNumericScores, err)
	}

	for _, c := range m.Columns {
		switch v := row[c.Column].(type) {
		case nil:
		case float64:
			rec.Context[c.Field] = strconv.FormatFloat(v, 'f', -1, 64)
		case int64:
			rec.Context[c.Field] = strconv.FormatInt(v, 10)
		default:
			if s := asString(v); s != "" {
				rec.Context[c.Field] = s
			}
		}
	}
	return rec, nil
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asFloat(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		return strconv.ParseFloat(x, 64)
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

func decodeNested(v any, dst any) error {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return json.Unmarshal([]byte(x), dst)
	case []byte:
		return json.Unmarshal(x, dst)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
