package catalog

// FieldType is the input control used to capture a context field.
type FieldType string

const (
	FieldSelect   FieldType = "select"
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
)

// ColumnKind controls how a context value is coerced before it is written to a row.
type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindNumeric ColumnKind = "numeric"
)

type FieldOption struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// ContextField is a profile input captured once, before questioning begins.
type ContextField struct {
	ID      string        `json:"id"`
	Label   string        `json:"label"`
	Type    FieldType     `json:"type"`
	Options []FieldOption `json:"options,omitempty"`
}

// OptionLabel returns the human-readable label for a select value.
func (f ContextField) OptionLabel(value string) (string, bool) {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label, true
		}
	}
	return "", false
}

// Option is one answer choice. Score is an opaque weight, not an ordinal.
type Option struct {
	Value       string  `json:"value"`
	Label       string  `json:"label"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

type Question struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// MaxScore is the largest option weight of the question (0 when it has no options).
func (q Question) MaxScore() float64 {
	if len(q.Options) == 0 {
		return 0
	}
	max := q.Options[0].Score
	for _, o := range q.Options[1:] {
		if o.Score > max {
			max = o.Score
		}
	}
	return max
}

// ScoreRange is a percentage band, inclusive on both ends.
type ScoreRange struct {
	Min         int    `json:"min"`
	Max         int    `json:"max"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (r ScoreRange) Contains(p int) bool { return r.Min <= p && p <= r.Max }

type Scoring struct {
	Ranges []ScoreRange `json:"ranges"`
}

type Welcome struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Config struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	HeroTitle     string         `json:"hero_title,omitempty"`
	HeroSubtitle  string         `json:"hero_subtitle,omitempty"`
	CardTitle     string         `json:"card_title,omitempty"`
	CardSubtitle  string         `json:"card_subtitle,omitempty"`
	Welcome       Welcome        `json:"welcome"`
	ContextFields []ContextField `json:"context_fields"`
	Questions     []Question     `json:"questions"`
	Scoring       Scoring        `json:"scoring"`

	AnalysisPrompt string `json:"analysis_prompt"`
	SystemPrompt   string `json:"-"`
}

// Field looks up a context field by id.
func (c Config) Field(id string) (ContextField, bool) {
	for _, f := range c.ContextFields {
		if f.ID == id {
			return f, true
		}
	}
	return ContextField{}, false
}

// Question looks up a question by id and returns its position.
func (c Config) Question(id string) (Question, int, bool) {
	for i, q := range c.Questions {
		if q.ID == id {
			return q, i, true
		}
	}
	return Question{}, -1, false
}

// ColumnMapping binds a context field to a destination column.
type ColumnMapping struct {
	Field  string     `json:"field"`
	Column string     `json:"column"`
	Kind   ColumnKind `json:"kind"`
}

// Mapping is the persistence destination of one configuration.
type Mapping struct {
	Table   string          `json:"table"`
	Columns []ColumnMapping `json:"columns"`
}
