package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
)

// Answer is one response. Option fields are copied from the catalog at
// selection time so a result keeps its meaning if the catalog changes later.
// An empty OptionValue means the question was not answered.
type Answer struct {
	QuestionID        string  `json:"question_id"`
	OptionValue       string  `json:"option_value"`
	OptionLabel       string  `json:"option_label"`
	OptionDescription string  `json:"option_description"`
	Score             float64 `json:"score"`
}

func (a Answer) Answered() bool { return a.OptionValue != "" }

// Unanswered returns the canonical empty answer for a question.
func Unanswered(q catalog.Question) Answer { return Answer{QuestionID: q.ID} }

func fromOption(q catalog.Question, o catalog.Option) Answer {
	return Answer{
		QuestionID:        q.ID,
		OptionValue:       o.Value,
		OptionLabel:       o.Label,
		OptionDescription: o.Description,
		Score:             o.Score,
	}
}

// MismatchError reports a selection that does not resolve against the
// question's current options.
type MismatchError struct {
	QuestionID string
	Value      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("question %s: option %q not found", e.QuestionID, e.Value)
}

// Normalize turns a selected option value into an Answer. Matching is by exact
// value. An empty value yields an unanswered Answer; an unknown value also
// yields an unanswered Answer, together with a *MismatchError the caller may log.
func Normalize(q catalog.Question, value string) (Answer, error) {
	if value == "" {
		return Unanswered(q), nil
	}
	for _, o := range q.Options {
		if o.Value == value {
			return fromOption(q, o), nil
		}
	}
	return Unanswered(q), &MismatchError{QuestionID: q.ID, Value: value}
}

// StoredAnswer is a previously persisted answer in any of the shapes sessions
// have been stored in: a full object, a bare option value, or a bare score.
type StoredAnswer struct {
	OptionValue string
	OptionLabel string
	Score       *float64
}

func (s *StoredAnswer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = StoredAnswer{}
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = StoredAnswer{OptionValue: v}
		return nil
	case '{':
		var obj struct {
			OptionValue string   `json:"option_value"`
			OptionLabel string   `json:"option_label"`
			LegacyValue string   `json:"optionValue"`
			LegacyLabel string   `json:"optionLabel"`
			Score       *float64 `json:"score"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*s = StoredAnswer{
			OptionValue: firstNonEmpty(obj.OptionValue, obj.LegacyValue),
			OptionLabel: firstNonEmpty(obj.OptionLabel, obj.LegacyLabel),
			Score:       obj.Score,
		}
		return nil
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("stored answer: %w", err)
		}
		*s = StoredAnswer{Score: &f}
		return nil
	}
}

func (s StoredAnswer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		OptionValue string   `json:"option_value,omitempty"`
		OptionLabel string   `json:"option_label,omitempty"`
		Score       *float64 `json:"score,omitempty"`
	}{s.OptionValue, s.OptionLabel, s.Score})
}

func (s StoredAnswer) empty() bool {
	return s.OptionValue == "" && s.OptionLabel == "" && s.Score == nil
}

// Restore re-resolves a stored answer against the current question, trying the
// option value, then the label, then the raw score (sessions stored before
// labels and values were both kept). The first key that matches wins.
func Restore(q catalog.Question, stored StoredAnswer) Answer {
	if stored.empty() {
		return Unanswered(q)
	}
	matchers := []func(catalog.Option) bool{
		func(o catalog.Option) bool { return stored.OptionValue != "" && o.Value == stored.OptionValue },
		func(o catalog.Option) bool { return stored.OptionLabel != "" && o.Label == stored.OptionLabel },
		func(o catalog.Option) bool { return stored.Score != nil && o.Score == *stored.Score },
	}
	for _, match := range matchers {
		for _, o := range q.Options {
			if match(o) {
				return fromOption(q, o)
			}
		}
	}
	return Unanswered(q)
}

// Stored converts an answer into its storage shape.
func (a Answer) Stored() StoredAnswer {
	if !a.Answered() {
		return StoredAnswer{}
	}
	score := a.Score
	return StoredAnswer{OptionValue: a.OptionValue, OptionLabel: a.OptionLabel, Score: &score}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
