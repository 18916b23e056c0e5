package session

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/metrics"
	"github.com/mind-engage/mindengage-readiness/internal/scoring"
)

type State string

const (
	StateContextCapture      State = "context_capture"
	StateQuestioning         State = "questioning"
	StateScoring             State = "scoring"
	StatePersisting          State = "persisting"
	StateNarrativeGeneration State = "narrative_generation"
	StateDisplay             State = "display"
	StateDisplayWithError    State = "display_with_error"
)

var transitions = map[State][]State{
	StateContextCapture:      {StateQuestioning},
	StateQuestioning:         {StateScoring},
	StateScoring:             {StatePersisting, StateNarrativeGeneration},
	StatePersisting:          {StateNarrativeGeneration},
	StateNarrativeGeneration: {StateDisplay, StateDisplayWithError},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDisplay || s == StateDisplayWithError }

// Editable reports whether context and answers may still change.
func (s State) Editable() bool { return s == StateContextCapture || s == StateQuestioning }

var (
	ErrFinalized         = errors.New("session already finalized")
	ErrContextIncomplete = errors.New("context incomplete")
	ErrUnknownField      = errors.New("unknown context field")
	ErrUnknownQuestion   = errors.New("unknown question")
	ErrNotQuestioning    = errors.New("session is not in questioning")
)

type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// Session is one user's pass through a configuration. Answers is parallel to
// the configuration's questions; unanswered slots hold scoring.Unanswered.
type Session struct {
	ID        string            `json:"id"`
	ConfigID  string            `json:"config_id"`
	State     State             `json:"state"`
	Context   map[string]string `json:"context"`
	Answers   []scoring.Answer  `json:"answers"`
	Result    *Result           `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Filled once the submission side effects have finished.
	Narrative      string `json:"narrative,omitempty"`
	NarrativeError string `json:"narrative_error,omitempty"`
	PersistedID    string `json:"persisted_id,omitempty"`
}

func New(cfg catalog.Config) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		ConfigID:  cfg.ID,
		State:     StateContextCapture,
		Context:   map[string]string{},
		Answers:   make([]scoring.Answer, len(cfg.Questions)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, q := range cfg.Questions {
		s.Answers[i] = scoring.Unanswered(q)
	}
	return s
}

// Advance moves the session along the lifecycle, rejecting anything the
// lifecycle does not allow.
func (s *Session) Advance(to State) error {
	for _, next := range transitions[s.State] {
		if next == to {
			s.State = to
			s.touch()
			return nil
		}
	}
	return &TransitionError{From: s.State, To: to}
}

// SetContext records one profile value. Select fields only accept one of
// their declared option values; an empty value clears the field.
func (s *Session) SetContext(cfg catalog.Config, field, value string) error {
	if !s.State.Editable() {
		return ErrFinalized
	}
	f, ok := cfg.Field(field)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(s.Context, field)
		s.touch()
		return nil
	}
	if f.Type == catalog.FieldSelect {
		if _, ok := f.OptionLabel(value); !ok {
			return fmt.Errorf("field %s: option %q not found", field, value)
		}
	}
	s.Context[field] = value
	s.touch()
	return nil
}

// MissingContext lists the context fields that still have no value.
func (s *Session) MissingContext(cfg catalog.Config) []string {
	var missing []string
	for _, f := range cfg.ContextFields {
		if s.Context[f.ID] == "" {
			missing = append(missing, f.ID)
		}
	}
	return missing
}

func (s *Session) ContextComplete(cfg catalog.Config) bool {
	return len(s.MissingContext(cfg)) == 0
}

func (s *Session) BeginQuestioning(cfg catalog.Config) error {
	if missing := s.MissingContext(cfg); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrContextIncomplete, strings.Join(missing, ", "))
	}
	return s.Advance(StateQuestioning)
}

// Answer selects an option for a question, replacing any earlier selection.
// A value that no longer resolves is recorded as unanswered and logged.
func (s *Session) Answer(cfg catalog.Config, questionID, value string) (scoring.Answer, error) {
	if !s.State.Editable() {
		return scoring.Answer{}, ErrFinalized
	}
	if s.State != StateQuestioning {
		return scoring.Answer{}, ErrNotQuestioning
	}
	q, i, ok := cfg.Question(questionID)
	if !ok {
		return scoring.Answer{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	a, err := scoring.Normalize(q, value)
	if err != nil {
		log.Printf("WARN: [Session] %s: %v, recorded as unanswered", s.ID, err)
		metrics.AnswerMismatches.WithLabelValues(cfg.ID).Inc()
	}
	s.fit(cfg)
	s.Answers[i] = a
	s.touch()
	return a, nil
}

// Next returns the index of the first unanswered question, or -1.
func (s *Session) Next() int {
	for i, a := range s.Answers {
		if !a.Answered() {
			return i
		}
	}
	return -1
}

// Finalize scores the answers and moves the session to scoring. The answers
// are frozen from here on.
func (s *Session) Finalize(cfg catalog.Config) (*Result, error) {
	if s.State != StateQuestioning {
		if s.State.Editable() {
			return nil, &TransitionError{From: s.State, To: StateScoring}
		}
		return nil, ErrFinalized
	}
	s.fit(cfg)
	if err := s.Advance(StateScoring); err != nil {
		return nil, err
	}
	s.Result = NewResult(cfg, s.Context, s.Answers)
	return s.Result, nil
}

// fit keeps Answers parallel to the configuration's questions.
func (s *Session) fit(cfg catalog.Config) {
	if len(s.Answers) == len(cfg.Questions) {
		return
	}
	answers := make([]scoring.Answer, len(cfg.Questions))
	for i, q := range cfg.Questions {
		if i < len(s.Answers) && s.Answers[i].QuestionID == q.ID {
			answers[i] = s.Answers[i]
			continue
		}
		answers[i] = scoring.Unanswered(q)
	}
	s.Answers = answers
}

func (s *Session) touch() { s.UpdatedAt = time.Now().UTC() }

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Context = make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		c.Context[k] = v
	}
	c.Answers = append([]scoring.Answer(nil), s.Answers...)
	return &c
}
