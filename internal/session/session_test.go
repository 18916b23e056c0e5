package session_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

func science() catalog.Config { return catalog.Builtin().Get("science-dept") }

func readySession(t *testing.T, cfg catalog.Config) *session.Session {
	t.Helper()
	s := session.New(cfg)
	require.NoError(t, s.SetContext(cfg, "science_subject", "physics"))
	require.NoError(t, s.SetContext(cfg, "lab_experience", "regular_lab"))
	require.NoError(t, s.BeginQuestioning(cfg))
	return s
}

func TestNewSession(t *testing.T) {
	cfg := science()
	s := session.New(cfg)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, session.StateContextCapture, s.State)
	require.Len(t, s.Answers, 4)
	assert.Equal(t, "science-2", s.Answers[1].QuestionID)
	assert.False(t, s.Answers[1].Answered())
	assert.Equal(t, 0, s.Next())
	assert.ElementsMatch(t, []string{"science_subject", "lab_experience"}, s.MissingContext(cfg))
}

func TestContextCapture(t *testing.T) {
	cfg := science()
	s := session.New(cfg)

	require.ErrorIs(t, s.BeginQuestioning(cfg), session.ErrContextIncomplete)
	require.ErrorIs(t, s.SetContext(cfg, "nope", "x"), session.ErrUnknownField)
	assert.Error(t, s.SetContext(cfg, "science_subject", "alchemy"))

	require.NoError(t, s.SetContext(cfg, "science_subject", " physics "))
	assert.Equal(t, "physics", s.Context["science_subject"])
	assert.False(t, s.ContextComplete(cfg))

	_, err := s.Answer(cfg, "science-1", "option-1")
	assert.ErrorIs(t, err, session.ErrNotQuestioning)

	require.NoError(t, s.SetContext(cfg, "lab_experience", "basic_lab"))
	require.NoError(t, s.BeginQuestioning(cfg))
	assert.Equal(t, session.StateQuestioning, s.State)
}

func TestAnswerOverwritesAndScores(t *testing.T) {
	cfg := science()
	s := readySession(t, cfg)

	_, err := s.Answer(cfg, "science-1", "option-2")
	require.NoError(t, err)
	a, err := s.Answer(cfg, "science-1", "option-5")
	require.NoError(t, err)
	assert.Equal(t, 5.0, a.Score)
	assert.Equal(t, "Expert level", a.OptionLabel)
	assert.Equal(t, 1, s.Next())

	a, err = s.Answer(cfg, "science-2", "not-an-option")
	require.NoError(t, err)
	assert.False(t, a.Answered())

	_, err = s.Answer(cfg, "science-9", "option-1")
	assert.ErrorIs(t, err, session.ErrUnknownQuestion)

	_, err = s.Answer(cfg, "science-3", "option-5")
	require.NoError(t, err)
	_, err = s.Answer(cfg, "science-4", "option-5")
	require.NoError(t, err)

	res, err := s.Finalize(cfg)
	require.NoError(t, err)
	assert.Equal(t, session.StateScoring, s.State)
	assert.Equal(t, 15.0, res.TotalScore)
	assert.Equal(t, 20.0, res.MaxPossibleScore)
	assert.Equal(t, 75, res.ResultPercentage)
	assert.Equal(t, "Science Tech Explorer", res.Interpretation.Label)
	assert.Equal(t, []float64{5, 0, 5, 5}, res.NumericScores())
	assert.Equal(t, "physics", res.Context["science_subject"])

	_, err = s.Answer(cfg, "science-2", "option-1")
	assert.ErrorIs(t, err, session.ErrFinalized)
	assert.ErrorIs(t, s.SetContext(cfg, "science_subject", "biology"), session.ErrFinalized)
	_, err = s.Finalize(cfg)
	assert.ErrorIs(t, err, session.ErrFinalized)

	s.Context["science_subject"] = "mutated"
	assert.Equal(t, "physics", res.Context["science_subject"])
}

func TestLifecycleTransitions(t *testing.T) {
	cfg := science()
	s := session.New(cfg)

	var te *session.TransitionError
	require.ErrorAs(t, s.Advance(session.StateDisplay), &te)
	assert.Equal(t, session.StateContextCapture, te.From)

	_, err := s.Finalize(cfg)
	require.ErrorAs(t, err, &te)

	s = readySession(t, cfg)
	_, err = s.Finalize(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Advance(session.StatePersisting))
	require.NoError(t, s.Advance(session.StateNarrativeGeneration))
	require.Error(t, s.Advance(session.StatePersisting))
	require.NoError(t, s.Advance(session.StateDisplayWithError))
	assert.True(t, s.State.Terminal())
	assert.Error(t, s.Advance(session.StateDisplay))
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := science()
	s := readySession(t, cfg)
	_, err := s.Answer(cfg, "science-1", "option-3")
	require.NoError(t, err)
	_, err = s.Answer(cfg, "science-4", "option-1")
	require.NoError(t, err)

	data, err := s.Snapshot()
	require.NoError(t, err)

	id, err := session.ConfigIDOf(data)
	require.NoError(t, err)
	assert.Equal(t, "science-dept", id)

	restored, err := session.FromSnapshot(cfg, data)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, restored.ID)
	assert.Equal(t, session.StateQuestioning, restored.State)
	assert.Equal(t, s.Context, restored.Context)
	assert.Equal(t, s.Answers, restored.Answers)
}

func TestFromLegacySnapshot(t *testing.T) {
	cfg := science()
	legacy := `{
		"configId": "science-dept",
		"state": "display",
		"context": {"science_subject": "biology", "lab_experience": "no_lab", "unknown": "x"},
		"answers": [{"optionLabel": "Somewhat familiar"}, 4, null],
		"numeric_scores": [2, 4, 0, 5]
	}`

	id, err := session.ConfigIDOf([]byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, "science-dept", id)

	s, err := session.FromSnapshot(cfg, []byte(legacy))
	require.NoError(t, err)
	assert.Equal(t, session.StateQuestioning, s.State)
	assert.NotContains(t, s.Context, "unknown")
	assert.Equal(t, "option-2", s.Answers[0].OptionValue)
	assert.Equal(t, "option-4", s.Answers[1].OptionValue)
	assert.False(t, s.Answers[2].Answered())
	assert.Equal(t, "option-5", s.Answers[3].OptionValue)

	_, err = session.FromSnapshot(cfg, []byte("{"))
	assert.Error(t, err)
}

func TestSnapshotOfOtherConfigStartsFresh(t *testing.T) {
	reg := catalog.Builtin()
	cfg := reg.Get("retired-config")
	require.Equal(t, "ai-teacher-readiness", cfg.ID)

	foreign := `{
		"config_id": "retired-config",
		"state": "questioning",
		"context": {"position": "secondary"},
		"answers": [{"score": 4}, {"score": 3}, {"score": 2}]
	}`
	s, err := session.FromSnapshot(cfg, []byte(foreign))
	require.NoError(t, err)
	assert.Equal(t, "ai-teacher-readiness", s.ConfigID)
	assert.Equal(t, session.StateContextCapture, s.State)
	assert.Empty(t, s.Context)
	assert.Len(t, s.Answers, len(cfg.Questions))
	assert.Equal(t, 0, s.Next(), "no answers carried over")

	legacy := `{"configId": "leadership", "answers": [{"optionValue": "option-4"}]}`
	s, err = session.FromSnapshot(science(), []byte(legacy))
	require.NoError(t, err)
	assert.False(t, s.Answers[0].Answered())

	s, err = session.FromSnapshot(science(), []byte(`{"answers": [{"optionValue": "option-4"}]}`))
	require.NoError(t, err)
	assert.False(t, s.Answers[0].Answered(), "a snapshot without a configuration id is not trusted")
}

func TestSnapshotIsJSONWithScores(t *testing.T) {
	cfg := science()
	s := readySession(t, cfg)
	_, err := s.Answer(cfg, "science-2", "option-3")
	require.NoError(t, err)

	data, err := s.Snapshot()
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{0.0, 3.0, 0.0, 0.0}, raw["numeric_scores"])
	assert.Equal(t, "questioning", raw["state"])
}

func TestMemoryStore(t *testing.T) {
	cfg := science()
	store := session.NewInMemoryStore()
	s := session.New(cfg)
	require.NoError(t, store.Put(s))

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	got.Context["science_subject"] = "physics"
	again, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Context, "Get returns a copy")

	_, err = store.Update(s.ID, func(s *session.Session) error {
		return s.SetContext(cfg, "science_subject", "alchemy")
	})
	assert.Error(t, err)

	updated, err := store.Update(s.ID, func(s *session.Session) error {
		return s.SetContext(cfg, "science_subject", "chemistry")
	})
	require.NoError(t, err)
	assert.Equal(t, "chemistry", updated.Context["science_subject"])

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
	require.NoError(t, store.Delete(s.ID))
	assert.ErrorIs(t, store.Delete(s.ID), session.ErrNotFound)
}

func TestMemoryStoreConcurrentUpdates(t *testing.T) {
	cfg := science()
	store := session.NewInMemoryStore()
	s := readySession(t, cfg)
	require.NoError(t, store.Put(s))

	var wg sync.WaitGroup
	for _, q := range cfg.Questions {
		wg.Add(1)
		go func(qid string) {
			defer wg.Done()
			_, err := store.Update(s.ID, func(s *session.Session) error {
				_, err := s.Answer(cfg, qid, "option-4")
				return err
			})
			assert.NoError(t, err)
		}(q.ID)
	}
	wg.Wait()

	got, err := store.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, got.Next())
}

func TestMemoryStorePrune(t *testing.T) {
	cfg := science()
	store := session.NewInMemoryStore()
	old := session.New(cfg)
	old.UpdatedAt = time.Now().Add(-2 * time.Hour)
	fresh := session.New(cfg)
	require.NoError(t, store.Put(old))
	require.NoError(t, store.Put(fresh))
	require.Equal(t, 2, store.Len())

	assert.Equal(t, 1, store.Prune(time.Now().Add(-time.Hour)))
	assert.Equal(t, 1, store.Len())
	_, err := store.Get(old.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}
