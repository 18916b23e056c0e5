package assessment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-readiness/internal/assessment"
	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/narrative"
	"github.com/mind-engage/mindengage-readiness/internal/persist"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

type fakePersister struct {
	mu      sync.Mutex
	err     error
	saved   []*session.Result
	ctxErr  error
	started chan struct{}
	release chan struct{}
}

func (f *fakePersister) Save(ctx context.Context, cfg catalog.Config, r *session.Result) (persist.Receipt, error) {
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return persist.Receipt{}, f.err
	}
	f.saved = append(f.saved, r)
	return persist.Receipt{ID: "row-1", Table: "t"}, nil
}

type fakeNarrator struct {
	text    string
	err     error
	waitFor chan struct{}
}

func (f *fakeNarrator) Generate(ctx context.Context, cfg catalog.Config, r *session.Result) (string, error) {
	if f.waitFor != nil {
		<-f.waitFor
	}
	return f.text, f.err
}

func newSession(t *testing.T, svc *assessment.Service, value string) *session.Session {
	t.Helper()
	cfg := svc.Registry.Get("leadership")
	s := session.New(cfg)
	require.NoError(t, s.SetContext(cfg, "leadership_role", "principal"))
	require.NoError(t, s.BeginQuestioning(cfg))
	for _, q := range cfg.Questions {
		_, err := s.Answer(cfg, q.ID, value)
		require.NoError(t, err)
	}
	require.NoError(t, svc.Sessions.Put(s))
	return s
}

func TestSubmitHappyPath(t *testing.T) {
	p := &fakePersister{}
	n := &fakeNarrator{text: "<h3>Now</h3>"}
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), p, n, time.Second)
	s := newSession(t, svc, "option-5")

	out, err := svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateDisplay, out.State)
	assert.Equal(t, 100, out.Result.ResultPercentage)
	assert.Equal(t, "<h3>Now</h3>", out.Narrative)
	assert.Empty(t, out.NarrativeError)
	require.NotNil(t, out.Receipt)
	assert.Equal(t, "row-1", out.Receipt.ID)
	assert.Nil(t, out.PersistError)
	require.Len(t, p.saved, 1)
	assert.Same(t, out.Result, p.saved[0])

	stored, err := svc.Sessions.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateDisplay, stored.State)
	assert.Equal(t, "row-1", stored.PersistedID)
	assert.Equal(t, "<h3>Now</h3>", stored.Narrative)

	_, err = svc.Submit(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrFinalized)
	_, err = svc.Submit(context.Background(), "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestPersistFailureDoesNotHideScore(t *testing.T) {
	p := &fakePersister{err: &persist.Failure{Message: "relation missing", Code: "42P01", Hint: "migrate"}}
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), p, &fakeNarrator{text: "plan"}, time.Second)
	s := newSession(t, svc, "option-3")

	out, err := svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateDisplay, out.State)
	assert.Equal(t, 60, out.Result.ResultPercentage)
	require.NotNil(t, out.PersistError)
	assert.Equal(t, "42P01", out.PersistError.Code)
	assert.Equal(t, "migrate", out.PersistError.Hint)
	assert.Nil(t, out.Receipt)
	assert.Equal(t, "plan", out.Narrative)
}

func TestNarrativeFailureEndsInDisplayWithError(t *testing.T) {
	tests := []struct {
		name     string
		narrator assessment.Narrator
		want     string
	}{
		{"error", &fakeNarrator{err: errors.New("upstream 503")}, "upstream 503"},
		{"empty", &fakeNarrator{err: narrative.ErrEmptyNarrative}, "no text"},
		{"not configured", nil, "no text-generation service"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), &fakePersister{}, tt.narrator, 0)
			s := newSession(t, svc, "option-1")

			out, err := svc.Submit(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, session.StateDisplayWithError, out.State)
			assert.Contains(t, out.NarrativeError, tt.want)
			assert.Empty(t, out.Narrative)
			assert.Equal(t, 20, out.Result.ResultPercentage)
			assert.NotEmpty(t, out.Result.Interpretation.Label)
			assert.NotNil(t, out.Receipt)

			stored, err := svc.Sessions.Get(s.ID)
			require.NoError(t, err)
			assert.Equal(t, session.StateDisplayWithError, stored.State)
		})
	}
}

func TestSideEffectsRunConcurrently(t *testing.T) {
	p := &fakePersister{started: make(chan struct{}), release: make(chan struct{})}
	n := &fakeNarrator{text: "plan", waitFor: p.started}
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), p, n, 0)
	s := newSession(t, svc, "option-2")

	done := make(chan assessment.Outcome)
	go func() {
		out, err := svc.Submit(context.Background(), s.ID)
		assert.NoError(t, err)
		done <- out
	}()

	// the narrator only returns once the write has started, and the write
	// only finishes once released
	<-p.started
	close(p.release)
	select {
	case out := <-done:
		assert.Equal(t, "plan", out.Narrative)
		assert.NotNil(t, out.Receipt)
	case <-time.After(5 * time.Second):
		t.Fatal("submission did not finish")
	}
}

func TestPersistOutlivesCancelledRequest(t *testing.T) {
	p := &fakePersister{}
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), p, &fakeNarrator{text: "plan"}, time.Second)
	s := newSession(t, svc, "option-4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := svc.Submit(ctx, s.ID)
	require.NoError(t, err)
	assert.NotNil(t, out.Receipt)
	assert.NoError(t, p.ctxErr)
}

func TestPersistenceDisabled(t *testing.T) {
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), nil, &fakeNarrator{text: "plan"}, 0)
	s := newSession(t, svc, "option-4")

	out, err := svc.Submit(context.Background(), s.ID)
	require.NoError(t, err)
	assert.True(t, out.PersistSkipped)
	assert.Nil(t, out.Receipt)
	assert.Nil(t, out.PersistError)
	assert.Equal(t, session.StateDisplay, out.State)
}

func TestEvaluateStateless(t *testing.T) {
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), nil, &fakeNarrator{text: "plan"}, 0)
	cfg := svc.Registry.Get("science-dept")
	lab := map[string]string{"science_subject": "chemistry", "lab_experience": "regular_lab"}

	out, err := svc.Evaluate(context.Background(), "science-dept", lab,
		map[string]string{cfg.Questions[0].ID: "option-5", cfg.Questions[1].ID: "option-5", "science-3": "bogus"})
	require.NoError(t, err)
	assert.Empty(t, out.SessionID)
	assert.Equal(t, 10.0, out.Result.TotalScore)
	assert.Equal(t, 50, out.Result.ResultPercentage)
	assert.Equal(t, "Science Tech Explorer", out.Result.Interpretation.Label)
	assert.Equal(t, "chemistry", out.Result.Context["science_subject"])

	teacher := map[string]string{"position": "secondary", "experience": "new", "subject": "math", "aiKnowledge": "basic"}
	out, err = svc.Evaluate(context.Background(), "unknown-config", teacher, nil)
	require.NoError(t, err)
	assert.Equal(t, "ai-teacher-readiness", out.Result.ConfigID)
	assert.Equal(t, 0, out.Result.ResultPercentage)

	_, err = svc.Evaluate(context.Background(), "science-dept", lab, map[string]string{"science-99": "option-1"})
	assert.ErrorIs(t, err, session.ErrUnknownQuestion)

	_, err = svc.Evaluate(context.Background(), "science-dept", map[string]string{"science_subject": "alchemy"}, nil)
	assert.Error(t, err)
}

func TestEvaluateRequiresCompleteContext(t *testing.T) {
	svc := assessment.NewService(catalog.Builtin(), session.NewInMemoryStore(), nil, &fakeNarrator{text: "plan"}, 0)

	_, err := svc.Evaluate(context.Background(), "science-dept",
		map[string]string{"science_subject": "physics"},
		map[string]string{"science-1": "option-4"})
	require.ErrorIs(t, err, session.ErrContextIncomplete)
	assert.Contains(t, err.Error(), "lab_experience")

	_, err = svc.Evaluate(context.Background(), "unknown-config", nil, nil)
	assert.ErrorIs(t, err, session.ErrContextIncomplete)
}
