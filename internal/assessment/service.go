package assessment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/metrics"
	"github.com/mind-engage/mindengage-readiness/internal/narrative"
	"github.com/mind-engage/mindengage-readiness/internal/persist"
	"github.com/mind-engage/mindengage-readiness/internal/session"
)

// Persister writes a finished result. persist.Mapper implements it.
type Persister interface {
	Save(ctx context.Context, cfg catalog.Config, r *session.Result) (persist.Receipt, error)
}

// Narrator produces the action plan text. narrative.Generator implements it.
type Narrator interface {
	Generate(ctx context.Context, cfg catalog.Config, r *session.Result) (string, error)
}

// Outcome is everything the display layer needs after a submission. Score
// and interpretation are always present; the side effects report their own
// failures inline.
type Outcome struct {
	SessionID      string           `json:"session_id,omitempty"`
	State          session.State    `json:"state"`
	Result         *session.Result  `json:"result"`
	Receipt        *persist.Receipt `json:"receipt,omitempty"`
	PersistSkipped bool             `json:"persist_skipped,omitempty"`
	PersistError   *persist.Failure `json:"persist_error,omitempty"`
	Narrative      string           `json:"narrative,omitempty"`
	NarrativeError string           `json:"narrative_error,omitempty"`
}

type Service struct {
	Registry  *catalog.Registry
	Sessions  session.Store
	Persister Persister // nil disables persistence
	Narrator  Narrator
	// PersistTimeout bounds the row-store write, which is detached from the
	// request so an abandoned session still completes its write.
	PersistTimeout time.Duration
}

func NewService(reg *catalog.Registry, sessions session.Store, p Persister, n Narrator, persistTimeout time.Duration) *Service {
	return &Service{Registry: reg, Sessions: sessions, Persister: p, Narrator: n, PersistTimeout: persistTimeout}
}

// Submit scores a stored session and runs its side effects.
func (s *Service) Submit(ctx context.Context, sessionID string) (Outcome, error) {
	var cfg catalog.Config
	sess, err := s.Sessions.Update(sessionID, func(sess *session.Session) error {
		cfg = s.Registry.Get(sess.ConfigID)
		if _, err := sess.Finalize(cfg); err != nil {
			return err
		}
		return s.enterSideEffects(sess)
	})
	if err != nil {
		return Outcome{}, err
	}

	out := s.run(ctx, cfg, sess.Result)
	out.SessionID = sess.ID

	_, err = s.Sessions.Update(sessionID, func(sess *session.Session) error {
		sess.Narrative = out.Narrative
		sess.NarrativeError = out.NarrativeError
		if out.Receipt != nil {
			sess.PersistedID = out.Receipt.ID
		}
		return sess.Advance(out.State)
	})
	if err != nil {
		log.Printf("WARN: [Assessment] %s: could not record outcome: %v", sessionID, err)
	}
	return out, nil
}

// Evaluate is the one-shot variant for clients that hold their own state:
// context and selections (question id to option value) arrive together. The
// context must be complete, as on the session path.
func (s *Service) Evaluate(ctx context.Context, configID string, profile map[string]string, selections map[string]string) (Outcome, error) {
	cfg := s.Registry.Get(configID)
	sess := session.New(cfg)
	for field, value := range profile {
		if err := sess.SetContext(cfg, field, value); err != nil {
			return Outcome{}, err
		}
	}
	if err := sess.BeginQuestioning(cfg); err != nil {
		return Outcome{}, err
	}
	for qid, value := range selections {
		if _, err := sess.Answer(cfg, qid, value); err != nil {
			return Outcome{}, err
		}
	}
	res, err := sess.Finalize(cfg)
	if err != nil {
		return Outcome{}, err
	}
	return s.run(ctx, cfg, res), nil
}

func (s *Service) enterSideEffects(sess *session.Session) error {
	if s.Persister != nil {
		if err := sess.Advance(session.StatePersisting); err != nil {
			return err
		}
	}
	return sess.Advance(session.StateNarrativeGeneration)
}

// run issues persistence and narrative generation concurrently. Neither waits
// on nor cancels the other.
func (s *Service) run(ctx context.Context, cfg catalog.Config, res *session.Result) Outcome {
	out := Outcome{Result: res, State: session.StateDisplay}
	metrics.Submissions.WithLabelValues(cfg.ID, res.Interpretation.Label).Inc()

	var g errgroup.Group
	g.Go(func() error {
		s.persist(ctx, cfg, res, &out)
		return nil
	})
	g.Go(func() error {
		s.narrate(ctx, cfg, res, &out)
		return nil
	})
	_ = g.Wait()

	if out.NarrativeError != "" {
		out.State = session.StateDisplayWithError
	}
	return out
}

func (s *Service) persist(ctx context.Context, cfg catalog.Config, res *session.Result, out *Outcome) {
	if s.Persister == nil {
		out.PersistSkipped = true
		metrics.Persistence.WithLabelValues(cfg.ID, "skipped").Inc()
		return
	}
	ctx = context.WithoutCancel(ctx)
	if s.PersistTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.PersistTimeout)
		defer cancel()
	}
	rec, err := s.Persister.Save(ctx, cfg, res)
	if err != nil {
		f := persist.AsFailure(err)
		log.Printf("ERROR: [Assessment] %s: persistence failed: %v", cfg.ID, f)
		out.PersistError = f
		metrics.Persistence.WithLabelValues(cfg.ID, "failure").Inc()
		return
	}
	out.Receipt = &rec
	metrics.Persistence.WithLabelValues(cfg.ID, "success").Inc()
}

func (s *Service) narrate(ctx context.Context, cfg catalog.Config, res *session.Result, out *Outcome) {
	if s.Narrator == nil {
		out.NarrativeError = "The action plan could not be generated: " + narrative.ErrUnavailable.Error()
		metrics.Narratives.WithLabelValues(cfg.ID, "skipped").Inc()
		return
	}
	timer := prometheus.NewTimer(metrics.NarrativeDuration.WithLabelValues(cfg.ID))
	text, err := s.Narrator.Generate(ctx, cfg, res)
	timer.ObserveDuration()
	switch {
	case errors.Is(err, narrative.ErrEmptyNarrative):
		out.NarrativeError = "The action plan could not be generated: the service returned no text."
		metrics.Narratives.WithLabelValues(cfg.ID, "empty").Inc()
	case err != nil:
		out.NarrativeError = fmt.Sprintf("The action plan could not be generated: %v", err)
		metrics.Narratives.WithLabelValues(cfg.ID, "failure").Inc()
	default:
		out.Narrative = text
		metrics.Narratives.WithLabelValues(cfg.ID, "success").Inc()
	}
}
