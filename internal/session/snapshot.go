package session

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/scoring"
)

// Snapshot is the serialized form of a session handed to clients that keep
// their own state between visits.
type Snapshot struct {
	ConfigID      string                 `json:"config_id"`
	State         State                  `json:"state"`
	Context       map[string]string      `json:"context"`
	Answers       []scoring.StoredAnswer `json:"answers"`
	NumericScores []float64              `json:"numeric_scores"`
}

func (s *Session) Snapshot() ([]byte, error) {
	snap := Snapshot{
		ConfigID:      s.ConfigID,
		State:         s.State,
		Context:       s.Context,
		Answers:       make([]scoring.StoredAnswer, len(s.Answers)),
		NumericScores: scoring.NumericScores(s.Answers),
	}
	for i, a := range s.Answers {
		snap.Answers[i] = a.Stored()
	}
	return json.Marshal(snap)
}

// ConfigIDOf peeks at the configuration a snapshot belongs to.
func ConfigIDOf(data []byte) (string, error) {
	var head struct {
		ConfigID       string `json:"config_id"`
		LegacyConfigID string `json:"configId"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", fmt.Errorf("decode snapshot: %w", err)
	}
	if head.ConfigID != "" {
		return head.ConfigID, nil
	}
	return head.LegacyConfigID, nil
}

// FromSnapshot rebuilds a session against the current configuration. Answers
// are matched by position and re-resolved through scoring.Restore. A snapshot
// taken after submission comes back in questioning so it can be scored again;
// the stored numeric scores are only used for answers saved without them.
// A snapshot of another configuration (including one whose id is no longer in
// the catalog) starts a fresh session on cfg: its context and answers are not
// carried over.
func FromSnapshot(cfg catalog.Config, data []byte) (*Session, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	s := New(cfg)
	configID, err := ConfigIDOf(data)
	if err != nil {
		return nil, err
	}
	if configID != cfg.ID {
		log.Printf("WARN: [Session] snapshot of %q does not belong to %q, starting fresh", configID, cfg.ID)
		return s, nil
	}

	for k, v := range snap.Context {
		if _, ok := cfg.Field(k); ok && v != "" {
			s.Context[k] = v
		}
	}
	for i, q := range cfg.Questions {
		var stored scoring.StoredAnswer
		if i < len(snap.Answers) {
			stored = snap.Answers[i]
		}
		if stored.Score == nil && i < len(snap.NumericScores) && snap.NumericScores[i] > 0 &&
			stored.OptionValue == "" && stored.OptionLabel == "" {
			score := snap.NumericScores[i]
			stored.Score = &score
		}
		s.Answers[i] = scoring.Restore(q, stored)
	}
	if snap.State != StateContextCapture && s.ContextComplete(cfg) {
		s.State = StateQuestioning
	}
	return s, nil
}
