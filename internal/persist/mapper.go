package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
	"github.com/mind-engage/mindengage-readiness/internal/session"
	syncx "github.com/mind-engage/mindengage-readiness/internal/sync"
)

// EventAppender records domain events after a successful write.
type EventAppender interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Receipt identifies a persisted result.
type Receipt struct {
	ID    string `json:"id"`
	Table string `json:"table"`
}

type Mapper struct {
	Registry *catalog.Registry
	Store    RowStore
	Events   EventAppender // optional
	SiteID   string
}

func NewMapper(reg *catalog.Registry, store RowStore, events EventAppender) *Mapper {
	return &Mapper{Registry: reg, Store: store, Events: events, SiteID: "local"}
}

// Save writes one result row. Every failure is returned as a *Failure.
func (m *Mapper) Save(ctx context.Context, cfg catalog.Config, r *session.Result) (rec Receipt, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("ERROR: [Persist] panic saving %s result: %v", cfg.ID, p)
			rec, err = Receipt{}, &Failure{Message: fmt.Sprint(p), Code: "internal"}
		}
	}()

	mapping, ok := m.Registry.PersistenceMapping(cfg.ID)
	if !ok {
		return Receipt{}, &Failure{Message: fmt.Sprintf("no persistence mapping for configuration %q", cfg.ID), Code: "no_mapping"}
	}
	table := DestinationTable(mapping)
	ids, err := m.Store.Insert(ctx, table, []Row{ToRow(mapping, r)})
	if err != nil {
		return Receipt{}, AsFailure(err)
	}
	if len(ids) != 1 || ids[0] == "" {
		return Receipt{}, &Failure{Message: fmt.Sprintf("expected exactly one created id, got %d", len(ids)), Code: "unexpected_result"}
	}
	rec = Receipt{ID: ids[0], Table: table}
	m.appendEvent(ctx, rec, r)
	return rec, nil
}

func (m *Mapper) appendEvent(ctx context.Context, rec Receipt, r *session.Result) {
	if m.Events == nil {
		return
	}
	data, _ := json.Marshal(map[string]any{
		"id":                   rec.ID,
		"table":                rec.Table,
		"config_id":            r.ConfigID,
		"result_percentage":    r.ResultPercentage,
		"interpretation_label": r.Interpretation.Label,
	})
	ev := syncx.Event{SiteID: m.SiteID, Type: syncx.TypeAssessmentSubmitted, Key: rec.ID, DataJSON: string(data)}
	if err := m.Events.Append(ctx, ev); err != nil {
		log.Printf("WARN: [Persist] event log append for %s failed: %v", rec.ID, err)
	}
}

// List reads persisted results of one configuration, newest first.
func (m *Mapper) List(ctx context.Context, configID string, opts ListOpts) ([]Record, error) {
	mapping, ok := m.Registry.PersistenceMapping(configID)
	if !ok {
		return nil, fmt.Errorf("no persistence mapping for configuration %q", configID)
	}
	rows, err := m.Store.List(ctx, DestinationTable(mapping), opts)
	if err != nil {
		return nil, AsFailure(err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := FromRow(mapping, row)
		if err != nil {
			return nil, fmt.Errorf("decode row %v: %w", row[ColID], err)
		}
		out = append(out, rec)
	}
	return out, nil
}
