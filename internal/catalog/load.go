package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var builtinYAML []byte

// File layout of a catalog document. Options and questions accept the legacy
// field spellings (text/desc/question) next to the canonical ones.
type rawCatalog struct {
	Default      string      `yaml:"default"`
	Presentation rawHero     `yaml:"presentation"`
	Configs      []rawConfig `yaml:"configs"`
}

type rawHero struct {
	HeroTitle    string `yaml:"heroTitle"`
	HeroSubtitle string `yaml:"heroSubtitle"`
	CardTitle    string `yaml:"cardTitle"`
	CardSubtitle string `yaml:"cardSubtitle"`
}

type rawConfig struct {
	ID             string            `yaml:"id"`
	Name           string            `yaml:"name"`
	Hero           rawHero           `yaml:",inline"`
	Welcome        Welcome           `yaml:"welcome"`
	QuestionPrefix string            `yaml:"questionPrefix"`
	ContextFields  []rawContextField `yaml:"contextFields"`
	Questions      []rawQuestion     `yaml:"questions"`
	Scoring        struct {
		Ranges []ScoreRange `yaml:"ranges"`
	} `yaml:"scoring"`
	AnalysisPrompt string      `yaml:"analysisPrompt"`
	SystemPrompt   string      `yaml:"systemPrompt"`
	Persistence    *rawMapping `yaml:"persistence"`
}

type rawContextField struct {
	ID      string        `yaml:"id"`
	Label   string        `yaml:"label"`
	Type    FieldType     `yaml:"type"`
	Options []FieldOption `yaml:"options"`
}

type rawQuestion struct {
	Title    string      `yaml:"title"`
	Prompt   string      `yaml:"prompt"`
	Question string      `yaml:"question"`
	Options  []rawOption `yaml:"options"`
}

type rawOption struct {
	Value       string   `yaml:"value"`
	Label       string   `yaml:"label"`
	Text        string   `yaml:"text"`
	Description string   `yaml:"description"`
	Desc        string   `yaml:"desc"`
	Score       *float64 `yaml:"score"`
}

type rawMapping struct {
	Table   string `yaml:"table"`
	Columns []struct {
		Field  string     `yaml:"field"`
		Column string     `yaml:"column"`
		Kind   ColumnKind `yaml:"kind"`
	} `yaml:"columns"`
}

const defaultSystemPrompt = "You are an expert AI Teaching Coach."

// Load parses and validates a YAML catalog.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Open loads a catalog file from disk.
func Open(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parse(data []byte) (*Registry, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(raw.Configs) == 0 {
		return nil, errors.New("catalog has no configurations")
	}
	def := raw.Default
	if def == "" {
		def = raw.Configs[0].ID
	}

	reg := newRegistry(def)
	var errs []error
	for _, rc := range raw.Configs {
		c := normalizeConfig(rc, raw.Presentation)
		if _, dup := reg.configs[c.ID]; dup {
			errs = append(errs, fmt.Errorf("config %q: duplicate id", c.ID))
			continue
		}
		m := normalizeMapping(rc.Persistence)
		for _, err := range Validate(c, m) {
			errs = append(errs, fmt.Errorf("config %q: %w", c.ID, err))
		}
		reg.add(c, m)
	}
	if _, ok := reg.configs[def]; !ok {
		errs = append(errs, fmt.Errorf("default configuration %q not defined", def))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

func normalizeConfig(rc rawConfig, hero rawHero) Config {
	c := Config{
		ID:             rc.ID,
		Name:           rc.Name,
		HeroTitle:      firstNonEmpty(rc.Hero.HeroTitle, hero.HeroTitle),
		HeroSubtitle:   firstNonEmpty(rc.Hero.HeroSubtitle, hero.HeroSubtitle),
		CardTitle:      firstNonEmpty(rc.Hero.CardTitle, hero.CardTitle),
		CardSubtitle:   firstNonEmpty(rc.Hero.CardSubtitle, hero.CardSubtitle),
		Welcome:        rc.Welcome,
		AnalysisPrompt: rc.AnalysisPrompt,
		SystemPrompt:   firstNonEmpty(rc.SystemPrompt, defaultSystemPrompt),
		Scoring:        Scoring{Ranges: rc.Scoring.Ranges},
	}
	for _, f := range rc.ContextFields {
		typ := f.Type
		if typ == "" {
			typ = FieldSelect
		}
		c.ContextFields = append(c.ContextFields, ContextField{ID: f.ID, Label: f.Label, Type: typ, Options: f.Options})
	}
	prefix := firstNonEmpty(rc.QuestionPrefix, rc.ID)
	for i, rq := range rc.Questions {
		c.Questions = append(c.Questions, Question{
			ID:      fmt.Sprintf("%s-%d", prefix, i+1),
			Title:   firstNonEmpty(rq.Title, fmt.Sprintf("Question %d", i+1)),
			Prompt:  firstNonEmpty(rq.Prompt, rq.Question),
			Options: normalizeOptions(rq.Options),
		})
	}
	return c
}

func normalizeOptions(in []rawOption) []Option {
	out := make([]Option, 0, len(in))
	for i, o := range in {
		score := float64(i + 1)
		if o.Score != nil {
			score = *o.Score
		}
		out = append(out, Option{
			Value:       firstNonEmpty(o.Value, fmt.Sprintf("option-%d", i+1)),
			Label:       firstNonEmpty(o.Label, o.Text),
			Description: firstNonEmpty(o.Description, o.Desc),
			Score:       score,
		})
	}
	return out
}

func normalizeMapping(rm *rawMapping) *Mapping {
	if rm == nil {
		return nil
	}
	m := &Mapping{Table: rm.Table}
	for _, col := range rm.Columns {
		kind := col.Kind
		if kind == "" {
			kind = KindText
		}
		m.Columns = append(m.Columns, ColumnMapping{
			Field:  col.Field,
			Column: firstNonEmpty(col.Column, col.Field),
			Kind:   kind,
		})
	}
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
