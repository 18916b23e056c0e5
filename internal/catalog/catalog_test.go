package catalog_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-readiness/internal/catalog"
)

func TestBuiltinCatalogIsValid(t *testing.T) {
	reg := catalog.Builtin()
	configs := reg.List()
	require.Len(t, configs, 4)

	for _, c := range configs {
		t.Run(c.ID, func(t *testing.T) {
			m, ok := reg.PersistenceMapping(c.ID)
			require.True(t, ok, "every builtin config has a destination table")
			assert.Empty(t, catalog.Validate(c, &m))

			width := 0
			for _, r := range c.Scoring.Ranges {
				width += r.Max - r.Min + 1
			}
			assert.Equal(t, 101, width)

			for p := 0; p <= 100; p++ {
				matches := 0
				for _, r := range c.Scoring.Ranges {
					if r.Contains(p) {
						matches++
					}
				}
				assert.Equal(t, 1, matches, "percentage %d", p)
			}

			for _, q := range c.Questions {
				assert.NotEmpty(t, q.Options, q.ID)
				assert.NotEmpty(t, q.Prompt, q.ID)
				for _, o := range q.Options {
					assert.NotEmpty(t, o.Label, "%s/%s", q.ID, o.Value)
				}
			}
		})
	}
}

func TestGetFallsBackToDefault(t *testing.T) {
	reg := catalog.Builtin()

	assert.Equal(t, "ai-teacher-readiness", reg.Get("does-not-exist").ID)
	assert.Equal(t, "ai-teacher-readiness", reg.Get("").ID)
	assert.Equal(t, "leadership", reg.Get("leadership").ID)

	_, ok := reg.Lookup("does-not-exist")
	assert.False(t, ok)
	_, ok = reg.PersistenceMapping("does-not-exist")
	assert.False(t, ok)
}

func TestListKeepsCatalogOrder(t *testing.T) {
	var ids []string
	for _, c := range catalog.Builtin().List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"ai-teacher-readiness", "science-dept", "humanities-dept", "leadership"}, ids)
}

func TestQuestionIDsAndLegacyOptionShapes(t *testing.T) {
	reg := catalog.Builtin()

	teacher := reg.Get("ai-teacher-readiness")
	require.Len(t, teacher.Questions, 10)
	assert.Equal(t, "ai-readiness-1", teacher.Questions[0].ID)
	assert.Equal(t, "ai-readiness-10", teacher.Questions[9].ID)
	first := teacher.Questions[0].Options[0]
	assert.Equal(t, "limited", first.Value)
	assert.Equal(t, 1.0, first.Score)
	assert.Contains(t, first.Description, "unsure")
	assert.Equal(t, 4.0, teacher.Questions[0].MaxScore())

	science := reg.Get("science-dept")
	require.Len(t, science.Questions, 4)
	q := science.Questions[0]
	assert.Equal(t, "science-1", q.ID)
	assert.Equal(t, "Question 1", q.Title)
	assert.Equal(t, "option-1", q.Options[0].Value)
	assert.Equal(t, "Not familiar at all", q.Options[0].Label)
	assert.Equal(t, 5.0, q.MaxScore())
}

func TestPersistenceMapping(t *testing.T) {
	m, ok := catalog.Builtin().PersistenceMapping("ai-teacher-readiness")
	require.True(t, ok)
	assert.Equal(t, "ai_teacher_readiness_assessments", m.Table)
	require.Len(t, m.Columns, 4)
	assert.Equal(t, catalog.ColumnMapping{Field: "aiKnowledge", Column: "ai_knowledge", Kind: catalog.KindText}, m.Columns[3])
	assert.Len(t, catalog.Builtin().Mappings(), 4)
}

const customCatalog = `
default: weights
configs:
  - id: weights
    name: Weighted
    contextFields:
      - id: years
        label: Years in role
        type: text
    questions:
      - prompt: First
        options:
          - { label: Low, score: 2 }
          - { label: Mid, score: 3 }
          - { label: High, score: 5 }
          - { label: Top, score: 8 }
    scoring:
      ranges:
        - { min: 0, max: 49, label: Low }
        - { min: 50, max: 100, label: High }
    persistence:
      table: weighted_results
      columns:
        - { field: years, column: years, kind: numeric }
`

func TestLoadCustomCatalog(t *testing.T) {
	reg, err := catalog.Load(strings.NewReader(customCatalog))
	require.NoError(t, err)

	c := reg.Default()
	assert.Equal(t, "weights", c.ID)
	assert.Equal(t, "weights-1", c.Questions[0].ID)
	assert.Equal(t, 8.0, c.Questions[0].MaxScore())
	assert.Equal(t, "You are an expert AI Teaching Coach.", c.SystemPrompt)

	m, ok := reg.PersistenceMapping("weights")
	require.True(t, ok)
	assert.Equal(t, catalog.KindNumeric, m.Columns[0].Kind)
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	bad := strings.Replace(customCatalog, "{ min: 50, max: 100, label: High }", "{ min: 60, max: 100, label: High }", 1)
	_, err := catalog.Load(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gap [50,59]")

	_, err = catalog.Load(strings.NewReader("configs: []"))
	assert.Error(t, err)
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		ranges []catalog.ScoreRange
		want   string
	}{
		{"ok", []catalog.ScoreRange{{Min: 0, Max: 50}, {Min: 51, Max: 100}}, ""},
		{"unordered ok", []catalog.ScoreRange{{Min: 51, Max: 100}, {Min: 0, Max: 50}}, ""},
		{"overlap", []catalog.ScoreRange{{Min: 0, Max: 60, Label: "a"}, {Min: 50, Max: 100, Label: "b"}}, "overlaps"},
		{"gap", []catalog.ScoreRange{{Min: 0, Max: 40}, {Min: 50, Max: 100}}, "gap [41,49]"},
		{"short top", []catalog.ScoreRange{{Min: 0, Max: 90}}, "gap [91,100]"},
		{"inverted", []catalog.ScoreRange{{Min: 10, Max: 0, Label: "x"}}, "min 10 > max 0"},
		{"empty", nil, "no ranges"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := catalog.ValidateRanges(tt.ranges)
			if tt.want == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			var msgs []string
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
			assert.Contains(t, strings.Join(msgs, "; "), tt.want)
		})
	}
}

func TestValidateMappingIdentifiers(t *testing.T) {
	c := catalog.Builtin().Get("leadership")
	m := catalog.Mapping{
		Table: "leadership; DROP TABLE x",
		Columns: []catalog.ColumnMapping{
			{Field: "leadership_role", Column: "result_percentage", Kind: catalog.KindText},
			{Field: "missing", Column: "missing", Kind: "blob"},
		},
	}
	errs := catalog.Validate(c, &m)
	assert.Len(t, errs, 4)
}
