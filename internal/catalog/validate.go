package catalog

import (
	"fmt"
	"math"
	"regexp"
	"sort"
)

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsIdent reports whether s is safe to splice into SQL as a table or column name.
func IsIdent(s string) bool { return len(s) <= 63 && identRe.MatchString(s) }

// reservedColumns are written by the row mapper for every result.
var reservedColumns = map[string]struct{}{
	"id": {}, "config_id": {}, "answers": {}, "numeric_scores": {}, "total_score": {},
	"max_possible_score": {}, "result_percentage": {}, "interpretation_label": {}, "created_at": {},
}

// Validate checks the construction-time invariants of a configuration and its
// optional persistence mapping.
func Validate(c Config, m *Mapping) []error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, fmt.Errorf("missing id"))
	}

	fieldIDs := map[string]struct{}{}
	for _, f := range c.ContextFields {
		if _, dup := fieldIDs[f.ID]; dup {
			errs = append(errs, fmt.Errorf("context field %q: duplicate id", f.ID))
		}
		fieldIDs[f.ID] = struct{}{}
		switch f.Type {
		case FieldSelect:
			if len(f.Options) == 0 {
				errs = append(errs, fmt.Errorf("context field %q: select without options", f.ID))
			}
		case FieldText, FieldTextarea:
		default:
			errs = append(errs, fmt.Errorf("context field %q: unknown type %q", f.ID, f.Type))
		}
	}

	if len(c.Questions) == 0 {
		errs = append(errs, fmt.Errorf("no questions"))
	}
	for _, q := range c.Questions {
		if len(q.Options) == 0 {
			errs = append(errs, fmt.Errorf("question %q: no options", q.ID))
		}
		values := map[string]struct{}{}
		for _, o := range q.Options {
			if math.IsNaN(o.Score) || math.IsInf(o.Score, 0) {
				errs = append(errs, fmt.Errorf("question %q option %q: score is not finite", q.ID, o.Value))
			}
			if _, dup := values[o.Value]; dup {
				errs = append(errs, fmt.Errorf("question %q: duplicate option value %q", q.ID, o.Value))
			}
			values[o.Value] = struct{}{}
		}
	}

	errs = append(errs, ValidateRanges(c.Scoring.Ranges)...)

	if m != nil {
		if !IsIdent(m.Table) {
			errs = append(errs, fmt.Errorf("persistence table %q is not a valid identifier", m.Table))
		}
		cols := map[string]struct{}{}
		for _, col := range m.Columns {
			if _, ok := fieldIDs[col.Field]; !ok {
				errs = append(errs, fmt.Errorf("persistence column %q: unknown context field %q", col.Column, col.Field))
			}
			if !IsIdent(col.Column) {
				errs = append(errs, fmt.Errorf("persistence column %q is not a valid identifier", col.Column))
			}
			if _, reserved := reservedColumns[col.Column]; reserved {
				errs = append(errs, fmt.Errorf("persistence column %q is reserved", col.Column))
			}
			if _, dup := cols[col.Column]; dup {
				errs = append(errs, fmt.Errorf("persistence column %q: duplicate", col.Column))
			}
			cols[col.Column] = struct{}{}
			if col.Kind != KindText && col.Kind != KindNumeric {
				errs = append(errs, fmt.Errorf("persistence column %q: unknown kind %q", col.Column, col.Kind))
			}
		}
	}
	return errs
}

// ValidateRanges reports gaps, overlaps and out-of-domain bounds in a range
// table. A valid table covers every integer of [0,100] exactly once.
func ValidateRanges(ranges []ScoreRange) []error {
	if len(ranges) == 0 {
		return []error{fmt.Errorf("scoring: no ranges")}
	}
	var errs []error
	sorted := make([]ScoreRange, len(ranges))
	copy(sorted, ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	width := 0
	next := 0
	for _, r := range sorted {
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("scoring: range %q has min %d > max %d", r.Label, r.Min, r.Max))
			continue
		}
		if r.Min < 0 || r.Max > 100 {
			errs = append(errs, fmt.Errorf("scoring: range %q [%d,%d] outside [0,100]", r.Label, r.Min, r.Max))
		}
		switch {
		case r.Min > next:
			errs = append(errs, fmt.Errorf("scoring: gap [%d,%d] before %q", next, r.Min-1, r.Label))
		case r.Min < next:
			errs = append(errs, fmt.Errorf("scoring: range %q overlaps previous range at %d", r.Label, r.Min))
		}
		width += r.Max - r.Min + 1
		if r.Max+1 > next {
			next = r.Max + 1
		}
	}
	if next <= 100 {
		errs = append(errs, fmt.Errorf("scoring: gap [%d,100] at the top", next))
	}
	if width != 101 && len(errs) == 0 {
		errs = append(errs, fmt.Errorf("scoring: ranges cover %d points, want 101", width))
	}
	return errs
}
