package tables

import (
	"fmt"
	"log"
	"strings"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
)

// FieldRule describes a canonical column and the substrings that may
// identify it when the export uses a different header.
type FieldRule struct {
	Field    string
	Patterns []string
	Required bool
}

// Schema lists the fields the analyzers read from one table.
// Known columns are never picked as a fuzzy match for another field.
type Schema struct {
	Table string
	Rules []FieldRule
	Known []string
}

// DefaultSchemas returns the schema of every supported table.
func DefaultSchemas() map[string]Schema {
	return map[string]Schema{
		USR02: {
			Table: USR02,
			Rules: []FieldRule{
				{Field: "BNAME", Patterns: []string{"USER", "NAME"}, Required: true},
				{Field: "USTYP", Patterns: []string{"TYP"}, Required: true},
			},
			Known: []string{"MANDT", "BNAME", "USTYP", "UFLAG", "PWDINITIAL", "GLTGV", "GLTGB",
				"TRDAT", "LTIME", "PWDLGNDATE", "PWDLGNTIME", "CLASS", "ERDAT"},
		},
		AGRUsers: {
			Table: AGRUsers,
			Rules: []FieldRule{
				{Field: "AGR_NAME", Patterns: []string{"ROLE", "AGR"}, Required: true},
				{Field: "UNAME", Patterns: []string{"USER", "NAME"}, Required: true},
			},
			Known: []string{"MANDT", "AGR_NAME", "UNAME", "FROM_DAT", "TO_DAT", "EXCLUDE", "ORG_FLAG", "CHANGE_TST"},
		},
		USR12: {
			Table: USR12,
			Rules: []FieldRule{
				{Field: "OBJCT", Patterns: []string{"OBJ"}},
				{Field: "UNAME", Patterns: []string{"USER", "NAME"}, Required: true},
				{Field: "VON", Patterns: []string{"FROM", "LOW"}, Required: true},
				{Field: "BIS", Patterns: []string{"TO", "HIGH"}, Required: true},
			},
			Known: []string{"MANDT", "UNAME", "OBJCT", "AUTH", "FIELD", "VON", "BIS", "AKTPS"},
		},
		UST12: {
			Table: UST12,
			Rules: []FieldRule{
				{Field: "MANDT", Required: true},
				{Field: "OBJCT", Required: true},
				{Field: "FIELD", Required: true},
				{Field: "VON", Required: true},
				{Field: "BIS", Required: true},
			},
			Known: []string{"MANDT", "OBJCT", "AUTH", "AKTPS", "FIELD", "VON", "BIS"},
		},
	}
}

// WithSynonyms overrides the patterns of the given fields.
// overrides is keyed table, then field.
func WithSynonyms(base map[string]Schema, overrides map[string]map[string][]string) map[string]Schema {
	out := make(map[string]Schema, len(base))
	for name, s := range base {
		rules := make([]FieldRule, len(s.Rules))
		copy(rules, s.Rules)
		for i, r := range rules {
			if p, ok := overrides[name][r.Field]; ok {
				rules[i].Patterns = upperAll(p)
			}
		}
		out[name] = Schema{Table: s.Table, Rules: rules, Known: s.Known}
	}
	return out
}

// Standardize returns a copy with trimmed, upper-cased column names.
func Standardize(t *RawTable) *RawTable {
	c := t.Clone()
	for i, col := range c.Columns {
		c.Columns[i] = strings.ToUpper(strings.TrimSpace(col))
	}
	for i, r := range c.Rows {
		if len(r) != len(c.Columns) {
			c.Rows[i] = fit(r, len(c.Columns))
		}
	}
	return c
}

// ResolveColumn finds the column holding field. An exact header wins;
// otherwise patterns are tried in order and the first unclaimed column
// containing the pattern is used. ok is false when nothing matches.
func ResolveColumn(t *RawTable, field string, patterns []string, reserved map[string]bool) (string, bool) {
	if t.Has(field) {
		return field, true
	}
	for _, p := range patterns {
		var candidates []string
		for _, col := range t.Columns {
			if reserved[col] {
				continue
			}
			if strings.Contains(col, p) {
				candidates = append(candidates, col)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		if len(candidates) > 1 {
			log.Printf("table=%s field=%s pattern=%s ambiguous=%v picked=%s", t.Name, field, p, candidates, candidates[0])
		}
		return candidates[0], true
	}
	return "", false
}

// Normalize standardizes headers, resolves every rule of s and coerces the
// client column. Resolved aliases are added as new columns on the copy.
func Normalize(t *RawTable, s Schema) (*RawTable, []Issue) {
	out := Standardize(t)
	if out.Name == "" {
		out.Name = s.Table
	}
	reserved := map[string]bool{}
	for _, k := range s.Known {
		reserved[k] = true
	}

	var issues []Issue
	for _, r := range s.Rules {
		col, ok := ResolveColumn(out, r.Field, r.Patterns, reserved)
		if !ok {
			if r.Required {
				issues = append(issues, Issue{
					Table:    s.Table,
					Kind:     KindSchema,
					Severity: SeverityError,
					Field:    r.Field,
					Message:  fmt.Sprintf("required column %s not found (columns: %s)", r.Field, strings.Join(out.Columns, ", ")),
				})
			}
			continue
		}
		if col != r.Field {
			log.Printf("table=%s field=%s mapped_from=%s", s.Table, r.Field, col)
			out.addAlias(r.Field, col)
		}
		reserved[col] = true
	}

	if mandt := out.Column("MANDT"); mandt.Present() {
		for _, row := range out.Rows {
			row[mandt] = CoerceClient(row[mandt])
		}
	}
	return out, issues
}

// CoerceClient turns a client cell into canonical text ("100.0" -> "100").
func CoerceClient(v string) string {
	if sapdate.IsBlank(v) {
		return ""
	}
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, '.'); i > 0 && strings.Trim(v[i+1:], "0") == "" {
		return v[:i]
	}
	return v
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
