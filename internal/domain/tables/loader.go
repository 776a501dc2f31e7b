package tables

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// DateRange restricts analysis to rows whose reference date falls inside
// [Start, End]. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds inclusive.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return true
	}
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Options control Load.
type Options struct {
	Schemas map[string]Schema
	// Strict turns an empty username overlap between USR02 and AGR_USERS
	// into an error.
	Strict bool
	Range  *DateRange
}

// Tables is the normalized input of one access analysis.
type Tables struct {
	Users  *RawTable
	Roles  *RawTable
	Auths  *RawTable
	Range  *DateRange
	Issues []Issue
}

// Load validates the three access tables and returns normalized copies.
// A nil table is reported as a warning and replaced by an empty one.
// When any error-level issue is found the returned error is a
// *ValidationError listing every issue; the Tables value is still returned.
func Load(users, roles, auths *RawTable, opts Options) (*Tables, error) {
	schemas := opts.Schemas
	if schemas == nil {
		schemas = DefaultSchemas()
	}

	out := &Tables{Range: opts.Range}
	out.Users, out.Issues = loadOne(users, schemas[USR02], out.Issues)
	out.Roles, out.Issues = loadOne(roles, schemas[AGRUsers], out.Issues)
	out.Auths, out.Issues = loadOne(auths, schemas[USR12], out.Issues)

	out.Issues = append(out.Issues, inheritClient(out)...)
	out.Issues = append(out.Issues, crossCheck(out, opts.Strict)...)

	for _, i := range out.Issues {
		log.Printf("load issue table=%s kind=%s severity=%s msg=%q", i.Table, i.Kind, i.Severity, i.Message)
	}
	if HasErrors(out.Issues) {
		return out, &ValidationError{Issues: out.Issues}
	}
	return out, nil
}

func loadOne(t *RawTable, s Schema, issues []Issue) (*RawTable, []Issue) {
	if t == nil {
		issues = append(issues, Issue{
			Table:    s.Table,
			Kind:     KindMissingTable,
			Severity: SeverityWarning,
			Message:  "table was not provided",
		})
		return &RawTable{Name: s.Table}, issues
	}
	norm, schemaIssues := Normalize(t, s)
	norm.Name = s.Table
	issues = append(issues, schemaIssues...)
	if norm.Len() == 0 {
		issues = append(issues, Issue{
			Table:    s.Table,
			Kind:     KindEmpty,
			Severity: SeverityWarning,
			Message:  "table contains no rows",
		})
	}
	return norm, issues
}

// inheritClient gives AGR_USERS and USR12 the client of USR02 when they
// were exported without MANDT and USR02 holds exactly one client.
func inheritClient(t *Tables) []Issue {
	if !t.Users.Has("MANDT") {
		return nil
	}
	clients := t.Users.Distinct("MANDT")
	if len(clients) != 1 {
		return nil
	}
	var client string
	for c := range clients {
		client = c
	}
	var issues []Issue
	for _, tb := range []*RawTable{t.Roles, t.Auths} {
		if tb.Len() == 0 || tb.Has("MANDT") {
			continue
		}
		tb.addConstant("MANDT", client)
		issues = append(issues, Issue{
			Table:    tb.Name,
			Kind:     KindConsistency,
			Severity: SeverityWarning,
			Field:    "MANDT",
			Message:  fmt.Sprintf("%s has no MANDT column; client %s taken from USR02", tb.Name, client),
		})
	}
	return issues
}

func crossCheck(t *Tables, strict bool) []Issue {
	var issues []Issue

	all := []*RawTable{t.Users, t.Roles, t.Auths}
	withClient := true
	var with, without []string
	for _, tb := range all {
		if tb.Len() == 0 {
			withClient = false
			continue
		}
		if tb.Has("MANDT") {
			with = append(with, tb.Name)
		} else {
			withClient = false
			without = append(without, tb.Name)
		}
	}
	if len(with) > 0 && len(without) > 0 {
		issues = append(issues, Issue{
			Kind:     KindConsistency,
			Severity: SeverityWarning,
			Field:    "MANDT",
			Message: fmt.Sprintf("MANDT present in %s but missing in %s; rows are joined by username only",
				strings.Join(with, ","), strings.Join(without, ",")),
		})
	}
	if withClient {
		common := t.Users.Distinct("MANDT")
		for _, tb := range all[1:] {
			common = intersect(common, tb.Distinct("MANDT"))
		}
		if len(common) == 0 {
			issues = append(issues, Issue{
				Kind:     KindConsistency,
				Severity: SeverityWarning,
				Field:    "MANDT",
				Message: fmt.Sprintf("no client is shared by all tables (USR02: %s, AGR_USERS: %s, USR12: %s)",
					joinSet(t.Users.Distinct("MANDT")), joinSet(t.Roles.Distinct("MANDT")), joinSet(t.Auths.Distinct("MANDT"))),
			})
		}
	}

	if t.Users.Len() > 0 && t.Roles.Len() > 0 && t.Users.Has("BNAME") && t.Roles.Has("UNAME") {
		if len(intersect(t.Users.Distinct("BNAME"), t.Roles.Distinct("UNAME"))) == 0 {
			sev := SeverityWarning
			if strict {
				sev = SeverityError
			}
			issues = append(issues, Issue{
				Kind:     KindConsistency,
				Severity: sev,
				Field:    "BNAME",
				Message:  "no username of USR02 appears in AGR_USERS",
			})
		}
	}
	return issues
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := map[string]struct{}{}
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func joinSet(s map[string]struct{}) string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return "-"
	}
	return strings.Join(keys, ",")
}
