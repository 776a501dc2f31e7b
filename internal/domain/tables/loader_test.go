package tables

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func usersTable() *RawTable {
	return NewRawTable("usr02", []string{"mandt", " bname ", "ustyp"}, [][]string{
		{"100.0", "ALICE", "A"},
		{"100", "BOB", "B"},
	})
}

func rolesTable() *RawTable {
	return NewRawTable("agr", []string{"MANDT", "AGR_NAME", "UNAME"}, [][]string{
		{"100", "Z_ADMIN", "ALICE"},
	})
}

func authsTable() *RawTable {
	return NewRawTable("usr12", []string{"MANDT", "UNAME", "OBJCT", "VON", "BIS"}, [][]string{
		{"100", "ALICE", "S_TCODE", "*", ""},
	})
}

func TestLoadNormalizesWithoutMutatingInput(t *testing.T) {
	in := usersTable()
	tb, err := Load(in, rolesTable(), authsTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if in.Columns[1] != " bname " || in.Rows[0][0] != "100.0" {
		t.Fatalf("input table was modified: %+v", in)
	}
	if !tb.Users.Has("BNAME") {
		t.Fatalf("columns not upper-cased: %v", tb.Users.Columns)
	}
	if got := tb.Users.Column("MANDT").Of(tb.Users.Rows[0]); got != "100" {
		t.Fatalf("client not coerced: %q", got)
	}
	if len(tb.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", tb.Issues)
	}
}

func TestLoadFuzzyColumns(t *testing.T) {
	roles := NewRawTable("", []string{"USER_ID", "ROLE_NAME"}, [][]string{{"ALICE", "Z_ADMIN"}})
	auths := NewRawTable("", []string{"USERNAME", "OBJECT", "LOW", "HIGH"}, [][]string{{"ALICE", "S_TCODE", "SU01", ""}})
	tb, err := Load(usersTable(), roles, auths, Options{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v := tb.Roles.Column("AGR_NAME").Of(tb.Roles.Rows[0]); v != "Z_ADMIN" {
		t.Fatalf("AGR_NAME alias = %q", v)
	}
	if v := tb.Roles.Column("UNAME").Of(tb.Roles.Rows[0]); v != "ALICE" {
		t.Fatalf("UNAME alias = %q", v)
	}
	for field, want := range map[string]string{"OBJCT": "S_TCODE", "VON": "SU01", "UNAME": "ALICE"} {
		if v := tb.Auths.Column(field).Of(tb.Auths.Rows[0]); v != want {
			t.Fatalf("%s alias = %q want %q", field, v, want)
		}
	}
}

func TestLoadFuzzyDoesNotReuseKnownColumns(t *testing.T) {
	// AGR_NAME contains "NAME" but must not be taken as the username column.
	roles := NewRawTable("", []string{"AGR_NAME", "FROM_DAT"}, [][]string{{"Z_ADMIN", "20200101"}})
	_, err := Load(usersTable(), roles, authsTable(), Options{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	errs := verr.Errors()
	if len(errs) != 1 || errs[0].Field != "UNAME" || errs[0].Table != AGRUsers {
		t.Fatalf("unexpected issues: %+v", errs)
	}
}

func TestLoadAggregatesSchemaErrors(t *testing.T) {
	users := NewRawTable("", []string{"MANDT", "FOO"}, [][]string{{"100", "x"}})
	auths := NewRawTable("", []string{"MANDT", "OBJCT"}, [][]string{{"100", "S_TCODE"}})
	_, err := Load(users, rolesTable(), auths, Options{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// BNAME, USTYP, UNAME, VON, BIS
	if n := len(verr.Errors()); n != 5 {
		t.Fatalf("expected 5 schema errors, got %d: %v", n, verr)
	}
	if !strings.Contains(err.Error(), "USTYP") {
		t.Fatalf("error should name missing columns: %v", err)
	}
}

func TestLoadMissingAndEmptyTablesAreWarnings(t *testing.T) {
	empty := NewRawTable("", []string{"MANDT", "UNAME", "OBJCT", "VON", "BIS"}, nil)
	tb, err := Load(usersTable(), nil, empty, Options{})
	if err != nil {
		t.Fatalf("warnings must not fail the load: %v", err)
	}
	kinds := map[Kind]bool{}
	for _, i := range tb.Issues {
		if i.Severity != SeverityWarning {
			t.Fatalf("unexpected severity: %+v", i)
		}
		kinds[i.Kind] = true
	}
	if !kinds[KindMissingTable] || !kinds[KindEmpty] {
		t.Fatalf("expected missing and empty warnings, got %+v", tb.Issues)
	}
	if tb.Roles == nil || tb.Roles.Len() != 0 {
		t.Fatalf("missing table should be replaced by an empty one")
	}
}

func TestLoadConsistencyChecks(t *testing.T) {
	roles := NewRawTable("", []string{"MANDT", "AGR_NAME", "UNAME"}, [][]string{{"200", "Z_ADMIN", "CAROL"}})
	tb, err := Load(usersTable(), roles, authsTable(), Options{})
	if err != nil {
		t.Fatalf("non-strict load should pass: %v", err)
	}
	var client, names bool
	for _, i := range tb.Issues {
		if i.Kind == KindConsistency && i.Field == "MANDT" {
			client = true
		}
		if i.Kind == KindConsistency && i.Field == "BNAME" {
			names = true
		}
	}
	if !client || !names {
		t.Fatalf("expected both consistency warnings, got %+v", tb.Issues)
	}

	_, err = Load(usersTable(), roles, authsTable(), Options{Strict: true})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("strict load should fail, got %v", err)
	}
}

func TestLoadInheritsSingleClientFromUsers(t *testing.T) {
	users := NewRawTable("", []string{"MANDT", "BNAME", "USTYP"}, [][]string{{"100", "JDOE", "A"}})
	roles := NewRawTable("", []string{"UNAME", "AGR_NAME"}, [][]string{{"JDOE", "SAP_ALL"}})
	auths := NewRawTable("", []string{"UNAME", "OBJCT", "VON", "BIS"}, [][]string{{"JDOE", "SAP_ALL", "*", "*"}})
	tb, err := Load(users, roles, auths, Options{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, tbl := range []*RawTable{tb.Roles, tb.Auths} {
		if got := tbl.Column("MANDT").Of(tbl.Rows[0]); got != "100" {
			t.Fatalf("%s MANDT = %q want 100", tbl.Name, got)
		}
	}
	if roles.Has("MANDT") {
		t.Fatalf("input table was modified")
	}
	inherited := 0
	for _, i := range tb.Issues {
		if i.Kind == KindConsistency && i.Field == "MANDT" && i.Severity == SeverityWarning {
			inherited++
		}
	}
	if inherited != 2 {
		t.Fatalf("expected one warning per inheriting table, got %+v", tb.Issues)
	}
}

func TestLoadWarnsWhenClientColumnIsPartial(t *testing.T) {
	// two clients in USR02, nothing to inherit
	users := NewRawTable("", []string{"MANDT", "BNAME", "USTYP"}, [][]string{
		{"100", "JDOE", "A"},
		{"200", "JDOE", "A"},
	})
	roles := NewRawTable("", []string{"UNAME", "AGR_NAME"}, [][]string{{"JDOE", "SAP_ALL"}})
	tb, err := Load(users, roles, authsTable(), Options{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if tb.Roles.Has("MANDT") {
		t.Fatalf("client must not be inherited from several clients")
	}
	found := false
	for _, i := range tb.Issues {
		if i.Kind == KindConsistency && strings.Contains(i.Message, "joined by username") {
			found = true
			if !strings.Contains(i.Message, AGRUsers) {
				t.Fatalf("warning should name the table without MANDT: %q", i.Message)
			}
		}
	}
	if !found {
		t.Fatalf("expected partial MANDT warning, got %+v", tb.Issues)
	}
}

func TestWithSynonymsOverridesPatterns(t *testing.T) {
	s := WithSynonyms(DefaultSchemas(), map[string]map[string][]string{
		AGRUsers: {"AGR_NAME": {"profil"}},
	})
	roles := NewRawTable("", []string{"UNAME", "PROFIL_ID"}, [][]string{{"ALICE", "Z_ADMIN"}})
	tb, err := Load(usersTable(), roles, authsTable(), Options{Schemas: s})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !tb.Roles.Has("AGR_NAME") {
		t.Fatalf("override not applied: %v", tb.Roles.Columns)
	}
	if DefaultSchemas()[AGRUsers].Rules[0].Patterns[0] != "ROLE" {
		t.Fatalf("defaults were mutated")
	}
}

func TestCoerceClient(t *testing.T) {
	cases := map[string]string{"100.0": "100", " 001 ": "001", "nan": "", "100": "100", "1.5": "1.5"}
	for in, want := range cases {
		if got := CoerceClient(in); got != want {
			t.Fatalf("CoerceClient(%q)=%q want %q", in, got, want)
		}
	}
}

func TestDateRangeContains(t *testing.T) {
	r := &DateRange{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if r.Contains(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("before start should be excluded")
	}
	if !r.Contains(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start is inclusive")
	}
	var none *DateRange
	if !none.Contains(time.Now()) {
		t.Fatalf("nil range contains everything")
	}
}
