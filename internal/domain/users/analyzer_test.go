package users

import (
	"testing"
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

var now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func sample() *tables.RawTable {
	cols := []string{"MANDT", "BNAME", "USTYP", "UFLAG", "PWDINITIAL", "GLTGV", "GLTGB", "TRDAT", "LTIME", "PWDLGNDATE", "PWDLGNTIME"}
	return tables.NewRawTable(tables.USR02, cols, [][]string{
		{"100", "ALICE", "A", "", "", "20200101", "99991231", "20240601", "081500", "20200102", "090000"},
		{"100", "BOB", "b", "x", "X", "20210101", "20230101", "", "", "", ""},
		{"100", "  ", "A", "", "", "", "", "", "", "", ""},
		{"100", "SVC", "Z", "", "", "20220101", "29991231", "20240101", "", "", ""},
		{"100", "NOTYPE", "", "", "", "", "", "", "", "", ""},
	})
}

func opts() Options {
	return Options{Codec: sapdate.Default(), Now: now}
}

func TestAnalyzeUsers(t *testing.T) {
	res := Analyze(sample(), opts())
	if len(res.Records) != 4 {
		t.Fatalf("expected 4 users, got %d", len(res.Records))
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Row != 3 {
		t.Fatalf("expected blank username on row 3 skipped, got %+v", res.Skipped)
	}

	alice := res.Records[0]
	if alice.Key() != "100:ALICE" || alice.TypeLabel != "Dialog User" {
		t.Fatalf("unexpected alice: %+v", alice)
	}
	if alice.Activity.LastLogin != "2024-06-01 08:15:00" {
		t.Fatalf("last login = %q", alice.Activity.LastLogin)
	}
	if alice.Activity.FirstLoginEstimate != "2020-01-02 09:00:00 (estimated from password change)" {
		t.Fatalf("first login estimate = %q", alice.Activity.FirstLoginEstimate)
	}
	if alice.Validity.IsExpired {
		t.Fatalf("permanent validity must not expire")
	}

	bob := res.Records[1]
	if !bob.Locked || !bob.InitialPassword || !bob.Validity.IsExpired || !bob.NeverLoggedIn {
		t.Fatalf("unexpected bob flags: %+v", bob)
	}
	if bob.TypeLabel != "System User" {
		t.Fatalf("lower-case type code should map, got %q", bob.TypeLabel)
	}
	if bob.Activity.FirstLoginEstimate != "Not available" || bob.Activity.LastLogin != "Not available" {
		t.Fatalf("unexpected bob activity: %+v", bob.Activity)
	}

	if res.Records[2].TypeLabel != "Unknown (Z)" || res.Records[3].TypeLabel != "Unknown" {
		t.Fatalf("unexpected labels: %q %q", res.Records[2].TypeLabel, res.Records[3].TypeLabel)
	}

	s := res.Stats
	if s.Total != 4 || s.Locked != 1 || s.Expired != 1 || s.InitialPassword != 1 || s.NeverLoggedIn != 2 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if s.ByType["Dialog User"] != 1 || s.ByType["Unknown"] != 1 {
		t.Fatalf("unexpected by type: %+v", s.ByType)
	}
}

func TestAnalyzeDefaultsClientWithoutMandt(t *testing.T) {
	tb := tables.NewRawTable(tables.USR02, []string{"BNAME", "USTYP"}, [][]string{{"ALICE", "A"}})
	res := Analyze(tb, opts())
	if res.Records[0].Client != DefaultClient || res.HasClient {
		t.Fatalf("client = %q has_client=%v", res.Records[0].Client, res.HasClient)
	}
	if !Analyze(sample(), opts()).HasClient {
		t.Fatalf("MANDT column should be reported")
	}
}

func TestAnalyzeZeroDateIsNeverLoggedIn(t *testing.T) {
	tb := tables.NewRawTable(tables.USR02, []string{"MANDT", "BNAME", "USTYP", "TRDAT", "LTIME"}, [][]string{
		{"100", "JDOE", "A", "00000000", "000000"},
	})
	res := Analyze(tb, opts())
	u := res.Records[0]
	if !u.NeverLoggedIn || u.Activity.LastLogin != "Not available" {
		t.Fatalf("unexpected activity: never=%v last=%q", u.NeverLoggedIn, u.Activity.LastLogin)
	}
	if res.Stats.NeverLoggedIn != 1 {
		t.Fatalf("never logged in count = %d", res.Stats.NeverLoggedIn)
	}
}

func TestAnalyzeZeroCodecUsesDefaults(t *testing.T) {
	tb := tables.NewRawTable(tables.USR02, []string{"MANDT", "BNAME", "USTYP", "GLTGB"}, [][]string{
		{"100", "JDOE", "A", "20200101"},
	})
	u := Analyze(tb, Options{Now: now}).Records[0]
	if !u.Validity.IsExpired || u.Validity.ToDate != "2020-01-01" {
		t.Fatalf("unexpected validity: %+v", u.Validity)
	}
}

func TestAnalyzeLoginTimeline(t *testing.T) {
	res := Analyze(sample(), opts())
	tl := res.LoginTimeline
	if len(tl) != 2 || tl[0].Month != "2024-01" || tl[1].Month != "2024-06" || tl[1].Count != 1 {
		t.Fatalf("unexpected login timeline: %+v", tl)
	}
}

func TestAnalyzeDateRangeOnValidFrom(t *testing.T) {
	o := opts()
	o.Range = &tables.DateRange{Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}
	res := Analyze(sample(), o)
	// ALICE (2020) and the rows without GLTGV are dropped.
	if len(res.Records) != 2 || res.Records[0].Username != "BOB" || res.Records[1].Username != "SVC" {
		t.Fatalf("unexpected filtered users: %+v", res.Records)
	}
}

func TestAnalyzeEmptyTable(t *testing.T) {
	res := Analyze(&tables.RawTable{Name: tables.USR02}, opts())
	if res.Stats.Total != 0 || len(res.Records) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
