package inactivity

import (
	"errors"
	"testing"
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

var now = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

func sample() *tables.RawTable {
	return tables.NewRawTable(tables.UST12, []string{"mandt", "objct", "field", "von", "bis"}, [][]string{
		{"100", "S_USER", "", "ALICE", "20240625"}, // 6 days
		{"100", "S_USER", "", "ALICE", "20240101"},
		{"100", "S_USER", "", "BOB", "20240501"},     // 61 days
		{"100", "", "LOGON_DATA", "CAROL", "20240301"}, // 122 days
		{"100", "S_USER", "", "DAVE", "20231201"},    // 213 days
		{"100", "S_TCODE", "TCD", "ERIN", "SU01"},     // never logged in
		{"100", "S_USER", "", "FRANK", "garbage"},     // undecodable
	})
}

func opts() Options { return Options{Codec: sapdate.Default(), Now: now} }

func TestAnalyzeTiers(t *testing.T) {
	rep, err := Analyze(sample(), opts())
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := map[string]Tier{
		"ALICE": TierActive,
		"BOB":   TierMediumRisk,
		"CAROL": TierHighRisk,
		"DAVE":  TierCritical,
		"ERIN":  TierNever,
		"FRANK": TierNever,
	}
	if len(rep.Users) != len(want) {
		t.Fatalf("expected %d users, got %+v", len(want), rep.Users)
	}
	for _, r := range rep.Users {
		if r.Tier != want[r.User] {
			t.Fatalf("%s tier=%s want %s", r.User, r.Tier, want[r.User])
		}
	}
	if rep.Users[0].LastLogin != "2024-06-25" || *rep.Users[0].DaysSinceLogin != 6 {
		t.Fatalf("alice should keep the most recent login: %+v", rep.Users[0])
	}

	if rep.GeneralStats.TotalRecords != 7 || rep.GeneralStats.UniqueUsersCount != 6 {
		t.Fatalf("unexpected general stats: %+v", rep.GeneralStats)
	}
	m := rep.ActivityMetrics
	if m.InactiveUsers != 4 || m.ActiveUsers != 2 || m.InactivePercentage != 66.7 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
	// never-logged-in users first, then by days descending
	if len(rep.InactiveUsers) != 4 || rep.InactiveUsers[0].DaysSinceLogin != nil || rep.InactiveUsers[2].User != "DAVE" || rep.InactiveUsers[3].User != "CAROL" {
		t.Fatalf("unexpected inactive order: %+v", rep.InactiveUsers)
	}
	if len(rep.Timeline) != 5 || rep.Timeline[0].Month != "2023-12" {
		t.Fatalf("unexpected timeline: %+v", rep.Timeline)
	}
	if rep.Distribution[0].Tier != TierNever || rep.Distribution[0].Count != 2 {
		t.Fatalf("unexpected distribution: %+v", rep.Distribution)
	}
}

func TestAnalyzeDateRange(t *testing.T) {
	o := opts()
	o.Range = &tables.DateRange{Start: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)}
	rep, err := Analyze(sample(), o)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	tiers := map[string]Tier{}
	for _, r := range rep.Users {
		tiers[r.User] = r.Tier
	}
	// CAROL and DAVE logins fall before the range and disappear with them
	if _, ok := tiers["CAROL"]; ok {
		t.Fatalf("carol should be filtered out: %+v", rep.Users)
	}
	if tiers["FRANK"] != TierNever {
		t.Fatalf("undecodable dates are kept: %+v", rep.Users)
	}
}

func TestAnalyzeDateRangeAppliesToEveryRow(t *testing.T) {
	tb := tables.NewRawTable(tables.UST12, []string{"MANDT", "OBJCT", "FIELD", "VON", "BIS"}, [][]string{
		{"100", "S_USER", "", "ALICE", "20240625"},
		{"100", "S_TCODE", "TCD", "BOB", "20200101"},
	})
	o := opts()
	o.Range = &tables.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	rep, err := Analyze(tb, o)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rep.Users) != 1 || rep.Users[0].User != "ALICE" {
		t.Fatalf("bob is outside the range: %+v", rep.Users)
	}
	if rep.ActivityMetrics.InactivePercentage != 0 || rep.GeneralStats.TotalRecords != 1 {
		t.Fatalf("unexpected stats: %+v %+v", rep.ActivityMetrics, rep.GeneralStats)
	}
}

func TestAnalyzeRangeFilteringEverythingIsNotAnError(t *testing.T) {
	o := opts()
	o.Range = &tables.DateRange{Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	tb := tables.NewRawTable(tables.UST12, []string{"MANDT", "OBJCT", "FIELD", "VON", "BIS"}, [][]string{
		{"100", "S_USER", "", "ALICE", "20240625"},
	})
	rep, err := Analyze(tb, o)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rep.Users) != 0 || rep.GeneralStats.TotalRecords != 0 {
		t.Fatalf("expected an empty report: %+v", rep)
	}
}

func TestAnalyzeZeroCodecUsesDefaults(t *testing.T) {
	rep, err := Analyze(sample(), Options{Now: now})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rep.Users[0].LastLogin != "2024-06-25" || rep.Users[0].Tier != TierActive {
		t.Fatalf("dates should decode without an explicit codec: %+v", rep.Users[0])
	}
}

func TestAnalyzeWithoutLoginRows(t *testing.T) {
	tb := tables.NewRawTable(tables.UST12, []string{"MANDT", "OBJCT", "FIELD", "VON", "BIS"}, [][]string{
		{"100", "S_TCODE", "TCD", "SU01", ""},
	})
	if _, err := Analyze(tb, opts()); !errors.Is(err, ErrNoLoginRecords) {
		t.Fatalf("expected ErrNoLoginRecords, got %v", err)
	}
}

func TestAnalyzeMissingColumns(t *testing.T) {
	tb := tables.NewRawTable(tables.UST12, []string{"MANDT", "VON"}, nil)
	_, err := Analyze(tb, opts())
	var verr *tables.ValidationError
	if !errors.As(err, &verr) || len(verr.Errors()) != 3 {
		t.Fatalf("expected three missing columns, got %v", err)
	}
}

func TestClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := map[int]Tier{0: TierActive, 30: TierActive, 31: TierMediumRisk, 90: TierMediumRisk, 91: TierHighRisk, 180: TierHighRisk, 181: TierCritical}
	for d, want := range cases {
		d := d
		if got := th.Classify(&d); got != want {
			t.Fatalf("Classify(%d)=%s want %s", d, got, want)
		}
	}
	if th.Classify(nil) != TierNever {
		t.Fatalf("nil days is Never")
	}
}
