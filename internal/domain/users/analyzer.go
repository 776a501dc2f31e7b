// Package users analyzes the USR02 user master table.
package users

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

// DefaultClient is used when the extract carries no MANDT column.
const DefaultClient = "000"

// DefaultTypes maps USTYP codes to labels.
func DefaultTypes() map[string]string {
	return map[string]string{
		"A": "Dialog User",
		"B": "System User",
		"C": "Communication User",
		"L": "Reference User",
		"S": "Service User",
	}
}

type Validity struct {
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	IsExpired bool   `json:"is_expired"`
}

type Activity struct {
	LastLogin          string `json:"last_login"`
	LastPasswordChange string `json:"last_password_change"`
	FirstLoginEstimate string `json:"first_login_estimate"`
}

// User is one normalized USR02 row.
type User struct {
	Client          string   `json:"client"`
	Username        string   `json:"username"`
	TypeCode        string   `json:"user_type_code"`
	TypeLabel       string   `json:"user_type"`
	Locked          bool     `json:"locked"`
	InitialPassword bool     `json:"initial_password"`
	Validity        Validity `json:"validity"`
	Activity        Activity `json:"activity"`
	NeverLoggedIn   bool     `json:"never_logged_in"`
}

// Key returns the join key of the user.
func (u User) Key() string { return tables.Key(u.Client, u.Username) }

type Stats struct {
	Total           int            `json:"total_users"`
	Locked          int            `json:"locked_users"`
	Expired         int            `json:"expired_users"`
	NeverLoggedIn   int            `json:"never_logged_in"`
	InitialPassword int            `json:"initial_password"`
	ByType          map[string]int `json:"by_type"`
}

type Result struct {
	Records []User
	Stats   Stats
	Skipped []tables.RowError
	// LoginTimeline buckets last logon dates (TRDAT) by month.
	LoginTimeline []sapdate.MonthCount
	// HasClient is false when the table had no MANDT column and every
	// record carries DefaultClient.
	HasClient bool
}

type Options struct {
	Codec sapdate.Codec
	Types map[string]string
	Now   time.Time
	Range *tables.DateRange
}

// Analyze parses every row of a normalized USR02 table.
// Rows without a username are skipped and reported; rows whose GLTGV lies
// outside opts.Range are dropped silently.
func Analyze(t *tables.RawTable, opts Options) Result {
	if opts.Types == nil {
		opts.Types = DefaultTypes()
	}
	opts.Codec = opts.Codec.OrDefault()
	res := Result{Stats: Stats{ByType: map[string]int{}}, LoginTimeline: []sapdate.MonthCount{}}
	if t.Len() == 0 {
		return res
	}

	cols := columnsOf(t)
	res.HasClient = cols.hasClient
	filtered := 0
	months := map[string]int{}
	for i, row := range t.Rows {
		if opts.Range != nil && !inRange(opts.Codec, cols.from.Of(row), opts.Range) {
			filtered++
			continue
		}
		u, err := parseRow(cols, row, i+1, opts)
		if err != nil {
			res.Skipped = append(res.Skipped, *err)
			continue
		}
		res.Records = append(res.Records, u)
		count(&res.Stats, u)
		if d, err := opts.Codec.ParseDate(cols.logonDate.Of(row)); err == nil {
			months[sapdate.Month(d)]++
		}
	}
	res.LoginTimeline = sapdate.Timeline(months)
	if len(res.Skipped) > 0 || filtered > 0 {
		log.Printf("analysis=users rows=%d kept=%d skipped=%d filtered=%d", t.Len(), len(res.Records), len(res.Skipped), filtered)
	}
	return res
}

type columns struct {
	client, name, typ, lock, initial tables.Column
	from, to                         tables.Column
	logonDate, logonTime             tables.Column
	pwdDate, pwdTime                 tables.Column
	hasClient                        bool
}

func columnsOf(t *tables.RawTable) columns {
	c := columns{
		client:    t.Column("MANDT"),
		name:      t.Column("BNAME"),
		typ:       t.Column("USTYP"),
		lock:      t.Column("UFLAG"),
		initial:   t.Column("PWDINITIAL"),
		from:      t.Column("GLTGV"),
		to:        t.Column("GLTGB"),
		logonDate: t.Column("TRDAT"),
		logonTime: t.Column("LTIME"),
		pwdDate:   t.Column("PWDLGNDATE"),
		pwdTime:   t.Column("PWDLGNTIME"),
	}
	c.hasClient = c.client.Present()
	return c
}

func parseRow(c columns, row []string, n int, opts Options) (User, *tables.RowError) {
	name := strings.TrimSpace(c.name.Of(row))
	if sapdate.IsBlank(name) {
		return User{}, &tables.RowError{Table: tables.USR02, Row: n, Reason: "blank username"}
	}
	client := DefaultClient
	if c.hasClient {
		client = strings.TrimSpace(c.client.Of(row))
	}

	code := strings.ToUpper(strings.TrimSpace(c.typ.Of(row)))
	if sapdate.IsBlank(code) {
		code = ""
	}
	u := User{
		Client:          client,
		Username:        name,
		TypeCode:        code,
		TypeLabel:       TypeLabel(code, opts.Types),
		Locked:          Flag(c.lock.Of(row)),
		InitialPassword: Flag(c.initial.Of(row)),
		Validity: Validity{
			FromDate:  opts.Codec.FormatDate(c.from.Of(row)),
			ToDate:    opts.Codec.FormatDate(c.to.Of(row)),
			IsExpired: opts.Codec.IsExpired(c.to.Of(row), opts.Now),
		},
		Activity: Activity{
			LastLogin:          opts.Codec.FormatDateTime(c.logonDate.Of(row), c.logonTime.Of(row)),
			LastPasswordChange: opts.Codec.FormatDateTime(c.pwdDate.Of(row), c.pwdTime.Of(row)),
			FirstLoginEstimate: firstLoginEstimate(opts.Codec, c.pwdDate.Of(row), c.pwdTime.Of(row)),
		},
	}
	_, err := opts.Codec.ParseDate(c.logonDate.Of(row))
	u.NeverLoggedIn = errors.Is(err, sapdate.ErrBlank)
	return u, nil
}

// TypeLabel maps a USTYP code to its label.
func TypeLabel(code string, types map[string]string) string {
	if code == "" {
		return "Unknown"
	}
	if l, ok := types[code]; ok {
		return l
	}
	return fmt.Sprintf("Unknown (%s)", code)
}

// Flag reads an SAP boolean cell, "X" meaning true.
func Flag(v string) bool { return strings.ToUpper(strings.TrimSpace(v)) == "X" }

func firstLoginEstimate(c sapdate.Codec, date, clock string) string {
	if sapdate.IsBlank(date) {
		return "Not available"
	}
	s := c.FormatDateTime(date, clock)
	if s == "Not available" {
		return s
	}
	return s + " (estimated from password change)"
}

func inRange(c sapdate.Codec, raw string, r *tables.DateRange) bool {
	d, err := c.ParseDate(raw)
	if err != nil {
		return false
	}
	return r.Contains(d)
}

func count(s *Stats, u User) {
	s.Total++
	if u.Locked {
		s.Locked++
	}
	if u.Validity.IsExpired {
		s.Expired++
	}
	if u.NeverLoggedIn {
		s.NeverLoggedIn++
	}
	if u.InitialPassword {
		s.InitialPassword++
	}
	s.ByType[u.TypeLabel]++
}

// SortedTypes returns the type labels of ByType in label order.
func (s Stats) SortedTypes() []string {
	out := make([]string, 0, len(s.ByType))
	for k := range s.ByType {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
