// Package roles analyzes AGR_USERS role assignments.
package roles

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"
)

// DefaultHighPrivilegeKeywords flag role names that usually grant broad access.
var DefaultHighPrivilegeKeywords = []string{"ADMIN", "SUPER", "ROOT", "MANAGER", "DIRECTOR", "SAP_ALL"}

// Assignment is one normalized AGR_USERS row.
type Assignment struct {
	Client    string `json:"client"`
	Username  string `json:"username"`
	RoleName  string `json:"role_name"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Validity  string `json:"validity"`
	Excluded  bool   `json:"excluded"`
	IsExpired bool   `json:"is_expired"`
	OrgFlag   string `json:"org_flag,omitempty"`
}

// Key returns the join key of the assigned user.
func (a Assignment) Key() string { return tables.Key(a.Client, a.Username) }

// Holder is a user currently holding a role.
type Holder struct {
	Client   string `json:"client"`
	Username string `json:"username"`
	FromDate string `json:"from_date"`
}

// Role summarizes the assignments of one role.
type Role struct {
	Name            string   `json:"role_name"`
	AssignmentCount int      `json:"assignment_count"`
	Users           []Holder `json:"users"`
}

type UserCount struct {
	Client   string `json:"client"`
	Username string `json:"username"`
	Count    int    `json:"role_count"`
}

type Stats struct {
	TotalRoles          int `json:"total_roles"`
	TotalAssignments    int `json:"total_assignments"`
	ExpiredAssignments  int `json:"expired_assignments"`
	ExcludedAssignments int `json:"excluded_assignments"`
}

type Result struct {
	Records []Assignment
	// Roles sorted by assignment count, highest first.
	Roles         []Role
	PerUser       map[string]int
	HighPrivilege []Role
	TopUsers      []UserCount
	Timeline      []sapdate.MonthCount
	Stats         Stats
	Skipped       []tables.RowError
	HasClient     bool
}

type Options struct {
	Codec    sapdate.Codec
	Now      time.Time
	Range    *tables.DateRange
	Keywords []string
	TopUsers int
}

// Analyze parses a normalized AGR_USERS table. Without a role column the
// result is empty rather than an error.
func Analyze(t *tables.RawTable, opts Options) Result {
	res := Result{PerUser: map[string]int{}}
	if t.Len() == 0 || !t.Has("AGR_NAME") || !t.Has("UNAME") {
		return res
	}
	if opts.Keywords == nil {
		opts.Keywords = DefaultHighPrivilegeKeywords
	}
	if opts.TopUsers <= 0 {
		opts.TopUsers = 10
	}
	opts.Codec = opts.Codec.OrDefault()

	c := struct {
		client, user, role, from, to, exclude, org tables.Column
	}{
		t.Column("MANDT"), t.Column("UNAME"), t.Column("AGR_NAME"),
		t.Column("FROM_DAT"), t.Column("TO_DAT"), t.Column("EXCLUDE"), t.Column("ORG_FLAG"),
	}

	res.HasClient = c.client.Present()

	counts := map[string]int{}
	holders := map[string]map[string]*holder{}
	months := map[string]int{}
	filtered := 0

	for i, row := range t.Rows {
		rawFrom := c.from.Of(row)
		fromDate, fromErr := opts.Codec.ParseDate(rawFrom)
		if opts.Range != nil && (fromErr != nil || !opts.Range.Contains(fromDate)) {
			filtered++
			continue
		}

		user := strings.TrimSpace(c.user.Of(row))
		role := strings.TrimSpace(c.role.Of(row))
		if sapdate.IsBlank(user) {
			res.Skipped = append(res.Skipped, tables.RowError{Table: tables.AGRUsers, Row: i + 1, Reason: "blank username"})
			continue
		}
		if sapdate.IsBlank(role) {
			res.Skipped = append(res.Skipped, tables.RowError{Table: tables.AGRUsers, Row: i + 1, Reason: "blank role name"})
			continue
		}
		client := users.DefaultClient
		if c.client.Present() {
			client = strings.TrimSpace(c.client.Of(row))
		}

		a := Assignment{
			Client:    client,
			Username:  user,
			RoleName:  role,
			FromDate:  opts.Codec.FormatDate(rawFrom),
			ToDate:    opts.Codec.FormatDate(c.to.Of(row)),
			Validity:  Validity(opts.Codec, rawFrom, c.to.Of(row)),
			Excluded:  users.Flag(c.exclude.Of(row)),
			IsExpired: opts.Codec.IsExpired(c.to.Of(row), opts.Now),
			OrgFlag:   strings.TrimSpace(c.org.Of(row)),
		}
		res.Records = append(res.Records, a)
		counts[role]++
		res.PerUser[a.Key()]++
		if fromErr == nil {
			months[sapdate.Month(fromDate)]++
		}

		res.Stats.TotalAssignments++
		if a.IsExpired {
			res.Stats.ExpiredAssignments++
		}
		if a.Excluded {
			res.Stats.ExcludedAssignments++
		}
		if a.Excluded || a.IsExpired {
			continue
		}
		hs := holders[role]
		if hs == nil {
			hs = map[string]*holder{}
			holders[role] = hs
		}
		h, ok := hs[a.Key()]
		if !ok {
			hs[a.Key()] = &holder{Holder: Holder{Client: client, Username: user, FromDate: a.FromDate}, from: fromDate, ok: fromErr == nil, order: len(hs)}
			continue
		}
		if fromErr == nil && (!h.ok || fromDate.Before(h.from)) {
			h.from, h.ok, h.FromDate = fromDate, true, a.FromDate
		}
	}

	res.Roles = make([]Role, 0, len(counts))
	for name, n := range counts {
		res.Roles = append(res.Roles, Role{Name: name, AssignmentCount: n, Users: flatten(holders[name])})
	}
	sort.Slice(res.Roles, func(i, j int) bool {
		if res.Roles[i].AssignmentCount != res.Roles[j].AssignmentCount {
			return res.Roles[i].AssignmentCount > res.Roles[j].AssignmentCount
		}
		return res.Roles[i].Name < res.Roles[j].Name
	})
	res.Stats.TotalRoles = len(counts)

	for _, r := range res.Roles {
		if IsHighPrivilege(r.Name, opts.Keywords) {
			res.HighPrivilege = append(res.HighPrivilege, r)
		}
	}
	res.TopUsers = topUsers(res.PerUser, opts.TopUsers)
	res.Timeline = sapdate.Timeline(months)

	if len(res.Skipped) > 0 || filtered > 0 {
		log.Printf("analysis=roles rows=%d kept=%d skipped=%d filtered=%d", t.Len(), len(res.Records), len(res.Skipped), filtered)
	}
	return res
}

// Validity renders the validity window of an assignment.
func Validity(c sapdate.Codec, from, to string) string {
	f := c.FormatDate(from)
	if f == "" {
		f = "Unknown"
	}
	if sapdate.IsPermanent(to) {
		return "Since " + f + " (unlimited)"
	}
	t := c.FormatDate(to)
	if t == "" {
		return "Since " + f
	}
	return f + " to " + t
}

// IsHighPrivilege reports whether the role name contains one of keywords.
func IsHighPrivilege(role string, keywords []string) bool {
	up := strings.ToUpper(role)
	for _, k := range keywords {
		if k != "" && strings.Contains(up, strings.ToUpper(k)) {
			return true
		}
	}
	return false
}

type holder struct {
	Holder
	from  time.Time
	ok    bool
	order int
}

func flatten(hs map[string]*holder) []Holder {
	list := make([]*holder, 0, len(hs))
	for _, h := range hs {
		list = append(list, h)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].order < list[j].order })
	out := make([]Holder, len(list))
	for i, h := range list {
		out[i] = h.Holder
	}
	return out
}

func topUsers(perUser map[string]int, n int) []UserCount {
	out := make([]UserCount, 0, len(perUser))
	for key, c := range perUser {
		client, user, _ := strings.Cut(key, ":")
		out = append(out, UserCount{Client: client, Username: user, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].Client != out[j].Client {
			return out[i].Client < out[j].Client
		}
		return out[i].Username < out[j].Username
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
