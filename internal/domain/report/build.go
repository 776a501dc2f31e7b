package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/auths"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/roles"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"
)

// Config selects report sections and tunes the risk engine.
type Config struct {
	IncludeUserDetails bool
	IncludeRoleDetails bool
	IncludeAuthDetails bool
	IncludeSummary     bool
	CriticalObjects    []string
	MaxRolesPerUser    int
	TopN               int
	Weights            Weights
}

func DefaultConfig() Config {
	return Config{
		IncludeUserDetails: true,
		IncludeRoleDetails: true,
		IncludeAuthDetails: true,
		IncludeSummary:     true,
		CriticalObjects:    DefaultCriticalObjects,
		MaxRolesPerUser:    10,
		TopN:               5,
		Weights:            DefaultWeights(),
	}
}

// Input is everything the engine correlates.
type Input struct {
	Users  users.Result
	Roles  roles.Result
	Auths  auths.Result
	Issues []tables.Issue
}

// Build joins the analyzer results by (client, username) and produces the
// report. It never fails: degenerate inputs yield a summary with a warning.
func Build(in Input, now time.Time, cfg Config) *AccessReport {
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.MaxRolesPerUser <= 0 {
		cfg.MaxRolesPerUser = 10
	}
	if cfg.Weights.UserType == nil {
		cfg.Weights.UserType = DefaultWeights().UserType
	}
	if cfg.CriticalObjects == nil {
		cfg.CriticalObjects = DefaultCriticalObjects
	}

	rep := &AccessReport{
		Metadata: Metadata{
			GeneratedAt:     now,
			UserCount:       len(in.Users.Records),
			RoleCount:       in.Roles.Stats.TotalRoles,
			AuthObjectCount: in.Auths.Stats.DistinctObjects,
		},
		Users:            []UserView{},
		ValidationErrors: validationErrors(in),
	}

	if len(in.Users.Records) == 0 {
		if cfg.IncludeSummary {
			rep.Summary = &Summary{
				Warning:    NoUsersWarning,
				Users:      UserStats{ByType: []NameCount{}},
				TopRoles:   []NameCount{},
				TopObjects: []NameCount{},
				Insights:   []Insight{},
			}
		}
		return rep
	}

	critical := map[string]bool{}
	for _, o := range cfg.CriticalObjects {
		critical[strings.ToUpper(o)] = true
	}

	roleKey := joinKey(in.Users.HasClient, in.Roles.HasClient)
	authKey := joinKey(in.Users.HasClient, in.Auths.HasClient)

	rolesByUser := map[string][]roles.Assignment{}
	for _, a := range in.Roles.Records {
		k := roleKey(a.Client, a.Username)
		rolesByUser[k] = append(rolesByUser[k], a)
	}
	authsByUser := map[string][]auths.Entry{}
	for _, e := range in.Auths.Records {
		k := authKey(e.Client, e.Username)
		authsByUser[k] = append(authsByUser[k], e)
	}

	for _, u := range in.Users.Records {
		entries := authsByUser[authKey(u.Client, u.Username)]
		held, wildcards := exposure(entries, critical)
		view := UserView{
			Client:    u.Client,
			Username:  u.Username,
			RiskScore: Score(u, held, wildcards, cfg.Weights),
		}
		if cfg.IncludeUserDetails {
			view.Details = &Details{
				UserType:        u.TypeLabel,
				UserTypeCode:    u.TypeCode,
				Locked:          u.Locked,
				InitialPassword: u.InitialPassword,
				Validity:        u.Validity,
				Activity:        u.Activity,
			}
		}
		if cfg.IncludeRoleDetails {
			view.Roles = roleViews(rolesByUser[roleKey(u.Client, u.Username)])
		}
		if cfg.IncludeAuthDetails {
			view.Authorizations = group(entries)
		}
		rep.Users = append(rep.Users, view)
	}

	if cfg.IncludeRoleDetails {
		rep.Roles = in.Roles.Roles
	}
	if cfg.IncludeAuthDetails {
		rep.AuthObjects = in.Auths.Objects
	}
	if cfg.IncludeSummary {
		rep.Summary = summarize(in, cfg, critical)
		rep.HighPrivilege = in.Roles.HighPrivilege
		rep.TopUsersByRoles = in.Roles.TopUsers
		rep.RoleTimeline = in.Roles.Timeline
		rep.LoginTimeline = in.Users.LoginTimeline
	}
	return rep
}

// joinKey matches by username alone when only one side carries a client.
func joinKey(left, right bool) func(client, username string) string {
	if left != right {
		return func(_, username string) string { return username }
	}
	return tables.Key
}

func summarize(in Input, cfg Config, critical map[string]bool) *Summary {
	us := in.Users.Stats
	s := &Summary{
		Users: UserStats{
			Total:           us.Total,
			Locked:          us.Locked,
			Expired:         us.Expired,
			NeverLoggedIn:   us.NeverLoggedIn,
			InitialPassword: us.InitialPassword,
			ByType:          make([]NameCount, 0, len(us.ByType)),
		},
		Roles: RoleStats{
			TotalRoles:          in.Roles.Stats.TotalRoles,
			TotalAssignments:    in.Roles.Stats.TotalAssignments,
			ExpiredAssignments:  in.Roles.Stats.ExpiredAssignments,
			ExcludedAssignments: in.Roles.Stats.ExcludedAssignments,
		},
		Auths: AuthStats{
			TotalAuthorizations: in.Auths.Stats.TotalAuthorizations,
			DistinctObjects:     in.Auths.Stats.DistinctObjects,
			WildcardEntries:     in.Auths.Stats.WildcardEntries,
		},
		TopRoles:   []NameCount{},
		TopObjects: []NameCount{},
	}
	for _, label := range us.SortedTypes() {
		s.Users.ByType = append(s.Users.ByType, NameCount{Name: label, Count: us.ByType[label]})
	}

	if in.Roles.Stats.TotalAssignments == 0 {
		s.Warning = NoRolesWarning
	}
	if us.Total > 0 {
		s.Roles.AvgRolesPerUser = round2(float64(in.Roles.Stats.TotalAssignments) / float64(us.Total))
	}
	if len(in.Auths.PerUser) > 0 {
		sum := 0
		for _, n := range in.Auths.PerUser {
			sum += n
		}
		s.Auths.AvgObjectsPerUser = round2(float64(sum) / float64(len(in.Auths.PerUser)))
	}

	for i, r := range in.Roles.Roles {
		if i == cfg.TopN {
			break
		}
		s.TopRoles = append(s.TopRoles, NameCount{Name: r.Name, Count: r.AssignmentCount})
	}
	for i, o := range in.Auths.Objects {
		if i == cfg.TopN {
			break
		}
		s.TopObjects = append(s.TopObjects, NameCount{Name: o.Name, Count: o.Count})
	}

	s.Insights = insights(in, cfg, critical)
	return s
}

// insights derives the security insights in their fixed order. Only
// insights with a non-zero count are returned.
func insights(in Input, cfg Config, critical map[string]bool) []Insight {
	out := []Insight{}
	us := in.Users.Stats
	if us.Locked > 0 {
		out = append(out, Insight{
			Type: "info", Category: "user_management", Impact: "low",
			Title:       "Locked accounts",
			Description: fmt.Sprintf("%d user account(s) are locked", us.Locked),
			Count:       us.Locked,
		})
	}
	if us.Expired > 0 {
		out = append(out, Insight{
			Type: "info", Category: "user_management", Impact: "low",
			Title:       "Expired accounts",
			Description: fmt.Sprintf("%d user account(s) are past their validity end date", us.Expired),
			Count:       us.Expired,
		})
	}
	if us.InitialPassword > 0 {
		out = append(out, Insight{
			Type: "warning", Category: "security", Impact: "medium",
			Title:       "Initial passwords",
			Description: fmt.Sprintf("%d user(s) still use an initial password", us.InitialPassword),
			Count:       us.InitialPassword,
		})
	}

	holders := map[string]bool{}
	for _, e := range in.Auths.Records {
		if critical[strings.ToUpper(e.Object)] {
			holders[e.Key()] = true
		}
	}
	if n := len(holders); n > 0 {
		out = append(out, Insight{
			Type: "alert", Category: "security", Impact: "high",
			Title:       "Critical authorizations",
			Description: fmt.Sprintf("%d user(s) hold critical authorization objects (%s)", n, strings.Join(cfg.CriticalObjects, ", ")),
			Count:       n,
		})
	}

	over := 0
	for _, c := range in.Roles.PerUser {
		if c > cfg.MaxRolesPerUser {
			over++
		}
	}
	if over > 0 {
		out = append(out, Insight{
			Type: "warning", Category: "role_management", Impact: "medium",
			Title:       "Excessive role assignments",
			Description: fmt.Sprintf("%d user(s) have more than %d roles", over, cfg.MaxRolesPerUser),
			Count:       over,
		})
	}
	return out
}

func exposure(entries []auths.Entry, critical map[string]bool) (held, wildcards int) {
	seen := map[string]bool{}
	for _, e := range entries {
		obj := strings.ToUpper(e.Object)
		if critical[obj] && !seen[obj] {
			seen[obj] = true
			held++
		}
		if e.IsWildcard {
			wildcards++
		}
	}
	return held, wildcards
}

func roleViews(list []roles.Assignment) []RoleView {
	out := make([]RoleView, 0, len(list))
	for _, a := range list {
		out = append(out, RoleView{
			Name:      a.RoleName,
			FromDate:  a.FromDate,
			ToDate:    a.ToDate,
			Validity:  a.Validity,
			IsExpired: a.IsExpired,
			Excluded:  a.Excluded,
		})
	}
	return out
}

// group collects entries per object in first-seen order.
func group(entries []auths.Entry) []AuthGroup {
	out := []AuthGroup{}
	idx := map[string]int{}
	for _, e := range entries {
		i, ok := idx[e.Object]
		if !ok {
			i = len(out)
			idx[e.Object] = i
			out = append(out, AuthGroup{Object: e.Object})
		}
		out[i].Values = append(out[i].Values, AuthValue{Field: e.Field, From: e.FromValue, To: e.ToValue, IsWildcard: e.IsWildcard})
	}
	return out
}

func validationErrors(in Input) []tables.Issue {
	out := append([]tables.Issue(nil), in.Issues...)
	for _, skipped := range [][]tables.RowError{in.Users.Skipped, in.Roles.Skipped, in.Auths.Skipped} {
		for _, e := range skipped {
			out = append(out, e.Issue())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return severityRank(out[i].Severity) < severityRank(out[j].Severity) })
	return out
}

func severityRank(s tables.Severity) int {
	if s == tables.SeverityError {
		return 0
	}
	return 1
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
