// Package auths analyzes USR12 authorization values.
package auths

import (
	"log"
	"sort"
	"strings"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"
)

// Entry is one normalized USR12 row.
type Entry struct {
	Client     string `json:"client"`
	Username   string `json:"username"`
	Object     string `json:"object"`
	Field      string `json:"field"`
	FromValue  string `json:"from_value"`
	ToValue    string `json:"to_value"`
	IsWildcard bool   `json:"is_wildcard"`
}

// Key returns the join key of the owning user.
func (e Entry) Key() string { return tables.Key(e.Client, e.Username) }

// Object summarizes one authorization object across all users.
type Object struct {
	Name   string   `json:"object"`
	Count  int      `json:"count"`
	Fields []string `json:"fields"`
}

type Stats struct {
	TotalAuthorizations int `json:"total_authorizations"`
	DistinctObjects     int `json:"distinct_objects"`
	WildcardEntries     int `json:"wildcard_entries"`
}

type Result struct {
	Records []Entry
	// Objects sorted by count, highest first.
	Objects []Object
	// ObjectCounts is the frequency of each object over all entries.
	ObjectCounts map[string]int
	// PerUser is the number of distinct objects held by each user key.
	PerUser map[string]int
	Stats   Stats
	Skipped []tables.RowError
	// HasClient is false when USR12 had no MANDT column.
	HasClient bool
}

// IsWildcard reports whether an authorization value range is unrestricted.
func IsWildcard(from, to string) bool {
	f, t := strings.TrimSpace(from), strings.TrimSpace(to)
	return f == "*" || f == "%" || t == "*" || t == "%"
}

// Analyze parses a normalized USR12 table. Without an object or username
// column the result is empty.
func Analyze(t *tables.RawTable) Result {
	res := Result{ObjectCounts: map[string]int{}, PerUser: map[string]int{}}
	if t.Len() == 0 || !t.Has("OBJCT") || !t.Has("UNAME") {
		return res
	}
	client, user, object := t.Column("MANDT"), t.Column("UNAME"), t.Column("OBJCT")
	field, from, to := t.Column("FIELD"), t.Column("VON"), t.Column("BIS")
	res.HasClient = client.Present()

	perUser := map[string]map[string]struct{}{}
	fields := map[string][]string{}
	seenField := map[string]map[string]bool{}

	for i, row := range t.Rows {
		u := strings.TrimSpace(user.Of(row))
		obj := strings.TrimSpace(object.Of(row))
		if sapdate.IsBlank(u) {
			res.Skipped = append(res.Skipped, tables.RowError{Table: tables.USR12, Row: i + 1, Reason: "blank username"})
			continue
		}
		if sapdate.IsBlank(obj) {
			res.Skipped = append(res.Skipped, tables.RowError{Table: tables.USR12, Row: i + 1, Reason: "blank authorization object"})
			continue
		}
		cl := users.DefaultClient
		if client.Present() {
			cl = strings.TrimSpace(client.Of(row))
		}
		e := Entry{
			Client:     cl,
			Username:   u,
			Object:     obj,
			Field:      strings.TrimSpace(field.Of(row)),
			FromValue:  strings.TrimSpace(from.Of(row)),
			ToValue:    strings.TrimSpace(to.Of(row)),
			IsWildcard: IsWildcard(from.Of(row), to.Of(row)),
		}
		res.Records = append(res.Records, e)
		res.ObjectCounts[obj]++
		if e.IsWildcard {
			res.Stats.WildcardEntries++
		}

		set := perUser[e.Key()]
		if set == nil {
			set = map[string]struct{}{}
			perUser[e.Key()] = set
		}
		set[obj] = struct{}{}

		if e.Field != "" {
			if seenField[obj] == nil {
				seenField[obj] = map[string]bool{}
			}
			if !seenField[obj][e.Field] {
				seenField[obj][e.Field] = true
				fields[obj] = append(fields[obj], e.Field)
			}
		}
	}

	for key, set := range perUser {
		res.PerUser[key] = len(set)
	}
	res.Objects = make([]Object, 0, len(res.ObjectCounts))
	for name, n := range res.ObjectCounts {
		res.Objects = append(res.Objects, Object{Name: name, Count: n, Fields: fields[name]})
	}
	sort.Slice(res.Objects, func(i, j int) bool {
		if res.Objects[i].Count != res.Objects[j].Count {
			return res.Objects[i].Count > res.Objects[j].Count
		}
		return res.Objects[i].Name < res.Objects[j].Name
	})
	res.Stats.TotalAuthorizations = len(res.Records)
	res.Stats.DistinctObjects = len(res.ObjectCounts)

	if len(res.Skipped) > 0 {
		log.Printf("analysis=auths rows=%d kept=%d skipped=%d", t.Len(), len(res.Records), len(res.Skipped))
	}
	return res
}
