// Package inactivity derives last-login dates from UST12 login history and
// classifies users into inactivity tiers.
package inactivity

import (
	"errors"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
)

// ErrNoLoginRecords is returned when no row matches the login signature.
var ErrNoLoginRecords = errors.New("no login records found")

type Tier string

const (
	TierNever      Tier = "Never"
	TierCritical   Tier = "Critical"
	TierHighRisk   Tier = "HighRisk"
	TierMediumRisk Tier = "MediumRisk"
	TierActive     Tier = "Active"
)

// Tiers lists every tier from most to least severe.
var Tiers = []Tier{TierNever, TierCritical, TierHighRisk, TierMediumRisk, TierActive}

// Thresholds are day counts; a login older than Critical days is Critical,
// older than High days is HighRisk and older than Medium days MediumRisk.
type Thresholds struct {
	Medium   int `yaml:"medium"`
	High     int `yaml:"high"`
	Critical int `yaml:"critical"`
}

func DefaultThresholds() Thresholds { return Thresholds{Medium: 30, High: 90, Critical: 180} }

// Classify maps days since last login to a tier. A nil days means the user
// never logged in.
func (t Thresholds) Classify(days *int) Tier {
	switch {
	case days == nil:
		return TierNever
	case *days > t.Critical:
		return TierCritical
	case *days > t.High:
		return TierHighRisk
	case *days > t.Medium:
		return TierMediumRisk
	}
	return TierActive
}

// Record is the inactivity verdict of one user.
type Record struct {
	User           string `json:"user"`
	LastLogin      string `json:"last_login,omitempty"`
	DaysSinceLogin *int   `json:"days_since_login"`
	Tier           Tier   `json:"tier"`
}

type GeneralStats struct {
	TotalRecords     int    `json:"totalRecords"`
	UniqueUsersCount int    `json:"uniqueUsersCount"`
	LastUpdated      string `json:"lastUpdated"`
}

type ActivityMetrics struct {
	TotalUsers         int     `json:"totalUsers"`
	ActiveUsers        int     `json:"activeUsers"`
	InactiveUsers      int     `json:"inactiveUsers"`
	InactivePercentage float64 `json:"inactivePercentage"`
}

type TierCount struct {
	Tier  Tier `json:"tier"`
	Count int  `json:"count"`
}

// Report is the immutable result of one inactivity analysis.
type Report struct {
	ID              string               `json:"id"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	GeneralStats    GeneralStats         `json:"generalStats"`
	Distribution    []TierCount          `json:"distribution"`
	ActivityMetrics ActivityMetrics      `json:"activityMetrics"`
	Timeline        []sapdate.MonthCount `json:"timeline"`
	InactiveUsers   []Record             `json:"inactiveUsers"`
	Users           []Record             `json:"users"`
}

type Options struct {
	Codec      sapdate.Codec
	Now        time.Time
	Range      *tables.DateRange
	Thresholds Thresholds
	// LoginObject and LoginField identify login-activity rows.
	LoginObject string
	LoginField  string
	Schema      *tables.Schema
}

// Analyze computes inactivity tiers from a UST12 extract. The username is
// read from VON and the login date from BIS of login-activity rows.
func Analyze(t *tables.RawTable, opts Options) (*Report, error) {
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	if opts.LoginObject == "" {
		opts.LoginObject = "S_USER"
	}
	if opts.LoginField == "" {
		opts.LoginField = "LOGON_DATA"
	}
	opts.Codec = opts.Codec.OrDefault()
	schema := tables.DefaultSchemas()[tables.UST12]
	if opts.Schema != nil {
		schema = *opts.Schema
	}

	norm, issues := tables.Normalize(t, schema)
	if tables.HasErrors(issues) {
		return nil, &tables.ValidationError{Issues: issues}
	}

	object, field := norm.Column("OBJCT"), norm.Column("FIELD")
	von, bis := norm.Column("VON"), norm.Column("BIS")

	last := map[string]time.Time{}
	users := map[string]int{}
	months := map[string]int{}
	kept, loginRows, filtered := 0, 0, 0

	for _, row := range norm.Rows {
		// the range applies to every row with a readable BIS, login or not
		d, err := opts.Codec.ParseDate(bis.Of(row))
		if err == nil && !opts.Range.Contains(d) {
			filtered++
			continue
		}
		kept++

		user := strings.TrimSpace(von.Of(row))
		if !sapdate.IsBlank(user) {
			if _, ok := users[user]; !ok {
				users[user] = len(users)
			}
		}
		if !isLoginRow(row, object, field, opts) {
			continue
		}
		loginRows++
		if sapdate.IsBlank(user) || err != nil {
			continue
		}
		months[sapdate.Month(d)]++
		// equal dates keep the first row seen
		if prev, ok := last[user]; !ok || d.After(prev) {
			last[user] = d
		}
	}
	if loginRows == 0 && !hasLoginRow(norm, object, field, opts) {
		return nil, ErrNoLoginRecords
	}

	today := sapdate.Day(opts.Now)
	rep := &Report{
		GeneratedAt: opts.Now,
		GeneralStats: GeneralStats{
			TotalRecords:     kept,
			UniqueUsersCount: len(users),
			LastUpdated:      opts.Now.Format("2006-01-02 15:04:05"),
		},
		Timeline:      sapdate.Timeline(months),
		InactiveUsers: []Record{},
		Users:         make([]Record, 0, len(users)),
	}

	names := make([]string, 0, len(users))
	for u := range users {
		names = append(names, u)
	}
	sort.Slice(names, func(i, j int) bool { return users[names[i]] < users[names[j]] })

	dist := map[Tier]int{}
	for _, u := range names {
		rec := Record{User: u}
		if d, ok := last[u]; ok {
			days := int(math.Floor(today.Sub(d).Hours() / 24))
			rec.DaysSinceLogin = &days
			rec.LastLogin = opts.Codec.Render(d)
		}
		rec.Tier = opts.Thresholds.Classify(rec.DaysSinceLogin)
		dist[rec.Tier]++
		rep.Users = append(rep.Users, rec)
		if IsInactive(rec.Tier) {
			rep.InactiveUsers = append(rep.InactiveUsers, rec)
		}
	}
	sort.SliceStable(rep.InactiveUsers, func(i, j int) bool {
		return daysKey(rep.InactiveUsers[i]) > daysKey(rep.InactiveUsers[j])
	})

	for _, tier := range Tiers {
		rep.Distribution = append(rep.Distribution, TierCount{Tier: tier, Count: dist[tier]})
	}
	inactive := dist[TierNever] + dist[TierCritical] + dist[TierHighRisk]
	rep.ActivityMetrics = ActivityMetrics{
		TotalUsers:    len(users),
		ActiveUsers:   len(users) - inactive,
		InactiveUsers: inactive,
	}
	if len(users) > 0 {
		rep.ActivityMetrics.InactivePercentage = math.Round(float64(inactive)/float64(len(users))*1000) / 10
	}

	log.Printf("analysis=inactivity rows=%d login_rows=%d filtered=%d users=%d inactive=%d", norm.Len(), loginRows, filtered, len(users), inactive)
	return rep, nil
}

func isLoginRow(row []string, object, field tables.Column, opts Options) bool {
	return strings.EqualFold(strings.TrimSpace(object.Of(row)), opts.LoginObject) ||
		strings.EqualFold(strings.TrimSpace(field.Of(row)), opts.LoginField)
}

func hasLoginRow(t *tables.RawTable, object, field tables.Column, opts Options) bool {
	for _, row := range t.Rows {
		if isLoginRow(row, object, field, opts) {
			return true
		}
	}
	return false
}

// IsInactive reports whether the tier counts as inactive.
func IsInactive(t Tier) bool {
	return t == TierNever || t == TierCritical || t == TierHighRisk
}

func daysKey(r Record) int {
	if r.DaysSinceLogin == nil {
		return math.MaxInt
	}
	return *r.DaysSinceLogin
}
