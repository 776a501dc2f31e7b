// Package report correlates users, roles and authorizations into the
// access analysis report, including per-user risk scores and insights.
package report

import (
	"time"

	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/auths"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/roles"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/sapdate"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/tables"
	"github.com/bryanwahyu/automaton-sapaudit/internal/domain/users"
)

// NoUsersWarning is set on the summary when no user survived loading.
const NoUsersWarning = "No users were found in the provided data"

// NoRolesWarning is set when users exist but no role assignment does.
const NoRolesWarning = "No role assignments were found in the provided data"

type Metadata struct {
	GeneratedAt     time.Time `json:"generated_at"`
	UserCount       int       `json:"user_count"`
	RoleCount       int       `json:"role_count"`
	AuthObjectCount int       `json:"auth_object_count"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Insight is one categorized security observation.
type Insight struct {
	Type        string `json:"type"`
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Count       int    `json:"count"`
}

type UserStats struct {
	Total           int         `json:"total_users"`
	Locked          int         `json:"locked_users"`
	Expired         int         `json:"expired_users"`
	NeverLoggedIn   int         `json:"never_logged_in"`
	InitialPassword int         `json:"initial_password"`
	ByType          []NameCount `json:"by_type"`
}

type RoleStats struct {
	TotalRoles          int     `json:"total_roles"`
	TotalAssignments    int     `json:"total_assignments"`
	ExpiredAssignments  int     `json:"expired_assignments"`
	ExcludedAssignments int     `json:"excluded_assignments"`
	AvgRolesPerUser     float64 `json:"avg_roles_per_user"`
}

type AuthStats struct {
	TotalAuthorizations int     `json:"total_authorizations"`
	DistinctObjects     int     `json:"distinct_objects"`
	WildcardEntries     int     `json:"wildcard_entries"`
	AvgObjectsPerUser   float64 `json:"avg_auth_objects_per_user"`
}

type Summary struct {
	Warning    string      `json:"warning,omitempty"`
	Users      UserStats   `json:"user_stats"`
	Roles      RoleStats   `json:"role_stats"`
	Auths      AuthStats   `json:"auth_stats"`
	TopRoles   []NameCount `json:"top_roles"`
	TopObjects []NameCount `json:"top_auth_objects"`
	Insights   []Insight   `json:"security_insights"`
}

type Details struct {
	UserType        string         `json:"user_type"`
	UserTypeCode    string         `json:"user_type_code"`
	Locked          bool           `json:"locked"`
	InitialPassword bool           `json:"initial_password"`
	Validity        users.Validity `json:"validity"`
	Activity        users.Activity `json:"activity"`
}

type RoleView struct {
	Name      string `json:"role_name"`
	FromDate  string `json:"from_date"`
	ToDate    string `json:"to_date"`
	Validity  string `json:"validity"`
	IsExpired bool   `json:"is_expired"`
	Excluded  bool   `json:"excluded"`
}

type AuthValue struct {
	Field      string `json:"field"`
	From       string `json:"from"`
	To         string `json:"to"`
	IsWildcard bool   `json:"is_wildcard"`
}

// AuthGroup is the set of values one user holds for one object.
type AuthGroup struct {
	Object string      `json:"object"`
	Values []AuthValue `json:"values"`
}

// UserView is the per-user section of the report.
type UserView struct {
	Client         string      `json:"client"`
	Username       string      `json:"username"`
	Details        *Details    `json:"details,omitempty"`
	Roles          []RoleView  `json:"roles,omitempty"`
	Authorizations []AuthGroup `json:"authorizations,omitempty"`
	RiskScore      int         `json:"risk_score"`
}

// AccessReport is the immutable result of one access analysis.
type AccessReport struct {
	ID               string               `json:"id"`
	Metadata         Metadata             `json:"metadata"`
	Summary          *Summary             `json:"summary,omitempty"`
	Users            []UserView           `json:"users"`
	Roles            []roles.Role         `json:"roles,omitempty"`
	HighPrivilege    []roles.Role         `json:"high_privilege_roles,omitempty"`
	TopUsersByRoles  []roles.UserCount    `json:"top_users_by_roles,omitempty"`
	RoleTimeline     []sapdate.MonthCount `json:"role_timeline,omitempty"`
	LoginTimeline    []sapdate.MonthCount `json:"login_timeline,omitempty"`
	AuthObjects      []auths.Object       `json:"auth_objects,omitempty"`
	ValidationErrors []tables.Issue       `json:"validation_errors,omitempty"`
}
