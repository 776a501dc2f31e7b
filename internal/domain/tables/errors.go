package tables

import (
	"fmt"
	"strings"
)

// Severity of a loader issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind classifies a loader issue.
type Kind string

const (
	KindSchema       Kind = "schema"
	KindEmpty        Kind = "empty_dataset"
	KindMissingTable Kind = "missing_table"
	KindConsistency  Kind = "consistency"
	KindRow          Kind = "row"
)

// Issue is one problem found while loading or analyzing a table.
type Issue struct {
	Table    string   `json:"table"`
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Row      int      `json:"row,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Table == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.Table, i.Message)
}

// ValidationError aggregates every issue of a load that had at least one
// error-level problem.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	var errs []string
	for _, i := range e.Issues {
		if i.Severity == SeverityError {
			errs = append(errs, i.String())
		}
	}
	return fmt.Sprintf("validation failed with %d error(s): %s", len(errs), strings.Join(errs, "; "))
}

// Errors returns only the error-level issues.
func (e *ValidationError) Errors() []Issue {
	var out []Issue
	for _, i := range e.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// RowError records a row that was skipped during analysis.
// Row is 1-based over data rows.
type RowError struct {
	Table  string
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.Table, e.Row, e.Reason)
}

// Issue converts the row error to a warning-level issue.
func (e RowError) Issue() Issue {
	return Issue{Table: e.Table, Kind: KindRow, Severity: SeverityWarning, Row: e.Row, Message: e.Reason}
}

// HasErrors reports whether any issue is error-level.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
