package mysql

import (
	"errors"
	"testing"

	driver "github.com/go-sql-driver/mysql"
)

func TestJSONOrEmpty(t *testing.T) {
	if got := jsonOrEmpty("  "); got != "{}" {
		t.Fatalf("blank: got %q", got)
	}
	if got := jsonOrEmpty(`{"a":1}`); got != `{"a":1}` {
		t.Fatalf("valid json changed: %q", got)
	}
	if got := jsonOrEmpty("not json"); got != `{"raw":"not json"}` {
		t.Fatalf("raw wrap: got %q", got)
	}
}

func TestIsDuplicate(t *testing.T) {
	if !isDuplicate(&driver.MySQLError{Number: 1062}) {
		t.Fatalf("1062 must be duplicate")
	}
	if isDuplicate(&driver.MySQLError{Number: 1045}) || isDuplicate(errors.New("x")) || isDuplicate(nil) {
		t.Fatalf("unexpected duplicate")
	}
	if stringOrDash(" ") != "-" || stringOrDash("a") != "a" {
		t.Fatalf("stringOrDash")
	}
}
