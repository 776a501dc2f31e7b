package mysql

import (
    "encoding/json"
    "errors"
    "strings"

    driver "github.com/go-sql-driver/mysql"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
    if strings.TrimSpace(s) == "" {
        return "-"
    }
    return s
}

// jsonOrEmpty keeps JSON columns valid; invalid text is wrapped as {"raw": ...}
func jsonOrEmpty(s string) string {
    if strings.TrimSpace(s) == "" {
        return "{}"
    }
    var js any
    if json.Unmarshal([]byte(s), &js) != nil {
        b, _ := json.Marshal(map[string]string{"raw": s})
        return string(b)
    }
    return s
}

// isDuplicate reports a primary key violation (ER_DUP_ENTRY)
func isDuplicate(err error) bool {
    var me *driver.MySQLError
    return errors.As(err, &me) && me.Number == 1062
}
