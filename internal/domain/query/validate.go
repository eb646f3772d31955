package query

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	forbidden   = []string{"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE"}
	forbiddenRe = regexp.MustCompile(`(?i)\b(` + strings.Join(forbidden, "|") + `)\b`)
	leadingRe   = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)
)

// Validate проверяет SQL-запрос на наличие запрещённых конструкций.
// Отчеты допускают только чтение: SELECT или WITH.
func Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if m := forbiddenRe.FindString(sql); m != "" {
		return fmt.Errorf("forbidden operation: %s", strings.ToUpper(m))
	}
	if !leadingRe.MatchString(sql) {
		return fmt.Errorf("query must start with SELECT or WITH")
	}
	return nil
}
