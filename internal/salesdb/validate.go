package salesdb

import (
	"fmt"
	"regexp"
	"strings"
)

// denylist blocks data-mutating and schema-mutating statements. This is a
// textual gate, not a SQL parser: it cannot catch everything (keywords
// smuggled through comments, for example) and is only adequate for a local
// single-user setup against a read-mostly database.
var denylist = regexp.MustCompile(`(?i)\b(DROP|DELETE|UPDATE|INSERT|ALTER|CREATE|TRUNCATE|REPLACE|GRANT|REVOKE)\b`)

// validateSQL rejects anything that is not a single SELECT statement free
// of denylisted keywords. The word-boundary match means column names like
// created_at pass while "CREATE TABLE" does not.
func validateSQL(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%w: empty statement", ErrUnsafeQuery)
	}

	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") &&
		!strings.HasPrefix(strings.ToUpper(trimmed), "WITH") {
		return fmt.Errorf("%w: only SELECT statements are allowed", ErrUnsafeQuery)
	}

	// Interior semicolons would smuggle a second statement past the
	// SELECT-prefix check.
	if strings.Contains(strings.TrimRight(trimmed, "; \t\n"), ";") {
		return fmt.Errorf("%w: multiple statements are not allowed", ErrUnsafeQuery)
	}

	if m := denylist.FindString(trimmed); m != "" {
		return fmt.Errorf("%w: contains forbidden keyword %s", ErrUnsafeQuery, strings.ToUpper(m))
	}
	return nil
}

// cleanGeneratedSQL strips markdown fences and trailing semicolons from
// model output so the remainder can be validated and executed as-is.
func cleanGeneratedSQL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ";")
	return strings.TrimSpace(s)
}
