package salesdb

import (
	"fmt"
	"strconv"
	"strings"
)

// maxDisplayRows caps how many rows are rendered verbatim; the remainder is
// summarized so huge result sets do not blow up the model's context.
const maxDisplayRows = 10

var moneyKeywords = []string{"revenue", "amount", "spent", "value", "price", "cost", "sales"}

// renderResults formats query output as compact text for the model.
// Column names and numeric precision are preserved as the store returned
// them; money-looking columns get currency formatting.
func renderResults(columns []string, rows []map[string]any) string {
	if len(rows) == 0 {
		return "No results"
	}

	// Single aggregate result reads better as a bullet list.
	if len(rows) == 1 && len(columns) <= 3 {
		parts := []string{"Query Result:"}
		for _, col := range columns {
			parts = append(parts, fmt.Sprintf("  - %s: %s", col, formatValue(col, rows[0][col])))
		}
		return strings.Join(parts, "\n")
	}

	parts := []string{fmt.Sprintf("Query returned %d row(s):", len(rows)), ""}

	display := min(maxDisplayRows, len(rows))
	for i, row := range rows[:display] {
		fields := make([]string, 0, len(columns))
		for _, col := range columns {
			fields = append(fields, fmt.Sprintf("%s: %s", col, formatValue(col, row[col])))
		}
		parts = append(parts, fmt.Sprintf("  [%d] %s", i+1, strings.Join(fields, " | ")))
	}
	if len(rows) > display {
		parts = append(parts, "", fmt.Sprintf("  ... and %d more rows", len(rows)-display))
	}

	parts = append(parts, "",
		"Data Summary:",
		fmt.Sprintf("  - Total rows: %d", len(rows)),
		fmt.Sprintf("  - Columns: %s", strings.Join(columns, ", ")))

	if len(rows) >= 3 && len(columns) == 2 {
		parts = append(parts, "  - This data could be visualized with create_chart")
	}
	return strings.Join(parts, "\n")
}

// formatValue renders one cell. Columns whose name suggests currency get
// dollar formatting with two decimals; other numbers keep their precision.
func formatValue(column string, v any) string {
	if v == nil {
		return "N/A"
	}

	lower := strings.ToLower(column)
	money := false
	for _, kw := range moneyKeywords {
		if strings.Contains(lower, kw) {
			money = true
			break
		}
	}

	switch x := v.(type) {
	case float64:
		if money {
			return currency(strconv.FormatFloat(x, 'f', 2, 64))
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return formatValue(column, float64(x))
	case int64:
		if money {
			return currency(strconv.FormatInt(x, 10) + ".00")
		}
		if x > 1000 || x < -1000 {
			return groupThousands(strconv.FormatInt(x, 10))
		}
		return strconv.FormatInt(x, 10)
	case int32:
		return formatValue(column, int64(x))
	case int:
		return formatValue(column, int64(x))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// currency prefixes a dollar sign, keeping any minus sign in front.
func currency(s string) string {
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return "-$" + groupThousands(rest)
	}
	return "$" + groupThousands(s)
}

// groupThousands inserts comma separators into a plain decimal string.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}
