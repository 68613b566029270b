package salesdb

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Runner executes one read-only statement and returns the result as column
// names plus rows of plain Go values. Consumers depend on this interface so
// the tool logic can be tested without a live database.
type Runner interface {
	Run(ctx context.Context, sql string, args ...any) (columns []string, rows []map[string]any, err error)
}

// PoolRunner runs statements on a pgx connection pool.
type PoolRunner struct {
	pool *pgxpool.Pool
}

// NewPoolRunner wraps a pool.
func NewPoolRunner(pool *pgxpool.Pool) *PoolRunner {
	return &PoolRunner{pool: pool}
}

// Run executes sql and materializes every row. Values are normalized to
// plain Go types so rendering does not need to know about pgtype.
func (r *PoolRunner) Run(ctx context.Context, sql string, args ...any) ([]string, []map[string]any, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, nil, fmt.Errorf("reading row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating rows: %w", err)
	}
	return columns, out, nil
}

// normalizeValue flattens pgx driver values into the small set of types the
// renderer understands.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return numericString(x)
		}
		return f.Float64
	case time.Time:
		return x.Format("2006-01-02")
	case [16]byte:
		return fmt.Sprintf("%x", x)
	default:
		return v
	}
}

// numericString renders a pgtype.Numeric exactly, scaling the mantissa
// by the decimal exponent. Used when the value does not fit a float64.
func numericString(n pgtype.Numeric) string {
	if !n.Valid {
		return "N/A"
	}
	if n.NaN {
		return "NaN"
	}
	if n.Int == nil {
		return "N/A"
	}
	digits := new(big.Int).Abs(n.Int).String()
	sign := ""
	if n.Int.Sign() < 0 {
		sign = "-"
	}
	switch {
	case n.Exp > 0:
		return sign + digits + strings.Repeat("0", int(n.Exp))
	case n.Exp < 0:
		frac := int(-n.Exp)
		if frac >= len(digits) {
			return sign + "0." + strings.Repeat("0", frac-len(digits)) + digits
		}
		return sign + digits[:len(digits)-frac] + "." + digits[len(digits)-frac:]
	default:
		return sign + digits
	}
}

// quoteIdent makes a table name safe for interpolation into introspection
// statements where placeholders cannot be used.
func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
