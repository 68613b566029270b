package salesdb

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
)

func num(mantissa int64, exp int32) pgtype.Numeric {
	return pgtype.Numeric{Int: big.NewInt(mantissa), Exp: exp, Valid: true}
}

func TestNumericString(t *testing.T) {
	tests := []struct {
		name string
		in   pgtype.Numeric
		want string
	}{
		{"integer", num(42, 0), "42"},
		{"scaled cents", num(27168050, -2), "271680.50"},
		{"negative cents", num(-27168050, -2), "-271680.50"},
		{"positive exponent", num(5, 3), "5000"},
		{"sub one", num(5, -4), "0.0005"},
		{"negative sub one", num(-5, -4), "-0.0005"},
		{"exponent equals digits", num(75, -2), "0.75"},
		{"null", pgtype.Numeric{}, "N/A"},
		{"nan", pgtype.Numeric{NaN: true, Valid: true}, "NaN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numericString(tt.in))
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	t.Run("numeric becomes float64", func(t *testing.T) {
		assert.Equal(t, 271680.5, normalizeValue(num(27168050, -2)))
	})

	t.Run("time formats as date", func(t *testing.T) {
		ts := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
		assert.Equal(t, "2025-03-10", normalizeValue(ts))
	})

	t.Run("other values pass through", func(t *testing.T) {
		assert.Equal(t, "Completed", normalizeValue("Completed"))
		assert.Equal(t, int64(12), normalizeValue(int64(12)))
	})
}
