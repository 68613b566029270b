package salesdb

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderResultsSingleAggregate(t *testing.T) {
	out := renderResults(
		[]string{"total_revenue"},
		[]map[string]any{{"total_revenue": 271680.50}},
	)
	assert.Contains(t, out, "Query Result:")
	assert.Contains(t, out, "total_revenue: $271,680.50")
}

func TestRenderResultsMultipleRows(t *testing.T) {
	columns := []string{"company", "revenue"}
	rows := []map[string]any{
		{"company": "Acme Corp", "revenue": 100000.00},
		{"company": "Globex", "revenue": 150000.00},
		{"company": "Initech", "revenue": 21680.50},
	}

	out := renderResults(columns, rows)
	assert.Contains(t, out, "Query returned 3 row(s):")
	assert.Contains(t, out, "[1] company: Acme Corp | revenue: $100,000.00")
	assert.Contains(t, out, "[3] company: Initech | revenue: $21,680.50")
	assert.Contains(t, out, "Total rows: 3")
	assert.Contains(t, out, "Columns: company, revenue")
	assert.Contains(t, out, "could be visualized with create_chart")
}

func TestRenderResultsRowCap(t *testing.T) {
	columns := []string{"sale_id", "region", "units"}
	rows := make([]map[string]any, 14)
	for i := range rows {
		rows[i] = map[string]any{"sale_id": int64(i + 1), "region": "EU", "units": int64(5)}
	}

	out := renderResults(columns, rows)
	assert.Contains(t, out, "[10]")
	assert.NotContains(t, out, "[11]")
	assert.Contains(t, out, "... and 4 more rows")
	// three columns: no chart hint
	assert.NotContains(t, out, "create_chart")
}

func TestRenderResultsEmpty(t *testing.T) {
	assert.Equal(t, "No results", renderResults([]string{"x"}, nil))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name   string
		column string
		value  any
		want   string
	}{
		{"nil", "anything", nil, "N/A"},
		{"money float", "total_amount", 271680.5, "$271,680.50"},
		{"money int", "revenue", int64(50000), "$50,000.00"},
		{"negative money", "cost", -1234.5, "-$1,234.50"},
		{"plain float", "discount", 0.15, "0.15"},
		{"large int", "units", int64(12500), "12,500"},
		{"small int", "units", int64(42), "42"},
		{"string", "company", "Acme Corp", "Acme Corp"},
		{"sales keyword", "q1_sales", 1000.0, "$1,000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatValue(tt.column, tt.value))
		})
	}
}

func TestGroupThousands(t *testing.T) {
	tests := []struct{ in, want string }{
		{"1", "1"},
		{"999", "999"},
		{"1000", "1,000"},
		{"271680.50", "271,680.50"},
		{"1234567.89", "1,234,567.89"},
		{"-4500", "-4,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, groupThousands(tt.in), tt.in)
	}
}

func TestRenderPreservesColumnOrder(t *testing.T) {
	columns := []string{"month", "revenue"}
	rows := []map[string]any{{"revenue": 10.0, "month": "2025-01"}}
	out := renderResults(columns, rows)
	monthIdx := strings.Index(out, "month")
	revIdx := strings.Index(out, "revenue")
	assert.Less(t, monthIdx, revIdx)
}
