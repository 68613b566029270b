package salesdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// internalTables are excluded from the model-facing schema snapshot.
// The migration bookkeeping table and the knowledge store live in the same
// database but are not sales data.
var internalTables = map[string]bool{
	"schema_migrations": true,
	"documents":         true,
}

// SchemaCache holds one snapshot of the sales schema, fetched on first use
// and shared read-only afterward. Staleness is accepted: the snapshot is
// only refreshed on explicit Invalidate, under the assumption of a static
// local schema.
type SchemaCache struct {
	runner Runner

	mu     sync.Mutex
	cached string
}

// NewSchemaCache builds an empty cache over the given runner.
func NewSchemaCache(runner Runner) *SchemaCache {
	return &SchemaCache{runner: runner}
}

// Get returns the cached schema text, fetching it on first call.
func (c *SchemaCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != "" {
		return c.cached, nil
	}
	schema, err := c.build(ctx)
	if err != nil {
		return "", err
	}
	c.cached = schema
	return schema, nil
}

// Invalidate drops the snapshot; the next Get fetches a fresh one.
func (c *SchemaCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = ""
}

func (c *SchemaCache) build(ctx context.Context) (string, error) {
	_, tableRows, err := c.runner.Run(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return "", fmt.Errorf("listing tables: %w", err)
	}

	var b strings.Builder
	for _, tr := range tableRows {
		table, _ := tr["table_name"].(string)
		if table == "" || internalTables[table] {
			continue
		}
		if err := c.describeTable(ctx, &b, table); err != nil {
			return "", err
		}
	}
	b.WriteString(queryGuidelines)
	return b.String(), nil
}

func (c *SchemaCache) describeTable(ctx context.Context, b *strings.Builder, table string) error {
	_, colRows, err := c.runner.Run(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return fmt.Errorf("describing %s: %w", table, err)
	}

	_, pkRows, err := c.runner.Run(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1`, table)
	if err != nil {
		return fmt.Errorf("primary keys of %s: %w", table, err)
	}
	primary := make(map[string]bool, len(pkRows))
	for _, r := range pkRows {
		if name, ok := r["column_name"].(string); ok {
			primary[name] = true
		}
	}

	fmt.Fprintf(b, "\nTable: %s\n", table)
	b.WriteString("Columns:\n")
	var cols []string
	for _, r := range colRows {
		name, _ := r["column_name"].(string)
		typ, _ := r["data_type"].(string)
		marker := ""
		if primary[name] {
			marker = " [PRIMARY KEY]"
		}
		fmt.Fprintf(b, "  - %s (%s)%s\n", name, typ, marker)
		cols = append(cols, name)
	}

	// One sample row anchors the model's sense of the actual values.
	_, sample, err := c.runner.Run(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", quoteIdent(table)))
	if err != nil {
		return fmt.Errorf("sampling %s: %w", table, err)
	}
	if len(sample) > 0 {
		b.WriteString("Sample row:\n")
		shown := 0
		for _, col := range cols {
			if shown == 6 {
				break
			}
			if v, ok := sample[0][col]; ok {
				fmt.Fprintf(b, "  %s: %v\n", col, v)
				shown++
			}
		}
	}
	return nil
}

// queryGuidelines is appended to every schema snapshot. It encodes the
// relationships and conventions the SQL generator keeps getting wrong
// without explicit guidance.
const queryGuidelines = `
RELATIONSHIPS & QUERY PATTERNS

Key Foreign Key Relationships:
- customers.region_id -> regions.region_id
- sales.customer_id -> customers.customer_id
- sales_items.sale_id -> sales.sale_id
- sales_items.product_id -> products.product_id

Critical SQL Rules:
1. ALWAYS filter by status = 'Completed' when calculating revenue/totals
2. Use sales.total_amount for aggregate revenue (it is pre-calculated with discounts)
3. For product-level detail, join through sales_items
4. ALWAYS use explicit JOINs, never implicit joins
5. Use table aliases for readability

Date/Time Patterns (PostgreSQL):
- Month grouping: to_char(sale_date, 'YYYY-MM')
- Year grouping: to_char(sale_date, 'YYYY')
- Last quarter: sale_date >= CURRENT_DATE - INTERVAL '3 months'
- Last year: sale_date >= CURRENT_DATE - INTERVAL '1 year'
- This year: date_part('year', sale_date) = date_part('year', CURRENT_DATE)
- Last 30 days: sale_date >= CURRENT_DATE - INTERVAL '30 days'

Common Query Templates:

1. Total Revenue (Simple):
   SELECT SUM(total_amount) AS total_revenue
   FROM sales
   WHERE status = 'Completed'

2. Top Customers:
   SELECT c.company, SUM(s.total_amount) AS total_revenue
   FROM sales s
   JOIN customers c ON s.customer_id = c.customer_id
   WHERE s.status = 'Completed'
   GROUP BY c.company
   ORDER BY total_revenue DESC
   LIMIT 10

3. Product Performance:
   SELECT p.product_name,
          SUM(si.quantity) AS units_sold,
          SUM(si.quantity * si.unit_price * (1 - si.discount)) AS revenue
   FROM sales_items si
   JOIN products p ON si.product_id = p.product_id
   JOIN sales s ON si.sale_id = s.sale_id
   WHERE s.status = 'Completed'
   GROUP BY p.product_name
   ORDER BY revenue DESC

4. Monthly Trend:
   SELECT to_char(sale_date, 'YYYY-MM') AS month,
          SUM(total_amount) AS revenue
   FROM sales
   WHERE status = 'Completed'
   GROUP BY month
   ORDER BY month

5. Regional Analysis:
   SELECT r.region_name,
          COUNT(DISTINCT c.customer_id) AS customer_count,
          SUM(s.total_amount) AS total_revenue
   FROM sales s
   JOIN customers c ON s.customer_id = c.customer_id
   JOIN regions r ON c.region_id = r.region_id
   WHERE s.status = 'Completed'
   GROUP BY r.region_name

Customer Name Convention:
- customers.company = Business/organization name (use for "top customers", "best customers")
- customers.customer_name = Contact person name (use only for "contact name", "point of contact")

LIMIT Guidelines:
- DO NOT use LIMIT for: totals, averages, aggregations, time series, grouped data
- DO use LIMIT for: top N lists, recent transactions, sample data
`
