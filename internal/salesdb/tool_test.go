package salesdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesagent/internal/log"
)

// fakeGenerator replays scripted model responses in order.
type fakeGenerator struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (g *fakeGenerator) GenerateText(_ context.Context, system, user string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, system+"\n"+user)
	if g.err != nil {
		return "", g.err
	}
	if g.calls > len(g.responses) {
		return "", errors.New("generator script exhausted")
	}
	return g.responses[g.calls-1], nil
}

// fakeRunner maps statements to canned results and records what ran.
type fakeRunner struct {
	columns  []string
	rows     []map[string]any
	err      error
	executed []string
}

func (r *fakeRunner) Run(_ context.Context, sql string, _ ...any) ([]string, []map[string]any, error) {
	r.executed = append(r.executed, sql)
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.columns, r.rows, nil
}

// schemaRunner serves canned introspection results keyed by a statement
// fragment, so SchemaCache can be exercised without a database.
type schemaRunner struct {
	fakeRunner
	byFragment map[string]struct {
		columns []string
		rows    []map[string]any
	}
}

func (r *schemaRunner) Run(_ context.Context, sql string, _ ...any) ([]string, []map[string]any, error) {
	r.executed = append(r.executed, sql)
	for fragment, res := range r.byFragment {
		if strings.Contains(sql, fragment) {
			return res.columns, res.rows, nil
		}
	}
	return nil, nil, nil
}

func newTool(t *testing.T, gen Generator, run Runner) *Tool {
	t.Helper()
	tl, err := NewTool(gen, run, log.NewNop())
	require.NoError(t, err)
	// Preload the schema cache so tests drive only the tool pipeline.
	tl.schema.cached = "Table: sales\nColumns:\n  - total_amount (numeric)"
	return tl
}

func TestNewToolValidation(t *testing.T) {
	_, err := NewTool(nil, &fakeRunner{}, log.NewNop())
	assert.ErrorIs(t, err, ErrNilGenerator)

	_, err = NewTool(&fakeGenerator{}, nil, log.NewNop())
	assert.ErrorIs(t, err, ErrNilRunner)
}

func TestAnswerQ1Sales(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"SELECT SUM(total_amount) AS total_revenue FROM sales WHERE status = 'Completed' AND sale_date >= '2025-01-01' AND sale_date < '2025-04-01'",
	}}
	run := &fakeRunner{
		columns: []string{"total_revenue"},
		rows:    []map[string]any{{"total_revenue": 271680.50}},
	}
	tl := newTool(t, gen, run)

	out, err := tl.Answer(context.Background(), "What were Q1 sales?")
	require.NoError(t, err)
	assert.Contains(t, out, "$271,680.50")
	require.Len(t, run.executed, 1)
	assert.True(t, strings.HasPrefix(run.executed[0], "SELECT"))
}

func TestAnswerStripsFences(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"```sql\nSELECT company FROM customers;\n```",
	}}
	run := &fakeRunner{
		columns: []string{"company"},
		rows:    []map[string]any{{"company": "Acme Corp"}},
	}
	tl := newTool(t, gen, run)

	_, err := tl.Answer(context.Background(), "list customers")
	require.NoError(t, err)
	require.Len(t, run.executed, 1)
	assert.Equal(t, "SELECT company FROM customers", run.executed[0])
}

func TestAnswerRejectsMutatingSQL(t *testing.T) {
	statements := []string{
		"DROP TABLE sales",
		"DELETE FROM sales WHERE 1=1",
		"SELECT 1; DROP TABLE sales",
	}
	for _, stmt := range statements {
		t.Run(stmt, func(t *testing.T) {
			gen := &fakeGenerator{responses: []string{stmt}}
			run := &fakeRunner{}
			tl := newTool(t, gen, run)

			out, err := tl.Answer(context.Background(), "anything")
			if err == nil {
				// DROP and DELETE fail the SELECT-prefix check during
				// generation and come back as ERROR: text instead.
				assert.Contains(t, out, "ERROR:")
			} else {
				assert.ErrorIs(t, err, ErrUnsafeQuery)
			}
			assert.Empty(t, run.executed, "store must never see an unsafe statement")
		})
	}
}

func TestAnswerScopeError(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"SCOPE_ERROR: Sales goals and targets are not stored in this database.",
	}}
	run := &fakeRunner{}
	tl := newTool(t, gen, run)

	out, err := tl.Answer(context.Background(), "what is our Q1 goal?")
	require.NoError(t, err)
	assert.Contains(t, out, "requires data not in the sales database")
	assert.Contains(t, out, "Sales goals and targets are not stored")
	assert.Contains(t, out, "search_local_docs")
	assert.Empty(t, run.executed)
}

func TestAnswerGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model endpoint unreachable")}
	tl := newTool(t, gen, &fakeRunner{})

	_, err := tl.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating sql")
}

func TestAnswerEmptyResult(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"SELECT company FROM customers WHERE 1=0"}}
	run := &fakeRunner{columns: []string{"company"}}
	tl := newTool(t, gen, run)

	out, err := tl.Answer(context.Background(), "customers named Bob")
	require.NoError(t, err)
	assert.Contains(t, out, "returned no results")
	assert.Contains(t, out, "customers named Bob")
}

func TestAnswerRefinesFailedQuery(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"SELECT revnue FROM sales",
		"SELECT SUM(total_amount) AS revenue FROM sales WHERE status = 'Completed'",
	}}

	calls := 0
	run := &refiningRunner{fail: func() bool {
		calls++
		return calls == 1
	}}
	tl := newTool(t, gen, run)

	out, err := tl.Answer(context.Background(), "total revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "$271,680.50")
	assert.Equal(t, 2, gen.calls)
	require.Len(t, run.executed, 2)
}

// refiningRunner fails the first statement and answers the second.
type refiningRunner struct {
	fail     func() bool
	executed []string
}

func (r *refiningRunner) Run(_ context.Context, sql string, _ ...any) ([]string, []map[string]any, error) {
	r.executed = append(r.executed, sql)
	if r.fail() {
		return nil, nil, errors.New(`column "revnue" does not exist`)
	}
	return []string{"revenue"}, []map[string]any{{"revenue": 271680.50}}, nil
}

func TestAnswerRefinementStillFailing(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"SELECT revnue FROM sales",
		"SELECT revnue FROM sales",
	}}
	run := &fakeRunner{err: errors.New(`column "revnue" does not exist`)}
	tl := newTool(t, gen, run)

	out, err := tl.Answer(context.Background(), "total revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "Database error:")
	assert.Contains(t, out, "revnue")
	// identical refinement is discarded without a second execution
	require.Len(t, run.executed, 1)
}

func TestAnswerRefinementMustBeSafe(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"SELECT revnue FROM sales",
		"DROP TABLE sales",
	}}
	run := &fakeRunner{err: errors.New("syntax error")}
	tl := newTool(t, gen, run)

	out, err := tl.Answer(context.Background(), "total revenue")
	require.NoError(t, err)
	assert.Contains(t, out, "Database error:")
	require.Len(t, run.executed, 1, "unsafe refinement must not reach the store")
}

func TestSpec(t *testing.T) {
	tl := newTool(t, &fakeGenerator{}, &fakeRunner{})
	spec, err := tl.Spec()
	require.NoError(t, err)
	assert.Equal(t, ToolName, spec.Name)
	assert.Contains(t, spec.Description, "sales database")
	require.NotNil(t, spec.InputSchema)
	assert.NotNil(t, spec.Handler)
}

func TestHandleParsesArguments(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"SELECT 1 AS one"}}
	run := &fakeRunner{columns: []string{"one"}, rows: []map[string]any{{"one": int64(1)}}}
	tl := newTool(t, gen, run)

	out, err := tl.handle(context.Background(), json.RawMessage(`{"question":"anything"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "one: 1")

	_, err = tl.handle(context.Background(), json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestSchemaCache(t *testing.T) {
	run := &schemaRunner{byFragment: map[string]struct {
		columns []string
		rows    []map[string]any
	}{
		"information_schema.tables": {
			columns: []string{"table_name"},
			rows: []map[string]any{
				{"table_name": "sales"},
				{"table_name": "schema_migrations"},
				{"table_name": "documents"},
			},
		},
		"information_schema.columns": {
			columns: []string{"column_name", "data_type"},
			rows: []map[string]any{
				{"column_name": "sale_id", "data_type": "integer"},
				{"column_name": "total_amount", "data_type": "numeric"},
			},
		},
		"PRIMARY KEY": {
			columns: []string{"column_name"},
			rows:    []map[string]any{{"column_name": "sale_id"}},
		},
		"LIMIT 1": {
			columns: []string{"sale_id", "total_amount"},
			rows:    []map[string]any{{"sale_id": int64(1), "total_amount": 100000.00}},
		},
	}}

	cache := NewSchemaCache(run)
	schema, err := cache.Get(context.Background())
	require.NoError(t, err)

	assert.Contains(t, schema, "Table: sales")
	assert.Contains(t, schema, "sale_id (integer) [PRIMARY KEY]")
	assert.Contains(t, schema, "total_amount (numeric)")
	assert.Contains(t, schema, "Sample row:")
	assert.Contains(t, schema, "RELATIONSHIPS & QUERY PATTERNS")
	assert.NotContains(t, schema, "schema_migrations")
	assert.NotContains(t, schema, "Table: documents")

	// second Get is served from the cache
	before := len(run.executed)
	again, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schema, again)
	assert.Equal(t, before, len(run.executed))

	// invalidation forces a refetch
	cache.Invalidate()
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Greater(t, len(run.executed), before)
}
