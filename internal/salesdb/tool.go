// Package salesdb implements the text-to-SQL tool over the sales database.
//
// The tool turns a natural-language question into a single SELECT statement
// through a nested model call, gates the statement through a denylist
// check, executes it read-only, and renders the rows as compact text for
// the orchestrating model. A failed execution gets one refinement attempt
// before the error is reported back as tool output.
package salesdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"salesagent/internal/tool"
)

// ToolName is the registry name of the SQL tool.
const ToolName = "query_sales_database"

const toolDescription = `Query the company sales database for business intelligence using natural language.

Use for questions about:
- Sales performance, revenue, trends
- Customer data, orders, purchasing patterns
- Product performance, bestsellers
- Regional performance
- Time-based analysis (monthly, quarterly, YTD)

This tool CANNOT answer questions about:
- Goals, targets, quotas (use search_local_docs instead)
- Strategies, plans, objectives (use search_local_docs instead)
- Future projections or forecasts (use search_local_docs for planning docs)

Examples:
- "What were total sales last quarter?"
- "Who are our top 5 customers by revenue?"
- "Which products sell best in Europe?"
- "Show me monthly revenue trend for 2024"`

// Generator issues the nested model call that turns a question into SQL.
type Generator interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// queryArgs is the tool's input payload.
type queryArgs struct {
	Question string `json:"question" jsonschema:"natural language question about sales data"`
}

// Tool is the query_sales_database implementation.
type Tool struct {
	generator Generator
	runner    Runner
	schema    *SchemaCache
	logger    *slog.Logger
}

// NewTool wires the SQL tool.
func NewTool(generator Generator, runner Runner, logger *slog.Logger) (*Tool, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if runner == nil {
		return nil, ErrNilRunner
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{
		generator: generator,
		runner:    runner,
		schema:    NewSchemaCache(runner),
		logger:    logger,
	}, nil
}

// Schema returns the tool's schema cache, for explicit invalidation.
func (t *Tool) Schema() *SchemaCache {
	return t.schema
}

// Spec returns the registry descriptor.
func (t *Tool) Spec() (tool.Spec, error) {
	schema, err := jsonschema.For[queryArgs](nil)
	if err != nil {
		return tool.Spec{}, fmt.Errorf("building schema: %w", err)
	}
	return tool.Spec{
		Name:        ToolName,
		Description: toolDescription,
		InputSchema: schema,
		Handler:     t.handle,
	}, nil
}

func (t *Tool) handle(ctx context.Context, args json.RawMessage) (string, error) {
	var a queryArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", fmt.Errorf("parsing arguments: %w", err)
	}
	return t.Answer(ctx, a.Question)
}

// Answer runs the full question-to-text pipeline.
//
// Scope errors, generation errors and execution errors all come back as
// ordinary output text so the orchestrating model can react to them; only
// an unsafe statement is returned as a Go error, and it is never executed.
func (t *Tool) Answer(ctx context.Context, question string) (string, error) {
	schema, err := t.schema.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("loading schema: %w", err)
	}

	sql, err := t.generate(ctx, question, schema)
	if err != nil {
		return "", err
	}

	if msg, ok := strings.CutPrefix(sql, "SCOPE_ERROR:"); ok {
		return fmt.Sprintf(
			"This question requires data not in the sales database.\n\n%s\n\nTry using search_local_docs to find this information in company documents.",
			strings.TrimSpace(msg)), nil
	}
	if strings.HasPrefix(sql, "ERROR:") {
		return sql, nil
	}

	if err := validateSQL(sql); err != nil {
		t.logger.Warn("rejected generated sql", "error", err, "sql", sql)
		return "", err
	}

	t.logger.Debug("executing generated sql", "sql", sql)
	columns, rows, execErr := t.runner.Run(ctx, sql)
	if execErr != nil {
		columns, rows, err = t.retryRefined(ctx, question, sql, execErr, schema)
		if err != nil {
			return fmt.Sprintf(
				"Database error: %v\n\nThe generated SQL may be invalid. Try rephrasing your question or check if the data exists in the database.",
				execErr), nil
		}
	}

	if len(rows) == 0 {
		return fmt.Sprintf(
			"Query executed successfully but returned no results.\n\nQuestion: %s\n\nThis might mean:\n- No data matches the criteria\n- The date range is outside available data\n- The filter conditions are too restrictive",
			question), nil
	}
	return renderResults(columns, rows), nil
}

// generate produces a cleaned SQL statement, a SCOPE_ERROR: line, or an
// ERROR: line, mirroring the generation contract in sqlSystemPrompt.
func (t *Tool) generate(ctx context.Context, question, schema string) (string, error) {
	user := fmt.Sprintf("DATABASE SCHEMA:\n%s\n\nUSER QUESTION: %s\n\nGenerate the SQL query:", schema, question)
	raw, err := t.generator.GenerateText(ctx, sqlSystemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("generating sql: %w", err)
	}

	sql := cleanGeneratedSQL(raw)
	if strings.HasPrefix(sql, "SCOPE_ERROR:") || strings.HasPrefix(sql, "ERROR:") {
		return sql, nil
	}
	upper := strings.ToUpper(sql)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return "ERROR: Generated query must be a SELECT statement", nil
	}
	return sql, nil
}

// retryRefined gives the model one shot at fixing a statement the store
// rejected. The refined statement goes through the same safety gate; a
// refinement identical to the original is treated as failure.
func (t *Tool) retryRefined(ctx context.Context, question, failedSQL string, execErr error, schema string) ([]string, []map[string]any, error) {
	prompt := fmt.Sprintf(`The following SQL query failed with an error. Generate a corrected version.

ORIGINAL QUESTION: %s

FAILED SQL QUERY:
%s

ERROR MESSAGE:
%v

SCHEMA:
%s

Common issues and fixes:
- Column doesn't exist -> Check schema for correct column names
- Ambiguous column -> Add table aliases
- Syntax error -> Check JOIN syntax, WHERE clause placement
- Type mismatch -> Ensure proper type conversions

Generate the CORRECTED SQL query (no explanations, just the query):`, question, failedSQL, execErr, schema)

	raw, err := t.generator.GenerateText(ctx, "", prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("refining sql: %w", err)
	}

	refined := cleanGeneratedSQL(raw)
	if refined == "" || strings.HasPrefix(refined, "ERROR:") ||
		strings.EqualFold(refined, failedSQL) {
		return nil, nil, fmt.Errorf("refinement produced no usable query")
	}
	if err := validateSQL(refined); err != nil {
		return nil, nil, err
	}

	t.logger.Debug("executing refined sql", "sql", refined)
	return t.runner.Run(ctx, refined)
}

// sqlSystemPrompt drives the nested generation call. The SCOPE_ERROR:
// contract lets the model report out-of-scope questions without producing
// SQL at all.
const sqlSystemPrompt = `You are an expert SQL query generator for a sales analytics database.

Your ONLY job is to convert natural language questions into valid PostgreSQL queries.

CRITICAL RULES:
1. Return ONLY the SQL query - no markdown, no explanations, no code blocks
2. Generate exactly ONE query
3. Do NOT add semicolons at the end
4. Use explicit JOINs only
5. ALWAYS filter by status = 'Completed' when calculating revenue/metrics
6. Use appropriate aggregations (SUM, COUNT, AVG)
7. Use meaningful aliases for readability

SCOPE CHECKING:
If the question asks for data NOT in the schema below, respond with:
SCOPE_ERROR: [explain what data is missing and suggest alternative]

Examples of out-of-scope questions:
- "sales goals", "targets", "quotas" -> SCOPE_ERROR: Sales goals and targets are not stored in this database. These are typically found in strategic planning documents.
- "customer satisfaction" -> SCOPE_ERROR: Customer satisfaction scores are not tracked in this database.
- "future projections" -> SCOPE_ERROR: This database contains historical data only, not forecasts.

LIMIT USAGE:
- DO NOT use LIMIT for: aggregations, totals, trends, time series, grouped data
- DO use LIMIT for: top N lists, recent individual records, sample data`
