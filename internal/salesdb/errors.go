package salesdb

import "errors"

var (
	// ErrUnsafeQuery means the generated SQL contained a denylisted keyword
	// or was not a single SELECT statement. The query is never executed.
	ErrUnsafeQuery = errors.New("unsafe query rejected")

	// ErrNilGenerator is returned when the tool is built without a SQL generator.
	ErrNilGenerator = errors.New("sql generator is nil")

	// ErrNilRunner is returned when the tool is built without a query runner.
	ErrNilRunner = errors.New("query runner is nil")
)
