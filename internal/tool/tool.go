// Package tool provides the registry of callable capabilities exposed to the
// model.
//
// Tools are registered once at startup; the registry is immutable afterward.
// Each tool declares a name, a natural-language description the model reads,
// and a JSON schema for its arguments. Dispatch validates arguments against
// the schema before invoking the handler, and converts handler failures into
// result text so a failing tool never aborts the agent loop.
package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// Handler executes a tool with the model-supplied raw JSON arguments and
// returns the text fed back to the model.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Spec is the static descriptor of one tool.
type Spec struct {
	// Name uniquely identifies the tool for the process lifetime.
	Name string

	// Description is shown to the model verbatim; it drives tool selection.
	Description string

	// InputSchema describes the argument object. Built with
	// jsonschema.For[Input]() over a tagged input struct.
	InputSchema *jsonschema.Schema

	// Handler is the callable capability.
	Handler Handler
}

// Result captures the outcome of one tool invocation.
// Exactly one of Output and Err is meaningful. Results are never persisted
// beyond the owning session's lifetime.
type Result struct {
	ToolName     string
	RawArguments string
	Output       string
	Err          string
	Latency      time.Duration
}

// Text returns the string appended to the conversation: the handler output
// on success, or an error description the model can react to.
func (r Result) Text() string {
	if r.Err != "" {
		return "Error: " + r.Err
	}
	return r.Output
}

// Failed reports whether the invocation produced an error.
func (r Result) Failed() bool {
	return r.Err != ""
}
