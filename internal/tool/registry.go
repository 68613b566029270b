package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// registered pairs a spec with its resolved schema, ready for validation.
type registered struct {
	spec     Spec
	resolved *jsonschema.Resolved
}

// Registry holds the fixed set of tools available to the orchestrator.
//
// Registration happens once at startup; lookups are read-only afterward.
// Specs() preserves registration order, which is stable across calls; the
// model can be sensitive to catalogue ordering.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]*registered
	logger *slog.Logger
}

// NewRegistry creates an empty tool registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byName: make(map[string]*registered),
		logger: logger,
	}
}

// Register adds a tool to the registry.
// Returns ErrDuplicateTool if the name is already taken, and fails eagerly
// if the input schema cannot be resolved.
func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSpec)
	}
	if spec.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidSpec, spec.Name)
	}

	var resolved *jsonschema.Resolved
	if spec.InputSchema != nil {
		var err error
		resolved, err = spec.InputSchema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolving schema for %s: %w", spec.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, spec.Name)
	}

	r.byName[spec.Name] = &registered{spec: spec, resolved: resolved}
	r.order = append(r.order, spec.Name)
	r.logger.Debug("registered tool", "name", spec.Name)
	return nil
}

// Specs returns all tool specs in registration order.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name].spec)
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Dispatch invokes the named tool with the given raw JSON arguments.
//
// A non-nil error is returned only for registry-level failures: unknown tool
// name (ErrUnknownTool) or arguments that violate the input schema
// (ErrInvalidArguments). Handler failures never surface as Go errors; they
// are wrapped into Result.Err so the agent loop can continue.
func (r *Registry) Dispatch(ctx context.Context, name string, args json.RawMessage) (Result, error) {
	r.mu.RLock()
	reg, ok := r.byName[name]
	r.mu.RUnlock()

	res := Result{ToolName: name, RawArguments: string(args)}

	if !ok {
		return res, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if reg.resolved != nil {
		var instance any
		payload := args
		if len(payload) == 0 {
			payload = json.RawMessage("{}")
		}
		if err := json.Unmarshal(payload, &instance); err != nil {
			return res, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
		}
		if err := reg.resolved.Validate(instance); err != nil {
			return res, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
		}
	}

	start := time.Now()
	output, err := reg.spec.Handler(ctx, args)
	res.Latency = time.Since(start)

	if err != nil {
		res.Err = err.Error()
		r.logger.Warn("tool failed", "name", name, "error", err, "latency", res.Latency)
		return res, nil
	}

	res.Output = output
	r.logger.Debug("tool succeeded", "name", name, "latency", res.Latency)
	return res, nil
}
