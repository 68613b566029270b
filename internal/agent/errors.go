package agent

import "errors"

var (
	// ErrNilBackend is returned when the orchestrator is built without a chat backend.
	ErrNilBackend = errors.New("chat backend is nil")

	// ErrNilRegistry is returned when the orchestrator is built without a tool registry.
	ErrNilRegistry = errors.New("tool registry is nil")

	// ErrNilSessions is returned when the orchestrator is built without a session store.
	ErrNilSessions = errors.New("session store is nil")

	// ErrBackend wraps chat backend transport failures. These abort the
	// current turn; they are never retried here.
	ErrBackend = errors.New("chat backend failure")
)
