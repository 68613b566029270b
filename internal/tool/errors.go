package tool

import "errors"

var (
	// ErrInvalidSpec is returned when a tool spec is missing a name or handler.
	ErrInvalidSpec = errors.New("invalid tool spec")

	// ErrDuplicateTool is returned when registering a name that is already taken.
	ErrDuplicateTool = errors.New("duplicate tool")

	// ErrUnknownTool is returned when dispatching to a name that was never registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when arguments do not satisfy the tool's input schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)
