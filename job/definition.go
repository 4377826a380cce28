package job

import "context"

// Definition is a typed job definition with a handler function.
// T is the payload type (must be JSON-serializable).
type Definition[T any] struct {
	// Type is the job type this definition handles.
	Type Type

	// Handler is the function that processes the job payload.
	Handler func(ctx context.Context, payload T) error
}

// NewDefinition creates a typed job definition.
func NewDefinition[T any](t Type, handler func(ctx context.Context, payload T) error) *Definition[T] {
	return &Definition[T]{
		Type:    t,
		Handler: handler,
	}
}
