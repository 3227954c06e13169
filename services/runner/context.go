package runner

import "context"

type runIDKey struct{}

// WithRunID attaches the id a run is known by. Runner.Run assigns one when
// the context carries none.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the id of the run ctx belongs to, or "".
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok {
		return id
	}
	return ""
}
