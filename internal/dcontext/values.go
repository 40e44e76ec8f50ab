package dcontext

import "context"

// WithValues returns a context carrying the given key/value pairs under
// their own raw keys, so they're retrievable both via Value and via
// GetLogger's keys argument (which resolves each key with a plain
// ctx.Value(key) lookup). sync uses this to thread a collection label
// through a pull's call chain for logging without growing every
// function signature.
func WithValues(ctx context.Context, values map[any]any) context.Context {
	for k, v := range values {
		ctx = context.WithValue(ctx, k, v)
	}
	return ctx
}

// Value retrieves a key set by WithValues.
func Value(ctx context.Context, key any) any {
	return ctx.Value(key)
}
