package dcontext

import "context"

// DetachedContext returns a context that won't be canceled when the parent
// context is canceled. Sync uses it so a label already mid-copy finishes
// blob-then-log even after an errgroup sibling's failure cancels the
// parent, rather than leaving a revision log without the payloads it
// names.
//
// The detached context preserves all values from the parent context
// (logger, etc.) but removes cancellation/deadline behavior.
func DetachedContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
