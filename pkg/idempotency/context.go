package idempotency

import "context"

type contextKey struct{}

// WithKey returns a copy of ctx carrying key.
func WithKey(ctx context.Context, key Key) context.Context {
	return context.WithValue(ctx, contextKey{}, key)
}

// FromContext returns the key stored by WithKey.
func FromContext(ctx context.Context) (Key, bool) {
	key, ok := ctx.Value(contextKey{}).(Key)

	return key, ok && key != ""
}
