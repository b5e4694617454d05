package partyline

import "context"

type busKey struct{}

type suppressKey struct{}

// NewContext returns a context carrying b, the way the dispatcher hands the
// shared bus to every mounted app.
func NewContext(ctx context.Context, b *Bus) context.Context {
	return context.WithValue(ctx, busKey{}, b)
}

// FromContext retrieves the bus from ctx, if present.
func FromContext(ctx context.Context) (*Bus, bool) {
	b, ok := ctx.Value(busKey{}).(*Bus)
	return b, ok && b != nil
}

// SuppressBroadcast marks ctx as running inside a bus-triggered call.
// Resolvers seeing it must not ask around again.
func SuppressBroadcast(ctx context.Context) context.Context {
	return context.WithValue(ctx, suppressKey{}, true)
}

// BroadcastSuppressed reports whether ctx came from SuppressBroadcast.
func BroadcastSuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(suppressKey{}).(bool)
	return v
}
