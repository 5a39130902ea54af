package sessions

import "context"

type contextKey struct{}

// ContextWithID returns a copy of ctx carrying the browser's session id.
func ContextWithID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextKey{}, sessionID)
}

// IDFromContext returns the session id stored by ContextWithID, or "".
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
