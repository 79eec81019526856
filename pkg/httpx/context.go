package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUsername carries the authenticated username resolved by
	// AuthnMiddleware.
	CtxKeyUsername ctxKey = "username"
)

// UsernameFromCtx returns the authenticated username, or "" when the request
// did not pass through AuthnMiddleware.
func UsernameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUsername).(string); ok {
		return v
	}
	return ""
}
