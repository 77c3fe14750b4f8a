package obs

import "context"

type ctxKey int

const routePatternCtxKey ctxKey = iota

// WithRoutePattern records the matched chi pattern so logging, metrics and
// tracing label by route template rather than raw path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternCtxKey, pattern)
}

// RoutePattern returns the matched pattern, or "" before routing has run.
func RoutePattern(ctx context.Context) string {
	pattern, _ := ctx.Value(routePatternCtxKey).(string)
	return pattern
}
