package obs

import "context"

type routePatternKey struct{}

// WithRoutePattern stores the matched router pattern on the context so the
// metrics and logging middleware agree on route labels.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the stored route pattern, or "" when the
// request never matched a route.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if pattern, ok := ctx.Value(routePatternKey{}).(string); ok {
		return pattern
	}
	return ""
}
