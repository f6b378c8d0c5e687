package auth

import "context"

type contextKey struct{}

// AuthContext identifies the parent session behind a request.
type AuthContext struct {
	SessionID int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// IsParent reports whether the request carries a valid parent session.
func IsParent(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}
