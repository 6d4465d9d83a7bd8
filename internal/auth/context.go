package auth

import "context"

type contextKey struct{}

// AuthContext carries the authenticated user and the active household for one
// request. It is established once by the auth middleware and read-only after
// that; every request gets its own instance.
type AuthContext struct {
	UserID      int64
	HouseholdID int64
	Role        Role
	SessionID   int64
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func HouseholdID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.HouseholdID
}

func UserID(ctx context.Context) int64 {
	ac, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return ac.UserID
}

// Can reports whether the request's role grants the capability. A missing
// context grants nothing.
func Can(ctx context.Context, c Capability) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role.Can(c)
}
