package auth

import "context"

type contextKey struct{}

// Session identifies the authenticated visitor for the lifetime of a request.
type Session struct {
	Email string
	Admin bool
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

func Email(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.Email
}

func IsAdmin(ctx context.Context) bool {
	s, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return s.Admin
}
