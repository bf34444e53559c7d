package domain

import "context"

// Principal is the authenticated identity a credential or token resolves to.
type Principal struct {
	ID    int64
	Name  string
	Email string
}

// Session couples a principal with the token record that authenticated it.
// Logout and refresh act on Token.
type Session struct {
	Principal *Principal
	Token     *Token
}

type sessionKey struct{}

// WithSession stores the resolved session in the context.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// SessionFromContext retrieves the session stored by WithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*Session)
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}
