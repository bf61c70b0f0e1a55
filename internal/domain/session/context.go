package session

import "context"

type (
	idKey      struct{}
	sessionKey struct{}
	rebindKey  struct{}
)

// WithID stores the storefront session id on the request context so that
// per-session adapters (token store, state store) can find it.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok && id != ""
}

// WithSession stores the loaded session alongside its id.
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey{}, s)
	if s != nil {
		ctx = WithID(ctx, s.ID)
	}
	return ctx
}

// FromContext returns the request's session, or an anonymous one when the
// request carries none.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s != nil {
		return s
	}
	id, _ := IDFromContext(ctx)
	return &Session{ID: id}
}

// WithRebind registers how the transport hands a replacement session id to
// the client, e.g. by re-issuing the cookie.
func WithRebind(ctx context.Context, fn func(newID string)) context.Context {
	return context.WithValue(ctx, rebindKey{}, fn)
}

func CanRebind(ctx context.Context) bool {
	fn, ok := ctx.Value(rebindKey{}).(func(string))
	return ok && fn != nil
}

// Rebind tells the client to use newID from now on. It is a no-op when the
// request has no way to do so.
func Rebind(ctx context.Context, newID string) {
	if fn, ok := ctx.Value(rebindKey{}).(func(string)); ok && fn != nil {
		fn(newID)
	}
}
