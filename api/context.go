package api

import (
	"context"

	"github.com/projectshelf/backend/errs"
	"github.com/projectshelf/backend/identity"
)

type keyType string

const sessionKey keyType = "session"

// ctxWithSession adds the caller's resolved session to the context
func ctxWithSession(ctx context.Context, sess identity.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// ctxGetSession returns the session attached by the auth middleware, or nil for
// anonymous requests.
func ctxGetSession(ctx context.Context) *identity.Session {
	sess, ok := ctx.Value(sessionKey).(identity.Session)
	if !ok {
		return nil
	}
	return &sess
}

// ctxMustSession is used behind authenticate, where a missing session is a wiring bug.
func ctxMustSession(ctx context.Context) (identity.Session, error) {
	sess := ctxGetSession(ctx)
	if sess == nil {
		return identity.Session{}, errs.NewMissingTokenError()
	}
	return *sess, nil
}
