package httpserver

import (
	"context"

	"github.com/dmitrijs2005/tokenauth/internal/server/services"
)

type ctxKey string

const (
	sessionKey   ctxKey = "session"
	requestIDKey ctxKey = "request_id"
)

func withSession(ctx context.Context, s *services.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the authenticated session, or nil for an anonymous
// request.
func SessionFrom(ctx context.Context) *services.Session {
	s, _ := ctx.Value(sessionKey).(*services.Session)
	return s
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
