package reqlog

import (
	"context"

	"go.uber.org/atomic"
)

// RequestContext is a snapshot of the identifiers bound to a request.
type RequestContext struct {
	CorrelationID string `json:"correlationId"`
	UserID        string `json:"userId,omitempty"`
}

type scopeKey struct{}

// scope is shared by every context derived from the one it was bound to.
type scope struct {
	correlationID string
	userID        atomic.String
}

// WithCorrelationID binds a new request scope carrying id to ctx. Work
// started with the returned context, or any context derived from it, sees
// the same scope; contexts of other requests are unaffected.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, &scope{correlationID: id})
}

func scopeFrom(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*scope)
	return s
}

// CorrelationID returns the correlation id bound to ctx, or "".
func CorrelationID(ctx context.Context) string {
	if s := scopeFrom(ctx); s != nil {
		return s.correlationID
	}
	return ""
}

// UserID returns the user id recorded for the request bound to ctx, or "".
func UserID(ctx context.Context) string {
	if s := scopeFrom(ctx); s != nil {
		return s.userID.Load()
	}
	return ""
}

// SetUserID records the authenticated user for the request bound to ctx. It
// is visible to every holder of the request's context. Without a bound
// request it does nothing.
func SetUserID(ctx context.Context, userID string) {
	if s := scopeFrom(ctx); s != nil {
		s.userID.Store(userID)
	}
}

// GetRequestContext returns the identifiers bound to ctx. The boolean is
// false when no request is bound.
func GetRequestContext(ctx context.Context) (RequestContext, bool) {
	s := scopeFrom(ctx)
	if s == nil {
		return RequestContext{}, false
	}
	return RequestContext{CorrelationID: s.correlationID, UserID: s.userID.Load()}, true
}

// Detach returns a context that keeps the request scope of ctx but is never
// canceled, for background work that outlives the request.
func Detach(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
