package gateway

import "context"

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID       string
	Username     string
	Email        string
	SessionID    string
	SessionToken string
}

// CanActFor reports whether the caller may act on userID's resources.
func (i *Identity) CanActFor(userID string) bool {
	return i != nil && userID != "" && i.UserID == userID
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}
