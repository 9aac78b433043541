package common

import "context"

type ctxKey string

const identityKey ctxKey = "auth/email"

// WithIdentity stores the authenticated caller's email on the provided context.
func WithIdentity(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, identityKey, email)
}

// Identity extracts the authenticated caller's email from the context if present.
func Identity(ctx context.Context) (string, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
