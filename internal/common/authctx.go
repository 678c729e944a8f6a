package common

import "context"

type ctxKey string

const (
	userIDKey ctxKey = "auth/user-id"
	tokenKey  ctxKey = "auth/bearer-token"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithBearerToken keeps the caller's raw access token so outbound calls to the
// backend can be made on the cashier's behalf.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// BearerToken returns the token stored by WithBearerToken.
func BearerToken(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
