package httpx

import "context"

type ctxKey string

const (
	CtxKeySessionID ctxKey = "session_id"
	CtxKeyAppID     ctxKey = "app_id"
	CtxKeyClaims    ctxKey = "claims" // full jwtx.Claims
)

// SessionIDFromCtx returns the ticket-authenticated session ID, or "".
func SessionIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySessionID).(string); ok {
		return v
	}
	return ""
}

// AppIDFromCtx returns the ticket-authenticated application ID, or "".
func AppIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyAppID).(string); ok {
		return v
	}
	return ""
}
