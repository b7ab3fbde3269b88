package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
	"github.com/rockfridrich/villa-sub000/pkg/slogx"
)

// TicketMiddleware authenticates requests carrying a session ticket as a
// bearer token. On success the ticket claims are injected into the request
// context; handlers still need to check that the path session matches the
// ticket's SID.
func TicketMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer ticket")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				writeBearerError(w, "ticket verification failed")
				log.Warn("ticket verify failed", "err", err)
				return
			}

			ctx = contextWithTicket(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithTicket(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeySessionID, c.SID)
	ctx = context.WithValue(ctx, CtxKeyAppID, c.AppID)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
