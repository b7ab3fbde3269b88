package http

import (
	"net/http"

	"github.com/rockfridrich/villa-sub000/pkg/httpx"
	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
)

// JWKSHandler exposes the ticket verification keys for public discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify session tickets.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	jwtx.JWKS	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.PublicJWKS())
	}
}
