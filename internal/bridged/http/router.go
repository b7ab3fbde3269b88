package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rockfridrich/villa-sub000/internal/bridged/service"
	"github.com/rockfridrich/villa-sub000/internal/bridged/store"
	"github.com/rockfridrich/villa-sub000/pkg/httpx"
	"github.com/rockfridrich/villa-sub000/pkg/jwtx"
	"github.com/rockfridrich/villa-sub000/pkg/slogx"

	_ "github.com/rockfridrich/villa-sub000/api/bridged" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	SessionService *service.SessionService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerModal()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Villa Bridge Relay API
//	@version		0.1.0
//	@description	Relay service for the Villa cross-origin authentication bridge. A host
//	@description	page starts a session here, the modal shell streams frame commands over
//	@description	SSE and forwards window messages back with a session-bound ticket.
//
//	@contact.name				Villa Team
//	@contact.url				https://github.com/rockfridrich/villa-sub000
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	TicketAuth
//	@in							header
//	@name						Authorization
//	@description				Session ticket. Format: "Bearer {ticket}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{
		SessionService: r.SessionService,
		Logger:         r.logger,
	}

	// POST /v1/sessions - strict rate limit by IP (session creation)
	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /v1/sessions/{id}/events - SSE; ticket arrives as a query
	// parameter because EventSource cannot set headers.
	r.Mux.Handle("GET /v1/sessions/{id}/events",
		httpx.Chain(http.HandlerFunc(h.HandleEvents),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// POST /v1/sessions/{id}/messages - ticket required, ingest rate limit
	// keyed by session so one noisy shell cannot starve another.
	r.Mux.Handle("POST /v1/sessions/{id}/messages",
		httpx.Chain(http.HandlerFunc(h.HandleMessage),
			httpx.TicketMiddleware(r.verifier),
			httpx.RateLimitBySession(httpx.IngestLimit),
		),
	)

	// POST /v1/sessions/{id}/close - ticket required, idempotent
	r.Mux.Handle("POST /v1/sessions/{id}/close",
		httpx.Chain(http.HandlerFunc(h.HandleClose),
			httpx.TicketMiddleware(r.verifier),
			httpx.RateLimitBySession(httpx.IngestLimit),
		),
	)

	// GET /.well-known/jwks.json - ticket verification keys for anything
	// downstream that wants to check tickets itself.
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerModal() {
	r.Mux.Handle("GET /modal",
		httpx.Chain(ModalHandler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
