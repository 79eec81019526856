package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/openshelf/booksapi/internal/booksapi/events"
	"github.com/openshelf/booksapi/internal/booksapi/service"
	"github.com/openshelf/booksapi/internal/booksapi/store"
	"github.com/openshelf/booksapi/pkg/httpx"
	"github.com/openshelf/booksapi/pkg/jwtx"
	"github.com/openshelf/booksapi/pkg/slogx"

	_ "github.com/openshelf/booksapi/api/books" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	bus   *events.Bus

	AuthService *service.AuthService
	BookService *service.BookService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	bus *events.Bus,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		bus:          bus,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerBooks()
	r.registerUpdates()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			OpenShelf Books API
//	@version		0.1.0
//	@description	A small books catalogue with username/password accounts, JWT bearer
//	@description	access tokens and a server-sent-events stream of catalogue changes.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Both endpoints take credentials, so both get the strict per-IP limit.
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerBooks() {
	h := &BooksHandler{BookService: r.BookService}

	authn := httpx.AuthnMiddleware(r.verifier, r.AuthService.ResolveSubject)

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			authn,
			httpx.RateLimitByIP(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("POST /books", secured(h.HandleCreate))
	r.Mux.Handle("GET /books", secured(h.HandleList))
	r.Mux.Handle("GET /books/{id}", secured(h.HandleGet))
	r.Mux.Handle("PATCH /books/{id}", secured(h.HandlePatch))
	r.Mux.Handle("DELETE /books/{id}", secured(h.HandleDelete))
}

func (r *Router) registerUpdates() {
	h := &UpdatesHandler{Bus: r.bus}

	r.Mux.Handle("GET /sse/updates/{channel}",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
