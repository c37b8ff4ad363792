package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/cradle/internal/auth/biometric"
	"github.com/aussiebroadwan/cradle/internal/auth/service"
	"github.com/aussiebroadwan/cradle/internal/auth/store"
	"github.com/aussiebroadwan/cradle/pkg/httpx"
	"github.com/aussiebroadwan/cradle/pkg/jwtx"
	"github.com/aussiebroadwan/cradle/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *service.SessionManager
	Gate     *biometric.Gate
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Logging wraps recovery so a panic still gets its request line.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.RecoverMiddleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSession()
	r.registerBiometric()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSession() {
	h := &SessionHandler{Sessions: r.Sessions}

	// Credential-bearing endpoints - strict rate limit by IP
	strict := httpx.RateLimitByIP(httpx.StrictLimit)
	r.Mux.Handle("POST /v1/session/register", httpx.Chain(http.HandlerFunc(h.HandleRegister), strict))
	r.Mux.Handle("POST /v1/session/login", httpx.Chain(http.HandlerFunc(h.HandleLogin), strict))
	r.Mux.Handle("POST /v1/session/biometric", httpx.Chain(http.HandlerFunc(h.HandleBiometricLogin), strict))

	// Refresh proves possession with the refresh token in the body.
	r.Mux.Handle("POST /v1/session/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh), httpx.RateLimitByIP(httpx.ModerateLimit)),
	)

	// Everything else about the session needs its access token.
	owner := r.sessionOwner(httpx.ModerateLimit)
	r.Mux.Handle("POST /v1/session/logout", httpx.Chain(http.HandlerFunc(h.HandleLogout), owner...))
	r.Mux.Handle("GET /v1/session", httpx.Chain(http.HandlerFunc(h.HandleStatus), owner...))
}

func (r *Router) registerBiometric() {
	h := &BiometricHandler{Gate: r.Gate}

	// Public: the sign-in screen asks whether to offer biometrics.
	r.Mux.Handle("GET /v1/biometric",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	// Enabling runs a challenge - strict, same as biometric login
	r.Mux.Handle("POST /v1/biometric/enable",
		httpx.Chain(http.HandlerFunc(h.HandleEnable), r.sessionOwner(httpx.StrictLimit)...),
	)
	r.Mux.Handle("POST /v1/biometric/disable",
		httpx.Chain(http.HandlerFunc(h.HandleDisable), r.sessionOwner(httpx.ModerateLimit)...),
	)
}

// sessionOwner is the middleware stack for routes that act on the current
// session. The IP limit comes first so rejected callers are counted too.
func (r *Router) sessionOwner(limit httpx.RateLimitConfig) []httpx.Middleware {
	return []httpx.Middleware{
		httpx.RateLimitByIP(limit),
		httpx.AuthnMiddleware(r.verifier),
		requireSessionOwner(r.Sessions),
	}
}

func (r *Router) registerUsers() {
	secured := httpx.Chain(&UserInfoHandler{},
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/userinfo", secured)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Sessions))
}
