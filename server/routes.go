package server

import (
	"net/http"

	"github.com/jrsteele09/studio-gateway/metrics"
)

func (s *Server) initRoutes() {
	// HANDSHAKE
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthSignIn, ChainMiddleware(s.ProviderSignInHandler(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthCallback, ChainMiddleware(s.ProviderCallbackHandler(), s.AuthMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteLogout, s.LogoutHandler())

	// SESSION API
	// The console polls the session read on focus and mount, so it stays outside the limiter.
	s.RegisterRouteFunc("GET "+RouteAPIAuthSession, s.SessionHandler())
	s.RegisterRouteHandler("POST "+RouteAPIAuthSignOut, ChainMiddleware(s.SignOutHandler(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIAuthSignup, ChainMiddleware(s.SignupHandler(), s.AuthMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIAuthMe, ChainMiddleware(s.MeHandler(), s.AuthMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAPINav, s.NavigationHandler())

	// BACKEND PROXY
	for _, method := range proxiedMethods {
		s.RegisterRouteFunc(method+" "+RouteAPIBackendPrefix, s.ProxyHandler())
	}

	// OPERATIONS
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler(s.gatherer))

	// STATIC SHELL
	s.RegisterRouteHandler("GET /", ChainMiddleware(s.static.ServeHTTP, s.CacheMiddleware))
}

var proxiedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
